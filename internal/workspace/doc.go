// Package workspace manages the scratch directories used while publishing.
//
// Each Manager owns one uniquely named directory (e.g. sitebuilder-publish-20261019-122336-…)
// which is removed completely by Cleanup.
package workspace
