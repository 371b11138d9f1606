// Package git publishes a built site to a git remote and initializes site
// repositories.
//
// Publishing clones the target branch into an ephemeral workspace, replaces its
// tree with the build output, commits when anything changed and pushes the
// branch back. An empty remote or a missing branch starts a fresh history.
// Pushes are retried with the configured backoff for transient failures.
package git
