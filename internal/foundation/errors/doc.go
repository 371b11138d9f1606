// Package errors provides the classified error primitives used across sitebuilder.
//
// Every failure that crosses a build step boundary is either fatal (the build
// aborts) or item-level (logged, the offending page, post or asset is skipped).
// ClassifiedError carries that distinction as its severity, next to a category
// used for exit codes and log attributes.
//
// Key features:
//   - ErrorCategory: config, template, content, command, filesystem, build, deploy, ...
//   - ErrorSeverity: fatal, error, warning, info
//   - ClassifiedError: structured error with category, severity and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.CommandError("minifier failed").
//		WithContext("command", cmdline).
//		WithCause(runErr).
//		Build()
package errors
