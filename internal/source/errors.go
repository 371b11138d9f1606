package source

import "errors"

// Sentinel errors for discovery and parsing. Wrapped with %w inside classified errors.
var (
	// ErrOutsideRoots indicates a file that lies in none of the configured roots.
	ErrOutsideRoots = errors.New("file outside configured roots")

	// ErrRootWalkFailed indicates filesystem traversal of a root failed.
	ErrRootWalkFailed = errors.New("source root walk failed")

	// ErrFileReadFailed indicates reading a page or post failed.
	ErrFileReadFailed = errors.New("source file read failed")

	// ErrInvalidTimestamp indicates a created/updated value matched no configured layout.
	ErrInvalidTimestamp = errors.New("timestamp matches no configured format")

	// ErrDuplicateImageID indicates two images share a numeric id.
	ErrDuplicateImageID = errors.New("duplicate image id")
)
