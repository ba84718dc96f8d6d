package expand

import "errors"

// Sentinel errors for package expand.
// These errors can be checked with errors.Is() for specific error handling.
var (
	ErrUnsupportedArchive  = errors.New("unsupported archive format")
	ErrMemberEscapesTarget = errors.New("archive member escapes extraction target")
)
