package convert

import "errors"

// Sentinel errors for package convert.
var (
	ErrNoTool = errors.New("conversion tool not found")
)
