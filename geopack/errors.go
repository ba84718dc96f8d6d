package geopack

import "errors"

// Sentinel errors for package geopack.
var (
	ErrMissingMember      = errors.New("container member missing")
	ErrMalformedContainer = errors.New("malformed container")
)
