package idm

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrAmbiguousMatch is returned when a lookup expected to be unique matches
	// more than one record.
	ErrAmbiguousMatch = errors.New("ambiguous match")
)
