package security

import "errors"

// ErrNoUserLookup is returned when the local account adapter has no user store.
var ErrNoUserLookup = errors.New("local account adapter needs a user lookup")
