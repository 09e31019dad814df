package rolemap

import "errors"

// ErrInvalidPattern is returned for a configured pattern that does not compile.
var ErrInvalidPattern = errors.New("invalid role pattern")
