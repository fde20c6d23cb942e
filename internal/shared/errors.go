package shared

import "errors"

// ErrMissingScope occurs when the institute or user headers are absent.
var ErrMissingScope = errors.New("request scope missing")
