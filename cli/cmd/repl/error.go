package repl

import "errors"

// Sentinel errors.
var (
	ErrOutOfBounds  = errors.New("history index out of range")
	ErrEditDeclined = errors.New("data edit declined")
	ErrNoEngine     = errors.New("no template engine")
)
