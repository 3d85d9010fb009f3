package spill

import "errors"

var (
	ErrAlreadyBuilt = errors.New("index is already built")
	ErrNotBuilt     = errors.New("index is not built")
	ErrIDNotFound   = errors.New("ID not found")
	ErrDimMismatch  = errors.New("vector dimension doesn't match")
)
