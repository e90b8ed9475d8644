package journal

import "errors"

var (
	errFieldCount = errors.New("expected 5 pipe-delimited fields")
	errEmptyOp    = errors.New("operation field is empty")
)
