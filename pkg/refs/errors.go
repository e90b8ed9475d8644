package refs

import "errors"

var (
	errEmptyRefName = errors.New("reference name is empty")
	errBadRefName   = errors.New("reference name must not contain '/', '\\', or '..'")
)
