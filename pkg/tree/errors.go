package tree

import "errors"

var (
	errEmptyName     = errors.New("entry name is empty")
	errNameTooLong   = errors.New("entry name longer than 255 bytes")
	errNameHasNUL    = errors.New("entry name contains a NUL byte")
	errNameNotUTF8   = errors.New("entry name is not valid UTF-8")
	errBadKind       = errors.New("entry kind is neither Blob nor Tree")
	errDuplicateName = errors.New("duplicate entry name")
	errTruncated     = errors.New("buffer truncated mid-entry")
)
