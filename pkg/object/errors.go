package object

import "errors"

var (
	errShortHeader        = errors.New("buffer shorter than header size")
	errBadMagic           = errors.New("bad magic")
	errUnsupportedVersion = errors.New("unsupported version")
	errUnknownType        = errors.New("unknown object type")
	errUnknownAlgo        = errors.New("unknown hash algorithm")
	errReservedByteSet    = errors.New("v1 reserved byte is non-zero")
	errUnknownCompression = errors.New("unknown compression tag")
	errChunkListLength    = errors.New("chunk list length not a multiple of entry size")
)
