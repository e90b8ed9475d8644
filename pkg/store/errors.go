package store

import "errors"

var (
	errMissingConfig            = errors.New("store config file is missing")
	errUnsupportedConfigVersion = errors.New("store config version is missing or unsupported")
	errUnsupportedConfigAlgo    = errors.New("store config algorithm is missing or unsupported")
	errMissingLayout            = errors.New("store is missing a required directory")
	errPayloadLengthMismatch    = errors.New("object payload length disagrees with header")
	errDigestMismatch           = errors.New("recomputed digest does not match expected digest")
	errChunkSizeMismatch        = errors.New("chunk size disagrees with chunk-list entry")
	errNotABlob                 = errors.New("object is not a Blob or ChunkList")
	errNotATree                 = errors.New("object is not a Tree")
	errDestExists               = errors.New("materialize destination already exists")
	errUnknownObjectType        = errors.New("object header has an unrecognized type tag")
)
