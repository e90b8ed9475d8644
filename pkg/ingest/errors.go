package ingest

import "errors"

var errSymlinkRejected = errors.New("symbolic links are rejected")
