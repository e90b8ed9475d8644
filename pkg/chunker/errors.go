package chunker

import "errors"

var errBadConfig = errors.New("chunker config: min <= max, min <= avg <= max, min > 0 required")
