// Package chunker implements content-defined chunking of large byte
// buffers using a Rabin fingerprint rolling hash, so that inserting or
// deleting bytes in the middle of a file only shifts the chunk
// boundaries nearest the edit instead of every boundary after it.
package chunker

import (
	"bytes"
	"io"

	resticchunker "github.com/restic/chunker"

	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/constants"
	"github.com/castorfs/castor/pkg/digest"
)

// pol is a fixed irreducible polynomial used for every Split call.
// Pinning it (rather than deriving a fresh random one per store, the
// way restic itself does per repository) is what makes Split
// deterministic: the same bytes always produce the same chunk
// boundaries, in this store or any other.
const pol = resticchunker.Pol(0x3DA3358B4DC173)

// Config bounds the size of a single chunk, in bytes.
type Config struct {
	Min int
	Avg int
	Max int
}

// DefaultConfig returns the store's chunker bounds: 256 KiB minimum,
// 512 KiB average, 1 MiB maximum.
func DefaultConfig() Config {
	return Config{
		Min: constants.ChunkerMinSize,
		Avg: constants.ChunkerAvgSize,
		Max: constants.ChunkerMaxSize,
	}
}

// Piece is one content-defined chunk produced by Split, already
// hashed.
type Piece struct {
	Digest digest.Digest
	Data   []byte
}

// Split partitions data into content-defined chunks honoring cfg's
// bounds. Every chunk's length is within [cfg.Min, cfg.Max], except
// possibly the final one, which may be shorter when the remaining
// input is smaller than cfg.Min. An empty input yields an empty
// slice. The same input and cfg always produce the same boundaries.
func Split(data []byte, cfg Config) ([]Piece, error) {
	if cfg.Min <= 0 || cfg.Max < cfg.Min || cfg.Avg < cfg.Min || cfg.Avg > cfg.Max {
		return nil, castorerr.New(castorerr.KindIO, "chunker.Split", errBadConfig)
	}
	if len(data) == 0 {
		return nil, nil
	}

	ck := resticchunker.NewWithBoundaries(bytes.NewReader(data), pol, uint(cfg.Min), uint(cfg.Max))
	buf := make([]byte, cfg.Max)

	var pieces []Piece
	for {
		chunk, err := ck.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, castorerr.New(castorerr.KindIO, "chunker.Split", err)
		}
		chunkData := make([]byte, len(chunk.Data))
		copy(chunkData, chunk.Data)
		pieces = append(pieces, Piece{Digest: digest.Hash(chunkData), Data: chunkData})
	}
	return pieces, nil
}
