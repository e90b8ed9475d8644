// Package object implements the 16-byte object header and the
// chunk-list payload codec used by every object file on disk.
package object

import (
	"encoding/binary"

	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/constants"
	"github.com/castorfs/castor/pkg/digest"
)

// Header is the fixed 16-byte prefix of every object file.
type Header struct {
	Version     byte
	Type        byte
	Algo        byte
	Compression byte
	PayloadLen  uint64
}

// EncodeHeader serializes h into its 16-byte on-disk form.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, constants.HeaderSize)
	copy(buf[0:4], constants.ObjectMagic)
	buf[4] = h.Version
	buf[5] = h.Type
	buf[6] = h.Algo
	buf[7] = h.Compression
	binary.LittleEndian.PutUint64(buf[8:16], h.PayloadLen)
	return buf
}

// DecodeHeader parses the 16-byte header at the start of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < constants.HeaderSize {
		return Header{}, castorerr.New(castorerr.KindCorrupted, "object.DecodeHeader",
			errShortHeader)
	}
	if string(buf[0:4]) != constants.ObjectMagic {
		return Header{}, castorerr.New(castorerr.KindCorrupted, "object.DecodeHeader",
			errBadMagic)
	}

	h := Header{
		Version:     buf[4],
		Type:        buf[5],
		Algo:        buf[6],
		Compression: buf[7],
		PayloadLen:  binary.LittleEndian.Uint64(buf[8:16]),
	}

	switch h.Version {
	case constants.VersionLegacy:
		if h.Compression != constants.CompressionNone {
			return Header{}, castorerr.New(castorerr.KindCorrupted, "object.DecodeHeader",
				errReservedByteSet)
		}
	case constants.VersionCurrent:
		if h.Compression != constants.CompressionNone && h.Compression != constants.CompressionZstd {
			return Header{}, castorerr.New(castorerr.KindCorrupted, "object.DecodeHeader",
				errUnknownCompression)
		}
	default:
		return Header{}, castorerr.New(castorerr.KindCorrupted, "object.DecodeHeader",
			errUnsupportedVersion)
	}

	switch h.Type {
	case constants.TypeBlob, constants.TypeTree, constants.TypeChunkList:
	default:
		return Header{}, castorerr.New(castorerr.KindCorrupted, "object.DecodeHeader",
			errUnknownType)
	}

	if h.Algo != constants.AlgoBLAKE3256 {
		return Header{}, castorerr.New(castorerr.KindUnsupportedAlgorithm, "object.DecodeHeader",
			errUnknownAlgo)
	}

	return h, nil
}

// ChunkEntry is one (chunk digest, chunk size) pair within a
// ChunkList object's payload.
type ChunkEntry struct {
	Digest digest.Digest
	Size   uint64
}

// EncodeChunkList serializes entries into a ChunkList payload:
// the concatenation of digest(32B) ∥ size:u64LE for each entry.
func EncodeChunkList(entries []ChunkEntry) []byte {
	buf := make([]byte, len(entries)*constants.ChunkListEntrySize)
	for i, e := range entries {
		off := i * constants.ChunkListEntrySize
		copy(buf[off:off+digest.Size], e.Digest[:])
		binary.LittleEndian.PutUint64(buf[off+digest.Size:off+constants.ChunkListEntrySize], e.Size)
	}
	return buf
}

// DecodeChunkList parses a ChunkList payload back into entries.
// The payload length must be a multiple of ChunkListEntrySize.
func DecodeChunkList(payload []byte) ([]ChunkEntry, error) {
	if len(payload)%constants.ChunkListEntrySize != 0 {
		return nil, castorerr.New(castorerr.KindInvalidChunkList, "object.DecodeChunkList",
			errChunkListLength)
	}
	n := len(payload) / constants.ChunkListEntrySize
	entries := make([]ChunkEntry, n)
	for i := 0; i < n; i++ {
		off := i * constants.ChunkListEntrySize
		var d digest.Digest
		copy(d[:], payload[off:off+digest.Size])
		size := binary.LittleEndian.Uint64(payload[off+digest.Size : off+constants.ChunkListEntrySize])
		entries[i] = ChunkEntry{Digest: d, Size: size}
	}
	return entries, nil
}
