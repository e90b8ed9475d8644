// Package tree implements the canonical on-disk encoding of directory
// entries: kind ∥ mode ∥ digest ∥ name-length ∥ name, sorted by name
// so that two semantically equal entry sets always produce identical
// bytes (and therefore identical digests).
package tree

import (
	"encoding/binary"
	"sort"
	"unicode/utf8"

	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/constants"
	"github.com/castorfs/castor/pkg/digest"
)

// Kind distinguishes the two entry kinds a tree can hold.
type Kind byte

const (
	KindBlob Kind = constants.EntryKindBlob
	KindTree Kind = constants.EntryKindTree
)

// Entry is one record within a directory tree.
type Entry struct {
	Kind   Kind
	Mode   uint32
	Digest digest.Digest
	Name   string
}

func validateEntry(e Entry) error {
	if len(e.Name) == 0 {
		return castorerr.New(castorerr.KindInvalidTreeEntry, "tree.validateEntry", errEmptyName)
	}
	if len(e.Name) > constants.MaxNameLength {
		return castorerr.New(castorerr.KindInvalidTreeEntry, "tree.validateEntry", errNameTooLong)
	}
	for i := 0; i < len(e.Name); i++ {
		if e.Name[i] == 0 {
			return castorerr.New(castorerr.KindInvalidTreeEntry, "tree.validateEntry", errNameHasNUL)
		}
	}
	if !utf8.ValidString(e.Name) {
		return castorerr.New(castorerr.KindInvalidTreeEntry, "tree.validateEntry", errNameNotUTF8)
	}
	switch e.Kind {
	case KindBlob, KindTree:
	default:
		return castorerr.New(castorerr.KindInvalidTreeEntry, "tree.validateEntry", errBadKind)
	}
	return nil
}

// Encode canonicalizes entries (sorted bytewise by name) and
// serializes them. Duplicate names, or any entry failing validation,
// is an error.
func Encode(entries []Entry) ([]byte, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, e := range sorted {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return nil, castorerr.New(castorerr.KindInvalidTreeEntry, "tree.Encode", errDuplicateName)
		}
	}

	var size int
	for _, e := range sorted {
		size += 1 + 4 + digest.Size + 1 + len(e.Name)
	}

	buf := make([]byte, size)
	off := 0
	for _, e := range sorted {
		buf[off] = byte(e.Kind)
		off++
		binary.LittleEndian.PutUint32(buf[off:off+4], e.Mode)
		off += 4
		copy(buf[off:off+digest.Size], e.Digest[:])
		off += digest.Size
		buf[off] = byte(len(e.Name))
		off++
		copy(buf[off:off+len(e.Name)], e.Name)
		off += len(e.Name)
	}
	return buf, nil
}

// Decode streams entries out of buf until it is exhausted. buf is
// assumed to already be in canonical (sorted) order, as produced by
// Encode; Decode does not re-sort.
func Decode(buf []byte) ([]Entry, error) {
	var entries []Entry
	off := 0
	for off < len(buf) {
		if off+1+4+digest.Size+1 > len(buf) {
			return nil, castorerr.New(castorerr.KindInvalidTreeEntry, "tree.Decode", errTruncated)
		}
		kind := Kind(buf[off])
		off++
		mode := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		var d digest.Digest
		copy(d[:], buf[off:off+digest.Size])
		off += digest.Size
		nameLen := int(buf[off])
		off++
		if nameLen == 0 {
			return nil, castorerr.New(castorerr.KindInvalidTreeEntry, "tree.Decode", errEmptyName)
		}
		if off+nameLen > len(buf) {
			return nil, castorerr.New(castorerr.KindInvalidTreeEntry, "tree.Decode", errTruncated)
		}
		name := string(buf[off : off+nameLen])
		off += nameLen

		if !utf8.ValidString(name) {
			return nil, castorerr.New(castorerr.KindInvalidTreeEntry, "tree.Decode", errNameNotUTF8)
		}
		if len(entries) > 0 && entries[len(entries)-1].Name == name {
			return nil, castorerr.New(castorerr.KindInvalidTreeEntry, "tree.Decode", errDuplicateName)
		}

		entries = append(entries, Entry{Kind: kind, Mode: mode, Digest: d, Name: name})
	}
	return entries, nil
}
