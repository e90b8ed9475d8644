// Package digest implements the fixed-size BLAKE3-256 content digest
// used to address every object in the store.
package digest

import (
	"encoding/hex"
	"errors"
	"io"

	"lukechampine.com/blake3"
)

var errUppercaseHex = errors.New("uppercase hex digits are not accepted")

// Size is the length of a digest in bytes (256 bits).
const Size = 32

// hexLen is the length of the hex-encoded form of a digest.
const hexLen = Size * 2

// Digest is a fixed-size cryptographic hash identifying an object by
// its content. The zero value is not a valid digest of any content
// (callers use IsZero to detect an absent/unset digest).
type Digest [Size]byte

// Hash returns the BLAKE3-256 digest of data.
func Hash(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

// HashReader returns the BLAKE3-256 digest of everything read from r.
func HashReader(r io.Reader) (Digest, error) {
	h := blake3.New(Size, nil)
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// FromHex parses a 64-character lowercase hex string into a Digest.
// Uppercase hex digits are rejected so that Hex(FromHex(s)) == s holds
// for every string FromHex accepts.
func FromHex(s string) (Digest, error) {
	if len(s) != hexLen {
		return Digest{}, &hexLenError{got: len(s)}
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'F' {
			return Digest{}, &hexCharError{cause: errUppercaseHex}
		}
	}
	var d Digest
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, &hexCharError{cause: err}
	}
	return d, nil
}

// Hex returns the 64-character lowercase hex encoding of d.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Prefix returns the first byte of d as a 2-character hex string,
// used as the shard directory name under objects/<algo>/.
func (d Digest) Prefix() string {
	return hex.EncodeToString(d[:1])
}

// Suffix returns the remaining 31 bytes of d as a 62-character hex
// string, used as the object's filename within its shard directory.
func (d Digest) Suffix() string {
	return hex.EncodeToString(d[1:])
}

// IsZero reports whether d is the zero digest (never a real hash
// output in practice, but used as a sentinel for "no value").
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Equal reports whether d and other are the same digest.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// Compare returns -1, 0, or 1 as d is less than, equal to, or greater
// than other, by raw byte comparison.
func (d Digest) Compare(other Digest) int {
	for i := range d {
		if d[i] != other[i] {
			if d[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether d sorts before other in the total byte order.
func (d Digest) Less(other Digest) bool {
	return d.Compare(other) < 0
}

type hexLenError struct{ got int }

func (e *hexLenError) Error() string {
	return "digest: invalid hex length"
}

type hexCharError struct{ cause error }

func (e *hexCharError) Error() string {
	return "digest: invalid hex characters: " + e.cause.Error()
}

func (e *hexCharError) Unwrap() error { return e.cause }
