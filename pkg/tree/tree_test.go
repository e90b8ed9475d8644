package tree

import (
	"reflect"
	"strings"
	"testing"

	"github.com/castorfs/castor/pkg/digest"
)

func sampleEntries() []Entry {
	return []Entry{
		{Kind: KindBlob, Mode: 0o100644, Digest: digest.Hash([]byte("alpha")), Name: "b.txt"},
		{Kind: KindBlob, Mode: 0o100644, Digest: digest.Hash([]byte("beta")), Name: "a.txt"},
		{Kind: KindTree, Mode: 0o040755, Digest: digest.Hash([]byte("gamma")), Name: "sub"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entries := sampleEntries()
	buf, err := Encode(entries)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := make([]Entry, len(entries))
	copy(want, entries)
	// Encode sorts by name; a.txt < b.txt < sub
	want = []Entry{entries[1], entries[0], entries[2]}

	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", decoded, want)
	}
}

func TestEncodeIsOrderIndependent(t *testing.T) {
	entries := sampleEntries()
	reversed := []Entry{entries[2], entries[1], entries[0]}

	a, err := Encode(entries)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(reversed)
	if err != nil {
		t.Fatal(err)
	}

	if string(a) != string(b) {
		t.Error("Encode is not order-independent for the same entry set")
	}
}

func TestEncodeEmptyTree(t *testing.T) {
	buf, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil): %v", err)
	}
	if len(buf) != 0 {
		t.Errorf("expected empty encoding, got %d bytes", len(buf))
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("expected empty tree, got %d entries", len(decoded))
	}
}

func TestEncodeRejectsDuplicateNames(t *testing.T) {
	entries := []Entry{
		{Kind: KindBlob, Digest: digest.Hash([]byte("a")), Name: "dup"},
		{Kind: KindBlob, Digest: digest.Hash([]byte("b")), Name: "dup"},
	}
	if _, err := Encode(entries); err == nil {
		t.Error("expected error for duplicate names")
	}
}

func TestEncodeRejectsEmptyName(t *testing.T) {
	entries := []Entry{{Kind: KindBlob, Digest: digest.Hash([]byte("a")), Name: ""}}
	if _, err := Encode(entries); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestEncodeRejectsNameWithNUL(t *testing.T) {
	entries := []Entry{{Kind: KindBlob, Digest: digest.Hash([]byte("a")), Name: "bad\x00name"}}
	if _, err := Encode(entries); err == nil {
		t.Error("expected error for NUL in name")
	}
}

func TestEncodeRejectsTooLongName(t *testing.T) {
	entries := []Entry{{Kind: KindBlob, Digest: digest.Hash([]byte("a")), Name: strings.Repeat("x", 256)}}
	if _, err := Encode(entries); err == nil {
		t.Error("expected error for name longer than 255 bytes")
	}
}

func TestEncodeRejectsBadKind(t *testing.T) {
	entries := []Entry{{Kind: Kind(9), Digest: digest.Hash([]byte("a")), Name: "x"}}
	if _, err := Encode(entries); err == nil {
		t.Error("expected error for invalid kind")
	}
}

func TestEmptyTreeDigestIsWellDefined(t *testing.T) {
	buf1, _ := Encode(nil)
	buf2, _ := Encode([]Entry{})
	if digest.Hash(buf1) != digest.Hash(buf2) {
		t.Error("empty tree digest should be stable across nil/empty input")
	}
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	entries := sampleEntries()
	buf, err := Encode(entries)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(buf[:len(buf)-2]); err == nil {
		t.Error("expected error decoding truncated buffer")
	}
}
