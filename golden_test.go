// Package main carries the store's golden end-to-end scenarios: fixed
// input/output vectors an implementation must reproduce exactly,
// independent of any unit test internal to a single package.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/castorfs/castor/internal/obslog"
	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/constants"
	"github.com/castorfs/castor/pkg/gc"
	"github.com/castorfs/castor/pkg/ingest"
	"github.com/castorfs/castor/pkg/journal"
	"github.com/castorfs/castor/pkg/refs"
	"github.com/castorfs/castor/pkg/store"
	"github.com/castorfs/castor/pkg/tree"
)

func newGoldenStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := store.Init(root, store.DefaultConfig(), obslog.Nop())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, root
}

// TestGoldenSingleFile is scenario S1: a single small blob's digest,
// round-trip, and on-disk shape are all fixed values.
func TestGoldenSingleFile(t *testing.T) {
	s, root := newGoldenStore(t)

	h, err := s.PutBlob(bytes.NewReader([]byte("hello world")))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	const wantPrefix = "d74981ef"
	const wantSuffix = "9e24"
	if got := h.Hex(); got[:len(wantPrefix)] != wantPrefix || got[len(got)-len(wantSuffix):] != wantSuffix {
		t.Errorf("digest mismatch: got %s, want %s...%s", got, wantPrefix, wantSuffix)
	}

	data, err := s.GetBlob(h)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("round-trip mismatch: got %q", data)
	}

	hexDigest := h.Hex()
	objPath := filepath.Join(root, "objects", "blake3-256", hexDigest[:2], hexDigest[2:])
	info, err := os.Stat(objPath)
	if err != nil {
		t.Fatalf("expected object file at %s: %v", objPath, err)
	}
	if info.Size() != int64(constants.HeaderSize+len("hello world")) {
		t.Errorf("object file size = %d, want %d", info.Size(), constants.HeaderSize+len("hello world"))
	}
}

// TestGoldenDirectoryRoundTrip is scenario S2: ingesting a small tree
// and materializing it back reproduces every file byte-for-byte.
func TestGoldenDirectoryRoundTrip(t *testing.T) {
	s, root := newGoldenStore(t)

	srcRoot := filepath.Join(root, "src")
	mustWriteFile(t, filepath.Join(srcRoot, "a.txt"), "alpha")
	mustWriteFile(t, filepath.Join(srcRoot, "b.txt"), "beta")
	mustWriteFile(t, filepath.Join(srcRoot, "sub", "c.txt"), "gamma")

	j := journal.Open(filepath.Join(root, "journal"))
	ing := ingest.New(s, nil, j, obslog.Nop())

	h, err := ing.AddPath(srcRoot)
	if err != nil {
		t.Fatalf("AddPath: %v", err)
	}

	destRoot := filepath.Join(root, "dest")
	if err := s.Materialize(h, destRoot); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	for relPath, want := range map[string]string{
		"a.txt":     "alpha",
		"b.txt":     "beta",
		"sub/c.txt": "gamma",
	} {
		got := mustReadFile(t, filepath.Join(destRoot, filepath.FromSlash(relPath)))
		if got != want {
			t.Errorf("%s: got %q, want %q", relPath, got, want)
		}
	}
}

// TestGoldenTreeOrderIndependence is scenario S3: the same entry set
// built in reverse order collapses to the same digest.
func TestGoldenTreeOrderIndependence(t *testing.T) {
	s, _ := newGoldenStore(t)

	ha, err := s.PutBlob(bytes.NewReader([]byte("alpha")))
	if err != nil {
		t.Fatal(err)
	}
	hb, err := s.PutBlob(bytes.NewReader([]byte("beta")))
	if err != nil {
		t.Fatal(err)
	}

	forward := []tree.Entry{
		{Kind: tree.KindBlob, Mode: constants.ModeRegularFile, Digest: ha, Name: "a.txt"},
		{Kind: tree.KindBlob, Mode: constants.ModeRegularFile, Digest: hb, Name: "b.txt"},
	}
	reverse := []tree.Entry{
		{Kind: tree.KindBlob, Mode: constants.ModeRegularFile, Digest: hb, Name: "b.txt"},
		{Kind: tree.KindBlob, Mode: constants.ModeRegularFile, Digest: ha, Name: "a.txt"},
	}

	h1, err := s.PutTree(forward)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := s.PutTree(reverse)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("tree digests diverge by entry order: %s != %s", h1.Hex(), h2.Hex())
	}
}

// TestGoldenChunkedBlob is scenario S4: a 2 MiB constant-byte blob is
// stored as a chunk list, round-trips exactly, and GC with no
// references reclaims the chunk list and every chunk.
func TestGoldenChunkedBlob(t *testing.T) {
	s, root := newGoldenStore(t)

	data := bytes.Repeat([]byte{0xAB}, 2*1024*1024)
	h, err := s.PutBlob(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	got, err := s.GetBlob(h)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("chunked round-trip did not reproduce the original bytes")
	}

	rs := refs.New(filepath.Join(root, "refs"))
	c := gc.New(s, rs, obslog.Nop())
	res, err := c.GC(false)
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if res.ObjectsDeleted < 2 {
		t.Errorf("expected chunk list and chunks deleted, got %d objects", res.ObjectsDeleted)
	}
	if _, err := s.GetBlob(h); !castorerr.IsNotFound(err) {
		t.Errorf("expected chunked blob to be gone after GC, got %v", err)
	}
}

// TestGoldenGCSelectivity is scenario S5: GC deletes only the
// unreferenced blob, leaving the referenced one intact.
func TestGoldenGCSelectivity(t *testing.T) {
	s, root := newGoldenStore(t)

	hKeep, err := s.PutBlob(bytes.NewReader([]byte("keep")))
	if err != nil {
		t.Fatal(err)
	}
	hDrop, err := s.PutBlob(bytes.NewReader([]byte("drop")))
	if err != nil {
		t.Fatal(err)
	}

	rs := refs.New(filepath.Join(root, "refs"))
	if err := rs.Add("r", hKeep); err != nil {
		t.Fatal(err)
	}

	c := gc.New(s, rs, obslog.Nop())
	res, err := c.GC(false)
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if res.ObjectsDeleted != 1 {
		t.Errorf("objects_deleted = %d, want 1", res.ObjectsDeleted)
	}
	if res.BytesFreed < int64(len("drop")+constants.HeaderSize) {
		t.Errorf("bytes_freed = %d, want >= %d", res.BytesFreed, len("drop")+constants.HeaderSize)
	}

	if _, err := s.GetBlob(hKeep); err != nil {
		t.Errorf("expected kept blob to survive: %v", err)
	}
	if _, err := s.GetBlob(hDrop); !castorerr.IsNotFound(err) {
		t.Errorf("expected dropped blob to be reported not found, got %v", err)
	}
}

// TestGoldenOrphanAnalysis is scenario S6: an unreferenced directory
// tree reports exactly its top-level digest, never interior subtrees.
func TestGoldenOrphanAnalysis(t *testing.T) {
	s, root := newGoldenStore(t)

	srcRoot := filepath.Join(root, "src")
	mustWriteFile(t, filepath.Join(srcRoot, "leaf.txt"), "leaf")

	j := journal.Open(filepath.Join(root, "journal"))
	ing := ingest.New(s, nil, j, obslog.Nop())
	topDigest, err := ing.AddPath(srcRoot)
	if err != nil {
		t.Fatalf("AddPath: %v", err)
	}

	rs := refs.New(filepath.Join(root, "refs"))
	c := gc.New(s, rs, obslog.Nop())
	orphans, err := c.FindOrphanRoots()
	if err != nil {
		t.Fatalf("FindOrphanRoots: %v", err)
	}

	if len(orphans) != 1 {
		t.Fatalf("expected exactly 1 orphan root, got %d", len(orphans))
	}
	if orphans[0].Digest != topDigest {
		t.Errorf("orphan root digest = %s, want %s", orphans[0].Digest.Hex(), topDigest.Hex())
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}
