package ingest

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/castorfs/castor/internal/obslog"
	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/journal"
	"github.com/castorfs/castor/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Init(t.TempDir(), store.DefaultConfig(), obslog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeTree(t *testing.T, root string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("beta"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "c.txt"), []byte("gamma"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAddPathFile(t *testing.T) {
	s := newTestStore(t)
	j := journal.Open(filepath.Join(t.TempDir(), "journal"))
	ing := New(s, nil, j, obslog.Nop())

	root := t.TempDir()
	file := filepath.Join(root, "x.txt")
	if err := os.WriteFile(file, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := ing.AddPath(file)
	if err != nil {
		t.Fatalf("AddPath: %v", err)
	}
	got, err := s.GetBlob(h)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content" {
		t.Errorf("got %q", got)
	}

	entries, err := j.ReadRecent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Op != "add" {
		t.Fatalf("expected one 'add' journal entry, got %+v", entries)
	}
}

func TestAddPathDirectoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	j := journal.Open(filepath.Join(t.TempDir(), "journal"))
	ing := New(s, nil, j, obslog.Nop())

	root := t.TempDir()
	writeTree(t, root)

	h, err := ing.AddPath(root)
	if err != nil {
		t.Fatalf("AddPath: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out")
	if err := s.Materialize(h, dest); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	for name, want := range map[string]string{
		"a.txt":     "alpha",
		"b.txt":     "beta",
		"sub/c.txt": "gamma",
	} {
		got, err := os.ReadFile(filepath.Join(dest, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestAddPathOrderIndependence(t *testing.T) {
	s := newTestStore(t)
	j := journal.Open(filepath.Join(t.TempDir(), "journal"))
	ing := New(s, nil, j, obslog.Nop())

	rootA := t.TempDir()
	writeTree(t, rootA)
	hA, err := ing.AddPath(rootA)
	if err != nil {
		t.Fatal(err)
	}

	rootB := t.TempDir()
	writeTree(t, rootB)
	hB, err := ing.AddPath(rootB)
	if err != nil {
		t.Fatal(err)
	}

	if hA != hB {
		t.Error("expected identical content trees to hash identically regardless of ingestion order")
	}
}

func TestAddPathRejectsSymlink(t *testing.T) {
	s := newTestStore(t)
	ing := New(s, nil, nil, obslog.Nop())

	root := t.TempDir()
	target := filepath.Join(root, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	if _, err := ing.AddPath(link); err == nil {
		t.Fatal("expected error ingesting a symlink")
	} else if !castorerr.Is(err, castorerr.KindSymlinkRejected) {
		t.Errorf("expected KindSymlinkRejected, got %v", err)
	}
}

func TestAddPathMissing(t *testing.T) {
	s := newTestStore(t)
	ing := New(s, nil, nil, obslog.Nop())

	if _, err := ing.AddPath(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing path")
	} else if !castorerr.IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}
}

func TestAddPathJournalMetadata(t *testing.T) {
	s := newTestStore(t)
	j := journal.Open(filepath.Join(t.TempDir(), "journal"))
	ing := New(s, nil, j, obslog.Nop())

	root := t.TempDir()
	writeTree(t, root)

	if _, err := ing.AddPath(root); err != nil {
		t.Fatal(err)
	}

	entries, err := j.ReadRecent(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one journal entry, got %d", len(entries))
	}
	if entries[0].Meta != "entries=3,size="+sizeOf(t, s, entries[0]) {
		t.Errorf("unexpected metadata: %q", entries[0].Meta)
	}
}

func sizeOf(t *testing.T, s *store.Store, e journal.Entry) string {
	t.Helper()
	size, err := s.ObjectSize(e.Digest)
	if err != nil {
		t.Fatal(err)
	}
	return strconv.FormatInt(size, 10)
}
