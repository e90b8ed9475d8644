// Package ingest walks a filesystem subtree and stores it as a
// hash-linked object graph: regular files become blobs, directories
// become trees of their children, symlinks are rejected.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/castorfs/castor/internal/obslog"
	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/constants"
	"github.com/castorfs/castor/pkg/digest"
	"github.com/castorfs/castor/pkg/journal"
	"github.com/castorfs/castor/pkg/store"
	"github.com/castorfs/castor/pkg/tree"
)

// DirEnumerator is the pluggable seam for directory-listing policy
// (e.g. a caller wanting .gitignore semantics supplies its own
// implementation); it is not specified here.
type DirEnumerator interface {
	ReadDir(path string) ([]os.DirEntry, error)
}

// DefaultEnumerator lists every entry in a directory via os.ReadDir,
// applying no ignore rules of its own.
type DefaultEnumerator struct{}

// ReadDir implements DirEnumerator.
func (DefaultEnumerator) ReadDir(path string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, castorerr.WithPath(castorerr.KindIO, "ingest.DefaultEnumerator.ReadDir", path, err)
	}
	return entries, nil
}

// Ingestor ingests filesystem paths into a Store, recording one
// journal entry per top-level call.
type Ingestor struct {
	store   *store.Store
	enum    DirEnumerator
	journal *journal.Journal
	log     obslog.Logger
}

// New returns an Ingestor writing into st, listing directories via
// enum, and appending activity to j.
func New(st *store.Store, enum DirEnumerator, j *journal.Journal, log obslog.Logger) *Ingestor {
	if enum == nil {
		enum = DefaultEnumerator{}
	}
	return &Ingestor{store: st, enum: enum, journal: j, log: log}
}

func modeFor(info os.FileInfo) uint32 {
	if info.IsDir() {
		return constants.ModeDirectory
	}
	if info.Mode()&0o111 != 0 {
		return constants.ModeExecutableFile
	}
	return constants.ModeRegularFile
}

// AddPath ingests the file or directory at path and returns the
// digest of the resulting object, appending one journal entry
// recording the outcome.
func (ing *Ingestor) AddPath(path string) (digest.Digest, error) {
	h, entryCount, size, err := ing.addPath(path)
	if err != nil {
		return digest.Digest{}, err
	}

	if ing.journal != nil {
		meta := fmt.Sprintf("entries=%d,size=%d", entryCount, size)
		if err := ing.journal.Append(journal.Entry{
			Timestamp: time.Now(),
			Op:        "add",
			Digest:    h,
			Path:      path,
			Meta:      meta,
		}); err != nil {
			return digest.Digest{}, err
		}
	}
	ing.log.Info("ingest.AddPath", map[string]any{"path": path, "digest": h.Hex()}, "ingested")
	return h, nil
}

// addPath recurses, returning the resulting digest plus the entry
// count and on-disk size used for the top-level journal metadata
// (entry count and size are only meaningful for the caller's own
// level; they are recomputed, not accumulated, at each recursive
// step).
func (ing *Ingestor) addPath(path string) (digest.Digest, int, int64, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return digest.Digest{}, 0, 0, castorerr.WithPath(castorerr.KindNotFound, "ingest.AddPath", path, err)
	}
	if err != nil {
		return digest.Digest{}, 0, 0, castorerr.WithPath(castorerr.KindIO, "ingest.AddPath", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return digest.Digest{}, 0, 0, castorerr.WithPath(castorerr.KindSymlinkRejected, "ingest.AddPath", path, errSymlinkRejected)
	}

	if info.IsDir() {
		return ing.addDir(path)
	}
	return ing.addFile(path, info)
}

func (ing *Ingestor) addFile(path string, info os.FileInfo) (digest.Digest, int, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return digest.Digest{}, 0, 0, castorerr.WithPath(castorerr.KindIO, "ingest.addFile", path, err)
	}
	defer f.Close()

	h, err := ing.store.PutBlob(f)
	if err != nil {
		return digest.Digest{}, 0, 0, err
	}
	return h, 1, info.Size(), nil
}

func (ing *Ingestor) addDir(path string) (digest.Digest, int, int64, error) {
	children, err := ing.enum.ReadDir(path)
	if err != nil {
		return digest.Digest{}, 0, 0, err
	}

	entries := make([]tree.Entry, 0, len(children))
	for _, c := range children {
		childPath := filepath.Join(path, c.Name())
		childDigest, _, _, err := ing.addPath(childPath)
		if err != nil {
			return digest.Digest{}, 0, 0, err
		}

		info, err := c.Info()
		if err != nil {
			return digest.Digest{}, 0, 0, castorerr.WithPath(castorerr.KindIO, "ingest.addDir", childPath, err)
		}

		kind := tree.KindBlob
		if c.IsDir() {
			kind = tree.KindTree
		}
		entries = append(entries, tree.Entry{
			Kind:   kind,
			Mode:   modeFor(info),
			Digest: childDigest,
			Name:   c.Name(),
		})
	}

	h, err := ing.store.PutTree(entries)
	if err != nil {
		return digest.Digest{}, 0, 0, err
	}
	size, err := ing.store.ObjectSize(h)
	if err != nil {
		return digest.Digest{}, 0, 0, err
	}
	return h, len(entries), size, nil
}
