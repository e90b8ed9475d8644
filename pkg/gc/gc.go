// Package gc implements mark-sweep garbage collection over the object
// store and orphan-root analysis for unreferenced subgraphs.
package gc

import (
	"os"
	"path/filepath"

	"github.com/castorfs/castor/internal/obslog"
	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/constants"
	"github.com/castorfs/castor/pkg/digest"
	"github.com/castorfs/castor/pkg/object"
	"github.com/castorfs/castor/pkg/refs"
	"github.com/castorfs/castor/pkg/store"
)

// Collector marks reachable objects from a store's references and
// sweeps everything else.
type Collector struct {
	store *store.Store
	refs  *refs.Store
	log   obslog.Logger
}

// New returns a Collector operating on st's objects, rooted at the
// references in rs.
func New(st *store.Store, rs *refs.Store, log obslog.Logger) *Collector {
	return &Collector{store: st, refs: rs, log: log}
}

// Result summarizes one GC sweep.
type Result struct {
	ObjectsDeleted int
	BytesFreed     int64
}

// OrphanRoot is an unreachable object that is not itself a child of
// another unreachable object.
type OrphanRoot struct {
	Digest     digest.Digest
	Kind       string // "Blob" or "Tree"
	EntryCount int    // only meaningful for Kind == "Tree"
	Size       int64
}

// every walks every object file under the store's objects directory,
// calling fn with its digest and path. A file whose name does not
// parse as a digest is skipped rather than treated as an error —
// foreign files under objects/ are not this store's concern.
func (c *Collector) every(fn func(d digest.Digest, path string) error) error {
	root := filepath.Join(c.store.Root(), constants.ObjectsDirName, constants.AlgoName)
	shards, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return castorerr.WithPath(castorerr.KindIO, "gc.every", root, err)
	}

	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardPath := filepath.Join(root, shard.Name())
		files, err := os.ReadDir(shardPath)
		if err != nil {
			return castorerr.WithPath(castorerr.KindIO, "gc.every", shardPath, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			hexDigest := shard.Name() + f.Name()
			d, err := digest.FromHex(hexDigest)
			if err != nil {
				continue
			}
			if err := fn(d, filepath.Join(shardPath, f.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Mark returns the set of digests reachable from every current
// reference, via an iterative (non-recursive) traversal.
func (c *Collector) Mark() (map[digest.Digest]struct{}, error) {
	reachable := make(map[digest.Digest]struct{})

	roots, err := c.refs.List()
	if err != nil {
		return nil, err
	}

	var stack []digest.Digest
	for _, r := range roots {
		stack = append(stack, r.Digest)
	}

	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := reachable[d]; seen {
			continue
		}

		hdr, payload, err := c.readObject(d)
		if err != nil {
			if castorerr.IsNotFound(err) {
				c.log.Warn("gc.Mark", d.Hex(), err)
				continue
			}
			return nil, err
		}
		reachable[d] = struct{}{}

		switch hdr.Type {
		case constants.TypeTree:
			entries, err := decodeTreeNames(payload)
			if err != nil {
				return nil, err
			}
			stack = append(stack, entries...)
		case constants.TypeChunkList:
			chunks, err := object.DecodeChunkList(payload)
			if err != nil {
				return nil, err
			}
			for _, ch := range chunks {
				stack = append(stack, ch.Digest)
			}
		case constants.TypeBlob:
			// leaf; no children
		}
	}
	return reachable, nil
}

// GC marks then sweeps. When dryRun is true, no files are removed but
// the result reports what would have been deleted.
//
// GC takes no lock. Callers must not run it concurrently with ingestion
// or other object writes: an object written after Mark but before it is
// referenced is swept as unreachable.
func (c *Collector) GC(dryRun bool) (Result, error) {
	reachable, err := c.Mark()
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = c.every(func(d digest.Digest, path string) error {
		if _, ok := reachable[d]; ok {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return castorerr.WithPath(castorerr.KindIO, "gc.GC", path, err)
		}
		res.ObjectsDeleted++
		res.BytesFreed += info.Size()
		if !dryRun {
			if err := os.Remove(path); err != nil {
				return castorerr.WithPath(castorerr.KindIO, "gc.GC", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if !dryRun {
		if err := c.removeEmptyShards(); err != nil {
			return Result{}, err
		}
	}

	c.log.Info("gc.GC", map[string]any{"objects_deleted": res.ObjectsDeleted, "bytes_freed": res.BytesFreed, "dry_run": dryRun}, "sweep complete")
	return res, nil
}

func (c *Collector) removeEmptyShards() error {
	root := filepath.Join(c.store.Root(), constants.ObjectsDirName, constants.AlgoName)
	shards, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return castorerr.WithPath(castorerr.KindIO, "gc.removeEmptyShards", root, err)
	}
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardPath := filepath.Join(root, shard.Name())
		files, err := os.ReadDir(shardPath)
		if err != nil {
			return castorerr.WithPath(castorerr.KindIO, "gc.removeEmptyShards", shardPath, err)
		}
		if len(files) == 0 {
			if err := os.Remove(shardPath); err != nil {
				return castorerr.WithPath(castorerr.KindIO, "gc.removeEmptyShards", shardPath, err)
			}
		}
	}
	return nil
}

// FindOrphanRoots marks, then reports every unreachable Blob or Tree
// that is not itself a child of another unreachable Tree. ChunkList
// objects are never reported.
func (c *Collector) FindOrphanRoots() ([]OrphanRoot, error) {
	reachable, err := c.Mark()
	if err != nil {
		return nil, err
	}

	type candidate struct {
		digest     digest.Digest
		kind       string
		entryCount int
		size       int64
	}
	var candidates []candidate
	childOfUnreachable := make(map[digest.Digest]struct{})

	err = c.every(func(d digest.Digest, path string) error {
		if _, ok := reachable[d]; ok {
			return nil
		}
		hdr, payload, err := c.readObject(d)
		if err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return castorerr.WithPath(castorerr.KindIO, "gc.FindOrphanRoots", path, err)
		}

		switch hdr.Type {
		case constants.TypeBlob:
			candidates = append(candidates, candidate{digest: d, kind: "Blob", size: info.Size()})
		case constants.TypeTree:
			children, err := decodeTreeNames(payload)
			if err != nil {
				return err
			}
			candidates = append(candidates, candidate{digest: d, kind: "Tree", entryCount: len(children), size: info.Size()})
			for _, ch := range children {
				childOfUnreachable[ch] = struct{}{}
			}
		case constants.TypeChunkList:
			chunks, err := object.DecodeChunkList(payload)
			if err != nil {
				return err
			}
			for _, ch := range chunks {
				childOfUnreachable[ch.Digest] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []OrphanRoot
	for _, cd := range candidates {
		if _, ok := childOfUnreachable[cd.digest]; ok {
			continue
		}
		out = append(out, OrphanRoot{Digest: cd.digest, Kind: cd.kind, EntryCount: cd.entryCount, Size: cd.size})
	}
	return out, nil
}

// readObject reads and decodes the header and raw payload of the
// object at d directly from disk, independent of store.Store's
// compression/verification-aware accessors — GC needs the raw child
// digests, not the decompressed logical content.
func (c *Collector) readObject(d digest.Digest) (object.Header, []byte, error) {
	root := filepath.Join(c.store.Root(), constants.ObjectsDirName, constants.AlgoName)
	path := filepath.Join(root, d.Prefix(), d.Suffix())

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return object.Header{}, nil, castorerr.WithDigest(castorerr.KindNotFound, "gc.readObject", d, err)
	}
	if err != nil {
		return object.Header{}, nil, castorerr.WithDigest(castorerr.KindIO, "gc.readObject", d, err)
	}
	hdr, err := object.DecodeHeader(data)
	if err != nil {
		return object.Header{}, nil, err
	}
	return hdr, data[constants.HeaderSize:], nil
}
