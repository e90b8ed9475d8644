// Package store implements the content-addressed object store: the
// directory layout, atomic object writes, blob chunking and
// compression, and tree/blob materialization back to the filesystem.
package store

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/klauspost/compress/zstd"

	"github.com/castorfs/castor/internal/obslog"
	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/chunker"
	"github.com/castorfs/castor/pkg/constants"
	"github.com/castorfs/castor/pkg/digest"
	"github.com/castorfs/castor/pkg/object"
	"github.com/castorfs/castor/pkg/tree"
)

// Store is an open content-addressed object store rooted at a
// directory on disk.
type Store struct {
	root string
	cfg  Config
	log  obslog.Logger
}

// Init creates a fresh store layout at root: the objects and refs
// directories (idempotently) and the config file (only if absent — an
// existing config is never silently overwritten).
func Init(root string, cfg Config, log obslog.Logger) (*Store, error) {
	for _, dir := range []string{root, objectsRoot(root), refsRoot(root)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, castorerr.WithPath(castorerr.KindIO, "store.Init", dir, err)
		}
	}
	if err := writeConfigIfAbsent(root); err != nil {
		return nil, err
	}
	log.Info("store.Init", map[string]any{"root": root}, "store initialized")
	return &Store{root: root, cfg: cfg, log: log}, nil
}

// Open validates an existing store layout at root and returns a
// handle to it.
func Open(root string, cfg Config, log obslog.Logger) (*Store, error) {
	if err := readAndValidateConfig(root); err != nil {
		return nil, err
	}
	for _, dir := range []string{objectsRoot(root), refsRoot(root)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, castorerr.WithPath(castorerr.KindInvalidStore, "store.Open", dir, errMissingLayout)
		}
	}
	return &Store{root: root, cfg: cfg, log: log}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// JournalPath returns the path to the store's journal file.
func (s *Store) JournalPath() string { return journalPath(s.root) }

// RefsRoot returns the path to the store's refs directory.
func (s *Store) RefsRoot() string { return refsRoot(s.root) }

func (s *Store) objectPath(d digest.Digest) string {
	return filepath.Join(objectsRoot(s.root), d.Prefix(), d.Suffix())
}

func objectExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeObjectAtomic writes buf to path via a same-directory temp file
// and rename, so a reader never observes a partially written object.
func writeObjectAtomic(path string, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "store.writeObjectAtomic", filepath.Dir(path), err)
	}
	t, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return castorerr.WithPath(castorerr.KindIO, "store.writeObjectAtomic", path, err)
	}
	defer t.Cleanup()

	if _, err := t.Write(buf); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "store.writeObjectAtomic", path, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "store.writeObjectAtomic", path, err)
	}
	return nil
}

func zstdEncoder(level int) (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
}

func zstdCompress(data []byte, level int) ([]byte, error) {
	enc, err := zstdEncoder(level)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// putSingleBlob writes payload as a single Blob object, compressing it
// when it meets the compression threshold, and deduplicating against
// an existing object at the same digest.
func (s *Store) putSingleBlob(payload []byte) (digest.Digest, error) {
	h := digest.Hash(payload)
	path := s.objectPath(h)
	if objectExists(path) {
		return h, nil
	}

	compression := byte(constants.CompressionNone)
	body := payload
	if int64(len(payload)) >= s.cfg.CompressionThreshold {
		compressed, err := zstdCompress(payload, s.cfg.ZstdLevel)
		if err != nil {
			return digest.Digest{}, castorerr.WithDigest(castorerr.KindCompression, "store.putSingleBlob", h, err)
		}
		compression = constants.CompressionZstd
		body = compressed
	}

	header := object.Header{
		Version:     constants.VersionCurrent,
		Type:        constants.TypeBlob,
		Algo:        constants.AlgoBLAKE3256,
		Compression: compression,
		PayloadLen:  uint64(len(body)),
	}
	buf := append(object.EncodeHeader(header), body...)
	if err := writeObjectAtomic(path, buf); err != nil {
		return digest.Digest{}, err
	}
	s.log.Debugf("store.PutBlob", h, "wrote single blob (%d bytes, compression=%d)", len(body), compression)
	return h, nil
}

// PutBlob stores the bytes read from r as a content-addressed blob,
// chunking the payload when it meets the chunk threshold.
func (s *Store) PutBlob(r io.Reader) (digest.Digest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return digest.Digest{}, castorerr.New(castorerr.KindIO, "store.PutBlob", err)
	}

	if int64(len(data)) < s.cfg.ChunkThreshold {
		return s.putSingleBlob(data)
	}

	pieces, err := chunker.Split(data, chunker.DefaultConfig())
	if err != nil {
		return digest.Digest{}, castorerr.New(castorerr.KindIO, "store.PutBlob", err)
	}

	entries := make([]object.ChunkEntry, 0, len(pieces))
	for _, p := range pieces {
		if _, err := s.putSingleBlob(p.Data); err != nil {
			return digest.Digest{}, err
		}
		entries = append(entries, object.ChunkEntry{Digest: p.Digest, Size: uint64(len(p.Data))})
	}

	fileHash := digest.Hash(data)
	path := s.objectPath(fileHash)
	if objectExists(path) {
		return fileHash, nil
	}

	payload := object.EncodeChunkList(entries)
	header := object.Header{
		Version:     constants.VersionCurrent,
		Type:        constants.TypeChunkList,
		Algo:        constants.AlgoBLAKE3256,
		Compression: constants.CompressionNone,
		PayloadLen:  uint64(len(payload)),
	}
	buf := append(object.EncodeHeader(header), payload...)
	if err := writeObjectAtomic(path, buf); err != nil {
		return digest.Digest{}, err
	}
	s.log.Debugf("store.PutBlob", fileHash, "wrote chunk list (%d chunks)", len(entries))
	return fileHash, nil
}

// readObject reads and decodes the header of the object at h,
// returning the header and the raw (possibly compressed) on-disk
// payload bytes.
func (s *Store) readObject(h digest.Digest) (object.Header, []byte, error) {
	path := s.objectPath(h)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return object.Header{}, nil, castorerr.WithDigest(castorerr.KindNotFound, "store.readObject", h, err)
	}
	if err != nil {
		return object.Header{}, nil, castorerr.WithDigest(castorerr.KindIO, "store.readObject", h, err)
	}

	hdr, err := object.DecodeHeader(data)
	if err != nil {
		return object.Header{}, nil, err
	}
	want := constants.HeaderSize + int(hdr.PayloadLen)
	if len(data) != want {
		return object.Header{}, nil, castorerr.WithDigest(castorerr.KindCorrupted, "store.readObject", h, errPayloadLengthMismatch)
	}
	return hdr, data[constants.HeaderSize:], nil
}

// GetBlob retrieves and verifies the blob (single or chunked) stored
// under digest h.
func (s *Store) GetBlob(h digest.Digest) ([]byte, error) {
	hdr, raw, err := s.readObject(h)
	if err != nil {
		return nil, err
	}

	switch hdr.Type {
	case constants.TypeBlob:
		payload := raw
		if hdr.Compression == constants.CompressionZstd {
			payload, err = zstdDecompress(raw)
			if err != nil {
				return nil, castorerr.WithDigest(castorerr.KindCompression, "store.GetBlob", h, err)
			}
		}
		if digest.Hash(payload) != h {
			return nil, castorerr.WithDigest(castorerr.KindCorrupted, "store.GetBlob", h, errDigestMismatch)
		}
		return payload, nil

	case constants.TypeChunkList:
		chunks, err := object.DecodeChunkList(raw)
		if err != nil {
			return nil, err
		}
		var out []byte
		for _, c := range chunks {
			piece, err := s.GetBlob(c.Digest)
			if err != nil {
				return nil, err
			}
			if uint64(len(piece)) != c.Size {
				return nil, castorerr.WithDigest(castorerr.KindCorrupted, "store.GetBlob", c.Digest, errChunkSizeMismatch)
			}
			out = append(out, piece...)
		}
		if digest.Hash(out) != h {
			return nil, castorerr.WithDigest(castorerr.KindCorrupted, "store.GetBlob", h, errDigestMismatch)
		}
		return out, nil

	default:
		return nil, castorerr.WithDigest(castorerr.KindInvalidType, "store.GetBlob", h, errNotABlob)
	}
}

// PutTree canonicalizes and stores entries as a Tree object.
func (s *Store) PutTree(entries []tree.Entry) (digest.Digest, error) {
	payload, err := tree.Encode(entries)
	if err != nil {
		return digest.Digest{}, err
	}
	h := digest.Hash(payload)
	path := s.objectPath(h)
	if objectExists(path) {
		return h, nil
	}

	header := object.Header{
		Version:     constants.VersionCurrent,
		Type:        constants.TypeTree,
		Algo:        constants.AlgoBLAKE3256,
		Compression: constants.CompressionNone,
		PayloadLen:  uint64(len(payload)),
	}
	buf := append(object.EncodeHeader(header), payload...)
	if err := writeObjectAtomic(path, buf); err != nil {
		return digest.Digest{}, err
	}
	s.log.Debugf("store.PutTree", h, "wrote tree (%d entries)", len(entries))
	return h, nil
}

// GetTree retrieves and decodes the tree stored under digest h.
func (s *Store) GetTree(h digest.Digest) ([]tree.Entry, error) {
	hdr, raw, err := s.readObject(h)
	if err != nil {
		return nil, err
	}
	if hdr.Type != constants.TypeTree {
		return nil, castorerr.WithDigest(castorerr.KindInvalidType, "store.GetTree", h, errNotATree)
	}
	if digest.Hash(raw) != h {
		return nil, castorerr.WithDigest(castorerr.KindCorrupted, "store.GetTree", h, errDigestMismatch)
	}
	return tree.Decode(raw)
}

// ObjectSize returns the on-disk size in bytes of the object stored
// under h, used by GC and orphan analysis for reporting.
func (s *Store) ObjectSize(h digest.Digest) (int64, error) {
	info, err := os.Stat(s.objectPath(h))
	if os.IsNotExist(err) {
		return 0, castorerr.WithDigest(castorerr.KindNotFound, "store.ObjectSize", h, err)
	}
	if err != nil {
		return 0, castorerr.WithDigest(castorerr.KindIO, "store.ObjectSize", h, err)
	}
	return info.Size(), nil
}

// Materialize writes the object graph rooted at h to dest, which must
// not already exist. Blobs and chunk-lists become files; trees become
// directories whose blob-entry children have their recorded mode
// applied. Subdirectory mode bits are not explicitly restored beyond
// directory-creation defaults.
func (s *Store) Materialize(h digest.Digest, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return castorerr.WithPath(castorerr.KindPathExists, "store.Materialize", dest, errDestExists)
	} else if !os.IsNotExist(err) {
		return castorerr.WithPath(castorerr.KindIO, "store.Materialize", dest, err)
	}

	hdr, _, err := s.readObject(h)
	if err != nil {
		return err
	}

	switch hdr.Type {
	case constants.TypeBlob, constants.TypeChunkList:
		data, err := s.GetBlob(h)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return castorerr.WithPath(castorerr.KindIO, "store.Materialize", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return castorerr.WithPath(castorerr.KindIO, "store.Materialize", dest, err)
		}
		return nil

	case constants.TypeTree:
		entries, err := s.GetTree(h)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return castorerr.WithPath(castorerr.KindIO, "store.Materialize", dest, err)
		}
		for _, e := range entries {
			childDest := filepath.Join(dest, e.Name)
			if err := s.Materialize(e.Digest, childDest); err != nil {
				return err
			}
			if e.Kind == tree.KindBlob {
				if err := os.Chmod(childDest, os.FileMode(e.Mode)&0o777); err != nil {
					return castorerr.WithPath(castorerr.KindIO, "store.Materialize", childDest, err)
				}
			}
		}
		return nil

	default:
		return castorerr.WithDigest(castorerr.KindInvalidType, "store.Materialize", h, errUnknownObjectType)
	}
}
