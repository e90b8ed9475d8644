// Package journal implements the store's append-only activity log: one
// pipe-delimited line per recorded event (pkg/ingest appends one per
// AddPath call), flushed to disk before the call that produced it
// returns.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/digest"
)

// Entry is one journal record.
type Entry struct {
	Timestamp time.Time
	Op        string
	Digest    digest.Digest
	Path      string
	Meta      string
}

// Journal is the append-only log backing one store.
type Journal struct {
	path string
}

// Open returns a Journal backed by the file at path. The file is
// created on first Append if it does not already exist.
func Open(path string) *Journal {
	return &Journal{path: path}
}

// Append writes one record and fsyncs the file before returning, so
// that an Append the caller believes succeeded always survives a
// crash — mirroring the teacher pack's append-then-Sync discipline
// for its on-disk chunk log.
func (j *Journal) Append(e Entry) error {
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return castorerr.WithPath(castorerr.KindIO, "journal.Append", j.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatEntry(e) + "\n"); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "journal.Append", j.path, err)
	}
	if err := f.Sync(); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "journal.Append", j.path, err)
	}
	return nil
}

func formatEntry(e Entry) string {
	return strings.Join([]string{
		strconv.FormatInt(e.Timestamp.Unix(), 10),
		e.Op,
		e.Digest.Hex(),
		e.Path,
		e.Meta,
	}, "|")
}

// ParseStrict parses a single journal line, failing hard on any
// malformation. ReadRecent uses it per-line but discards lines it
// rejects; callers that want a hard failure on a corrupt record (e.g.
// an audit tool) can call it directly.
func ParseStrict(line string) (Entry, error) {
	parts := strings.SplitN(line, "|", 5)
	if len(parts) != 5 {
		return Entry{}, castorerr.New(castorerr.KindInvalidDigest, "journal.ParseStrict", errFieldCount)
	}

	unixTS, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Entry{}, castorerr.New(castorerr.KindInvalidDigest, "journal.ParseStrict", fmt.Errorf("timestamp: %w", err))
	}
	ts := time.Unix(unixTS, 0).UTC()
	if parts[1] == "" {
		return Entry{}, castorerr.New(castorerr.KindInvalidDigest, "journal.ParseStrict", errEmptyOp)
	}
	d, err := digest.FromHex(parts[2])
	if err != nil {
		return Entry{}, castorerr.New(castorerr.KindInvalidDigest, "journal.ParseStrict", fmt.Errorf("digest: %w", err))
	}

	return Entry{Timestamp: ts, Op: parts[1], Digest: d, Path: parts[3], Meta: parts[4]}, nil
}

// ReadRecent returns up to the last n well-formed entries in the
// journal, in file order. Malformed lines (a torn final write, stray
// bytes) are skipped rather than treated as an error.
func (j *Journal) ReadRecent(n int) ([]Entry, error) {
	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, castorerr.WithPath(castorerr.KindIO, "journal.ReadRecent", j.path, err)
	}
	defer f.Close()

	var all []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := ParseStrict(line)
		if err != nil {
			continue
		}
		all = append(all, e)
	}
	if err := sc.Err(); err != nil {
		return nil, castorerr.WithPath(castorerr.KindIO, "journal.ReadRecent", j.path, err)
	}

	if n <= 0 || n >= len(all) {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// FindOrphans returns journal entries whose digest is absent from
// reachable, i.e. entries recording objects that garbage collection
// would (or did) sweep.
func (j *Journal) FindOrphans(reachable map[digest.Digest]struct{}) ([]Entry, error) {
	all, err := j.ReadRecent(0)
	if err != nil {
		return nil, err
	}
	var orphans []Entry
	for _, e := range all {
		if _, ok := reachable[e.Digest]; !ok {
			orphans = append(orphans, e)
		}
	}
	return orphans, nil
}
