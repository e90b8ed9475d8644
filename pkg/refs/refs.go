// Package refs implements the store's reference directory: small
// files under refs/<name> holding a history of digests, one hex line
// per update, where the last well-formed line is the current value.
package refs

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/digest"
)

// Store is a directory of named references rooted at root.
type Store struct {
	root string
}

// New returns a Store rooted at root (the store's refs/ directory).
func New(root string) *Store {
	return &Store{root: root}
}

// RefEntry is one named reference and its current digest.
type RefEntry struct {
	Name   string
	Digest digest.Digest
}

func validateName(name string) error {
	if name == "" {
		return castorerr.New(castorerr.KindInvalidRefName, "refs.validateName", errEmptyRefName)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return castorerr.New(castorerr.KindInvalidRefName, "refs.validateName", errBadRefName)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, name)
}

// Add records d as the new value of name, preserving prior values in
// the file's history. Updating a reference never overwrites or
// truncates the file; it only appends.
func (s *Store) Add(name string, d digest.Digest) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "refs.Add", s.root, err)
	}

	f, err := os.OpenFile(s.path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return castorerr.WithPath(castorerr.KindIO, "refs.Add", name, err)
	}
	defer f.Close()

	if _, err := f.WriteString(d.Hex() + "\n"); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "refs.Add", name, err)
	}
	if err := f.Sync(); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "refs.Add", name, err)
	}
	return nil
}

// Get returns the current (last well-formed) digest for name. The
// bool is false if the reference does not exist; malformed trailing
// lines are skipped rather than treated as an error, so a torn final
// write does not lose the last good value.
func (s *Store) Get(name string) (digest.Digest, bool, error) {
	if err := validateName(name); err != nil {
		return digest.Digest{}, false, err
	}

	f, err := os.Open(s.path(name))
	if os.IsNotExist(err) {
		return digest.Digest{}, false, nil
	}
	if err != nil {
		return digest.Digest{}, false, castorerr.WithPath(castorerr.KindIO, "refs.Get", name, err)
	}
	defer f.Close()

	var found digest.Digest
	var ok bool
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d, err := digest.FromHex(line)
		if err != nil {
			continue
		}
		found, ok = d, true
	}
	if err := sc.Err(); err != nil {
		return digest.Digest{}, false, castorerr.WithPath(castorerr.KindIO, "refs.Get", name, err)
	}
	if !ok {
		return digest.Digest{}, false, nil
	}
	return found, true, nil
}

// List returns every reference in the store, sorted by name.
func (s *Store) List() ([]RefEntry, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, castorerr.WithPath(castorerr.KindIO, "refs.List", s.root, err)
	}

	var out []RefEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d, ok, err := s.Get(e.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, RefEntry{Name: e.Name(), Digest: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes a reference entirely. It returns a KindRefNotFound
// error if the reference does not exist.
func (s *Store) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return castorerr.WithPath(castorerr.KindRefNotFound, "refs.Remove", name, err)
	}
	if err != nil {
		return castorerr.WithPath(castorerr.KindIO, "refs.Remove", name, err)
	}
	return nil
}
