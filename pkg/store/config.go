package store

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/castorfs/castor/pkg/castorerr"
	"github.com/castorfs/castor/pkg/constants"
)

// Config bounds runtime-tunable thresholds. The defaults match the
// required on-disk behavior exactly; fields exist (rather than
// hardcoded literals) so tests can exercise the thresholds directly.
type Config struct {
	ChunkThreshold       int64
	CompressionThreshold int64
	ZstdLevel            int
}

// DefaultConfig returns the store's mandated thresholds: 1 MiB chunk
// threshold, 4 KiB compression threshold, zstd level 3.
func DefaultConfig() Config {
	return Config{
		ChunkThreshold:       constants.ChunkThreshold,
		CompressionThreshold: constants.CompressionThreshold,
		ZstdLevel:            constants.ZstdLevel,
	}
}

func configPath(root string) string  { return filepath.Join(root, constants.ConfigFileName) }
func objectsRoot(root string) string { return filepath.Join(root, constants.ObjectsDirName, constants.AlgoName) }
func refsRoot(root string) string    { return filepath.Join(root, constants.RefsDirName) }
func journalPath(root string) string { return filepath.Join(root, constants.JournalFileName) }

// writeConfigIfAbsent writes the required config file contents unless
// one already exists, satisfying the idempotence invariant: Init never
// silently overwrites an existing config.
func writeConfigIfAbsent(root string) error {
	path := configPath(root)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return castorerr.WithPath(castorerr.KindIO, "store.writeConfigIfAbsent", path, err)
	}
	defer f.Close()

	content := "version=" + constants.ConfigVersion + "\nalgo=" + constants.ConfigAlgoName + "\n"
	if _, err := f.WriteString(content); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "store.writeConfigIfAbsent", path, err)
	}
	if err := f.Sync(); err != nil {
		return castorerr.WithPath(castorerr.KindIO, "store.writeConfigIfAbsent", path, err)
	}
	return nil
}

// parseConfig parses key=value lines, ignoring blanks and #-comments.
func parseConfig(data []byte) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// readAndValidateConfig loads root's config file and ensures it
// carries the required version and algorithm keys.
func readAndValidateConfig(root string) error {
	path := configPath(root)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return castorerr.WithPath(castorerr.KindInvalidStore, "store.Open", path, errMissingConfig)
	}
	if err != nil {
		return castorerr.WithPath(castorerr.KindIO, "store.Open", path, err)
	}

	kv := parseConfig(data)
	if kv["version"] != constants.ConfigVersion {
		return castorerr.WithPath(castorerr.KindInvalidStore, "store.Open", path, errUnsupportedConfigVersion)
	}
	if kv["algo"] != constants.ConfigAlgoName {
		return castorerr.WithPath(castorerr.KindInvalidStore, "store.Open", path, errUnsupportedConfigAlgo)
	}
	return nil
}
