// Package constants defines cross-cutting constants for the object
// format, directory layout, and size thresholds used throughout castor.
package constants

// Object header layout.
const (
	// ObjectMagic identifies a castor object file.
	ObjectMagic = "CAFS"

	// HeaderSize is the fixed size in bytes of every object header.
	HeaderSize = 16

	VersionLegacy  = 1
	VersionCurrent = 2
)

// Object type tags (header byte 5).
const (
	TypeBlob      = 1
	TypeTree      = 2
	TypeChunkList = 3
)

// Hash algorithm ids (header byte 6).
const (
	AlgoBLAKE3256 = 1

	// AlgoName is the directory name used under objects/ for AlgoBLAKE3256.
	AlgoName = "blake3-256"
)

// Compression tags (header byte 7).
const (
	CompressionNone = 0
	CompressionZstd = 1
)

// ChunkListEntrySize is the on-disk size of one (digest, size) pair.
const ChunkListEntrySize = 32 + 8

// Size thresholds and chunker defaults.
const (
	// ChunkThreshold is the minimum blob size that is stored as a
	// ChunkList instead of a single Blob object.
	ChunkThreshold = 1024 * 1024 // 1 MiB

	// CompressionThreshold is the minimum payload size that is
	// compressed before being written to disk.
	CompressionThreshold = 4 * 1024 // 4 KiB

	// ZstdLevel is the compression level used for all compressed objects.
	ZstdLevel = 3

	// Content-defined chunking bounds.
	ChunkerMinSize = 256 * 1024  // 256 KiB
	ChunkerAvgSize = 512 * 1024  // 512 KiB
	ChunkerMaxSize = 1024 * 1024 // 1 MiB
)

// Tree entry constraints.
const (
	MaxNameLength = 255

	EntryKindBlob = 1
	EntryKindTree = 2
)

// POSIX mode bits recorded on tree entries.
const (
	ModeRegularFile    = 0o100644
	ModeExecutableFile = 0o100755
	ModeDirectory      = 0o040755
)

// Store layout directory/file names, relative to the store root.
const (
	ConfigFileName  = "config"
	ObjectsDirName  = "objects"
	RefsDirName     = "refs"
	JournalFileName = "journal"
)

// ConfigVersion and ConfigAlgoName are the required keys/values in the
// store's config file (version=1\nalgo=blake3-256\n).
const (
	ConfigVersion  = "1"
	ConfigAlgoName = AlgoName
)
