// Package main implements the castor command-line tool: a thin
// dispatcher over the store/ingest/gc/refs/journal packages.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/castorfs/castor/internal/obslog"
	"github.com/castorfs/castor/pkg/digest"
	"github.com/castorfs/castor/pkg/gc"
	"github.com/castorfs/castor/pkg/ingest"
	"github.com/castorfs/castor/pkg/journal"
	"github.com/castorfs/castor/pkg/refs"
	"github.com/castorfs/castor/pkg/store"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version", "--version", "-v":
		fmt.Printf("castor %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	case "init":
		err = initCommand()
	case "put":
		err = putCommand()
	case "get":
		err = getCommand()
	case "ingest":
		err = ingestCommand()
	case "materialize":
		err = materializeCommand()
	case "ref":
		err = refCommand()
	case "gc":
		err = gcCommand()
	case "orphans":
		err = orphansCommand()
	case "journal":
		err = journalCommand()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`castor v%s - content-addressed file store

Usage:
  castor <command> [arguments]

Commands:
  init <root>                         Initialize a store at root
  put <root> <file>                   Store a file, print its digest
  get <root> <digest> <outfile>       Retrieve a blob by digest
  ingest <root> <path>                Ingest a file or directory tree
  materialize <root> <digest> <dest>  Write an object graph back to disk
  ref add <root> <name> <digest>      Add/update a reference
  ref get <root> <name>               Print a reference's current digest
  ref list <root>                     List all references
  ref remove <root> <name>            Remove a reference
  gc <root> [--dry-run]               Mark-sweep garbage collect
  orphans <root>                      Report unreferenced orphan roots
  journal <root> [n]                  Print the last n journal entries
  version                             Show version information
  help                                Show this help message
`, version)
}

func openStore(root string) (*store.Store, error) {
	return store.Open(root, store.DefaultConfig(), obslog.Default())
}

func initCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: castor init <root>")
	}
	root := os.Args[2]
	if _, err := store.Init(root, store.DefaultConfig(), obslog.Default()); err != nil {
		return err
	}
	fmt.Printf("Initialized store at %s\n", root)
	return nil
}

func putCommand() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: castor put <root> <file>")
	}
	root, path := os.Args[2], os.Args[3]

	s, err := openStore(root)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h, err := s.PutBlob(f)
	if err != nil {
		return err
	}
	fmt.Println(h.Hex())
	return nil
}

func getCommand() error {
	if len(os.Args) < 5 {
		return fmt.Errorf("usage: castor get <root> <digest> <outfile>")
	}
	root, hexDigest, outPath := os.Args[2], os.Args[3], os.Args[4]

	s, err := openStore(root)
	if err != nil {
		return err
	}
	h, err := digest.FromHex(hexDigest)
	if err != nil {
		return err
	}
	data, err := s.GetBlob(h)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

func ingestCommand() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: castor ingest <root> <path>")
	}
	root, path := os.Args[2], os.Args[3]

	s, err := openStore(root)
	if err != nil {
		return err
	}
	j := journal.Open(s.JournalPath())
	ing := ingest.New(s, nil, j, obslog.Default())

	h, err := ing.AddPath(path)
	if err != nil {
		return err
	}
	fmt.Println(h.Hex())
	return nil
}

func materializeCommand() error {
	if len(os.Args) < 5 {
		return fmt.Errorf("usage: castor materialize <root> <digest> <dest>")
	}
	root, hexDigest, dest := os.Args[2], os.Args[3], os.Args[4]

	s, err := openStore(root)
	if err != nil {
		return err
	}
	h, err := digest.FromHex(hexDigest)
	if err != nil {
		return err
	}
	return s.Materialize(h, dest)
}

func refCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: castor ref <add|get|list|remove> <root> [args...]")
	}
	sub := os.Args[2]
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: castor ref %s <root> [args...]", sub)
	}
	rs := refs.New(filepath.Join(os.Args[3], "refs"))

	switch sub {
	case "add":
		if len(os.Args) < 6 {
			return fmt.Errorf("usage: castor ref add <root> <name> <digest>")
		}
		h, err := digest.FromHex(os.Args[5])
		if err != nil {
			return err
		}
		return rs.Add(os.Args[4], h)

	case "get":
		if len(os.Args) < 5 {
			return fmt.Errorf("usage: castor ref get <root> <name>")
		}
		h, ok, err := rs.Get(os.Args[4])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reference %q not found", os.Args[4])
		}
		fmt.Println(h.Hex())
		return nil

	case "list":
		entries, err := rs.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s\t%s\n", e.Name, e.Digest.Hex())
		}
		return nil

	case "remove":
		if len(os.Args) < 5 {
			return fmt.Errorf("usage: castor ref remove <root> <name>")
		}
		return rs.Remove(os.Args[4])

	default:
		return fmt.Errorf("unknown ref subcommand: %s", sub)
	}
}

func gcCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: castor gc <root> [--dry-run]")
	}
	root := os.Args[2]
	dryRun := len(os.Args) > 3 && os.Args[3] == "--dry-run"

	s, err := openStore(root)
	if err != nil {
		return err
	}
	rs := refs.New(filepath.Join(root, "refs"))
	c := gc.New(s, rs, obslog.Default())

	res, err := c.GC(dryRun)
	if err != nil {
		return err
	}
	fmt.Printf("objects_deleted=%d bytes_freed=%d dry_run=%v\n", res.ObjectsDeleted, res.BytesFreed, dryRun)
	return nil
}

func orphansCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: castor orphans <root>")
	}
	root := os.Args[2]

	s, err := openStore(root)
	if err != nil {
		return err
	}
	rs := refs.New(filepath.Join(root, "refs"))
	c := gc.New(s, rs, obslog.Default())

	orphans, err := c.FindOrphanRoots()
	if err != nil {
		return err
	}
	for _, o := range orphans {
		fmt.Printf("%s\t%s\tentries=%d\tsize=%d\n", o.Digest.Hex(), o.Kind, o.EntryCount, o.Size)
	}
	return nil
}

func journalCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: castor journal <root> [n]")
	}
	root := os.Args[2]
	n := 20
	if len(os.Args) > 3 {
		if _, err := fmt.Sscanf(os.Args[3], "%d", &n); err != nil {
			return fmt.Errorf("invalid count: %s", os.Args[3])
		}
	}

	j := journal.Open(filepath.Join(root, "journal"))
	entries, err := j.ReadRecent(n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Op, e.Digest.Hex(), e.Path, e.Meta)
	}
	return nil
}
