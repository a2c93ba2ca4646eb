// Map database generator: writes the built-in maps into a SQLite file the
// server can load.
//
// Usage:
//
//	go run ./cmd/genmap -db data/map.db                # all built-in maps
//	go run ./cmd/genmap -db data/map.db map01 map02    # only the named maps
//	go run ./cmd/genmap -list                          # list available maps
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/railforge/railforge/internal/mapdb"
)

func main() {
	dbPath := flag.String("db", "data/map.db", "map database file to write")
	list := flag.Bool("list", false, "list available maps and exit")
	flag.Parse()

	if *list {
		for _, name := range mapdb.BuiltinMaps() {
			fmt.Println(name)
		}
		return
	}

	names := flag.Args()
	if len(names) == 0 {
		names = mapdb.BuiltinMaps()
	}

	if err := run(*dbPath, names); err != nil {
		fmt.Fprintf(os.Stderr, "genmap: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath string, names []string) error {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	ctx := context.Background()
	store, err := mapdb.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	defer store.Close()

	start := time.Now()
	if err := store.Generate(ctx, names...); err != nil {
		return err
	}
	fmt.Printf("generated %d map(s) into %s (%s)\n",
		len(names), dbPath, time.Since(start).Round(time.Millisecond))
	return nil
}
