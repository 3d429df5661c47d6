package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vegarwe/skistart-lockedup/internal/journal"
)

func main() {
	defaultPath := os.Getenv("LU_JOURNAL_PATH")
	if defaultPath == "" {
		defaultPath = "./data/journal.db"
	}
	dbPath := flag.String("db", defaultPath, "path to the journal database")
	limit := flag.Int("n", 20, "number of newest entries to show")
	flag.Parse()

	j, err := journal.Open(*dbPath, slog.Default())
	if err != nil {
		slog.Error("failed to open journal", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer j.Close()

	ctx := context.Background()
	tables, err := j.Tables(ctx)
	if err != nil {
		slog.Error("failed to list tables", "error", err)
		os.Exit(1)
	}
	fmt.Println("Tables:")
	for _, name := range tables {
		fmt.Println(" -", name)
	}

	n, err := j.Count(ctx)
	if err != nil {
		slog.Error("failed to count entries", "error", err)
		os.Exit(1)
	}
	fmt.Println("Entries:", n)

	entries, err := j.Recent(ctx, *limit)
	if err != nil {
		slog.Error("failed to read entries", "error", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.At.Local().Format("2006-01-02 15:04:05"), e.Entry)
	}
}
