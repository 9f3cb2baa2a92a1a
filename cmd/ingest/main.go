// ingest parses a GL export or monthly P&L spreadsheet locally and prints the
// result as JSON, without touching a database. Useful for checking whether a
// client file will make it through the pipeline before uploading it.
//
// Usage:
//
//	go run ./cmd/ingest -file ledger.xlsx
//	go run ./cmd/ingest -file pl.csv -type pl
//	go run ./cmd/ingest -file partial.csv -no-validate
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"diligence-backend/internal/ingest"
)

func main() {
	var (
		path       = flag.String("file", "", "path to the spreadsheet to parse")
		fileType   = flag.String("type", "gl", "file type: gl or pl")
		noValidate = flag.Bool("no-validate", false, "skip the trial balance check (gl only)")
		full       = flag.Bool("full", false, "print parsed rows, not just the summary")
	)
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	content, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read %s: %v", *path, err)
	}

	cfg := ingest.DefaultConfig()

	switch *fileType {
	case "gl":
		result, err := ingest.ProcessGLFile(content, "local", "local", *path, !*noValidate, cfg)
		if err != nil {
			log.Fatalf("parse failed: %v", err)
		}
		if *full {
			printJSON(result)
		} else {
			printJSON(result.Stats)
		}
		fmt.Fprintf(os.Stderr, "parsed %d of %d rows\n", result.Stats.RowsProcessed, result.Stats.RowsRead)

	case "pl":
		result, err := ingest.ParsePLFile(content, *path, cfg)
		if err != nil {
			log.Fatalf("parse failed: %v", err)
		}
		printJSON(result)
		fmt.Fprintf(os.Stderr, "found %d periods and %d line items\n", len(result.Periods), len(result.LineItems))

	default:
		log.Fatalf("unknown -type %q, want gl or pl", *fileType)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("encode output: %v", err)
	}
}
