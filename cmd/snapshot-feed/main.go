package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nickromney-org/runtime-eol-checker/internal/config"
	"github.com/nickromney-org/runtime-eol-checker/internal/eol"
)

func main() {
	tool := flag.String("tool", "node", "Tool to snapshot (node, python, go)")
	output := flag.String("output", "", "Output file (default testdata/<product>.json)")
	baseURL := flag.String("base-url", eol.DefaultBaseURL, "EOL feed base URL")
	flag.Parse()

	t, err := config.GetPredefinedTool(*tool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *output == "" {
		*output = filepath.Join("testdata", t.FeedProduct+".json")
	}

	endpoint := eol.FeedURL(*baseURL, t.FeedProduct)
	fmt.Printf("Fetching %s release cycles from %s...\n", t.Name, endpoint)

	records, err := eol.NewClient().FetchFeed(context.Background(), endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}
	file, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Wrote %d release cycles to %s\n", len(records), *output)
}
