// Command archivist is a thin CLI driver over coreapi.API: load .env and an
// optional config file, build the pipelines, and run one operation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"archivist/internal/config"
	"archivist/internal/coreapi"
	"archivist/internal/ingest"
	"archivist/internal/query"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "archivist: .env: %v\n", err)
	}

	var (
		configPath = flag.String("config", "", "path to a YAML config file (defaults to built-in defaults)")
		op         = flag.String("op", "query", "operation: add | change | remove | query")
		path       = flag.String("path", "", "file or directory path for add/change/remove")
		question   = flag.String("q", "", "question text for query")
	)
	flag.Parse()

	if err := run(*configPath, *op, *path, *question); err != nil {
		fmt.Fprintf(os.Stderr, "archivist: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, op, path, question string) error {
	opts := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		opts = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := coreapi.Build(ctx, opts)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	defer api.Close()

	switch op {
	case "add":
		return addPath(ctx, api, path)
	case "change":
		return changePath(ctx, api, path)
	case "remove":
		return api.Remove(ctx, path)
	case "query":
		return runQuery(ctx, api, question)
	default:
		return fmt.Errorf("unknown -op %q (want add|change|remove|query)", op)
	}
}

func addPath(ctx context.Context, api *coreapi.API, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return api.AddTree(ctx, path)
	}
	return api.Add(ctx, fileFromDisk(path, info))
}

func changePath(ctx context.Context, api *coreapi.API, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return api.Change(ctx, fileFromDisk(path, info))
}

func fileFromDisk(path string, info os.FileInfo) ingest.File {
	data, err := os.ReadFile(path)
	if err != nil {
		data = nil
	}
	return ingest.File{Path: path, Data: data, Mtime: info.ModTime().Unix()}
}

func runQuery(ctx context.Context, api *coreapi.API, question string) error {
	if question == "" {
		return fmt.Errorf("-q is required for -op query")
	}
	result, err := api.Query(ctx, question)
	if err != nil {
		return err
	}
	if result.IsRejected {
		fmt.Printf("Query rejected: %s\n", result.RejectionReason)
		return nil
	}
	fmt.Print(query.Render(result))
	return nil
}
