// Package main is the medsearch CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/clinicore/medsearch/internal/config"
	"github.com/clinicore/medsearch/internal/dense"
	"github.com/clinicore/medsearch/internal/embedding"
	"github.com/clinicore/medsearch/internal/ingest"
	"github.com/clinicore/medsearch/internal/models"
	"github.com/clinicore/medsearch/internal/search"
	"github.com/clinicore/medsearch/internal/server"
	"github.com/clinicore/medsearch/internal/storage"
	"github.com/clinicore/medsearch/internal/watcher"
	"github.com/clinicore/medsearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/medsearch/config.yaml"

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "context":
		runContext()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("medsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: medsearch <command> [flags]

Commands:
  server    Start the HTTP API server (with directory watching if configured)
  ingest    Ingest a file or directory into the knowledge base
  query     Run a retrieval query and print ranked results
  context   Run a retrieval query and print the gated context block
  status    Print corpus and index statistics
  version   Print version
  help      Print this help
`)
}

// loadConfig loads the config at path, falling back to ./config.yaml when the
// default path is used and a local config exists.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				return config.Load(fallback)
			}
		}
	}
	return config.Load(path)
}

// components holds the wired retrieval engine.
type components struct {
	Storage   storage.Storage
	Embedder  embedding.Embedder
	Dense     dense.Index
	Pipeline  *ingest.Pipeline
	Retriever *search.Retriever
	Logger    *zap.Logger
}

func (c *components) Close() {
	_ = c.Dense.Close()
	_ = c.Embedder.Close()
	_ = c.Storage.Close()
	_ = c.Logger.Sync()
}

func initComponents(cfg *config.Config, debug bool) (*components, error) {
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var inner embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock", "":
		inner = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	case "onnx":
		inner, err = embedding.NewONNXEmbedder(cfg.Embedding.ModelPath, cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create onnx embedder: %w", err)
		}
	default:
		_ = store.Close()
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfiguration, cfg.Embedding.Provider)
	}
	embedder := embedding.NewCachedEmbedder(inner, cfg.Embedding.CacheSize)

	denseIdx, err := dense.New(dense.Backend(cfg.Storage.DenseBackend), cfg.Embedding.Dimensions, cfg.Storage.DenseIndexPath)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("create dense index: %w", err)
	}

	pipeline, err := ingest.NewPipeline(store, embedder, denseIdx, cfg, logger)
	if err != nil {
		_ = denseIdx.Close()
		_ = embedder.Close()
		_ = store.Close()
		return nil, err
	}
	if err := pipeline.Load(); err != nil {
		logger.Warn("restoring indexes failed", zap.Error(err))
	}
	retriever := search.NewRetriever(store, embedder, denseIdx, pipeline.Sparse(), &cfg.Search, logger)

	return &components{
		Storage:   store,
		Embedder:  embedder,
		Dense:     denseIdx,
		Pipeline:  pipeline,
		Retriever: retriever,
		Logger:    logger,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	comps, err := initComponents(cfg, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()
	logger := comps.Logger

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		w := watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				if _, err := comps.Pipeline.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
					return
				}
				comps.Retriever.SetSparse(comps.Pipeline.Sparse())
			},
			nil,
			logger,
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(comps.Retriever, comps.Pipeline, comps.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: medsearch ingest [flags] <path>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	comps, err := initComponents(cfg, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot access %s: %v\n", path, err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := comps.Pipeline.IngestDirectory(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d files from %s\n", n, path)
	} else {
		doc, err := comps.Pipeline.IngestFile(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %s (%d pages)\n", doc.Source, doc.PageCount)
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	k := fs.Int("k", 0, "number of results (0 = configured default)")
	method := fs.String("method", "", "retrieval method: dense, sparse, or hybrid (default)")
	minScore := fs.Float64("min-score", 0, "drop results with fused score below this")
	asJSON := fs.Bool("json", false, "print results as JSON")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: medsearch query [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	comps, err := initComponents(cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	req := &models.RetrieveRequest{Query: query, K: *k, Method: *method, MinScore: *minScore}
	if req.K == 0 {
		req.K = cfg.Search.TopK
	}
	results, err := comps.Retriever.Retrieve(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		_ = json.NewEncoder(os.Stdout).Encode(results)
		return
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s (page %d, offset %d) score=%.3f [%s]\n", i+1, r.Source, r.Page, r.Offset, r.FusedScore, r.Method)
		fmt.Printf("   %s\n", utils.Truncate(r.Text, 200))
	}
}

func runContext() {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	k := fs.Int("k", 0, "number of results (0 = configured default)")
	threshold := fs.Float64("threshold", 0, "sufficiency threshold (0 = configured default)")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: medsearch context [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	comps, err := initComponents(cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	req := &models.RetrieveRequest{Query: query, K: *k}
	if req.K == 0 {
		req.K = cfg.Search.TopK
	}
	th := *threshold
	if th == 0 {
		th = cfg.Search.SufficiencyThreshold
	}
	results, err := comps.Retriever.Retrieve(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	if !search.IsSufficient(results, th) {
		fmt.Fprintf(os.Stderr, "Insufficient: top score below threshold %.2f\n", th)
		os.Exit(2)
	}
	fmt.Println(search.SelectContext(results, req.K))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	comps, err := initComponents(cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	ctx := context.Background()
	docs, err := comps.Storage.CountDocuments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read storage: %v\n", err)
		os.Exit(1)
	}
	chunks, _ := comps.Storage.CountChunks(ctx)
	sp := comps.Pipeline.Sparse()
	fmt.Printf("Documents:      %d\n", docs)
	fmt.Printf("Chunks:         %d\n", chunks)
	fmt.Printf("Dense vectors:  %d\n", comps.Dense.Size())
	fmt.Printf("Sparse chunks:  %d (%d terms)\n", sp.Size(), sp.Terms())
	fmt.Printf("Embedding:      %s (%d dims)\n", cfg.Embedding.Provider, cfg.Embedding.Dimensions)
	fmt.Printf("Fusion weights: dense %.2f / sparse %.2f\n", cfg.Search.DenseWeight, cfg.Search.SparseWeight)
}
