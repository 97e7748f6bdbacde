// Package main is the zkrag CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/circuit"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/cli"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/config"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/embedding"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/extract"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/indexer"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/metrics"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/models"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/server"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/vector"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/vectorstore"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/watcher"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/zkrag/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present, and a missing default file falls
// back to built-in defaults. Returns the config and the path actually loaded
// (empty for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches a sub-command and returns the process exit code. Sub-commands
// must not call os.Exit.
func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}
	command, rest := args[0], args[1:]
	switch command {
	case "server":
		return runServer(rest)
	case "index":
		return runIndex(rest)
	case "search":
		return runSearch(rest)
	case "evaluate":
		return runEvaluate(rest)
	case "status":
		return runStatus(rest)
	case "version", "--version", "-v":
		fmt.Printf("zkrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		return 1
	}
	return 0
}

// setup loads config, builds a logger and opens every component.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, *Components, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, logger, components, nil
}

func runServer(args []string) int {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, logger, components, err := setup(*configPath, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer logger.Sync()
	defer components.Close()

	srv := server.NewServer(
		components.Store,
		components.Pipeline,
		components.Embedder,
		cfg,
		logger,
		server.WithMetrics(components.Metrics),
		server.WithProver(components.Prover),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if len(cfg.Watch.Directories) > 0 {
		inbox := newInboxWatcher(cfg, components.Pipeline, logger)
		if err := inbox.Start(watchCtx); err != nil {
			logger.Error("Failed to watch inbox directories", zap.Error(err))
			return 1
		}
		defer inbox.Stop()
		if cfg.Watch.SyncExisting {
			go inbox.SyncExistingFiles(watchCtx)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return 1
	}
	return 0
}

func runIndex(args []string) int {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	provider := fs.String("provider", "", "provider recorded in each chunk's metadata")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: zkrag index [flags] <file-or-directory>")
		return 1
	}
	path := fs.Arg(0)

	cfg, logger, components, err := setup(*configPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		return 1
	}
	if info.IsDir() {
		n, err := components.Pipeline.IngestDirectory(ctx, path, cfg.Chunking.Extensions, indexer.WithProvider(*provider))
		if err != nil {
			fmt.Printf("Indexing directory failed: %v\n", err)
			return 1
		}
		fmt.Printf("Indexed %d file(s) from %s\n", n, path)
		return 0
	}
	ids, err := indexFile(ctx, components.Pipeline, path, *provider)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		return 1
	}
	fmt.Printf("Indexed %d chunk(s) from %s\n", len(ids), path)
	return 0
}

// newInboxWatcher ingests files dropped into the configured watch directories.
func newInboxWatcher(cfg *config.Config, p *indexer.Pipeline, logger *zap.Logger) *watcher.Watcher {
	exts := cfg.Chunking.Extensions
	return watcher.New(cfg.Watch.Directories,
		func(ctx context.Context, path string) error {
			_, err := p.IngestFile(ctx, path, exts)
			return err
		},
		watcher.WithLogger(logger.Named("watcher")),
		watcher.WithExtensions(exts),
		watcher.WithRecursive(cfg.Watch.Recursive),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond),
	)
}

// indexFile ingests a single file without an extension filter. Text still
// goes through the pipeline's extractor.
func indexFile(ctx context.Context, p *indexer.Pipeline, path, provider string) ([]models.RecordID, error) {
	return p.IngestFile(ctx, path, nil, indexer.WithProvider(provider))
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: zkrag search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  zkrag search transfer restrictions
  zkrag search --limit 3 "transfer restrictions"
  zkrag search --server "" --output json fund units   # direct storage, JSON output
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(args))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		printSearchUsage(fs)
		return 1
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var out *cli.SearchOutput
	if *serverURL != "" {
		out = &cli.SearchOutput{}
		if err := postJSON(*serverURL+"/api/v1/search", map[string]interface{}{"query": query, "limit": *limit}, out); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			return 1
		}
		out.Query = query
	} else {
		cfg, logger, components, err := setup(*configPath, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			return 1
		}
		defer logger.Sync()
		defer components.Close()
		n := *limit
		if n <= 0 {
			n = cfg.Search.DefaultLimit
		}
		out, err = searchDirect(context.Background(), components, query, n)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			return 1
		}
	}
	if err := cli.WriteSearch(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func searchDirect(ctx context.Context, c *Components, query string, limit int) (*cli.SearchOutput, error) {
	start := time.Now()
	vec, err := c.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := c.Store.SearchHits(ctx, vec, limit)
	if err != nil {
		return nil, err
	}
	return &cli.SearchOutput{Query: query, Hits: hits, TookMs: time.Since(start).Milliseconds()}, nil
}

func runEvaluate(args []string) int {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	threshold := fs.Float64("threshold", float64(config.DefaultThreshold), "relevance threshold (default from config)")
	prove := fs.Bool("prove", false, "run the prover and attach a receipt")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(args))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: zkrag evaluate [flags] <query>")
		return 1
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	thresholdSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			thresholdSet = true
		}
	})

	out := &cli.EvaluationOutput{}
	if *serverURL != "" {
		body := map[string]interface{}{"query": query, "prove": *prove}
		if thresholdSet {
			body["threshold"] = float32(*threshold)
		}
		if err := postJSON(*serverURL+"/api/v1/evaluate", body, out); err != nil {
			fmt.Fprintf(os.Stderr, "Evaluate failed: %v\n", err)
			return 1
		}
	} else {
		cfg, logger, components, err := setup(*configPath, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			return 1
		}
		defer logger.Sync()
		defer components.Close()
		t := cfg.Relevance.ThresholdOrDefault()
		if thresholdSet {
			t = float32(*threshold)
		}
		out, err = evaluateDirect(context.Background(), components, query, t, *prove)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Evaluate failed: %v\n", err)
			return 1
		}
	}
	if err := cli.WriteEvaluation(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

// evaluateDirect decides the relevance of the chunk nearest to query and,
// when prove is set, checks the prover commits to the same journal.
func evaluateDirect(ctx context.Context, c *Components, query string, threshold float32, prove bool) (*cli.EvaluationOutput, error) {
	vec, err := c.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hit, result, err := c.Store.Evaluate(ctx, vec, threshold)
	if err != nil {
		return nil, err
	}
	out := &cli.EvaluationOutput{
		Result:  result,
		Journal: fmt.Sprintf("%x", result.Journal()),
		Hit:     &hit,
	}
	if !prove {
		return out, nil
	}
	candidate, err := c.Store.GetVector(ctx, hit.ID)
	if err != nil {
		return nil, err
	}
	receipt, err := c.Prover.Prove(ctx, circuit.Inputs{
		Query:        vec,
		Candidate:    candidate,
		Threshold:    threshold,
		DocumentHash: result.DocumentHash,
	})
	if err != nil {
		return nil, err
	}
	if err := circuit.VerifyJournal(receipt, result); err != nil {
		return nil, err
	}
	out.Receipt = &cli.Receipt{ID: receipt.ID.String(), Journal: receipt.JournalHex()}
	out.Hit.Chunk = out.Hit.Chunk.WithProofID(out.Receipt.ID)
	return out, nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	status := &cli.StatusOutput{}
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			return 1
		}
	} else {
		cfg, logger, components, err := setup(*configPath, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			return 1
		}
		defer logger.Sync()
		defer components.Close()
		status, err = statusDirect(context.Background(), cfg, components)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			return 1
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func statusDirect(ctx context.Context, cfg *config.Config, c *Components) (*cli.StatusOutput, error) {
	stats, err := c.Store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &cli.StatusOutput{
		IndexSize:      stats.IndexSize,
		Records:        stats.Records,
		Dimensions:     stats.Dimensions,
		DiskUsageBytes: stats.DiskBytes,
		Config: &cli.StatusConfig{
			StorageBackend: cfg.Storage.Backend,
			StoragePath:    stats.Path,
			Normalize:      cfg.Index.NormalizeOrDefault(),
			M:              cfg.Index.M,
			EfSearch:       cfg.Index.EfSearch,
			ChunkSize:      cfg.Chunking.ChunkSize,
			ChunkOverlap:   cfg.Chunking.ChunkOverlap,
			Threshold:      cfg.Relevance.ThresholdOrDefault(),
			ProverEnabled:  c.Prover != nil,
		},
	}, nil
}

func postJSON(url string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, out)
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Store    *vectorstore.Store
	Embedder embedding.Embedder
	Pipeline *indexer.Pipeline
	Metrics  *metrics.Metrics
	Prover   circuit.Prover
}

// Close releases the store and the embedder.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// indexConfig maps the index section of cfg onto HNSW parameters.
func indexConfig(cfg *config.Config) vector.Config {
	return vector.Config{
		Dimensions:     cfg.Embedding.Dimensions,
		MaxElements:    cfg.Index.MaxElements,
		M:              cfg.Index.M,
		MaxLayers:      cfg.Index.MaxLayers,
		EfConstruction: cfg.Index.EfConstruction,
		EfSearch:       cfg.Index.EfSearch,
		Seed:           cfg.Index.Seed,
		Normalize:      cfg.Index.NormalizeOrDefault(),
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	m := metrics.New()
	store, err := vectorstore.Open(ctx, vectorstore.Config{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Index:   indexConfig(cfg),
	}, vectorstore.WithLogger(logger), vectorstore.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	embedder := embedding.NewCachedEmbedder(embedding.NewHashEmbedder(cfg.Embedding.Dimensions), cfg.Embedding.CacheSize)
	chunker := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	pipeline := indexer.NewPipeline(store, embedder, chunker,
		indexer.WithLogger(logger),
		indexer.WithExtractor(extract.NewExtractor()))

	return &Components{
		Store:    store,
		Embedder: embedder,
		Pipeline: pipeline,
		Metrics:  m,
		Prover:   circuit.NewGuestProver(circuit.WithLogger(logger)),
	}, nil
}

func printUsage() {
	fmt.Println(`zkrag - vector retrieval with verifiable relevance decisions

Usage:
  zkrag server [flags]             Start the HTTP server and watch watch.directories
  zkrag index [flags] <path>       Ingest a file or directory
  zkrag search [flags] <query>     Search stored chunks
  zkrag evaluate [flags] <query>   Decide relevance of the nearest chunk
  zkrag status [flags]             Show store and index status
  zkrag version                    Show version
  zkrag help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/zkrag/config.yaml)
  --debug            Enable debug logging

Index Flags:
  --config string    Config file path
  --provider string  Provider recorded in chunk metadata

Search / Evaluate / Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)
  --limit int        Number of results (search)
  --threshold float  Relevance threshold (evaluate)
  --prove            Attach a prover receipt (evaluate)

Examples:
  zkrag server
  zkrag index ./docs
  zkrag search "transfer restrictions"
  zkrag evaluate --prove "who may hold fund units"
  zkrag status --output json`)
}
