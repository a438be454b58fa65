// Package main is the clausematch CLI entry point.
package main

import (
	"context"
	"encoding/json"
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

	"github.com/tenderlab/clausematch/internal/config"
	"github.com/tenderlab/clausematch/internal/ensemble"
	"github.com/tenderlab/clausematch/internal/models"
	"github.com/tenderlab/clausematch/internal/pipeline"
	"github.com/tenderlab/clausematch/internal/server"
	"github.com/tenderlab/clausematch/internal/storage"
	"github.com/tenderlab/clausematch/internal/watcher"
	"github.com/tenderlab/clausematch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/clausematch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "extract":
		runExtract()
	case "index":
		runIndex()
	case "retrieve":
		runRetrieve()
	case "analyse", "analyze":
		runAnalyse()
	case "run":
		runFull()
	case "serve":
		runServe()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("clausematch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by every subcommand.
func setup(fs *flag.FlagSet, configPath *string, debug *bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || (debug != nil && *debug)
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func openStore(cfg *config.Config, logger *zap.Logger) *storage.Store {
	if cfg.Storage.DatabasePath == "" {
		return nil
	}
	store, err := storage.New(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Warn("run history disabled, database unavailable", zap.Error(err))
		return nil
	}
	return store
}

func newPipeline(cfg *config.Config, logger *zap.Logger, store *storage.Store) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if store != nil {
		opts = append(opts, pipeline.WithStore(store))
	}
	return pipeline.New(cfg, opts...)
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	source := fs.String("source", "", "override source directory")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(fs, configPath, debug)
	defer logger.Sync()
	if *source != "" {
		cfg.Extraction.SourceDir = *source
	}

	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
	}
	p := newPipeline(cfg, logger, store)
	corpus, err := p.Extract(context.Background())
	if err != nil {
		logger.Fatal("Extraction failed", zap.Error(err))
	}
	fmt.Printf("Extracted %d paragraph(s) from %s\n", corpus.Len(), cfg.Extraction.SourceDir)
	for _, f := range corpus.Unsupported {
		fmt.Printf("  skipped (unsupported format): %s\n", f)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.String("out", "", "override combined index output path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(fs, configPath, debug)
	defer logger.Sync()
	if *out != "" {
		cfg.Storage.IndexPath = *out
	}
	if cfg.Storage.IndexPath == "" {
		fmt.Fprintln(os.Stderr, "No index path configured; set storage.index_path or pass -out")
		os.Exit(1)
	}

	p := newPipeline(cfg, logger, nil)
	corpus, err := p.LoadCorpus()
	if err != nil {
		logger.Fatal("Failed to load corpus; run extract first", zap.Error(err))
	}
	ens, cleanup, err := p.BuildEnsemble(context.Background(), corpus)
	if err != nil {
		logger.Fatal("Failed to build indexes", zap.Error(err))
	}
	defer cleanup()
	if err := ens.SaveIndex(cfg.Storage.IndexPath); err != nil {
		logger.Fatal("Failed to save combined index", zap.Error(err))
	}
	fmt.Printf("Combined index saved to %s\n", cfg.Storage.IndexPath)
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	method := fs.String("method", "", "run a single ad-hoc query with this method instead of the clause set")
	k := fs.Int("k", 0, "override results per method")
	index := fs.String("index", "", "override saved combined index path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(fs, configPath, debug)
	defer logger.Sync()
	if *k > 0 {
		cfg.Retrieval.K = *k
	}
	if *index != "" {
		cfg.Storage.IndexPath = *index
	}

	p := newPipeline(cfg, logger, nil)
	corpus, err := p.LoadCorpus()
	if err != nil {
		logger.Fatal("Failed to load corpus; run extract first", zap.Error(err))
	}
	ctx := context.Background()

	// A previously saved combined index skips re-embedding the corpus.
	var ens *ensemble.Ensemble
	var cleanup func()
	if path := cfg.Storage.IndexPath; path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			ens, cleanup, err = p.RestoreEnsemble(ctx, corpus, path)
		} else {
			ens, cleanup, err = p.BuildEnsemble(ctx, corpus)
		}
	} else {
		ens, cleanup, err = p.BuildEnsemble(ctx, corpus)
	}
	if err != nil {
		logger.Fatal("Failed to build indexes", zap.Error(err))
	}
	defer cleanup()

	if *method != "" {
		query := strings.TrimSpace(strings.Join(fs.Args(), " "))
		if query == "" {
			fmt.Fprintln(os.Stderr, "Usage: clausematch retrieve -method <name> <query text>")
			os.Exit(1)
		}
		results, err := ens.Retrieve(ctx, *method, query, cfg.Retrieval.K)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
		return
	}

	clauses, err := models.LoadClauses(cfg.Retrieval.ClausesPath)
	if err != nil {
		logger.Fatal("Failed to load clauses", zap.Error(err))
	}
	results, err := p.Retrieve(ctx, ens, clauses)
	if err != nil {
		logger.Fatal("Retrieval failed", zap.Error(err))
	}
	fmt.Printf("Retrieved results for %d clause(s) across %s\n", len(results), strings.Join(ens.Methods(), ", "))
}

func runAnalyse() {
	fs := flag.NewFlagSet("analyse", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(fs, configPath, debug)
	defer logger.Sync()

	p := newPipeline(cfg, logger, nil)
	corpus, err := p.LoadCorpus()
	if err != nil {
		logger.Fatal("Failed to load corpus; run extract first", zap.Error(err))
	}
	results, err := p.LoadResults()
	if err != nil {
		logger.Fatal("Failed to load results; run retrieve first", zap.Error(err))
	}
	clauses, err := models.LoadClauses(cfg.Retrieval.ClausesPath)
	if err != nil {
		logger.Fatal("Failed to load clauses", zap.Error(err))
	}
	report, err := p.Analyse(corpus, clauses, results)
	if err != nil {
		logger.Fatal("Analysis failed", zap.Error(err))
	}
	fmt.Printf("Report written with %d document(s)\n", len(report.Docs))
}

func runFull() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(fs, configPath, debug)
	defer logger.Sync()

	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
	}
	p := newPipeline(cfg, logger, store)
	report, err := p.Run(context.Background())
	if err != nil {
		logger.Fatal("Run failed", zap.Error(err))
	}
	fmt.Printf("Run complete: %d document(s) in report\n", len(report.Docs))
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", true, "rebuild indexes when the source directory changes")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved, logger := setup(fs, configPath, debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved))

	store := openStore(cfg, logger)
	if store != nil {
		defer store.Close()
	}
	p := newPipeline(cfg, logger, store)
	srv := server.NewServer(cfg, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cleanupPrev func()
	rebuild := func() {
		corpus, err := p.Extract(ctx)
		if err != nil {
			logger.Error("extraction failed", zap.Error(err))
			return
		}
		ens, cleanup, err := p.BuildEnsemble(ctx, corpus)
		if err != nil {
			logger.Error("index build failed", zap.Error(err))
			return
		}
		srv.SetEnsemble(ens, corpus.Len())
		if cleanupPrev != nil {
			cleanupPrev()
		}
		cleanupPrev = cleanup
	}
	rebuild()
	defer func() {
		if cleanupPrev != nil {
			cleanupPrev()
		}
	}()

	if *watch {
		exts := []string{".pdf", ".docx", ".odt", ".txt", ".xlsx"}
		w := watcher.New(cfg.Extraction.SourceDir, exts, rebuild, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(status)
}

func printUsage() {
	fmt.Println(`clausematch - multi-method clause retrieval over document folders

Usage:
  clausematch extract [flags]            Extract paragraphs from the source directory
  clausematch index [flags]              Build and save the combined dense index
  clausematch retrieve [flags] [query]   Run the clause set (or one ad-hoc query) through the methods
  clausematch analyse [flags]            Aggregate retrieval results into the ranked report
  clausematch run [flags]                Full pipeline: extract, retrieve, analyse
  clausematch serve [flags]              Start the HTTP API with source watching
  clausematch status [flags]             Show server status
  clausematch version                    Show version
  clausematch help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/clausematch/config.yaml,
                     falls back to ./config.yaml when present)
  --debug            Enable debug logging

Retrieve Flags:
  --method string    Run a single ad-hoc query with this method and print JSON
  --k int            Override results per method
  --index string     Override saved combined index path (loaded instead of re-embedding)

Serve Flags:
  --watch            Rebuild indexes when the source directory changes (default: true)

Examples:
  clausematch run
  clausematch extract --source ./contracts
  clausematch retrieve --method bm25 limitation of liability
  clausematch serve --debug
  clausematch status`)
}
