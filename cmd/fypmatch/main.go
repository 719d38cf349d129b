// Package main is the fypmatch CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/review"
	"github.com/hyperjump/fypmatch/internal/server"
	"github.com/hyperjump/fypmatch/internal/storage"
	"github.com/hyperjump/fypmatch/internal/suggest"
	"github.com/hyperjump/fypmatch/internal/vectorize"
	"github.com/hyperjump/fypmatch/internal/watcher"
	"github.com/hyperjump/fypmatch/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/fypmatch/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory takes precedence so that running from a project checkout uses the
// project's config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
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
	// OPENAI_API_KEY and friends may live in a .env next to the binary's working directory.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "review":
		runReview()
	case "suggest":
		runSuggest()
	case "ingest":
		runIngest()
	case "vectorize":
		runVectorize()
	case "list":
		runList()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("fypmatch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// fatalf prints to stderr and exits with status 1.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config and creates the logger shared by every subcommand.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debug := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, resolved, logger
}

// Components holds initialized services.
type Components struct {
	Storage    storage.Storage
	Embedder   embedding.Embedder
	Corpus     *corpus.Store
	Reviewer   *review.Reviewer
	Suggester  *suggest.Suggester
	Vectorizer *vectorize.Vectorizer
}

// Close releases storage and the embedder.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	return newComponents(cfg, logger, true)
}

// newComponents wires every service. With loadCorpus false the corpus starts empty,
// which lets vectorize replace a snapshot built by another model.
func newComponents(cfg *config.Config, logger *zap.Logger, loadCorpus bool) (*Components, error) {
	embedder, err := embedding.NewFromConfig(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	c := &Components{Embedder: embedder}

	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = st

	c.Corpus = corpus.NewStore(embedder.ModelID())
	if loadCorpus {
		if err := loadSnapshot(c.Corpus, cfg.Storage.SnapshotPath, logger); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.Reviewer = review.NewReviewer(embedder, cfg.Review, review.WithLogger(logger))
	c.Suggester = suggest.New(embedder, c.Corpus,
		suggest.WithLogger(logger),
		suggest.WithLimits(cfg.Suggest.DefaultK, cfg.Suggest.MaxK))
	c.Vectorizer = vectorize.New(st, embedder,
		vectorize.WithLogger(logger),
		vectorize.WithStore(c.Corpus),
		vectorize.WithSnapshotPath(cfg.Storage.SnapshotPath),
		vectorize.WithExtensions(cfg.Watch.Extensions))
	return c, nil
}

// loadSnapshot swaps the persisted corpus into store. A missing file leaves the corpus empty.
func loadSnapshot(store *corpus.Store, path string, logger *zap.Logger) error {
	stats, err := store.LoadFile(path)
	switch {
	case err == nil:
		logger.Info("corpus loaded",
			zap.String("path", path),
			zap.Int("entries", stats.Loaded),
			zap.Int("skipped", stats.Skipped),
			zap.Bool("legacy", stats.Legacy))
		return nil
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no corpus snapshot yet; run fypmatch vectorize", zap.String("path", path))
		return nil
	case errors.Is(err, corpus.ErrModelMismatch):
		return fmt.Errorf("%w; rebuild it with fypmatch vectorize", err)
	default:
		return fmt.Errorf("failed to load corpus snapshot: %w", err)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			components.Vectorizer,
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		go func() {
			if _, err := w.Sync(ctx); err != nil {
				logger.Error("initial sync failed", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(
		components.Reviewer,
		components.Suggester,
		components.Vectorizer,
		components.Storage,
		components.Corpus,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func printUsage() {
	fmt.Println(`fypmatch - FYP proposal review and title suggestions

Usage:
  fypmatch server [flags]               Start the HTTP server (and directory watcher)
  fypmatch review [flags]               Review a proposal
  fypmatch suggest [flags]              Suggest titles from the approved corpus
  fypmatch ingest [flags] <path>...     Store proposal files or directories
  fypmatch vectorize [flags]            Rebuild the corpus snapshot from approved proposals
  fypmatch list [flags]                 List stored proposals
  fypmatch status [flags]               Show storage, corpus and model status
  fypmatch init [flags]                 Write a starter config file
  fypmatch version                      Show version
  fypmatch help                         Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/fypmatch/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)
  --server string    Server URL; when set, review, suggest and status use the HTTP API

Review Flags:
  --title string         Project title
  --proposal string      Proposal document (.pdf, .docx, .txt, .md)
  --prior-titles string  Previous project titles, one per line (.pdf, .txt, .xlsx)
  --expertise string     JSON file mapping supervisor id to expertise keywords

Suggest Flags:
  --theme string     Project theme (required)
  --tags string      Comma-separated tags
  --k int            Number of titles (default from config)

Ingest Flags:
  --status string    approved, pending or rejected (default: approved)
  --title string     Title for inline text (with --text)
  --text string      Inline proposal text instead of files
  --rebuild          Rebuild the corpus after ingesting (default: true)

Vectorize Flags:
  --prune            Drop proposals whose source file no longer exists (default: true)

Environment:
  OPENAI_API_KEY, OPENAI_BASE_URL   Used by the openai embedding provider (.env is read when present)

Examples:
  fypmatch init --config ./config.yaml
  fypmatch ingest ./approved-fyps
  fypmatch vectorize
  fypmatch review --title "Smart Parking System" --proposal proposal.pdf --prior-titles previous.xlsx --expertise supervisors.json
  fypmatch suggest --theme "healthcare" --tags "iot, wearables" --k 5
  fypmatch server
  fypmatch status --output json`)
}
