package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/seen-labs/seen/internal/blobstore"
	"github.com/seen-labs/seen/internal/config"
	"github.com/seen-labs/seen/internal/fetcher"
	"github.com/seen-labs/seen/internal/ingest"
	"github.com/seen-labs/seen/internal/mcp"
	"github.com/seen-labs/seen/internal/oracle"
	"github.com/seen-labs/seen/internal/search"
	"github.com/seen-labs/seen/internal/sqlitedb"
	"github.com/seen-labs/seen/internal/store"
	"github.com/seen-labs/seen/internal/vecindex"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("seen MCP server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", sqlitedb.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", sqlitedb.DriverName)
		os.Exit(0)
	}

	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	// All logging goes to stderr; stdout carries the MCP protocol.
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if os.Getenv("SEEN_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	if err := run(&cfg, log); err != nil {
		log.WithError(err).Fatal("server error")
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	links, err := store.New(filepath.Join(cfg.DataDir, "links.db"))
	if err != nil {
		return err
	}
	defer func() { _ = links.Close() }()

	oc, err := oracle.NewFromEnv(cfg.OracleProvider, cfg.OracleCacheLen)
	if err != nil {
		return err
	}
	defer func() { _ = oc.Close() }()

	vectors, err := vecindex.New(filepath.Join(cfg.DataDir, "vectors.db"), oc.Dimension())
	if err != nil {
		return err
	}
	defer func() { _ = vectors.Close() }()

	blobs, err := blobstore.New(filepath.Join(cfg.DataDir, "blobs"))
	if err != nil {
		return err
	}

	ing := ingest.New(
		fetcher.New(cfg.FetchTimeout, cfg.MaxFetchBytes),
		oc, blobs, vectors, links, cfg.MaxChunkChars, log,
	)
	srch := search.New(oc, vectors, links, cfg.Overfetch, cfg.MinScore, log)

	log.WithFields(logrus.Fields{
		"version":  version,
		"build":    sqlitedb.BuildMode,
		"driver":   sqlitedb.DriverName,
		"oracle":   oc.Provider(),
		"data_dir": cfg.DataDir,
	}).Info("starting seen MCP server")

	if cfg.ReconcileOnStart {
		removed, err := ing.Reconcile(context.Background())
		if err != nil {
			log.WithError(err).Warn("startup reconcile failed")
		} else if removed > 0 {
			log.WithField("orphans", removed).Info("startup reconcile collected orphaned vectors")
		}
	}

	server := mcp.NewServer(cfg, ing, srch, links, blobs, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info("listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}
