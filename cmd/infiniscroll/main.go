package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/infiniscroll/internal/adapter"
	"github.com/mmcdole/infiniscroll/internal/domain"
	"github.com/mmcdole/infiniscroll/internal/feed"
	"github.com/mmcdole/infiniscroll/internal/source"
	"github.com/mmcdole/infiniscroll/internal/store"
	"github.com/mmcdole/infiniscroll/internal/tui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

type options struct {
	source     string
	plain      bool
	batches    int
	clearCache bool
}

func main() {
	var showVersion bool
	var opts options
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&opts.source, "source", "", "item source: remote or synthetic (overrides config)")
	flag.BoolVar(&opts.plain, "plain", false, "print batches to stdout instead of starting the TUI")
	flag.IntVar(&opts.batches, "batches", 3, "number of batches to load in plain mode")
	flag.BoolVar(&opts.clearCache, "clear-cache", false, "remove the dataset snapshot and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("infiniscroll %s\n", Version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.source != "" {
		cfg.Source.Type = domain.SourceKind(opts.source)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting infiniscroll", "version", Version, "source", cfg.Source.Type)

	if opts.clearCache {
		if err := adapter.ClearCache(cfg.Cache.Dir); err != nil {
			return err
		}
		fmt.Println("✓ Cache cleared")
		return nil
	}

	// A nil *SnapshotStore must not become a non-nil interface
	var snapshots domain.SnapshotStore
	if path := cfg.CachePath(); path != "" {
		s, err := store.NewSnapshotStore(path, cfg.Cache.MaxAge)
		if err != nil {
			logger.Warn("snapshot store unavailable, continuing without it", "error", err)
		} else {
			defer s.Close()
			snapshots = s
		}
	}

	src, err := source.NewFromConfig(cfg, snapshots, logger)
	if err != nil {
		return fmt.Errorf("failed to create item source: %w", err)
	}

	ctrl := feed.NewController(src, cfg.BatchSize(),
		feed.WithInitialItems(src.Initial),
		feed.WithLogger(logger),
		feed.WithTimeout(cfg.Source.Timeout),
		feed.WithLabel(string(src.Kind)),
	)
	defer ctrl.Close()

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, logger)
		defer stop()
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if opts.plain || !interactive {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		return runPlain(ctx, ctrl, opts.batches, os.Stdout, interactive)
	}

	model, err := tui.NewModel(ctrl, tui.Options{
		Title:     title(src.Kind),
		Root:      cfg.Watcher.Root,
		Margin:    cfg.Watcher.Margin,
		Threshold: cfg.Watcher.Threshold,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

func title(kind domain.SourceKind) string {
	if kind == domain.SourceSynthetic {
		return "Numbers"
	}
	return "Photos"
}

// serveMetrics exposes /metrics on addr and returns a function that stops the listener
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
