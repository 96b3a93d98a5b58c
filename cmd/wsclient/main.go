package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/armolymp/webSocket-python-react-native/internal/config"
	"github.com/armolymp/webSocket-python-react-native/internal/connection"
	"github.com/armolymp/webSocket-python-react-native/internal/console"
	"github.com/armolymp/webSocket-python-react-native/internal/database"
	"github.com/armolymp/webSocket-python-react-native/internal/journal"
	"github.com/armolymp/webSocket-python-react-native/internal/metrics"
	"github.com/armolymp/webSocket-python-react-native/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting wsclient",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"endpoint", cfg.Client.Endpoint,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	m := metrics.New()

	var observers []connection.Observer
	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		jrnl = journal.New(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, pool, logger)
		if err := jrnl.EnsureSchema(ctx); err != nil {
			logger.Error("failed to create journal table", "error", err)
			os.Exit(1)
		}
		if err := jrnl.Start(ctx); err != nil {
			logger.Error("failed to start journal", "error", err)
			os.Exit(1)
		}
		observers = append(observers, jrnl)
	}

	mgr := connection.NewManager(connection.ManagerConfig{
		Endpoint:         cfg.Client.Endpoint,
		Greeting:         cfg.Client.Greeting,
		HandshakeTimeout: cfg.Client.HandshakeTimeout,
		WriteTimeout:     cfg.Client.WriteTimeout,
		EventBuffer:      cfg.Client.EventBuffer,
		CloseOnReopen:    cfg.Client.CloseOnReopen,
	}, logger,
		connection.WithRecorder(m),
		connection.WithObserver(observers...),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mgr.Run(gctx)
	})

	// The screen owns the process lifetime: quitting it stops everything.
	g.Go(func() error {
		defer cancel()
		return console.New(mgr, os.Stdin, os.Stdout, logger).Run(gctx)
	})

	if cfg.Metrics.Port > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           createHandler(cfg.Metrics.Path, m, mgr, jrnl),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		mgr.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("wsclient failed", "error", err)
	}

	if jrnl != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := jrnl.Stop(shutdownCtx); err != nil {
			logger.Error("failed to flush journal", "error", err)
		}
	}

	stats := mgr.Stats()
	logger.Info("wsclient stopped",
		"opened", stats.Opened,
		"closed", stats.Closed,
		"messages", stats.Messages,
		"failures", stats.Failures,
		"abandoned", stats.Abandoned,
	)
}

// createHandler serves Prometheus metrics and a JSON health document.
func createHandler(metricsPath string, m *metrics.Metrics, mgr *connection.Manager, jrnl *journal.Journal) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, m.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := struct {
			Status     string         `json:"status"`
			Version    version.Info   `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Current(),
			Components: make(map[string]any),
		}

		stats := mgr.Stats()
		conn := map[string]any{
			"holding":   stats.Holding,
			"opened":    stats.Opened,
			"closed":    stats.Closed,
			"messages":  stats.Messages,
			"failures":  stats.Failures,
			"abandoned": stats.Abandoned,
		}
		if h := mgr.Current(); h != nil {
			conn["handle"] = h.ID().String()
			conn["status"] = h.Status().String()
		}
		health.Components["connection"] = conn

		if jrnl != nil {
			js := jrnl.Stats()
			health.Components["journal"] = map[string]any{
				"inserted": js.Inserted,
				"flushes":  js.Flushes,
				"errors":   js.Errors,
				"pending":  jrnl.Pending(),
			}
			if js.Errors > 0 {
				health.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
