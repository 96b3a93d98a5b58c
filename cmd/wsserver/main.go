package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/armolymp/webSocket-python-react-native/internal/config"
	"github.com/armolymp/webSocket-python-react-native/internal/pushserver"
	"github.com/armolymp/webSocket-python-react-native/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting wsserver",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := pushserver.New(pushserver.Config{
		Addr:     cfg.Server.Addr,
		Path:     cfg.Server.Path,
		Interval: cfg.Server.Interval,
	}, logger)

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	stats := srv.Stats()
	logger.Info("wsserver stopped",
		"accepted", stats.Accepted,
		"sent", stats.Sent,
	)
}
