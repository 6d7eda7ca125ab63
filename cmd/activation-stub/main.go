package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/magicaleks/magickey/internal/adapter/httpserver"
	"github.com/magicaleks/magickey/internal/config"
	"github.com/magicaleks/magickey/internal/infra/sealer"
)

func main() {
	listen := pflag.StringP("listen", "l", "127.0.0.1:8080", "address to listen on")
	keyPath := pflag.StringP("private-key", "k", sealer.PrivateKeyFile, "PEM private key matching the client's public key")
	logDir := pflag.String("log-dir", "", "directory for the log file")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	os.Exit(run(*listen, *keyPath, *logDir, *debug))
}

func run(listen, keyPath, logDir string, debug bool) int {
	cfg := config.DefaultConfig()
	cfg.AppName = "activation-stub"
	cfg.LogDir = logDir
	cfg.Debug.Enabled = debug

	logger, closeLog, err := config.NewLogger(cfg, cfg.AppName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer closeLog()

	key, err := sealer.LoadPrivateKey(keyPath)
	if err != nil {
		logger.Error("failed to load private key", "path", keyPath, "err", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	api := httpserver.NewAPI(key, httpserver.NewTokenStore(), logger)
	srv := httpserver.NewServer(listen, api, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}
	logger.Info("activation endpoint stopped")
	return 0
}
