package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"portfoliotracker/internal/api"
	"portfoliotracker/internal/config"
	"portfoliotracker/internal/logging"
	"portfoliotracker/pkg/portfolio"
)

func main() {
	var dataDir string
	var port int
	var host string
	var webDir string
	var configPath string

	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.IntVar(&port, "port", 0, "Port to run the server on (default 8000)")
	flag.StringVar(&host, "host", "", "Host to bind the server to (default 127.0.0.1)")
	flag.StringVar(&webDir, "web-dir", "", "Directory for SPA static files (optional)")
	flag.StringVar(&configPath, "config", "", "Path to a TOML settings file (optional)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, dataDir, configPath, host, port, webDir); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, configPath, host string, port int, webDir string) error {
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return err
	}
	settings.ApplyFlagOverrides(host, port, webDir)

	if dataDir != "" {
		config.SetRuntimeDataDir(dataDir)
	}

	logDir, err := config.GetLogDir()
	if err != nil {
		return err
	}
	logger, writer, err := logging.NewLoggerWithOptions(logging.Options{
		Dir:    logDir,
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	dbPath, err := config.GetDBPath()
	if err != nil {
		return err
	}
	core, err := portfolio.OpenWithOptions(coreOptions(settings, dbPath, logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	sweeper, err := newSessionSweeper(core.Sessions(), settings.Session.SweepSchedule, logger)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	handler := api.NewRouter(core)
	if resolvedWebDir := resolveWebDir(settings.Server.WebDir); resolvedWebDir != "" {
		logger.Info("serving SPA", "web_dir", resolvedWebDir)
		handler = api.WithSPA(handler, resolvedWebDir)
	}
	handler = middleware.Compress(5)(handler)

	listener, err := net.Listen("tcp", settings.Addr())
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", listener.Addr().String(), "account_backend", core.AccountBackend())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	return nil
}

func coreOptions(s *config.Settings, dbPath string, logger *slog.Logger) portfolio.Options {
	return portfolio.Options{
		DBPath:             dbPath,
		Logger:             logger,
		PriceCacheTTL:      s.Market.PriceCacheTTL.Duration,
		PriceFailThreshold: s.Market.FailThreshold,
		PriceFailWindow:    s.Market.FailWindow.Duration,
		PriceCooldown:      s.Market.Cooldown.Duration,
		HTTPTimeout:        s.Market.HTTPTimeout.Duration,
		YahooChartURL:      s.Market.ChartURL,
		YahooSummaryURL:    s.Market.SummaryURL,
		AccountBackend:     s.AccountBackend(),
		FirebaseAPIKey:     s.Account.FirebaseAPIKey,
		FirebaseProjectID:  s.Account.FirebaseProjectID,
		IdentityURL:        s.Account.IdentityURL,
		FirestoreURL:       s.Account.FirestoreURL,
		SessionIdleTimeout: s.Session.IdleTimeout.Duration,
	}
}

func resolveWebDir(input string) string {
	if input != "" {
		if dirExists(input) {
			return input
		}
		return ""
	}

	candidates := []string{"static", "../static"}
	for _, candidate := range candidates {
		if dirExists(candidate) {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		for _, candidate := range candidates {
			path := filepath.Join(base, candidate)
			if dirExists(path) {
				return path
			}
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
