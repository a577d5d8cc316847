package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"portfoliotracker/internal/cli"
	"portfoliotracker/internal/config"
	"portfoliotracker/internal/logging"
	"portfoliotracker/pkg/portfolio"
)

func main() {
	name := path.Base(os.Args[0])
	configPath, args := splitConfigFlag(os.Args[1:])

	settings, err := config.LoadSettings(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(settings.Logging.Level, slog.LevelWarn),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	env := &cli.Env{
		Market: portfolio.NewYahoo(portfolio.YahooOptions{
			Logger:        logger,
			ChartBaseURL:  settings.Market.ChartURL,
			SummaryURL:    settings.Market.SummaryURL,
			PriceCacheTTL: settings.Market.PriceCacheTTL.Duration,
			FailThreshold: settings.Market.FailThreshold,
			FailWindow:    settings.Market.FailWindow.Duration,
			Cooldown:      settings.Market.Cooldown.Duration,
			HTTPTimeout:   settings.Market.HTTPTimeout.Duration,
		}),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(int(cli.Run(ctx, name, args, env)))
}

// splitConfigFlag pulls a leading -config flag off args so settings can be
// loaded before the commands are built.
func splitConfigFlag(args []string) (string, []string) {
	fs := flag.NewFlagSet("portfolio", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Path to a TOML settings file (optional)")
	if len(args) == 0 || (args[0] != "-config" && args[0] != "--config" && !strings.HasPrefix(args[0], "-config=") && !strings.HasPrefix(args[0], "--config=")) {
		return "", args
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	return *configPath, fs.Args()
}
