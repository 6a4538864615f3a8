package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"consultbot/internal/config"
)

var (
	logger     *slog.Logger
	configPath string // --config, falls back to CONFIG_FILE
)

func main() {
	_ = godotenv.Load()
	logger = newLogger(os.Getenv("LOG_LEVEL"))

	root := &cobra.Command{
		Use:           "consultbot",
		Short:         "Knowledge-grounded chat assistant for a consulting website",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml or config.yaml (default: $CONFIG_FILE or configs/config.toml)")

	root.AddCommand(serveCmd())
	root.AddCommand(reindexCmd())
	root.AddCommand(askCmd())
	root.AddCommand(hashPasswordCmd())

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	logger = newLogger(cfg.App.LogLevel)
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
