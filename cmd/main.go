package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"byom-relay/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "byom-relay",
	Short:         "Relay chat requests to caller-chosen model providers",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional config file (json, yaml or toml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lambdaCmd)
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Lambda runtimes start the binary without arguments.
	if len(os.Args) == 1 && os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		rootCmd.SetArgs([]string{"lambda"})
	}

	if err := rootCmd.Execute(); err != nil {
		slog.Error("byom-relay: fatal", "err", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the JSON logger at the
// configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
