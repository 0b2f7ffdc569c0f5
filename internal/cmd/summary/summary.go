// Package summary parses summary service flags and launches the service.
package summary

import (
	"context"
	"flag"

	entrypoint "github.com/earthref/KDD/internal/platform/cmd"
	server "github.com/earthref/KDD/internal/services/summary/app"
)

// Config holds summary command configuration.
type Config struct {
	Port int `env:"KDD_SUMMARY_PORT" envDefault:"8095"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The summary gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the summary gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSummary, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
