// Package main summarizes a directory of contribution files.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	entrypoint "github.com/earthref/KDD/internal/platform/cmd"
	"github.com/earthref/KDD/internal/platform/config"
	"github.com/earthref/KDD/internal/tools/summarize"
)

func main() {
	cfg, err := summarize.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceSummarize))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSummarize, func(ctx context.Context) error {
		return summarize.Run(ctx, cfg, os.Stdout)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
