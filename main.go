package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/config"
	"github.com/parisxmas/oxisite/internal/logging"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "oxisite",
	Short:         "Marketing site backend on OxiDB",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, tokenCmd, seedCmd, loadgenCmd, sitemapCmd)
}

// setup loads configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, closeLog, err := logging.New(cfg.LogLevel, cfg.GelfAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, closeLog, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "oxisite:", err)
		os.Exit(1)
	}
}
