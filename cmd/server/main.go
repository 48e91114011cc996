package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wisdom-core/internal/config"
	"wisdom-core/internal/logging"
)

var envFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wisdom",
		Short:         "Wisdom answer service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env.dev", "dotenv file to load before reading the environment")

	root.AddCommand(newServeCmd(), newAskCmd())
	return root
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
