package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"appliance-warranty-backend/config"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "warrantyd",
		Short:        "Appliance warranty and maintenance tracking backend",
		SilenceUsage: true,
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./config/config.yaml"
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig, "path to the YAML configuration file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newCheckCmd(opts))
	return root
}

// setup loads the configuration and builds the process logger.
func (o *rootOptions) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", o.configPath, err)
	}

	zcfg := zap.NewProductionConfig()
	if o.debug {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	log.Info("configuration loaded", zap.String("path", o.configPath))
	return cfg, log, nil
}
