package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/version"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	env        string
	logLevel   string
}

// AddFlags registers the global flags on fs.
func (o *globalOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "Path to config file (default config/<env>.yaml)")
	fs.StringVar(&o.env, "env", config.GetEnv(), "Environment: local, dev, docker, prod")
	fs.StringVar(&o.logLevel, "log-level", "", "Override the configured log level")
}

// load reads the configuration and builds the logger.
func (o *globalOptions) load() (config.Config, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(o.env)
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := logpkg.NewLogger(o.env, level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "docqa",
		Short:        "Ask questions about an indexed document",
		Version:      version.String(),
		SilenceUsage: true,
	}
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newIndexCommand(opts),
		newChatCommand(opts),
		newAskCommand(opts),
		newServeCommand(opts),
		newUsageCommand(opts),
	)
	return cmd
}
