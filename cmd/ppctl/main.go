// Command ppctl is a dev CLI for portalpilot maintenance and debugging tasks.
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "ppctl",
		Short:        "ppctl",
		Long:         "ppctl inspects and maintains the portalpilot configuration, credentials and run history.",
		SilenceUsage: true, // do not print usage message when commands fail
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.toml (default: the user config directory)")

	cmd.AddCommand(
		newBotTestCommand(opts),
		newOpenCommand(opts),
		newHistoryCommand(),
		newReportCommand(),
		newQueryCommand(),
		newCredsCommand(opts),
		newSessionCommand(),
	)
	return cmd
}

// load returns the config at --config, or the user config. A missing file
// yields defaults.
func (o *rootOptions) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// cliLogger logs warnings and errors to stderr for commands that drive
// internal packages.
func cliLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
