package main

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

var openTargets = []string{"config", "cache", "logs", "env"}

func newOpenCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <config|cache|logs|env>",
		Short: "Open a portalpilot file or directory with the system handler",
		Long: `Open a portalpilot file or directory with the system handler.

  config   config file in default editor
  cache    cache directory (run journal, reports, model exchanges)
  logs     directory holding the daily log files
  env      credential file`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: openTargets,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveOpenTarget(root, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", path)
			if err := browser.OpenFile(path); err != nil {
				return fmt.Errorf("failed to open: %w", err)
			}
			return nil
		},
	}
}

func resolveOpenTarget(root *rootOptions, target string) (string, error) {
	switch target {
	case "config":
		if root.configPath != "" {
			return root.configPath, nil
		}
		return config.ConfigPath()
	case "cache":
		return config.CacheDir()
	case "logs", "env":
		cfg, err := root.load()
		if err != nil {
			return "", err
		}
		if target == "logs" {
			return filepath.Abs(cfg.Log.Dir)
		}
		return filepath.Abs(cfg.Credentials.EnvPath)
	default:
		return "", fmt.Errorf("unknown target: %s", target)
	}
}
