package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/app"
	"github.com/ibeckermayer/portalpilot/internal/auth"
	"github.com/ibeckermayer/portalpilot/internal/config"
	"github.com/ibeckermayer/portalpilot/internal/credentials"
	"github.com/ibeckermayer/portalpilot/internal/logging"
	"github.com/ibeckermayer/portalpilot/internal/login"
	"github.com/ibeckermayer/portalpilot/internal/store"
)

func main() {
	fmt.Println("\nMy Target Site Portal Login")
	fmt.Println("===========================")

	cfg, cfgNote := loadConfig()

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if cfgNote != "" {
		logger.Warn(cfgNote)
	}
	logger.Info("Starting login process")

	if err := run(cfg, logger); err != nil {
		logger.Error(fmt.Sprintf("Main execution failed: %v", err))
		fmt.Printf("\nError: %v\n", err)
	}
	logger.Info("Main function execution completed")
}

// loadConfig loads or creates the configuration. The returned note, if any,
// is logged once the logger exists.
func loadConfig() (*config.Config, string) {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run - create default config
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				return cfg, fmt.Sprintf("could not save default config: %v", err)
			}
			path, _ := config.ConfigPath()
			return cfg, fmt.Sprintf("Created default config at: %s", path)
		}
		return config.Default(), fmt.Sprintf("could not load config: %v (using defaults)", err)
	}

	if err := cfg.Validate(); err != nil {
		return config.Default(), fmt.Sprintf("invalid config: %v (using defaults)", err)
	}
	return cfg, ""
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	credStore := credentials.NewStore(cfg.Credentials.EnvPath, logger.Named("credentials"))
	prompter := credentials.NewPrompter(os.Stdin, os.Stdout)
	resolver := credentials.NewResolver(credStore, prompter, os.Stdout, cfg.Portal.DefaultURL, logger.Named("credentials"))

	rec, err := resolver.Resolve()
	if err != nil {
		return err
	}
	logger.Info("Credentials obtained")

	if err := rec.Validate(); err != nil {
		logger.Error("Missing required credentials")
		fmt.Println("Error: All credentials are required")
		return nil
	}

	journal, reportsDir := openHistory(cfg, logger)
	if journal != nil {
		defer journal.Close()
	}

	var cookieStore *auth.CookieStore
	if cfg.History.CaptureCookies {
		path, err := auth.DefaultCookieStorePath()
		if err != nil {
			logger.Warn("Session snapshot disabled", zap.Error(err))
		} else {
			cookieStore = auth.NewCookieStore(path)
		}
	}

	authManager := auth.NewManager(
		app.NewResolver(cfg.Semantic, logger),
		login.SettingsFrom(cfg),
		cookieStore,
		logger.Named("auth"),
	)
	a := app.New(cfg, authManager, journal, reportsDir, logger)

	fmt.Println("\nAttempting login...")
	err = a.Run(ctx, rec)
	if err != nil && ctx.Err() == nil {
		return err
	}
	// Errors after a hold were logged during the run.
	return nil
}

// openHistory opens the run journal and reports directory when history is
// enabled. Failures only disable history.
func openHistory(cfg *config.Config, logger *zap.Logger) (*store.Store, string) {
	if !cfg.History.Enabled {
		return nil, ""
	}

	reportsDir, err := store.ReportsDir()
	if err != nil {
		logger.Warn("Run reports disabled", zap.Error(err))
		reportsDir = ""
	}

	dbPath, err := store.DefaultDBPath()
	if err != nil {
		logger.Warn("Run journal disabled", zap.Error(err))
		return nil, reportsDir
	}
	journal, err := store.New(dbPath)
	if err != nil {
		logger.Warn("Run journal disabled", zap.Error(err))
		return nil, reportsDir
	}
	return journal, reportsDir
}
