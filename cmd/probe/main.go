// Command probe opens the login page with the configured browser and reports
// which login form fields the semantic query still finds, without typing
// any credentials. Use it to detect markup drift before a run fails.
//
// Usage: probe [login-url]
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/app"
	"github.com/ibeckermayer/portalpilot/internal/browser"
	"github.com/ibeckermayer/portalpilot/internal/config"
	"github.com/ibeckermayer/portalpilot/internal/login"
	"github.com/ibeckermayer/portalpilot/internal/query"
)

func main() {
	cfg, err := config.Load()
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	url := cfg.Portal.DefaultURL
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := probe(ctx, cfg, url, logger); err != nil {
		log.Fatalf("Probe failed: %v", err)
	}
}

func probe(ctx context.Context, cfg *config.Config, url string, logger *zap.Logger) error {
	log.Printf("Opening %s...", url)

	page, err := browser.Launch(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer page.Close()

	if err := page.Navigate(ctx, url); err != nil {
		return err
	}
	if err := page.WaitIdle(ctx); err != nil {
		return err
	}

	resolver := app.NewResolver(cfg.Semantic, logger)
	for _, named := range []struct {
		name string
		q    *query.Query
	}{
		{"login form", login.LoginFormQuery},
		{"popup", login.PopupQuery},
		{"exhibitor hub", login.HubQuery},
	} {
		resp, err := resolver.Resolve(ctx, page, named.q)
		if err != nil {
			fmt.Printf("%-14s error: %v\n", named.name, err)
			continue
		}
		for _, leaf := range named.q.Leaves() {
			status := "missing"
			if _, ok := resp.Element(leaf.Path); ok {
				status = "found"
			}
			fmt.Printf("%-14s %-24s %s\n", named.name, leaf.Path, status)
		}
	}

	for _, sel := range []string{cfg.Selectors.Username, cfg.Selectors.Password, cfg.Selectors.Submit} {
		var n int
		expr, err := query.Call(`function (sel) { return document.querySelectorAll(sel).length; }`, sel)
		if err != nil {
			return err
		}
		if err := page.Evaluate(ctx, expr, &n); err != nil {
			return err
		}
		fmt.Printf("%-14s %-24s %d match(es)\n", "fallback", sel, n)
	}
	return nil
}
