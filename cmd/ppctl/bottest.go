package main

import (
	"bufio"
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/portalpilot/internal/browser"
	"github.com/ibeckermayer/portalpilot/internal/config"
)

const botTestURL = "https://bot.sannysoft.com"

func newBotTestCommand(root *rootOptions) *cobra.Command {
	var (
		engine  string
		stealth bool
	)
	cmd := &cobra.Command{
		Use:   "bot-test",
		Short: "Open bot.sannysoft.com to audit browser fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if engine != "" {
				cfg.Browser.Engine = engine
			}
			if cmd.Flags().Changed("stealth") {
				cfg.Browser.Stealth = stealth
			}
			// non-headless so you can see it
			cfg.Browser.Headless = false
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runBotTest(ctx, cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "Browser engine to audit ("+config.EngineChromedp+" or "+config.EngineRod+")")
	cmd.Flags().BoolVar(&stealth, "stealth", false, "Use stealth pages (rod engine only)")
	return cmd
}

func runBotTest(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Opening %s with the %s engine...\n", botTestURL, cfg.Browser.Engine)

	page, err := browser.Launch(ctx, cfg, cliLogger())
	if err != nil {
		return err
	}
	defer page.Close()

	if err := page.Navigate(ctx, botTestURL); err != nil {
		return err
	}

	fmt.Fprintln(out, "Press Enter to end program...")
	done := make(chan struct{})
	go func() {
		bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	fmt.Fprintln(out, "Done.")
	return nil
}
