package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/portalpilot/internal/auth"
	"github.com/ibeckermayer/portalpilot/internal/credentials"
)

func newCredsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "creds",
		Short: "Prompt for credentials and write them to the credential file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			prompter := credentials.NewPrompter(cmd.InOrStdin(), out)

			var rec credentials.Record
			rec.URL, err = prompter.Ask(fmt.Sprintf("Enter URL (press Enter for default: %s): ", cfg.Portal.DefaultURL))
			if err != nil {
				return err
			}
			if rec.URL == "" {
				rec.URL = cfg.Portal.DefaultURL
			}
			if rec.Username, err = prompter.Ask("Enter Login ID: "); err != nil {
				return err
			}
			if rec.Password, err = prompter.AskSecret("Enter Password: "); err != nil {
				return err
			}
			if err := rec.Validate(); err != nil {
				return err
			}

			store := credentials.NewStore(cfg.Credentials.EnvPath, cliLogger())
			if err := store.Save(rec); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved credentials to %s\n", store.Path())
			return nil
		},
	}
}

func newSessionCommand() *cobra.Command {
	var doClear bool
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show or clear the captured session snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := auth.DefaultCookieStorePath()
			if err != nil {
				return err
			}
			cs := auth.NewCookieStore(path)
			out := cmd.OutOrStdout()

			if doClear {
				if err := cs.Clear(); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				fmt.Fprintln(out, "Session snapshot cleared")
				return nil
			}

			stored, err := cs.Load()
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No session snapshot (enable history.capture_cookies to take one)")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Snapshot: %s\n", cs.Path())
			fmt.Fprintf(out, "Captured: %s\n", stored.CapturedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Cookies:  %d\n", len(stored.Cookies))
			fmt.Fprintf(out, "Valid:    %t\n", cs.IsValid())
			return nil
		},
	}
	cmd.Flags().BoolVar(&doClear, "clear", false, "Delete the snapshot")
	return cmd
}
