package cmd

import (
	"errors"
	"fmt"

	sessionrender "github.com/bnema/ppl-accounts-cli/internal/adapters/render/session"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in")

func newStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session and every saved account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rendered, err := app.sessionRenderer(app.manager.Summaries(), sessionrender.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render accounts: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func newWhoamiCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the active account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			active, ok := app.manager.Active()
			if !ok {
				printHint(cmd.ErrOrStderr(), "sign in with `ppl account add`")
				return errNotSignedIn
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", active.User.ID, displayAccountName(active.AsAccount()))
			return err
		},
	}
}

func newSignOutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out of the active account and keep it saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			active, ok := app.manager.Active()
			if !ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Already signed out.")
				return err
			}

			if err := app.manager.SignOut(cmd.Context()); err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Signed out of %s", displayAccountName(active.AsAccount()))
			return nil
		},
	}
}
