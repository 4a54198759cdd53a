package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	sessionrender "github.com/bnema/ppl-accounts-cli/internal/adapters/render/session"
	"github.com/bnema/ppl-accounts-cli/internal/application"
	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var errNoOtherAccounts = errors.New("no other saved accounts to switch to")

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage saved accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountSwitchCmd(app),
		newAccountAddCmd(app),
		newAccountRemoveCmd(app),
	)

	return cmd
}

type accountView struct {
	UserID     string       `json:"user_id"`
	Email      string       `json:"email"`
	Label      string       `json:"label"`
	Active     bool         `json:"active"`
	Cached     bool         `json:"cached"`
	AddedAt    *time.Time   `json:"added_at,omitempty"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
	Profile    *profileView `json:"profile,omitempty"`
}

type profileView struct {
	DisplayName string  `json:"display_name,omitempty"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
	HeightCM    float64 `json:"height_cm,omitempty"`
	WeightKG    float64 `json:"weight_kg,omitempty"`
	Goal        string  `json:"goal,omitempty"`
}

func newAccountListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summaries := app.manager.Summaries()
			if asJSON {
				return writeAccountsJSON(cmd.OutOrStdout(), summaries)
			}
			if len(summaries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No saved accounts.")
				printHint(cmd.ErrOrStderr(), "sign in with `ppl account add`")
				return nil
			}

			writeAccountsTable(cmd.OutOrStdout(), summaries, app.now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func writeAccountsJSON(w io.Writer, summaries []application.AccountSummary) error {
	views := make([]accountView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, newAccountView(summary))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func newAccountView(summary application.AccountSummary) accountView {
	account := summary.Account
	view := accountView{
		UserID: string(account.User.ID),
		Email:  account.User.Email,
		Label:  account.Label(),
		Active: summary.Active,
		Cached: summary.Cached,
	}
	if !account.AddedAt.IsZero() {
		addedAt := account.AddedAt.UTC()
		view.AddedAt = &addedAt
	}
	if !account.LastUsedAt.IsZero() {
		lastUsedAt := account.LastUsedAt.UTC()
		view.LastUsedAt = &lastUsedAt
	}
	if p := account.Profile; p != nil {
		view.Profile = &profileView{
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			HeightCM:    p.HeightCM,
			WeightKG:    p.WeightKG,
			Goal:        p.Goal,
		}
	}

	return view
}

func writeAccountsTable(w io.Writer, summaries []application.AccountSummary, now time.Time) {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		account := summary.Account
		marker := ""
		if summary.Active {
			marker = "*"
		}
		if !summary.Cached {
			marker += " (unsaved)"
		}
		rows = append(rows, []string{
			strings.TrimSpace(marker),
			sanitizeForTerminal(account.Label()),
			sanitizeForTerminal(account.User.Email),
			string(account.User.ID),
			lastUsedCell(account.LastUsedAt, now),
		})
	}

	table.Header([]string{"active", "account", "email", "user id", "last used"})
	table.Bulk(rows)
	table.Render()
}

func lastUsedCell(lastUsed, now time.Time) string {
	if lastUsed.IsZero() {
		return "-"
	}

	elapsed := now.Sub(lastUsed)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return lastUsed.Local().Format("2006-01-02")
	}
}

func newAccountSwitchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch [account]",
		Short: "Switch to a saved account by user id, email or name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target domain.Account
			if len(args) == 1 {
				target = resolveAccount(app.manager.Accounts(), args[0])
			} else {
				others := app.manager.OtherAccounts()
				if len(others) == 0 {
					printHint(cmd.ErrOrStderr(), "add another account with `ppl account add`")
					return errNoOtherAccounts
				}
				chosen, err := newPrompter(cmd).choose(others)
				if err != nil {
					return err
				}
				target = chosen
			}

			err := sessionrender.RunWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Switching account...", func(ctx context.Context) error {
				return app.manager.SwitchTo(ctx, target.User.ID)
			})
			if err != nil {
				printHint(cmd.ErrOrStderr(), switchHint(err, target))
				return err
			}

			active, _ := app.manager.Active()
			printSuccess(cmd.OutOrStdout(), "Switched to %s", displayAccountName(active.AsAccount()))
			return nil
		},
	}
}

func newAccountAddCmd(app *app) *cobra.Command {
	var (
		email         string
		register      bool
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Sign in to an account and save it for switching",
		Long:  "Sign in with an email and password. The current account stays saved, so you can switch back to it later. When no account exists for the email, ppl offers to register it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd)

			if strings.TrimSpace(email) == "" {
				answer, err := p.line("Email: ")
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = answer
			}

			var (
				secret string
				err    error
			)
			if passwordStdin {
				secret, err = p.line("")
			} else {
				secret, err = p.secret("Password: ")
			}
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			mode := domain.AuthModeSignIn
			if register {
				mode = domain.AuthModeRegister
			}

			err = addAccount(cmd, app, application.AddAccountCommand{Email: email, Secret: secret, Mode: mode})
			if domain.KindOf(err) == domain.KindNeedsRegistration {
				ok, promptErr := p.confirm(fmt.Sprintf("No account found for %s. Register it now?", sanitizeForTerminal(strings.TrimSpace(email))))
				if promptErr != nil {
					return promptErr
				}
				if ok {
					err = addAccount(cmd, app, application.AddAccountCommand{Email: email, Secret: secret, Mode: domain.AuthModeRegister})
				}
			}
			if err != nil {
				printHint(cmd.ErrOrStderr(), addHint(err))
				return err
			}

			active, _ := app.manager.Active()
			printSuccess(cmd.OutOrStdout(), "Signed in as %s", displayAccountName(active.AsAccount()))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().BoolVar(&register, "register", false, "Create the account instead of signing in")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from the first line of stdin")

	return cmd
}

func addAccount(cmd *cobra.Command, app *app, add application.AddAccountCommand) error {
	label := "Signing in..."
	if add.Mode == domain.AuthModeRegister {
		label = "Registering..."
	}

	return sessionrender.RunWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, func(ctx context.Context) error {
		return app.manager.AddAccount(ctx, add)
	})
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <account>",
		Aliases: []string{"rm"},
		Short:   "Forget a saved account, signing out when it is the active one",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := resolveAccount(summaryAccounts(app.manager.Summaries()), args[0])

			if err := app.manager.RemoveAccount(cmd.Context(), target.User.ID); err != nil {
				printHint(cmd.ErrOrStderr(), removeHint(err))
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Removed %s", displayAccountName(target))
			return nil
		},
	}
}

// resolveAccount matches selector against user ids first, then emails and
// display names. An unmatched selector is passed through as a user id so the
// manager reports it.
func resolveAccount(accounts []domain.Account, selector string) domain.Account {
	trimmed := strings.TrimSpace(selector)
	for _, account := range accounts {
		if string(account.User.ID) == trimmed {
			return account
		}
	}
	for _, account := range accounts {
		if strings.EqualFold(account.User.Email, trimmed) || strings.EqualFold(account.Label(), trimmed) {
			return account
		}
	}

	return domain.Account{User: domain.User{ID: domain.UserID(trimmed)}}
}

func summaryAccounts(summaries []application.AccountSummary) []domain.Account {
	accounts := make([]domain.Account, 0, len(summaries))
	for _, summary := range summaries {
		accounts = append(accounts, summary.Account)
	}
	return accounts
}
