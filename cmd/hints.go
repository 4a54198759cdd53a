package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/fatih/color"
)

var (
	hintColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen, color.Bold)
)

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprintf(w, format+"\n", args...)
}

func printHint(w io.Writer, hint string) {
	if hint == "" {
		return
	}
	_, _ = hintColor.Fprintf(w, "hint: %s\n", hint)
}

const rateLimitedHint = "the backend is rate limiting sign-ins, wait a minute and try again"

func switchHint(err error, target domain.Account) string {
	if errors.Is(err, domain.ErrRateLimited) {
		return rateLimitedHint
	}

	switch domain.KindOf(err) {
	case domain.KindAuthFailure:
		if target.User.Email != "" {
			return fmt.Sprintf("you may need to re-add this account: ppl account add --email %s", sanitizeForTerminal(target.User.Email))
		}
		return "you may need to re-add this account with `ppl account add`"
	case domain.KindNotFound:
		return "run `ppl account list` to see the saved accounts"
	case domain.KindBusy:
		return "another account change is still running, try again in a moment"
	case domain.KindUnknown:
		return "check your connection to the backend and try again"
	default:
		return ""
	}
}

func addHint(err error) string {
	if errors.Is(err, domain.ErrConfirmationRequired) {
		return "confirm the email address, then run `ppl account add` again"
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return rateLimitedHint
	}

	switch domain.KindOf(err) {
	case domain.KindNeedsRegistration:
		return "rerun with --register to create this account"
	case domain.KindAuthFailure:
		return "check the email and password"
	case domain.KindInvalidInput:
		return "an email address and a password are required"
	case domain.KindBusy:
		return "another account change is still running, try again in a moment"
	default:
		return ""
	}
}

func removeHint(err error) string {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return "run `ppl account list` to see the saved accounts"
	case domain.KindBusy:
		return "another account change is still running, try again in a moment"
	default:
		return ""
	}
}
