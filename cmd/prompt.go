package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNoInput = errors.New("no input")

// prompter reads answers from the command's stdin. One reader is shared so
// buffered input survives across questions.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, reader: bufio.NewReader(in), out: cmd.ErrOrStderr()}
}

func (p *prompter) line(question string) (string, error) {
	_, _ = fmt.Fprint(p.out, question)

	input, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && input == "" {
		return "", errNoInput
	}

	return strings.TrimRight(input, "\r\n"), nil
}

// secret reads without echo when stdin is a terminal.
func (p *prompter) secret(question string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(p.out, question)
		raw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	return p.line(question)
}

func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.line(question + " [y/N]: ")
	if errors.Is(err, errNoInput) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *prompter) choose(accounts []domain.Account) (domain.Account, error) {
	for i, account := range accounts {
		_, _ = fmt.Fprintf(p.out, "%d) %s\n", i+1, displayAccountName(account))
	}

	input, err := p.line(fmt.Sprintf("Select account [1-%d]: ", len(accounts)))
	if err != nil {
		return domain.Account{}, err
	}

	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return domain.Account{}, fmt.Errorf("invalid selection %q", strings.TrimSpace(input))
	}
	if choice < 1 || choice > len(accounts) {
		return domain.Account{}, fmt.Errorf("selection out of range: %d", choice)
	}

	return accounts[choice-1], nil
}

func displayAccountName(account domain.Account) string {
	label := sanitizeForTerminal(account.Label())
	email := sanitizeForTerminal(account.User.Email)
	if email == "" || strings.EqualFold(label, email) {
		return label
	}
	return fmt.Sprintf("%s <%s>", label, email)
}

func sanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}
