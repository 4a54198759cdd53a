package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/ppl-accounts-cli/internal/application"
	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const defaultTokenLifetime = time.Hour

type RenderOptions struct {
	Now time.Time
	// TokenLifetime scales the access token bar. Zero means one hour.
	TokenLifetime time.Duration
}

func renderView(summaries []application.AccountSummary, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", countCached(summaries))),
	}

	if len(summaries) == 0 {
		lines = append(lines, s.empty.Render("No accounts yet. Run `ppl account add` to sign in."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, summary := range summaries {
		lines = append(lines, s.section.Render(renderAccount(summary, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func countCached(summaries []application.AccountSummary) int {
	n := 0
	for _, summary := range summaries {
		if summary.Cached {
			n++
		}
	}
	return n
}

func renderAccount(summary application.AccountSummary, opts RenderOptions, s styles) string {
	account := summary.Account

	title := s.account.Render(accountTitle(account))
	if summary.Active {
		title = lipgloss.JoinHorizontal(lipgloss.Top, s.active.Render("* "), title, " ", s.active.Render("(active)"))
	} else {
		title = "  " + title
	}

	parts := []string{title}
	parts = append(parts, "  "+s.detail.Render("id: "+string(account.User.ID)))

	if line := profileLine(account.Profile); line != "" {
		parts = append(parts, "  "+s.detail.Render(line))
	}

	if summary.Active {
		parts = append(parts, "  "+tokenLine(account.Tokens, opts, s))
	}

	if !account.LastUsedAt.IsZero() {
		usedColor := lastUsedColor(account.LastUsedAt, opts.Now)
		used := lipgloss.NewStyle().Foreground(usedColor).Render("last used " + formatAgo(account.LastUsedAt, opts.Now))
		parts = append(parts, "  "+used)
	}

	if !summary.Cached {
		parts = append(parts, "  "+s.warning.Render("[not saved: run `ppl account add` to keep it]"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account domain.Account) string {
	label := account.Label()
	email := strings.TrimSpace(account.User.Email)
	if email == "" || strings.EqualFold(label, email) {
		return label
	}
	return fmt.Sprintf("%s <%s>", label, email)
}

func profileLine(profile *domain.Profile) string {
	if profile == nil {
		return ""
	}

	fields := make([]string, 0, 3)
	if profile.HeightCM > 0 {
		fields = append(fields, "height: "+formatMeasure(profile.HeightCM)+" cm")
	}
	if profile.WeightKG > 0 {
		fields = append(fields, "weight: "+formatMeasure(profile.WeightKG)+" kg")
	}
	if goal := strings.TrimSpace(profile.Goal); goal != "" {
		fields = append(fields, "goal: "+goal)
	}

	return strings.Join(fields, "  ")
}

func formatMeasure(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tokenLine(tokens domain.Tokens, opts RenderOptions, s styles) string {
	label := s.key.Render("token:")
	if tokens.ExpiresAt.IsZero() || opts.Now.IsZero() {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("expiry unknown"))
	}

	lifetime := opts.TokenLifetime
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}

	remaining := tokens.ExpiresAt.Sub(opts.Now)
	leftPercent := clampPercent(remaining.Seconds() / lifetime.Seconds() * 100)
	bar := renderProgressBar(leftPercent, 24, s)

	var meta string
	if remaining <= 0 {
		meta = s.warning.Render("expired, refreshes on next use")
	} else {
		meta = lipgloss.NewStyle().
			Foreground(interpolateColor(leftPercent, 0, 100)).
			Render("expires " + formatIn(tokens.ExpiresAt, opts.Now))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", bar, " ", meta)
}

func renderProgressBar(leftPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(leftPercent) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatIn(at, now time.Time) string {
	return "in " + humanDuration(at.Sub(now))
}

func formatAgo(at, now time.Time) string {
	if now.IsZero() {
		return at.Format("15:04 on 02 Jan 2006")
	}
	elapsed := now.Sub(at)
	if elapsed < time.Minute {
		return "just now"
	}
	return humanDuration(elapsed) + " ago"
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Hour:
		return plural(int(math.Max(1, math.Ceil(d.Minutes()))), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp: 240 faded at min, 255 bright at max.
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(strconv.Itoa(colorCode))
}

// lastUsedColor fades accounts untouched for a week or more.
func lastUsedColor(lastUsed, now time.Time) lipgloss.Color {
	if now.IsZero() || lastUsed.After(now) {
		return lipgloss.Color("255")
	}

	window := 7 * 24 * time.Hour
	elapsed := now.Sub(lastUsed)
	return interpolateColor(window.Seconds()-elapsed.Seconds(), 0, window.Seconds())
}
