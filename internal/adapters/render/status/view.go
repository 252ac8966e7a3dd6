package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/snippets-cli/internal/application"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
}

func renderView(status application.Status, opts RenderOptions, s styles) string {
	label := status.Session.Status.Label()
	lines := []string{
		s.title.Render("Snippets Session"),
		s.header.Render(fmt.Sprintf("profile: %s  server: %s", orNone(status.Profile), orNone(status.BaseURL))),
		lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render("status:"), " ", s.badge(label).Render(label)),
	}

	if status.Session.Error != "" {
		lines = append(lines, s.warning.Render("error: "+status.Session.Error))
	}

	if status.Session.User == nil {
		lines = append(lines, s.empty.Render("Not logged in."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	user := status.Session.User
	identity := []string{s.user.Render(user.DisplayName())}
	if user.Username != "" && user.Username != user.DisplayName() {
		identity = append(identity, s.detail.Render("@"+user.Username))
	}
	if user.Email != "" && user.Email != user.DisplayName() {
		identity = append(identity, s.detail.Render("<"+user.Email+">"))
	}

	section := lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(identity, " "),
		tokenLine(status.AccessToken, opts, s),
	)
	lines = append(lines, s.section.Render(section))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func tokenLine(info application.AccessTokenInfo, opts RenderOptions, s styles) string {
	label := s.key.Render("access token:")
	if info.ExpiresAt == nil {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("opaque (expiry unknown)"))
	}

	parts := []string{label}
	if !opts.Now.IsZero() && info.IssuedAt != nil {
		parts = append(parts, " ", renderLifetimeBar(*info.IssuedAt, *info.ExpiresAt, opts.Now, 24, s))
	}
	parts = append(parts, " ", s.detail.Render(formatExpiry(*info.ExpiresAt, opts.Now)))

	if info.Expired(opts.Now) && !opts.Now.IsZero() {
		parts = append(parts, " ", s.warning.Render("[expired, refreshed on next request]"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderLifetimeBar fills in proportion to the lifetime the token has left.
func renderLifetimeBar(issuedAt, expiresAt, now time.Time, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	lifetime := expiresAt.Sub(issuedAt)
	left := 0.0
	if lifetime > 0 {
		left = expiresAt.Sub(now).Seconds() / lifetime.Seconds()
	}
	left = math.Max(0, math.Min(1, left))

	filled := int(math.Round(float64(width) * left))
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatExpiry(expiresAt, now time.Time) string {
	if now.IsZero() {
		return "expires " + expiresAt.Format(time.RFC3339)
	}
	if !now.Before(expiresAt) {
		return "expired " + expiresAt.Format("15:04")
	}

	remaining := expiresAt.Sub(now)
	switch {
	case remaining < time.Hour:
		return fmt.Sprintf("expires in %s (%s)", plural(int(math.Ceil(remaining.Minutes())), "minute"), expiresAt.Format("15:04"))
	case remaining < 24*time.Hour:
		return fmt.Sprintf("expires in %s (%s)", plural(int(math.Ceil(remaining.Hours())), "hour"), expiresAt.Format("15:04"))
	default:
		return fmt.Sprintf("expires in %s (%s)", plural(int(math.Ceil(remaining.Hours()/24)), "day"), expiresAt.Format("15:04 on 02 Jan"))
	}
}

func plural(n int, unit string) string {
	if n < 1 {
		n = 1
	}
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "n/a"
	}
	return value
}
