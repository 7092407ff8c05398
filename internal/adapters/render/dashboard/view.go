// Package dashboard renders the operator's view of all sessions.
package dashboard

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/minhvn/lacefarm/internal/application"
	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/olekukonko/tablewriter"
)

type RenderOptions struct {
	Now time.Time
}

// Render draws the aggregate session table with per-status counts.
func Render(sessions []domain.Session, summary application.Summary, opts RenderOptions) string {
	s := newStyles()

	lines := []string{
		s.title.Render("Wallet Sessions"),
		s.header.Render(summaryLine(summary)),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No sessions yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.Header("ID", "STATUS", "STARTED", "LAST ERROR")

	for _, session := range sessions {
		table.Append(
			fmt.Sprintf("%d", session.ID),
			statusLabel(session, s),
			startedLabel(session, opts.Now),
			session.LastError,
		)
	}
	_ = table.Render()

	lines = append(lines, buf.String())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderDetail draws one session's record and credential artifact.
func RenderDetail(detail application.SessionDetail, opts RenderOptions) string {
	s := newStyles()

	lines := []string{
		s.title.Render(fmt.Sprintf("Session %d", detail.Session.ID)),
		field(s, "status", statusLabel(detail.Session, s)),
		field(s, "started", startedLabel(detail.Session, opts.Now)),
		field(s, "live environment", yesNo(detail.Live)),
	}

	if detail.Session.LastError != "" {
		lines = append(lines, field(s, "last error", s.warning.Render(detail.Session.LastError)))
	}

	if detail.HasCredential {
		lines = append(lines,
			field(s, "wallet", detail.Credential.Name),
			field(s, "mnemonic", detail.Credential.Mnemonic),
			field(s, "password", detail.Credential.Password),
		)
	} else {
		lines = append(lines, s.empty.Render("no credential artifact on disk"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func summaryLine(summary application.Summary) string {
	parts := []string{
		fmt.Sprintf("total: %d", summary.Total),
		fmt.Sprintf("running: %d", summary.Running),
		fmt.Sprintf("stopped: %d", summary.Stopped),
		fmt.Sprintf("failed: %d", summary.Failed),
	}
	if summary.Pending > 0 {
		parts = append(parts, fmt.Sprintf("pending: %d", summary.Pending))
	}
	if summary.RateLimited > 0 {
		parts = append(parts, fmt.Sprintf("rate-limited: %d", summary.RateLimited))
	}
	return strings.Join(parts, "  ")
}

func statusLabel(session domain.Session, s styles) string {
	switch session.Status {
	case domain.SessionPending:
		return s.pending.Render(string(session.Status))
	case domain.SessionRunning:
		return s.running.Render(string(session.Status))
	case domain.SessionStopped:
		return s.stopped.Render(string(session.Status))
	case domain.SessionFailed:
		if session.RateLimited() {
			return s.failed.Render("failed (rate-limited)")
		}
		return s.failed.Render(string(session.Status))
	}
	return string(session.Status)
}

func startedLabel(session domain.Session, now time.Time) string {
	if session.StartedAt.IsZero() {
		return "-"
	}
	if now.IsZero() {
		return session.StartedAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(session.StartedAt)
	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	default:
		return fmt.Sprintf("%.1fh ago", elapsed.Hours())
	}
}

func field(s styles, label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(label+": "), s.value.Render(value))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
