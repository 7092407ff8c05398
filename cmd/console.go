package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/minhvn/lacefarm/internal/adapters/render/dashboard"
	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/spf13/cobra"
)

const consoleMenu = `  1) refresh dashboard
  2) stop sessions
  3) restart sessions
  4) session detail
  5) exit`

// runConsole drives the interactive operator loop until exit or EOF.
// Exiting stops every session first; a live browser with no
// controlling process would be unreachable.
func runConsole(cmd *cobra.Command, app *app, reader *bufio.Reader, password string) error {
	out := cmd.OutOrStdout()

	printDashboard(cmd, app)

	for {
		fmt.Fprintln(out, consoleMenu)
		choice, err := promptLine(cmd, reader, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch choice {
		case "", "1", "refresh", "status":
			printDashboard(cmd, app)

		case "2", "stop":
			ids, err := promptTargets(cmd, reader, app)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := app.operator.Stop(cmd.Context(), ids); err != nil {
				fmt.Fprintln(out, err)
			}
			printDashboard(cmd, app)

		case "3", "restart":
			ids, err := promptTargets(cmd, reader, app)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := app.operator.Restart(cmd.Context(), ids, password); err != nil {
				fmt.Fprintln(out, err)
			}
			printDashboard(cmd, app)

		case "4", "detail":
			raw, err := promptLine(cmd, reader, "session id: ")
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			id, err := parsePositiveInt(raw)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			detail, err := app.operator.Detail(cmd.Context(), domain.SessionID(id))
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			fmt.Fprintln(out, app.detailRender(detail, dashboard.RenderOptions{Now: app.now()}))

		case "5", "exit", "quit", "q":
			if err := app.operator.StopAll(cmd.Context()); err != nil {
				app.log.Warn().Err(err).Msg("stop all on exit")
			}
			return nil

		default:
			fmt.Fprintf(out, "unknown choice %q\n", choice)
		}
	}

	if err := app.operator.StopAll(cmd.Context()); err != nil {
		app.log.Warn().Err(err).Msg("stop all on exit")
	}
	return nil
}

func promptTargets(cmd *cobra.Command, reader *bufio.Reader, app *app) ([]domain.SessionID, error) {
	raw, err := promptLine(cmd, reader, `session ids (or "all"): `)
	if err != nil {
		return nil, err
	}
	return parseTargets(app.operator.IDs(), raw)
}

func printDashboard(cmd *cobra.Command, app *app) {
	rendered := app.tableRenderer(app.operator.Sessions(), app.operator.Summarize(), dashboard.RenderOptions{Now: app.now()})
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
}

// parseTargets resolves "all" or a comma-separated id list against the
// known sessions.
func parseTargets(known []domain.SessionID, raw string) ([]domain.SessionID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("expected a session id list or \"all\"")
	}

	if strings.EqualFold(raw, "all") {
		if len(known) == 0 {
			return nil, fmt.Errorf("no sessions yet")
		}
		return known, nil
	}

	seen := make(map[domain.SessionID]bool)
	var ids []domain.SessionID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := parsePositiveInt(part)
		if err != nil {
			return nil, err
		}
		id := domain.SessionID(value)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("expected a session id list or \"all\"")
	}
	return ids, nil
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return 0, fmt.Errorf("%q is not a positive number", raw)
	}
	return value, nil
}
