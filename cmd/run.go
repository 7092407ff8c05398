package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	var (
		sessions int
		password string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision and register wallet sessions, then open the operator console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())

			if sessions < 1 {
				count, err := promptInt(cmd, reader, "How many sessions? ")
				if err != nil {
					return err
				}
				sessions = count
			}

			if password == "" {
				value, err := promptLine(cmd, reader, "Wallet password: ")
				if err != nil {
					return err
				}
				password = value
			}
			if password == "" {
				return fmt.Errorf("wallet password must not be empty")
			}

			if err := app.operator.LoadState(cmd.Context()); err != nil {
				return err
			}

			if err := app.scheduler.RunAll(cmd.Context(), sessions, password); err != nil {
				return fmt.Errorf("run sessions: %w", err)
			}

			return runConsole(cmd, app, reader, password)
		},
	}

	cmd.Flags().IntVar(&sessions, "sessions", 0, "Number of wallet sessions to run")
	cmd.Flags().StringVar(&password, "password", "", "Wallet spending password (prompted when omitted)")

	return cmd
}

func promptLine(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptInt(cmd *cobra.Command, reader *bufio.Reader, prompt string) (int, error) {
	line, err := promptLine(cmd, reader, prompt)
	if err != nil {
		return 0, err
	}
	value, err := parsePositiveInt(line)
	if err != nil {
		return 0, err
	}
	return value, nil
}
