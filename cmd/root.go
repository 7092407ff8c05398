package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lacefarm",
		Short:         "Provision Lace wallets and register browser sessions in batches",
		Long:          "lacefarm launches isolated Chromium profiles with the Lace wallet extension, creates a wallet in each, registers the wallet on the target site, and keeps the sessions running under an operator console.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newStatusCmd(app),
	)

	return rootCmd
}
