package cmd

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "snip",
		Short:         "Snippets CLI (snip): sign in and talk to a snippets server",
		Long:          "snip keeps you signed in to a snippets server. It keeps the session tokens in pass or a private file, refreshes them when they expire, and sends authenticated API calls on your behalf.",
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

	rootCmd.PersistentFlags().BoolVarP(&app.quiet, "quiet", "q", false, "Do not show progress spinners")

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newRegisterCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newStatusCmd(app),
		newProfileCmd(app),
		newPasswordCmd(app),
		newAPICmd(app),
		newConfigCmd(app),
	)

	return rootCmd
}
