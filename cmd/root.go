package cmd

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		logLevel   string
	)

	// Commands share one app, wired after flags are parsed.
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "ppl",
		Short:         "ppl: switch between signed-in workout tracker accounts",
		Long:          "ppl keeps several signed-in accounts for the push/pull/legs tracker on this machine and switches between them without asking for passwords again.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			wired, err := wireApp(wireOptions{
				ConfigFile: configFile,
				LogLevel:   logLevel,
				LogOutput:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			*app = *wired

			return app.manager.Initialize(cmd.Context())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.ppl/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newStatusCmd(app),
		newWhoamiCmd(app),
		newSignOutCmd(app),
	)

	return rootCmd
}
