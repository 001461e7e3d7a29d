package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "cyclereplay",
		Short:         "Replay recorded GPS tracks through the haul cycle detector",
		Long:          "cyclereplay feeds a recorded track of GPS fixes through the same cycle engine the API uses and reports the haul cycles it detects.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "engine log level (debug, info, warn, error)")

	newLogger := func(cmd *cobra.Command) *logrus.Logger {
		log := logrus.New()
		log.SetOutput(cmd.ErrOrStderr())
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			level = logrus.WarnLevel
		}
		log.SetLevel(level)
		return log
	}

	rootCmd.AddCommand(
		newRunCmd(newLogger),
		newValidateCmd(),
	)
	return rootCmd
}
