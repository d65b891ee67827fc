// Package cmd holds the command line entry points of the service.
package cmd

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/tutor-sessions/config"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	conf := &config.Config{}
	root := &cobra.Command{
		Use:           "tutor-sessions",
		Short:         "Appointment negotiation and session lifecycle service for tutors and students",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			*conf = *loaded
			log.SetLevel(conf.Level())
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(conf),
		newMigrateCmd(conf),
		newUserCmd(conf),
		newTokenCmd(conf),
	)
	return root
}
