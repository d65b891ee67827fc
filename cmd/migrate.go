package cmd

import (
	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/tutor-sessions/config"
	"github.com/meinhoongagan/tutor-sessions/db"
)

func newMigrateCmd(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := db.Open(conf)
			if err != nil {
				return err
			}
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			defer func() {
				sqlDB.Close()
				log.Info("database connection closed")
			}()
			return db.Migrate(gdb)
		},
	}
}
