package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meinhoongagan/tutor-sessions/config"
	"github.com/meinhoongagan/tutor-sessions/db"
	"github.com/meinhoongagan/tutor-sessions/feed"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/store/gormstore"
)

func newUserCmd(conf *config.Config) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage the notification directory",
	}

	var name, email, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user so they can receive notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := models.ParseRole(role)
			if err != nil {
				return err
			}
			gdb, err := db.Open(conf)
			if err != nil {
				return err
			}
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			u := &models.User{Name: name, Email: email, Role: r}
			if err := gormstore.New(gdb, feed.NewLocal()).InsertUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d added\n", u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")
	add.Flags().StringVar(&email, "email", "", "Email address")
	add.Flags().StringVar(&role, "role", "", "student or tutor")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("role")

	user.AddCommand(add)
	return user
}
