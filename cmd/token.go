package cmd

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/tutor-sessions/config"
	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/models"
)

func newTokenCmd(conf *config.Config) *cobra.Command {
	var (
		id   uint
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if conf.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			r, err := models.ParseRole(role)
			if err != nil {
				return err
			}
			actor := models.Actor{ID: id, Role: r}
			if err := actor.Validate(); err != nil {
				return err
			}
			token, err := middleware.GenerateToken(conf.JWTSecret, actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&id, "id", 0, "User id")
	cmd.Flags().StringVar(&role, "role", "", "student or tutor")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
