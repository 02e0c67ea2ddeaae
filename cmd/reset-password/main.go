package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-pms-api/internal/config"
	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
	"go-pms-api/pkg/database"
	"go-pms-api/pkg/validator"
)

func main() {
	if err := newCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:           "reset-password",
		Short:         "Reset a user's password, by default the seeded admin's",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg)
			if username == "" {
				username = cfg.AdminUsername
			}
			if password == "" {
				password = cfg.AdminPassword
			}
			if !validator.StrongPassword(password) {
				return fmt.Errorf("password must contain upper and lower case letters, a digit and a symbol")
			}

			manager, err := database.NewManager(cfg.Database(), model.Entities(), database.WithLogger(logger))
			if err != nil {
				return err
			}
			defer manager.Close()

			roleRecords, err := service.NewRecordService[model.Role](manager, service.WithLogger(logger))
			if err != nil {
				return err
			}
			userRecords, err := service.NewRecordService[model.User](manager, service.WithLogger(logger))
			if err != nil {
				return err
			}
			users := service.NewUserService(userRecords, service.NewRoleService(roleRecords, nil, logger))
			if err := users.ResetPassword(cmd.Context(), username, password); err != nil {
				return fmt.Errorf("reset password for %s: %w", username, err)
			}
			logger.Info("password reset", slog.String("username", username))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user to reset (default ADMIN_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "new password (default ADMIN_PASSWORD)")
	return cmd
}
