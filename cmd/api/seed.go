package main

import (
	"context"
	"errors"
	"log/slog"

	"go-pms-api/internal/config"
	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
	"go-pms-api/pkg/database"
)

// runSeed reconciles the default roles and admin user without starting workers.
// Failures only change the exit status when strict is set.
func runSeed(ctx context.Context, cfg *config.Config, logger *slog.Logger, strict bool) error {
	err := seed(ctx, cfg, logger)
	if err == nil {
		logger.Info("seeding complete")
		return nil
	}
	logger.Error("seeding failed", slog.Any("error", err))
	if strict {
		return exitCodeError{code: 1}
	}
	return nil
}

func seed(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD must be set to seed the admin user")
	}
	manager, err := database.NewManager(cfg.Database(), model.Entities(), database.WithLogger(logger))
	if err != nil {
		return err
	}
	defer manager.Close()
	if _, err := manager.Connect(ctx); err != nil {
		return err
	}

	roleRecords, err := service.NewRecordService[model.Role](manager, service.WithLogger(logger))
	if err != nil {
		return err
	}
	userRecords, err := service.NewRecordService[model.User](manager, service.WithLogger(logger))
	if err != nil {
		return err
	}
	permCache, closeCache := newPermissionCache(ctx, cfg, logger)
	defer closeCache()

	roles := service.NewRoleService(roleRecords, permCache, logger)
	users := service.NewUserService(userRecords, roles)
	return service.NewSeeder(roles, users, adminAccount(cfg), logger).Run(ctx)
}

// adminAccount returns the default administrative account created at bootstrap.
func adminAccount(cfg *config.Config) service.AdminAccount {
	return service.AdminAccount{
		Firstname: cfg.AdminFirstname,
		Lastname:  cfg.AdminLastname,
		Username:  cfg.AdminUsername,
		Email:     cfg.AdminEmail,
		Password:  cfg.AdminPassword,
	}
}
