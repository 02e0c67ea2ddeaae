package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"go-pms-api/internal/model"
)

// AdminAccount is the default administrative user created at bootstrap.
type AdminAccount struct {
	Firstname string
	Lastname  string
	Username  string
	Email     string
	Password  string
}

// Seeder reconciles the default roles and the default admin user against the store.
// Every step is safe to repeat.
type Seeder struct {
	roles  *RoleService
	users  *UserService
	admin  AdminAccount
	logger *slog.Logger

	defaults     []model.DefaultRole
	superAdminID uuid.UUID
}

func NewSeeder(roles *RoleService, users *UserService, admin AdminAccount, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		roles:    roles,
		users:    users,
		admin:    admin,
		logger:   logger,
		defaults: model.DefaultRoles,
	}
}

// AddDefaultRoles creates missing default roles and rewrites the permissions of
// existing ones only when they differ.
func (s *Seeder) AddDefaultRoles(ctx context.Context) error {
	var errs []error
	for _, def := range s.defaults {
		existing, found, err := s.roles.FindByName(ctx, def.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if found {
			if def.Name == model.RoleSuperAdmin {
				s.superAdminID = existing.ID
			}
			if existing.Permissions.Equal(def.Permissions) {
				continue
			}
			res := s.roles.Update(ctx, existing.ID.String(), map[string]any{
				"permissions": def.Permissions,
			})
			if !res.OK() {
				errs = append(errs, fmt.Errorf("seed: update role %s: %s", def.Name, res.Message))
				continue
			}
			s.logger.Info("default role updated", slog.String("role", def.Name))
			continue
		}

		res := s.roles.Create(ctx, &model.Role{
			Name:        def.Name,
			Description: def.Description,
			Permissions: def.Permissions,
		})
		if !res.OK() {
			errs = append(errs, fmt.Errorf("seed: create role %s: %s", def.Name, res.Message))
			continue
		}
		if def.Name == model.RoleSuperAdmin {
			s.superAdminID = res.Value().ID
		}
		s.logger.Info("default role created", slog.String("role", def.Name))
	}
	return errors.Join(errs...)
}

// AddDefaultUser creates the admin account bound to the SuperAdmin role unless
// a user with the reserved username already exists.
func (s *Seeder) AddDefaultUser(ctx context.Context) error {
	_, found, err := s.users.FindByUsername(ctx, s.admin.Username)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if s.superAdminID == uuid.Nil {
		role, ok, err := s.roles.FindByName(ctx, model.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("seed: role %s does not exist", model.RoleSuperAdmin)
		}
		s.superAdminID = role.ID
	}

	user := &model.User{
		Firstname: s.admin.Firstname,
		Lastname:  s.admin.Lastname,
		Username:  s.admin.Username,
		Email:     s.admin.Email,
		RoleID:    s.superAdminID,
	}
	if err := user.SetPassword(s.admin.Password); err != nil {
		return fmt.Errorf("seed: hash admin password: %w", err)
	}
	res := s.users.Create(ctx, user)
	if !res.OK() {
		return fmt.Errorf("seed: create admin %s: %s", s.admin.Username, res.Message)
	}
	s.logger.Info("default admin created", slog.String("username", s.admin.Username))
	return nil
}

// Run reconciles roles, then the admin user. The user step still runs when
// some roles failed so a partial bootstrap makes as much progress as it can.
func (s *Seeder) Run(ctx context.Context) error {
	rolesErr := s.AddDefaultRoles(ctx)
	if rolesErr != nil {
		s.logger.Error("seeding default roles", slog.Any("error", rolesErr))
	}
	userErr := s.AddDefaultUser(ctx)
	if userErr != nil {
		s.logger.Error("seeding default user", slog.Any("error", userErr))
	}
	return errors.Join(rolesErr, userErr)
}
