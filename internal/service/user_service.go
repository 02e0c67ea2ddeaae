package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"go-pms-api/internal/model"
	"go-pms-api/pkg/validator"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidRole       = errors.New("invalid role")
	ErrRoleNotGrantable  = errors.New("role grants permissions the caller does not hold")
	ErrUserNotManageable = errors.New("user holds permissions the caller does not hold")
)

type CreateUserRequest struct {
	Firstname string `json:"firstname" validate:"required,max=250"`
	Lastname  string `json:"lastname" validate:"required,max=250"`
	Username  string `json:"username" validate:"required,max=250"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=18,strong_password"`
	RoleID    string `json:"role_id" validate:"omitempty,uuid"`
}

// UserService manages users. Permissions are never stored on users;
// they are resolved through the referenced role.
type UserService struct {
	*RecordService[model.User]
	roles *RoleService
}

func NewUserService(records *RecordService[model.User], roles *RoleService) *UserService {
	return &UserService{RecordService: records, roles: roles}
}

// CreateUser registers a user. Without an explicit role the user becomes a Viewer.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) Result[model.User] {
	return s.createUser(ctx, nil, req)
}

// CreateUserAs registers a user on behalf of actor. An explicit role is only
// accepted when actor may grant it.
func (s *UserService) CreateUserAs(ctx context.Context, actor Principal, req CreateUserRequest) Result[model.User] {
	return s.createUser(ctx, &actor, req)
}

func (s *UserService) createUser(ctx context.Context, actor *Principal, req CreateUserRequest) Result[model.User] {
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return Failed[model.User](http.StatusBadRequest, "Validation failed: "+errs[0].Error())
	}

	roleID, err := s.resolveRole(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, ErrInvalidRole) {
			return Failed[model.User](http.StatusBadRequest, err.Error())
		}
		return Failed[model.User](http.StatusInternalServerError, err.Error())
	}
	if actor != nil && req.RoleID != "" {
		if res, ok := s.authorize(ctx, *actor, roleID.String(), ErrRoleNotGrantable); !ok {
			return res
		}
	}

	user := &model.User{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		RoleID:    roleID,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return Failed[model.User](http.StatusInternalServerError, "failed to hash password")
	}
	return s.Create(ctx, user)
}

// UpdateAs applies an update on behalf of actor. Assigning a role requires
// holding every permission of that role. Changing another user's role or
// password requires holding every permission of that user.
func (s *UserService) UpdateAs(ctx context.Context, actor Principal, id string, data map[string]any) Result[model.User] {
	_, setsRole := data["role_id"]
	_, setsPassword := data["password"]
	if !setsRole && !setsPassword {
		return s.Update(ctx, id, data)
	}
	if setsRole {
		roleID, _ := data["role_id"].(string)
		if !s.roles.AllRoleIDsValid(ctx, []string{roleID}) {
			return Failed[model.User](http.StatusBadRequest, ErrInvalidRole.Error())
		}
		if res, ok := s.authorize(ctx, actor, roleID, ErrRoleNotGrantable); !ok {
			return res
		}
	}
	if !isSelf(actor, id) {
		target := s.FindOne(ctx, id)
		if !target.OK() {
			return target
		}
		if res, ok := s.authorize(ctx, actor, target.Value().RoleID.String(), ErrUserNotManageable); !ok {
			return res
		}
	}
	return s.Update(ctx, id, data)
}

// DeleteAs removes a user on behalf of actor, who must hold every permission of that user.
func (s *UserService) DeleteAs(ctx context.Context, actor Principal, id string) Result[model.User] {
	if !isSelf(actor, id) {
		target := s.FindOne(ctx, id)
		if !target.OK() {
			return target
		}
		if res, ok := s.authorize(ctx, actor, target.Value().RoleID.String(), ErrUserNotManageable); !ok {
			return res
		}
	}
	return s.Delete(ctx, id)
}

// authorize checks that actor holds every permission of the role, or may manage roles outright.
func (s *UserService) authorize(ctx context.Context, actor Principal, roleID string, denied error) (Result[model.User], bool) {
	if actor.Has(model.RolePermissions.Edit) {
		return Result[model.User]{}, true
	}
	perms, err := s.roles.PermissionsForRoles(ctx, []string{roleID})
	if err != nil {
		return Failed[model.User](http.StatusInternalServerError, err.Error()), false
	}
	for _, p := range perms {
		if !actor.Has(p) {
			return Failed[model.User](http.StatusForbidden, denied.Error()), false
		}
	}
	return Result[model.User]{}, true
}

func isSelf(actor Principal, id string) bool {
	key, err := uuid.Parse(id)
	return err == nil && key == actor.User.ID
}

// Update hashes a supplied password and checks a supplied role before writing.
func (s *UserService) Update(ctx context.Context, id string, data map[string]any) Result[model.User] {
	if raw, ok := data["password"]; ok {
		pw, ok := raw.(string)
		if !ok || !validator.StrongPassword(pw) || len(pw) < 8 || len(pw) > 18 {
			return Failed[model.User](http.StatusBadRequest, "Validation failed: weak password")
		}
		hashed, err := model.HashPassword(pw)
		if err != nil {
			return Failed[model.User](http.StatusInternalServerError, "failed to hash password")
		}
		data["password"] = hashed
	}
	if raw, ok := data["role_id"]; ok {
		roleID, _ := raw.(string)
		if !s.roles.AllRoleIDsValid(ctx, []string{roleID}) {
			return Failed[model.User](http.StatusBadRequest, ErrInvalidRole.Error())
		}
	}
	return s.RecordService.Update(ctx, id, data)
}

// ResetPassword replaces the password of the user with the given username.
func (s *UserService) ResetPassword(ctx context.Context, username, password string) error {
	user, ok, err := s.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	hashed, err := model.HashPassword(password)
	if err != nil {
		return err
	}
	res := s.RecordService.Update(ctx, user.ID.String(), map[string]any{"password": hashed})
	if !res.OK() {
		return fmt.Errorf("service: reset password: %s", res.Message)
	}
	return nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (model.User, bool, error) {
	return s.findBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (model.User, bool, error) {
	return s.findBy(ctx, "username", username)
}

// PermissionsOf resolves the effective permissions of a user through its role.
func (s *UserService) PermissionsOf(ctx context.Context, user model.User) ([]string, error) {
	return s.roles.PermissionsForRoles(ctx, []string{user.RoleID.String()})
}

func (s *UserService) findBy(ctx context.Context, column, value string) (model.User, bool, error) {
	res := s.FindAll(ctx, map[string]any{column: value})
	if !res.OK() {
		return model.User{}, false, fmt.Errorf("service: find user by %s: %s", column, res.Message)
	}
	rows := res.Value()
	if len(rows) == 0 {
		return model.User{}, false, nil
	}
	return rows[0], true, nil
}

func (s *UserService) resolveRole(ctx context.Context, requested string) (uuid.UUID, error) {
	if requested != "" {
		if !s.roles.AllRoleIDsValid(ctx, []string{requested}) {
			return uuid.Nil, ErrInvalidRole
		}
		return uuid.Parse(requested)
	}
	viewer, ok, err := s.roles.FindByName(ctx, model.RoleViewer)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: default role %s is missing", ErrInvalidRole, model.RoleViewer)
	}
	return viewer.ID, nil
}
