package service_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
	"go-pms-api/pkg/jwt"
)

func validUser() service.CreateUserRequest {
	return service.CreateUserRequest{
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Username:  "ada",
		Email:     "Ada@Example.com",
		Password:  "Engine#1843",
	}
}

func TestCreateUserDefaultsToViewer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	res := f.users.CreateUser(ctx, validUser())
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	user := res.Value()
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "Engine#1843", user.Password)
	assert.True(t, user.CheckPassword("Engine#1843"))

	viewer, _, err := f.roles.FindByName(ctx, model.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, viewer.ID, user.RoleID)
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	weak := validUser()
	weak.Password = "password"
	assert.Equal(t, http.StatusBadRequest, f.users.CreateUser(ctx, weak).StatusCode)

	badRole := validUser()
	badRole.RoleID = uuid.NewString()
	assert.Equal(t, http.StatusBadRequest, f.users.CreateUser(ctx, badRole).StatusCode)

	require.True(t, f.users.CreateUser(ctx, validUser()).OK())
	assert.Equal(t, http.StatusConflict, f.users.CreateUser(ctx, validUser()).StatusCode)
}

func TestCreateUserWithoutViewerRole(t *testing.T) {
	f := newFixture(t, nil)
	res := f.users.CreateUser(t.Context(), validUser())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	created := f.users.CreateUser(ctx, validUser())
	require.True(t, created.OK())
	id := created.Value().ID.String()

	res := f.users.Update(ctx, id, map[string]any{"password": "Newer#pass9"})
	require.True(t, res.OK(), res.Message)
	assert.True(t, res.Value().CheckPassword("Newer#pass9"))

	res = f.users.Update(ctx, id, map[string]any{"password": "weak"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = f.users.Update(ctx, id, map[string]any{"role_id": "bad-id"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	require.NoError(t, f.users.ResetPassword(ctx, testAdmin.Username, "Reset#pass1"))
	admin, _, err := f.users.FindByUsername(ctx, testAdmin.Username)
	require.NoError(t, err)
	assert.True(t, admin.CheckPassword("Reset#pass1"))

	assert.ErrorIs(t, f.users.ResetPassword(ctx, "nobody", "Reset#pass1"), service.ErrUserNotFound)
}

func TestLoginAndRefresh(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	bad := f.auth.Login(ctx, testAdmin.Email, "wrong")
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	login := f.auth.Login(ctx, testAdmin.Email, testAdmin.Password)
	require.True(t, login.OK(), login.Message)
	pair := login.Value().TokenPair
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.ElementsMatch(t, service.AllCatalogPermissions(), login.Value().Permissions)

	principal, err := f.auth.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testAdmin.Username, principal.User.Username)
	assert.True(t, principal.Has("delete_role"))

	_, err = f.auth.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalid)

	refreshed := f.auth.Refresh(ctx, pair.RefreshToken)
	require.True(t, refreshed.OK(), refreshed.Message)
	assert.NotEmpty(t, refreshed.Value().AccessToken)

	wrongKind := f.auth.Refresh(ctx, pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, wrongKind.StatusCode)
	assert.Equal(t, "Invalid token", wrongKind.Message)
}

func TestRefreshExpired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	admin, _, err := f.users.FindByUsername(ctx, testAdmin.Username)
	require.NoError(t, err)

	expired := jwt.NewTokenManager("test-secret", "go-pms-api", -time.Minute, -time.Minute)
	token, err := expired.GenerateToken(jwt.Payload{UserID: admin.ID.String()}, jwt.Refresh)
	require.NoError(t, err)

	res := f.auth.Refresh(ctx, token)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Token expired", res.Message)

	res = f.auth.Refresh(ctx, "garbage")
	assert.Equal(t, "Invalid token", res.Message)
}

func principalFor(t *testing.T, f *fixture, user model.User) service.Principal {
	t.Helper()
	perms, err := f.users.PermissionsOf(t.Context(), user)
	require.NoError(t, err)
	return service.Principal{User: user, Permissions: perms}
}

func TestUpdateAsRejectsRoleEscalation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	adminRole, ok, err := f.roles.FindByName(ctx, "Admin")
	require.NoError(t, err)
	require.True(t, ok)
	superRole, ok, err := f.roles.FindByName(ctx, model.RoleSuperAdmin)
	require.NoError(t, err)
	require.True(t, ok)
	root, ok, err := f.users.FindByUsername(ctx, testAdmin.Username)
	require.NoError(t, err)
	require.True(t, ok)

	req := validUser()
	req.RoleID = adminRole.ID.String()
	created := f.users.CreateUserAs(ctx, principalFor(t, f, root), req)
	require.True(t, created.OK(), created.Message)
	alice := principalFor(t, f, created.Value())
	id := created.Value().ID.String()

	res := f.users.UpdateAs(ctx, alice, id, map[string]any{"role_id": superRole.ID.String()})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = f.users.UpdateAs(ctx, alice, root.ID.String(), map[string]any{"password": "Hijack#123"})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, http.StatusForbidden, f.users.DeleteAs(ctx, alice, root.ID.String()).StatusCode)

	other := validUser()
	other.Username, other.Email, other.RoleID = "grace", "grace@example.com", superRole.ID.String()
	assert.Equal(t, http.StatusForbidden, f.users.CreateUserAs(ctx, alice, other).StatusCode)

	stored := f.users.FindOne(ctx, id)
	require.True(t, stored.OK())
	assert.Equal(t, adminRole.ID, stored.Value().RoleID)
	reloaded := f.users.FindOne(ctx, root.ID.String())
	require.True(t, reloaded.OK())
	assert.True(t, reloaded.Value().CheckPassword(testAdmin.Password))
}

func TestUpdateAsAllowsGrantableChanges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	adminRole, ok, err := f.roles.FindByName(ctx, "Admin")
	require.NoError(t, err)
	require.True(t, ok)
	viewerRole, ok, err := f.roles.FindByName(ctx, model.RoleViewer)
	require.NoError(t, err)
	require.True(t, ok)
	root, ok, err := f.users.FindByUsername(ctx, testAdmin.Username)
	require.NoError(t, err)
	require.True(t, ok)

	req := validUser()
	req.RoleID = adminRole.ID.String()
	created := f.users.CreateUserAs(ctx, principalFor(t, f, root), req)
	require.True(t, created.OK(), created.Message)
	alice := principalFor(t, f, created.Value())

	other := validUser()
	other.Username, other.Email, other.RoleID = "grace", "grace@example.com", viewerRole.ID.String()
	grace := f.users.CreateUserAs(ctx, alice, other)
	require.True(t, grace.OK(), grace.Message)
	graceID := grace.Value().ID.String()

	res := f.users.UpdateAs(ctx, alice, graceID, map[string]any{"password": "Cobol#1959", "role_id": viewerRole.ID.String()})
	require.True(t, res.OK(), res.Message)
	assert.True(t, res.Value().CheckPassword("Cobol#1959"))

	res = f.users.UpdateAs(ctx, alice, created.Value().ID.String(), map[string]any{"password": "Engine#1844"})
	require.True(t, res.OK(), res.Message)

	assert.True(t, f.users.DeleteAs(ctx, alice, graceID).OK())
}
