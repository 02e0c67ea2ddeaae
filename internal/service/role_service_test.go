package service_test

import (
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pms-api/internal/cache"
	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
)

func TestAllCatalogPermissions(t *testing.T) {
	all := service.AllCatalogPermissions()
	assert.Len(t, all, 25)
	assert.Contains(t, all, "add_role")
	assert.Contains(t, all, "get_all_comments")
	assert.Contains(t, all, "get_details_task")

	assert.NoError(t, service.ValidatePermissions([]string{"add_task", "delete_user"}))
	err := service.ValidatePermissions([]string{"add_task", "fly", "swim"})
	require.Error(t, err)
	assert.Equal(t, "Invalid permissions: fly, swim", err.Error())
}

func TestCreateRoleValidatesCatalog(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	res := f.roles.CreateRole(ctx, service.CreateRoleRequest{Name: "Pilot", Description: "d", Permissions: []string{"fly"}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = f.roles.CreateRole(ctx, service.CreateRoleRequest{Name: " Pilot ", Description: "d", Permissions: []string{"add_task", "add_task"}})
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "Pilot", res.Value().Name)
	assert.Equal(t, model.PermissionSet{"add_task"}, res.Value().Permissions)

	upd := f.roles.Update(ctx, res.Value().ID.String(), map[string]any{"permissions": []any{"walk"}})
	assert.Equal(t, http.StatusBadRequest, upd.StatusCode)
}

func TestUpdateRoleRejectsMissingPermissionList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	res := f.roles.CreateRole(ctx, service.CreateRoleRequest{Name: "Pilot", Description: "d", Permissions: []string{"add_task"}})
	require.True(t, res.OK(), res.Message)
	id := res.Value().ID.String()

	for _, raw := range []any{nil, "add_task", 7, map[string]any{"add_task": true}} {
		upd := f.roles.Update(ctx, id, map[string]any{"permissions": raw})
		assert.Equal(t, http.StatusBadRequest, upd.StatusCode, "%v", raw)
		assert.Equal(t, "permissions must be an array of strings", upd.Message)
	}

	found := f.roles.FindOne(ctx, id)
	require.True(t, found.OK())
	assert.Equal(t, model.PermissionSet{"add_task"}, found.Value().Permissions)
}

func TestUpdateRoleNullColumnIsBadRequest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	res := f.roles.CreateRole(ctx, service.CreateRoleRequest{Name: "Pilot", Description: "d", Permissions: []string{"add_task"}})
	require.True(t, res.OK(), res.Message)

	upd := f.roles.Update(ctx, res.Value().ID.String(), map[string]any{"name": nil})
	assert.Equal(t, http.StatusBadRequest, upd.StatusCode)
	assert.Contains(t, upd.Message, "NOT NULL")
}

func TestPermissionsForRolesUnion(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	r1 := f.roles.Create(ctx, &model.Role{Name: "R1", Permissions: model.NewPermissionSet("add_task", "get_all_tasks")})
	r2 := f.roles.Create(ctx, &model.Role{Name: "R2", Permissions: model.NewPermissionSet("edit_comment")})
	r3 := f.roles.Create(ctx, &model.Role{Name: "R3", Permissions: model.NewPermissionSet("add_task", "delete_task")})
	require.True(t, r1.OK())
	require.True(t, r2.OK())
	require.True(t, r3.OK())

	perms, err := f.roles.PermissionsForRoles(ctx, []string{r1.Value().ID.String(), r2.Value().ID.String()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"add_task", "get_all_tasks", "edit_comment"}, perms)

	perms, err = f.roles.PermissionsForRoles(ctx, []string{r1.Value().ID.String(), r3.Value().ID.String(), "bad-id", uuid.NewString()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"add_task", "get_all_tasks", "delete_task"}, perms)

	perms, err = f.roles.PermissionsForRoles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestAllRoleIDsValid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	r := f.roles.Create(ctx, &model.Role{Name: "R", Permissions: model.NewPermissionSet("add_task")})
	require.True(t, r.OK())
	id := r.Value().ID.String()

	assert.False(t, f.roles.AllRoleIDsValid(ctx, []string{"bad-id"}))
	assert.True(t, f.roles.AllRoleIDsValid(ctx, []string{id}))
	assert.True(t, f.roles.AllRoleIDsValid(ctx, []string{id, id}))
	assert.False(t, f.roles.AllRoleIDsValid(ctx, []string{id, uuid.NewString()}))
	assert.False(t, f.roles.AllRoleIDsValid(ctx, []string{id, "bad-id"}))
	assert.False(t, f.roles.AllRoleIDsValid(ctx, nil))
}

func TestFindByName(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	require.True(t, f.roles.Create(ctx, &model.Role{Name: "Editor", Permissions: model.NewPermissionSet("edit_task")}).OK())

	role, ok, err := f.roles.FindByName(ctx, "Editor")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Editor", role.Name)

	_, ok, err = f.roles.FindByName(ctx, "editor")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionCacheInvalidatedOnUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, cache.NewPermissionCache(client, time.Minute))
	ctx := t.Context()

	r := f.roles.Create(ctx, &model.Role{Name: "R", Permissions: model.NewPermissionSet("add_task")})
	require.True(t, r.OK())
	id := r.Value().ID.String()

	perms, err := f.roles.PermissionsForRoles(ctx, []string{id})
	require.NoError(t, err)
	assert.Equal(t, []string{"add_task"}, perms)
	assert.True(t, mr.Exists("rbac:role:"+id+":permissions"))

	f.ops.reset()
	perms, err = f.roles.PermissionsForRoles(ctx, []string{id})
	require.NoError(t, err)
	assert.Equal(t, []string{"add_task"}, perms)
	assert.Zero(t, f.ops.count("Role.find_by_ids"), "cached sets skip the store")

	upd := f.roles.Update(ctx, id, map[string]any{"permissions": []any{"edit_task"}})
	require.True(t, upd.OK(), upd.Message)
	assert.False(t, mr.Exists("rbac:role:"+id+":permissions"))

	perms, err = f.roles.PermissionsForRoles(ctx, []string{id})
	require.NoError(t, err)
	assert.Equal(t, []string{"edit_task"}, perms)

	require.True(t, f.roles.Delete(ctx, id).OK())
	perms, err = f.roles.PermissionsForRoles(ctx, []string{id})
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestDeleteReferencedRoleConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()
	f.seed(t)

	super, ok, err := f.roles.FindByName(ctx, model.RoleSuperAdmin)
	require.NoError(t, err)
	require.True(t, ok)

	res := f.roles.Delete(ctx, super.ID.String())
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}
