package service_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
)

func TestRecordLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	created := f.roles.Create(ctx, &model.Role{Name: "Viewer", Permissions: model.NewPermissionSet("get_all_tasks")})
	require.True(t, created.OK(), created.Message)
	assert.Equal(t, http.StatusCreated, created.StatusCode)
	id := created.Value().ID
	assert.NotEqual(t, uuid.Nil, id)

	updated := f.roles.Update(ctx, id.String(), map[string]any{"name": "Viewer2", "bogus_field": "x"})
	require.True(t, updated.OK(), updated.Message)
	assert.Equal(t, http.StatusOK, updated.StatusCode)
	assert.Equal(t, "Viewer2", updated.Value().Name)
	assert.Equal(t, model.PermissionSet{"get_all_tasks"}, updated.Value().Permissions)

	found := f.roles.FindOne(ctx, id.String())
	require.True(t, found.OK())
	assert.Equal(t, "Viewer2", found.Value().Name)

	deleted := f.roles.Delete(ctx, id.String())
	assert.True(t, deleted.OK())
	assert.Equal(t, http.StatusOK, deleted.StatusCode)
	assert.Nil(t, deleted.Data)

	missing := f.roles.FindOne(ctx, id.String())
	assert.False(t, missing.OK())
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, "Not Found", missing.Message)
}

func TestUpdateWithoutAllowedKeys(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	created := f.projects.Create(ctx, &model.Project{Name: "apollo"})
	require.True(t, created.OK(), created.Message)

	res := f.projects.Update(ctx, created.Value().ID.String(), map[string]any{"bogus_field": "x", "id": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Invalid data", res.Message)
}

func TestUpdateAndDeleteMissingRow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	res := f.projects.Update(ctx, uuid.NewString(), map[string]any{"name": "ghost"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = f.projects.Delete(ctx, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = f.projects.FindOne(ctx, "not-a-uuid")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestFindAllFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	for _, name := range []string{"apollo", "gemini", "mercury"} {
		require.True(t, f.projects.Create(ctx, &model.Project{Name: name, Description: "nasa"}).OK())
	}

	all := f.projects.FindAll(ctx, nil)
	require.True(t, all.OK())
	assert.Len(t, all.Value(), 3)

	one := f.projects.FindAll(ctx, map[string]any{"name": "gemini", "description": "nasa"})
	require.True(t, one.OK())
	require.Len(t, one.Value(), 1)
	assert.Equal(t, "gemini", one.Value()[0].Name)

	none := f.projects.FindAll(ctx, map[string]any{"name": "vostok"})
	require.True(t, none.OK())
	assert.Empty(t, none.Value())
}

func TestFindAllRejectsUnknownFields(t *testing.T) {
	f := newFixture(t, nil)

	res := f.projects.FindAll(t.Context(), map[string]any{"zeta": 1, "alpha": 2, "name": "x"})
	assert.False(t, res.OK())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Unknown field(s): alpha, zeta", res.Message)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Value())
}

func TestFindAllRejectsPasswordFilter(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)

	admin, ok, err := f.users.FindByUsername(t.Context(), testAdmin.Username)
	require.NoError(t, err)
	require.True(t, ok)

	res := f.users.FindAll(t.Context(), map[string]any{"password": admin.Password})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Unknown field(s): password", res.Message)
}

func TestCreateConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	require.True(t, f.projects.Create(ctx, &model.Project{Name: "apollo"}).OK())

	dup := f.projects.Create(ctx, &model.Project{Name: "apollo"})
	assert.False(t, dup.OK())
	assert.Equal(t, http.StatusConflict, dup.StatusCode)
	assert.NotEmpty(t, dup.Message)

	orphan := f.users.Create(ctx, &model.User{
		Firstname: "a", Lastname: "b", Username: "ab", Email: "ab@example.com",
		Password: "x", RoleID: uuid.New(),
	})
	assert.Equal(t, http.StatusConflict, orphan.StatusCode)
}

func TestFindByIDsIgnoresMalformed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	a := f.projects.Create(ctx, &model.Project{Name: "a"})
	b := f.projects.Create(ctx, &model.Project{Name: "b"})
	require.True(t, a.OK())
	require.True(t, b.OK())

	res := f.projects.FindByIDs(ctx, []string{a.Value().ID.String(), "bad-id", b.Value().ID.String()})
	require.True(t, res.OK())
	assert.Len(t, res.Value(), 2)

	empty := f.projects.FindByIDs(ctx, []string{"bad-id"})
	require.True(t, empty.OK())
	assert.Empty(t, empty.Value())
}

func TestCustomQuery(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	require.True(t, f.projects.Create(ctx, &model.Project{Name: "apollo"}).OK())
	require.True(t, f.projects.Create(ctx, &model.Project{Name: "artemis"}).OK())
	require.True(t, f.projects.Create(ctx, &model.Project{Name: "gemini"}).OK())

	rows := f.projects.CustomQuery(ctx, "name LIKE ?", "a%")
	assert.Len(t, rows, 2)

	rows = f.projects.CustomQuery(ctx, "no_such_column = ?", 1)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestObserverSeesEveryOperation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	created := f.projects.Create(ctx, &model.Project{Name: "apollo"})
	require.True(t, created.OK())
	f.projects.FindOne(ctx, created.Value().ID.String())
	f.projects.Delete(ctx, created.Value().ID.String())

	assert.Equal(t, 1, f.ops.count("Project.create"))
	assert.Equal(t, 1, f.ops.count("Project.find_one"))
	assert.Equal(t, 1, f.ops.count("Project.delete"))
}

func TestResultHelpers(t *testing.T) {
	res := service.FailedList[model.Project](http.StatusInternalServerError, "boom")
	assert.False(t, res.OK())
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Value())

	ok := service.Success(http.StatusOK, 7)
	assert.Equal(t, 7, ok.Value())
}
