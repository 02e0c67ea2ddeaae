package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
	"go-pms-api/internal/testutil"
	"go-pms-api/pkg/jwt"
)

// opCounter records finished record operations by entity and op.
type opCounter struct {
	mu  sync.Mutex
	ops map[string]int
}

func (c *opCounter) ObserveRecordOp(entity, op string, statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ops == nil {
		c.ops = make(map[string]int)
	}
	c.ops[entity+"."+op]++
}

func (c *opCounter) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ops[key]
}

func (c *opCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = nil
}

type fixture struct {
	roles    *service.RoleService
	users    *service.UserService
	projects *service.RecordService[model.Project]
	auth     *service.AuthService
	tokens   *jwt.TokenManager
	ops      *opCounter
}

func newFixture(t *testing.T, cache service.PermissionCache) *fixture {
	t.Helper()
	m := testutil.NewManager(t)
	ops := &opCounter{}
	opts := []service.RecordOption{service.WithLogger(testutil.Logger()), service.WithObserver(ops)}

	roleRecords, err := service.NewRecordService[model.Role](m, opts...)
	require.NoError(t, err)
	userRecords, err := service.NewRecordService[model.User](m, opts...)
	require.NoError(t, err)
	projects, err := service.NewRecordService[model.Project](m, opts...)
	require.NoError(t, err)

	roles := service.NewRoleService(roleRecords, cache, testutil.Logger())
	users := service.NewUserService(userRecords, roles)
	tokens := jwt.NewTokenManager("test-secret", "go-pms-api", time.Minute, time.Hour)

	return &fixture{
		roles:    roles,
		users:    users,
		projects: projects,
		auth:     service.NewAuthService(users, tokens),
		tokens:   tokens,
		ops:      ops,
	}
}

var testAdmin = service.AdminAccount{
	Firstname: "Super",
	Lastname:  "Admin",
	Username:  "superadmin",
	Email:     "admin@example.com",
	Password:  "Adm1n!pass",
}

func (f *fixture) seed(t *testing.T) *service.Seeder {
	t.Helper()
	s := service.NewSeeder(f.roles, f.users, testAdmin, testutil.Logger())
	require.NoError(t, s.Run(t.Context()))
	return s
}
