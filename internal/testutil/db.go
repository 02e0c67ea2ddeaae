package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"go-pms-api/internal/model"
	"go-pms-api/pkg/database"
)

// Logger discards output so test runs stay quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SQLiteDialector returns a dialector for a private in-memory database named after the test.
func SQLiteDialector(t *testing.T) func(database.Config) gorm.Dialector {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	return func(database.Config) gorm.Dialector {
		return sqlite.Open(dsn)
	}
}

// NewManager builds a Manager over an in-memory SQLite database with every entity registered.
func NewManager(t *testing.T) *database.Manager {
	t.Helper()
	m, err := database.NewManager(
		database.Config{PoolSize: 1},
		model.Entities(),
		database.WithLogger(Logger()),
		database.WithDialector(SQLiteDialector(t)),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}
