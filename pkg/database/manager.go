package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnavailable is returned while no pooled connection could be established.
var ErrUnavailable = errors.New("database: unavailable")

// Manager owns the process' single connection pool and a cache of
// per-entity accessors. Build exactly one per process and pass it down.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	dialector func(Config) gorm.Dialector
	models    []any
	entities  map[reflect.Type]*Entity

	mu        sync.Mutex
	db        *gorm.DB
	accessors map[string]*Accessor
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger used for connection events and SQL logging.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDialector replaces the postgres dialector, mainly for tests.
func WithDialector(fn func(Config) gorm.Dialector) Option {
	return func(m *Manager) { m.dialector = fn }
}

// NewManager registers the fixed set of models. No connection is opened until
// Connect or the first Accessor call.
func NewManager(cfg Config, models []any, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		logger:    slog.Default(),
		dialector: PostgresDialector,
		models:    models,
		entities:  make(map[reflect.Type]*Entity, len(models)),
		accessors: make(map[string]*Accessor, len(models)),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, model := range models {
		e, err := Describe(model)
		if err != nil {
			return nil, err
		}
		m.entities[e.modelType] = e
	}
	return m, nil
}

// Entity returns the registered descriptor for model (a value or pointer of the model type).
func (m *Manager) Entity(model any) (*Entity, error) {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	e, ok := m.entities[t]
	if !ok {
		return nil, fmt.Errorf("database: %s is not a registered entity", t.Name())
	}
	return e, nil
}

// Connect opens the pool if it is not open yet and returns it.
// Failures are logged and returned wrapped in ErrUnavailable; they are not memoized.
func (m *Manager) Connect(ctx context.Context) (*gorm.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *Manager) connectLocked(ctx context.Context) (*gorm.DB, error) {
	if m.db != nil {
		return m.db, nil
	}

	db, err := m.open(ctx)
	if err != nil {
		m.logger.Error("database connection failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	m.db = db
	m.logger.Info("database connection established",
		slog.Int("pool_size", m.cfg.PoolSize),
		slog.Int("entities", len(m.models)),
	)
	return db, nil
}

func (m *Manager) open(ctx context.Context) (*gorm.DB, error) {
	slow := m.cfg.MaxQueryTime
	if slow <= 0 {
		slow = time.Second
	}
	gormLogger := logger.New(
		slog.NewLogLogger(m.logger.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             slow,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(m.dialector(m.cfg), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	poolSize := m.cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetMaxIdleConns(poolSize)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx := ctx
	if m.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(m.models...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Accessor returns the cached accessor for e, connecting on first use.
func (m *Manager) Accessor(ctx context.Context, e *Entity) (*Accessor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.accessors[e.Name]; ok {
		return a, nil
	}
	db, err := m.connectLocked(ctx)
	if err != nil {
		return nil, err
	}
	a := &Accessor{entity: e, db: db.Session(&gorm.Session{NewDB: true})}
	m.accessors[e.Name] = a
	return a, nil
}

// Close releases the pool. Accessors handed out earlier must not be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	m.db = nil
	m.accessors = make(map[string]*Accessor, len(m.models))
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Accessor is the per-entity handle through which record operations reach the store.
type Accessor struct {
	entity *Entity
	db     *gorm.DB
}

// Entity returns the descriptor the accessor is bound to.
func (a *Accessor) Entity() *Entity {
	return a.entity
}

// DB returns a fresh statement scoped to ctx.
func (a *Accessor) DB(ctx context.Context) *gorm.DB {
	return a.db.WithContext(ctx)
}
