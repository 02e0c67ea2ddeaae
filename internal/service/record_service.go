package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-pms-api/pkg/database"
)

// Observer receives one notification per finished record operation.
type Observer interface {
	ObserveRecordOp(entity, op string, statusCode int)
}

var errNoRowsAffected = errors.New("no rows affected")

// RecordService is the generic CRUD engine bound to one registered entity.
type RecordService[T any] struct {
	manager  *database.Manager
	entity   *database.Entity
	logger   *slog.Logger
	observer Observer
}

// RecordOption customizes a RecordService.
type RecordOption func(*recordOptions)

type recordOptions struct {
	logger   *slog.Logger
	observer Observer
}

func WithLogger(l *slog.Logger) RecordOption {
	return func(o *recordOptions) { o.logger = l }
}

func WithObserver(obs Observer) RecordOption {
	return func(o *recordOptions) { o.observer = obs }
}

// NewRecordService binds a service to the entity registered for T.
func NewRecordService[T any](m *database.Manager, opts ...RecordOption) (*RecordService[T], error) {
	o := recordOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	entity, err := m.Entity(new(T))
	if err != nil {
		return nil, err
	}
	return &RecordService[T]{
		manager:  m,
		entity:   entity,
		logger:   o.logger.With(slog.String("entity", entity.Name)),
		observer: o.observer,
	}, nil
}

// Entity returns the descriptor the service operates on.
func (s *RecordService[T]) Entity() *database.Entity {
	return s.entity
}

func (s *RecordService[T]) observe(op string, code int) {
	if s.observer != nil {
		s.observer.ObserveRecordOp(s.entity.Name, op, code)
	}
}

func (s *RecordService[T]) accessor(ctx context.Context) (*database.Accessor, error) {
	return s.manager.Accessor(ctx, s.entity)
}

// key converts id into the primary key's Go type. A malformed id cannot match any row.
func (s *RecordService[T]) key(id string) (any, bool) {
	if strings.TrimSpace(id) == "" {
		return nil, false
	}
	v, err := s.entity.Coerce(s.entity.PrimaryKey, id)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (s *RecordService[T]) byKey(key any) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: s.entity.PrimaryKey}, Value: key}
}

// Create inserts entity and returns the persisted row.
func (s *RecordService[T]) Create(ctx context.Context, entity *T) (res Result[T]) {
	defer func() { s.observe("create", res.StatusCode) }()

	a, err := s.accessor(ctx)
	if err != nil {
		return unavailable[T]()
	}
	db := a.DB(ctx)
	if err := db.Create(entity).Error; err != nil {
		code, msg := classifyWriteError(db, err)
		return Failed[T](code, msg)
	}
	return Success(http.StatusCreated, *entity)
}

// FindOne looks a row up by primary key.
func (s *RecordService[T]) FindOne(ctx context.Context, id string) (res Result[T]) {
	defer func() { s.observe("find_one", res.StatusCode) }()

	key, ok := s.key(id)
	if !ok {
		return notFound[T]()
	}
	a, err := s.accessor(ctx)
	if err != nil {
		return unavailable[T]()
	}
	var out T
	if err := a.DB(ctx).Where(s.byKey(key)).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound[T]()
		}
		return Failed[T](http.StatusInternalServerError, err.Error())
	}
	return Success(http.StatusOK, out)
}

// FindAll returns every row, or the rows matching all params as equality filters.
// Param names must be declared, filterable columns.
func (s *RecordService[T]) FindAll(ctx context.Context, params map[string]any) (res Result[[]T]) {
	defer func() { s.observe("find_all", res.StatusCode) }()

	var unknown []string
	for field := range params {
		if !s.entity.IsFilterable(field) {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return FailedList[T](http.StatusBadRequest, fmt.Sprintf("Unknown field(s): %s", strings.Join(unknown, ", ")))
	}

	filters := make(map[string]any, len(params))
	for field, value := range params {
		v, err := s.entity.Coerce(field, value)
		if err != nil {
			return FailedList[T](http.StatusBadRequest, err.Error())
		}
		filters[field] = v
	}

	a, err := s.accessor(ctx)
	if err != nil {
		return FailedList[T](http.StatusServiceUnavailable, unavailableMessage)
	}
	db := a.DB(ctx)
	if len(filters) > 0 {
		db = db.Where(filters)
	}
	rows := []T{}
	if err := db.Find(&rows).Error; err != nil {
		return FailedList[T](http.StatusInternalServerError, err.Error())
	}
	return Success(http.StatusOK, rows)
}

// Update writes the allow-listed subset of data to the row with the given id.
// The write is conditional on the key; when it touches nothing the row is reported missing.
func (s *RecordService[T]) Update(ctx context.Context, id string, data map[string]any) (res Result[T]) {
	defer func() { s.observe("update", res.StatusCode) }()

	key, ok := s.key(id)
	if !ok {
		return notFound[T]()
	}
	values, err := s.entity.MutableColumns(data)
	if err != nil {
		return Failed[T](http.StatusBadRequest, err.Error())
	}
	if len(values) == 0 {
		return Failed[T](http.StatusBadRequest, "Invalid data")
	}

	a, err := s.accessor(ctx)
	if err != nil {
		return unavailable[T]()
	}
	db := a.DB(ctx)
	var out T
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(new(T)).Where(s.byKey(key)).Updates(values)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNoRowsAffected
		}
		return tx.Where(s.byKey(key)).First(&out).Error
	})
	switch {
	case err == nil:
		return Success(http.StatusOK, out)
	case errors.Is(err, errNoRowsAffected), errors.Is(err, gorm.ErrRecordNotFound):
		return notFound[T]()
	default:
		code, msg := classifyWriteError(db, err)
		return Failed[T](code, msg)
	}
}

// Delete removes the row with the given id.
func (s *RecordService[T]) Delete(ctx context.Context, id string) (res Result[T]) {
	defer func() { s.observe("delete", res.StatusCode) }()

	key, ok := s.key(id)
	if !ok {
		return notFound[T]()
	}
	a, err := s.accessor(ctx)
	if err != nil {
		return unavailable[T]()
	}
	db := a.DB(ctx)
	result := db.Where(s.byKey(key)).Delete(new(T))
	if result.Error != nil {
		code, msg := classifyWriteError(db, result.Error)
		return Failed[T](code, msg)
	}
	if result.RowsAffected == 0 {
		return notFound[T]()
	}
	return SuccessEmpty[T](http.StatusOK)
}

// FindByIDs returns the rows whose primary key is in ids. Malformed ids are ignored.
func (s *RecordService[T]) FindByIDs(ctx context.Context, ids []string) (res Result[[]T]) {
	defer func() { s.observe("find_by_ids", res.StatusCode) }()

	keys := make([]any, 0, len(ids))
	for _, id := range ids {
		if key, ok := s.key(id); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return Success(http.StatusOK, []T{})
	}

	a, err := s.accessor(ctx)
	if err != nil {
		return FailedList[T](http.StatusServiceUnavailable, unavailableMessage)
	}
	rows := []T{}
	err = a.DB(ctx).
		Where(clause.IN{Column: clause.Column{Name: s.entity.PrimaryKey}, Values: keys}).
		Find(&rows).Error
	if err != nil {
		return FailedList[T](http.StatusInternalServerError, err.Error())
	}
	return Success(http.StatusOK, rows)
}

// CustomQuery runs an arbitrary predicate. Errors are logged and yield an empty slice.
func (s *RecordService[T]) CustomQuery(ctx context.Context, predicate string, args ...any) []T {
	a, err := s.accessor(ctx)
	if err != nil {
		s.logger.Error("custom query", slog.String("query", predicate), slog.Any("error", err))
		return []T{}
	}
	rows := []T{}
	if err := a.DB(ctx).Where(predicate, args...).Find(&rows).Error; err != nil {
		s.logger.Error("custom query", slog.String("query", predicate), slog.Any("error", err))
		return []T{}
	}
	return rows
}

const unavailableMessage = "Database unavailable"

func unavailable[T any]() Result[T] {
	return Failed[T](http.StatusServiceUnavailable, unavailableMessage)
}

// classifyWriteError maps store errors onto status codes:
// unique and foreign key violations are conflicts, everything else is internal.
func classifyWriteError(db *gorm.DB, err error) (int, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			if pgErr.Detail != "" {
				return http.StatusConflict, pgErr.Detail
			}
			return http.StatusConflict, pgErr.Message
		case "23502":
			return http.StatusBadRequest, fmt.Sprintf("%s must not be null", pgErr.ColumnName)
		}
		return http.StatusInternalServerError, err.Error()
	}

	translated := err
	if t, ok := db.Dialector.(gorm.ErrorTranslator); ok {
		translated = t.Translate(err)
	}
	if errors.Is(translated, gorm.ErrDuplicatedKey) || errors.Is(translated, gorm.ErrForeignKeyViolated) {
		return http.StatusConflict, err.Error()
	}
	// sqlite reports constraint failures only through the message text
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return http.StatusConflict, msg
	}
	if strings.Contains(msg, "NOT NULL constraint failed") {
		return http.StatusBadRequest, msg
	}
	return http.StatusInternalServerError, msg
}
