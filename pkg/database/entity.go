package database

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm/schema"
)

// Entity describes one managed record type: its table, primary key,
// declared columns and the allow-lists of columns callers may update or filter on.
// A field tagged `filter:"-"` is never filterable.
type Entity struct {
	Name       string
	Table      string
	PrimaryKey string
	Columns    []string

	modelType  reflect.Type
	fields     map[string]*schema.Field
	mutable    map[string]struct{}
	filterable map[string]struct{}
}

// Describe parses a model once at registration time.
func Describe(model any) (*Entity, error) {
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("database: describe %T: %w", model, err)
	}
	if len(s.PrimaryFields) != 1 {
		return nil, fmt.Errorf("database: %s must declare exactly one primary key", s.Name)
	}

	e := &Entity{
		Name:       s.Name,
		Table:      s.Table,
		PrimaryKey: s.PrimaryFields[0].DBName,
		modelType:  s.ModelType,
		fields:     make(map[string]*schema.Field, len(s.DBNames)),
		mutable:    make(map[string]struct{}, len(s.DBNames)),
		filterable: make(map[string]struct{}, len(s.DBNames)),
	}
	for _, name := range s.DBNames {
		field := s.FieldsByDBName[name]
		e.Columns = append(e.Columns, name)
		e.fields[name] = field
		if field.Tag.Get("filter") != "-" {
			e.filterable[name] = struct{}{}
		}
		if field.PrimaryKey || field.AutoCreateTime > 0 || field.AutoUpdateTime > 0 {
			continue
		}
		e.mutable[name] = struct{}{}
	}
	return e, nil
}

// HasColumn reports whether name is a declared column.
func (e *Entity) HasColumn(name string) bool {
	_, ok := e.fields[name]
	return ok
}

// IsFilterable reports whether callers may use the column as a findAll filter.
func (e *Entity) IsFilterable(name string) bool {
	_, ok := e.filterable[name]
	return ok
}

// IsMutable reports whether callers may write the column through an update.
func (e *Entity) IsMutable(name string) bool {
	_, ok := e.mutable[name]
	return ok
}

// MutableColumns filters data down to the update allow-list. Unknown keys are dropped.
func (e *Entity) MutableColumns(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if !e.IsMutable(key) {
			continue
		}
		coerced, err := e.Coerce(key, value)
		if err != nil {
			return nil, err
		}
		out[key] = coerced
	}
	return out, nil
}

// Coerce converts a loosely typed value (usually decoded JSON) into the column's Go type.
func (e *Entity) Coerce(column string, value any) (any, error) {
	field, ok := e.fields[column]
	if !ok {
		return nil, fmt.Errorf("database: %s has no column %q", e.Name, column)
	}
	if value == nil {
		return nil, nil
	}
	if reflect.TypeOf(value).AssignableTo(field.FieldType) {
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("database: column %s: %w", column, err)
	}
	target := reflect.New(field.FieldType)
	if err := json.Unmarshal(raw, target.Interface()); err != nil {
		return nil, fmt.Errorf("database: column %s: %w", column, err)
	}
	return target.Elem().Interface(), nil
}
