package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"go-pms-api/internal/service"
	"go-pms-api/pkg/database"
)

// Records is the CRUD surface a RecordHandler drives. *service.RecordService
// satisfies it, as do the role and user services that wrap it.
type Records[T any] interface {
	Entity() *database.Entity
	Create(ctx context.Context, entity *T) service.Result[T]
	FindOne(ctx context.Context, id string) service.Result[T]
	FindAll(ctx context.Context, params map[string]any) service.Result[[]T]
	Update(ctx context.Context, id string, data map[string]any) service.Result[T]
	Delete(ctx context.Context, id string) service.Result[T]
}

// RecordHandler exposes one entity over REST.
type RecordHandler[T any] struct {
	records Records[T]
	events  Publisher
}

func NewRecordHandler[T any](records Records[T], events Publisher) *RecordHandler[T] {
	return &RecordHandler[T]{records: records, events: events}
}

func (h *RecordHandler[T]) publish(action, id string) {
	if h.events != nil && id != "" {
		h.events.Publish(h.records.Entity().Name, action, id)
	}
}

// List returns every row matching the query string filters
// GET /api/<entity>?column=value
func (h *RecordHandler[T]) List(c *fiber.Ctx) error {
	params := make(map[string]any)
	for k, v := range c.Queries() {
		params[k] = v
	}
	return respond(c, h.records.FindAll(c.UserContext(), params))
}

// Get returns a single row
// GET /api/<entity>/:id
func (h *RecordHandler[T]) Get(c *fiber.Ctx) error {
	return respond(c, h.records.FindOne(c.UserContext(), c.Params("id")))
}

// Create decodes the body into a new row
// POST /api/<entity>
func (h *RecordHandler[T]) Create(c *fiber.Ctx) error {
	entity := new(T)
	if err := c.BodyParser(entity); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	return h.Created(c, h.records.Create(c.UserContext(), entity))
}

// Created writes a create result and announces the new row.
func (h *RecordHandler[T]) Created(c *fiber.Ctx, res service.Result[T]) error {
	if res.OK() {
		h.publish("create", recordID(res.Data))
	}
	return respond(c, res)
}

// Update applies a partial update; unknown keys are ignored
// PUT /api/<entity>/:id
func (h *RecordHandler[T]) Update(c *fiber.Ctx) error {
	var data map[string]any
	if err := c.BodyParser(&data); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	res := h.records.Update(c.UserContext(), c.Params("id"), data)
	if res.OK() {
		h.publish("update", recordID(res.Data))
	}
	return respond(c, res)
}

// Delete removes a row
// DELETE /api/<entity>/:id
func (h *RecordHandler[T]) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	res := h.records.Delete(c.UserContext(), id)
	if res.OK() {
		h.publish("delete", id)
	}
	return respond(c, res)
}
