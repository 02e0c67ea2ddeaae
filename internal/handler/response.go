package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-pms-api/internal/service"
)

// Publisher receives record change notifications after successful writes.
type Publisher interface {
	Publish(entity, action, id string)
}

func respond[T any](c *fiber.Ctx, res service.Result[T]) error {
	return c.Status(res.StatusCode).JSON(res)
}

func badRequest(c *fiber.Ctx, message string) error {
	return respond(c, service.Failed[struct{}](fiber.StatusBadRequest, message))
}

func recordID(v any) string {
	if r, ok := v.(interface{ RecordID() string }); ok {
		return r.RecordID()
	}
	return ""
}
