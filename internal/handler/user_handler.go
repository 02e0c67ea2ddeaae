package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-pms-api/internal/middleware"
	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
)

type UserHandler struct {
	*RecordHandler[model.User]
	users *service.UserService
}

func NewUserHandler(users *service.UserService, events Publisher) *UserHandler {
	return &UserHandler{RecordHandler: NewRecordHandler[model.User](users, events), users: users}
}

// Create registers a user with a hashed password; the role defaults to Viewer
// POST /api/users
func (h *UserHandler) Create(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return respond(c, service.Failed[model.User](fiber.StatusUnauthorized, "Invalid token"))
	}
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	return h.Created(c, h.users.CreateUserAs(c.UserContext(), p, req))
}

// Update applies a partial update; role and password changes are checked against the caller
// PUT /api/users/:id
func (h *UserHandler) Update(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return respond(c, service.Failed[model.User](fiber.StatusUnauthorized, "Invalid token"))
	}
	var data map[string]any
	if err := c.BodyParser(&data); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	res := h.users.UpdateAs(c.UserContext(), p, c.Params("id"), data)
	if res.OK() {
		h.publish("update", recordID(res.Data))
	}
	return respond(c, res)
}

// Delete removes a user the caller may manage
// DELETE /api/users/:id
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return respond(c, service.Failed[model.User](fiber.StatusUnauthorized, "Invalid token"))
	}
	id := c.Params("id")
	res := h.users.DeleteAs(c.UserContext(), p, id)
	if res.OK() {
		h.publish("delete", id)
	}
	return respond(c, res)
}

type meResponse struct {
	User        model.User `json:"user"`
	Permissions []string   `json:"permissions"`
}

// Me returns the authenticated user and its effective permissions
// GET /api/me
func (h *UserHandler) Me(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return respond(c, service.Failed[meResponse](fiber.StatusUnauthorized, "Invalid token"))
	}
	return respond(c, service.Success(fiber.StatusOK, meResponse{User: p.User, Permissions: p.Permissions}))
}
