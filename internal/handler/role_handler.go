package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-pms-api/internal/model"
	"go-pms-api/internal/service"
	"go-pms-api/pkg/validator"
)

type RoleHandler struct {
	*RecordHandler[model.Role]
	roles *service.RoleService
}

func NewRoleHandler(roles *service.RoleService, events Publisher) *RoleHandler {
	return &RoleHandler{RecordHandler: NewRecordHandler[model.Role](roles, events), roles: roles}
}

// Create validates the payload and its permissions against the catalog
// POST /api/roles
func (h *RoleHandler) Create(c *fiber.Ctx) error {
	var req service.CreateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		if errs[0].Tag == "permission" {
			if err := service.ValidatePermissions(req.Permissions); err != nil {
				return badRequest(c, err.Error())
			}
		}
		return badRequest(c, "Validation failed: "+errs[0].Error())
	}
	return h.Created(c, h.roles.CreateRole(c.UserContext(), req))
}

// Permissions lists the permission catalog grouped by resource
// GET /api/permissions
func (h *RoleHandler) Permissions(c *fiber.Ctx) error {
	return respond(c, service.Success(fiber.StatusOK, model.PermissionCatalog))
}
