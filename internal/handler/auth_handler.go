package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-pms-api/internal/service"
	"go-pms-api/pkg/validator"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles user authentication
// POST /api/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return badRequest(c, "Email and password are required")
	}
	return respond(c, h.auth.Login(c.UserContext(), req.Email, req.Password))
}

// RefreshToken exchanges a refresh token for a new token pair
// POST /api/refresh_token
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req service.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}
	return respond(c, h.auth.Refresh(c.UserContext(), req.RefreshToken))
}
