package handlers

import (
	"loanhub/internal/core/services"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles authentication and own-profile endpoints
type AuthHandler struct {
	accountService *services.AccountService
	log            *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accountService *services.AccountService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
		log:            log,
	}
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user and return an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	result, err := h.accountService.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return response.Success(c, "Login successful", result)
}

// Me returns the current user info
// @Summary Get current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.accountService.GetProfile(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user,
	})
}

// UpdateProfile handles updating own profile
// @Summary Update own profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateProfileInput true "Profile data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /profile [put]
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req services.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	user, err := h.accountService.UpdateProfile(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Profile updated successfully", fiber.Map{
		"user": user,
	})
}

// ChangePassword handles changing own password
// @Summary Change password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /profile/password [put]
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req services.ChangePasswordInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.accountService.ChangePassword(c.UserContext(), actorFrom(c), &req); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Password changed successfully", nil)
}
