package handlers

import (
	"loanhub/internal/core/services"
	"loanhub/internal/pkg/pagination"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHandler handles account management endpoints
type UserHandler struct {
	accountService *services.AccountService
	log            *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(accountService *services.AccountService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		accountService: accountService,
		log:            log,
	}
}

// ActiveRequest represents an account activation request body
type ActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// ListUsers handles listing the accounts the caller manages
// @Summary List users
// @Description Paginated list scoped to the caller's branch or team (manager roles only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter"
// @Param search query string false "Name, username or email"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	result, err := h.accountService.ListUsers(c.UserContext(), actorFrom(c), &services.ListUsersInput{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   pagination.GetParams(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Users retrieved successfully", result)
}

// CreateUser handles account creation by a higher role
// @Summary Create account
// @Description Admins create any role, branch managers team leaders and staff, team leaders staff
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateAccountInput true "Account data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req services.CreateAccountInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	user, err := h.accountService.CreateAccount(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "User created successfully", fiber.Map{
		"user": user,
	})
}

// GetUser handles getting a user by ID
// @Summary Get user by ID
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	user, err := h.accountService.GetUser(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user,
	})
}

// SetActive handles enabling or disabling an account
// @Summary Activate or deactivate user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body ActiveRequest true "Active flag"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users/{id}/active [put]
func (h *UserHandler) SetActive(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req ActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	user, err := h.accountService.SetActive(c.UserContext(), actorFrom(c), id, req.IsActive)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "User updated successfully", fiber.Map{
		"user": user,
	})
}
