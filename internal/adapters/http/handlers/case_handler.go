package handlers

import (
	"loanhub/internal/core/services"
	"loanhub/internal/pkg/pagination"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CaseHandler handles loan case endpoints
type CaseHandler struct {
	caseService *services.LoanCaseService
	log         *zap.Logger
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseService *services.LoanCaseService, log *zap.Logger) *CaseHandler {
	return &CaseHandler{
		caseService: caseService,
		log:         log,
	}
}

// StatusRequest represents a status change request body
type StatusRequest struct {
	Status string `json:"status"`
}

// ScheduleRequest represents a schedule date request body
type ScheduleRequest struct {
	ScheduledDate string `json:"scheduled_date"`
}

// AssignRequest represents a manager reassignment request body
type AssignRequest struct {
	ManagerID uint `json:"manager_id"`
}

// List handles listing cases visible to the caller
// @Summary List loan cases
// @Description Paginated list of the cases the caller can access
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param urgent query bool false "Urgent cases only"
// @Param search query string false "Borrower name, phone or address"
// @Param manager_id query int false "Manager filter"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /cases [get]
func (h *CaseHandler) List(c *fiber.Ctx) error {
	managerID, err := queryUint(c, "manager_id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	result, err := h.caseService.List(c.UserContext(), actorFrom(c), &services.ListCasesInput{
		Status:     c.Query("status"),
		UrgentOnly: c.QueryBool("urgent"),
		Search:     c.Query("search"),
		ManagerID:  managerID,
		Page:       pagination.GetParams(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Cases retrieved successfully", result)
}

// Get handles getting a case with its child collections
// @Summary Get loan case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	lc, err := h.caseService.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Case retrieved successfully", lc.ToResponse(h.caseService.Now()))
}

// Create handles case registration
// @Summary Create loan case
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateCaseInput true "Case data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /cases [post]
func (h *CaseHandler) Create(c *fiber.Ctx) error {
	var req services.CreateCaseInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	lc, err := h.caseService.Create(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Case created successfully", lc.ToResponse(h.caseService.Now()))
}

// Update handles a partial case update
// @Summary Update loan case
// @Description Patch case fields. Status, schedule and urgency have their own endpoints.
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body services.CaseInput true "Fields to change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /cases/{id} [patch]
func (h *CaseHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.CaseInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	lc, err := h.caseService.Update(c.UserContext(), actorFrom(c), id, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Case updated successfully", lc.ToResponse(h.caseService.Now()))
}

// ChangeStatus handles a status transition
// @Summary Change case status
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body StatusRequest true "Target status"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /cases/{id}/status [put]
func (h *CaseHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	lc, err := h.caseService.ChangeStatus(c.UserContext(), actorFrom(c), id, req.Status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Status changed successfully", lc.ToResponse(h.caseService.Now()))
}

// SetSchedule handles setting the scheduled date
// @Summary Set scheduled date
// @Description Only allowed while the case is in an urgent status; past dates are rejected
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body ScheduleRequest true "YYYY-MM-DD"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /cases/{id}/schedule [put]
func (h *CaseHandler) SetSchedule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	date, err := h.caseService.ParseScheduleDate(req.ScheduledDate)
	if err != nil {
		return respondError(c, h.log, err)
	}
	lc, err := h.caseService.SetSchedule(c.UserContext(), actorFrom(c), id, date)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Schedule updated successfully", lc.ToResponse(h.caseService.Now()))
}

// ToggleUrgent handles flipping the urgent flag
// @Summary Toggle urgent flag
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/urgent [post]
func (h *CaseHandler) ToggleUrgent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	urgent, err := h.caseService.ToggleUrgent(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Urgent flag toggled", fiber.Map{"is_urgent": urgent})
}

// History handles listing the status history
// @Summary Case status history
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/history [get]
func (h *CaseHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	history, err := h.caseService.History(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "History retrieved successfully", history)
}

// AssignManager handles handing a case to another manager
// @Summary Reassign case manager
// @Tags Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body AssignRequest true "New manager"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /cases/{id}/manager [put]
func (h *CaseHandler) AssignManager(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	lc, err := h.caseService.AssignManager(c.UserContext(), actorFrom(c), id, req.ManagerID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Manager assigned successfully", lc.ToResponse(h.caseService.Now()))
}

// Delete handles removing a case
// @Summary Delete loan case
// @Tags Cases
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id} [delete]
func (h *CaseHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.caseService.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Case deleted successfully", nil)
}
