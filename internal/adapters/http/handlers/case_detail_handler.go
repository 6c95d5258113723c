package handlers

import (
	"loanhub/internal/core/services"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CaseDetailHandler handles the child collections of a case
type CaseDetailHandler struct {
	providerService  *services.SecurityProviderService
	priorLoanService *services.PriorLoanService
	logService       *services.ConsultingLogService
	commentService   *services.CommentService
	eventService     *services.EventService
	log              *zap.Logger
}

// NewCaseDetailHandler creates a new case detail handler
func NewCaseDetailHandler(
	providerService *services.SecurityProviderService,
	priorLoanService *services.PriorLoanService,
	logService *services.ConsultingLogService,
	commentService *services.CommentService,
	eventService *services.EventService,
	log *zap.Logger,
) *CaseDetailHandler {
	return &CaseDetailHandler{
		providerService:  providerService,
		priorLoanService: priorLoanService,
		logService:       logService,
		commentService:   commentService,
		eventService:     eventService,
		log:              log,
	}
}

// ConsultingLogRequest represents a consulting log request body
type ConsultingLogRequest struct {
	Content string `json:"content"`
}

// ids parses the case id and the child id of a nested route
func ids(c *fiber.Ctx, child string) (uint, uint, error) {
	caseID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	childID, err := paramID(c, child)
	if err != nil {
		return 0, 0, err
	}
	return caseID, childID, nil
}

// ============================================================
// Security providers
// ============================================================

// ListProviders handles listing security providers
// @Summary List security providers
// @Tags Providers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/providers [get]
func (h *CaseDetailHandler) ListProviders(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	providers, err := h.providerService.List(c.UserContext(), actorFrom(c), caseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Providers retrieved successfully", providers)
}

// CreateProvider handles adding a security provider
// @Summary Add security provider
// @Tags Providers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body services.ProviderInput true "Provider data"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /cases/{id}/providers [post]
func (h *CaseDetailHandler) CreateProvider(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.ProviderInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	provider, err := h.providerService.Create(c.UserContext(), actorFrom(c), caseID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Provider created successfully", provider)
}

// UpdateProvider handles updating a security provider
// @Summary Update security provider
// @Tags Providers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param providerId path int true "Provider ID"
// @Param body body services.ProviderInput true "Provider data"
// @Success 200 {object} response.Response
// @Router /cases/{id}/providers/{providerId} [put]
func (h *CaseDetailHandler) UpdateProvider(c *fiber.Ctx) error {
	caseID, providerID, err := ids(c, "providerId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.ProviderInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	provider, err := h.providerService.Update(c.UserContext(), actorFrom(c), caseID, providerID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Provider updated successfully", provider)
}

// DeleteProvider handles removing a security provider
// @Summary Delete security provider
// @Tags Providers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param providerId path int true "Provider ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/providers/{providerId} [delete]
func (h *CaseDetailHandler) DeleteProvider(c *fiber.Ctx) error {
	caseID, providerID, err := ids(c, "providerId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.providerService.Delete(c.UserContext(), actorFrom(c), caseID, providerID); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Provider deleted successfully", nil)
}

// ============================================================
// Prior loans
// ============================================================

// ListPriorLoans handles listing prior loans
// @Summary List prior loans
// @Tags PriorLoans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/prior-loans [get]
func (h *CaseDetailHandler) ListPriorLoans(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	loans, err := h.priorLoanService.List(c.UserContext(), actorFrom(c), caseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Prior loans retrieved successfully", loans)
}

// CreatePriorLoan handles adding a prior loan
// @Summary Add prior loan
// @Description 선설정 amounts are checked against the LTV ceiling
// @Tags PriorLoans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body services.PriorLoanInput true "Prior loan data"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /cases/{id}/prior-loans [post]
func (h *CaseDetailHandler) CreatePriorLoan(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.PriorLoanInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	loan, err := h.priorLoanService.Create(c.UserContext(), actorFrom(c), caseID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Prior loan created successfully", loan)
}

// UpdatePriorLoan handles updating a prior loan
// @Summary Update prior loan
// @Tags PriorLoans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param loanId path int true "Prior loan ID"
// @Param body body services.PriorLoanInput true "Prior loan data"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /cases/{id}/prior-loans/{loanId} [put]
func (h *CaseDetailHandler) UpdatePriorLoan(c *fiber.Ctx) error {
	caseID, loanID, err := ids(c, "loanId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.PriorLoanInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	loan, err := h.priorLoanService.Update(c.UserContext(), actorFrom(c), caseID, loanID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Prior loan updated successfully", loan)
}

// DeletePriorLoan handles removing a prior loan
// @Summary Delete prior loan
// @Tags PriorLoans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param loanId path int true "Prior loan ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/prior-loans/{loanId} [delete]
func (h *CaseDetailHandler) DeletePriorLoan(c *fiber.Ctx) error {
	caseID, loanID, err := ids(c, "loanId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.priorLoanService.Delete(c.UserContext(), actorFrom(c), caseID, loanID); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Prior loan deleted successfully", nil)
}

// ============================================================
// Consulting logs
// ============================================================

// ListLogs handles listing consulting logs, newest first
// @Summary List consulting logs
// @Tags ConsultingLogs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/logs [get]
func (h *CaseDetailHandler) ListLogs(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	logs, err := h.logService.List(c.UserContext(), actorFrom(c), caseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Consulting logs retrieved successfully", logs)
}

// AddLog handles writing a consulting log
// @Summary Add consulting log
// @Tags ConsultingLogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body ConsultingLogRequest true "Log content"
// @Success 201 {object} response.Response
// @Router /cases/{id}/logs [post]
func (h *CaseDetailHandler) AddLog(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req ConsultingLogRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	entry, err := h.logService.Add(c.UserContext(), actorFrom(c), caseID, req.Content)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Consulting log created successfully", entry)
}

// DeleteLog handles removing a consulting log
// @Summary Delete consulting log
// @Tags ConsultingLogs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param logId path int true "Log ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/logs/{logId} [delete]
func (h *CaseDetailHandler) DeleteLog(c *fiber.Ctx) error {
	caseID, logID, err := ids(c, "logId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.logService.Delete(c.UserContext(), actorFrom(c), caseID, logID); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Consulting log deleted successfully", nil)
}

// ============================================================
// Comments
// ============================================================

// ListComments handles listing case comments
// @Summary List comments
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/comments [get]
func (h *CaseDetailHandler) ListComments(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	comments, err := h.commentService.List(c.UserContext(), actorFrom(c), caseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Comments retrieved successfully", comments)
}

// AddComment handles writing a comment or reply
// @Summary Add comment
// @Description Comments by admins and branch managers are flagged as questions
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body services.CommentInput true "Comment"
// @Success 201 {object} response.Response
// @Router /cases/{id}/comments [post]
func (h *CaseDetailHandler) AddComment(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.CommentInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	comment, err := h.commentService.Add(c.UserContext(), actorFrom(c), caseID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Comment created successfully", comment)
}

// DeleteComment handles removing a comment
// @Summary Delete comment
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/comments/{commentId} [delete]
func (h *CaseDetailHandler) DeleteComment(c *fiber.Ctx) error {
	caseID, commentID, err := ids(c, "commentId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.commentService.Delete(c.UserContext(), actorFrom(c), caseID, commentID); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Comment deleted successfully", nil)
}

// MarkCommentsRead handles marking the caller's unread comments on a case
// @Summary Mark comments read
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/comments/read [post]
func (h *CaseDetailHandler) MarkCommentsRead(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	n, err := h.commentService.MarkRead(c.UserContext(), actorFrom(c), caseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Comments marked as read", fiber.Map{"updated": n})
}

// ============================================================
// Events
// ============================================================

// ListEvents handles listing the events of a case
// @Summary List case events
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/events [get]
func (h *CaseDetailHandler) ListEvents(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	events, err := h.eventService.ListByCase(c.UserContext(), actorFrom(c), caseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Events retrieved successfully", events)
}

// CreateEvent handles adding an event to a case
// @Summary Create case event
// @Description Manager roles only. The date defaults from the case by event type.
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body services.EventInput true "Event data"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /cases/{id}/events [post]
func (h *CaseDetailHandler) CreateEvent(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.EventInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	event, err := h.eventService.Create(c.UserContext(), actorFrom(c), caseID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Event created successfully", event)
}

// DeleteEvent handles removing an event
// @Summary Delete case event
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param eventId path int true "Event ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/events/{eventId} [delete]
func (h *CaseDetailHandler) DeleteEvent(c *fiber.Ctx) error {
	caseID, eventID, err := ids(c, "eventId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.eventService.Delete(c.UserContext(), actorFrom(c), caseID, eventID); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Event deleted successfully", nil)
}
