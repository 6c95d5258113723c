package handlers

import (
	"bytes"

	"loanhub/internal/core/services"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DashboardHandler handles dashboard, calendar and export endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
	exporter         services.CaseExporter
	now              services.Clock
	log              *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService, exporter services.CaseExporter, now services.Clock, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		exporter:         exporter,
		now:              now,
		log:              log,
	}
}

// Get returns the home dashboard
// @Summary Dashboard
// @Description Day-over-day counters, month completions, urgent and recent cases, unread questions and notices
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	data, err := h.dashboardService.Get(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Dashboard retrieved successfully", data)
}

// Calendar returns case dates and events in a window
// @Summary Calendar
// @Description Defaults to 30 days either side of today
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param start query string false "YYYY-MM-DD"
// @Param end query string false "YYYY-MM-DD"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /dashboard/calendar [get]
func (h *DashboardHandler) Calendar(c *fiber.Ctx) error {
	loc := h.now().Location()
	start, err := queryDate(c, "start", loc)
	if err != nil {
		return respondError(c, h.log, err)
	}
	end, err := queryDate(c, "end", loc)
	if err != nil {
		return respondError(c, h.log, err)
	}
	entries, err := h.dashboardService.Calendar(c.UserContext(), actorFrom(c), start, end)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Calendar retrieved successfully", entries)
}

// ExportCSV streams the accessible cases as a CSV download
// @Summary Export cases
// @Tags Dashboard
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 401 {object} response.Response
// @Router /cases/export [get]
func (h *DashboardHandler) ExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := h.exporter.ExportCSV(c.UserContext(), actorFrom(c), &buf); err != nil {
		return respondError(c, h.log, err)
	}

	filename := "loan_cases_" + h.now().Format("20060102") + ".csv"
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

// NoticeHandler handles notice endpoints
type NoticeHandler struct {
	noticeService *services.NoticeService
	log           *zap.Logger
}

// NewNoticeHandler creates a new notice handler
func NewNoticeHandler(noticeService *services.NoticeService, log *zap.Logger) *NoticeHandler {
	return &NoticeHandler{
		noticeService: noticeService,
		log:           log,
	}
}

// List returns the notices active today
// @Summary Active notices
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /notices [get]
func (h *NoticeHandler) List(c *fiber.Ctx) error {
	notices, err := h.noticeService.ListActive(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Notices retrieved successfully", notices)
}

// Create posts a notice
// @Summary Create notice
// @Tags Notices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.NoticeInput true "Notice data"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /notices [post]
func (h *NoticeHandler) Create(c *fiber.Ctx) error {
	var req services.NoticeInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	notice, err := h.noticeService.Create(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Notice created successfully", notice)
}

// Deactivate hides a notice
// @Summary Deactivate notice
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notices/{id} [delete]
func (h *NoticeHandler) Deactivate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.noticeService.Deactivate(c.UserContext(), actorFrom(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Notice deactivated successfully", nil)
}
