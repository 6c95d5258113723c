package handlers

import (
	"loanhub/internal/core/services"
	"loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TodoHandler handles todo and todo template endpoints
type TodoHandler struct {
	todoService *services.TodoService
	log         *zap.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoService *services.TodoService, log *zap.Logger) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
		log:         log,
	}
}

// ApplyTemplateRequest represents a create-from-template request body
type ApplyTemplateRequest struct {
	CaseID   uint   `json:"case_id"`
	Deadline string `json:"deadline"`
}

// ListByCase handles listing the todos of a case
// @Summary List case todos
// @Tags Todos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Success 200 {object} response.Response
// @Router /cases/{id}/todos [get]
func (h *TodoHandler) ListByCase(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	todos, err := h.todoService.ListByCase(c.UserContext(), actorFrom(c), caseID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Todos retrieved successfully", todos)
}

// Create handles adding a todo to a case
// @Summary Create todo
// @Tags Todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Case ID"
// @Param body body services.TodoInput true "Todo data"
// @Success 201 {object} response.Response
// @Router /cases/{id}/todos [post]
func (h *TodoHandler) Create(c *fiber.Ctx) error {
	caseID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.TodoInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	todo, err := h.todoService.Create(c.UserContext(), actorFrom(c), caseID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Todo created successfully", todo)
}

// ListMine handles listing the todos assigned to or created by the caller
// @Summary My todos
// @Tags Todos
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /todos/mine [get]
func (h *TodoHandler) ListMine(c *fiber.Ctx) error {
	todos, err := h.todoService.ListMine(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Todos retrieved successfully", todos)
}

// Update handles patching a todo; each changed field is recorded in its history
// @Summary Update todo
// @Tags Todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param todoId path int true "Todo ID"
// @Param body body services.UpdateTodoInput true "Fields to change"
// @Success 200 {object} response.Response
// @Router /todos/{todoId} [patch]
func (h *TodoHandler) Update(c *fiber.Ctx) error {
	todoID, err := paramID(c, "todoId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req services.UpdateTodoInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	todo, err := h.todoService.Update(c.UserContext(), actorFrom(c), todoID, &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Todo updated successfully", todo)
}

// History handles listing the change history of a todo
// @Summary Todo history
// @Tags Todos
// @Produce json
// @Security BearerAuth
// @Param todoId path int true "Todo ID"
// @Success 200 {object} response.Response
// @Router /todos/{todoId}/history [get]
func (h *TodoHandler) History(c *fiber.Ctx) error {
	todoID, err := paramID(c, "todoId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	history, err := h.todoService.History(c.UserContext(), actorFrom(c), todoID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Todo history retrieved successfully", history)
}

// Delete handles removing a todo
// @Summary Delete todo
// @Tags Todos
// @Produce json
// @Security BearerAuth
// @Param todoId path int true "Todo ID"
// @Success 200 {object} response.Response
// @Router /todos/{todoId} [delete]
func (h *TodoHandler) Delete(c *fiber.Ctx) error {
	todoID, err := paramID(c, "todoId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.todoService.Delete(c.UserContext(), actorFrom(c), todoID); err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Todo deleted successfully", nil)
}

// ListTemplates handles listing the caller's todo templates
// @Summary List todo templates
// @Tags Todos
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /todo-templates [get]
func (h *TodoHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.todoService.ListTemplates(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Success(c, "Templates retrieved successfully", templates)
}

// CreateTemplate handles saving a todo template
// @Summary Create todo template
// @Tags Todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.TemplateInput true "Template data"
// @Success 201 {object} response.Response
// @Router /todo-templates [post]
func (h *TodoHandler) CreateTemplate(c *fiber.Ctx) error {
	var req services.TemplateInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	tmpl, err := h.todoService.CreateTemplate(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Template created successfully", tmpl)
}

// ApplyTemplate handles creating a todo on a case from a template
// @Summary Create todo from template
// @Tags Todos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateId path int true "Template ID"
// @Param body body ApplyTemplateRequest true "Target case and deadline"
// @Success 201 {object} response.Response
// @Router /todo-templates/{templateId}/apply [post]
func (h *TodoHandler) ApplyTemplate(c *fiber.Ctx) error {
	templateID, err := paramID(c, "templateId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req ApplyTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	todo, err := h.todoService.CreateFromTemplate(c.UserContext(), actorFrom(c), templateID, req.CaseID, req.Deadline)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, "Todo created successfully", todo)
}
