package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/validate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TodoService handles case todos, their change history and templates
type TodoService struct {
	cases    *LoanCaseService
	todoRepo *repositories.TodoRepository
	userRepo repositories.UserRepository
	log      *zap.Logger
}

// NewTodoService creates a new todo service
func NewTodoService(cases *LoanCaseService, todoRepo *repositories.TodoRepository, userRepo repositories.UserRepository, log *zap.Logger) *TodoService {
	return &TodoService{
		cases:    cases,
		todoRepo: todoRepo,
		userRepo: userRepo,
		log:      log,
	}
}

// TodoInput represents create todo input
type TodoInput struct {
	Title        string `json:"title" validate:"required,max=200"`
	Content      string `json:"content"`
	Deadline     string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	Priority     int    `json:"priority" validate:"omitempty,min=1,max=3"`
	AssignedToID *uint  `json:"assigned_to_id"`
}

// UpdateTodoInput patches a todo. Nil fields are left unchanged.
type UpdateTodoInput struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content      *string `json:"content"`
	Deadline     *string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	Status       *string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority     *int    `json:"priority" validate:"omitempty,min=1,max=3"`
	AssignedToID *uint   `json:"assigned_to_id"`
	IsArchived   *bool   `json:"is_archived"`
}

// TemplateInput represents create template input
type TemplateInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content"`
	Priority int    `json:"priority" validate:"omitempty,min=1,max=3"`
}

const defaultTodoPriority = 2

func (s *TodoService) checkAssignee(ctx context.Context, userID *uint) error {
	if userID == nil {
		return nil
	}
	if _, err := s.userRepo.GetByID(ctx, *userID); err != nil {
		return notFoundOr(err, ErrUserNotFound)
	}
	return nil
}

// loadTodo loads a todo and checks the actor can see its case. Todos are
// open to everyone on the case, staff included.
func (s *TodoService) loadTodo(ctx context.Context, tx *gorm.DB, actor *domain.Actor, todoID uint) (*models.Todo, error) {
	todos := s.todoRepo
	if tx != nil {
		todos = todos.WithTx(tx)
	}
	todo, err := todos.GetByID(ctx, todoID)
	if err != nil {
		return nil, notFoundOr(err, ErrTodoNotFound)
	}
	if _, err := s.cases.Authorize(ctx, tx, actor, todo.LoanCaseID, ActionView); err != nil {
		return nil, err
	}
	return todo, nil
}

// ListByCase lists the unarchived todos of a case
func (s *TodoService) ListByCase(ctx context.Context, actor *domain.Actor, caseID uint) ([]*models.Todo, error) {
	if _, err := s.cases.Authorize(ctx, nil, actor, caseID, ActionView); err != nil {
		return nil, err
	}
	return s.todoRepo.ListByCase(ctx, caseID)
}

// ListMine lists the todos the actor created or was assigned
func (s *TodoService) ListMine(ctx context.Context, actor *domain.Actor) ([]*models.Todo, error) {
	if actor == nil {
		return nil, unauthorized()
	}
	return s.todoRepo.ListForUser(ctx, actor.ID)
}

// Create adds a todo to a case
func (s *TodoService) Create(ctx context.Context, actor *domain.Actor, caseID uint, input *TodoInput) (*models.Todo, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	deadline, err := parseDate(input.Deadline, s.cases.Now().Location())
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, input.AssignedToID); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == 0 {
		priority = defaultTodoPriority
	}

	var todo *models.Todo
	err = s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionView); err != nil {
			return err
		}
		todo = &models.Todo{
			LoanCaseID:   caseID,
			Title:        input.Title,
			Content:      strings.TrimSpace(input.Content),
			Deadline:     deadline,
			Status:       domain.TodoPending,
			Priority:     priority,
			CreatedByID:  actor.ID,
			AssignedToID: input.AssignedToID,
		}
		return s.todoRepo.WithTx(tx).Create(ctx, todo)
	})
	if err != nil {
		return nil, err
	}
	return todo, nil
}

type fieldChange struct {
	field    string
	from, to string
}

func formatUserID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

// apply patches todo and reports every field whose value changed
func (in *UpdateTodoInput) apply(todo *models.Todo, loc *time.Location) ([]fieldChange, error) {
	var changes []fieldChange
	record := func(field, from, to string) {
		if from != to {
			changes = append(changes, fieldChange{field: field, from: from, to: to})
		}
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		record("title", todo.Title, title)
		todo.Title = title
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		record("content", todo.Content, content)
		todo.Content = content
	}
	if in.Deadline != nil {
		deadline, err := parseDate(*in.Deadline, loc)
		if err != nil {
			return nil, err
		}
		record("deadline", formatDay(todo.Deadline), formatDay(deadline))
		todo.Deadline = deadline
	}
	if in.Status != nil {
		record("status", todo.Status, *in.Status)
		todo.Status = *in.Status
	}
	if in.Priority != nil {
		record("priority", strconv.Itoa(todo.Priority), strconv.Itoa(*in.Priority))
		todo.Priority = *in.Priority
	}
	if in.AssignedToID != nil {
		record("assigned_to", formatUserID(todo.AssignedToID), formatUserID(in.AssignedToID))
		todo.AssignedToID = in.AssignedToID
	}
	if in.IsArchived != nil {
		record("is_archived", strconv.FormatBool(todo.IsArchived), strconv.FormatBool(*in.IsArchived))
		todo.IsArchived = *in.IsArchived
	}
	return changes, nil
}

// Update patches a todo and writes one history row per changed field
func (s *TodoService) Update(ctx context.Context, actor *domain.Actor, todoID uint, input *UpdateTodoInput) (*models.Todo, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, input.AssignedToID); err != nil {
		return nil, err
	}

	now := s.cases.Now()
	var todo *models.Todo
	err := s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		todo, err = s.loadTodo(ctx, tx, actor, todoID)
		if err != nil {
			return err
		}
		changes, err := input.apply(todo, now.Location())
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		todos := s.todoRepo.WithTx(tx)
		if err := todos.Update(ctx, todo); err != nil {
			return err
		}
		for _, c := range changes {
			h := &models.TodoHistory{
				TodoID:      todo.ID,
				ChangedByID: actor.ID,
				ChangedAt:   now,
				FieldName:   c.field,
				OldValue:    c.from,
				NewValue:    c.to,
			}
			if err := todos.AddHistory(ctx, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// History lists the change records of a todo
func (s *TodoService) History(ctx context.Context, actor *domain.Actor, todoID uint) ([]*models.TodoHistory, error) {
	if _, err := s.loadTodo(ctx, nil, actor, todoID); err != nil {
		return nil, err
	}
	return s.todoRepo.ListHistory(ctx, todoID)
}

// Delete removes a todo and its history
func (s *TodoService) Delete(ctx context.Context, actor *domain.Actor, todoID uint) error {
	return s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.loadTodo(ctx, tx, actor, todoID); err != nil {
			return err
		}
		return s.todoRepo.WithTx(tx).Delete(ctx, todoID)
	})
}

// CreateTemplate saves a reusable todo template owned by the actor
func (s *TodoService) CreateTemplate(ctx context.Context, actor *domain.Actor, input *TemplateInput) (*models.TodoTemplate, error) {
	if actor == nil {
		return nil, unauthorized()
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == 0 {
		priority = defaultTodoPriority
	}
	tmpl := &models.TodoTemplate{
		Title:       input.Title,
		Content:     strings.TrimSpace(input.Content),
		Priority:    priority,
		CreatedByID: actor.ID,
	}
	if err := s.todoRepo.CreateTemplate(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// ListTemplates lists the actor's templates
func (s *TodoService) ListTemplates(ctx context.Context, actor *domain.Actor) ([]*models.TodoTemplate, error) {
	if actor == nil {
		return nil, unauthorized()
	}
	return s.todoRepo.ListTemplates(ctx, actor.ID)
}

// CreateFromTemplate creates a todo on a case from one of the actor's templates
func (s *TodoService) CreateFromTemplate(ctx context.Context, actor *domain.Actor, templateID, caseID uint, deadline string) (*models.Todo, error) {
	if actor == nil {
		return nil, unauthorized()
	}
	tmpl, err := s.todoRepo.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, notFoundOr(err, ErrTemplateNotFound)
	}
	if tmpl.CreatedByID != actor.ID {
		return nil, ErrTemplateNotFound
	}
	return s.Create(ctx, actor, caseID, &TodoInput{
		Title:    tmpl.Title,
		Content:  tmpl.Content,
		Deadline: deadline,
		Priority: tmpl.Priority,
	})
}
