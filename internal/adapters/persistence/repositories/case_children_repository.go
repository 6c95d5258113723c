package repositories

import (
	"context"

	"loanhub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// SecurityProviderRepository handles security provider data access
type SecurityProviderRepository struct {
	db *gorm.DB
}

// NewSecurityProviderRepository creates a new security provider repository
func NewSecurityProviderRepository(db *gorm.DB) *SecurityProviderRepository {
	return &SecurityProviderRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *SecurityProviderRepository) WithTx(tx *gorm.DB) *SecurityProviderRepository {
	return &SecurityProviderRepository{db: tx}
}

// Create creates a new provider
func (r *SecurityProviderRepository) Create(ctx context.Context, p *models.SecurityProvider) error {
	return r.db.WithContext(ctx).Omit("RelatedPerson").Create(p).Error
}

// GetByID gets a provider by ID
func (r *SecurityProviderRepository) GetByID(ctx context.Context, id uint) (*models.SecurityProvider, error) {
	var p models.SecurityProvider
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByCase lists the providers of a case
func (r *SecurityProviderRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.SecurityProvider, error) {
	var providers []*models.SecurityProvider
	err := r.db.WithContext(ctx).
		Preload("RelatedPerson").
		Where("loan_case_id = ?", caseID).
		Order("id ASC").
		Find(&providers).Error
	return providers, err
}

// Update updates a provider
func (r *SecurityProviderRepository) Update(ctx context.Context, p *models.SecurityProvider) error {
	return r.db.WithContext(ctx).Omit("RelatedPerson").Save(p).Error
}

// ClearRelatedPerson nulls every back-reference to the given provider
func (r *SecurityProviderRepository) ClearRelatedPerson(ctx context.Context, providerID uint) error {
	return r.db.WithContext(ctx).Model(&models.SecurityProvider{}).
		Where("related_person_id = ?", providerID).
		Updates(map[string]interface{}{"related_person_id": nil, "relationship_type": ""}).Error
}

// Delete deletes a provider
func (r *SecurityProviderRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.SecurityProvider{}, id).Error
}

// PriorLoanRepository handles prior loan data access
type PriorLoanRepository struct {
	db *gorm.DB
}

// NewPriorLoanRepository creates a new prior loan repository
func NewPriorLoanRepository(db *gorm.DB) *PriorLoanRepository {
	return &PriorLoanRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PriorLoanRepository) WithTx(tx *gorm.DB) *PriorLoanRepository {
	return &PriorLoanRepository{db: tx}
}

// Create creates a new prior loan
func (r *PriorLoanRepository) Create(ctx context.Context, pl *models.PriorLoan) error {
	return r.db.WithContext(ctx).Create(pl).Error
}

// GetByID gets a prior loan by ID
func (r *PriorLoanRepository) GetByID(ctx context.Context, id uint) (*models.PriorLoan, error) {
	var pl models.PriorLoan
	if err := r.db.WithContext(ctx).First(&pl, id).Error; err != nil {
		return nil, err
	}
	return &pl, nil
}

// ListByCase lists the prior loans of a case
func (r *PriorLoanRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.PriorLoan, error) {
	var loans []*models.PriorLoan
	err := r.db.WithContext(ctx).Where("loan_case_id = ?", caseID).Order("id ASC").Find(&loans).Error
	return loans, err
}

// Update updates a prior loan
func (r *PriorLoanRepository) Update(ctx context.Context, pl *models.PriorLoan) error {
	return r.db.WithContext(ctx).Save(pl).Error
}

// Delete deletes a prior loan
func (r *PriorLoanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PriorLoan{}, id).Error
}

// ConsultingLogRepository handles consulting log data access
type ConsultingLogRepository struct {
	db *gorm.DB
}

// NewConsultingLogRepository creates a new consulting log repository
func NewConsultingLogRepository(db *gorm.DB) *ConsultingLogRepository {
	return &ConsultingLogRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ConsultingLogRepository) WithTx(tx *gorm.DB) *ConsultingLogRepository {
	return &ConsultingLogRepository{db: tx}
}

// Create creates a new consulting log
func (r *ConsultingLogRepository) Create(ctx context.Context, log *models.ConsultingLog) error {
	return r.db.WithContext(ctx).Omit("CreatedBy").Create(log).Error
}

// GetByID gets a consulting log by ID
func (r *ConsultingLogRepository) GetByID(ctx context.Context, id uint) (*models.ConsultingLog, error) {
	var log models.ConsultingLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// ListByCase lists the logs of a case, newest first
func (r *ConsultingLogRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.ConsultingLog, error) {
	var logs []*models.ConsultingLog
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Where("loan_case_id = ?", caseID).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	return logs, err
}

// Delete deletes a consulting log
func (r *ConsultingLogRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ConsultingLog{}, id).Error
}

// CommentRepository handles case comment data access
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *CommentRepository) WithTx(tx *gorm.DB) *CommentRepository {
	return &CommentRepository{db: tx}
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, c *models.CaseComment) error {
	return r.db.WithContext(ctx).Omit("Writer", "LoanCase").Create(c).Error
}

// GetByID gets a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id uint) (*models.CaseComment, error) {
	var c models.CaseComment
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByCase lists the comments of a case in posting order
func (r *CommentRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.CaseComment, error) {
	var comments []*models.CaseComment
	err := r.db.WithContext(ctx).
		Preload("Writer").
		Where("loan_case_id = ?", caseID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// ListUnreadQuestions lists unread questions on cases managed by the user
func (r *CommentRepository) ListUnreadQuestions(ctx context.Context, managerID uint, limit int) ([]*models.CaseComment, error) {
	var comments []*models.CaseComment
	q := r.db.WithContext(ctx).
		Preload("Writer").
		Preload("LoanCase").
		Joins("JOIN loan_cases ON loan_cases.id = case_comments.loan_case_id").
		Where("loan_cases.manager_id = ? AND case_comments.is_question = ? AND case_comments.is_read = ?", managerID, true, false).
		Order("case_comments.created_at DESC, case_comments.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&comments).Error
	return comments, err
}

// MarkRead flags the case's comments of the given kind as read
func (r *CommentRepository) MarkRead(ctx context.Context, caseID uint, questions bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CaseComment{}).
		Where("loan_case_id = ? AND is_question = ? AND is_read = ?", caseID, questions, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Delete deletes a comment and every reply below it
func (r *CommentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{id}
		for level := ids; len(level) > 0; {
			var replies []uint
			if err := tx.Model(&models.CaseComment{}).Where("parent_id IN ?", level).Pluck("id", &replies).Error; err != nil {
				return err
			}
			ids = append(ids, replies...)
			level = replies
		}
		return tx.Delete(&models.CaseComment{}, ids).Error
	})
}

// EventRepository handles calendar event data access
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{db: tx}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// GetByID gets an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var e models.Event
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByCase lists the events of a case
func (r *EventRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).Where("loan_case_id = ?", caseID).Order("date ASC, id ASC").Find(&events).Error
	return events, err
}

// ListByCases lists the dated events of the given cases
func (r *EventRepository) ListByCases(ctx context.Context, caseIDs []uint) ([]*models.Event, error) {
	var events []*models.Event
	if len(caseIDs) == 0 {
		return events, nil
	}
	err := r.db.WithContext(ctx).
		Where("loan_case_id IN ? AND date IS NOT NULL", caseIDs).
		Order("date ASC, id ASC").
		Find(&events).Error
	return events, err
}

// Delete deletes an event
func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Event{}, id).Error
}

// NoticeRepository handles notice data access
type NoticeRepository struct {
	db *gorm.DB
}

// NewNoticeRepository creates a new notice repository
func NewNoticeRepository(db *gorm.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *NoticeRepository) WithTx(tx *gorm.DB) *NoticeRepository {
	return &NoticeRepository{db: tx}
}

// Create creates a new notice
func (r *NoticeRepository) Create(ctx context.Context, n *models.Notice) error {
	return r.db.WithContext(ctx).Omit("CreatedBy").Create(n).Error
}

// GetByID gets a notice by ID
func (r *NoticeRepository) GetByID(ctx context.Context, id uint) (*models.Notice, error) {
	var n models.Notice
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// ListActive lists active notices, highest priority first.
// End dates are checked by the caller.
func (r *NoticeRepository) ListActive(ctx context.Context) ([]*models.Notice, error) {
	var notices []*models.Notice
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		Find(&notices).Error
	return notices, err
}

// Deactivate hides a notice
func (r *NoticeRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Notice{}).Where("id = ?", id).Update("is_active", false).Error
}

// TodoRepository handles todo, template and history data access
type TodoRepository struct {
	db *gorm.DB
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *gorm.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *TodoRepository) WithTx(tx *gorm.DB) *TodoRepository {
	return &TodoRepository{db: tx}
}

// Transaction runs fn inside a database transaction
func (r *TodoRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create creates a new todo
func (r *TodoRepository) Create(ctx context.Context, t *models.Todo) error {
	return r.db.WithContext(ctx).Omit("CreatedBy", "AssignedTo", "Histories").Create(t).Error
}

// GetByID gets a todo by ID
func (r *TodoRepository) GetByID(ctx context.Context, id uint) (*models.Todo, error) {
	var t models.Todo
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByCase lists the unarchived todos of a case
func (r *TodoRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.Todo, error) {
	var todos []*models.Todo
	err := r.db.WithContext(ctx).
		Preload("AssignedTo").
		Where("loan_case_id = ? AND is_archived = ?", caseID, false).
		Order("priority DESC").Order("deadline IS NULL, deadline ASC").Order("id ASC").
		Find(&todos).Error
	return todos, err
}

// ListForUser lists the unarchived todos the user created or was assigned
func (r *TodoRepository) ListForUser(ctx context.Context, userID uint) ([]*models.Todo, error) {
	var todos []*models.Todo
	err := r.db.WithContext(ctx).
		Preload("AssignedTo").
		Where("(created_by_id = ? OR assigned_to_id = ?) AND is_archived = ?", userID, userID, false).
		Order("priority DESC").Order("deadline IS NULL, deadline ASC").Order("id ASC").
		Find(&todos).Error
	return todos, err
}

// Update updates a todo
func (r *TodoRepository) Update(ctx context.Context, t *models.Todo) error {
	return r.db.WithContext(ctx).Omit("CreatedBy", "AssignedTo", "Histories").Save(t).Error
}

// Delete deletes a todo and its history
func (r *TodoRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("todo_id = ?", id).Delete(&models.TodoHistory{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Todo{}, id).Error
}

// AddHistory appends a change record
func (r *TodoRepository) AddHistory(ctx context.Context, h *models.TodoHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// ListHistory lists the change records of a todo
func (r *TodoRepository) ListHistory(ctx context.Context, todoID uint) ([]*models.TodoHistory, error) {
	var histories []*models.TodoHistory
	err := r.db.WithContext(ctx).Where("todo_id = ?", todoID).Order("changed_at ASC, id ASC").Find(&histories).Error
	return histories, err
}

// CreateTemplate creates a new template
func (r *TodoRepository) CreateTemplate(ctx context.Context, t *models.TodoTemplate) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetTemplate gets a template by ID
func (r *TodoRepository) GetTemplate(ctx context.Context, id uint) (*models.TodoTemplate, error) {
	var t models.TodoTemplate
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates lists the templates owned by a user
func (r *TodoRepository) ListTemplates(ctx context.Context, ownerID uint) ([]*models.TodoTemplate, error) {
	var templates []*models.TodoTemplate
	err := r.db.WithContext(ctx).Where("created_by_id = ?", ownerID).Order("id ASC").Find(&templates).Error
	return templates, err
}
