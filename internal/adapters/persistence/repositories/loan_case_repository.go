package repositories

import (
	"context"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaseFilter narrows a case listing
type CaseFilter struct {
	Scope      domain.Scope
	Status     string
	UrgentOnly bool
	Search     string
	ManagerID  *uint
	Offset     int
	Limit      int
}

// ScopeCases restricts a loan_cases query to what the scope may see.
// ScopeNone matches nothing.
func ScopeCases(db *gorm.DB, scope domain.Scope) *gorm.DB {
	switch scope.Kind {
	case domain.ScopeAll:
		return db
	case domain.ScopeBranch:
		return db.Where("loan_cases.manager_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&models.User{}).Select("id").
				Where("branch_id = ? OR team_id IN (?)", scope.ID,
					db.Session(&gorm.Session{NewDB: true}).Model(&models.Team{}).Select("id").Where("branch_id = ?", scope.ID)))
	case domain.ScopeTeam:
		return db.Where("loan_cases.manager_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&models.User{}).Select("id").Where("team_id = ?", scope.ID))
	case domain.ScopeOwn:
		return db.Where("loan_cases.manager_id = ?", scope.ID)
	default:
		return db.Where("1 = 0")
	}
}

// LoanCaseRepository handles loan case data access
type LoanCaseRepository struct {
	db *gorm.DB
}

// NewLoanCaseRepository creates a new loan case repository
func NewLoanCaseRepository(db *gorm.DB) *LoanCaseRepository {
	return &LoanCaseRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *LoanCaseRepository) WithTx(tx *gorm.DB) *LoanCaseRepository {
	return &LoanCaseRepository{db: tx}
}

// Transaction runs fn inside a database transaction
func (r *LoanCaseRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create creates a new loan case
func (r *LoanCaseRepository) Create(ctx context.Context, lc *models.LoanCase) error {
	return r.db.WithContext(ctx).Omit("Manager").Create(lc).Error
}

// GetByID gets a loan case with its manager and prior loans
func (r *LoanCaseRepository) GetByID(ctx context.Context, id uint) (*models.LoanCase, error) {
	var lc models.LoanCase
	err := r.db.WithContext(ctx).
		Preload("Manager.Team").
		Preload("PriorLoans", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&lc, id).Error
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

// GetDetail gets a loan case with every child collection
func (r *LoanCaseRepository) GetDetail(ctx context.Context, id uint) (*models.LoanCase, error) {
	var lc models.LoanCase
	err := r.db.WithContext(ctx).
		Preload("Manager.Team").
		Preload("PriorLoans", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Providers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ConsultingLogs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments.Writer").
		First(&lc, id).Error
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

// List lists loan cases with pagination
func (r *LoanCaseRepository) List(ctx context.Context, filter CaseFilter) ([]*models.LoanCase, int64, error) {
	var cases []*models.LoanCase
	var total int64

	query := ScopeCases(r.db.WithContext(ctx).Model(&models.LoanCase{}), filter.Scope)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UrgentOnly {
		query = query.Where("is_urgent = ?", true)
	}
	if filter.ManagerID != nil {
		query = query.Where("manager_id = ?", *filter.ManagerID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("borrower_name LIKE ? OR borrower_phone LIKE ? OR address_main LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := query.
		Preload("Manager.Team").
		Preload("PriorLoans", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := q.Find(&cases).Error; err != nil {
		return nil, 0, err
	}

	return cases, total, nil
}

// ListForExport loads every case in scope with the collections the exporter reads
func (r *LoanCaseRepository) ListForExport(ctx context.Context, scope domain.Scope) ([]*models.LoanCase, error) {
	var cases []*models.LoanCase
	err := ScopeCases(r.db.WithContext(ctx).Model(&models.LoanCase{}), scope).
		Preload("Manager").
		Preload("PriorLoans", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ConsultingLogs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Order("created_at DESC, id DESC").
		Find(&cases).Error
	return cases, err
}

// ListSweepCandidates returns non-urgent cases in the given statuses that have a scheduled date
func (r *LoanCaseRepository) ListSweepCandidates(ctx context.Context, statuses []domain.Status) ([]*models.LoanCase, error) {
	var cases []*models.LoanCase
	err := r.db.WithContext(ctx).
		Where("status IN ? AND is_urgent = ? AND scheduled_date IS NOT NULL", domain.StatusValues(statuses), false).
		Order("id ASC").
		Find(&cases).Error
	return cases, err
}

// Save writes every column of the case row. Associations are left untouched.
func (r *LoanCaseRepository) Save(ctx context.Context, lc *models.LoanCase) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(lc).Error
}

// SetUrgent writes only the is_urgent column
func (r *LoanCaseRepository) SetUrgent(ctx context.Context, id uint, urgent bool) error {
	return r.db.WithContext(ctx).Model(&models.LoanCase{}).Where("id = ?", id).
		UpdateColumn("is_urgent", urgent).Error
}

// Delete removes a case together with every child row
func (r *LoanCaseRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	todoIDs := db.Session(&gorm.Session{NewDB: true}).Model(&models.Todo{}).Select("id").Where("loan_case_id = ?", id)
	if err := db.Where("todo_id IN (?)", todoIDs).Delete(&models.TodoHistory{}).Error; err != nil {
		return err
	}
	children := []interface{}{
		&models.Todo{},
		&models.Event{},
		&models.CaseComment{},
		&models.ConsultingLog{},
		&models.PriorLoan{},
		&models.SecurityProvider{},
		&models.CaseStatusChange{},
	}
	for _, child := range children {
		if err := db.Where("loan_case_id = ?", id).Delete(child).Error; err != nil {
			return err
		}
	}
	return db.Delete(&models.LoanCase{}, id).Error
}

// StatusChangeRepository handles status history data access
type StatusChangeRepository struct {
	db *gorm.DB
}

// NewStatusChangeRepository creates a new status change repository
func NewStatusChangeRepository(db *gorm.DB) *StatusChangeRepository {
	return &StatusChangeRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *StatusChangeRepository) WithTx(tx *gorm.DB) *StatusChangeRepository {
	return &StatusChangeRepository{db: tx}
}

// Append inserts a history row
func (r *StatusChangeRepository) Append(ctx context.Context, change *models.CaseStatusChange) error {
	return r.db.WithContext(ctx).Omit("ChangedBy").Create(change).Error
}

// ListByCase returns the history of a case in append order
func (r *StatusChangeRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.CaseStatusChange, error) {
	var changes []*models.CaseStatusChange
	err := r.db.WithContext(ctx).
		Preload("ChangedBy").
		Where("loan_case_id = ?", caseID).
		Order("changed_at ASC, id ASC").
		Find(&changes).Error
	return changes, err
}
