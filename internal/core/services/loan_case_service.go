package services

import (
	"context"
	"strings"
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/metrics"
	"loanhub/internal/pkg/pagination"
	"loanhub/internal/pkg/validate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// LoanCaseService handles loan case business logic
type LoanCaseService struct {
	caseRepo    *repositories.LoanCaseRepository
	historyRepo *repositories.StatusChangeRepository
	userRepo    repositories.UserRepository
	engine      *LifecycleEngine
	access      *AccessControl
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         Clock
}

// NewLoanCaseService creates a new loan case service
func NewLoanCaseService(
	caseRepo *repositories.LoanCaseRepository,
	historyRepo *repositories.StatusChangeRepository,
	userRepo repositories.UserRepository,
	engine *LifecycleEngine,
	access *AccessControl,
	m *metrics.Metrics,
	log *zap.Logger,
	now Clock,
) *LoanCaseService {
	return &LoanCaseService{
		caseRepo:    caseRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		engine:      engine,
		access:      access,
		metrics:     m,
		log:         log,
		now:         now,
	}
}

// CaseInput carries the editable case fields. Nil fields are left unchanged.
// Status, schedule and urgency have their own operations.
type CaseInput struct {
	Referrer   *string `json:"referrer" validate:"omitempty,max=100"`
	Introducer *string `json:"introducer" validate:"omitempty,max=100"`
	LoanType   *string `json:"loan_type" validate:"omitempty,oneof=신규 추가 대환"`

	BorrowerName        *string `json:"borrower_name" validate:"omitempty,max=100"`
	BorrowerBirth       *string `json:"borrower_birth" validate:"omitempty,len=6,numeric"`
	BorrowerPhone       *string `json:"borrower_phone" validate:"omitempty,kr_phone"`
	BorrowerCreditScore *int    `json:"borrower_credit_score" validate:"omitempty,min=1,max=1000"`

	AddressMain             *string  `json:"address_main" validate:"omitempty,max=200"`
	AddressDetail           *string  `json:"address_detail" validate:"omitempty,max=200"`
	Area                    *float64 `json:"area" validate:"omitempty,gte=0"`
	IsLowerThan2nd          *bool    `json:"is_lower_than_2nd"`
	IsCommercialResidential *bool    `json:"is_commercial_residential"`
	IsAbove4thRank          *bool    `json:"is_above_4th_rank"`
	HasRegistrationIssue    *bool    `json:"has_registration_issue"`
	IsTradingPriceLow       *bool    `json:"is_trading_price_low"`
	IsTenant                *bool    `json:"is_tenant"`

	PriceType   *string `json:"price_type" validate:"omitempty,max=20"`
	PriceAmount *int64  `json:"price_amount" validate:"omitempty,gte=0"`

	BusinessType        *string `json:"business_type" validate:"omitempty,max=20"`
	BusinessNumber      *string `json:"business_number" validate:"omitempty,max=20"`
	BusinessCategory    *string `json:"business_category" validate:"omitempty,max=100"`
	BusinessItem        *string `json:"business_item" validate:"omitempty,max=100"`
	MonthlySales        *int64  `json:"monthly_sales" validate:"omitempty,gte=0"`
	VatStatus           *string `json:"vat_status" validate:"omitempty,max=50"`
	OtherIncome         *string `json:"other_income"`
	IsFakeBusiness      *bool   `json:"is_fake_business"`
	IsSoho              *bool   `json:"is_soho"`
	NeedProofOfUse      *bool   `json:"need_proof_of_use"`
	IsSeparateHousehold *bool   `json:"is_separate_household"`
	Residents           *string `json:"residents"`

	LoanAmount   *int64   `json:"loan_amount" validate:"omitempty,gte=0"`
	InterestRate *float64 `json:"interest_rate" validate:"omitempty,gte=0,lte=100"`

	WaitingForReferenceResponse *bool `json:"waiting_for_reference_response"`

	ReceptionDate    *string `json:"reception_date" validate:"omitempty,datetime=2006-01-02"`
	AuthorizingDate  *string `json:"authorizing_date" validate:"omitempty,datetime=2006-01-02"`
	JournalizingDate *string `json:"journalizing_date" validate:"omitempty,datetime=2006-01-02"`
}

// CreateCaseInput represents create case input
type CreateCaseInput struct {
	CaseInput
	Status    *string `json:"status"`
	ManagerID *uint   `json:"manager_id"`
}

// ListCasesInput represents list cases input
type ListCasesInput struct {
	Status     string
	UrgentOnly bool
	Search     string
	ManagerID  *uint
	Page       *pagination.Params
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return nil, domain.Invalid("날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)", map[string]string{"date": s})
	}
	return &t, nil
}

// apply copies the non-nil input fields onto lc
func (in *CaseInput) apply(lc *models.LoanCase, loc *time.Location) error {
	setString(&lc.Referrer, in.Referrer)
	setString(&lc.Introducer, in.Introducer)
	setString(&lc.LoanType, in.LoanType)

	setString(&lc.BorrowerName, in.BorrowerName)
	setString(&lc.BorrowerBirth, in.BorrowerBirth)
	setString(&lc.BorrowerPhone, in.BorrowerPhone)
	if in.BorrowerCreditScore != nil {
		lc.BorrowerCreditScore = in.BorrowerCreditScore
	}

	setString(&lc.AddressMain, in.AddressMain)
	setString(&lc.AddressDetail, in.AddressDetail)
	if in.Area != nil {
		lc.Area = in.Area
	}
	setBool(&lc.IsLowerThan2nd, in.IsLowerThan2nd)
	setBool(&lc.IsCommercialResidential, in.IsCommercialResidential)
	setBool(&lc.IsAbove4thRank, in.IsAbove4thRank)
	setBool(&lc.HasRegistrationIssue, in.HasRegistrationIssue)
	setBool(&lc.IsTradingPriceLow, in.IsTradingPriceLow)
	setBool(&lc.IsTenant, in.IsTenant)

	setString(&lc.PriceType, in.PriceType)
	if in.PriceAmount != nil {
		lc.PriceAmount = in.PriceAmount
	}

	setString(&lc.BusinessType, in.BusinessType)
	setString(&lc.BusinessNumber, in.BusinessNumber)
	setString(&lc.BusinessCategory, in.BusinessCategory)
	setString(&lc.BusinessItem, in.BusinessItem)
	if in.MonthlySales != nil {
		lc.MonthlySales = in.MonthlySales
	}
	setString(&lc.VatStatus, in.VatStatus)
	setString(&lc.OtherIncome, in.OtherIncome)
	setBool(&lc.IsFakeBusiness, in.IsFakeBusiness)
	setBool(&lc.IsSoho, in.IsSoho)
	setBool(&lc.NeedProofOfUse, in.NeedProofOfUse)
	setBool(&lc.IsSeparateHousehold, in.IsSeparateHousehold)
	setString(&lc.Residents, in.Residents)

	if in.LoanAmount != nil {
		lc.LoanAmount = in.LoanAmount
	}
	if in.InterestRate != nil {
		lc.InterestRate = in.InterestRate
	}
	setBool(&lc.WaitingForReferenceResponse, in.WaitingForReferenceResponse)

	dates := []struct {
		src *string
		dst **time.Time
	}{
		{in.ReceptionDate, &lc.ReceptionDate},
		{in.AuthorizingDate, &lc.AuthorizingDate},
		{in.JournalizingDate, &lc.JournalizingDate},
	}
	for _, d := range dates {
		if d.src == nil {
			continue
		}
		t, err := parseDate(*d.src, loc)
		if err != nil {
			return err
		}
		*d.dst = t
	}
	return nil
}

// persist recomputes urgency and writes the case row. Every case save goes through here.
func (s *LoanCaseService) persist(ctx context.Context, cases *repositories.LoanCaseRepository, lc *models.LoanCase, now time.Time) error {
	s.engine.RecomputeUrgency(lc, now)
	if lc.ID == 0 {
		return cases.Create(ctx, lc)
	}
	return cases.Save(ctx, lc)
}

// loadAccessible loads a case and checks the actor may perform action on it
func (s *LoanCaseService) loadAccessible(ctx context.Context, cases *repositories.LoanCaseRepository, actor *domain.Actor, caseID uint, action Action) (*models.LoanCase, error) {
	if err := s.access.CanInitiate(actor, action); err != nil {
		return nil, err
	}
	lc, err := cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, notFoundOr(err, ErrCaseNotFound)
	}
	if err := s.access.CanAccess(actor, lc); err != nil {
		return nil, err
	}
	return lc, nil
}

// Authorize loads a case the actor may act on. Child-entity services use it
// inside their own transactions.
func (s *LoanCaseService) Authorize(ctx context.Context, tx *gorm.DB, actor *domain.Actor, caseID uint, action Action) (*models.LoanCase, error) {
	cases := s.caseRepo
	if tx != nil {
		cases = cases.WithTx(tx)
	}
	return s.loadAccessible(ctx, cases, actor, caseID, action)
}

// Transaction runs fn in one database transaction shared by case and child writes
func (s *LoanCaseService) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.caseRepo.Transaction(ctx, fn)
}

// Now returns the service clock's current time
func (s *LoanCaseService) Now() time.Time {
	return s.now()
}

// resolveManager checks the requested manager is visible to the actor
func (s *LoanCaseService) resolveManager(ctx context.Context, actor *domain.Actor, managerID uint) (*models.User, error) {
	if err := s.access.CanInitiate(actor, ActionManage); err != nil {
		return nil, err
	}
	manager, err := s.userRepo.GetByID(ctx, managerID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	if err := s.access.CanAccessUser(actor, manager); err != nil {
		return nil, err
	}
	return manager, nil
}

// Create creates a new case owned by the actor or the requested manager
func (s *LoanCaseService) Create(ctx context.Context, actor *domain.Actor, input *CreateCaseInput) (*models.LoanCase, error) {
	if err := s.access.CanInitiate(actor, ActionEdit); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.BorrowerName == nil || strings.TrimSpace(*input.BorrowerName) == "" {
		return nil, domain.Invalid("차주명은 필수 입력 항목입니다", map[string]string{"borrower_name": "필수 항목입니다"})
	}

	target := s.engine.Workflow().Initial()
	if input.Status != nil && *input.Status != "" {
		target = domain.Status(*input.Status)
		if !s.engine.Workflow().IsValid(target) {
			return nil, &domain.Error{Kind: domain.ErrInvalidStatus, Message: "유효하지 않은 상태입니다: " + *input.Status}
		}
	}

	managerID := actor.ID
	if input.ManagerID != nil && *input.ManagerID != actor.ID {
		manager, err := s.resolveManager(ctx, actor, *input.ManagerID)
		if err != nil {
			return nil, err
		}
		managerID = manager.ID
	}

	now := s.now()
	lc := &models.LoanCase{
		Status:    string(s.engine.Workflow().Initial()),
		ManagerID: &managerID,
	}
	if err := input.CaseInput.apply(lc, now.Location()); err != nil {
		return nil, err
	}

	var change *models.CaseStatusChange
	err := s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cases := s.caseRepo.WithTx(tx)
		if err := s.persist(ctx, cases, lc, now); err != nil {
			return err
		}
		var err error
		change, err = s.engine.Transition(lc, target, actor, now)
		if err != nil || change == nil {
			return err
		}
		if err := s.historyRepo.WithTx(tx).Append(ctx, change); err != nil {
			return err
		}
		return s.persist(ctx, cases, lc, now)
	})
	if err != nil {
		return nil, err
	}
	if change != nil {
		s.metrics.IncTransition(change.ToStatus)
	}

	s.log.Info("loan case created",
		zap.Uint("case_id", lc.ID),
		zap.Uint("actor_id", actor.ID),
		zap.Uint("manager_id", managerID),
		zap.String("status", lc.Status))

	return s.caseRepo.GetByID(ctx, lc.ID)
}

// Get gets a case with all child collections
func (s *LoanCaseService) Get(ctx context.Context, actor *domain.Actor, caseID uint) (*models.LoanCase, error) {
	if err := s.access.CanInitiate(actor, ActionView); err != nil {
		return nil, err
	}
	lc, err := s.caseRepo.GetDetail(ctx, caseID)
	if err != nil {
		return nil, notFoundOr(err, ErrCaseNotFound)
	}
	if err := s.access.CanAccess(actor, lc); err != nil {
		return nil, err
	}
	return lc, nil
}

// List lists the cases visible to the actor
func (s *LoanCaseService) List(ctx context.Context, actor *domain.Actor, input *ListCasesInput) (*pagination.Response, error) {
	if err := s.access.CanInitiate(actor, ActionView); err != nil {
		return nil, err
	}
	if input.Status != "" && !s.engine.Workflow().IsValid(domain.Status(input.Status)) {
		return nil, &domain.Error{Kind: domain.ErrInvalidStatus, Message: "유효하지 않은 상태입니다: " + input.Status}
	}
	page := input.Page
	if page == nil {
		page = pagination.NewParams(1, pagination.DefaultLimit)
	}

	cases, total, err := s.caseRepo.List(ctx, repositories.CaseFilter{
		Scope:      s.access.Scope(actor),
		Status:     input.Status,
		UrgentOnly: input.UrgentOnly,
		Search:     strings.TrimSpace(input.Search),
		ManagerID:  input.ManagerID,
		Offset:     page.Offset,
		Limit:      page.Limit,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]*models.LoanCaseResponse, len(cases))
	for i, lc := range cases {
		items[i] = lc.ToResponse(now)
	}
	return pagination.NewResponse(items, page, total), nil
}

// Update patches the case fields
func (s *LoanCaseService) Update(ctx context.Context, actor *domain.Actor, caseID uint, input *CaseInput) (*models.LoanCase, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.BorrowerName != nil && strings.TrimSpace(*input.BorrowerName) == "" {
		return nil, domain.Invalid("차주명은 필수 입력 항목입니다", map[string]string{"borrower_name": "필수 항목입니다"})
	}

	now := s.now()
	var lc *models.LoanCase
	err := s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cases := s.caseRepo.WithTx(tx)
		var err error
		lc, err = s.loadAccessible(ctx, cases, actor, caseID, ActionEdit)
		if err != nil {
			return err
		}
		if err := input.apply(lc, now.Location()); err != nil {
			return err
		}
		return s.persist(ctx, cases, lc, now)
	})
	if err != nil {
		return nil, err
	}
	return lc, nil
}

// ChangeStatus moves the case to a new status and records the history row
func (s *LoanCaseService) ChangeStatus(ctx context.Context, actor *domain.Actor, caseID uint, status string) (*models.LoanCase, error) {
	now := s.now()
	var lc *models.LoanCase
	var change *models.CaseStatusChange
	err := s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cases := s.caseRepo.WithTx(tx)
		var err error
		lc, err = s.loadAccessible(ctx, cases, actor, caseID, ActionEdit)
		if err != nil {
			return err
		}
		change, err = s.engine.Transition(lc, domain.Status(status), actor, now)
		if err != nil {
			return err
		}
		if change != nil {
			if err := s.historyRepo.WithTx(tx).Append(ctx, change); err != nil {
				return err
			}
		}
		return s.persist(ctx, cases, lc, now)
	})
	if err != nil {
		return nil, err
	}

	if change != nil {
		s.metrics.IncTransition(change.ToStatus)
		s.log.Info("case status changed",
			zap.Uint("case_id", caseID),
			zap.Uint("actor_id", actor.ID),
			zap.String("from", change.FromStatus),
			zap.String("to", change.ToStatus))
	}
	return lc, nil
}

// SetSchedule sets the scheduled date of a case in an urgent status
func (s *LoanCaseService) SetSchedule(ctx context.Context, actor *domain.Actor, caseID uint, date time.Time) (*models.LoanCase, error) {
	now := s.now()
	var lc *models.LoanCase
	err := s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cases := s.caseRepo.WithTx(tx)
		var err error
		lc, err = s.loadAccessible(ctx, cases, actor, caseID, ActionEdit)
		if err != nil {
			return err
		}
		if err := s.engine.SetScheduleDate(lc, date, now); err != nil {
			return err
		}
		return s.persist(ctx, cases, lc, now)
	})
	if err != nil {
		return nil, err
	}
	return lc, nil
}

// ParseScheduleDate parses a YYYY-MM-DD schedule date in the business time zone
func (s *LoanCaseService) ParseScheduleDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, domain.Invalid("예정일을 입력해주세요", map[string]string{"scheduled_date": "필수 항목입니다"})
	}
	t, err := parseDate(strings.TrimSpace(value), s.now().Location())
	if err != nil {
		return time.Time{}, err
	}
	return *t, nil
}

// ToggleUrgent flips the manual urgent flag. Only is_urgent is written, so a
// cleared flag is not re-derived until the next regular save.
func (s *LoanCaseService) ToggleUrgent(ctx context.Context, actor *domain.Actor, caseID uint) (bool, error) {
	var urgent bool
	err := s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cases := s.caseRepo.WithTx(tx)
		lc, err := s.loadAccessible(ctx, cases, actor, caseID, ActionEdit)
		if err != nil {
			return err
		}
		urgent = s.engine.ToggleUrgent(lc)
		return cases.SetUrgent(ctx, lc.ID, urgent)
	})
	return urgent, err
}

// History returns the status history of a case in append order
func (s *LoanCaseService) History(ctx context.Context, actor *domain.Actor, caseID uint) ([]*models.CaseStatusChange, error) {
	if _, err := s.loadAccessible(ctx, s.caseRepo, actor, caseID, ActionView); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByCase(ctx, caseID)
}

// AssignManager hands a case to another manager
func (s *LoanCaseService) AssignManager(ctx context.Context, actor *domain.Actor, caseID, managerID uint) (*models.LoanCase, error) {
	manager, err := s.resolveManager(ctx, actor, managerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var lc *models.LoanCase
	err = s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cases := s.caseRepo.WithTx(tx)
		var err error
		lc, err = s.loadAccessible(ctx, cases, actor, caseID, ActionManage)
		if err != nil {
			return err
		}
		lc.ManagerID = &manager.ID
		lc.Manager = manager
		return s.persist(ctx, cases, lc, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("case manager reassigned",
		zap.Uint("case_id", caseID),
		zap.Uint("actor_id", actor.ID),
		zap.Uint("manager_id", managerID))
	return lc, nil
}

// Delete removes a case and all child rows
func (s *LoanCaseService) Delete(ctx context.Context, actor *domain.Actor, caseID uint) error {
	err := s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
		cases := s.caseRepo.WithTx(tx)
		if _, err := s.loadAccessible(ctx, cases, actor, caseID, ActionEdit); err != nil {
			return err
		}
		return cases.Delete(ctx, caseID)
	})
	if err != nil {
		return err
	}
	s.log.Info("loan case deleted", zap.Uint("case_id", caseID), zap.Uint("actor_id", actor.ID))
	return nil
}

// SweepUrgency re-saves the cases whose urgency would flip today so the
// flag does not wait for the next manual edit. Returns how many flipped.
func (s *LoanCaseService) SweepUrgency(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.caseRepo.ListSweepCandidates(ctx, s.engine.Workflow().UrgentStatuses())
	if err != nil {
		return 0, err
	}

	flipped := 0
	for _, candidate := range candidates {
		preview := *candidate
		s.engine.RecomputeUrgency(&preview, now)
		if !preview.IsUrgent {
			continue
		}
		err := s.caseRepo.Transaction(ctx, func(tx *gorm.DB) error {
			cases := s.caseRepo.WithTx(tx)
			lc, err := cases.GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			return s.persist(ctx, cases, lc, now)
		})
		if err != nil {
			s.log.Error("urgency sweep failed", zap.Uint("case_id", candidate.ID), zap.Error(err))
			continue
		}
		flipped++
	}

	s.metrics.AddSweepFlips(flipped)
	return flipped, nil
}
