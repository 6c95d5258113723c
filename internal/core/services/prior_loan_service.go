package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/metrics"
	"loanhub/internal/pkg/validate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxPriorLoanAmount is the largest accepted prior loan in 만원 (10억원)
const MaxPriorLoanAmount = 1000000

// PriorLoanService handles prior loan business logic
type PriorLoanService struct {
	cases         *LoanCaseService
	priorLoanRepo *repositories.PriorLoanRepository
	ltv           *LTVValidator
	metrics       *metrics.Metrics
	log           *zap.Logger
}

// NewPriorLoanService creates a new prior loan service
func NewPriorLoanService(
	cases *LoanCaseService,
	priorLoanRepo *repositories.PriorLoanRepository,
	ltv *LTVValidator,
	m *metrics.Metrics,
	log *zap.Logger,
) *PriorLoanService {
	return &PriorLoanService{
		cases:         cases,
		priorLoanRepo: priorLoanRepo,
		ltv:           ltv,
		metrics:       m,
		log:           log,
	}
}

// PriorLoanInput represents create/update prior loan input
type PriorLoanInput struct {
	LoanType         string `json:"loan_type" validate:"required,oneof=선설정 대환"`
	FinancialCompany string `json:"financial_company" validate:"required,max=50"`
	Amount           int64  `json:"amount" validate:"required,gt=0,lte=1000000"`
}

// List lists the prior loans of a case, 선설정 first then by amount descending
func (s *PriorLoanService) List(ctx context.Context, actor *domain.Actor, caseID uint) ([]*models.PriorLoan, error) {
	lc, err := s.cases.Authorize(ctx, nil, actor, caseID, ActionView)
	if err != nil {
		return nil, err
	}
	loans := make([]*models.PriorLoan, len(lc.PriorLoans))
	for i := range lc.PriorLoans {
		loans[i] = &lc.PriorLoans[i]
	}
	sortPriorLoans(loans)
	return loans, nil
}

// Create adds a prior loan after checking the LTV ceiling
func (s *PriorLoanService) Create(ctx context.Context, actor *domain.Actor, caseID uint, input *PriorLoanInput) (*models.PriorLoan, error) {
	input.FinancialCompany = strings.TrimSpace(input.FinancialCompany)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var loan *models.PriorLoan
	err := s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		lc, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit)
		if err != nil {
			return err
		}
		if err := s.checkLimit(lc, PreLienDelta("", 0, input.LoanType, input.Amount)); err != nil {
			return err
		}
		loan = &models.PriorLoan{
			LoanCaseID:       caseID,
			LoanType:         input.LoanType,
			FinancialCompany: input.FinancialCompany,
			Amount:           input.Amount,
		}
		return s.priorLoanRepo.WithTx(tx).Create(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Update replaces a prior loan. The ceiling is checked against the change in
// the pre-lien sum so the edited row is not counted twice.
func (s *PriorLoanService) Update(ctx context.Context, actor *domain.Actor, caseID, loanID uint, input *PriorLoanInput) (*models.PriorLoan, error) {
	input.FinancialCompany = strings.TrimSpace(input.FinancialCompany)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var loan *models.PriorLoan
	err := s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		lc, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit)
		if err != nil {
			return err
		}
		loans := s.priorLoanRepo.WithTx(tx)
		loan, err = loans.GetByID(ctx, loanID)
		if err != nil {
			return notFoundOr(err, ErrPriorLoanNotFound)
		}
		if loan.LoanCaseID != caseID {
			return ErrPriorLoanNotFound
		}

		delta := PreLienDelta(loan.LoanType, loan.Amount, input.LoanType, input.Amount)
		if err := s.checkLimit(lc, delta); err != nil {
			return err
		}

		loan.LoanType = input.LoanType
		loan.FinancialCompany = input.FinancialCompany
		loan.Amount = input.Amount
		return loans.Update(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Delete removes a prior loan
func (s *PriorLoanService) Delete(ctx context.Context, actor *domain.Actor, caseID, loanID uint) error {
	return s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit); err != nil {
			return err
		}
		loans := s.priorLoanRepo.WithTx(tx)
		loan, err := loans.GetByID(ctx, loanID)
		if err != nil {
			return notFoundOr(err, ErrPriorLoanNotFound)
		}
		if loan.LoanCaseID != caseID {
			return ErrPriorLoanNotFound
		}
		return loans.Delete(ctx, loan.ID)
	})
}

// checkLimit skips writes that do not grow the pre-lien sum
func (s *PriorLoanService) checkLimit(lc *models.LoanCase, additional int64) error {
	if additional <= 0 {
		return nil
	}
	if err := s.ltv.Check(lc, additional); err != nil {
		s.metrics.IncLtvRejection()
		s.log.Info("prior loan rejected by ltv ceiling",
			zap.Uint("case_id", lc.ID),
			zap.Int64("additional", additional))
		return err
	}
	return nil
}

func sortPriorLoans(loans []*models.PriorLoan) {
	sort.SliceStable(loans, func(i, j int) bool {
		a, b := loans[i], loans[j]
		if a.LoanType != b.LoanType {
			return a.LoanType == domain.PriorLoanPreLien
		}
		return a.Amount > b.Amount
	})
}

// FormatAmount renders a 만원 amount as 억/만원 text
func FormatAmount(amount int64) string {
	if amount >= 10000 {
		eok := amount / 10000
		man := amount % 10000
		if man > 0 {
			return fmt.Sprintf("%d억 %d만원", eok, man)
		}
		return fmt.Sprintf("%d억원", eok)
	}
	return fmt.Sprintf("%d만원", amount)
}
