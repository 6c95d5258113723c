package services

import (
	"fmt"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"
)

// LTVValidator enforces the pre-lien ceiling. The ceiling is the market price
// itself; only 선설정 prior loans count toward it.
type LTVValidator struct{}

// NewLTVValidator creates an LTV validator
func NewLTVValidator() *LTVValidator {
	return &LTVValidator{}
}

// ValidateLimit reports whether adding additional to the existing pre-lien sum
// stays within the price. Cases without a positive price always pass.
// lc.PriorLoans must be loaded.
func (v *LTVValidator) ValidateLimit(lc *models.LoanCase, additional int64) bool {
	if lc.PriceAmount == nil || *lc.PriceAmount <= 0 {
		return true
	}
	return lc.PreLienTotal()+additional <= *lc.PriceAmount
}

// Check is ValidateLimit returning an LtvExceeded error on failure
func (v *LTVValidator) Check(lc *models.LoanCase, additional int64) error {
	if v.ValidateLimit(lc, additional) {
		return nil
	}
	return domain.NewError(domain.ErrLtvExceeded, fmt.Sprintf(
		"선설정 합계가 시세를 초과합니다 (시세 %d만원, 기존 선설정 %d만원, 추가 %d만원)",
		*lc.PriceAmount, lc.PreLienTotal(), additional))
}

// PreLienDelta is the amount an edit adds to the pre-lien sum: the new amount
// if the new type is 선설정 minus the old amount if the old type was 선설정.
func PreLienDelta(oldType string, oldAmount int64, newType string, newAmount int64) int64 {
	var delta int64
	if newType == domain.PriorLoanPreLien {
		delta += newAmount
	}
	if oldType == domain.PriorLoanPreLien {
		delta -= oldAmount
	}
	return delta
}
