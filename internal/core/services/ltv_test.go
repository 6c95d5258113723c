package services

import (
	"testing"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func caseWithLoans(price *int64, loans ...models.PriorLoan) *models.LoanCase {
	return &models.LoanCase{PriceAmount: price, PriorLoans: loans}
}

func TestLTVValidator_ValidateLimit(t *testing.T) {
	v := NewLTVValidator()
	preLien := func(amount int64) models.PriorLoan {
		return models.PriorLoan{LoanType: domain.PriorLoanPreLien, Amount: amount}
	}
	refinance := func(amount int64) models.PriorLoan {
		return models.PriorLoan{LoanType: domain.PriorLoanRefinance, Amount: amount}
	}

	tests := []struct {
		name       string
		lc         *models.LoanCase
		additional int64
		want       bool
	}{
		{name: "no price always passes", lc: caseWithLoans(nil, preLien(99999)), additional: 99999, want: true},
		{name: "under the price", lc: caseWithLoans(int64Ptr(50000), preLien(20000)), additional: 10000, want: true},
		{name: "exactly the price", lc: caseWithLoans(int64Ptr(50000), preLien(20000)), additional: 30000, want: true},
		{name: "over the price", lc: caseWithLoans(int64Ptr(50000), preLien(20000)), additional: 30001, want: false},
		{name: "refinance does not count", lc: caseWithLoans(int64Ptr(50000), refinance(45000)), additional: 50000, want: true},
		{name: "zero price is skipped", lc: caseWithLoans(int64Ptr(0)), additional: 1, want: true},
		{name: "negative price is skipped", lc: caseWithLoans(int64Ptr(-100), preLien(500)), additional: 500, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.ValidateLimit(tt.lc, tt.additional))
		})
	}
}

func TestLTVValidator_Check(t *testing.T) {
	v := NewLTVValidator()
	lc := caseWithLoans(int64Ptr(10000), models.PriorLoan{LoanType: domain.PriorLoanPreLien, Amount: 8000})

	assert.NoError(t, v.Check(lc, 2000))
	err := v.Check(lc, 2001)
	assert.ErrorIs(t, err, domain.ErrLtvExceeded)
	assert.Contains(t, err.Error(), "10000")
}

func TestPreLienDelta(t *testing.T) {
	tests := []struct {
		name      string
		oldType   string
		oldAmount int64
		newType   string
		newAmount int64
		want      int64
	}{
		{name: "new pre-lien", newType: domain.PriorLoanPreLien, newAmount: 3000, want: 3000},
		{name: "new refinance", newType: domain.PriorLoanRefinance, newAmount: 3000, want: 0},
		{name: "pre-lien grows", oldType: domain.PriorLoanPreLien, oldAmount: 3000, newType: domain.PriorLoanPreLien, newAmount: 5000, want: 2000},
		{name: "pre-lien shrinks", oldType: domain.PriorLoanPreLien, oldAmount: 5000, newType: domain.PriorLoanPreLien, newAmount: 1000, want: -4000},
		{name: "refinance becomes pre-lien", oldType: domain.PriorLoanRefinance, oldAmount: 5000, newType: domain.PriorLoanPreLien, newAmount: 5000, want: 5000},
		{name: "pre-lien becomes refinance", oldType: domain.PriorLoanPreLien, oldAmount: 5000, newType: domain.PriorLoanRefinance, newAmount: 5000, want: -5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreLienDelta(tt.oldType, tt.oldAmount, tt.newType, tt.newAmount))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "500만원", FormatAmount(500))
	assert.Equal(t, "1억원", FormatAmount(10000))
	assert.Equal(t, "2억 3500만원", FormatAmount(23500))
}
