package models

import (
	"testing"
	"time"

	"loanhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march18 = time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)

func amount(v int64) *int64 { return &v }

func TestLoanCase_PriorLoanTotals(t *testing.T) {
	lc := &LoanCase{PriorLoans: []PriorLoan{
		{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: 3000},
		{LoanType: domain.PriorLoanRefinance, FinancialCompany: "저축은행", Amount: 1500},
		{LoanType: domain.PriorLoanPreLien, FinancialCompany: "신한은행", Amount: 500},
	}}

	assert.Equal(t, int64(3500), lc.PreLienTotal())
	assert.Equal(t, int64(5000), lc.PriorLoanTotal())
	assert.Equal(t, "국민은행 3000만원, 저축은행 1500만원, 신한은행 500만원", lc.PriorLoanDetails())
	assert.Equal(t, "후순위", lc.LoanRank())

	empty := &LoanCase{}
	assert.Zero(t, empty.PreLienTotal())
	assert.Empty(t, empty.PriorLoanDetails())
	assert.Equal(t, "선순위", empty.LoanRank())
}

func TestLoanCase_LoanLTV(t *testing.T) {
	tests := []struct {
		name  string
		price *int64
		loan  *int64
		prior int64
		want  *float64
	}{
		{name: "no price", loan: amount(1000)},
		{name: "zero price", price: amount(0), loan: amount(1000)},
		{name: "loan and prior", price: amount(30000), loan: amount(10000), prior: 5000, want: ptr(50.0)},
		{name: "rounds to two places", price: amount(30000), loan: amount(10000), want: ptr(33.33)},
		{name: "prior only", price: amount(20000), prior: 5000, want: ptr(25.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := &LoanCase{PriceAmount: tt.price, LoanAmount: tt.loan}
			if tt.prior > 0 {
				lc.PriorLoans = []PriorLoan{{LoanType: domain.PriorLoanRefinance, Amount: tt.prior}}
			}
			got := lc.LoanLTV()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.0001)
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestLoanCase_BorrowerAge(t *testing.T) {
	tests := []struct {
		birth  string
		want   int
		wantOK bool
	}{
		{birth: "900101", want: 36, wantOK: true},
		{birth: "900318", want: 36, wantOK: true},
		{birth: "900319", want: 35, wantOK: true},
		{birth: "050505", want: 20, wantOK: true},
		{birth: "270101", want: 99, wantOK: true},
		{birth: "901301"},
		{birth: "9001"},
		{birth: "ab0101"},
		{birth: ""},
	}

	for _, tt := range tests {
		t.Run(tt.birth, func(t *testing.T) {
			age, ok := (&LoanCase{BorrowerBirth: tt.birth}).BorrowerAge(march18)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, age)
		})
	}
}

func TestLoanCase_ConsultingLogSummary(t *testing.T) {
	lc := &LoanCase{ConsultingLogs: []ConsultingLog{
		{Content: "첫 상담", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{Content: "서류 안내", CreatedAt: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)},
	}}
	assert.Equal(t, "[2026-03-05] 서류 안내\n[2026-03-01] 첫 상담", lc.ConsultingLogSummary())
}

func TestLoanCase_ToResponse(t *testing.T) {
	lc := &LoanCase{
		ID:            7,
		BorrowerBirth: "900101",
		PriceAmount:   amount(10000),
		LoanAmount:    amount(2000),
		Manager:       &User{LastName: "김", FirstName: "민수"},
		PriorLoans:    []PriorLoan{{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: 3000}},
	}

	resp := lc.ToResponse(march18)
	assert.Equal(t, uint(7), resp.ID)
	assert.Equal(t, "김민수", resp.ManagerName)
	assert.Equal(t, "후순위", resp.LoanRank)
	assert.Equal(t, int64(3000), resp.PreLienTotal)
	require.NotNil(t, resp.LoanLTV)
	assert.InDelta(t, 50.0, *resp.LoanLTV, 0.0001)
	require.NotNil(t, resp.BorrowerAge)
	assert.Equal(t, 36, *resp.BorrowerAge)

	assert.Empty(t, (&LoanCase{}).ToResponse(march18).ManagerName)
}

func TestUser_Affiliation(t *testing.T) {
	branch, team := uint(2), uint(5)

	assert.Equal(t, domain.NoAffiliation(), (&User{}).Affiliation())
	assert.Equal(t, domain.InBranch(2), (&User{BranchID: &branch}).Affiliation())
	assert.Equal(t, domain.InTeam(2, 5), (&User{BranchID: &branch, TeamID: &team}).Affiliation())
	assert.Equal(t, domain.InTeam(9, 5), (&User{BranchID: &branch, TeamID: &team, Team: &Team{ID: 5, BranchID: 9}}).Affiliation())

	actor := (&User{ID: 4, Username: "staff", Role: "staff", TeamID: &team, BranchID: &branch}).ToActor()
	assert.Equal(t, uint(4), actor.ID)
	assert.Equal(t, domain.RoleStaff, actor.Role)
	tm, ok := actor.Affiliation.Team()
	assert.True(t, ok)
	assert.Equal(t, team, tm)
}

func TestUser_ToResponse(t *testing.T) {
	resp := (&User{ID: 1, Username: "leader", LastName: "박", FirstName: "지훈", Role: "team_leader", IsActive: true}).ToResponse()
	assert.Equal(t, "박지훈", resp.FullName)
	assert.Equal(t, "팀장", resp.RoleLabel)
	assert.True(t, resp.IsActive)
}

func TestNotice_ActiveOn(t *testing.T) {
	today := march18
	yesterday := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	endOfToday := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	assert.True(t, (&Notice{IsActive: true}).ActiveOn(today))
	assert.True(t, (&Notice{IsActive: true, EndDate: &endOfToday}).ActiveOn(today))
	assert.False(t, (&Notice{IsActive: true, EndDate: &yesterday}).ActiveOn(today))
	assert.False(t, (&Notice{}).ActiveOn(today))
}
