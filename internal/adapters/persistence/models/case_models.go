package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"loanhub/internal/core/domain"
)

// ============================================================
// Loan Case
// ============================================================

// LoanCase 대출 건 (aggregate root)
type LoanCase struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Status string `gorm:"size:20;not null;index;default:'단순조회중'" json:"status"`

	// Basic info
	Referrer   string `gorm:"size:100" json:"referrer"`
	Introducer string `gorm:"size:100" json:"introducer"`
	ManagerID  *uint  `gorm:"index" json:"manager_id"`
	LoanType   string `gorm:"size:10" json:"loan_type"`

	// Borrower
	BorrowerName        string `gorm:"size:100;not null" json:"borrower_name"`
	BorrowerBirth       string `gorm:"size:6" json:"borrower_birth"`
	BorrowerPhone       string `gorm:"size:20" json:"borrower_phone"`
	BorrowerCreditScore *int   `json:"borrower_credit_score"`

	// Collateral
	AddressMain             string   `gorm:"size:200" json:"address_main"`
	AddressDetail           string   `gorm:"size:200" json:"address_detail"`
	Area                    *float64 `json:"area"`
	IsLowerThan2nd          bool     `gorm:"default:false" json:"is_lower_than_2nd"`
	IsCommercialResidential bool     `gorm:"default:false" json:"is_commercial_residential"`
	IsAbove4thRank          bool     `gorm:"default:false" json:"is_above_4th_rank"`
	HasRegistrationIssue    bool     `gorm:"default:false" json:"has_registration_issue"`
	IsTradingPriceLow       bool     `gorm:"default:false" json:"is_trading_price_low"`
	IsTenant                bool     `gorm:"default:false" json:"is_tenant"`

	// Pricing (만원)
	PriceType   string `gorm:"size:20" json:"price_type"`
	PriceAmount *int64 `json:"price_amount"`

	// Business registration
	BusinessType        string `gorm:"size:20" json:"business_type"`
	BusinessNumber      string `gorm:"size:20" json:"business_number"`
	BusinessCategory    string `gorm:"size:100" json:"business_category"`
	BusinessItem        string `gorm:"size:100" json:"business_item"`
	MonthlySales        *int64 `json:"monthly_sales"`
	VatStatus           string `gorm:"size:50" json:"vat_status"`
	OtherIncome         string `gorm:"type:text" json:"other_income"`
	IsFakeBusiness      bool   `gorm:"default:false" json:"is_fake_business"`
	IsSoho              bool   `gorm:"default:false" json:"is_soho"`
	NeedProofOfUse      bool   `gorm:"default:false" json:"need_proof_of_use"`
	IsSeparateHousehold bool   `gorm:"default:false" json:"is_separate_household"`
	Residents           string `gorm:"type:text" json:"residents"`

	// Loan terms
	LoanAmount   *int64   `json:"loan_amount"`
	InterestRate *float64 `json:"interest_rate"`

	// Flags
	IsUrgent                    bool `gorm:"default:false;index" json:"is_urgent"`
	WaitingForReferenceResponse bool `gorm:"default:false" json:"waiting_for_reference_response"`

	// Schedule
	ReceptionDate    *time.Time `gorm:"type:date" json:"reception_date"`
	AuthorizingDate  *time.Time `gorm:"type:date" json:"authorizing_date"`
	JournalizingDate *time.Time `gorm:"type:date" json:"journalizing_date"`
	ScheduledDate    *time.Time `gorm:"type:date;index" json:"scheduled_date"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Manager        *User              `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	StatusChanges  []CaseStatusChange `gorm:"foreignKey:LoanCaseID;constraint:OnDelete:CASCADE" json:"status_changes,omitempty"`
	Providers      []SecurityProvider `gorm:"foreignKey:LoanCaseID;constraint:OnDelete:CASCADE" json:"security_providers,omitempty"`
	PriorLoans     []PriorLoan        `gorm:"foreignKey:LoanCaseID;constraint:OnDelete:CASCADE" json:"prior_loans,omitempty"`
	ConsultingLogs []ConsultingLog    `gorm:"foreignKey:LoanCaseID;constraint:OnDelete:CASCADE" json:"consulting_logs,omitempty"`
	Comments       []CaseComment      `gorm:"foreignKey:LoanCaseID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

func (LoanCase) TableName() string {
	return "loan_cases"
}

// PreLienTotal sums the 선설정 prior loans. Requires PriorLoans to be loaded.
func (lc *LoanCase) PreLienTotal() int64 {
	var total int64
	for _, pl := range lc.PriorLoans {
		if pl.LoanType == domain.PriorLoanPreLien {
			total += pl.Amount
		}
	}
	return total
}

// PriorLoanTotal sums every prior loan regardless of type
func (lc *LoanCase) PriorLoanTotal() int64 {
	var total int64
	for _, pl := range lc.PriorLoans {
		total += pl.Amount
	}
	return total
}

// LoanLTV is (loan amount + all prior loans) / price × 100, rounded to two places.
// Returns nil without a positive price.
func (lc *LoanCase) LoanLTV() *float64 {
	if lc.PriceAmount == nil || *lc.PriceAmount <= 0 {
		return nil
	}
	var loan int64
	if lc.LoanAmount != nil {
		loan = *lc.LoanAmount
	}
	ratio := float64(loan+lc.PriorLoanTotal()) / float64(*lc.PriceAmount) * 100
	ratio = math.Round(ratio*100) / 100
	return &ratio
}

// PriorLoanDetails renders "회사 N만원" entries joined by ", "
func (lc *LoanCase) PriorLoanDetails() string {
	parts := make([]string, 0, len(lc.PriorLoans))
	for _, pl := range lc.PriorLoans {
		parts = append(parts, fmt.Sprintf("%s %d만원", pl.FinancialCompany, pl.Amount))
	}
	return strings.Join(parts, ", ")
}

// LoanRank is 후순위 when any prior loan exists, else 선순위
func (lc *LoanCase) LoanRank() string {
	if len(lc.PriorLoans) > 0 {
		return "후순위"
	}
	return "선순위"
}

// BorrowerAge derives the age from the YYMMDD birth field.
// Two-digit years after the current year are taken as 19xx.
func (lc *LoanCase) BorrowerAge(now time.Time) (int, bool) {
	b := lc.BorrowerBirth
	if len(b) != 6 {
		return 0, false
	}
	yy, err := strconv.Atoi(b[:2])
	if err != nil {
		return 0, false
	}
	mm, err := strconv.Atoi(b[2:4])
	if err != nil || mm < 1 || mm > 12 {
		return 0, false
	}
	dd, err := strconv.Atoi(b[4:6])
	if err != nil || dd < 1 || dd > 31 {
		return 0, false
	}

	century := 2000
	if yy > now.Year()%100 {
		century = 1900
	}
	year := century + yy

	age := now.Year() - year
	if int(now.Month()) < mm || (int(now.Month()) == mm && now.Day() < dd) {
		age--
	}
	return age, true
}

// ConsultingLogSummary joins the consulting log contents, newest first
func (lc *LoanCase) ConsultingLogSummary() string {
	logs := make([]string, 0, len(lc.ConsultingLogs))
	for i := len(lc.ConsultingLogs) - 1; i >= 0; i-- {
		cl := lc.ConsultingLogs[i]
		logs = append(logs, fmt.Sprintf("[%s] %s", cl.CreatedAt.Format("2006-01-02"), cl.Content))
	}
	return strings.Join(logs, "\n")
}

// ManagerName returns the manager's display name or empty
func (lc *LoanCase) ManagerName() string {
	if lc.Manager == nil {
		return ""
	}
	return lc.Manager.FullName()
}

// LoanCaseResponse DTO
type LoanCaseResponse struct {
	*LoanCase
	ManagerName      string   `json:"manager_name"`
	LoanLTV          *float64 `json:"loan_ltv"`
	LoanRank         string   `json:"loan_rank"`
	PriorLoanDetails string   `json:"prior_loan_details"`
	PreLienTotal     int64    `json:"pre_lien_total"`
	BorrowerAge      *int     `json:"borrower_age"`
}

func (lc *LoanCase) ToResponse(now time.Time) *LoanCaseResponse {
	resp := &LoanCaseResponse{
		LoanCase:         lc,
		ManagerName:      lc.ManagerName(),
		LoanLTV:          lc.LoanLTV(),
		LoanRank:         lc.LoanRank(),
		PriorLoanDetails: lc.PriorLoanDetails(),
		PreLienTotal:     lc.PreLienTotal(),
	}
	if age, ok := lc.BorrowerAge(now); ok {
		resp.BorrowerAge = &age
	}
	return resp
}

// CaseStatusChange is one append-only row of a case's status history
type CaseStatusChange struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LoanCaseID  uint      `gorm:"not null;index" json:"loan_case_id"`
	FromStatus  string    `gorm:"size:20" json:"from_status"`
	ToStatus    string    `gorm:"size:20;not null" json:"to_status"`
	ChangedAt   time.Time `gorm:"not null;index" json:"changed_at"`
	ChangedByID *uint     `json:"changed_by_id"`

	ChangedBy *User `gorm:"foreignKey:ChangedByID" json:"changed_by,omitempty"`
}

func (CaseStatusChange) TableName() string {
	return "case_status_changes"
}

// ============================================================
// Case children
// ============================================================

// SecurityProvider 담보제공자
type SecurityProvider struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	LoanCaseID       uint   `gorm:"not null;index" json:"loan_case_id"`
	Name             string `gorm:"size:100;not null" json:"name"`
	BirthDate        string `gorm:"size:6" json:"birth_date"`
	Phone            string `gorm:"size:20" json:"phone"`
	CreditScore      *int   `json:"credit_score"`
	RelatedPersonID  *uint  `gorm:"index" json:"related_person_id"`
	RelationshipType string `gorm:"size:20" json:"relationship_type"`

	RelatedPerson *SecurityProvider `gorm:"foreignKey:RelatedPersonID" json:"related_person,omitempty"`
}

func (SecurityProvider) TableName() string {
	return "security_providers"
}

// PriorLoan 선순위/대환 대출
type PriorLoan struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	LoanCaseID       uint   `gorm:"not null;index" json:"loan_case_id"`
	LoanType         string `gorm:"size:10;not null" json:"loan_type"`
	FinancialCompany string `gorm:"size:50;not null" json:"financial_company"`
	Amount           int64  `gorm:"not null" json:"amount"`
}

func (PriorLoan) TableName() string {
	return "prior_loans"
}

// CountsTowardLimit reports whether the loan is part of the LTV ceiling sum
func (pl *PriorLoan) CountsTowardLimit() bool {
	return pl.LoanType == domain.PriorLoanPreLien
}

// ConsultingLog 상담 일지
type ConsultingLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LoanCaseID  uint      `gorm:"not null;index" json:"loan_case_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedByID *uint     `json:"created_by_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

func (ConsultingLog) TableName() string {
	return "consulting_logs"
}

// CaseComment 코멘트. Questions come from admins and branch managers.
type CaseComment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LoanCaseID uint      `gorm:"not null;index" json:"loan_case_id"`
	WriterID   *uint     `json:"writer_id"`
	ParentID   *uint     `gorm:"index" json:"parent_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsQuestion bool      `gorm:"default:false" json:"is_question"`
	IsRead     bool      `gorm:"default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Writer   *User     `gorm:"foreignKey:WriterID" json:"writer,omitempty"`
	LoanCase *LoanCase `gorm:"foreignKey:LoanCaseID" json:"loan_case,omitempty"`
}

func (CaseComment) TableName() string {
	return "case_comments"
}

// Event 일정
type Event struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	LoanCaseID  uint       `gorm:"not null;index" json:"loan_case_id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	EventType   string     `gorm:"size:20;not null" json:"event_type"`
	Date        *time.Time `gorm:"type:date;index" json:"date"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Event) TableName() string {
	return "events"
}
