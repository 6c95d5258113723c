package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"

	"go.uber.org/zap"
)

// utf8BOM lets spreadsheet programs detect the encoding of Korean text
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{
	"번호", "접수일", "상태", "담당자", "차주명", "생년월일", "나이", "연락처", "신용점수",
	"주소", "시세구분", "시세", "대출금액", "금리", "순위", "선설정합계", "기대출내역",
	"LTV", "긴급", "예정일", "상담내역", "등록일",
}

// ExportService writes case projections for spreadsheets
type ExportService struct {
	caseRepo *repositories.LoanCaseRepository
	access   *AccessControl
	log      *zap.Logger
	now      Clock
}

// NewExportService creates a new export service
func NewExportService(caseRepo *repositories.LoanCaseRepository, access *AccessControl, log *zap.Logger, now Clock) *ExportService {
	return &ExportService{
		caseRepo: caseRepo,
		access:   access,
		log:      log,
		now:      now,
	}
}

// ExportCSV writes every case the actor can access as CSV and returns the row count
func (s *ExportService) ExportCSV(ctx context.Context, actor *domain.Actor, w io.Writer) (int, error) {
	if err := s.access.CanInitiate(actor, ActionView); err != nil {
		return 0, err
	}
	cases, err := s.caseRepo.ListForExport(ctx, s.access.Scope(actor))
	if err != nil {
		return 0, err
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	now := s.now()
	for _, lc := range cases {
		if err := cw.Write(exportRow(lc, now)); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	s.log.Info("cases exported", zap.Uint("actor_id", actor.ID), zap.Int("rows", len(cases)))
	return len(cases), nil
}

func exportRow(lc *models.LoanCase, now time.Time) []string {
	age := ""
	if a, ok := lc.BorrowerAge(now); ok {
		age = strconv.Itoa(a)
	}
	ltv := ""
	if v := lc.LoanLTV(); v != nil {
		ltv = strconv.FormatFloat(*v, 'f', 2, 64) + "%"
	}
	urgent := ""
	if lc.IsUrgent {
		urgent = "Y"
	}

	return []string{
		strconv.FormatUint(uint64(lc.ID), 10),
		formatDay(lc.ReceptionDate),
		lc.Status,
		sanitizeCSVField(lc.ManagerName()),
		sanitizeCSVField(lc.BorrowerName),
		lc.BorrowerBirth,
		age,
		sanitizeCSVField(lc.BorrowerPhone),
		formatIntPtr(lc.BorrowerCreditScore),
		sanitizeCSVField(joinAddress(lc.AddressMain, lc.AddressDetail)),
		sanitizeCSVField(lc.PriceType),
		formatAmountPtr(lc.PriceAmount),
		formatAmountPtr(lc.LoanAmount),
		formatRate(lc.InterestRate),
		lc.LoanRank(),
		FormatAmount(lc.PreLienTotal()),
		sanitizeCSVField(lc.PriorLoanDetails()),
		ltv,
		urgent,
		formatDay(lc.ScheduledDate),
		sanitizeCSVField(lc.ConsultingLogSummary()),
		lc.CreatedAt.In(now.Location()).Format("2006-01-02 15:04"),
	}
}

// sanitizeCSVField neutralizes leading characters spreadsheets read as formulas
func sanitizeCSVField(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

func joinAddress(main, detail string) string {
	if detail == "" {
		return main
	}
	if main == "" {
		return detail
	}
	return main + " " + detail
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatAmountPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return FormatAmount(*v)
}

func formatRate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}
