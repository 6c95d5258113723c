package services

import (
	"testing"
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityProviderService_RelatedPerson(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.newCase(f.staff, "홍길동")
	other := f.newCase(f.staff, "김철수")

	first, err := f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: " 홍부인 ", BirthDate: "650101", Phone: "010-1111-2222"})
	require.NoError(t, err)
	assert.Equal(t, "홍부인", first.Name)

	second, err := f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{
		Name:             "홍아들",
		RelatedPersonID:  &first.ID,
		RelationshipType: "child",
	})
	require.NoError(t, err)
	require.NotNil(t, second.RelatedPersonID)
	assert.Equal(t, first.ID, *second.RelatedPersonID)

	foreign, err := f.providers.Create(f.ctx, actor, other.ID, &ProviderInput{Name: "김부인"})
	require.NoError(t, err)

	t.Run("self reference", func(t *testing.T) {
		_, err := f.providers.Update(f.ctx, actor, lc.ID, first.ID, &ProviderInput{Name: "홍부인", RelatedPersonID: &first.ID})
		assert.ErrorIs(t, err, domain.ErrConflictingReference)
	})

	t.Run("provider of another case", func(t *testing.T) {
		_, err := f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: "홍딸", RelatedPersonID: &foreign.ID})
		assert.ErrorIs(t, err, domain.ErrConflictingReference)
	})

	t.Run("missing provider", func(t *testing.T) {
		_, err := f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: "홍딸", RelatedPersonID: uintPtr(9999)})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update through the wrong case", func(t *testing.T) {
		_, err := f.providers.Update(f.ctx, actor, other.ID, first.ID, &ProviderInput{Name: "홍부인"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("bad phone", func(t *testing.T) {
		_, err := f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: "홍딸", Phone: "01011112222"})
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Fields, "phone")
	})

	providers, err := f.providers.List(f.ctx, actor, lc.ID)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	require.NotNil(t, providers[1].RelatedPerson)
	assert.Equal(t, "홍부인", providers[1].RelatedPerson.Name)

	require.NoError(t, f.providers.Delete(f.ctx, actor, lc.ID, first.ID))

	var stored models.SecurityProvider
	require.NoError(t, f.db.First(&stored, second.ID).Error)
	assert.Nil(t, stored.RelatedPersonID)
	assert.Empty(t, stored.RelationshipType)
}

func TestSecurityProviderService_UpdateClearsRelationship(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.newCase(f.staff, "홍길동")

	first, err := f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: "홍부인"})
	require.NoError(t, err)
	second, err := f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: "홍아들", RelatedPersonID: &first.ID, RelationshipType: "child"})
	require.NoError(t, err)

	updated, err := f.providers.Update(f.ctx, actor, lc.ID, second.ID, &ProviderInput{Name: "홍아들", RelationshipType: "child"})
	require.NoError(t, err)
	assert.Nil(t, updated.RelatedPersonID)
	assert.Empty(t, updated.RelationshipType)
}

func TestPriorLoanService_LtvCeiling(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc, err := f.cases.Create(f.ctx, actor, &CreateCaseInput{
		CaseInput: CaseInput{BorrowerName: strPtr("홍길동"), PriceAmount: int64Ptr(50000)},
	})
	require.NoError(t, err)

	first, err := f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: 30000})
	require.NoError(t, err)

	_, err = f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "신한은행", Amount: 20001})
	require.ErrorIs(t, err, domain.ErrLtvExceeded)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LtvRejections))

	// refinance loans never count toward the ceiling
	_, err = f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanRefinance, FinancialCompany: "저축은행", Amount: 40000})
	require.NoError(t, err)

	second, err := f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "신한은행", Amount: 20000})
	require.NoError(t, err)

	t.Run("update counts only the change", func(t *testing.T) {
		_, err := f.priorLoans.Update(f.ctx, actor, lc.ID, first.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: 30000})
		assert.NoError(t, err)
	})

	t.Run("update over the ceiling", func(t *testing.T) {
		_, err := f.priorLoans.Update(f.ctx, actor, lc.ID, second.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "신한은행", Amount: 20001})
		assert.ErrorIs(t, err, domain.ErrLtvExceeded)
	})

	t.Run("shrinking is always allowed", func(t *testing.T) {
		_, err := f.priorLoans.Update(f.ctx, actor, lc.ID, second.ID, &PriorLoanInput{LoanType: domain.PriorLoanRefinance, FinancialCompany: "신한은행", Amount: 90000})
		assert.NoError(t, err)
	})

	stored := f.reload(lc.ID)
	assert.Equal(t, int64(30000), stored.PreLienTotal())

	loans, err := f.priorLoans.List(f.ctx, actor, lc.ID)
	require.NoError(t, err)
	require.Len(t, loans, 3)
	assert.Equal(t, domain.PriorLoanPreLien, loans[0].LoanType)
	assert.Equal(t, int64(90000), loans[1].Amount)
	assert.Equal(t, int64(40000), loans[2].Amount)
}

func TestPriorLoanService_Validation(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.newCase(f.staff, "홍길동")

	_, err := f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: "기타", FinancialCompany: "국민은행", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: MaxPriorLoanAmount + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "  ", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// no price, no ceiling
	_, err = f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: MaxPriorLoanAmount})
	assert.NoError(t, err)

	_, err = f.priorLoans.Create(f.ctx, actorOf(f.outsider), lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPriorLoanService_Delete(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.newCase(f.staff, "홍길동")
	other := f.newCase(f.staff, "김철수")

	loan, err := f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanPreLien, FinancialCompany: "국민은행", Amount: 100})
	require.NoError(t, err)

	assert.ErrorIs(t, f.priorLoans.Delete(f.ctx, actor, other.ID, loan.ID), domain.ErrNotFound)
	require.NoError(t, f.priorLoans.Delete(f.ctx, actor, lc.ID, loan.ID))
	assert.ErrorIs(t, f.priorLoans.Delete(f.ctx, actor, lc.ID, loan.ID), domain.ErrNotFound)
}

func TestConsultingLogService(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.newCase(f.staff, "홍길동")

	_, err := f.logs.Add(f.ctx, actor, lc.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	first, err := f.logs.Add(f.ctx, actor, lc.ID, "첫 상담")
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	_, err = f.logs.Add(f.ctx, actor, lc.ID, "서류 안내")
	require.NoError(t, err)

	logs, err := f.logs.List(f.ctx, actorOf(f.leader), lc.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "서류 안내", logs[0].Content)
	require.NotNil(t, logs[0].CreatedBy)
	assert.Equal(t, f.leader.ID, logs[0].CreatedBy.ID)

	_, err = f.logs.List(f.ctx, actorOf(f.peer), lc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.logs.Delete(f.ctx, actor, lc.ID, first.ID))
	assert.ErrorIs(t, f.logs.Delete(f.ctx, actor, lc.ID, first.ID), domain.ErrNotFound)
}

func TestCommentService_QuestionsAndReplies(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")

	question, err := f.comments.Add(f.ctx, actorOf(f.manager), lc.ID, &CommentInput{Content: "LTV 확인 부탁"})
	require.NoError(t, err)
	assert.True(t, question.IsQuestion)

	answer, err := f.comments.Add(f.ctx, actorOf(f.leader), lc.ID, &CommentInput{Content: "확인했습니다", ParentID: &question.ID})
	require.NoError(t, err)
	assert.False(t, answer.IsQuestion)

	_, err = f.comments.Add(f.ctx, actorOf(f.leader), lc.ID, &CommentInput{Content: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	other := f.newCase(f.staff, "김철수")
	_, err = f.comments.Add(f.ctx, actorOf(f.leader), other.ID, &CommentInput{Content: "답글", ParentID: &question.ID})
	assert.ErrorIs(t, err, domain.ErrConflictingReference)

	unread, err := f.comments.UnreadQuestions(f.ctx, actorOf(f.staff), 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, question.ID, unread[0].ID)
	require.NotNil(t, unread[0].LoanCase)
	assert.Equal(t, "홍길동", unread[0].LoanCase.BorrowerName)

	// the case manager reads questions, the branch manager reads answers
	n, err := f.comments.MarkRead(f.ctx, actorOf(f.staff), lc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = f.comments.MarkRead(f.ctx, actorOf(f.manager), lc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err = f.comments.UnreadQuestions(f.ctx, actorOf(f.staff), 10)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestCommentService_Delete(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")

	manager, leader := actorOf(f.manager), actorOf(f.leader)
	question, err := f.comments.Add(f.ctx, manager, lc.ID, &CommentInput{Content: "질문"})
	require.NoError(t, err)
	reply, err := f.comments.Add(f.ctx, leader, lc.ID, &CommentInput{Content: "답변", ParentID: &question.ID})
	require.NoError(t, err)
	nested, err := f.comments.Add(f.ctx, manager, lc.ID, &CommentInput{Content: "추가 질문", ParentID: &reply.ID})
	require.NoError(t, err)
	sibling, err := f.comments.Add(f.ctx, leader, lc.ID, &CommentInput{Content: "정정", ParentID: &question.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, f.comments.Delete(f.ctx, actorOf(f.staff), lc.ID, question.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.comments.Delete(f.ctx, nil, lc.ID, question.ID), domain.ErrUnauthorized)

	require.NoError(t, f.comments.Delete(f.ctx, leader, lc.ID, sibling.ID))
	assert.Equal(t, int64(3), f.count(&models.CaseComment{}, "loan_case_id = ?", lc.ID))

	// staff users may delete any comment; the whole reply chain goes with it
	require.NoError(t, f.comments.Delete(f.ctx, actorOf(f.admin), lc.ID, question.ID))
	assert.Zero(t, f.count(&models.CaseComment{}, "loan_case_id = ?", lc.ID))
	assert.ErrorIs(t, f.comments.Delete(f.ctx, leader, lc.ID, nested.ID), domain.ErrNotFound)
}

func TestEventService(t *testing.T) {
	f := newFixture(t)
	lc, err := f.cases.Create(f.ctx, actorOf(f.leader), &CreateCaseInput{
		CaseInput: CaseInput{BorrowerName: strPtr("홍길동"), AuthorizingDate: strPtr("2026-03-24")},
		ManagerID: &f.staff.ID,
	})
	require.NoError(t, err)
	leader := actorOf(f.leader)

	_, err = f.events.Create(f.ctx, actorOf(f.staff), lc.ID, &EventInput{Title: "자서"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	defaulted, err := f.events.Create(f.ctx, leader, lc.ID, &EventInput{Title: "자서", EventType: domain.EventAuthorizing})
	require.NoError(t, err)
	require.NotNil(t, defaulted.Date)
	assert.Equal(t, "2026-03-24", defaulted.Date.Format("2006-01-02"))

	explicit, err := f.events.Create(f.ctx, leader, lc.ID, &EventInput{Title: "방문", Date: "2026-03-20"})
	require.NoError(t, err)
	assert.Equal(t, domain.EventScheduled, explicit.EventType)

	undated, err := f.events.Create(f.ctx, leader, lc.ID, &EventInput{Title: "기표", EventType: domain.EventJournalizing})
	require.NoError(t, err)
	assert.Nil(t, undated.Date)

	_, err = f.events.Create(f.ctx, leader, lc.ID, &EventInput{Title: "기타", EventType: "meeting"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	events, err := f.events.ListByCase(f.ctx, actorOf(f.staff), lc.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	require.NoError(t, f.events.Delete(f.ctx, leader, lc.ID, explicit.ID))
	assert.ErrorIs(t, f.events.Delete(f.ctx, leader, lc.ID, explicit.ID), domain.ErrNotFound)
}

func TestNoticeService(t *testing.T) {
	f := newFixture(t)

	_, err := f.notices.Create(f.ctx, actorOf(f.staff), &NoticeInput{Title: "공지", Content: "내용"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	open, err := f.notices.Create(f.ctx, actorOf(f.manager), &NoticeInput{Title: "상시 공지", Content: "내용"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoticePriorityMedium, open.Priority)

	_, err = f.notices.Create(f.ctx, actorOf(f.manager), &NoticeInput{Title: "오늘까지", Content: "내용", Priority: domain.NoticePriorityHigh, EndDate: "2026-03-18"})
	require.NoError(t, err)
	_, err = f.notices.Create(f.ctx, actorOf(f.manager), &NoticeInput{Title: "만료", Content: "내용", EndDate: "2026-03-17"})
	require.NoError(t, err)

	_, err = f.notices.Create(f.ctx, actorOf(f.manager), &NoticeInput{Title: "잘못된 우선순위", Content: "내용", Priority: "긴급"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	active, err := f.notices.ListActive(f.ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, f.notices.Deactivate(f.ctx, actorOf(f.leader), open.ID))
	active, err = f.notices.ListActive(f.ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "오늘까지", active[0].Title)

	assert.ErrorIs(t, f.notices.Deactivate(f.ctx, actorOf(f.leader), 9999), domain.ErrNotFound)
}
