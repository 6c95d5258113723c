package services

import (
	"testing"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/pagination"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanCaseService_CreateDefaults(t *testing.T) {
	f := newFixture(t)

	lc := f.newCase(f.staff, "홍길동")

	assert.NotZero(t, lc.ID)
	assert.Equal(t, string(domain.StatusInquiry), lc.Status)
	require.NotNil(t, lc.ManagerID)
	assert.Equal(t, f.staff.ID, *lc.ManagerID)
	require.NotNil(t, lc.Manager)
	assert.Equal(t, f.staff.ID, lc.Manager.ID)
	assert.False(t, lc.IsUrgent)
	assert.Zero(t, f.count(&models.CaseStatusChange{}, "loan_case_id = ?", lc.ID))
}

func TestLoanCaseService_CreateWithStatusRecordsHistory(t *testing.T) {
	f := newFixture(t)

	lc, err := f.cases.Create(f.ctx, actorOf(f.leader), &CreateCaseInput{
		CaseInput: CaseInput{BorrowerName: strPtr("  홍길동  "), PriceAmount: int64Ptr(30000)},
		Status:    strPtr(string(domain.StatusReview)),
		ManagerID: &f.staff.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "홍길동", lc.BorrowerName)
	assert.Equal(t, string(domain.StatusReview), lc.Status)

	history, err := f.cases.History(f.ctx, actorOf(f.staff), lc.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(domain.StatusInquiry), history[0].FromStatus)
	assert.Equal(t, string(domain.StatusReview), history[0].ToStatus)
	require.NotNil(t, history[0].ChangedBy)
	assert.Equal(t, f.leader.ID, history[0].ChangedBy.ID)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StatusTransitions.WithLabelValues(string(domain.StatusReview))))
}

func TestLoanCaseService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.cases.Create(f.ctx, nil, &CreateCaseInput{CaseInput: CaseInput{BorrowerName: strPtr("홍길동")}})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("staff", func(t *testing.T) {
		_, err := f.cases.Create(f.ctx, actorOf(f.staff), &CreateCaseInput{CaseInput: CaseInput{BorrowerName: strPtr("홍길동")}})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing borrower", func(t *testing.T) {
		_, err := f.cases.Create(f.ctx, actorOf(f.leader), &CreateCaseInput{CaseInput: CaseInput{BorrowerName: strPtr("   ")}})
		require.ErrorIs(t, err, domain.ErrValidation)
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Fields, "borrower_name")
	})

	t.Run("bad birth date", func(t *testing.T) {
		_, err := f.cases.Create(f.ctx, actorOf(f.leader), &CreateCaseInput{
			CaseInput: CaseInput{BorrowerName: strPtr("홍길동"), BorrowerBirth: strPtr("19900101")},
		})
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Fields, "borrower_birth")
	})

	t.Run("bad phone", func(t *testing.T) {
		_, err := f.cases.Create(f.ctx, actorOf(f.leader), &CreateCaseInput{
			CaseInput: CaseInput{BorrowerName: strPtr("홍길동"), BorrowerPhone: strPtr("not-a-phone")},
		})
		require.ErrorIs(t, err, domain.ErrValidation)
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Fields, "borrower_phone")
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.cases.Create(f.ctx, actorOf(f.leader), &CreateCaseInput{
			CaseInput: CaseInput{BorrowerName: strPtr("홍길동")},
			Status:    strPtr("없는상태"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	assert.Zero(t, f.count(&models.LoanCase{}, "1 = 1"))
}

func TestLoanCaseService_CreateForAnotherManager(t *testing.T) {
	f := newFixture(t)
	input := func(manager uint) *CreateCaseInput {
		return &CreateCaseInput{CaseInput: CaseInput{BorrowerName: strPtr("홍길동")}, ManagerID: &manager}
	}

	lc, err := f.cases.Create(f.ctx, actorOf(f.leader), input(f.staff.ID))
	require.NoError(t, err)
	assert.Equal(t, f.staff.ID, *lc.ManagerID)

	_, err = f.cases.Create(f.ctx, actorOf(f.leader), input(f.outsider.ID))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.cases.Create(f.ctx, actorOf(f.staff), input(f.peer.ID))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.cases.Create(f.ctx, actorOf(f.admin), input(9999))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoanCaseService_StaffIsViewOnly(t *testing.T) {
	f := newFixture(t)
	lc := f.caseInStatus(f.staff, "홍길동", domain.StatusPendingSigning)
	actor := actorOf(f.staff)

	_, err := f.cases.Get(f.ctx, actor, lc.ID)
	assert.NoError(t, err)
	_, err = f.cases.History(f.ctx, actor, lc.ID)
	assert.NoError(t, err)
	resp, err := f.cases.List(f.ctx, actor, &ListCasesInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Meta.Total)

	_, err = f.cases.ChangeStatus(f.ctx, actor, lc.ID, string(domain.StatusApproved))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.cases.Update(f.ctx, actor, lc.ID, &CaseInput{LoanAmount: int64Ptr(1)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.cases.SetSchedule(f.ctx, actor, lc.ID, day(2026, 3, 19))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.cases.ToggleUrgent(f.ctx, actor, lc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanRefinance, FinancialCompany: "국민은행", Amount: 1000})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: "홍부인"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.logs.Add(f.ctx, actor, lc.ID, "첫 상담")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.comments.Add(f.ctx, actor, lc.ID, &CommentInput{Content: "확인 부탁드립니다"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.cases.Delete(f.ctx, actor, lc.ID), domain.ErrForbidden)

	stored := f.reload(lc.ID)
	assert.Equal(t, string(domain.StatusPendingSigning), stored.Status)
	assert.Nil(t, stored.ScheduledDate)
	assert.False(t, stored.IsUrgent)
	assert.Equal(t, int64(1), f.count(&models.CaseStatusChange{}, "loan_case_id = ?", lc.ID))

	_, err = f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: "서류 요청"})
	assert.NoError(t, err)
}

func TestLoanCaseService_GetAccess(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")

	_, err := f.cases.Get(f.ctx, actorOf(f.leader), lc.ID)
	assert.NoError(t, err)
	_, err = f.cases.Get(f.ctx, actorOf(f.manager), lc.ID)
	assert.NoError(t, err)
	_, err = f.cases.Get(f.ctx, actorOf(f.peer), lc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.cases.Get(f.ctx, actorOf(f.foreign), lc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.cases.Get(f.ctx, actorOf(f.staff), 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.cases.Get(f.ctx, nil, lc.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoanCaseService_ListScopes(t *testing.T) {
	f := newFixture(t)
	f.newCase(f.staff, "팀A 직원")
	f.newCase(f.peer, "팀A 동료")
	f.newCase(f.leader, "팀A 팀장")
	f.newCase(f.outsider, "팀B 직원")
	f.newCase(f.manager, "지점장")
	f.newCase(f.foreign, "부산 직원")

	total := func(u *models.User) int64 {
		resp, err := f.cases.List(f.ctx, actorOf(u), &ListCasesInput{})
		require.NoError(t, err)
		return resp.Meta.Total
	}

	assert.Equal(t, int64(1), total(f.staff))
	assert.Equal(t, int64(3), total(f.leader))
	assert.Equal(t, int64(5), total(f.manager))
	assert.Equal(t, int64(6), total(f.admin))
	assert.Equal(t, int64(1), total(f.foreign))
}

func TestLoanCaseService_ListFilters(t *testing.T) {
	f := newFixture(t)
	f.newCase(f.staff, "홍길동")
	f.newCase(f.staff, "김철수")
	f.caseInStatus(f.staff, "이영희", domain.StatusApproved)
	urgent := f.newCase(f.staff, "박민수")
	_, err := f.cases.ToggleUrgent(f.ctx, actorOf(f.leader), urgent.ID)
	require.NoError(t, err)

	list := func(in *ListCasesInput) *pagination.Response {
		resp, err := f.cases.List(f.ctx, actorOf(f.staff), in)
		require.NoError(t, err)
		return resp
	}

	resp := list(&ListCasesInput{Search: "길동"})
	items := resp.Data.([]*models.LoanCaseResponse)
	require.Len(t, items, 1)
	assert.Equal(t, "홍길동", items[0].BorrowerName)

	assert.Equal(t, int64(1), list(&ListCasesInput{Status: string(domain.StatusApproved)}).Meta.Total)
	assert.Equal(t, int64(1), list(&ListCasesInput{UrgentOnly: true}).Meta.Total)

	resp = list(&ListCasesInput{Page: pagination.NewParams(2, 3)})
	assert.Equal(t, int64(4), resp.Meta.Total)
	assert.Len(t, resp.Data.([]*models.LoanCaseResponse), 1)
	assert.False(t, resp.Meta.HasNext)

	_, err = f.cases.List(f.ctx, actorOf(f.staff), &ListCasesInput{Status: "없는상태"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestLoanCaseService_Update(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")

	updated, err := f.cases.Update(f.ctx, actorOf(f.leader), lc.ID, &CaseInput{
		BorrowerPhone: strPtr("010-1234-5678"),
		LoanAmount:    int64Ptr(5000),
		IsTenant:      boolPtr(true),
		ReceptionDate: strPtr("2026-03-10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "홍길동", updated.BorrowerName)
	assert.Equal(t, "010-1234-5678", updated.BorrowerPhone)

	stored := f.reload(lc.ID)
	require.NotNil(t, stored.LoanAmount)
	assert.Equal(t, int64(5000), *stored.LoanAmount)
	assert.True(t, stored.IsTenant)
	require.NotNil(t, stored.ReceptionDate)
	assert.Equal(t, "2026-03-10", stored.ReceptionDate.Format("2006-01-02"))

	_, err = f.cases.Update(f.ctx, actorOf(f.leader), lc.ID, &CaseInput{BorrowerName: strPtr("")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.cases.Update(f.ctx, actorOf(f.leader), lc.ID, &CaseInput{LoanType: strPtr("전세")})
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Fields, "loan_type")

	_, err = f.cases.Update(f.ctx, actorOf(f.peer), lc.ID, &CaseInput{LoanAmount: int64Ptr(1)})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLoanCaseService_ChangeStatus(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")
	actor := actorOf(f.leader)

	_, err := f.cases.ChangeStatus(f.ctx, actor, lc.ID, string(domain.StatusCreditCheck))
	require.NoError(t, err)
	_, err = f.cases.ChangeStatus(f.ctx, actor, lc.ID, string(domain.StatusCreditCheck))
	require.NoError(t, err)
	_, err = f.cases.ChangeStatus(f.ctx, actor, lc.ID, string(domain.StatusInquiry))
	require.NoError(t, err)

	history, err := f.cases.History(f.ctx, actor, lc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, string(domain.StatusCreditCheck), history[0].ToStatus)
	assert.Equal(t, string(domain.StatusCreditCheck), history[1].FromStatus)
	assert.Equal(t, string(domain.StatusInquiry), history[1].ToStatus)
}

func TestLoanCaseService_ChangeStatusInvalidLeavesCaseUntouched(t *testing.T) {
	f := newFixture(t)
	lc := f.caseInStatus(f.staff, "홍길동", domain.StatusReview)

	_, err := f.cases.ChangeStatus(f.ctx, actorOf(f.leader), lc.ID, "끝")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	assert.Equal(t, string(domain.StatusReview), f.reload(lc.ID).Status)
	assert.Equal(t, int64(1), f.count(&models.CaseStatusChange{}, "loan_case_id = ?", lc.ID))

	_, err = f.cases.ChangeStatus(f.ctx, actorOf(f.outsider), lc.ID, string(domain.StatusApproved))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLoanCaseService_SetSchedule(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)

	t.Run("tomorrow marks urgent", func(t *testing.T) {
		lc := f.caseInStatus(f.staff, "홍길동", domain.StatusPendingSigning)
		date, err := f.cases.ParseScheduleDate("2026-03-19")
		require.NoError(t, err)

		_, err = f.cases.SetSchedule(f.ctx, actor, lc.ID, date)
		require.NoError(t, err)

		stored := f.reload(lc.ID)
		assert.True(t, stored.IsUrgent)
		require.NotNil(t, stored.ScheduledDate)
		assert.Equal(t, "2026-03-19", stored.ScheduledDate.Format("2006-01-02"))
	})

	t.Run("later date is not urgent", func(t *testing.T) {
		lc := f.caseInStatus(f.staff, "김철수", domain.StatusPendingPayout)
		_, err := f.cases.SetSchedule(f.ctx, actor, lc.ID, day(2026, 3, 25))
		require.NoError(t, err)
		assert.False(t, f.reload(lc.ID).IsUrgent)
	})

	t.Run("past date", func(t *testing.T) {
		lc := f.caseInStatus(f.staff, "이영희", domain.StatusPendingSigning)
		_, err := f.cases.SetSchedule(f.ctx, actor, lc.ID, day(2026, 3, 17))
		require.ErrorIs(t, err, domain.ErrPastDate)
		assert.Nil(t, f.reload(lc.ID).ScheduledDate)
	})

	t.Run("wrong status", func(t *testing.T) {
		lc := f.caseInStatus(f.staff, "박민수", domain.StatusReview)
		_, err := f.cases.SetSchedule(f.ctx, actor, lc.ID, day(2026, 3, 19))
		require.ErrorIs(t, err, domain.ErrScheduleNotAllowed)
		assert.Nil(t, f.reload(lc.ID).ScheduledDate)
	})

	t.Run("unparseable date", func(t *testing.T) {
		_, err := f.cases.ParseScheduleDate("19-03-2026")
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.cases.ParseScheduleDate("")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestLoanCaseService_UrgencyIsMonotonic(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.caseInStatus(f.staff, "홍길동", domain.StatusPendingSigning)

	_, err := f.cases.SetSchedule(f.ctx, actor, lc.ID, day(2026, 3, 19))
	require.NoError(t, err)
	require.True(t, f.reload(lc.ID).IsUrgent)

	_, err = f.cases.SetSchedule(f.ctx, actor, lc.ID, day(2026, 4, 1))
	require.NoError(t, err)
	_, err = f.cases.ChangeStatus(f.ctx, actor, lc.ID, string(domain.StatusReview))
	require.NoError(t, err)

	assert.True(t, f.reload(lc.ID).IsUrgent)
}

func TestLoanCaseService_ToggleUrgent(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.caseInStatus(f.staff, "홍길동", domain.StatusPendingPayout)
	_, err := f.cases.SetSchedule(f.ctx, actor, lc.ID, day(2026, 3, 19))
	require.NoError(t, err)
	require.True(t, f.reload(lc.ID).IsUrgent)

	urgent, err := f.cases.ToggleUrgent(f.ctx, actor, lc.ID)
	require.NoError(t, err)
	assert.False(t, urgent)
	assert.False(t, f.reload(lc.ID).IsUrgent)

	// the next regular save derives it again
	_, err = f.cases.Update(f.ctx, actor, lc.ID, &CaseInput{Referrer: strPtr("지인")})
	require.NoError(t, err)
	assert.True(t, f.reload(lc.ID).IsUrgent)

	_, err = f.cases.ToggleUrgent(f.ctx, actorOf(f.peer), lc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLoanCaseService_SweepUrgency(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)

	due := f.caseInStatus(f.staff, "홍길동", domain.StatusPendingPayout)
	_, err := f.cases.SetSchedule(f.ctx, actor, due.ID, day(2026, 3, 20))
	require.NoError(t, err)
	later := f.caseInStatus(f.staff, "김철수", domain.StatusPendingSigning)
	_, err = f.cases.SetSchedule(f.ctx, actor, later.ID, day(2026, 3, 27))
	require.NoError(t, err)
	require.False(t, f.reload(due.ID).IsUrgent)

	f.now = f.now.AddDate(0, 0, 1)

	flipped, err := f.cases.SweepUrgency(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, flipped)
	assert.True(t, f.reload(due.ID).IsUrgent)
	assert.False(t, f.reload(later.ID).IsUrgent)

	flipped, err = f.cases.SweepUrgency(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, flipped)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.UrgencySweepFlips))
}

func TestLoanCaseService_AssignManager(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")

	updated, err := f.cases.AssignManager(f.ctx, actorOf(f.leader), lc.ID, f.peer.ID)
	require.NoError(t, err)
	assert.Equal(t, f.peer.ID, *updated.ManagerID)
	assert.Equal(t, f.peer.ID, *f.reload(lc.ID).ManagerID)

	_, err = f.cases.AssignManager(f.ctx, actorOf(f.peer), lc.ID, f.staff.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.cases.AssignManager(f.ctx, actorOf(f.leader), lc.ID, f.foreign.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.cases.AssignManager(f.ctx, actorOf(f.manager), lc.ID, f.outsider.ID)
	assert.NoError(t, err)
}

func TestLoanCaseService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.leader)
	lc := f.caseInStatus(f.staff, "홍길동", domain.StatusReview)

	_, err := f.priorLoans.Create(f.ctx, actor, lc.ID, &PriorLoanInput{LoanType: domain.PriorLoanRefinance, FinancialCompany: "국민은행", Amount: 1000})
	require.NoError(t, err)
	_, err = f.providers.Create(f.ctx, actor, lc.ID, &ProviderInput{Name: "홍부인"})
	require.NoError(t, err)
	_, err = f.logs.Add(f.ctx, actor, lc.ID, "첫 상담")
	require.NoError(t, err)
	_, err = f.comments.Add(f.ctx, actorOf(f.manager), lc.ID, &CommentInput{Content: "진행상황?"})
	require.NoError(t, err)
	_, err = f.events.Create(f.ctx, actorOf(f.leader), lc.ID, &EventInput{Title: "자서", Date: "2026-03-20"})
	require.NoError(t, err)
	todo, err := f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: "서류 요청"})
	require.NoError(t, err)
	_, err = f.todos.Update(f.ctx, actor, todo.ID, &UpdateTodoInput{Status: strPtr(domain.TodoCompleted)})
	require.NoError(t, err)

	require.ErrorIs(t, f.cases.Delete(f.ctx, actorOf(f.peer), lc.ID), domain.ErrForbidden)
	require.NoError(t, f.cases.Delete(f.ctx, actor, lc.ID))

	for _, model := range []interface{}{
		&models.PriorLoan{}, &models.SecurityProvider{}, &models.ConsultingLog{},
		&models.CaseComment{}, &models.Event{}, &models.Todo{}, &models.CaseStatusChange{},
	} {
		assert.Zero(t, f.count(model, "loan_case_id = ?", lc.ID), "%T", model)
	}
	assert.Zero(t, f.count(&models.TodoHistory{}, "todo_id = ?", todo.ID))
	assert.Zero(t, f.count(&models.LoanCase{}, "id = ?", lc.ID))

	assert.ErrorIs(t, f.cases.Delete(f.ctx, actor, lc.ID), domain.ErrNotFound)
}
