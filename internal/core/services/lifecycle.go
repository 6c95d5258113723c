package services

import (
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"
)

// LifecycleEngine applies the workflow rules to a loan case in memory.
// Callers persist the case and the returned history row together.
type LifecycleEngine struct {
	workflow *domain.Workflow
}

// NewLifecycleEngine creates a lifecycle engine for the given workflow
func NewLifecycleEngine(workflow *domain.Workflow) *LifecycleEngine {
	return &LifecycleEngine{workflow: workflow}
}

// Workflow returns the engine's status configuration
func (e *LifecycleEngine) Workflow() *domain.Workflow {
	return e.workflow
}

// Transition moves lc to status. A different status yields exactly one history
// row to append; the same status yields nil. On error lc is untouched.
func (e *LifecycleEngine) Transition(lc *models.LoanCase, status domain.Status, actor *domain.Actor, now time.Time) (*models.CaseStatusChange, error) {
	if actor == nil {
		return nil, domain.NewError(domain.ErrUnauthorized, "로그인이 필요합니다")
	}
	if !e.workflow.IsValid(status) {
		return nil, &domain.Error{Kind: domain.ErrInvalidStatus, Message: "유효하지 않은 상태입니다: " + string(status)}
	}

	from := domain.Status(lc.Status)
	if from == status {
		return nil, nil
	}
	if !e.workflow.CanTransition(from, status) {
		return nil, &domain.Error{
			Kind:    domain.ErrInvalidStatus,
			Message: "상태를 변경할 수 없습니다: " + string(from) + " → " + string(status),
		}
	}

	actorID := actor.ID
	change := &models.CaseStatusChange{
		LoanCaseID:  lc.ID,
		FromStatus:  string(from),
		ToStatus:    string(status),
		ChangedAt:   now,
		ChangedByID: &actorID,
	}
	lc.Status = string(status)
	return change, nil
}

// RecomputeUrgency sets is_urgent when the case is in an urgent status and
// scheduled for tomorrow. It never clears the flag.
func (e *LifecycleEngine) RecomputeUrgency(lc *models.LoanCase, now time.Time) {
	if lc.IsUrgent {
		return
	}
	if lc.ScheduledDate == nil || !e.workflow.IsUrgentStatus(domain.Status(lc.Status)) {
		return
	}
	tomorrow := startOfDay(now).AddDate(0, 0, 1)
	if sameDay(tomorrow, dateIn(*lc.ScheduledDate, now.Location())) {
		lc.IsUrgent = true
	}
}

// SetScheduleDate sets the scheduled date. Past dates are rejected before the
// status is considered.
func (e *LifecycleEngine) SetScheduleDate(lc *models.LoanCase, date time.Time, now time.Time) error {
	day := dateIn(date, now.Location())
	if day.Before(startOfDay(now)) {
		return domain.NewError(domain.ErrPastDate, "지난 날짜로 예정일을 지정할 수 없습니다")
	}
	if !e.workflow.IsUrgentStatus(domain.Status(lc.Status)) {
		return domain.NewError(domain.ErrScheduleNotAllowed, "예정일은 자서예정 또는 기표예정 상태에서만 지정할 수 있습니다")
	}
	lc.ScheduledDate = &day
	return nil
}

// ToggleUrgent flips the manual urgent flag and returns the new value
func (e *LifecycleEngine) ToggleUrgent(lc *models.LoanCase) bool {
	lc.IsUrgent = !lc.IsUrgent
	return lc.IsUrgent
}
