package services

import (
	"context"
	"sort"
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"

	"gorm.io/gorm"
)

// Trend tags on dashboard deltas
const (
	TrendIncrease = "increase"
	TrendDecrease = "decrease"
	TrendNeutral  = "neutral"
)

const (
	recentCaseLimit     = 5
	unreadQuestionLimit = 20
	completedWindowDays = 30
	calendarWindowDays  = 30
)

// DashboardService derives read-only views from the case store
type DashboardService struct {
	db       *gorm.DB
	workflow *domain.Workflow
	access   *AccessControl
	comments *CommentService
	notices  *NoticeService
	events   *repositories.EventRepository
	now      Clock
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	db *gorm.DB,
	workflow *domain.Workflow,
	access *AccessControl,
	comments *CommentService,
	notices *NoticeService,
	events *repositories.EventRepository,
	now Clock,
) *DashboardService {
	return &DashboardService{
		db:       db,
		workflow: workflow,
		access:   access,
		comments: comments,
		notices:  notices,
		events:   events,
		now:      now,
	}
}

// ============================================================
// Dashboard
// ============================================================

// Delta compares a metric with its previous value
type Delta struct {
	Current  int64  `json:"current"`
	Previous int64  `json:"previous"`
	Diff     int64  `json:"diff"`
	Trend    string `json:"trend"`
}

func newDelta(current, previous int64) Delta {
	d := Delta{Current: current, Previous: previous, Diff: current - previous, Trend: TrendNeutral}
	switch {
	case d.Diff > 0:
		d.Trend = TrendIncrease
	case d.Diff < 0:
		d.Trend = TrendDecrease
	}
	return d
}

// TodayStats holds the day-over-day counters
type TodayStats struct {
	NewCases       Delta `json:"new_cases"`
	OngoingCases   Delta `json:"ongoing_cases"`
	CompletedCases Delta `json:"completed_cases"`
}

// MonthStats compares completed cases this month against last month
type MonthStats struct {
	Count  Delta `json:"count"`
	Amount Delta `json:"amount"`
}

// Dashboard is the aggregate returned to the home screen
type Dashboard struct {
	TodayStats      TodayStats                 `json:"today_stats"`
	MonthStats      MonthStats                 `json:"month_stats"`
	UrgentCases     []*models.LoanCaseResponse `json:"urgent_cases"`
	RecentCases     []*models.LoanCaseResponse `json:"recent_cases"`
	UnreadQuestions []*models.CaseComment      `json:"unread_questions"`
	Notices         []*models.Notice           `json:"notices"`
}

// previousBusinessDay returns yesterday, or last Friday when today is Monday
func previousBusinessDay(today time.Time) time.Time {
	if today.Weekday() == time.Monday {
		return today.AddDate(0, 0, -3)
	}
	return today.AddDate(0, 0, -1)
}

// scoped starts a loan_cases query limited to what the actor may see
func (s *DashboardService) scoped(ctx context.Context, actor *domain.Actor) *gorm.DB {
	return repositories.ScopeCases(s.db.WithContext(ctx).Model(&models.LoanCase{}), s.access.Scope(actor))
}

func (s *DashboardService) count(q *gorm.DB) (int64, error) {
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// Get builds the dashboard for the actor. Counters cover the cases the actor can access.
func (s *DashboardService) Get(ctx context.Context, actor *domain.Actor) (*Dashboard, error) {
	if err := s.access.CanInitiate(actor, ActionView); err != nil {
		return nil, err
	}
	now := s.now()

	today, err := s.todayStats(ctx, actor, now)
	if err != nil {
		return nil, err
	}
	month, err := s.monthStats(ctx, actor, now)
	if err != nil {
		return nil, err
	}
	urgent, err := s.urgentCases(ctx, actor, now)
	if err != nil {
		return nil, err
	}
	recent, err := s.recentCases(ctx, actor, now)
	if err != nil {
		return nil, err
	}
	questions, err := s.comments.UnreadQuestions(ctx, actor, unreadQuestionLimit)
	if err != nil {
		return nil, err
	}
	notices, err := s.notices.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TodayStats:      *today,
		MonthStats:      *month,
		UrgentCases:     urgent,
		RecentCases:     recent,
		UnreadQuestions: questions,
		Notices:         notices,
	}, nil
}

func (s *DashboardService) todayStats(ctx context.Context, actor *domain.Actor, now time.Time) (*TodayStats, error) {
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := previousBusinessDay(today)
	dayAfterYesterday := yesterday.AddDate(0, 0, 1)
	ongoing := domain.StatusValues(s.workflow.OngoingStatuses())
	closed := domain.StatusValues(s.workflow.ClosedRecentStatuses())
	windowStart := today.AddDate(0, 0, -completedWindowDays)

	queries := []*gorm.DB{
		s.scoped(ctx, actor).Where("created_at >= ? AND created_at < ?", today, tomorrow),
		s.scoped(ctx, actor).Where("created_at >= ? AND created_at < ?", yesterday, dayAfterYesterday),
		s.scoped(ctx, actor).Where("status IN ?", ongoing),
		s.scoped(ctx, actor).Where("status IN ? AND created_at < ?", ongoing, dayAfterYesterday),
		s.scoped(ctx, actor).Where("status IN ? AND created_at >= ?", closed, windowStart),
		s.scoped(ctx, actor).Where("status IN ? AND created_at >= ? AND created_at < ?", closed, windowStart.AddDate(0, 0, -1), today),
	}
	counts := make([]int64, len(queries))
	for i, q := range queries {
		n, err := s.count(q)
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}

	return &TodayStats{
		NewCases:       newDelta(counts[0], counts[1]),
		OngoingCases:   newDelta(counts[2], counts[3]),
		CompletedCases: newDelta(counts[4], counts[5]),
	}, nil
}

type monthAggregate struct {
	Count  int64
	Amount int64
}

func (s *DashboardService) completedBetween(ctx context.Context, actor *domain.Actor, from, to time.Time) (monthAggregate, error) {
	var agg monthAggregate
	err := s.scoped(ctx, actor).
		Select("COUNT(*) AS count, COALESCE(SUM(loan_amount), 0) AS amount").
		Where("status = ? AND created_at >= ? AND created_at < ?", string(s.workflow.Completed()), from, to).
		Scan(&agg).Error
	return agg, err
}

func (s *DashboardService) monthStats(ctx context.Context, actor *domain.Actor, now time.Time) (*MonthStats, error) {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	firstOfNext := firstOfMonth.AddDate(0, 1, 0)
	firstOfPrev := firstOfMonth.AddDate(0, -1, 0)

	current, err := s.completedBetween(ctx, actor, firstOfMonth, firstOfNext)
	if err != nil {
		return nil, err
	}
	previous, err := s.completedBetween(ctx, actor, firstOfPrev, firstOfMonth)
	if err != nil {
		return nil, err
	}
	return &MonthStats{
		Count:  newDelta(current.Count, previous.Count),
		Amount: newDelta(current.Amount, previous.Amount),
	}, nil
}

func toResponses(cases []*models.LoanCase, now time.Time) []*models.LoanCaseResponse {
	out := make([]*models.LoanCaseResponse, len(cases))
	for i, lc := range cases {
		out[i] = lc.ToResponse(now)
	}
	return out
}

// urgentCases lists flagged cases plus those in an urgent status scheduled for tomorrow
func (s *DashboardService) urgentCases(ctx context.Context, actor *domain.Actor, now time.Time) ([]*models.LoanCaseResponse, error) {
	tomorrow := startOfDay(now).AddDate(0, 0, 1)
	var cases []*models.LoanCase
	err := s.scoped(ctx, actor).
		Preload("Manager").
		Where("is_urgent = ? OR (status IN ? AND scheduled_date >= ? AND scheduled_date < ?)",
			true, domain.StatusValues(s.workflow.UrgentStatuses()), tomorrow, tomorrow.AddDate(0, 0, 1)).
		Order("scheduled_date IS NULL, scheduled_date ASC").Order("id ASC").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return toResponses(cases, now), nil
}

// recentCases lists the actor's own most recently created cases
func (s *DashboardService) recentCases(ctx context.Context, actor *domain.Actor, now time.Time) ([]*models.LoanCaseResponse, error) {
	var cases []*models.LoanCase
	err := s.db.WithContext(ctx).
		Preload("Manager").
		Where("manager_id = ?", actor.ID).
		Order("created_at DESC, id DESC").
		Limit(recentCaseLimit).
		Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return toResponses(cases, now), nil
}

// ============================================================
// Calendar
// ============================================================

// CalendarEntry is one dated item on the calendar
type CalendarEntry struct {
	CaseID      uint      `json:"case_id"`
	EventID     *uint     `json:"event_id,omitempty"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

var caseDateLabels = []struct {
	kind  string
	label string
	pick  func(*models.LoanCase) *time.Time
}{
	{domain.EventAuthorizing, "자서예정일", func(lc *models.LoanCase) *time.Time { return lc.AuthorizingDate }},
	{domain.EventJournalizing, "기표예정일", func(lc *models.LoanCase) *time.Time { return lc.JournalizingDate }},
	{domain.EventScheduled, "고객요청일", func(lc *models.LoanCase) *time.Time { return lc.ScheduledDate }},
}

// Calendar projects the case dates and events inside [start, end] onto a calendar.
// Zero bounds default to 30 days around today.
func (s *DashboardService) Calendar(ctx context.Context, actor *domain.Actor, start, end time.Time) ([]*CalendarEntry, error) {
	if err := s.access.CanInitiate(actor, ActionView); err != nil {
		return nil, err
	}
	today := startOfDay(s.now())
	if start.IsZero() {
		start = today.AddDate(0, 0, -calendarWindowDays)
	}
	if end.IsZero() {
		end = today.AddDate(0, 0, calendarWindowDays)
	}
	start = startOfDay(start)
	until := startOfDay(end).AddDate(0, 0, 1)
	if !start.Before(until) {
		return nil, domain.Invalid("조회 기간이 올바르지 않습니다", map[string]string{"end": "시작일 이후여야 합니다"})
	}

	var cases []*models.LoanCase
	err := s.scoped(ctx, actor).
		Where("(authorizing_date >= ? AND authorizing_date < ?) OR (journalizing_date >= ? AND journalizing_date < ?) OR (scheduled_date >= ? AND scheduled_date < ?)",
			start, until, start, until, start, until).
		Order("id ASC").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}

	inRange := func(t *time.Time) bool {
		if t == nil {
			return false
		}
		d := dateIn(*t, start.Location())
		return !d.Before(start) && d.Before(until)
	}

	var entries []*CalendarEntry
	for _, lc := range cases {
		for _, dl := range caseDateLabels {
			d := dl.pick(lc)
			if !inRange(d) {
				continue
			}
			entries = append(entries, &CalendarEntry{
				CaseID: lc.ID,
				Kind:   dl.kind,
				Title:  lc.BorrowerName + " - " + dl.label,
				Date:   dateIn(*d, start.Location()),
			})
		}
	}

	var caseIDs []uint
	if err := s.scoped(ctx, actor).Pluck("loan_cases.id", &caseIDs).Error; err != nil {
		return nil, err
	}
	events, err := s.events.ListByCases(ctx, caseIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if !inRange(e.Date) {
			continue
		}
		id := e.ID
		entries = append(entries, &CalendarEntry{
			CaseID:      e.LoanCaseID,
			EventID:     &id,
			Kind:        e.EventType,
			Title:       e.Title,
			Description: e.Description,
			Date:        dateIn(*e.Date, start.Location()),
		})
	}

	sortCalendar(entries)
	return entries, nil
}

// sortCalendar orders entries by date, then case, keeping case dates before events
func sortCalendar(entries []*CalendarEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].CaseID < entries[j].CaseID
	})
}
