package services

import (
	"context"
	"strings"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/validate"

	"go.uber.org/zap"
)

// NoticeService handles notices
type NoticeService struct {
	noticeRepo *repositories.NoticeRepository
	access     *AccessControl
	log        *zap.Logger
	now        Clock
}

// NewNoticeService creates a new notice service
func NewNoticeService(noticeRepo *repositories.NoticeRepository, access *AccessControl, log *zap.Logger, now Clock) *NoticeService {
	return &NoticeService{
		noticeRepo: noticeRepo,
		access:     access,
		log:        log,
		now:        now,
	}
}

// NoticeInput represents create notice input
type NoticeInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=높음 중간 낮음"`
	EndDate  string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// Create posts a notice
func (s *NoticeService) Create(ctx context.Context, actor *domain.Actor, input *NoticeInput) (*models.Notice, error) {
	if err := s.access.CanInitiate(actor, ActionManage); err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	endDate, err := parseDate(input.EndDate, s.now().Location())
	if err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.NoticePriorityMedium
	}
	authorID := actor.ID
	notice := &models.Notice{
		Title:       input.Title,
		Content:     input.Content,
		Priority:    priority,
		CreatedByID: &authorID,
		EndDate:     endDate,
		IsActive:    true,
	}
	if err := s.noticeRepo.Create(ctx, notice); err != nil {
		return nil, err
	}

	s.log.Info("notice created", zap.Uint("notice_id", notice.ID), zap.Uint("actor_id", actor.ID))
	return notice, nil
}

// ListActive lists the notices that have not expired
func (s *NoticeService) ListActive(ctx context.Context) ([]*models.Notice, error) {
	notices, err := s.noticeRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now()
	active := notices[:0]
	for _, n := range notices {
		if n.ActiveOn(today) {
			active = append(active, n)
		}
	}
	return active, nil
}

// Deactivate hides a notice
func (s *NoticeService) Deactivate(ctx context.Context, actor *domain.Actor, noticeID uint) error {
	if err := s.access.CanInitiate(actor, ActionManage); err != nil {
		return err
	}
	if _, err := s.noticeRepo.GetByID(ctx, noticeID); err != nil {
		return notFoundOr(err, ErrNoticeNotFound)
	}
	return s.noticeRepo.Deactivate(ctx, noticeID)
}
