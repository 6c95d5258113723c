package services

import (
	"context"
	"strings"
	"time"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/validate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventService handles calendar events attached to cases
type EventService struct {
	cases     *LoanCaseService
	eventRepo *repositories.EventRepository
	log       *zap.Logger
}

// NewEventService creates a new event service
func NewEventService(cases *LoanCaseService, eventRepo *repositories.EventRepository, log *zap.Logger) *EventService {
	return &EventService{
		cases:     cases,
		eventRepo: eventRepo,
		log:       log,
	}
}

// EventInput represents create event input
type EventInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	EventType   string `json:"event_type" validate:"omitempty,oneof=scheduled authorizing journalizing"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// defaultEventDate picks the case date matching the event type
func defaultEventDate(lc *models.LoanCase, eventType string) *time.Time {
	switch eventType {
	case domain.EventAuthorizing:
		return lc.AuthorizingDate
	case domain.EventJournalizing:
		return lc.JournalizingDate
	case domain.EventScheduled:
		return lc.ScheduledDate
	}
	return nil
}

// ListByCase lists the events of a case
func (s *EventService) ListByCase(ctx context.Context, actor *domain.Actor, caseID uint) ([]*models.Event, error) {
	if _, err := s.cases.Authorize(ctx, nil, actor, caseID, ActionView); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByCase(ctx, caseID)
}

// Create adds an event to a case. Without an explicit date the event takes
// the case date that matches its type.
func (s *EventService) Create(ctx context.Context, actor *domain.Actor, caseID uint, input *EventInput) (*models.Event, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	eventType := input.EventType
	if eventType == "" {
		eventType = domain.EventScheduled
	}
	date, err := parseDate(input.Date, s.cases.Now().Location())
	if err != nil {
		return nil, err
	}

	var event *models.Event
	err = s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		lc, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionManage)
		if err != nil {
			return err
		}
		if date == nil {
			date = defaultEventDate(lc, eventType)
		}
		event = &models.Event{
			LoanCaseID:  caseID,
			Title:       input.Title,
			Description: strings.TrimSpace(input.Description),
			EventType:   eventType,
			Date:        date,
		}
		return s.eventRepo.WithTx(tx).Create(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("event created", zap.Uint("case_id", caseID), zap.Uint("event_id", event.ID), zap.String("type", eventType))
	return event, nil
}

// Delete removes an event
func (s *EventService) Delete(ctx context.Context, actor *domain.Actor, caseID, eventID uint) error {
	return s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionManage); err != nil {
			return err
		}
		events := s.eventRepo.WithTx(tx)
		event, err := events.GetByID(ctx, eventID)
		if err != nil {
			return notFoundOr(err, ErrEventNotFound)
		}
		if event.LoanCaseID != caseID {
			return ErrEventNotFound
		}
		return events.Delete(ctx, eventID)
	})
}
