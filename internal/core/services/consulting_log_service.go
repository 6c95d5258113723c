package services

import (
	"context"
	"strings"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConsultingLogService handles consulting logs
type ConsultingLogService struct {
	cases   *LoanCaseService
	logRepo *repositories.ConsultingLogRepository
	log     *zap.Logger
}

// NewConsultingLogService creates a new consulting log service
func NewConsultingLogService(cases *LoanCaseService, logRepo *repositories.ConsultingLogRepository, log *zap.Logger) *ConsultingLogService {
	return &ConsultingLogService{
		cases:   cases,
		logRepo: logRepo,
		log:     log,
	}
}

// List lists the logs of a case, newest first
func (s *ConsultingLogService) List(ctx context.Context, actor *domain.Actor, caseID uint) ([]*models.ConsultingLog, error) {
	if _, err := s.cases.Authorize(ctx, nil, actor, caseID, ActionView); err != nil {
		return nil, err
	}
	return s.logRepo.ListByCase(ctx, caseID)
}

// Add records a consulting log on a case
func (s *ConsultingLogService) Add(ctx context.Context, actor *domain.Actor, caseID uint, content string) (*models.ConsultingLog, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Invalid("상담 내용을 입력해주세요", map[string]string{"content": "필수 항목입니다"})
	}

	var entry *models.ConsultingLog
	err := s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit); err != nil {
			return err
		}
		authorID := actor.ID
		entry = &models.ConsultingLog{
			LoanCaseID:  caseID,
			Content:     content,
			CreatedByID: &authorID,
		}
		return s.logRepo.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes a consulting log
func (s *ConsultingLogService) Delete(ctx context.Context, actor *domain.Actor, caseID, logID uint) error {
	return s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit); err != nil {
			return err
		}
		logs := s.logRepo.WithTx(tx)
		entry, err := logs.GetByID(ctx, logID)
		if err != nil {
			return notFoundOr(err, ErrLogNotFound)
		}
		if entry.LoanCaseID != caseID {
			return ErrLogNotFound
		}
		return logs.Delete(ctx, logID)
	})
}
