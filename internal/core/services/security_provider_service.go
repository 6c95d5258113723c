package services

import (
	"context"
	"strings"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/adapters/persistence/repositories"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/validate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SecurityProviderService handles security provider business logic
type SecurityProviderService struct {
	cases        *LoanCaseService
	providerRepo *repositories.SecurityProviderRepository
	log          *zap.Logger
}

// NewSecurityProviderService creates a new security provider service
func NewSecurityProviderService(cases *LoanCaseService, providerRepo *repositories.SecurityProviderRepository, log *zap.Logger) *SecurityProviderService {
	return &SecurityProviderService{
		cases:        cases,
		providerRepo: providerRepo,
		log:          log,
	}
}

// ProviderInput represents create/update provider input
type ProviderInput struct {
	Name             string `json:"name" validate:"required,max=100"`
	BirthDate        string `json:"birth_date" validate:"omitempty,len=6,numeric"`
	Phone            string `json:"phone" validate:"omitempty,kr_phone"`
	CreditScore      *int   `json:"credit_score" validate:"omitempty,min=1,max=1000"`
	RelatedPersonID  *uint  `json:"related_person_id"`
	RelationshipType string `json:"relationship_type" validate:"omitempty,oneof=spouse parent sibling child other"`
}

func (in *ProviderInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	in.Phone = strings.TrimSpace(in.Phone)
}

// resolveRelated checks the related provider sits in the same case and is not self
func (s *SecurityProviderService) resolveRelated(ctx context.Context, providers *repositories.SecurityProviderRepository, caseID, selfID uint, relatedID *uint) (*uint, error) {
	if relatedID == nil || *relatedID == 0 {
		return nil, nil
	}
	if *relatedID == selfID {
		return nil, domain.NewError(domain.ErrConflictingReference, "자기 자신을 연관 담보제공자로 지정할 수 없습니다")
	}
	related, err := providers.GetByID(ctx, *relatedID)
	if err != nil {
		return nil, notFoundOr(err, ErrProviderNotFound)
	}
	if related.LoanCaseID != caseID {
		return nil, domain.NewError(domain.ErrConflictingReference, "같은 대출 건의 담보제공자만 연결할 수 있습니다")
	}
	id := related.ID
	return &id, nil
}

// List lists the providers of a case
func (s *SecurityProviderService) List(ctx context.Context, actor *domain.Actor, caseID uint) ([]*models.SecurityProvider, error) {
	if _, err := s.cases.Authorize(ctx, nil, actor, caseID, ActionView); err != nil {
		return nil, err
	}
	return s.providerRepo.ListByCase(ctx, caseID)
}

// Create adds a provider to a case
func (s *SecurityProviderService) Create(ctx context.Context, actor *domain.Actor, caseID uint, input *ProviderInput) (*models.SecurityProvider, error) {
	input.normalize()
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var provider *models.SecurityProvider
	err := s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit); err != nil {
			return err
		}
		providers := s.providerRepo.WithTx(tx)
		relatedID, err := s.resolveRelated(ctx, providers, caseID, 0, input.RelatedPersonID)
		if err != nil {
			return err
		}
		provider = &models.SecurityProvider{
			LoanCaseID:       caseID,
			Name:             input.Name,
			BirthDate:        input.BirthDate,
			Phone:            input.Phone,
			CreditScore:      input.CreditScore,
			RelatedPersonID:  relatedID,
			RelationshipType: input.RelationshipType,
		}
		return providers.Create(ctx, provider)
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// Update replaces the provider fields. A missing related_person_id clears the link.
func (s *SecurityProviderService) Update(ctx context.Context, actor *domain.Actor, caseID, providerID uint, input *ProviderInput) (*models.SecurityProvider, error) {
	input.normalize()
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var provider *models.SecurityProvider
	err := s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit); err != nil {
			return err
		}
		providers := s.providerRepo.WithTx(tx)
		var err error
		provider, err = providers.GetByID(ctx, providerID)
		if err != nil {
			return notFoundOr(err, ErrProviderNotFound)
		}
		if provider.LoanCaseID != caseID {
			return ErrProviderNotFound
		}
		relatedID, err := s.resolveRelated(ctx, providers, caseID, provider.ID, input.RelatedPersonID)
		if err != nil {
			return err
		}

		provider.Name = input.Name
		provider.BirthDate = input.BirthDate
		provider.Phone = input.Phone
		provider.CreditScore = input.CreditScore
		provider.RelatedPersonID = relatedID
		provider.RelationshipType = input.RelationshipType
		if relatedID == nil {
			provider.RelationshipType = ""
		}
		return providers.Update(ctx, provider)
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// Delete removes a provider and clears every link pointing at it
func (s *SecurityProviderService) Delete(ctx context.Context, actor *domain.Actor, caseID, providerID uint) error {
	return s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit); err != nil {
			return err
		}
		providers := s.providerRepo.WithTx(tx)
		provider, err := providers.GetByID(ctx, providerID)
		if err != nil {
			return notFoundOr(err, ErrProviderNotFound)
		}
		if provider.LoanCaseID != caseID {
			return ErrProviderNotFound
		}
		if err := providers.ClearRelatedPerson(ctx, provider.ID); err != nil {
			return err
		}
		return providers.Delete(ctx, provider.ID)
	})
}
