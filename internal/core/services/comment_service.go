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

// CommentService handles case comments. Comments written by admins and
// branch managers are questions the case manager is expected to answer.
type CommentService struct {
	cases       *LoanCaseService
	commentRepo *repositories.CommentRepository
	log         *zap.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(cases *LoanCaseService, commentRepo *repositories.CommentRepository, log *zap.Logger) *CommentService {
	return &CommentService{
		cases:       cases,
		commentRepo: commentRepo,
		log:         log,
	}
}

// CommentInput represents add comment input
type CommentInput struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

func asksQuestions(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleBranchManager
}

// List lists the comments of a case in posting order
func (s *CommentService) List(ctx context.Context, actor *domain.Actor, caseID uint) ([]*models.CaseComment, error) {
	if _, err := s.cases.Authorize(ctx, nil, actor, caseID, ActionView); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByCase(ctx, caseID)
}

// Add posts a comment on a case
func (s *CommentService) Add(ctx context.Context, actor *domain.Actor, caseID uint, input *CommentInput) (*models.CaseComment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, domain.Invalid("댓글 내용을 입력해주세요", map[string]string{"content": "필수 항목입니다"})
	}

	var comment *models.CaseComment
	err := s.cases.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.cases.Authorize(ctx, tx, actor, caseID, ActionEdit); err != nil {
			return err
		}
		comments := s.commentRepo.WithTx(tx)
		if input.ParentID != nil {
			parent, err := comments.GetByID(ctx, *input.ParentID)
			if err != nil {
				return notFoundOr(err, ErrCommentNotFound)
			}
			if parent.LoanCaseID != caseID {
				return domain.NewError(domain.ErrConflictingReference, "다른 대출 건의 댓글에는 답글을 달 수 없습니다")
			}
		}
		writerID := actor.ID
		comment = &models.CaseComment{
			LoanCaseID: caseID,
			WriterID:   &writerID,
			ParentID:   input.ParentID,
			Content:    content,
			IsQuestion: asksQuestions(actor.Role),
		}
		return comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("comment added",
		zap.Uint("case_id", caseID),
		zap.Uint("comment_id", comment.ID),
		zap.Bool("question", comment.IsQuestion))
	return comment, nil
}

// Delete removes a comment. Only the writer or a staff user may delete it.
func (s *CommentService) Delete(ctx context.Context, actor *domain.Actor, caseID, commentID uint) error {
	if actor == nil {
		return unauthorized()
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return notFoundOr(err, ErrCommentNotFound)
	}
	if comment.LoanCaseID != caseID {
		return ErrCommentNotFound
	}
	isWriter := comment.WriterID != nil && *comment.WriterID == actor.ID
	if !isWriter && !actor.IsStaff {
		return domain.NewError(domain.ErrForbidden, "댓글을 삭제할 권한이 없습니다")
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// MarkRead marks the comments addressed to the actor as read. Admins and
// branch managers read answers, everyone else reads questions. Viewing the
// case is enough.
func (s *CommentService) MarkRead(ctx context.Context, actor *domain.Actor, caseID uint) (int64, error) {
	if _, err := s.cases.Authorize(ctx, nil, actor, caseID, ActionView); err != nil {
		return 0, err
	}
	return s.commentRepo.MarkRead(ctx, caseID, !asksQuestions(actor.Role))
}

// UnreadQuestions lists unanswered questions on the actor's own cases
func (s *CommentService) UnreadQuestions(ctx context.Context, actor *domain.Actor, limit int) ([]*models.CaseComment, error) {
	if actor == nil {
		return nil, unauthorized()
	}
	return s.commentRepo.ListUnreadQuestions(ctx, actor.ID, limit)
}
