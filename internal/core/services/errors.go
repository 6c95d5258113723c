package services

import (
	"errors"

	"loanhub/internal/core/domain"

	"gorm.io/gorm"
)

// Not-found errors, one per resource
var (
	ErrCaseNotFound      = domain.NewError(domain.ErrNotFound, "대출 건을 찾을 수 없습니다")
	ErrUserNotFound      = domain.NewError(domain.ErrNotFound, "사용자를 찾을 수 없습니다")
	ErrProviderNotFound  = domain.NewError(domain.ErrNotFound, "담보제공자를 찾을 수 없습니다")
	ErrPriorLoanNotFound = domain.NewError(domain.ErrNotFound, "선순위 대출을 찾을 수 없습니다")
	ErrCommentNotFound   = domain.NewError(domain.ErrNotFound, "댓글을 찾을 수 없습니다")
	ErrLogNotFound       = domain.NewError(domain.ErrNotFound, "상담일지를 찾을 수 없습니다")
	ErrNoticeNotFound    = domain.NewError(domain.ErrNotFound, "공지사항을 찾을 수 없습니다")
	ErrEventNotFound     = domain.NewError(domain.ErrNotFound, "일정을 찾을 수 없습니다")
	ErrTodoNotFound      = domain.NewError(domain.ErrNotFound, "할일을 찾을 수 없습니다")
	ErrTemplateNotFound  = domain.NewError(domain.ErrNotFound, "템플릿을 찾을 수 없습니다")
)

// notFoundOr maps gorm's record-not-found to the given domain error
func notFoundOr(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
