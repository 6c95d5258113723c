package services

import (
	"context"
	"io"

	"loanhub/internal/core/domain"
)

// UrgencySweeper re-derives urgency for cases whose schedule reached tomorrow.
// LoanCaseService implements it.
type UrgencySweeper interface {
	SweepUrgency(ctx context.Context) (int, error)
}

// CaseExporter writes the cases visible to an actor. ExportService implements it.
type CaseExporter interface {
	ExportCSV(ctx context.Context, actor *domain.Actor, w io.Writer) (int, error)
}
