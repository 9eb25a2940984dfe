package storage

import (
	"context"

	"tendersum/internal/models"
)

// ListFilter narrows the public listing. Zero values mean "no constraint";
// Limit falls back to a store default when unset.
type ListFilter struct {
	Category      string
	MinConfidence int
	Limit         int
	Offset        int
}

type SearchFilter struct {
	Query    string
	Category string
	Location string
	Limit    int
}

const defaultListLimit = 20

// SummaryStore persists processed tender summaries. Insert enforces the
// one-non-archived-record-per-tender rule: a second insert for a tender
// address that already has a non-archived record, failed ones included,
// returns util.ErrDuplicateTender. Only Archive frees the slot.
type SummaryStore interface {
	Insert(ctx context.Context, rec models.TenderSummaryRecord) error
	GetByID(ctx context.Context, summaryID string) (models.TenderSummaryRecord, error)
	FindByTender(ctx context.Context, tenderAddress string) (models.TenderSummaryRecord, error)
	ListPublic(ctx context.Context, f ListFilter) ([]models.PublicView, int, error)
	SearchPublic(ctx context.Context, f SearchFilter) ([]models.PublicView, error)
	Statistics(ctx context.Context) ([]models.CategoryStat, error)
	SetReview(ctx context.Context, summaryID, reviewedBy string, score int) error
	Archive(ctx context.Context, summaryID string) error
}

func (f ListFilter) withDefaults() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f SearchFilter) withDefaults() SearchFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	return f
}
