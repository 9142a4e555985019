package repository

import (
	"context"

	"github.com/kitbuilder587/nli-search/internal/domain"
)

// RecordRepository - архив найденных записей. Records are keyed by the
// query string that produced them plus the record id.
type RecordRepository interface {
	SaveRecords(ctx context.Context, query string, records []domain.Record) (int, error)
	ListByQuery(ctx context.Context, query string, limit int) ([]domain.Record, error)
	CountByQuery(ctx context.Context, query string) (int, error)
}
