package repository

import (
	"context"
	"sync"

	"github.com/kitbuilder587/nli-search/internal/domain"
)

type MockRecordRepository struct {
	mu      sync.RWMutex
	records map[string][]domain.Record // key: query
	Err     error
}

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		records: make(map[string][]domain.Record),
	}
}

func (m *MockRecordRepository) SaveRecords(ctx context.Context, query string, records []domain.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}

	existing := m.records[query]
	seen := make(map[string]struct{}, len(records))
	saved := 0
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		replaced := false
		for i := range existing {
			if existing[i].ID == rec.ID {
				existing[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, rec)
		}
		saved++
	}
	m.records[query] = existing
	return saved, nil
}

func (m *MockRecordRepository) ListByQuery(ctx context.Context, query string, limit int) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	records := m.records[query]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return append([]domain.Record(nil), records...), nil
}

func (m *MockRecordRepository) CountByQuery(ctx context.Context, query string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.records[query]), nil
}
