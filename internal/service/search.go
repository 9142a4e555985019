package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/nli-search/internal/domain"
	"github.com/kitbuilder587/nli-search/internal/metrics"
	"github.com/kitbuilder587/nli-search/internal/repository"
	"github.com/kitbuilder587/nli-search/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, req search.SearchRequest) (*SearchResult, error)
	Count(ctx context.Context, q domain.Encoder) (int, error)
}

type SearchResult struct {
	Query   string
	Records []domain.Record
	// Archived - сколько записей записано в архив (0 если архив выключен)
	Archived   int
	ArchiveErr error
}

type SearchServiceDeps struct {
	Search  search.SearchClient
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// опционально
	Archive repository.RecordRepository
	Timeout time.Duration
}

type searchService struct {
	search  search.SearchClient
	archive repository.RecordRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewSearchService(deps SearchServiceDeps) SearchService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &searchService{
		search:  deps.Search,
		archive: deps.Archive,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		timeout: deps.Timeout,
	}
}

func (s *searchService) Search(ctx context.Context, req search.SearchRequest) (*SearchResult, error) {
	start := time.Now()
	mode := "single"
	if req.AllPages {
		mode = "all"
	}

	if err := req.Validate(); err != nil {
		s.recordSearch(mode, "validation_error", start)
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// строка только для логов и ключа архива, предупреждения выдаст клиент
	query, _ := req.Query.Encode()

	s.logger.Info("searching",
		zap.String("query", query),
		zap.Int("page", req.Page),
		zap.Bool("all_pages", req.AllPages),
	)

	records, err := s.search.Search(ctx, req)
	if err != nil {
		s.recordSearch(mode, "error", start)
		s.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	result := &SearchResult{Query: query, Records: records}

	if s.archive != nil && len(records) > 0 {
		saved, err := s.archive.SaveRecords(ctx, query, records)
		if err != nil {
			s.logger.Warn("archive failed", zap.String("query", query), zap.Error(err))
			result.ArchiveErr = err
		} else {
			result.Archived = saved
			if s.metrics != nil {
				s.metrics.AddArchived(saved)
			}
		}
	}

	s.recordSearch(mode, "success", start)
	s.logger.Info("search done",
		zap.String("query", query),
		zap.Int("records", len(records)),
		zap.Int("archived", result.Archived),
		zap.Duration("took", time.Since(start)),
	)

	return result, nil
}

func (s *searchService) Count(ctx context.Context, q domain.Encoder) (int, error) {
	if domain.IsBlank(q) {
		return 0, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.search.ArticleCount(ctx, q)
}

func (s *searchService) recordSearch(mode, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordSearch(mode, status, time.Since(start))
	}
}
