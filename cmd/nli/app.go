package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/kitbuilder587/nli-search/internal/config"
	"github.com/kitbuilder587/nli-search/internal/domain"
	"github.com/kitbuilder587/nli-search/internal/metrics"
	"github.com/kitbuilder587/nli-search/internal/ratelimit"
	"github.com/kitbuilder587/nli-search/internal/repository"
	pgRepo "github.com/kitbuilder587/nli-search/internal/repository/postgres"
	"github.com/kitbuilder587/nli-search/internal/search/nli"
	"github.com/kitbuilder587/nli-search/internal/service"
)

type app struct {
	svc      service.SearchService
	logger   *zap.Logger
	registry *prometheus.Registry
	closers  []func()
}

type appOptions struct {
	archive  bool
	warnings io.Writer
}

// newApp is a variable so tests can swap in a mock backed service.
var newApp = func(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{logger: logger, registry: prometheus.NewRegistry()}
	a.closers = append(a.closers, func() { _ = logger.Sync() })
	m := metrics.NewWithRegisterer(a.registry)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
	}

	client := nli.New(nli.Config{
		APIKey:         cfg.NLI.APIKey,
		BaseURL:        cfg.NLI.BaseURL,
		Timeout:        cfg.NLI.Timeout,
		MaxConcurrency: cfg.NLI.MaxConcurrency,
		OnWarning:      printWarning(opts.warnings),
		Metrics:        m,
		Limiter:        limiter,
	}, logger)

	var archive repository.RecordRepository
	if opts.archive {
		if !cfg.Database.Enabled() {
			a.close()
			return nil, fmt.Errorf("--archive needs DATABASE_URL")
		}
		db, err := pgRepo.New(ctx, cfg.Database.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		archive = pgRepo.NewRecordRepo(db)
	}

	a.svc = service.NewSearchService(service.SearchServiceDeps{
		Search:  client,
		Logger:  logger,
		Metrics: m,
		Archive: archive,
		Timeout: cfg.NLI.SearchTimeout,
	})
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// writeMetrics dumps collected metrics in the prometheus text format.
func (a *app) writeMetrics(w io.Writer) error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// printWarning is called from concurrent page fetches.
func printWarning(w io.Writer) func(domain.Warning) {
	var mu sync.Mutex
	return func(warning domain.Warning) {
		if w == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
