package nli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/nli-search/internal/domain"
	"github.com/kitbuilder587/nli-search/internal/metrics"
	"github.com/kitbuilder587/nli-search/internal/ratelimit"
	"github.com/kitbuilder587/nli-search/internal/search"
)

const DefaultBaseURL = "https://api.nli.org.il/openlibrary/search"

const (
	headerTotalArticles = "totalarticles"
	headerErrors        = "errors"
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// MaxConcurrency caps parallel page fetches, 0 means no cap.
	MaxConcurrency int
	// Transport is the underlying round tripper, nil for http.DefaultTransport.
	Transport http.RoundTripper
	// OnWarning receives non-fatal diagnostics. May be nil.
	OnWarning func(domain.Warning)
	Metrics   *metrics.Metrics
	Limiter   *ratelimit.Limiter
}

type Client struct {
	baseURL        string
	client         *http.Client
	logger         *zap.Logger
	parser         *Parser
	metrics        *metrics.Metrics
	limiter        *ratelimit.Limiter
	maxConcurrency int
	onWarning      func(domain.Warning)
}

var _ search.SearchClient = (*Client)(nil)

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:        cfg.BaseURL,
		client:         NewHTTPClient(cfg.APIKey, cfg.Transport, cfg.Timeout),
		logger:         logger,
		metrics:        cfg.Metrics,
		limiter:        cfg.Limiter,
		maxConcurrency: cfg.MaxConcurrency,
		onWarning:      cfg.OnWarning,
	}
	c.parser = NewParser(logger, c.emit)
	return c
}

func (c *Client) emit(w domain.Warning) {
	if c.metrics != nil {
		c.metrics.RecordWarning(string(w.Kind))
	}
	if c.onWarning != nil {
		c.onWarning(w)
	}
}

// encode serializes q once and reports its warnings.
func (c *Client) encode(q domain.Encoder) (string, error) {
	if q == nil {
		return "", fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	s, warnings := q.Encode()
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: query is empty", domain.ErrInvalidArgument)
	}
	for _, w := range warnings {
		c.logger.Warn("query diagnostic",
			zap.String("kind", string(w.Kind)),
			zap.String("message", w.Message),
			zap.String("query", s),
		)
		c.emit(w)
	}
	return s, nil
}

func (c *Client) pageURL(query string, page int) string {
	raw := "query=" + escapeQuery(query)
	if page > 0 {
		raw += "&result_page=" + strconv.Itoa(page)
	}
	return c.baseURL + "?" + raw
}

// escapeQuery is url.QueryEscape with spaces sent as %20, not '+'.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// get performs one request. The caller closes the body of a nil-error response.
func (c *Client) get(ctx context.Context, kind, query string, page int) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(query, page), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.recordRequest(kind, "error", start)
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		c.recordRequest(kind, "error", start)
		return nil, &domain.RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if isInvalidPage(resp.Header.Values(headerErrors)) {
		drain(resp)
		c.recordRequest(kind, "invalid_page", start)
		return nil, fmt.Errorf("%w: page %d", domain.ErrInvalidPage, max(page, 1))
	}

	c.recordRequest(kind, "success", start)
	return resp, nil
}

func (c *Client) recordRequest(kind, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordRequest(kind, status, time.Since(start))
	}
}

// isInvalidPage matches codes like INVALID_PAGE, invalid-page or
// "Invalid page number".
func isInvalidPage(values []string) bool {
	for _, v := range values {
		v = strings.ToLower(v)
		v = strings.NewReplacer("_", " ", "-", " ").Replace(v)
		if strings.Contains(v, "invalid page") {
			return true
		}
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

// ArticleCount requests the first page and returns the total number of
// results across all pages.
func (c *Client) ArticleCount(ctx context.Context, q domain.Encoder) (int, error) {
	query, err := c.encode(q)
	if err != nil {
		return 0, err
	}
	return c.articleCount(ctx, query)
}

func (c *Client) articleCount(ctx context.Context, query string) (int, error) {
	resp, err := c.get(ctx, "count", query, 0)
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	raw := strings.TrimSpace(resp.Header.Get(headerTotalArticles))
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s header", domain.ErrRemote, headerTotalArticles)
	}
	total, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s header %q", domain.ErrRemote, headerTotalArticles, raw)
	}
	return total, nil
}

// Page fetches one result page. page <= 0 asks for the first page.
func (c *Client) Page(ctx context.Context, q domain.Encoder, page int) ([]domain.Record, error) {
	query, err := c.encode(q)
	if err != nil {
		return nil, err
	}
	return c.page(ctx, query, page)
}

func (c *Client) page(ctx context.Context, query string, page int) ([]domain.Record, error) {
	if c.metrics != nil {
		c.metrics.IncPagesInFlight()
		defer c.metrics.DecPagesInFlight()
	}

	resp, err := c.get(ctx, "page", query, page)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	items, err := DecodeItems(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", max(page, 1), err)
	}

	records := slices.Collect(c.parser.ParseAll(items))
	if c.metrics != nil {
		c.metrics.AddRecords(len(records))
	}
	return records, nil
}

// Search counts the results first, then fetches either one page or every
// page in parallel. Records of page 1 come before page 2 and so on. Any
// failed page fails the whole search.
func (c *Client) Search(ctx context.Context, req search.SearchRequest) ([]domain.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query, err := c.encode(req.Query)
	if err != nil {
		return nil, err
	}

	total, err := c.articleCount(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	pages := search.PageCount(total)

	c.logger.Debug("search",
		zap.String("query", query),
		zap.Int("total", total),
		zap.Int("pages", pages),
		zap.Bool("all_pages", req.AllPages),
	)

	if !req.AllPages {
		return c.page(ctx, query, req.Page)
	}
	return c.allPages(ctx, query, total, pages)
}

func (c *Client) allPages(ctx context.Context, query string, total, pages int) ([]domain.Record, error) {
	results := make([][]domain.Record, pages)

	g, ctx := errgroup.WithContext(ctx)
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}

	for i := range pages {
		page := i + 1
		g.Go(func() error {
			records, err := c.page(ctx, query, page)
			if err != nil {
				// при total кратном PageSize последняя страница пустая
				if errors.Is(err, domain.ErrInvalidPage) && page == pages && total%search.PageSize == 0 {
					return nil
				}
				return fmt.Errorf("page %d: %w", page, err)
			}
			results[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.Record
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
