package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kitbuilder587/nli-search/internal/domain"
	"github.com/kitbuilder587/nli-search/internal/search"
)

// Client serves Records from memory, split in pages of search.PageSize.
type Client struct {
	Records []domain.Record
	Error   error
	Delay   time.Duration

	CallCount    int
	LastQuery    string
	LastRequest  search.SearchRequest
	AllQueries   []string
	PagesFetched []int

	mu sync.Mutex
}

var _ search.SearchClient = (*Client)(nil)

func New() *Client {
	return &Client{}
}

func (c *Client) WithRecords(records []domain.Record) *Client {
	c.Records = records
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) call(ctx context.Context, q domain.Encoder, page int) ([]domain.Record, error) {
	query, _ := q.Encode()

	c.mu.Lock()
	c.CallCount++
	c.LastQuery = query
	c.AllQueries = append(c.AllQueries, query)
	if page > 0 {
		c.PagesFetched = append(c.PagesFetched, page)
	}
	delay := c.Delay
	err := c.Error
	records := c.Records
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) ArticleCount(ctx context.Context, q domain.Encoder) (int, error) {
	records, err := c.call(ctx, q, 0)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (c *Client) Page(ctx context.Context, q domain.Encoder, page int) ([]domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	records, err := c.call(ctx, q, page)
	if err != nil {
		return nil, err
	}

	first := (page - 1) * search.PageSize
	if first > len(records) {
		return nil, fmt.Errorf("%w: page %d", domain.ErrInvalidPage, page)
	}
	last := min(first+search.PageSize, len(records))
	return append([]domain.Record(nil), records[first:last]...), nil
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) ([]domain.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.LastRequest = req
	c.mu.Unlock()

	total, err := c.ArticleCount(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	if !req.AllPages {
		return c.Page(ctx, req.Query, req.Page)
	}

	var all []domain.Record
	for page := 1; page <= search.PageCount(total); page++ {
		records, err := c.Page(ctx, req.Query, page)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastQuery = ""
	c.LastRequest = search.SearchRequest{}
	c.AllQueries = nil
	c.PagesFetched = nil
}
