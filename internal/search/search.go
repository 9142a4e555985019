package search

import (
	"context"
	"fmt"

	"github.com/kitbuilder587/nli-search/internal/domain"
)

// PageSize is fixed by the API.
const PageSize = 50

type SearchClient interface {
	ArticleCount(ctx context.Context, q domain.Encoder) (int, error)
	Page(ctx context.Context, q domain.Encoder, page int) ([]domain.Record, error)
	Search(ctx context.Context, req SearchRequest) ([]domain.Record, error)
}

// SearchRequest - Page and AllPages are mutually exclusive.
// Page 0 means "not set", the first page is fetched.
type SearchRequest struct {
	Query    domain.Encoder
	Page     int
	AllPages bool
}

func (r SearchRequest) Validate() error {
	if domain.IsBlank(r.Query) {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if r.Page < 0 {
		return fmt.Errorf("%w: page must be positive, got %d", domain.ErrInvalidArgument, r.Page)
	}
	if r.Page > 0 && r.AllPages {
		return fmt.Errorf("%w: page and all pages are mutually exclusive", domain.ErrInvalidArgument)
	}
	return nil
}

// PageCount follows the API convention total/PageSize + 1, so an exact
// multiple of PageSize gets one trailing empty page.
func PageCount(total int) int {
	if total < 0 {
		total = 0
	}
	return total/PageSize + 1
}
