package nli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/nli-search/internal/domain"
	"github.com/kitbuilder587/nli-search/internal/metrics"
	"github.com/kitbuilder587/nli-search/internal/ratelimit"
	"github.com/kitbuilder587/nli-search/internal/search"
)

// fakeAPI serves total results split in pages of search.PageSize, each
// record id is "p<page>-<n>".
type fakeAPI struct {
	total     int
	delays    map[int]time.Duration
	failPage  int
	errorsHdr map[int]string

	hits     atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu       sync.Mutex
	requests []*http.Request
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.maxSeen.Load()
		if n <= old || f.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()

	page := 1
	if p := r.URL.Query().Get("result_page"); p != "" {
		page, _ = strconv.Atoi(p)
	}

	if d := f.delays[page]; d > 0 {
		time.Sleep(d)
	}

	if page == f.failPage {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("totalArticles", strconv.Itoa(f.total))
	if code, ok := f.errorsHdr[page]; ok {
		w.Header().Set("errors", code)
		w.Write([]byte("[]"))
		return
	}

	first := (page - 1) * search.PageSize
	last := min(first+search.PageSize, f.total)
	w.Write([]byte("["))
	for i := first; i < last; i++ {
		if i > first {
			w.Write([]byte(","))
		}
		fmt.Fprintf(w, `{"@id": "p%d-%d", "http://purl.org/dc/elements/1.1/title": [{"@value": "title %d"}]}`, page, i-first, i)
	}
	w.Write([]byte("]"))
}

func (f *fakeAPI) lastRequest() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, api http.Handler, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return New(cfg, zap.NewNop())
}

func mustQuery(t *testing.T, text string, opts ...domain.ClauseOption) *domain.Query {
	t.Helper()
	q, err := domain.NewQuery(text, opts...)
	if err != nil {
		t.Fatalf("NewQuery() error = %v", err)
	}
	return q
}

func TestClient_RequestFormat(t *testing.T) {
	api := &fakeAPI{total: 3}
	client := newTestClient(t, api, Config{})

	q := mustQuery(t, "Agnon", domain.In(domain.FieldCreator), domain.WithMatch(domain.Exact))
	if _, err := client.Page(context.Background(), q, 0); err != nil {
		t.Fatalf("Page() error = %v", err)
	}

	r := api.lastRequest()
	if r == nil {
		t.Fatal("no request received")
	}
	if got := r.URL.Query().Get("api_key"); got != "test-key" {
		t.Errorf("api_key = %q, want %q", got, "test-key")
	}
	if got := r.URL.Query().Get("query"); got != "creator,exact,Agnon" {
		t.Errorf("query = %q, want %q", got, "creator,exact,Agnon")
	}
	if r.URL.Query().Has("result_page") {
		t.Error("result_page sent for default page")
	}
	if r.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", r.Method)
	}

	if _, err := client.Page(context.Background(), q, 2); err != nil {
		t.Fatalf("Page(2) error = %v", err)
	}
	if got := api.lastRequest().URL.Query().Get("result_page"); got != "2" {
		t.Errorf("result_page = %q, want 2", got)
	}
}

func TestClient_ArticleCount(t *testing.T) {
	api := &fakeAPI{total: 120}
	client := newTestClient(t, api, Config{})

	got, err := client.ArticleCount(context.Background(), domain.RawQuery("any,contains,x"))
	if err != nil {
		t.Fatalf("ArticleCount() error = %v", err)
	}
	if got != 120 {
		t.Errorf("ArticleCount() = %d, want 120", got)
	}
}

func TestClient_ArticleCount_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
			wantErr: domain.ErrRemote,
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: domain.ErrRemote,
		},
		{
			name: "invalid page code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("errors", "INVALID_PAGE")
				w.Write([]byte("[]"))
			},
			wantErr: domain.ErrInvalidPage,
		},
		{
			name: "missing header",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("[]"))
			},
			wantErr: domain.ErrRemote,
		},
		{
			name: "garbage header",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("totalarticles", "many")
				w.Write([]byte("[]"))
			},
			wantErr: domain.ErrRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, Config{})

			_, err := client.ArticleCount(context.Background(), domain.RawQuery("any,contains,x"))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ArticleCount() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_RemoteErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}), Config{})

	_, err := client.Page(context.Background(), domain.RawQuery("any,contains,x"), 1)

	var re *domain.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Page() error = %v, want *RemoteError", err)
	}
	if re.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", re.StatusCode, http.StatusBadGateway)
	}
	if errors.Is(err, domain.ErrInvalidPage) {
		t.Error("RemoteError must be distinguishable from ErrInvalidPage")
	}
}

func TestClient_Search_SinglePage(t *testing.T) {
	api := &fakeAPI{total: 120}
	client := newTestClient(t, api, Config{})

	records, err := client.Search(context.Background(), search.SearchRequest{
		Query: mustQuery(t, "jerusalem"),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(records) != search.PageSize {
		t.Fatalf("len(records) = %d, want %d", len(records), search.PageSize)
	}
	if records[0].ID != "p1-0" {
		t.Errorf("records[0].ID = %q, want p1-0", records[0].ID)
	}
	// count + page
	if got := api.hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestClient_Search_SpecificPage(t *testing.T) {
	api := &fakeAPI{total: 120}
	client := newTestClient(t, api, Config{})

	records, err := client.Search(context.Background(), search.SearchRequest{
		Query: mustQuery(t, "jerusalem"),
		Page:  3,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(records) != 20 {
		t.Fatalf("len(records) = %d, want 20", len(records))
	}
	if records[0].ID != "p3-0" {
		t.Errorf("records[0].ID = %q, want p3-0", records[0].ID)
	}
}

func TestClient_Search_AllPagesInOrder(t *testing.T) {
	// first page answers last
	api := &fakeAPI{
		total:  120,
		delays: map[int]time.Duration{1: 150 * time.Millisecond, 2: 50 * time.Millisecond},
	}
	client := newTestClient(t, api, Config{})

	records, err := client.Search(context.Background(), search.SearchRequest{
		Query:    mustQuery(t, "jerusalem"),
		AllPages: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(records) != 120 {
		t.Fatalf("len(records) = %d, want 120", len(records))
	}
	for i, rec := range records {
		page := i/search.PageSize + 1
		want := fmt.Sprintf("p%d-%d", page, i%search.PageSize)
		if rec.ID != want {
			t.Fatalf("records[%d].ID = %q, want %q", i, rec.ID, want)
		}
	}
	// count + 3 pages
	if got := api.hits.Load(); got != 4 {
		t.Errorf("requests = %d, want 4", got)
	}
}

func TestClient_Search_AllPagesMaxConcurrency(t *testing.T) {
	api := &fakeAPI{
		total:  300,
		delays: map[int]time.Duration{1: 20 * time.Millisecond, 2: 20 * time.Millisecond, 3: 20 * time.Millisecond, 4: 20 * time.Millisecond, 5: 20 * time.Millisecond, 6: 20 * time.Millisecond},
	}
	client := newTestClient(t, api, Config{MaxConcurrency: 2})

	records, err := client.Search(context.Background(), search.SearchRequest{
		Query:    domain.RawQuery("any,contains,x"),
		AllPages: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 300 {
		t.Errorf("len(records) = %d, want 300", len(records))
	}
	if got := api.maxSeen.Load(); got > 2 {
		t.Errorf("max concurrent requests = %d, want <= 2", got)
	}
}

func TestClient_Search_AllPagesFailure(t *testing.T) {
	api := &fakeAPI{total: 120, failPage: 2}
	client := newTestClient(t, api, Config{})

	records, err := client.Search(context.Background(), search.SearchRequest{
		Query:    mustQuery(t, "jerusalem"),
		AllPages: true,
	})
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("Search() error = %v, want ErrRemote", err)
	}
	if records != nil {
		t.Errorf("Search() returned %d records alongside an error", len(records))
	}
}

func TestClient_Search_TrailingEmptyPage(t *testing.T) {
	api := &fakeAPI{total: 100, errorsHdr: map[int]string{3: "invalid_page"}}
	client := newTestClient(t, api, Config{})

	records, err := client.Search(context.Background(), search.SearchRequest{
		Query:    mustQuery(t, "jerusalem"),
		AllPages: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 100 {
		t.Errorf("len(records) = %d, want 100", len(records))
	}
}

func TestClient_Search_InvalidPageMidway(t *testing.T) {
	api := &fakeAPI{total: 120, errorsHdr: map[int]string{2: "Invalid page"}}
	client := newTestClient(t, api, Config{})

	_, err := client.Search(context.Background(), search.SearchRequest{
		Query:    mustQuery(t, "jerusalem"),
		AllPages: true,
	})
	if !errors.Is(err, domain.ErrInvalidPage) {
		t.Errorf("Search() error = %v, want ErrInvalidPage", err)
	}
}

func TestClient_Search_PageAndAllPages(t *testing.T) {
	api := &fakeAPI{total: 120}
	client := newTestClient(t, api, Config{})

	_, err := client.Search(context.Background(), search.SearchRequest{
		Query:    mustQuery(t, "jerusalem"),
		Page:     2,
		AllPages: true,
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Search() error = %v, want ErrInvalidArgument", err)
	}
	if got := api.hits.Load(); got != 0 {
		t.Errorf("requests = %d, want none before validation", got)
	}
}

func TestClient_Search_AmbiguousQueryWarnsOnce(t *testing.T) {
	api := &fakeAPI{total: 120}
	sink := &warningSink{}
	client := newTestClient(t, api, Config{OnWarning: sink.add})

	q := mustQuery(t, "a")
	q.Or("b")
	q.And("c")

	if _, err := client.Search(context.Background(), search.SearchRequest{Query: q, AllPages: true}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	warnings := sink.all()
	if len(warnings) != 1 || warnings[0].Kind != domain.WarnAmbiguousQuery {
		t.Errorf("warnings = %v, want one ambiguous_query", warnings)
	}
	if got := api.lastRequest().URL.Query().Get("query"); got != "any,contains,a,OR;any,contains,b,AND;any,contains,c" {
		t.Errorf("query = %q", got)
	}
}

func TestClient_Search_ContextCancelled(t *testing.T) {
	api := &fakeAPI{total: 10, delays: map[int]time.Duration{1: 500 * time.Millisecond}}
	client := newTestClient(t, api, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, search.SearchRequest{Query: domain.RawQuery("any,contains,x")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClient_Metrics(t *testing.T) {
	api := &fakeAPI{total: 60}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	client := newTestClient(t, api, Config{Metrics: m})

	_, err := client.Search(context.Background(), search.SearchRequest{
		Query:    domain.RawQuery("any,contains,x"),
		AllPages: true,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("count", "success")); got != 1 {
		t.Errorf("count requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("page", "success")); got != 2 {
		t.Errorf("page requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RecordsTotal); got != 60 {
		t.Errorf("records = %v, want 60", got)
	}
	if got := testutil.ToFloat64(m.PagesInFlight); got != 0 {
		t.Errorf("pages in flight = %v, want 0", got)
	}
}

func TestClient_Limiter(t *testing.T) {
	api := &fakeAPI{total: 10}
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: 1, Window: time.Hour})
	client := newTestClient(t, api, Config{Limiter: limiter})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// count takes the only slot, the page request has to wait
	_, err := client.Search(ctx, search.SearchRequest{Query: domain.RawQuery("any,contains,x")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search() error = %v, want context.DeadlineExceeded", err)
	}
	if got := api.hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestClient_EmptyQueryMakesNoRequests(t *testing.T) {
	var nilQuery *domain.Query

	tests := []struct {
		name  string
		query domain.Encoder
	}{
		{name: "zero value query", query: &domain.Query{}},
		{name: "nil query pointer", query: nilQuery},
		{name: "blank raw query", query: domain.RawQuery("  ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{total: 10}
			client := newTestClient(t, api, Config{})
			ctx := context.Background()

			if _, err := client.Search(ctx, search.SearchRequest{Query: tt.query}); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Search() error = %v, want ErrInvalidArgument", err)
			}
			if _, err := client.Search(ctx, search.SearchRequest{Query: tt.query, AllPages: true}); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Search(all) error = %v, want ErrInvalidArgument", err)
			}
			if _, err := client.ArticleCount(ctx, tt.query); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("ArticleCount() error = %v, want ErrInvalidArgument", err)
			}
			if _, err := client.Page(ctx, tt.query, 1); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Page() error = %v, want ErrInvalidArgument", err)
			}
			if got := api.hits.Load(); got != 0 {
				t.Errorf("requests = %d, want 0", got)
			}
		})
	}
}

func TestClient_QueryEscaping(t *testing.T) {
	api := &fakeAPI{total: 1}
	client := newTestClient(t, api, Config{})

	q := mustQuery(t, "tel aviv+jaffa", domain.In(domain.FieldTitle))
	if _, err := client.Page(context.Background(), q, 2); err != nil {
		t.Fatalf("Page() error = %v", err)
	}

	r := api.lastRequest()
	want := "query=title%2Ccontains%2Ctel%20aviv%2Bjaffa&result_page=2&api_key=test-key"
	if r.URL.RawQuery != want {
		t.Errorf("RawQuery = %q, want %q", r.URL.RawQuery, want)
	}
	if got := r.URL.Query().Get("query"); got != "title,contains,tel aviv+jaffa" {
		t.Errorf("decoded query = %q", got)
	}
}

func TestIsInvalidPage(t *testing.T) {
	tests := []struct {
		values []string
		want   bool
	}{
		{values: []string{"INVALID_PAGE"}, want: true},
		{values: []string{"invalid-page"}, want: true},
		{values: []string{"Invalid page number"}, want: true},
		{values: []string{"rate_limited", "invalid_page"}, want: true},
		{values: []string{"rate_limited"}, want: false},
		{values: nil, want: false},
	}

	for _, tt := range tests {
		if got := isInvalidPage(tt.values); got != tt.want {
			t.Errorf("isInvalidPage(%v) = %v, want %v", tt.values, got, tt.want)
		}
	}
}
