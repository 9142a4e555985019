package nli

import (
	"net/http"
	"time"
)

// apiKeyTransport adds api_key to the query string of every request, the
// way a session with persistent params would.
type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	// добавляем в конец, не перекодируя уже собранный query
	key := "api_key=" + escapeQuery(t.apiKey)
	if r.URL.RawQuery == "" {
		r.URL.RawQuery = key
	} else {
		r.URL.RawQuery += "&" + key
	}
	return t.base.RoundTrip(r)
}

// NewHTTPClient returns an *http.Client bound to apiKey. A nil base uses
// http.DefaultTransport, which pools connections and is safe for the
// concurrent page fetches.
func NewHTTPClient(apiKey string, base http.RoundTripper, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &apiKeyTransport{base: base, apiKey: apiKey},
		Timeout:   timeout,
	}
}
