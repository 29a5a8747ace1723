// Package testutil provides testing utilities for the Zendesk extractor.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is one request received by the mock server.
type RecordedRequest struct {
	Subdomain string
	Endpoint  string
	Query     url.Values
	Header    http.Header
}

// MockZendesk is a configurable mock Zendesk server. Requests are routed by
// subdomain and endpoint; the subdomain is carried in the path because the
// server has a single host name, see BaseURL.
type MockZendesk struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockZendesk creates and starts a mock server.
func NewMockZendesk() *MockZendesk {
	mock := &MockZendesk{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subdomain, endpoint, ok := splitPath(r.URL.Path)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Subdomain: subdomain,
			Endpoint:  endpoint,
			Query:     r.URL.Query(),
			Header:    r.Header.Clone(),
		})
		handler, exists := mock.handlers[key(subdomain, endpoint)]
		mock.mu.Unlock()

		if ok && exists {
			handler(w, r)
			return
		}
		writeJSON(w, http.StatusNotFound, `{"error":"InvalidEndpoint","description":"Not found"}`)
	}))

	return mock
}

// BaseURL returns a client base URL template (subdomain, endpoint) that
// targets the mock server.
func (m *MockZendesk) BaseURL() string {
	return m.server.URL + "/%s/api/v2/%s"
}

// URL returns the mock server URL.
func (m *MockZendesk) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockZendesk) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockZendesk) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for an endpoint of a subdomain.
func (m *MockZendesk) SetHandler(subdomain, endpoint string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key(subdomain, endpoint)] = handler
}

// SetResponse configures a fixed response for an endpoint.
func (m *MockZendesk) SetResponse(subdomain, endpoint string, resp MockResponse) {
	m.SetHandler(subdomain, endpoint, func(w http.ResponseWriter, r *http.Request) {
		write(w, resp)
	})
}

// SetSequence answers successive requests with resps in order, repeating the
// last one once the sequence is used up.
func (m *MockZendesk) SetSequence(subdomain, endpoint string, resps ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(subdomain, endpoint, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := resps[next]
		if next < len(resps)-1 {
			next++
		}
		mu.Unlock()
		write(w, resp)
	})
}

// SetCursorPages serves pages through the incremental export protocol: the
// first request gets page 0 and each response carries the cursor of the next
// page until end_of_stream.
func (m *MockZendesk) SetCursorPages(subdomain, endpoint, itemsKey string, pages ...[]map[string]any) {
	m.SetHandler(subdomain, endpoint, func(w http.ResponseWriter, r *http.Request) {
		i := 0
		if c := r.URL.Query().Get("cursor"); c != "" {
			n, err := strconv.Atoi(strings.TrimPrefix(c, "c"))
			if err != nil || n < 0 || n >= len(pages) {
				writeJSON(w, http.StatusBadRequest, `{"error":"InvalidCursor"}`)
				return
			}
			i = n
		}

		body := map[string]any{itemsKey: pageOrEmpty(pages, i)}
		if i < len(pages)-1 {
			body["after_cursor"] = fmt.Sprintf("c%d", i+1)
			body["end_of_stream"] = false
		} else {
			body["after_cursor"] = nil
			body["end_of_stream"] = true
		}
		writeBody(w, body)
	})
}

// SetOffsetPages serves pages through page/per_page listing. Pages past the
// end are empty.
func (m *MockZendesk) SetOffsetPages(subdomain, endpoint, itemsKey string, pages ...[]map[string]any) {
	m.SetHandler(subdomain, endpoint, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, `{"error":"InvalidPage"}`)
				return
			}
			page = n
		}
		body := map[string]any{itemsKey: pageOrEmpty(pages, page-1)}
		if page < len(pages) {
			body["next_page"] = fmt.Sprintf("%s?page=%d", r.URL.Path, page+1)
		} else {
			body["next_page"] = nil
		}
		writeBody(w, body)
	})
}

// Requests returns a copy of every recorded request.
func (m *MockZendesk) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestsTo returns the recorded requests for one endpoint of a subdomain.
func (m *MockZendesk) RequestsTo(subdomain, endpoint string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if r.Subdomain == subdomain && r.Endpoint == endpoint {
			out = append(out, r)
		}
	}
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockZendesk) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// NewOKResponse creates a 200 response with rate-limit headers.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-Rate-Limit":           "700",
			"X-Rate-Limit-Remaining": "699",
		},
	}
}

// NewRateLimitResponse creates a 429 response. retryAfter may be empty.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"APIRateLimitExceeded","description":"Number of allowed API requests per minute exceeded"}`,
		Headers: map[string]string{
			"X-Rate-Limit":           "700",
			"X-Rate-Limit-Remaining": "0",
		},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"InternalError"}`,
	}
}

// NewUnauthorizedResponse creates a 401 response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":"Couldn't authenticate you"}`,
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error":"RecordNotFound","description":"Not found"}`,
	}
}

func write(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	writeJSON(w, resp.StatusCode, resp.Body)
}

func writeBody(w http.ResponseWriter, body any) {
	data, err := gojson.Marshal(body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, fmt.Sprintf(`{"error":%q}`, err.Error()))
		return
	}
	w.Header().Set("X-Rate-Limit", "700")
	w.Header().Set("X-Rate-Limit-Remaining", "699")
	writeJSON(w, http.StatusOK, string(data))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != "" {
		w.Write([]byte(body))
	}
}

func pageOrEmpty(pages [][]map[string]any, i int) []map[string]any {
	if i < 0 || i >= len(pages) {
		return []map[string]any{}
	}
	if pages[i] == nil {
		return []map[string]any{}
	}
	return pages[i]
}

// splitPath parses /{subdomain}/api/v2/{endpoint}.
func splitPath(path string) (subdomain, endpoint string, ok bool) {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/api/v2/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func key(subdomain, endpoint string) string {
	return subdomain + "|" + endpoint
}
