package es

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// fakeEngine serves canned engine responses. The product header keeps the
// client's server verification happy.
func fakeEngine(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := NewClient(Config{Addrs: []string{addr}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresAddrs(t *testing.T) {
	if _, err := NewClient(Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestSearch_Success(t *testing.T) {
	srv := fakeEngine(t, http.StatusOK, `{
		"took": 5,
		"hits": {
			"total": {"value": 2, "relation": "eq"},
			"hits": [
				{"_id": "44418", "_source": {"woe:id": 44418}},
				{"_id": "26191", "_source": {"woe:id": 26191}}
			]
		},
		"aggregations": {
			"placetypes": {"buckets": [{"key": "Town", "doc_count": 19}]}
		}
	}`)
	c := newTestClient(t, srv.URL)

	rsp, err := c.Search(context.Background(), "woeplanet", map[string]any{"size": 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rsp.OK() {
		t.Fatalf("expected ok response, got status %d", rsp.Status)
	}
	if rsp.Took != 5 {
		t.Errorf("expected took 5, got %d", rsp.Took)
	}
	if rsp.Hits.Total.Value != 2 || len(rsp.Hits.Hits) != 2 {
		t.Errorf("unexpected hits %+v", rsp.Hits)
	}
	if len(rsp.Aggregations["placetypes"].Buckets) != 1 {
		t.Errorf("unexpected aggregations %+v", rsp.Aggregations)
	}
}

func TestSearch_EngineErrorKeepsStatus(t *testing.T) {
	srv := fakeEngine(t, http.StatusNotFound, `{
		"status": 404,
		"error": {
			"type": "index_not_found_exception",
			"reason": "no such index [nope]",
			"root_cause": [
				{"type": "index_not_found_exception", "reason": "no such index [nope]", "index": "nope"}
			]
		}
	}`)
	c := newTestClient(t, srv.URL)

	rsp, err := c.Search(context.Background(), "nope", map[string]any{})
	if err != nil {
		t.Fatalf("engine errors are normalized, not returned: %v", err)
	}
	if rsp.Status != http.StatusNotFound {
		t.Fatalf("expected engine status kept, got %d", rsp.Status)
	}
	rc := rsp.Error.FirstRootCause()
	if rc == nil || rc.Index != "nope" {
		t.Errorf("expected structured root cause, got %+v", rc)
	}
}

func TestSearch_UnreachableBecomes500(t *testing.T) {
	srv := fakeEngine(t, http.StatusOK, `{}`)
	addr := srv.URL
	srv.Close()

	c := newTestClient(t, addr)

	rsp, err := c.Search(context.Background(), "woeplanet", map[string]any{})
	if err != nil {
		t.Fatalf("connectivity failures are normalized, not returned: %v", err)
	}
	if rsp.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rsp.Status)
	}
}

func TestSearch_UndecodableBodyBecomes500(t *testing.T) {
	srv := fakeEngine(t, http.StatusOK, `this is not json`)
	c := newTestClient(t, srv.URL)

	rsp, err := c.Search(context.Background(), "woeplanet", map[string]any{})
	if err != nil {
		t.Fatalf("decode failures are normalized, not returned: %v", err)
	}
	if rsp.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rsp.Status)
	}
}

func TestSearch_UnencodableBody(t *testing.T) {
	srv := fakeEngine(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.Search(context.Background(), "woeplanet", func() {}); err == nil {
		t.Fatal("expected encode error")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestRetryOnTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", timeoutError{}, true},
		{"wrapped timeout", fmt.Errorf("round trip: %w", timeoutError{}), true},
		{"connection refused", errors.New("connection refused"), false},
		{"nil", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryOnTimeout(nil, tc.err); got != tc.want {
				t.Errorf("retryOnTimeout(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestPing(t *testing.T) {
	srv := fakeEngine(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResponse_OK(t *testing.T) {
	if !(&Response{Status: http.StatusOK}).OK() {
		t.Error("200 must be ok")
	}
	if (&Response{Status: http.StatusNotFound}).OK() {
		t.Error("404 must not be ok")
	}
}

func TestFirstRootCause_NilSafe(t *testing.T) {
	var e *ErrorInfo
	if e.FirstRootCause() != nil {
		t.Error("nil error info must yield nil")
	}
	if (&ErrorInfo{}).FirstRootCause() != nil {
		t.Error("empty root cause list must yield nil")
	}
}
