package place

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
)

// mockEngine implements the consumer interface for tests.
type mockEngine struct {
	searchFn func(ctx context.Context, index string, body any) (*es.Response, error)
}

func (m *mockEngine) Search(ctx context.Context, index string, body any) (*es.Response, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &es.Response{Status: http.StatusOK}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockEngine) {
	t.Helper()
	me := &mockEngine{}
	repo := New(me, "woeplanet", zap.NewNop())
	return repo, me
}

func hitFor(t *testing.T, source any) es.Hit {
	t.Helper()
	raw, err := json.Marshal(source)
	if err != nil {
		t.Fatalf("marshal source: %v", err)
	}
	return es.Hit{Source: raw}
}

func okWith(t *testing.T, sources ...any) *es.Response {
	t.Helper()
	hits := make([]es.Hit, len(sources))
	for i, s := range sources {
		hits[i] = hitFor(t, s)
	}
	return &es.Response{
		Status: http.StatusOK,
		Hits: es.Hits{
			Total: es.Total{Value: int64(len(sources)), Relation: "eq"},
			Hits:  hits,
		},
	}
}
