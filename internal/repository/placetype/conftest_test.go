package placetype

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
	repo := New(me, "woeplanet-placetypes", zap.NewNop())
	return repo, me
}

func okWith(t *testing.T, sources ...any) *es.Response {
	t.Helper()
	hits := make([]es.Hit, len(sources))
	for i, s := range sources {
		raw, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal source: %v", err)
		}
		hits[i] = es.Hit{Source: raw}
	}
	return &es.Response{
		Status: http.StatusOK,
		Hits: es.Hits{
			Total: es.Total{Value: int64(len(sources)), Relation: "eq"},
			Hits:  hits,
		},
	}
}
