package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domplace "github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
	healthuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/health"
	inflateuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/inflate"
	placeuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/place"
	searchuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/search"
)

// stubBackend implements every consumer interface the handler stack needs,
// so routes exercise the real services over one controllable seam.
type stubBackend struct {
	queryFn    func(ctx context.Context, body any) (*es.Response, error)
	getByIDFn  func(ctx context.Context, id int64, proj *query.Projection) *domplace.Document
	getByIDsFn func(ctx context.Context, ids []int64, proj *query.Projection) []*domplace.Document
	byIDFn     func(ctx context.Context, id int64) *domplace.Placetype
	byNameFn   func(ctx context.Context, name string) *domplace.Placetype
	pingErr    error
}

func (s *stubBackend) Query(ctx context.Context, body any) (*es.Response, error) {
	if s.queryFn != nil {
		return s.queryFn(ctx, body)
	}
	return &es.Response{Status: http.StatusOK}, nil
}

func (s *stubBackend) GetByID(ctx context.Context, id int64, proj *query.Projection) *domplace.Document {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id, proj)
	}
	return nil
}

func (s *stubBackend) GetByIDs(ctx context.Context, ids []int64, proj *query.Projection) []*domplace.Document {
	if s.getByIDsFn != nil {
		return s.getByIDsFn(ctx, ids, proj)
	}
	return nil
}

// ByID resolves every id by default so requests carrying the standard
// placetype filters survive query building; tests needing unknown ids
// override byIDFn.
func (s *stubBackend) ByID(ctx context.Context, id int64) *domplace.Placetype {
	if s.byIDFn != nil {
		return s.byIDFn(ctx, id)
	}
	return &domplace.Placetype{ID: id, Name: "Placetype", ShortName: "placetype"}
}

func (s *stubBackend) ByName(ctx context.Context, name string) *domplace.Placetype {
	if s.byNameFn != nil {
		return s.byNameFn(ctx, name)
	}
	return nil
}

func (s *stubBackend) Ping(_ context.Context) error {
	return s.pingErr
}

func newTestServer(t *testing.T) (http.Handler, *stubBackend) {
	t.Helper()
	sb := &stubBackend{}
	nop := zap.NewNop()

	srv := NewServer(
		searchuc.New(sb, sb, nop),
		placeuc.New(sb, sb, nop),
		inflateuc.New(sb, sb, nop),
		healthuc.New(sb, nil),
		sb,
		nop,
	)

	r := chi.NewRouter()
	srv.Register(r)
	return r, sb
}

func searchResponse(t *testing.T, total int64, sources ...any) *es.Response {
	t.Helper()
	hits := make([]es.Hit, len(sources))
	for i, src := range sources {
		raw, err := json.Marshal(src)
		if err != nil {
			t.Fatalf("marshal source: %v", err)
		}
		hits[i] = es.Hit{Source: raw}
	}
	return &es.Response{
		Status: http.StatusOK,
		Took:   7,
		Hits: es.Hits{
			Total: es.Total{Value: total, Relation: "eq"},
			Hits:  hits,
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
