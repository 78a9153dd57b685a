package placetype

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
)

// --- ByID ---

func TestByID_HappyPath(t *testing.T) {
	repo, me := newTestRepo(t)
	ctx := context.Background()

	me.searchFn = func(_ context.Context, index string, body any) (*es.Response, error) {
		if index != "woeplanet-placetypes" {
			t.Errorf("unexpected index: %s", index)
		}
		lookup, ok := body.(query.Lookup)
		if !ok {
			t.Fatalf("expected lookup body, got %T", body)
		}
		ids := lookup.Query["ids"].(query.M)
		values, _ := ids["values"].([]int64)
		if len(values) != 1 || values[0] != 7 {
			t.Errorf("unexpected id values %v", values)
		}
		return okWith(t, map[string]any{
			"id":        7,
			"name":      "Town",
			"shortname": "town",
		}), nil
	}

	pt := repo.ByID(ctx, 7)
	if pt == nil {
		t.Fatal("expected a placetype")
	}
	if pt.ID != 7 || pt.Name != "Town" || pt.ShortName != "town" {
		t.Errorf("unexpected placetype %+v", pt)
	}
}

func TestByID_StringIDTolerated(t *testing.T) {
	repo, me := newTestRepo(t)
	ctx := context.Background()

	me.searchFn = func(_ context.Context, _ string, _ any) (*es.Response, error) {
		return okWith(t, map[string]any{"id": "12", "name": "Country", "shortname": "country"}), nil
	}

	pt := repo.ByID(ctx, 12)
	if pt == nil || pt.ID != 12 {
		t.Fatalf("expected string id to decode, got %+v", pt)
	}
}

func TestByID_Absence(t *testing.T) {
	repo, me := newTestRepo(t)

	me.searchFn = func(_ context.Context, _ string, _ any) (*es.Response, error) {
		return okWith(t), nil
	}

	if pt := repo.ByID(context.Background(), 999); pt != nil {
		t.Errorf("expected nil for unknown id, got %+v", pt)
	}
}

// --- ByName ---

func TestByName_Lowercased(t *testing.T) {
	repo, me := newTestRepo(t)
	ctx := context.Background()

	me.searchFn = func(_ context.Context, _ string, body any) (*es.Response, error) {
		lookup := body.(query.Lookup)
		boolClause := lookup.Query["bool"].(query.M)
		must := boolClause["must"].([]query.M)
		match := must[0]["match"].(query.M)
		if match["shortname"] != "suburb" {
			t.Errorf("expected lowercased shortname, got %v", match["shortname"])
		}
		return okWith(t, map[string]any{"id": 22, "name": "Suburb", "shortname": "suburb"}), nil
	}

	pt := repo.ByName(ctx, "Suburb")
	if pt == nil || pt.ID != 22 {
		t.Fatalf("unexpected placetype %+v", pt)
	}
}

func TestByName_MultipleHitsTreatedAsAbsence(t *testing.T) {
	repo, me := newTestRepo(t)

	me.searchFn = func(_ context.Context, _ string, _ any) (*es.Response, error) {
		return okWith(t,
			map[string]any{"id": 1, "shortname": "x"},
			map[string]any{"id": 2, "shortname": "x"},
		), nil
	}

	if pt := repo.ByName(context.Background(), "x"); pt != nil {
		t.Errorf("expected nil for ambiguous lookup, got %+v", pt)
	}
}

func TestLookup_FailuresYieldNil(t *testing.T) {
	repo, me := newTestRepo(t)
	ctx := context.Background()

	me.searchFn = func(_ context.Context, _ string, _ any) (*es.Response, error) {
		return nil, errors.New("engine unreachable")
	}
	if pt := repo.ByID(ctx, 1); pt != nil {
		t.Errorf("expected nil on transport error, got %+v", pt)
	}

	me.searchFn = func(_ context.Context, _ string, _ any) (*es.Response, error) {
		return &es.Response{Status: http.StatusNotFound}, nil
	}
	if pt := repo.ByName(ctx, "town"); pt != nil {
		t.Errorf("expected nil on engine failure, got %+v", pt)
	}
}

func TestLookup_UndecodableSource(t *testing.T) {
	repo, me := newTestRepo(t)

	me.searchFn = func(_ context.Context, _ string, _ any) (*es.Response, error) {
		return okWith(t, map[string]any{"id": "not-a-number", "name": "Broken"}), nil
	}

	if pt := repo.ByID(context.Background(), 1); pt != nil {
		t.Errorf("expected nil for undecodable source, got %+v", pt)
	}
}
