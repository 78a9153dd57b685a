package inflate

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
)

// --- Mocks ---

type mockPlaces struct {
	mu    sync.Mutex
	docs  map[int64]*place.Document
	calls int
}

func (m *mockPlaces) GetByIDs(_ context.Context, ids []int64, _ *query.Projection) []*place.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]*place.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

type mockPlacetypes struct {
	known map[string]*place.Placetype
}

func (m *mockPlacetypes) ByName(_ context.Context, name string) *place.Placetype {
	return m.known[name]
}

func newTestService(t *testing.T) (*Service, *mockPlaces, *mockPlacetypes) {
	t.Helper()
	places := &mockPlaces{docs: map[int64]*place.Document{}}
	pts := &mockPlacetypes{known: map[string]*place.Placetype{
		"town":   {ID: 7, Name: "Town", ShortName: "town"},
		"suburb": {ID: 22, Name: "Suburb", ShortName: "suburb"},
	}}
	svc := New(places, pts, zap.NewNop())
	return svc, places, pts
}

// --- Inflate ---

func TestInflate_Hierarchy(t *testing.T) {
	svc, places, _ := newTestService(t)
	ctx := context.Background()

	places.docs[23416974] = &place.Document{WOEID: 23416974, Name: "Haringey"}
	places.docs[24554868] = &place.Document{WOEID: 24554868, Name: "England"}
	places.docs[23424975] = &place.Document{WOEID: 23424975, Name: "United Kingdom"}

	doc := &place.Document{
		WOEID: 26191,
		Name:  "Crouch End",
		Hierarchy: map[string]int64{
			"county":  23416974,
			"state":   24554868,
			"country": 23424975,
			"planet":  0, // zero ids never hit the index
		},
	}

	inf := svc.Inflate(ctx, doc, Options{Hierarchy: true})

	if len(inf.Hierarchy) != 3 {
		t.Fatalf("expected 3 hierarchy entries, got %d", len(inf.Hierarchy))
	}
	if h := inf.Hierarchy["county"]; h == nil || h.Name != "Haringey" {
		t.Errorf("unexpected county %+v", h)
	}
	if h := inf.Hierarchy["country"]; h == nil || h.Name != "United Kingdom" {
		t.Errorf("unexpected country %+v", h)
	}
	if places.calls != 1 {
		t.Errorf("hierarchy must resolve in one batch, got %d calls", places.calls)
	}
}

func TestInflate_QualifiedName(t *testing.T) {
	svc, places, _ := newTestService(t)
	ctx := context.Background()

	places.docs[1] = &place.Document{WOEID: 1, Name: "Haringey"}
	places.docs[2] = &place.Document{WOEID: 2, Name: "England"}
	places.docs[3] = &place.Document{WOEID: 3, Name: "United Kingdom"}

	doc := &place.Document{
		WOEID: 26191,
		Name:  "Crouch End",
		Hierarchy: map[string]int64{
			"county":  1,
			"state":   2,
			"country": 3,
		},
	}

	// Name implies hierarchy even when not asked for.
	inf := svc.Inflate(ctx, doc, Options{Name: true})

	want := "Crouch End, Haringey, England, United Kingdom"
	if inf.Name != want {
		t.Errorf("name = %q, want %q", inf.Name, want)
	}
	if len(inf.Hierarchy) != 3 {
		t.Errorf("expected hierarchy to be resolved, got %v", inf.Hierarchy)
	}
}

func TestInflate_QualifiedNameSkipsMissingLevels(t *testing.T) {
	svc, places, _ := newTestService(t)
	ctx := context.Background()

	places.docs[3] = &place.Document{WOEID: 3, Name: "United Kingdom"}

	doc := &place.Document{
		WOEID:     44418,
		Name:      "London",
		Hierarchy: map[string]int64{"country": 3},
	}

	inf := svc.Inflate(ctx, doc, Options{Name: true})

	if want := "London, United Kingdom"; inf.Name != want {
		t.Errorf("name = %q, want %q", inf.Name, want)
	}
}

func TestInflate_Adjacencies(t *testing.T) {
	svc, places, _ := newTestService(t)
	ctx := context.Background()

	places.docs[10] = &place.Document{WOEID: 10, Name: "Muswell Hill", PlacetypeName: "Suburb"}
	places.docs[11] = &place.Document{WOEID: 11, Name: "Hornsey", PlacetypeName: "Suburb"}
	places.docs[12] = &place.Document{WOEID: 12, Name: "Haringey", PlacetypeName: "County"}

	doc := &place.Document{WOEID: 26191, Adjacent: []int64{10, 11, 12}}

	inf := svc.Inflate(ctx, doc, Options{Adjacencies: true})

	suburbs := inf.Adjacencies["Suburbs"]
	if len(suburbs) != 2 {
		t.Fatalf("expected 2 suburbs, got %d", len(suburbs))
	}
	// Groups come back sorted by name.
	if suburbs[0].Name != "Hornsey" || suburbs[1].Name != "Muswell Hill" {
		t.Errorf("unexpected suburb order: %s, %s", suburbs[0].Name, suburbs[1].Name)
	}
	if len(inf.Adjacencies["Counties"]) != 1 {
		t.Errorf("expected 1 county, got %v", inf.Adjacencies["Counties"])
	}
}

func TestInflate_Children(t *testing.T) {
	svc, places, _ := newTestService(t)
	ctx := context.Background()

	places.docs[20] = &place.Document{WOEID: 20, Name: "Crouch End"}
	places.docs[21] = &place.Document{WOEID: 21, Name: "Archway"}
	places.docs[30] = &place.Document{WOEID: 30, Name: "Hornsey"}

	doc := &place.Document{
		WOEID: 23416974,
		Children: map[string][]int64{
			"suburb":  {20, 21},
			"town":    {30},
			"zone":    {},       // empty sets schedule nothing
			"unknown": {40, 41}, // unresolvable shortname keeps its raw key
		},
	}

	inf := svc.Inflate(ctx, doc, Options{Children: true})

	suburbs := inf.Children["Suburbs"]
	if len(suburbs) != 2 {
		t.Fatalf("expected 2 suburbs, got %d", len(suburbs))
	}
	if suburbs[0].Name != "Archway" || suburbs[1].Name != "Crouch End" {
		t.Errorf("unexpected suburb order: %s, %s", suburbs[0].Name, suburbs[1].Name)
	}
	if len(inf.Children["Towns"]) != 1 {
		t.Errorf("expected 1 town, got %v", inf.Children["Towns"])
	}
	if _, ok := inf.Children["Zones"]; ok {
		t.Error("empty child sets must not appear")
	}
	if group, ok := inf.Children["unknowns"]; !ok || len(group) != 0 {
		t.Errorf("unresolvable shortname must keep its pluralized raw key, got %v", inf.Children)
	}
}

func TestInflate_Aliases(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc := &place.Document{
		WOEID: 44418,
		Aliases: map[string][]string{
			"woe:alias_FRE_V": {"Londres"},
			"woe:alias_ENG_P": {"London Town", "The Big Smoke"},
			"woe:alias_UNK_V": {"LDN"},
		},
	}

	inf := svc.Inflate(ctx, doc, Options{Aliases: true})

	if len(inf.Aliases) != 3 {
		t.Fatalf("expected 3 alias groups, got %d", len(inf.Aliases))
	}
	// Sorted by language display name: English, French, Unknown.
	if inf.Aliases[0].Lang != "English" || inf.Aliases[1].Lang != "French" || inf.Aliases[2].Lang != "Unknown" {
		t.Errorf("unexpected group order: %s, %s, %s",
			inf.Aliases[0].Lang, inf.Aliases[1].Lang, inf.Aliases[2].Lang)
	}
	if !reflect.DeepEqual(inf.Aliases[0].Aliases, []string{"London Town", "The Big Smoke"}) {
		t.Errorf("unexpected english aliases %v", inf.Aliases[0].Aliases)
	}
}

func TestInflate_NilDocument(t *testing.T) {
	svc, _, _ := newTestService(t)

	if inf := svc.Inflate(context.Background(), nil, Options{Name: true}); inf != nil {
		t.Errorf("expected nil for nil document, got %+v", inf)
	}
}

func TestInflate_EmptyReferencesDegrade(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	doc := &place.Document{WOEID: 1, Name: "Lonely"}

	inf := svc.Inflate(ctx, doc, Options{
		Name: true, Hierarchy: true, Adjacencies: true, Aliases: true, Children: true,
	})

	if inf.Hierarchy != nil || inf.Adjacencies != nil || inf.Children != nil || inf.Aliases != nil {
		t.Errorf("expected empty enrichments, got %+v", inf)
	}
	if inf.Name != "Lonely" {
		t.Errorf("bare name survives with no hierarchy, got %q", inf.Name)
	}
}

// --- InflateAll ---

func TestInflateAll(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	docs := []*place.Document{
		{WOEID: 1, Name: "One"},
		{WOEID: 2, Name: "Two"},
	}

	out := svc.InflateAll(ctx, docs, Options{Name: true})

	if len(out) != 2 {
		t.Fatalf("expected 2 enrichment blocks, got %d", len(out))
	}
	if out[0].Name != "One" || out[1].Name != "Two" {
		t.Errorf("unexpected names %q, %q", out[0].Name, out[1].Name)
	}
}
