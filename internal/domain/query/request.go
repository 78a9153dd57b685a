// Package query models search requests and translates them into the engine's
// structured query DSL.
package query

// DefaultSize is the number of rows requested when a request does not set one.
const DefaultSize = 10

// FacetBucketCap bounds the distinct buckets returned per terms aggregation.
const FacetBucketCap = 10000

// Search holds the mutually exclusive free-text fields. At most one drives
// the query: the first non-empty field wins, in declaration order.
type Search struct {
	NamesAll        string
	NamesAlt        string
	NamesColloquial string
	NamesPreferred  string
	NamesVariant    string
}

// FieldValue returns the winning search field and its text. ok is false when
// every field is empty.
func (s Search) FieldValue() (field, value string, ok bool) {
	ordered := []struct {
		field string
		value string
	}{
		{"names_all", s.NamesAll},
		{"names_alt", s.NamesAlt},
		{"names_colloquial", s.NamesColloquial},
		{"names_preferred", s.NamesPreferred},
		{"names_variant", s.NamesVariant},
	}
	for _, c := range ordered {
		if c.value != "" {
			return c.field, c.value, true
		}
	}
	return "", "", false
}

// IsEmpty reports whether no search field is set.
func (s Search) IsEmpty() bool {
	_, _, ok := s.FieldValue()
	return !ok
}

// Nearby is a geo-radius match centred on Coordinates ([lon, lat]).
// Radius is an engine distance string such as "1km" or "500m".
type Nearby struct {
	Radius      string
	Coordinates []float64
}

// Include holds the additive inclusion filters.
type Include struct {
	Centroid   bool
	NullIsland bool
	Placetypes []int64
}

// Exclude holds the additive exclusion filters. Note the null-island
// semantics are deliberately asymmetric with Include.NullIsland: excluding
// only negates the (0,0) coordinate pair, without the id-1 and superseded-by
// clauses the include side adds.
type Exclude struct {
	Placetypes []int64
	NullIsland bool
	Deprecated bool
}

// Facets toggles the terms aggregations attached to a query.
type Facets struct {
	Placetypes bool
	Countries  bool
}

// Request is the input contract to the query builder. Exactly one of
// {Search, ISO, Nearby} drives the primary match clause (checked in that
// precedence order); include/exclude filters are additive regardless.
type Request struct {
	// Size is the page window; nil means DefaultSize. Zero is meaningful
	// (facet-only queries request no rows).
	Size   *int
	Random bool

	Search Search
	ISO    string
	Nearby *Nearby

	Include Include
	Exclude Exclude
	Facets  Facets

	// Source restricts the returned fields; empty means all fields.
	Source []string
}

// SizeOrDefault resolves the effective page window.
func (r *Request) SizeOrDefault() int {
	if r.Size == nil {
		return DefaultSize
	}
	return *r.Size
}

// Placetypes returns the union of include and exclude placetype ids, for
// fail-fast resolution against the placetypes index.
func (r *Request) Placetypes() []int64 {
	ids := make([]int64, 0, len(r.Include.Placetypes)+len(r.Exclude.Placetypes))
	ids = append(ids, r.Include.Placetypes...)
	ids = append(ids, r.Exclude.Placetypes...)
	return ids
}

// SizeOf is a convenience for building size pointers in request literals.
func SizeOf(n int) *int { return &n }
