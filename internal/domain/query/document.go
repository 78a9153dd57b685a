package query

// M is a JSON-shaped query node. The engine DSL keys clauses by field name,
// which cannot be expressed with static struct tags; nodes are therefore
// built through the typed constructors below and never assembled ad hoc.
type M map[string]any

// Document is the top-level query body sent to the engine's search API.
type Document struct {
	Size           int  `json:"size"`
	From           *int `json:"from,omitempty"`
	TrackTotalHits bool `json:"track_total_hits"`
	Source         any  `json:"_source"`
	Query          M    `json:"query,omitempty"`
	Sort           []M  `json:"sort,omitempty"`
	Aggs           M    `json:"aggs,omitempty"`
}

// Trimmed returns the document reduced to its interesting parts for
// diagnostics display, dropping the size/track_total_hits/_source plumbing.
func (d *Document) Trimmed() M {
	out := M{}
	if d.Query != nil {
		out["query"] = d.Query
	}
	if len(d.Sort) > 0 {
		out["sort"] = d.Sort
	}
	if d.Aggs != nil {
		out["aggs"] = d.Aggs
	}
	return out
}

// Projection is a _source includes/excludes block.
type Projection struct {
	Includes []string `json:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

// Lookup is the minimal query body used for identifier-set fetches.
type Lookup struct {
	Query  M           `json:"query"`
	Source *Projection `json:"_source,omitempty"`
}

// Match builds a full-text match clause on a single field.
func Match(field string, value any) M {
	return M{"match": M{field: value}}
}

// Term builds an exact-value term clause in the long form
// ({"term": {field: {"value": v}}}).
func Term(field string, value any) M {
	return M{"term": M{field: M{"value": value}}}
}

// TermShort builds an exact-value term clause in the short form
// ({"term": {field: v}}), as used for placetype filters.
func TermShort(field string, value any) M {
	return M{"term": M{field: value}}
}

// Terms builds a set-membership clause.
func Terms(field string, values []int64) M {
	return M{"terms": M{field: values}}
}

// Exists builds a field-presence clause.
func Exists(field string) M {
	return M{"exists": M{"field": field}}
}

// IDs builds an identifier-set clause.
func IDs(values []int64) M {
	return M{"ids": M{"values": values}}
}

// GeoCircle builds a geo-shape circle clause on the geometry field.
// Coordinates are [lon, lat].
func GeoCircle(radius string, coordinates []float64) M {
	return M{
		"geo_shape": M{
			"geometry": M{
				"shape": M{
					"type":        "circle",
					"radius":      radius,
					"coordinates": coordinates,
				},
			},
		},
	}
}

// Bool builds a boolean filter from must / must_not clause lists.
func Bool(must, mustNot []M) M {
	b := M{}
	if len(must) > 0 {
		b["must"] = must
	}
	if len(mustNot) > 0 {
		b["must_not"] = mustNot
	}
	return M{"bool": b}
}

// RandomScore wraps a query in a function_score envelope with a seeded
// random_score function, combined by summed scoring.
func RandomScore(inner M, seed int64) M {
	return M{
		"function_score": M{
			"query": inner,
			"functions": []M{
				{"random_score": M{"seed": seed, "field": FieldID}},
			},
			"score_mode": "sum",
			"boost_mode": "sum",
		},
	}
}

// TermsAgg builds a terms aggregation capped at FacetBucketCap buckets.
func TermsAgg(field string) M {
	return M{"terms": M{"field": field, "size": FacetBucketCap}}
}

// SortBy builds a single sort entry. Multi-valued fields reduce to their
// maximum before ordering.
func SortBy(field, order string) M {
	return M{field: M{"order": order, "mode": "max"}}
}
