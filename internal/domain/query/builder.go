package query

import (
	"math/rand"
	"strings"
	"time"
)

// Index field names used by the builder.
const (
	FieldID            = "woe:id"
	FieldPlacetype     = "woe:placetype"
	FieldPlacetypeName = "woe:placetype_name"
	FieldScale         = "woe:scale"
	FieldSupersededBy  = "woe:superseded_by"
	FieldCountry       = "iso:country"
	FieldLatitude      = "woe:latitude"
	FieldLongitude     = "woe:longitude"
	FieldGeomLatitude  = "geom:latitude"
	FieldGeomLongitude = "geom:longitude"
	FieldArea          = "geom:area"
)

// randomSeed produces the seed for score-randomized queries; swapped out in
// tests for determinism.
var randomSeed = func() int64 {
	return rand.Int63n(time.Now().Unix() + 1)
}

// Build translates a request into a query document. Placetype ids in the
// include/exclude filters must already be resolved against the placetypes
// index; Build is purely structural.
//
// Primary clause precedence: search text, then country, then geo-radius.
// Losers leave no trace in the document. Include/exclude filters are always
// additive. Random requests wrap the whole boolean query in a seeded
// function_score envelope and carry no sort order.
func Build(req *Request) *Document {
	var must, mustNot []M

	if field, value, ok := req.Search.FieldValue(); ok {
		must = append(must, Match(field, value))
	} else if req.ISO != "" {
		must = append(must, Match(FieldCountry, strings.ToUpper(req.ISO)))
	} else if req.Nearby != nil {
		must = append(must, GeoCircle(req.Nearby.Radius, req.Nearby.Coordinates))
	}

	must, mustNot = appendFilters(req, must, mustNot)

	doc := &Document{
		Size:           req.SizeOrDefault(),
		TrackTotalHits: true,
		Source:         sourceProjection(req.Source),
	}

	switch {
	case req.Random:
		doc.Query = RandomScore(Bool(must, mustNot), randomSeed())
	case len(must) > 0 || len(mustNot) > 0:
		doc.Query = Bool(must, mustNot)
	}

	doc.Sort = sortOrder(req)
	doc.Aggs = facetAggs(req.Facets)

	return doc
}

// appendFilters assembles the additive include/exclude clauses, in the same
// order the filters are declared so the emitted document is deterministic.
func appendFilters(req *Request, must, mustNot []M) ([]M, []M) {
	if req.Include.Centroid {
		must = append(must, Exists(FieldLatitude), Exists(FieldLongitude))
	}

	if req.Include.NullIsland {
		// The literal null-island records: (0,0) coordinates, minus the
		// canonical placeholder and superseded duplicates.
		must = append(must,
			Term(FieldGeomLatitude, 0.0),
			Term(FieldGeomLongitude, 0.0),
		)
		mustNot = append(mustNot,
			Term(FieldID, 1),
			Exists(FieldSupersededBy),
		)
	}

	if ids := req.Include.Placetypes; len(ids) > 0 {
		must = append(must, placetypeClause(ids))
	}
	if ids := req.Exclude.Placetypes; len(ids) > 0 {
		mustNot = append(mustNot, placetypeClause(ids))
	}

	if req.Exclude.NullIsland {
		// Deliberately narrower than the include side: only the coordinate
		// pair is negated.
		mustNot = append(mustNot,
			Term(FieldGeomLatitude, 0.0),
			Term(FieldGeomLongitude, 0.0),
		)
	}

	if req.Exclude.Deprecated {
		mustNot = append(mustNot, Exists(FieldSupersededBy))
	}

	return must, mustNot
}

func placetypeClause(ids []int64) M {
	if len(ids) == 1 {
		return TermShort(FieldPlacetype, ids[0])
	}
	return Terms(FieldPlacetype, ids)
}

// sortOrder picks the sort for non-random queries: nearby queries walk the
// place hierarchy broad-to-narrow, everything else returns the smallest,
// most specific places first with a deterministic id tie-break.
func sortOrder(req *Request) []M {
	if req.Random {
		return nil
	}
	if req.Nearby != nil {
		return []M{
			SortBy(FieldScale, "desc"),
			SortBy(FieldID, "asc"),
		}
	}
	return []M{
		SortBy(FieldScale, "asc"),
		SortBy(FieldArea, "asc"),
		SortBy(FieldID, "asc"),
	}
}

func facetAggs(f Facets) M {
	if !f.Placetypes && !f.Countries {
		return nil
	}
	aggs := M{}
	if f.Placetypes {
		aggs["placetypes"] = TermsAgg(FieldPlacetypeName)
	}
	if f.Countries {
		aggs["countries"] = TermsAgg(FieldCountry)
	}
	return aggs
}

func sourceProjection(includes []string) any {
	if len(includes) == 0 {
		return true
	}
	return Projection{Includes: includes}
}
