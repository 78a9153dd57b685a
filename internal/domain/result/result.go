// Package result normalizes raw engine responses into the canonical
// application envelopes. The three outcomes — success, not-found, failure —
// are explicit here; nothing downstream probes raw response shapes.
package result

import (
	"encoding/json"
	"net/http"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/page"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
)

// Error is the typed failure attached to a not-ok envelope: the engine's
// first structured root cause when one exists, else just the bare status.
type Error struct {
	Status int           `json:"status"`
	Cause  *es.RootCause `json:"cause,omitempty"`
}

// Bucket is one facet bucket. Name is presentation decoration (country
// buckets get their display name filled in later); empty otherwise.
type Bucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
	Name     string `json:"name,omitempty"`
}

// Facet holds the buckets of one requested aggregation.
type Facet struct {
	Buckets []Bucket `json:"buckets"`
}

// Envelope is the canonical multi-row response.
type Envelope struct {
	OK         bool              `json:"ok"`
	Rows       []*place.Document `json:"rows"`
	Facets     map[string]Facet  `json:"facets,omitempty"`
	Pagination page.State        `json:"pagination"`
	TookMS     int64             `json:"took_ms"`
	TookSec    float64           `json:"took_sec"`
	Error      *Error            `json:"error,omitempty"`
}

// Single is the canonical single-document response.
type Single struct {
	OK         bool            `json:"ok"`
	Row        *place.Document `json:"row"`
	Pagination page.State      `json:"pagination"`
	TookMS     int64           `json:"took_ms"`
	TookSec    float64         `json:"took_sec"`
	Error      *Error          `json:"error,omitempty"`
}

// Standard converts a raw engine response into a multi-row envelope,
// computing the pagination block from the engine-reported totals.
func Standard(rsp *es.Response, p page.Params) Envelope {
	if !rsp.OK() {
		return Envelope{
			OK:         false,
			Rows:       []*place.Document{},
			Pagination: page.Zero(),
			TookMS:     rsp.Took,
			TookSec:    float64(rsp.Took) / 1000,
			Error:      failure(rsp),
		}
	}

	return Envelope{
		OK:         true,
		Rows:       Rows(rsp),
		Facets:     facets(rsp),
		Pagination: page.Paginate(rsp.Hits.Total.Value, len(rsp.Hits.Hits), p),
		TookMS:     rsp.Took,
		TookSec:    float64(rsp.Took) / 1000,
	}
}

// SingleDoc converts a raw engine response into a single-document envelope.
// Zero hits yield a nil row; more than one hit for what should be a unique
// lookup is a data modelling smell, reported via multiple=true and treated
// as no result rather than an error.
func SingleDoc(rsp *es.Response, p page.Params) (env Single, multiple bool) {
	if !rsp.OK() {
		return Single{
			OK:         false,
			Pagination: page.Zero(),
			TookMS:     rsp.Took,
			TookSec:    float64(rsp.Took) / 1000,
			Error:      failure(rsp),
		}, false
	}

	env = Single{
		OK:         true,
		Pagination: page.Paginate(rsp.Hits.Total.Value, len(rsp.Hits.Hits), p),
		TookMS:     rsp.Took,
		TookSec:    float64(rsp.Took) / 1000,
	}

	switch len(rsp.Hits.Hits) {
	case 0:
	case 1:
		env.Row = decodeHit(rsp.Hits.Hits[0])
	default:
		multiple = true
	}
	return env, multiple
}

// Rows extracts the projected sources of every hit. Hits with a missing or
// undecodable source are dropped silently; a corrupt page degrades to fewer
// rows, never to a failure.
func Rows(rsp *es.Response) []*place.Document {
	docs := make([]*place.Document, 0, len(rsp.Hits.Hits))
	for _, hit := range rsp.Hits.Hits {
		if doc := decodeHit(hit); doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

// First returns the first hit's source, or nil for an empty result set.
func First(rsp *es.Response) *place.Document {
	if len(rsp.Hits.Hits) == 0 {
		return nil
	}
	return decodeHit(rsp.Hits.Hits[0])
}

func decodeHit(hit es.Hit) *place.Document {
	if len(hit.Source) == 0 {
		return nil
	}
	var doc place.Document
	if err := json.Unmarshal(hit.Source, &doc); err != nil {
		return nil
	}
	return &doc
}

func facets(rsp *es.Response) map[string]Facet {
	if len(rsp.Aggregations) == 0 {
		return nil
	}
	out := make(map[string]Facet, len(rsp.Aggregations))
	for name, agg := range rsp.Aggregations {
		buckets := make([]Bucket, len(agg.Buckets))
		for i, b := range agg.Buckets {
			buckets[i] = Bucket{Key: b.Key, DocCount: b.DocCount}
		}
		out[name] = Facet{Buckets: buckets}
	}
	return out
}

// failure builds the typed error for a non-ok response. A 404 carries the
// engine's first root cause when one is present; everything else is a bare
// status.
func failure(rsp *es.Response) *Error {
	e := &Error{Status: rsp.Status}
	if rsp.Status == http.StatusNotFound {
		e.Cause = rsp.Error.FirstRootCause()
	}
	return e
}
