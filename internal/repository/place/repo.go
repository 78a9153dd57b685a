// Package place resolves opaque WOE identifiers into documents. Lookup
// failures are logged and surfaced as nil/empty, never as errors: absence is
// for the caller to judge.
package place

import (
	"context"

	"go.uber.org/zap"

	domplace "github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/result"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
)

// engine is the consumer interface for document index queries.
type engine interface {
	Search(ctx context.Context, index string, body any) (*es.Response, error)
}

// Repo reads place documents from the documents index.
type Repo struct {
	engine engine
	index  string
	logger *zap.Logger
}

// New creates a place repository bound to one documents index.
func New(e engine, index string, logger *zap.Logger) *Repo {
	return &Repo{engine: e, index: index, logger: logger}
}

// GetByID fetches one document by WOE ID with an optional field projection.
// Returns nil when the id does not resolve, when the lookup errors, or when
// the index holds more than one document for the id (a modelling fault that
// must not crash a read path).
func (r *Repo) GetByID(ctx context.Context, id int64, proj *query.Projection) *domplace.Document {
	body := query.Lookup{Query: query.IDs([]int64{id}), Source: proj}

	rsp, err := r.engine.Search(ctx, r.index, body)
	if err != nil {
		r.logger.Error("place lookup failed", zap.Int64("woe_id", id), zap.Error(err))
		return nil
	}
	if !rsp.OK() {
		r.logError("place lookup", rsp, zap.Int64("woe_id", id))
		return nil
	}
	return r.single(rsp, zap.Int64("woe_id", id))
}

// GetByIDs fetches a batch of documents by WOE ID. The window is sized to
// the batch so a multi-get never truncates. Failures yield an empty slice.
func (r *Repo) GetByIDs(ctx context.Context, ids []int64, proj *query.Projection) []*domplace.Document {
	if len(ids) == 0 {
		return nil
	}

	body := query.Document{
		Size:           len(ids),
		TrackTotalHits: true,
		Source:         anyProjection(proj),
		Query:          query.IDs(ids),
	}

	rsp, err := r.engine.Search(ctx, r.index, body)
	if err != nil {
		r.logger.Error("place multi-lookup failed", zap.Int("ids", len(ids)), zap.Error(err))
		return []*domplace.Document{}
	}
	if !rsp.OK() {
		r.logError("place multi-lookup", rsp, zap.Int("ids", len(ids)))
		return []*domplace.Document{}
	}
	return result.Rows(rsp)
}

// Query executes an arbitrary query document against the documents index.
// The response is raw; normalization is the caller's concern.
func (r *Repo) Query(ctx context.Context, body any) (*es.Response, error) {
	return r.engine.Search(ctx, r.index, body)
}

// single applies the unique-lookup multiplicity rule: exactly one hit is a
// document, zero is absence, more than one is logged and treated as absence.
func (r *Repo) single(rsp *es.Response, fields ...zap.Field) *domplace.Document {
	switch n := len(rsp.Hits.Hits); {
	case n == 0:
		return nil
	case n > 1:
		r.logger.Warn("unique lookup returned multiple hits",
			append(fields, zap.Int("hits", n))...)
		return nil
	}
	return result.First(rsp)
}

func (r *Repo) logError(op string, rsp *es.Response, fields ...zap.Field) {
	fields = append(fields, zap.Int("status", rsp.Status))
	if rc := rsp.Error.FirstRootCause(); rc != nil {
		fields = append(fields, zap.String("cause", rc.Reason))
	}
	r.logger.Error(op+" failed", fields...)
}

func anyProjection(proj *query.Projection) any {
	if proj == nil {
		return true
	}
	return proj
}
