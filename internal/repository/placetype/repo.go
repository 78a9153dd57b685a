// Package placetype resolves placetype reference data from its own index
// partition. Same failure contract as the place repository: log and return
// nil, let the caller decide whether absence is fatal.
package placetype

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	domplace "github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
)

// engine is the consumer interface for placetype index queries.
type engine interface {
	Search(ctx context.Context, index string, body any) (*es.Response, error)
}

// Repo reads placetypes from the placetypes index.
type Repo struct {
	engine engine
	index  string
	logger *zap.Logger
}

// New creates a placetype repository bound to one placetypes index.
func New(e engine, index string, logger *zap.Logger) *Repo {
	return &Repo{engine: e, index: index, logger: logger}
}

// ByID resolves a placetype id. Nil when unknown.
func (r *Repo) ByID(ctx context.Context, id int64) *domplace.Placetype {
	body := query.Lookup{Query: query.IDs([]int64{id})}
	return r.lookup(ctx, body, zap.Int64("placetype_id", id))
}

// ByName resolves a placetype by its short name, case-insensitively.
// Nil when unknown.
func (r *Repo) ByName(ctx context.Context, name string) *domplace.Placetype {
	body := query.Lookup{
		Query: query.Bool([]query.M{
			query.Match("shortname", strings.ToLower(name)),
		}, nil),
	}
	return r.lookup(ctx, body, zap.String("placetype", name))
}

func (r *Repo) lookup(ctx context.Context, body query.Lookup, field zap.Field) *domplace.Placetype {
	rsp, err := r.engine.Search(ctx, r.index, body)
	if err != nil {
		r.logger.Error("placetype lookup failed", field, zap.Error(err))
		return nil
	}
	if !rsp.OK() {
		r.logger.Error("placetype lookup failed", field, zap.Int("status", rsp.Status))
		return nil
	}

	switch n := len(rsp.Hits.Hits); {
	case n == 0:
		return nil
	case n > 1:
		r.logger.Warn("unique placetype lookup returned multiple hits", field, zap.Int("hits", n))
		return nil
	}

	var pt domplace.Placetype
	if err := json.Unmarshal(rsp.Hits.Hits[0].Source, &pt); err != nil {
		r.logger.Error("placetype decode failed", field, zap.Error(err))
		return nil
	}
	return &pt
}
