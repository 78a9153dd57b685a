// Package search turns request parameter sets into executed, normalized
// gazetteer queries: build, execute, normalize, paginate.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/page"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/result"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
)

// Service is the query-building and result-normalization core.
type Service struct {
	docs       Documents
	placetypes Placetypes
	logger     *zap.Logger
	maxPerPage int
}

// New creates a search service with the default page-size ceiling.
func New(docs Documents, placetypes Placetypes, logger *zap.Logger) *Service {
	return &Service{
		docs:       docs,
		placetypes: placetypes,
		logger:     logger,
		maxPerPage: page.DefaultMaxPerPage,
	}
}

// WithPagination overrides the page-size ceiling.
func (s *Service) WithPagination(maxPerPage int) *Service {
	if maxPerPage > 0 {
		s.maxPerPage = maxPerPage
	}
	return s
}

// BuildQuery resolves the request's placetype filters against the placetypes
// index and builds the query document. Resolution is fail-fast: one unknown
// placetype id invalidates the whole request, with no partial filter state
// emitted, because filtering on an unknown type would silently return wrong
// results.
func (s *Service) BuildQuery(ctx context.Context, req *query.Request) (*query.Document, error) {
	for _, id := range req.Placetypes() {
		if s.placetypes.ByID(ctx, id) == nil {
			s.logger.Warn("invalid placetype filter", zap.Int64("placetype_id", id))
			return nil, fmt.Errorf("placetype %d: %w", id, domain.ErrPlacetypeNotFound)
		}
	}
	return query.Build(req), nil
}

// Search builds and executes a multi-row query. The returned query document
// lets callers render the executed query for diagnostics; the page params
// come back clamped so navigation math matches what actually ran.
func (s *Service) Search(
	ctx context.Context, req *query.Request, p page.Params,
) (*query.Document, page.Params, result.Envelope, error) {
	doc, p, rsp, err := s.execute(ctx, req, p)
	if err != nil {
		return nil, p, result.Envelope{}, err
	}

	env := result.Standard(rsp, p)
	if !env.OK {
		s.logFailure(env.Error)
	}
	return doc, p, env, nil
}

// Single builds and executes a query expected to match at most one document.
func (s *Service) Single(
	ctx context.Context, req *query.Request, p page.Params,
) (*query.Document, page.Params, result.Single, error) {
	doc, p, rsp, err := s.execute(ctx, req, p)
	if err != nil {
		return nil, p, result.Single{}, err
	}

	env, multiple := result.SingleDoc(rsp, p)
	if multiple {
		s.logger.Warn("single-document query matched multiple hits",
			zap.Int("hits", len(rsp.Hits.Hits)))
	}
	if !env.OK {
		s.logFailure(env.Error)
	}
	return doc, p, env, nil
}

func (s *Service) execute(
	ctx context.Context, req *query.Request, p page.Params,
) (*query.Document, page.Params, *es.Response, error) {
	doc, err := s.BuildQuery(ctx, req)
	if err != nil {
		return nil, p, nil, err
	}

	p = p.Clamp(s.maxPerPage)
	if p.After {
		from := p.From()
		doc.From = &from
		// The window must match the pagination math or rows fall between
		// pages; an explicit request size still wins.
		if req.Size == nil {
			doc.Size = p.PerPage
		}
	}

	rsp, err := s.docs.Query(ctx, doc)
	if err != nil {
		return nil, p, nil, fmt.Errorf("execute query: %w", err)
	}
	return doc, p, rsp, nil
}

func (s *Service) logFailure(e *result.Error) {
	if e == nil {
		return
	}
	fields := []zap.Field{zap.Int("status", e.Status)}
	if e.Cause != nil {
		fields = append(fields, zap.String("cause", e.Cause.Reason))
	} else if e.Status == 404 {
		fields = append(fields, zap.String("cause", "unknown"))
	}
	s.logger.Warn("query failed", fields...)
}
