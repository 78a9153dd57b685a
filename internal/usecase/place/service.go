// Package place serves single-place views: document lookup plus the
// reference data a place page needs around it.
package place

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain"
	domplace "github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
)

// View is one place document hydrated with its placetype record and the
// derived upstream source URLs. Placetype may be nil when the reference
// index cannot resolve it; the page degrades rather than failing.
type View struct {
	Doc       *domplace.Document   `json:"doc"`
	Placetype *domplace.Placetype  `json:"placetype,omitempty"`
	Sources   *domplace.SourceURLs `json:"sources,omitempty"`
}

// Service resolves place views.
type Service struct {
	places     Places
	placetypes Placetypes
	logger     *zap.Logger
}

// New creates a place view service.
func New(places Places, placetypes Placetypes, logger *zap.Logger) *Service {
	return &Service{places: places, placetypes: placetypes, logger: logger}
}

// Get resolves a place view by WOE ID. An unresolvable id is ErrNotFound;
// a resolvable document with an unresolvable placetype is still a view.
func (s *Service) Get(ctx context.Context, id int64) (*View, error) {
	doc := s.places.GetByID(ctx, id, nil)
	if doc == nil {
		return nil, fmt.Errorf("place %d: %w", id, domain.ErrNotFound)
	}

	v := &View{Doc: doc}

	if pt := s.placetypes.ByID(ctx, int64(doc.Placetype)); pt != nil {
		v.Placetype = pt
	} else {
		s.logger.Warn("unresolved placetype on place view",
			zap.Int64("woe_id", id), zap.Int("placetype_id", doc.Placetype))
	}

	urls, err := domplace.MakeSourceURLs(doc)
	if err != nil {
		return nil, fmt.Errorf("place %d: %w", id, err)
	}
	v.Sources = &urls

	return v, nil
}

// Exists reports whether an id resolves to a document at all; the search
// route uses this to turn an all-digits query into a redirect.
func (s *Service) Exists(ctx context.Context, id int64) bool {
	proj := &query.Projection{Includes: []string{query.FieldID}}
	return s.places.GetByID(ctx, id, proj) != nil
}
