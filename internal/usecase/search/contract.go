package search

import (
	"context"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
)

// Documents executes query documents against the documents index.
type Documents interface {
	Query(ctx context.Context, body any) (*es.Response, error)
}

// Placetypes resolves placetype reference data, nil meaning unknown.
type Placetypes interface {
	ByID(ctx context.Context, id int64) *place.Placetype
	ByName(ctx context.Context, name string) *place.Placetype
}
