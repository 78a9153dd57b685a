package place

import (
	"context"

	domplace "github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
)

// Places resolves place documents by id, nil meaning unknown.
type Places interface {
	GetByID(ctx context.Context, id int64, proj *query.Projection) *domplace.Document
}

// Placetypes resolves placetype reference data, nil meaning unknown.
type Placetypes interface {
	ByID(ctx context.Context, id int64) *domplace.Placetype
	ByName(ctx context.Context, name string) *domplace.Placetype
}
