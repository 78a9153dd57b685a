package inflate

import (
	"context"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
)

// Places resolves batches of place documents; failures come back as empty
// slices, never as errors.
type Places interface {
	GetByIDs(ctx context.Context, ids []int64, proj *query.Projection) []*place.Document
}

// Placetypes resolves placetype reference data by short name, nil meaning
// unknown.
type Placetypes interface {
	ByName(ctx context.Context, name string) *place.Placetype
}
