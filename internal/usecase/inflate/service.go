// Package inflate enriches place documents with the resolved context a page
// renders around them: the qualified display name, hierarchy, adjacencies,
// per-language aliases and children. Every woe:* reference field holds bare
// ids; inflation is what turns them back into named places.
package inflate

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
)

// DefaultConcurrency bounds the reference-resolution fan-out per request.
const DefaultConcurrency = 8

// Options selects which enrichments to compute. Name implies hierarchy,
// since the qualified display name is assembled from hierarchy names.
type Options struct {
	Name        bool
	Hierarchy   bool
	Adjacencies bool
	Aliases     bool
	Children    bool
}

// AliasGroup is one language's worth of alias names.
type AliasGroup struct {
	Lang    string   `json:"lang"`
	Aliases []string `json:"aliases"`
}

// Inflated is the enrichment block attached to a document. Grouped maps are
// keyed by pluralized placetype name; group members are sorted by name.
type Inflated struct {
	Name        string                       `json:"name,omitempty"`
	Hierarchy   map[string]*place.Document   `json:"hierarchy,omitempty"`
	Adjacencies map[string][]*place.Document `json:"adjacencies,omitempty"`
	Aliases     []AliasGroup                 `json:"aliases,omitempty"`
	Children    map[string][]*place.Document `json:"children,omitempty"`
}

// Service resolves enrichment blocks.
type Service struct {
	places      Places
	placetypes  Placetypes
	logger      *zap.Logger
	concurrency int
}

// New creates an inflation service with the default fan-out bound.
func New(places Places, placetypes Placetypes, logger *zap.Logger) *Service {
	return &Service{
		places:      places,
		placetypes:  placetypes,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
}

// WithConcurrency overrides the fan-out bound.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Inflate computes the enrichment block for one document. Reference lookups
// that fail resolve to absent entries; inflation degrades, it never errors.
// The lookups run concurrently under the configured bound and the request
// deadline.
func (s *Service) Inflate(ctx context.Context, doc *place.Document, opts Options) *Inflated {
	if doc == nil {
		return nil
	}

	inf := &Inflated{}

	wantHierarchy := opts.Hierarchy
	if opts.Name && doc.Name != "" {
		wantHierarchy = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	if wantHierarchy {
		g.Go(func() error {
			inf.Hierarchy = s.hierarchy(gctx, doc)
			return nil
		})
	}
	if opts.Adjacencies {
		g.Go(func() error {
			inf.Adjacencies = s.adjacencies(gctx, doc)
			return nil
		})
	}
	var batches []*childBatch
	if opts.Children {
		batches = s.children(gctx, g, doc)
	}
	if opts.Aliases {
		inf.Aliases = aliases(doc)
	}

	g.Wait() //nolint:errcheck // resolvers degrade instead of erroring

	if len(batches) > 0 {
		inf.Children = make(map[string][]*place.Document, len(batches))
		for _, b := range batches {
			inf.Children[b.key] = b.docs
		}
	}

	if opts.Name && doc.Name != "" {
		inf.Name = qualifiedName(doc.Name, inf.Hierarchy)
	}
	return inf
}

// InflateAll enriches a page of documents, each with the same options.
func (s *Service) InflateAll(ctx context.Context, docs []*place.Document, opts Options) []*Inflated {
	out := make([]*Inflated, len(docs))
	for i, doc := range docs {
		out[i] = s.Inflate(ctx, doc, opts)
	}
	return out
}

// hierarchy resolves the ancestor chain in one batched lookup, keyed back
// to the placetype labels the document declares.
func (s *Service) hierarchy(ctx context.Context, doc *place.Document) map[string]*place.Document {
	if len(doc.Hierarchy) == 0 {
		return nil
	}

	byID := make(map[int64]string, len(doc.Hierarchy))
	ids := make([]int64, 0, len(doc.Hierarchy))
	for label, id := range doc.Hierarchy {
		if id == 0 {
			continue
		}
		byID[id] = label
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	proj := &query.Projection{Includes: []string{query.FieldID, "woe:name"}}
	resolved := s.places.GetByIDs(ctx, ids, proj)
	if len(resolved) == 0 {
		s.logger.Warn("hierarchy resolution came back empty", zap.Int64("woe_id", doc.WOEID))
		return nil
	}

	out := make(map[string]*place.Document, len(resolved))
	for _, h := range resolved {
		if label, ok := byID[h.WOEID]; ok {
			out[label] = h
		}
	}
	return out
}

// adjacencies resolves the neighbour set in one batched lookup and groups
// the results under pluralized placetype names, each group sorted by name.
func (s *Service) adjacencies(ctx context.Context, doc *place.Document) map[string][]*place.Document {
	if len(doc.Adjacent) == 0 {
		return nil
	}

	proj := &query.Projection{
		Includes: []string{query.FieldID, query.FieldPlacetypeName, "woe:name"},
	}
	resolved := s.places.GetByIDs(ctx, doc.Adjacent, proj)
	if len(resolved) == 0 {
		return nil
	}

	out := make(map[string][]*place.Document)
	for _, a := range resolved {
		key := Pluralize(a.PlacetypeName)
		out[key] = append(out[key], a)
	}
	for _, group := range out {
		sortByName(group)
	}
	return out
}

// childBatch is one placetype's worth of child ids, with a slot for the
// resolved documents. Each fan-out goroutine owns exactly one batch.
type childBatch struct {
	key  string
	ids  []int64
	docs []*place.Document
}

// children schedules one batched lookup per child placetype on the shared
// fan-out group. Batches are read only after the group waits.
func (s *Service) children(ctx context.Context, g *errgroup.Group, doc *place.Document) []*childBatch {
	if len(doc.Children) == 0 {
		return nil
	}

	proj := &query.Projection{Includes: []string{query.FieldID, "woe:name"}}
	batches := make([]*childBatch, 0, len(doc.Children))

	for shortname, ids := range doc.Children {
		if len(ids) == 0 {
			continue
		}
		display := shortname
		if pt := s.placetypes.ByName(ctx, shortname); pt != nil {
			display = pt.Name
		}
		batches = append(batches, &childBatch{key: Pluralize(display), ids: ids})
	}

	for _, b := range batches {
		b := b
		g.Go(func() error {
			b.docs = s.places.GetByIDs(ctx, b.ids, proj)
			sortByName(b.docs)
			return nil
		})
	}
	return batches
}

// aliases flattens the dynamic per-language alias properties into display
// groups sorted by language name. Pure reshaping, no lookups.
func aliases(doc *place.Document) []AliasGroup {
	if len(doc.Aliases) == 0 {
		return nil
	}

	groups := make([]AliasGroup, 0, len(doc.Aliases))
	for prop, values := range doc.Aliases {
		code, ok := place.AliasLanguage(prop)
		if !ok {
			continue
		}
		groups = append(groups, AliasGroup{
			Lang:    LanguageName(code),
			Aliases: values,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Lang < groups[j].Lang })
	return groups
}

// qualifiedName joins the place name with its county, state and country
// ancestors, in that order, skipping levels the hierarchy lacks.
func qualifiedName(name string, hierarchy map[string]*place.Document) string {
	out := name
	for _, label := range []string{"county", "state", "country"} {
		if h, ok := hierarchy[label]; ok && h.Name != "" {
			out += ", " + h.Name
		}
	}
	return out
}

func sortByName(docs []*place.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
}
