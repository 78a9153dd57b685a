// Package chi is the HTTP surface: thin handlers that parse parameters,
// call the use case services and shape JSON responses. No query or
// normalization logic lives here.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/page"
	domplace "github.com/woeplanet/woeplanet-www-spelunker/internal/domain/place"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/result"
	healthuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/health"
	inflateuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/inflate"
	placeuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/place"
	searchuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/search"
)

// countryPlacetype is the placetype id used to resolve a country's display
// name from its facet bucket key.
const countryPlacetype = 12

// decorateConcurrency bounds the parallel country-name lookups.
const decorateConcurrency = 8

// Placetypes resolves placetype reference data by short name.
type Placetypes interface {
	ByName(ctx context.Context, name string) *domplace.Placetype
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the handler dependencies.
type Server struct {
	search        *searchuc.Service
	places        *placeuc.Service
	inflate       *inflateuc.Service
	health        *healthuc.Service
	placetypes    Placetypes
	logger        *zap.Logger
	radius        string
	perPage       int
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(
	search *searchuc.Service,
	places *placeuc.Service,
	inflate *inflateuc.Service,
	health *healthuc.Service,
	placetypes Placetypes,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:     search,
		places:     places,
		inflate:    inflate,
		health:     health,
		placetypes: placetypes,
		logger:     logger,
		radius:     "1km",
		perPage:    page.DefaultPerPage,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrPlacetypeNotFound, http.StatusNotFound, "placetype_not_found"),
		sentinelHandler(domain.ErrEngineUnavailable, http.StatusServiceUnavailable, "engine_unavailable"),
		sentinelHandler(domain.ErrMalformedDocument, http.StatusInternalServerError, "malformed_document"),
	}
	return s
}

// WithDefaults overrides the nearby radius and page window.
func (s *Server) WithDefaults(radius string, perPage int) *Server {
	if radius != "" {
		s.radius = radius
	}
	if perPage > 0 {
		s.perPage = perPage
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.Home)
	r.Get("/random/", s.Random)
	r.Get("/search/", s.Search)
	r.Get("/id/{id}/", s.Place)
	r.Get("/id/{id}/nearby/", s.NearbyPlace)
	r.Get("/nearby/", s.Nearby)
	r.Get("/nullisland/", s.NullIsland)
	r.Get("/placetypes/", s.Placetypes)
	r.Get("/placetype/{name}/", s.Placetype)
	r.Get("/countries/", s.Countries)
	r.Get("/country/{iso}/", s.Country)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// placeRow pairs a result document with its enrichment block.
type placeRow struct {
	Doc      *domplace.Document  `json:"doc"`
	Inflated *inflateuc.Inflated `json:"inflated,omitempty"`
}

// landingResponse is the random-place payload behind the site's landing
// style pages.
type landingResponse struct {
	OK       bool                `json:"ok"`
	Title    string              `json:"title"`
	WOEID    int64               `json:"woeid"`
	Name     string              `json:"name"`
	Doc      *domplace.Document  `json:"doc"`
	Inflated *inflateuc.Inflated `json:"inflated,omitempty"`
	TookSec  float64             `json:"took_sec"`
}

// resultsResponse is the paged multi-row payload.
type resultsResponse struct {
	OK         bool                    `json:"ok"`
	Title      string                  `json:"title"`
	Results    []placeRow              `json:"results"`
	Facets     map[string]result.Facet `json:"facets,omitempty"`
	Pagination page.State              `json:"pagination"`
	Placetype  *domplace.Placetype     `json:"placetype,omitempty"`
	Includes   []string                `json:"includes,omitempty"`
	ESQuery    query.M                 `json:"es_query"`
	TookSec    float64                 `json:"took_sec"`
	Error      *result.Error           `json:"error,omitempty"`
}

// placeResponse is the single-place payload.
type placeResponse struct {
	OK        bool                 `json:"ok"`
	Title     string               `json:"title"`
	WOEID     int64                `json:"woeid"`
	Name      string               `json:"name"`
	Lang      string               `json:"lang"`
	Placetype *domplace.Placetype  `json:"placetype,omitempty"`
	Doc       *domplace.Document   `json:"doc"`
	Inflated  *inflateuc.Inflated  `json:"inflated,omitempty"`
	URLs      *domplace.SourceURLs `json:"urls,omitempty"`
}

// bucketsResponse is the facet-only payload for the placetypes and
// countries listings.
type bucketsResponse struct {
	OK       bool             `json:"ok"`
	Title    string           `json:"title"`
	Total    map[string]int64 `json:"total"`
	Buckets  []result.Bucket  `json:"buckets"`
	Includes []string         `json:"includes,omitempty"`
	ESQuery  query.M          `json:"es_query"`
	TookSec  float64          `json:"took_sec"`
}

// Home handles GET /: a random place to land on.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	s.writeLanding(w, r, "Home")
}

// Random handles GET /random/: pick a random place and redirect to it.
func (s *Server) Random(w http.ResponseWriter, r *http.Request) {
	req := &query.Request{
		Size:    query.SizeOf(1),
		Random:  true,
		Exclude: randomExclude(),
	}

	_, _, env, err := s.search.Search(r.Context(), req, page.Params{PerPage: 1})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !env.OK || len(env.Rows) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "no places to pick from")
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/id/%d/", env.Rows[0].WOEID), http.StatusSeeOther)
}

// Search handles GET /search/. An all-digits query that resolves to a WOE
// ID short-circuits into a redirect to that place.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	p := parseParams(r)
	if p.Q == "" {
		s.writeLanding(w, r, "Search")
		return
	}

	if id, ok := numericQuery(p.Q); ok && s.places.Exists(r.Context(), id) {
		http.Redirect(w, r, fmt.Sprintf("/id/%d/", id), http.StatusSeeOther)
		return
	}

	req := &query.Request{
		Search: query.Search{NamesAll: p.Q},
		Exclude: query.Exclude{
			Placetypes: []int64{0},
			NullIsland: true,
			Deprecated: true,
		},
		Facets: query.Facets{Placetypes: true},
	}
	s.applyPlacetypeFilter(r.Context(), req, p.Placetype)

	s.writeResults(w, r, req, p, fmt.Sprintf("Search results for %q", p.Q), nil)
}

// Place handles GET /id/{id}/: the fully inflated single place view.
func (s *Server) Place(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "id must be an integer")
		return
	}

	view, err := s.places.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	inf := s.inflate.Inflate(r.Context(), view.Doc, inflateuc.Options{
		Name:        true,
		Hierarchy:   true,
		Adjacencies: true,
		Aliases:     true,
		Children:    true,
	})

	name := view.Doc.Name
	if name == "" {
		name = "Unknown"
	}
	lang := "Unknown"
	if view.Doc.Lang != "" {
		lang = inflateuc.LanguageName(view.Doc.Lang)
	}

	writeJSON(w, http.StatusOK, placeResponse{
		OK:        true,
		Title:     fmt.Sprintf("WOEID %d (%s)", view.Doc.WOEID, name),
		WOEID:     view.Doc.WOEID,
		Name:      name,
		Lang:      lang,
		Placetype: view.Placetype,
		Doc:       view.Doc,
		Inflated:  inf,
		URLs:      view.Sources,
	})
}

// NearbyPlace handles GET /id/{id}/nearby/: places around a known place's
// centroid.
func (s *Server) NearbyPlace(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "id must be an integer")
		return
	}

	view, err := s.places.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	inf := s.inflate.Inflate(r.Context(), view.Doc, inflateuc.Options{Name: true})
	lon, lat, _ := view.Doc.CentroidLonLat()

	p := parseParams(r)
	req := s.nearbyRequest(r.Context(), p, []float64{lon, lat})

	title := fmt.Sprintf("Places near %s", inf.Name)
	s.writeResults(w, r, req, p, title, nil)
}

// Nearby handles GET /nearby/: places around an arbitrary coordinate.
func (s *Server) Nearby(w http.ResponseWriter, r *http.Request) {
	p := parseParams(r)
	if p.Lat == nil || p.Lng == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "lat and lng are required")
		return
	}

	req := s.nearbyRequest(r.Context(), p, []float64{*p.Lng, *p.Lat})
	s.writeResults(w, r, req, p, "Places near me", nil)
}

// NullIsland handles GET /nullisland/: the records sitting at (0,0).
func (s *Server) NullIsland(w http.ResponseWriter, r *http.Request) {
	p := parseParams(r)

	req := &query.Request{
		Include: query.Include{NullIsland: true},
		Facets:  query.Facets{Placetypes: true},
	}
	s.applyPlacetypeFilter(r.Context(), req, p.Placetype)

	s.writeResults(w, r, req, p, "Places visiting Null Island", nil)
}

// Placetypes handles GET /placetypes/: the placetype facet over the whole
// corpus.
func (s *Server) Placetypes(w http.ResponseWriter, r *http.Request) {
	p := parseParams(r)

	req := &query.Request{
		Size:    query.SizeOf(0),
		Exclude: p.excludify(),
		Facets:  query.Facets{Placetypes: true},
	}

	doc, _, env, err := s.search.Search(r.Context(), req, page.Params{PerPage: s.perPage})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !env.OK {
		s.writeFailure(w, env.TookSec, env.Error)
		return
	}

	buckets := env.Facets["placetypes"].Buckets
	writeJSON(w, http.StatusOK, bucketsResponse{
		OK:    true,
		Title: "Placetypes",
		Total: map[string]int64{
			"docs":       env.Pagination.Total,
			"placetypes": int64(len(buckets)),
		},
		Buckets:  buckets,
		Includes: p.Include,
		ESQuery:  doc.Trimmed(),
		TookSec:  env.TookSec,
	})
}

// Placetype handles GET /placetype/{name}/: every place of one placetype.
func (s *Server) Placetype(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	pt := s.placetypes.ByName(r.Context(), name)
	if pt == nil {
		s.handleDomainError(w, fmt.Errorf("placetype %q: %w", name, domain.ErrPlacetypeNotFound))
		return
	}

	p := parseParams(r)
	req := &query.Request{
		Include: query.Include{Placetypes: []int64{pt.ID}},
		Exclude: p.excludify(),
		Facets:  query.Facets{Placetypes: true, Countries: true},
	}

	title := fmt.Sprintf("Search results for placetype %q", name)
	s.writeResults(w, r, req, p, title, pt)
}

// Countries handles GET /countries/: the country facet, with bucket keys
// decorated into display names.
func (s *Server) Countries(w http.ResponseWriter, r *http.Request) {
	p := parseParams(r)
	ex := p.excludify()

	req := &query.Request{
		Size:    query.SizeOf(0),
		Exclude: ex,
		Facets:  query.Facets{Countries: true},
	}

	doc, _, env, err := s.search.Search(r.Context(), req, page.Params{PerPage: s.perPage})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !env.OK {
		s.writeFailure(w, env.TookSec, env.Error)
		return
	}

	buckets := env.Facets["countries"].Buckets
	s.decorateCountries(r.Context(), buckets, ex)

	writeJSON(w, http.StatusOK, bucketsResponse{
		OK:    true,
		Title: "Countries",
		Total: map[string]int64{
			"docs":      env.Pagination.Total,
			"countries": int64(len(buckets)),
		},
		Buckets:  buckets,
		Includes: p.Include,
		ESQuery:  doc.Trimmed(),
		TookSec:  env.TookSec,
	})
}

// Country handles GET /country/{iso}/: every place within one country.
func (s *Server) Country(w http.ResponseWriter, r *http.Request) {
	iso := chi.URLParam(r, "iso")

	p := parseParams(r)
	req := &query.Request{
		ISO: iso,
		Exclude: query.Exclude{
			// Countries themselves are excluded alongside the unknowns;
			// listing a country inside itself helps nobody.
			Placetypes: []int64{0, countryPlacetype},
			NullIsland: true,
			Deprecated: true,
		},
		Facets: query.Facets{Placetypes: true},
	}
	s.applyPlacetypeFilter(r.Context(), req, p.Placetype)

	title := fmt.Sprintf("Child places for %s", iso)
	s.writeResults(w, r, req, p, title, nil)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// nearbyRequest assembles the geo-radius request shared by the two nearby
// routes.
func (s *Server) nearbyRequest(ctx context.Context, p params, coords []float64) *query.Request {
	radius := p.Radius
	if radius == "" {
		radius = s.radius
	}

	req := &query.Request{
		Nearby:  &query.Nearby{Radius: radius, Coordinates: coords},
		Exclude: randomExclude(),
		Facets:  query.Facets{Placetypes: true},
	}
	s.applyPlacetypeFilter(ctx, req, p.Placetype)
	return req
}

// applyPlacetypeFilter resolves a placetype name parameter and, when it
// resolves, narrows the request to it. An unknown name is ignored: the
// filter parameter is advisory, unlike placetype route segments.
func (s *Server) applyPlacetypeFilter(ctx context.Context, req *query.Request, name string) {
	if name == "" {
		return
	}
	pt := s.placetypes.ByName(ctx, name)
	if pt == nil {
		s.logger.Warn("ignoring unknown placetype filter", zap.String("placetype", name))
		return
	}
	req.Include.Placetypes = append(req.Include.Placetypes, pt.ID)
}

// writeResults executes a multi-row request and writes the paged payload,
// with per-row name inflation and prev/next pagination URLs.
func (s *Server) writeResults(
	w http.ResponseWriter, r *http.Request,
	req *query.Request, p params, title string, pt *domplace.Placetype,
) {
	doc, _, env, err := s.search.Search(r.Context(), req, p.pageParams(s.perPage))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !env.OK {
		s.writeFailure(w, env.TookSec, env.Error)
		return
	}

	infs := s.inflate.InflateAll(r.Context(), env.Rows, inflateuc.Options{Name: true})
	rows := make([]placeRow, len(env.Rows))
	for i, d := range env.Rows {
		rows[i] = placeRow{Doc: d, Inflated: infs[i]}
	}

	writeJSON(w, http.StatusOK, resultsResponse{
		OK:         true,
		Title:      title,
		Results:    rows,
		Facets:     env.Facets,
		Pagination: page.Navigate(env.Pagination, r.URL.Path, r.URL.Query()),
		Placetype:  pt,
		Includes:   p.Include,
		ESQuery:    doc.Trimmed(),
		TookSec:    env.TookSec,
	})
}

// writeLanding executes the random-place pick and writes the landing
// payload.
func (s *Server) writeLanding(w http.ResponseWriter, r *http.Request, title string) {
	req := &query.Request{
		Size:    query.SizeOf(1),
		Random:  true,
		Include: query.Include{Centroid: true},
		Exclude: randomExclude(),
	}

	_, _, env, err := s.search.Search(r.Context(), req, page.Params{PerPage: 1})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !env.OK || len(env.Rows) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "no places to pick from")
		return
	}

	doc := env.Rows[0]
	inf := s.inflate.Inflate(r.Context(), doc, inflateuc.Options{Name: true})

	writeJSON(w, http.StatusOK, landingResponse{
		OK:       true,
		Title:    title,
		WOEID:    doc.WOEID,
		Name:     inf.Name,
		Doc:      doc,
		Inflated: inf,
		TookSec:  env.TookSec,
	})
}

// writeFailure maps a not-ok envelope onto the response: the engine's
// status carries through, with the structured cause when one exists.
func (s *Server) writeFailure(w http.ResponseWriter, tookSec float64, e *result.Error) {
	status := http.StatusInternalServerError
	if e != nil && e.Status > 0 {
		status = e.Status
	}
	writeJSON(w, status, resultsResponse{
		OK:      false,
		Results: []placeRow{},
		TookSec: tookSec,
		Error:   e,
	})
}

// decorateCountries fills each country bucket's display name by resolving
// the country record behind the ISO code, a bounded fan-out. Codes with no
// clean record keep the original's overrides.
func (s *Server) decorateCountries(ctx context.Context, buckets []result.Bucket, ex query.Exclude) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decorateConcurrency)

	for i := range buckets {
		i := i
		g.Go(func() error {
			b := &buckets[i]
			switch b.Key {
			case "ZZ":
				b.Name = "Sorry, the world is a complicated place"
			case "XS":
				b.Name = "Serbia"
			default:
				req := &query.Request{
					ISO:     b.Key,
					Include: query.Include{Placetypes: []int64{countryPlacetype}},
					Exclude: ex,
					Source:  []string{"woe:name", query.FieldCountry},
				}
				_, _, env, err := s.search.Search(gctx, req, page.Params{PerPage: 1})
				if err == nil && env.OK && len(env.Rows) > 0 {
					b.Name = env.Rows[0].Name
				}
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // decoration is best-effort
}

func numericQuery(q string) (int64, bool) {
	id, err := strconv.ParseInt(q, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{OK: false, Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrPlacetypeNotFound,
		domain.ErrEngineUnavailable,
		domain.ErrMalformedDocument,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
