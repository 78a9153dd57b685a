package chi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/page"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain/query"
)

// params is the recognized query-string surface. Anything else on the URL
// is ignored here and preserved verbatim by pagination URL rebuilding.
type params struct {
	Q         string
	Page      int
	Token     string
	Lat       *float64
	Lng       *float64
	Radius    string
	Placetype string
	Include   []string
}

// parseParams reads the recognized parameters. Repeatable parameters keep
// every value; single-valued ones keep the first. Malformed numerics are
// dropped rather than rejected, matching the forgiving read-only surface.
func parseParams(r *http.Request) params {
	q := r.URL.Query()

	p := params{
		Q:         strings.TrimSpace(q.Get("q")),
		Token:     q.Get("token"),
		Placetype: strings.TrimSpace(q.Get("placetype")),
	}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.ParseFloat(q.Get("lat"), 64); err == nil {
		p.Lat = &v
	}
	if v, err := strconv.ParseFloat(q.Get("lng"), 64); err == nil {
		p.Lng = &v
	}
	p.Radius = parseRadius(q.Get("radius"))

	for _, inc := range q["include"] {
		for _, v := range strings.Split(inc, ",") {
			if v = strings.TrimSpace(v); v != "" {
				p.Include = append(p.Include, v)
			}
		}
	}

	return p
}

// parseRadius normalizes the radius parameter into an engine distance
// string. Bare numbers are taken as metres; anything unparseable is
// discarded so the configured default applies.
func parseRadius(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		if v <= 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64) + "m"
	}
	return raw
}

// pageParams converts the parsed page/token values into pagination params.
// Both addressing modes collapse to offset math downstream.
func (p params) pageParams(perPage int) page.Params {
	return page.Params{
		Page:    p.Page,
		PerPage: perPage,
		After:   true,
		Token:   p.Token,
	}
}

// included reports whether an include value was passed, lifting one entry
// out of the default exclusion set.
func (p params) included(name string) bool {
	for _, v := range p.Include {
		if v == name {
			return true
		}
	}
	return false
}

// excludify computes the route's effective exclusion set: unknown
// placetypes, null island and deprecated records are dropped by default,
// and each include value lifts its entry out of the set.
func (p params) excludify() query.Exclude {
	ex := query.Exclude{
		Placetypes: []int64{0},
		NullIsland: true,
		Deprecated: true,
	}
	if p.included("unknown") {
		ex.Placetypes = nil
	}
	if p.included("nullisland") {
		ex.NullIsland = false
	}
	if p.included("deprecated") {
		ex.Deprecated = false
	}
	return ex
}

// randomExclude is the exclusion set for random-place picks; a couple of
// extra placetypes on top of the defaults that make for poor landing pages.
func randomExclude() query.Exclude {
	return query.Exclude{
		Placetypes: []int64{0, 11, 25},
		NullIsland: true,
		Deprecated: true,
	}
}
