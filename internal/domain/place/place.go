// Package place holds the gazetteer document model. Documents are owned by
// the external index; this package only reads and reshapes them.
package place

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/domain"
)

// NullIslandID is the WOE ID of the canonical (0,0) placeholder record.
const NullIslandID = 1

// aliasKey matches the per-language alias properties, e.g. woe:alias_ENG_P.
var aliasKey = regexp.MustCompile(`^woe:alias_([A-Z]{3})_[A-Z]$`)

// Document is a single gazetteer record as stored in the documents index.
// Field projection means any field may be absent; pointer and slice fields
// distinguish "absent" from zero values where it matters.
type Document struct {
	WOEID         int64  `json:"woe:id"`
	Name          string `json:"woe:name,omitempty"`
	Placetype     int    `json:"woe:placetype,omitempty"`
	PlacetypeName string `json:"woe:placetype_name,omitempty"`
	Scale         int    `json:"woe:scale,omitempty"`
	Lang          string `json:"woe:lang,omitempty"`
	Country       string `json:"iso:country,omitempty"`
	Repo          string `json:"woe:repo,omitempty"`
	SupersededBy  int64  `json:"woe:superseded_by,omitempty"`

	Latitude      *float64 `json:"woe:latitude,omitempty"`
	Longitude     *float64 `json:"woe:longitude,omitempty"`
	GeomLatitude  *float64 `json:"geom:latitude,omitempty"`
	GeomLongitude *float64 `json:"geom:longitude,omitempty"`

	// Centroids are [lon, lat]; bounding boxes are
	// [min lon, min lat, max lon, max lat].
	Centroid     []float64 `json:"woe:centroid,omitempty"`
	GeomCentroid []float64 `json:"geom:centroid,omitempty"`
	BBox         []float64 `json:"woe:bbox,omitempty"`
	GeomBBox     []float64 `json:"geom:bbox,omitempty"`
	Area         float64   `json:"geom:area,omitempty"`

	Hierarchy map[string]int64   `json:"woe:hierarchy,omitempty"`
	Adjacent  []int64            `json:"woe:adjacent,omitempty"`
	Children  map[string][]int64 `json:"woe:children,omitempty"`

	Geometry json.RawMessage `json:"geometry,omitempty"`

	// Aliases maps the raw alias property name (woe:alias_ENG_P) to its
	// values. Populated from the dynamic keys during unmarshalling.
	Aliases map[string][]string `json:"-"`
}

// document avoids UnmarshalJSON recursion.
type document Document

// UnmarshalJSON decodes the fixed fields and then sweeps the raw property
// set for per-language alias keys, which are dynamic and cannot be tagged.
func (d *Document) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*document)(d)); err != nil {
		return fmt.Errorf("decode place document: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode place properties: %w", err)
	}
	for k, v := range raw {
		if !aliasKey.MatchString(k) {
			continue
		}
		var values []string
		if err := json.Unmarshal(v, &values); err != nil {
			continue
		}
		if d.Aliases == nil {
			d.Aliases = make(map[string][]string)
		}
		d.Aliases[k] = values
	}
	return nil
}

// AliasLanguage extracts the three-letter language code from an alias
// property name. Returns false if the name is not an alias property.
func AliasLanguage(property string) (string, bool) {
	m := aliasKey.FindStringSubmatch(property)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsDeprecated reports whether the document carries a superseded-by marker.
func (d *Document) IsDeprecated() bool { return d.SupersededBy != 0 }

// CentroidLonLat returns the best available centroid, preferring the curated
// woe:centroid over the computed geom values. Returns ok=false when no
// centroid information is present at all.
func (d *Document) CentroidLonLat() (lon, lat float64, ok bool) {
	switch {
	case len(d.Centroid) >= 2:
		return d.Centroid[0], d.Centroid[1], true
	case len(d.GeomCentroid) >= 2:
		return d.GeomCentroid[0], d.GeomCentroid[1], true
	case d.GeomLongitude != nil && d.GeomLatitude != nil:
		return *d.GeomLongitude, *d.GeomLatitude, true
	}
	return 0, 0, false
}

// Bounds returns the best available bounding box, preferring the computed
// geom:bbox over the curated woe:bbox. Nil when neither is present.
func (d *Document) Bounds() []float64 {
	if len(d.GeomBBox) == 4 {
		return d.GeomBBox
	}
	if len(d.BBox) == 4 {
		return d.BBox
	}
	return nil
}

// SourceURLs are the derived links back to the document's upstream repo.
type SourceURLs struct {
	Source  string `json:"source"`
	Repo    string `json:"repo"`
	GeoJSON string `json:"geojson"`
}

// MakeSourceURLs derives the upstream repository URLs for a document. A
// document without woe:repo cannot be linked back to its source; that is a
// data-integrity fault and fails loudly rather than degrading.
func MakeSourceURLs(d *Document) (SourceURLs, error) {
	if d.Repo == "" {
		return SourceURLs{}, domain.NewMalformedDocument(d.WOEID, "woe:repo")
	}
	repoURL := fmt.Sprintf("https://github.com/woeplanet-data/%s", d.Repo)
	return SourceURLs{
		Source:  IDToPath("/", d.WOEID),
		Repo:    repoURL,
		GeoJSON: IDToPath(repoURL+"/data", d.WOEID),
	}, nil
}

// IDToPath renders the sharded on-disk path for a WOE ID, splitting the
// decimal form into groups of three digits: 85633147 -> 856/331/47.
func IDToPath(root string, id int64) string {
	s := fmt.Sprintf("%d", id)
	path := root
	for len(s) > 0 {
		n := 3
		if len(s) < n {
			n = len(s)
		}
		path = fmt.Sprintf("%s/%s", path, s[:n])
		s = s[n:]
	}
	return fmt.Sprintf("%s/%d.geojson", path, id)
}

// Feature is a GeoJSON rendering of a document.
type Feature struct {
	Type       string          `json:"type"`
	ID         int64           `json:"id"`
	Properties *Document       `json:"properties"`
	BBox       []float64       `json:"bbox,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
}

// ToGeoJSON converts a document to a GeoJSON feature. Documents without a
// stored geometry fall back to a point at the computed centroid. When terse
// is true the properties block is omitted.
func ToGeoJSON(d *Document, terse bool) (*Feature, error) {
	if d == nil {
		return nil, nil
	}

	geom := d.Geometry
	if len(geom) == 0 {
		lon, lat := 0.0, 0.0
		if d.GeomLongitude != nil {
			lon = *d.GeomLongitude
		}
		if d.GeomLatitude != nil {
			lat = *d.GeomLatitude
		}
		point, err := json.Marshal(map[string]any{
			"type":        "Point",
			"coordinates": []float64{lon, lat},
		})
		if err != nil {
			return nil, fmt.Errorf("marshal centroid point: %w", err)
		}
		geom = point
	}

	f := &Feature{
		Type:     "Feature",
		ID:       d.WOEID,
		BBox:     d.GeomBBox,
		Geometry: geom,
	}
	if !terse {
		f.Properties = d
	}
	return f, nil
}
