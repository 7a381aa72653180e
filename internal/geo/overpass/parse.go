package overpass

import (
	"fmt"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// SourceOSM namespaces candidate ids produced by this package.
const SourceOSM = "osm"

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      *float64          `json:"lat"`
	Lon      *float64          `json:"lon"`
	Center   *latLon           `json:"center"`
	Geometry []latLon          `json:"geometry"`
	Bounds   *bounds           `json:"bounds"`
	Tags     map[string]string `json:"tags"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type bounds struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

func (e element) key() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

// normalize converts raw elements into candidates: unnamed or unlocatable
// elements are skipped, duplicates by type/id keep their first occurrence,
// and the cap applies after deduplication without reordering.
func normalize(elements []element, sectorLabel string, limit int) []prospect.CandidateRecord {
	seen := make(map[string]struct{}, len(elements))
	out := make([]prospect.CandidateRecord, 0, len(elements))
	for _, el := range elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}
		key := el.key()
		if _, dup := seen[key]; dup {
			continue
		}
		lat, lng, ok := el.coordinates()
		if !ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, toCandidate(el, name, lat, lng, sectorLabel))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e element) coordinates() (float64, float64, bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	if len(e.Geometry) > 0 {
		if lat, lng, err := centroid(e.Geometry); err == nil {
			return lat, lng, true
		}
	}
	if e.Bounds != nil {
		return (e.Bounds.MinLat + e.Bounds.MaxLat) / 2, (e.Bounds.MinLon + e.Bounds.MaxLon) / 2, true
	}
	return 0, 0, false
}

// centroid computes the centre of a way outline. Coordinates are laid out
// as X=lon, Y=lat.
func centroid(points []latLon) (float64, float64, error) {
	if len(points) == 1 {
		return points[0].Lat, points[0].Lon, nil
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lon, p.Lat)
	}
	var g geom.T = geom.NewLineStringFlat(geom.XY, flat)
	first, last := points[0], points[len(points)-1]
	if len(points) >= 4 && first == last {
		g = geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	}
	c, err := xy.Centroid(g)
	if err != nil {
		return 0, 0, fmt.Errorf("centroid: %w", err)
	}
	return c.Y(), c.X(), nil
}

func toCandidate(el element, name string, lat, lng float64, sectorLabel string) prospect.CandidateRecord {
	tags := el.Tags
	rec := prospect.CandidateRecord{
		ID:           SourceOSM + ":" + el.key(),
		Source:       SourceOSM,
		Name:         name,
		Lat:          lat,
		Lng:          lng,
		Street:       tags["addr:street"],
		HouseNumber:  tags["addr:housenumber"],
		Postcode:     tags["addr:postcode"],
		City:         tags["addr:city"],
		Phone:        firstTag(tags, "phone", "contact:phone", "contact:mobile"),
		Email:        firstTag(tags, "email", "contact:email"),
		Website:      firstTag(tags, "website", "contact:website", "url"),
		OpeningHours: tags["opening_hours"],
		Sector:       sectorLabel,
		Tags:         copyTags(tags),
	}
	rec.Address = formatAddress(tags)
	return rec
}

// formatAddress joins addr:* parts when a street is known.
func formatAddress(tags map[string]string) string {
	street := strings.TrimSpace(tags["addr:street"])
	if street == "" {
		return ""
	}
	line := street
	if num := strings.TrimSpace(tags["addr:housenumber"]); num != "" {
		line = num + " " + street
	}
	locality := strings.TrimSpace(strings.Join(nonEmpty(tags["addr:postcode"], tags["addr:city"]), " "))
	if locality == "" {
		return line
	}
	return line + ", " + locality
}

func firstTag(tags map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return &v
		}
	}
	return nil
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func copyTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
