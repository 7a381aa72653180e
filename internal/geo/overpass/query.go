// Package overpass searches the OpenStreetMap directory through an Overpass
// API endpoint and normalizes the returned elements into candidate records.
package overpass

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

var geometryKinds = []string{"node", "way", "relation"}

// BuildQuery renders one Overpass QL query that unions every sector tag
// across points, ways and relations around the centre. Ways and relations
// are returned with a computed centre.
func BuildQuery(sector prospect.Sector, center prospect.GeoPoint, radiusM int, timeout time.Duration) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radiusM, formatCoord(center.Lat), formatCoord(center.Lng))

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	for _, tag := range sector.Tags() {
		for _, kind := range geometryKinds {
			fmt.Fprintf(&b, "  %s[%s=%s]%s;\n", kind, quote(tag.Key), quote(tag.Value), around)
		}
	}
	b.WriteString(");\nout center tags;\n")
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func quote(s string) string {
	return strconv.Quote(s)
}
