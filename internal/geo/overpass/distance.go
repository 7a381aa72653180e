package overpass

import (
	"math"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

const earthRadiusM = 6371000.0

// DistanceM returns the great-circle distance in meters between the search
// centre and a candidate.
func DistanceM(center prospect.GeoPoint, c prospect.CandidateRecord) float64 {
	lat1 := center.Lat * math.Pi / 180
	lat2 := c.Lat * math.Pi / 180
	dLat := (c.Lat - center.Lat) * math.Pi / 180
	dLng := (c.Lng - center.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
