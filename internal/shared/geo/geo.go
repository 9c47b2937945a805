package geo

import (
	"errors"
	"fmt"
	"math"
)

const (
	earthRadiusM = 6371000.0

	// kmPerDegreeLat is the north-south span of one degree of latitude.
	kmPerDegreeLat = 111.32

	// degenerateDistanceM is the distance below which two points are treated
	// as coincident and a bearing between them is undefined.
	degenerateDistanceM = 1.0

	maxZonesPerSearch = 25
)

var (
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	ErrDegenerateSegment = errors.New("segment endpoints coincide")
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is finite and inside the WGS84 range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b Coordinate) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, ErrInvalidCoordinate
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h)), nil
}

// Bearing returns the initial compass bearing traveling from a to b, in
// degrees [0,360) with 0 = north. Fails when the points coincide, since no
// bearing exists between coincident points.
func Bearing(a, b Coordinate) (float64, error) {
	d, err := Distance(a, b)
	if err != nil {
		return 0, err
	}
	if d < degenerateDistanceM {
		return 0, ErrDegenerateSegment
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360), nil
}

// RelativeAngle returns the unsigned angular difference between a wind-from
// direction and a travel bearing, in degrees [0,180]. Wrap-aware:
// RelativeAngle(350, 10) is 20, not 340.
func RelativeAngle(windFromDeg, bearingDeg float64) float64 {
	diff := math.Mod(windFromDeg-bearingDeg, 360)
	if diff < 0 {
		diff += 360
	}
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// Bounds is a geographic bounding box, corners ordered for the Strava
// segment explore API.
type Bounds struct {
	SWLat float64
	SWLng float64
	NELat float64
	NELng float64
}

// String renders the box as "swlat,swlng,nelat,nelng".
func (b Bounds) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.SWLat, b.SWLng, b.NELat, b.NELng)
}

// BoundingBox returns a box around center sized for radiusKm, widened by 10%
// so segments on the border are still captured. Longitude spans scale with
// the latitude's circle of longitude.
func BoundingBox(center Coordinate, radiusKm float64) Bounds {
	effective := radiusKm * 1.1
	dLat := effective / kmPerDegreeLat
	dLng := effective / (kmPerDegreeLat * math.Cos(radians(center.Lat)))
	return Bounds{
		SWLat: center.Lat - dLat,
		SWLng: center.Lng - dLng,
		NELat: center.Lat + dLat,
		NELng: center.Lng + dLng,
	}
}

// Zone is one circle of a search grid.
type Zone struct {
	Center   Coordinate
	RadiusKm float64
	Name     string
}

// SearchGrid covers totalRadiusKm around center with overlapping zones of
// zoneRadiusKm: the center zone always, then concentric rings spaced at 0.7
// zone radii with at least 6 zones per ring. The grid is capped at 25 zones
// to keep the upstream request count bounded.
func SearchGrid(center Coordinate, totalRadiusKm, zoneRadiusKm float64) []Zone {
	zones := []Zone{{Center: center, RadiusKm: zoneRadiusKm, Name: "center"}}

	maxRings := int(totalRadiusKm / (zoneRadiusKm * 0.8))
	if maxRings < 1 {
		maxRings = 1
	}

	for ring := 1; ring <= maxRings; ring++ {
		ringRadius := float64(ring) * zoneRadiusKm * 0.7
		if ringRadius+zoneRadiusKm > totalRadiusKm {
			break
		}

		count := int(2 * math.Pi * ringRadius / (zoneRadiusKm * 0.6))
		if count < 6 {
			count = 6
		}
		if len(zones)+count > maxZonesPerSearch {
			count = maxZonesPerSearch - len(zones)
			if count <= 0 {
				break
			}
		}

		for i := 0; i < count; i++ {
			angle := 2 * math.Pi * float64(i) / float64(count)
			dLat := ringRadius * math.Cos(angle) / kmPerDegreeLat
			dLng := ringRadius * math.Sin(angle) / (kmPerDegreeLat * math.Cos(radians(center.Lat)))
			zones = append(zones, Zone{
				Center:   Coordinate{Lat: center.Lat + dLat, Lng: center.Lng + dLng},
				RadiusKm: zoneRadiusKm,
				Name:     fmt.Sprintf("ring%d-%d", ring, i+1),
			})
		}
		if len(zones) >= maxZonesPerSearch {
			break
		}
	}
	return zones
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
