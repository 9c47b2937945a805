package segments

import (
	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
)

// Segment is a rideable Strava segment with its riding direction resolved.
// Start and End are the first and last points of the segment path; BearingDeg
// is the initial bearing from Start towards End, which is the direction the
// segment is ridden in.
type Segment struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Start         geo.Coordinate   `json:"start"`
	End           geo.Coordinate   `json:"end"`
	BearingDeg    float64          `json:"bearing_deg"`
	DistanceM     float64          `json:"distance_m"`
	AvgGrade      float64          `json:"avg_grade"`
	ClimbCategory int              `json:"climb_category"`
	Path          []geo.Coordinate `json:"path,omitempty"`
	StravaLink    string           `json:"strava_link"`
	SearchZone    string           `json:"search_zone"`
}
