package search

import (
	"github.com/fum1er/KOM-Hunters/internal/favorability"
	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/wind"
)

// Request is the body of POST /api/v1/segments/search. The center is either a
// free-form address or an explicit coordinate pair; RadiusM and TopN must be
// positive. SearchID is optional: clients that want live progress open the
// websocket first and pass its ID here.
type Request struct {
	Address  string   `json:"address" validate:"required_without=Lat"`
	Lat      *float64 `json:"lat" validate:"required_without=Address,omitempty,gte=-90,lte=90"`
	Lng      *float64 `json:"lng" validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
	RadiusM  float64  `json:"radius_m" validate:"required,gt=0"`
	TopN     int      `json:"top_n" validate:"required,gt=0"`
	SearchID string   `json:"search_id,omitempty"`
}

// SegmentResult is one segment of the response. Score is nil when the wind
// fetch failed and the list is unranked.
type SegmentResult struct {
	ID               int64              `json:"id"`
	Name             string             `json:"name"`
	Start            geo.Coordinate     `json:"start"`
	End              geo.Coordinate     `json:"end"`
	BearingDeg       float64            `json:"bearing_deg"`
	DistanceM        float64            `json:"distance_m"`
	AvgGrade         float64            `json:"avg_grade"`
	Path             []geo.Coordinate   `json:"path,omitempty"`
	StravaLink       string             `json:"strava_link"`
	Score            *float64           `json:"score"`
	RelativeAngleDeg *float64           `json:"relative_angle_deg,omitempty"`
	Label            favorability.Label `json:"wind_label,omitempty"`
}

// Result is the complete search response. Empty marks a successful search
// that found nothing, so the UI can show an empty state instead of a blank
// map. WindUnavailable marks a degraded response: segments are present but
// unranked because the wind fetch failed.
type Result struct {
	SearchID        string          `json:"search_id"`
	Address         string          `json:"address,omitempty"`
	Center          geo.Coordinate  `json:"center"`
	Segments        []SegmentResult `json:"segments"`
	Wind            *wind.Reading   `json:"wind,omitempty"`
	WindUnavailable bool            `json:"wind_unavailable"`
	Empty           bool            `json:"empty,omitempty"`
}
