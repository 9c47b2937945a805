package strava

import "time"

// Credential is a usable Strava OAuth credential. ExpiresAt is the absolute
// expiry of the access token as reported by the token endpoint.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// tokenResponse is the wire shape of POST /oauth/token. The athlete block is
// only present on the authorization_code grant.
type tokenResponse struct {
	TokenType    string   `json:"token_type"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"`
	ExpiresIn    int64    `json:"expires_in"`
	Athlete      *Athlete `json:"athlete"`
}

// Athlete is the Strava athlete profile. Weight and FTP are only filled on
// the detailed representation returned by GET /athlete.
type Athlete struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Profile   string  `json:"profile"`
	WeightKg  float64 `json:"weight"`
	FTP       int     `json:"ftp"`
}

// ExploreSegment is one entry of GET /segments/explore. Points carries the
// encoded polyline of the segment path.
type ExploreSegment struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ClimbCategory  int       `json:"climb_category"`
	StartLatLng    []float64 `json:"start_latlng"`
	EndLatLng      []float64 `json:"end_latlng"`
	ElevDifference float64   `json:"elev_difference"`
	AvgGrade       float64   `json:"avg_grade"`
	Distance       float64   `json:"distance"`
	Points         string    `json:"points"`
}

type exploreResponse struct {
	Segments []ExploreSegment `json:"segments"`
}

// Activity is the summary representation from GET /athlete/activities and
// GET /activities/{id}.
type Activity struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	Type               string      `json:"type"`
	SportType          string      `json:"sport_type"`
	Distance           float64     `json:"distance"`
	MovingTime         int         `json:"moving_time"`
	ElapsedTime        int         `json:"elapsed_time"`
	TotalElevationGain float64     `json:"total_elevation_gain"`
	StartDate          time.Time   `json:"start_date"`
	AverageSpeed       float64     `json:"average_speed"`
	MaxSpeed           float64     `json:"max_speed"`
	AverageWatts       float64     `json:"average_watts"`
	AverageHeartrate   float64     `json:"average_heartrate"`
	MaxHeartrate       float64     `json:"max_heartrate"`
	AverageCadence     float64     `json:"average_cadence"`
	DeviceWatts        bool        `json:"device_watts"`
	Map                ActivityMap `json:"map"`
}

type ActivityMap struct {
	ID              string `json:"id"`
	SummaryPolyline string `json:"summary_polyline"`
}

// Stream is one sample series of an activity. DeviceWatts is only set on the
// watts stream; absent means the recording device measured power directly.
type Stream struct {
	Data         []float64 `json:"data"`
	SeriesType   string    `json:"series_type"`
	OriginalSize int       `json:"original_size"`
	Resolution   string    `json:"resolution"`
	DeviceWatts  *bool     `json:"device_watts,omitempty"`
}

// StreamSet is the key_by_type=true response of the activity streams endpoint.
type StreamSet map[string]Stream
