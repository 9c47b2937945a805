package activity

// Zone is one effort band. Max 0 means the zone has no upper bound (the top
// power zone).
type Zone struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

func (z Zone) contains(v float64) bool {
	return v >= z.Min && (z.Max == 0 || v <= z.Max)
}

// StreamStats summarizes one sample series over an effort. First and Last
// expose how the effort was paced.
type StreamStats struct {
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	First float64 `json:"first"`
	Last  float64 `json:"last"`
}

// CadenceStats covers only the pedaling samples; coasting reads zero cadence
// and would drag the average down.
type CadenceStats struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// ZoneTime is the approximate time spent inside one zone.
type ZoneTime struct {
	Zone    string  `json:"zone"`
	Seconds float64 `json:"seconds"`
}

// Analysis is the computed performance profile of one activity: the numeric
// input a narrative report would be generated from.
type Analysis struct {
	ActivityID  int64   `json:"activity_id"`
	Name        string  `json:"name"`
	DurationSec float64 `json:"duration_sec"`

	Heartrate  *StreamStats  `json:"heartrate,omitempty"`
	Power      *StreamStats  `json:"power,omitempty"`
	Cadence    *CadenceStats `json:"cadence,omitempty"`
	WattsPerKg *float64      `json:"watts_per_kg,omitempty"`

	HRZones          []Zone     `json:"hr_zones,omitempty"`
	PowerZones       []Zone     `json:"power_zones,omitempty"`
	TimeInHRZones    []ZoneTime `json:"time_in_hr_zones,omitempty"`
	TimeInPowerZones []ZoneTime `json:"time_in_power_zones,omitempty"`
}

// Profile is the athlete as the analysis sees them: Strava's profile with
// configured fallbacks where Strava has no value.
type Profile struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	WeightKg  float64 `json:"weight_kg"`
	FTP       int     `json:"ftp"`
	MaxHR     int     `json:"max_hr"`
}
