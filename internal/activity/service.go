package activity

import (
	"context"
	"fmt"
	"math"

	"github.com/fum1er/KOM-Hunters/internal/logger"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

const (
	// ActivitiesPerPage is the default page size of the recent list.
	ActivitiesPerPage = 10

	DefaultMaxHR    = 190
	DefaultFTP      = 250
	DefaultWeightKg = 70.0
)

// cyclingTypes are the Strava activity types shown in the recent list.
var cyclingTypes = map[string]bool{
	"Ride":             true,
	"VirtualRide":      true,
	"EBikeRide":        true,
	"Gravel":           true,
	"MountainBikeRide": true,
}

// API is the slice of the Strava client the activity view needs.
type API interface {
	ListActivities(ctx context.Context, page, perPage int) ([]strava.Activity, error)
	GetActivity(ctx context.Context, id int64) (*strava.Activity, error)
	ActivityStreams(ctx context.Context, id int64, keys []string) (strava.StreamSet, error)
	GetAthlete(ctx context.Context) (*strava.Athlete, error)
}

// APIFactory binds the Strava API to one session's credentials.
type APIFactory func(tokens strava.TokenSource) API

// Defaults fill profile gaps. Strava never reports a max heart rate and only
// reports weight and FTP when the athlete maintains them.
type Defaults struct {
	MaxHR    int
	FTP      int
	WeightKg float64
}

// Service lists an athlete's rides and computes their performance profile.
type Service struct {
	api      APIFactory
	defaults Defaults
}

func NewService(api APIFactory, defaults Defaults) *Service {
	if defaults.MaxHR <= 0 {
		defaults.MaxHR = DefaultMaxHR
	}
	if defaults.FTP <= 0 {
		defaults.FTP = DefaultFTP
	}
	if defaults.WeightKg <= 0 {
		defaults.WeightKg = DefaultWeightKg
	}
	return &Service{api: api, defaults: defaults}
}

// Recent returns one page of the athlete's rides, newest first. Non-cycling
// activities are dropped, so a page can come back shorter than perPage.
func (s *Service) Recent(ctx context.Context, tokens strava.TokenSource, page, perPage int) ([]strava.Activity, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = ActivitiesPerPage
	}

	acts, err := s.api(tokens).ListActivities(ctx, page, perPage)
	if err != nil {
		return nil, err
	}

	rides := make([]strava.Activity, 0, len(acts))
	for _, a := range acts {
		if cyclingTypes[a.Type] || cyclingTypes[a.SportType] {
			rides = append(rides, a)
		}
	}
	return rides, nil
}

// Athlete returns the profile the analysis runs with. Weight and FTP fall
// back to the configured defaults when Strava has no value; max heart rate
// always comes from configuration.
func (s *Service) Athlete(ctx context.Context, tokens strava.TokenSource) (Profile, error) {
	ath, err := s.api(tokens).GetAthlete(ctx)
	if err != nil {
		return Profile{}, err
	}
	return s.profileOf(ath), nil
}

func (s *Service) profileOf(ath *strava.Athlete) Profile {
	p := Profile{
		ID:        ath.ID,
		Username:  ath.Username,
		FirstName: ath.FirstName,
		LastName:  ath.LastName,
		City:      ath.City,
		Country:   ath.Country,
		WeightKg:  ath.WeightKg,
		FTP:       ath.FTP,
		MaxHR:     s.defaults.MaxHR,
	}
	if p.WeightKg <= 0 {
		p.WeightKg = s.defaults.WeightKg
	}
	if p.FTP <= 0 {
		p.FTP = s.defaults.FTP
	}
	return p
}

// Analyze computes the performance profile of one activity from its sample
// streams. A missing athlete profile degrades to the configured defaults; a
// missing activity or stream set is an error.
func (s *Service) Analyze(ctx context.Context, tokens strava.TokenSource, activityID int64) (Analysis, error) {
	api := s.api(tokens)

	act, err := api.GetActivity(ctx, activityID)
	if err != nil {
		return Analysis{}, err
	}

	streams, err := api.ActivityStreams(ctx, activityID, nil)
	if err != nil {
		return Analysis{}, err
	}

	profile := Profile{MaxHR: s.defaults.MaxHR, FTP: s.defaults.FTP, WeightKg: s.defaults.WeightKg}
	if ath, err := api.GetAthlete(ctx); err == nil {
		profile = s.profileOf(ath)
	} else {
		logger.Warn(fmt.Sprintf("athlete profile unavailable, analyzing with defaults: %v", err))
	}

	analysis := AnalyzeStreams(streams, HRZones(profile.MaxHR), PowerZones(profile.FTP), profile.WeightKg)
	analysis.ActivityID = act.ID
	analysis.Name = act.Name
	return analysis, nil
}

// HRZones splits the range up to maxHR into the five classic heart rate
// bands. Bands are integer bpm with gaps of one between them.
func HRZones(maxHR int) []Zone {
	if maxHR <= 0 {
		return nil
	}
	m := float64(maxHR)
	return []Zone{
		{Name: "Z1 Active Recovery", Min: math.Round(m * 0.50), Max: math.Round(m*0.60) - 1},
		{Name: "Z2 Endurance", Min: math.Round(m * 0.60), Max: math.Round(m*0.70) - 1},
		{Name: "Z3 Tempo", Min: math.Round(m * 0.70), Max: math.Round(m*0.80) - 1},
		{Name: "Z4 Threshold", Min: math.Round(m * 0.80), Max: math.Round(m*0.90) - 1},
		{Name: "Z5 Anaerobic", Min: math.Round(m * 0.90), Max: m},
	}
}

// PowerZones splits watts into the seven Coggan bands around ftp. The last
// zone is unbounded.
func PowerZones(ftp int) []Zone {
	if ftp <= 0 {
		return nil
	}
	f := float64(ftp)
	return []Zone{
		{Name: "Z1 Active Recovery", Min: 0, Max: math.Round(f*0.55) - 1},
		{Name: "Z2 Endurance", Min: math.Round(f * 0.56), Max: math.Round(f*0.75) - 1},
		{Name: "Z3 Tempo", Min: math.Round(f * 0.76), Max: math.Round(f*0.90) - 1},
		{Name: "Z4 Threshold", Min: math.Round(f * 0.91), Max: math.Round(f*1.05) - 1},
		{Name: "Z5 VO2 Max", Min: math.Round(f * 1.06), Max: math.Round(f*1.20) - 1},
		{Name: "Z6 Anaerobic Capacity", Min: math.Round(f * 1.21), Max: math.Round(f*1.50) - 1},
		{Name: "Z7 Neuromuscular", Min: math.Round(f * 1.51), Max: 0},
	}
}

// AnalyzeStreams computes stream statistics and time in zones. Sample series
// that do not line up with the time stream are skipped rather than guessed
// at. Power is only trusted when the device measured it; estimated watts are
// ignored.
func AnalyzeStreams(set strava.StreamSet, hrZones, powerZones []Zone, weightKg float64) Analysis {
	var a Analysis

	timeStream, ok := set["time"]
	n := len(timeStream.Data)
	if !ok || n < 2 {
		return a
	}
	a.DurationSec = timeStream.Data[n-1] - timeStream.Data[0]
	perPoint := a.DurationSec / float64(n-1)

	a.HRZones = hrZones
	a.PowerZones = powerZones

	if hr, ok := set["heartrate"]; ok && len(hr.Data) == n && len(hrZones) > 0 {
		stats := summarize(hr.Data)
		a.Heartrate = &stats
		a.TimeInHRZones = timeInZones(hr.Data, hrZones, perPoint)
	}

	if w, ok := set["watts"]; ok && len(w.Data) == n && deviceMeasured(w) {
		stats := summarize(w.Data)
		a.Power = &stats
		if weightKg > 0 {
			wkg := math.Round(stats.Avg/weightKg*100) / 100
			a.WattsPerKg = &wkg
		}
		if len(powerZones) > 0 {
			a.TimeInPowerZones = timeInZones(w.Data, powerZones, perPoint)
		}
	}

	if cad, ok := set["cadence"]; ok {
		a.Cadence = summarizePedaling(cad.Data)
	}

	return a
}

func deviceMeasured(w strava.Stream) bool {
	return w.DeviceWatts == nil || *w.DeviceWatts
}

func summarize(data []float64) StreamStats {
	sum, max := 0.0, data[0]
	for _, v := range data {
		sum += v
		if v > max {
			max = v
		}
	}
	return StreamStats{
		Avg:   math.Round(sum/float64(len(data))*10) / 10,
		Max:   max,
		First: data[0],
		Last:  data[len(data)-1],
	}
}

func summarizePedaling(data []float64) *CadenceStats {
	sum, max, count := 0.0, 0.0, 0
	for _, v := range data {
		if v <= 0 {
			continue
		}
		sum += v
		count++
		if v > max {
			max = v
		}
	}
	if count == 0 {
		return nil
	}
	return &CadenceStats{
		Avg: math.Round(sum/float64(count)*10) / 10,
		Max: max,
	}
}

// timeInZones spreads the stream duration evenly over its samples and
// attributes each sample to the first zone containing it. Zones the effort
// never touched are reported with zero seconds.
func timeInZones(data []float64, zones []Zone, perPoint float64) []ZoneTime {
	out := make([]ZoneTime, len(zones))
	for i, z := range zones {
		out[i] = ZoneTime{Zone: z.Name}
	}
	for _, v := range data {
		for i, z := range zones {
			if z.contains(v) {
				out[i].Seconds += perPoint
				break
			}
		}
	}
	return out
}
