package segments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/fum1er/KOM-Hunters/internal/logger"
	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/shared/httpx"
	"github.com/fum1er/KOM-Hunters/internal/strava"
)

const (
	// MinZoneRadiusKm is the smallest useful explore window. The explore
	// endpoint surfaces only the ten most popular segments per call, so
	// smaller zones waste calls without finding more.
	MinZoneRadiusKm = 5.0

	stravaSegmentURL = "https://www.strava.com/segments/"

	// Pause between explore calls to stay friendly with the rate limit.
	interZonePause = 100 * time.Millisecond
)

// ErrNoSegmentsFound means the whole search area contained no rideable
// segments. Not a failure; the area may genuinely be empty.
var ErrNoSegmentsFound = errors.New("no segments found")

// Explorer is the segment discovery part of the Strava API.
type Explorer interface {
	ExploreSegments(ctx context.Context, b geo.Bounds) ([]strava.ExploreSegment, error)
}

// ProgressFunc is called after each explored zone so callers can surface
// search progress. scanned counts zones done, total the whole grid.
type ProgressFunc func(zone string, found, scanned, total int)

// Service discovers segments by fanning an explore call out over a zone grid
// around the search center.
type Service struct {
	explorer     Explorer
	zoneRadiusKm float64
	pause        time.Duration
}

func NewService(explorer Explorer, zoneRadiusKm float64) *Service {
	if zoneRadiusKm < MinZoneRadiusKm {
		zoneRadiusKm = MinZoneRadiusKm
	}
	return &Service{
		explorer:     explorer,
		zoneRadiusKm: zoneRadiusKm,
		pause:        interZonePause,
	}
}

type zonedSegment struct {
	strava.ExploreSegment
	zone string
}

// FindNear explores every zone of the grid around center, deduplicates the
// results by segment ID, and resolves each segment's riding direction from its
// polyline. Zones that fail are skipped so one bad call cannot void the whole
// search; only when every zone fails is the search itself reported as failed.
func (s *Service) FindNear(ctx context.Context, center geo.Coordinate, radiusKm float64, onProgress ProgressFunc) ([]Segment, error) {
	if !center.Valid() {
		return nil, geo.ErrInvalidCoordinate
	}

	zones := geo.SearchGrid(center, radiusKm, s.zoneRadiusKm)

	var raw []zonedSegment
	failed := 0
	var lastErr error

	for i, zone := range zones {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := s.explorer.ExploreSegments(ctx, geo.BoundingBox(zone.Center, zone.RadiusKm))
		if err != nil {
			// Without a credential no zone can succeed; stop immediately.
			if errors.Is(err, strava.ErrAuthenticationRequired) {
				return nil, err
			}
			failed++
			lastErr = err
			logger.Error(fmt.Errorf("explore zone %s failed: %v", zone.Name, err))
		} else {
			for _, es := range found {
				raw = append(raw, zonedSegment{ExploreSegment: es, zone: zone.Name})
			}
			if onProgress != nil {
				onProgress(zone.Name, len(found), i+1, len(zones))
			}
		}

		if i < len(zones)-1 {
			timer := time.NewTimer(s.pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if failed == len(zones) {
		return nil, fmt.Errorf("%w: all %d search zones failed: %v", httpx.ErrUpstreamUnavailable, failed, lastErr)
	}

	result := normalize(dedupe(raw))
	if len(result) == 0 {
		return nil, ErrNoSegmentsFound
	}
	return result, nil
}

// dedupe keeps the first occurrence of each segment ID. Overlapping zones
// routinely return the same popular segments.
func dedupe(raw []zonedSegment) []zonedSegment {
	seen := make(map[int64]struct{}, len(raw))
	unique := raw[:0]
	for _, zs := range raw {
		if _, ok := seen[zs.ID]; ok {
			continue
		}
		seen[zs.ID] = struct{}{}
		unique = append(unique, zs)
	}
	return unique
}

// normalize turns explore results into scored-ready segments. Segments whose
// direction cannot be resolved (no usable path, or start and end effectively
// the same point) are dropped.
func normalize(raw []zonedSegment) []Segment {
	out := make([]Segment, 0, len(raw))
	for _, zs := range raw {
		seg, err := fromExplore(zs)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"segment": zs.ID,
				"reason":  err.Error(),
			}).Debug("skipping segment without riding direction")
			continue
		}
		out = append(out, seg)
	}
	return out
}

func fromExplore(zs zonedSegment) (Segment, error) {
	path := decodePath(zs.Points)
	if len(path) < 2 {
		path = endpointPath(zs.StartLatLng, zs.EndLatLng)
	}
	if len(path) < 2 {
		return Segment{}, errors.New("no usable path")
	}

	start, end := path[0], path[len(path)-1]
	bearing, err := geo.Bearing(start, end)
	if err != nil {
		return Segment{}, err
	}

	return Segment{
		ID:            zs.ID,
		Name:          zs.Name,
		Start:         start,
		End:           end,
		BearingDeg:    bearing,
		DistanceM:     zs.Distance,
		AvgGrade:      zs.AvgGrade,
		ClimbCategory: zs.ClimbCategory,
		Path:          path,
		StravaLink:    fmt.Sprintf("%s%d", stravaSegmentURL, zs.ID),
		SearchZone:    zs.zone,
	}, nil
}

func decodePath(points string) []geo.Coordinate {
	if points == "" {
		return nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(points))
	if err != nil {
		return nil
	}
	path := make([]geo.Coordinate, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			continue
		}
		path = append(path, geo.Coordinate{Lat: c[0], Lng: c[1]})
	}
	return path
}

func endpointPath(start, end []float64) []geo.Coordinate {
	if len(start) != 2 || len(end) != 2 {
		return nil
	}
	return []geo.Coordinate{
		{Lat: start[0], Lng: start[1]},
		{Lat: end[0], Lng: end[1]},
	}
}
