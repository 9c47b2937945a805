package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fum1er/KOM-Hunters/internal/favorability"
	"github.com/fum1er/KOM-Hunters/internal/geocode"
	"github.com/fum1er/KOM-Hunters/internal/logger"
	"github.com/fum1er/KOM-Hunters/internal/segments"
	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/strava"
	"github.com/fum1er/KOM-Hunters/internal/stream"
	"github.com/fum1er/KOM-Hunters/internal/wind"
)

// Geocoder resolves a free-form address to one place.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (geocode.Result, error)
}

// SegmentSource discovers rideable segments around a center.
type SegmentSource interface {
	FindNear(ctx context.Context, center geo.Coordinate, radiusKm float64, onProgress segments.ProgressFunc) ([]segments.Segment, error)
}

// SegmentSourceFactory binds a segment source to one session's credentials.
// Discovery runs against the Strava API of whichever athlete is searching.
type SegmentSourceFactory func(tokens strava.TokenSource) SegmentSource

// WindSource reports the current wind at a point.
type WindSource interface {
	Current(ctx context.Context, at geo.Coordinate) (wind.Reading, error)
}

// Service runs a whole segment search: resolve the center, fan discovery out
// over the area, fetch the wind, rank by favorability. Progress is published
// to the stream hub under the search ID so a websocket client can follow
// along.
type Service struct {
	geocoder Geocoder
	source   SegmentSourceFactory
	wind     WindSource
	hub      *stream.Hub
}

func NewService(geocoder Geocoder, source SegmentSourceFactory, windSource WindSource, hub *stream.Hub) *Service {
	return &Service{
		geocoder: geocoder,
		source:   source,
		wind:     windSource,
		hub:      hub,
	}
}

// Search executes req for the session owning tokens.
//
// A search that finds nothing is a success with Empty set. A search whose
// wind fetch fails is a success with the full discovery list unranked and
// WindUnavailable set; the mandatory parts (geocoding, discovery) propagate
// their failures instead.
func (s *Service) Search(ctx context.Context, tokens strava.TokenSource, req Request) (Result, error) {
	if req.RadiusM <= 0 {
		return Result{}, fmt.Errorf("%w: radius must be positive", favorability.ErrInvalidArgument)
	}
	if req.TopN <= 0 {
		return Result{}, fmt.Errorf("%w: top-n must be positive", favorability.ErrInvalidArgument)
	}

	res := Result{SearchID: req.SearchID}
	if res.SearchID == "" {
		res.SearchID = uuid.NewString()
	}

	center, address, err := s.resolveCenter(ctx, req)
	if err != nil {
		s.publishFailed(res.SearchID, err)
		return Result{}, err
	}
	res.Center, res.Address = center, address

	found, err := s.source(tokens).FindNear(ctx, center, req.RadiusM/1000, func(zone string, found, scanned, total int) {
		s.publish(res.SearchID, stream.Event{
			Type:    stream.EventZoneExplored,
			Zone:    zone,
			Found:   found,
			Scanned: scanned,
			Total:   total,
		})
	})
	if err != nil {
		if errors.Is(err, segments.ErrNoSegmentsFound) {
			res.Empty = true
			res.Segments = []SegmentResult{}
			s.publish(res.SearchID, stream.Event{Type: stream.EventDone})
			return res, nil
		}
		s.publishFailed(res.SearchID, err)
		return Result{}, err
	}

	w, err := s.wind.Current(ctx, center)
	if err != nil {
		// Segments without scores are still worth showing; degrade rather
		// than void the discovery work.
		logger.Error(fmt.Errorf("wind fetch failed, returning unranked segments: %v", err))
		res.WindUnavailable = true
		res.Segments = unrankedResults(found)
		s.publish(res.SearchID, stream.Event{Type: stream.EventDone, Found: len(res.Segments)})
		return res, nil
	}
	res.Wind = &w

	ranked, err := favorability.Rank(found, w, req.TopN)
	if err != nil {
		return Result{}, err
	}
	res.Segments = rankedResults(ranked)

	logger.WithFields(map[string]interface{}{
		"search":   res.SearchID,
		"found":    len(found),
		"returned": len(res.Segments),
	}).Info("segment search complete")
	s.publish(res.SearchID, stream.Event{Type: stream.EventDone, Found: len(res.Segments)})
	return res, nil
}

// resolveCenter prefers explicit coordinates; only address-only requests hit
// the geocoder.
func (s *Service) resolveCenter(ctx context.Context, req Request) (geo.Coordinate, string, error) {
	if req.Lat != nil && req.Lng != nil {
		c := geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if !c.Valid() {
			return geo.Coordinate{}, "", geo.ErrInvalidCoordinate
		}
		return c, req.Address, nil
	}

	place, err := s.geocoder.Resolve(ctx, req.Address)
	if err != nil {
		return geo.Coordinate{}, "", err
	}
	return geo.Coordinate{Lat: place.Lat, Lng: place.Lng}, place.Label, nil
}

func (s *Service) publish(searchID string, event stream.Event) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(searchID, event)
}

func (s *Service) publishFailed(searchID string, err error) {
	s.publish(searchID, stream.Event{Type: stream.EventFailed, Message: err.Error()})
}

func rankedResults(scored []favorability.ScoredSegment) []SegmentResult {
	out := make([]SegmentResult, 0, len(scored))
	for _, sc := range scored {
		score, angle := sc.Score, sc.RelativeAngleDeg
		out = append(out, SegmentResult{
			ID:               sc.ID,
			Name:             sc.Name,
			Start:            sc.Start,
			End:              sc.End,
			BearingDeg:       sc.BearingDeg,
			DistanceM:        sc.DistanceM,
			AvgGrade:         sc.AvgGrade,
			Path:             sc.Path,
			StravaLink:       sc.StravaLink,
			Score:            &score,
			RelativeAngleDeg: &angle,
			Label:            sc.Label,
		})
	}
	return out
}

// unrankedResults keeps discovery order and leaves every score nil.
func unrankedResults(found []segments.Segment) []SegmentResult {
	out := make([]SegmentResult, 0, len(found))
	for _, seg := range found {
		out = append(out, SegmentResult{
			ID:         seg.ID,
			Name:       seg.Name,
			Start:      seg.Start,
			End:        seg.End,
			BearingDeg: seg.BearingDeg,
			DistanceM:  seg.DistanceM,
			AvgGrade:   seg.AvgGrade,
			Path:       seg.Path,
			StravaLink: seg.StravaLink,
		})
	}
	return out
}
