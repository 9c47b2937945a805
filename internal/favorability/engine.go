package favorability

import (
	"errors"
	"math"
	"sort"

	"github.com/fum1er/KOM-Hunters/internal/segments"
	"github.com/fum1er/KOM-Hunters/internal/shared/geo"
	"github.com/fum1er/KOM-Hunters/internal/wind"
)

// NegligibleWindMps is the speed below which wind direction is noise. Such
// readings score every segment at zero.
const NegligibleWindMps = 1.0

// Relative angles at or under the tailwind bound count as tailwind, at or
// over the headwind bound as headwind, everything between as crosswind.
const (
	tailwindMaxAngle = 45.0
	headwindMinAngle = 135.0
)

// ErrInvalidArgument reports a caller error such as a non-positive top-n.
var ErrInvalidArgument = errors.New("invalid argument")

type Label string

const (
	LabelTailwind  Label = "tailwind"
	LabelCrosswind Label = "crosswind"
	LabelHeadwind  Label = "headwind"
)

// ScoredSegment pairs a segment with its wind favorability. Score is the
// along-track wind component in m/s: positive pushes the rider from start to
// end, negative opposes.
type ScoredSegment struct {
	segments.Segment
	Score            float64 `json:"score"`
	RelativeAngleDeg float64 `json:"relative_angle_deg"`
	Label            Label   `json:"wind_label"`
}

// Score rates one segment against one wind reading.
//
// The relative angle between the wind direction and the segment bearing spans
// [0,180]: 0 is a pure tailwind, 180 a pure headwind. The score is
// cos(relative angle) scaled by wind speed, so it is directly comparable
// across segments. Wind below NegligibleWindMps scores zero regardless of
// direction.
func Score(seg segments.Segment, w wind.Reading) ScoredSegment {
	relAngle := geo.RelativeAngle(w.DirectionDeg, seg.BearingDeg)

	score := 0.0
	if w.SpeedMps >= NegligibleWindMps {
		score = math.Cos(relAngle*math.Pi/180) * w.SpeedMps
	}

	return ScoredSegment{
		Segment:          seg,
		Score:            score,
		RelativeAngleDeg: relAngle,
		Label:            labelFor(relAngle),
	}
}

// Rank scores every segment and returns the topN most favorable, descending.
// Equal scores are broken by distance: the shorter segment wins. An empty
// input yields an empty result.
func Rank(segs []segments.Segment, w wind.Reading, topN int) ([]ScoredSegment, error) {
	if topN <= 0 {
		return nil, errors.Join(ErrInvalidArgument, errors.New("top-n must be positive"))
	}

	scored := make([]ScoredSegment, 0, len(segs))
	for _, seg := range segs {
		scored = append(scored, Score(seg, w))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].DistanceM < scored[j].DistanceM
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored, nil
}

func labelFor(relAngle float64) Label {
	switch {
	case relAngle <= tailwindMaxAngle:
		return LabelTailwind
	case relAngle >= headwindMinAngle:
		return LabelHeadwind
	default:
		return LabelCrosswind
	}
}
