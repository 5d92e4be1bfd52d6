package align

import (
	"errors"
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/scene"
)

// DefaultCutoffMultiplier scales the room cloud's maximum centroid-to-point
// distance into the corner acceptance radius.
const DefaultCutoffMultiplier = 1.1

// ErrNeedSixPlanes is reported when corner suggestion is run on a room
// whose wall count is not 6.
var ErrNeedSixPlanes = errors.New("align: corner suggestion needs exactly 6 wall planes")

// ErrNoCloud is reported when the room has no cloud to derive the
// acceptance cutoff from.
var ErrNoCloud = errors.New("align: corner suggestion needs the room's cloud")

// CornerStats summarizes one corner-suggestion run.
type CornerStats struct {
	Triples      int  // plane triples enumerated, C(6,3)
	Degenerate   int  // triples with no unique intersection
	Rejected     int  // intersections beyond the cutoff
	Kept         int  // surviving candidate corners
	AutoAccepted bool // all 8 accepted without user interaction
}

// SuggestCorners intersects every triple of the room's 6 wall planes and
// keeps the intersections within the cutoff distance of the cloud
// centroid, filtering out the algebraically valid but physically
// meaningless meets of near-parallel or non-adjacent triples. If exactly 8
// corners survive and none were accepted before, all 8 are accepted
// outright; otherwise they replace the room's suggestion list for manual
// acceptance. The input room is left untouched; the transformed clone is
// returned.
func SuggestCorners(r *scene.Room, alloc *scene.Allocator, cutoffMultiplier float64) (*scene.Room, CornerStats, error) {
	var stats CornerStats
	if len(r.Planes) != 6 {
		return nil, stats, fmt.Errorf("%w: room %d has %d", ErrNeedSixPlanes, r.ID, len(r.Planes))
	}
	if r.Cloud == nil || len(r.Cloud.Points) == 0 {
		return nil, stats, fmt.Errorf("%w: room %d", ErrNoCloud, r.ID)
	}
	if cutoffMultiplier <= 0 {
		cutoffMultiplier = DefaultCutoffMultiplier
	}

	centroid := geom.Centroid(r.Cloud.Points)
	cutoff := cutoffMultiplier * geom.MaxDistance(centroid, r.Cloud.Points)

	var kept []v3.Vec
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 5; j++ {
			for k := j + 1; k < 6; k++ {
				stats.Triples++
				p, err := geom.IntersectThree(r.Planes[i].Eq, r.Planes[j].Eq, r.Planes[k].Eq)
				if err != nil {
					stats.Degenerate++
					continue
				}
				if p.Sub(centroid).Length() > cutoff {
					stats.Rejected++
					continue
				}
				kept = append(kept, p)
			}
		}
	}
	stats.Kept = len(kept)

	out := r.Clone()
	if len(kept) == 8 && len(r.Corners) == 0 {
		// No real ambiguity: a closed cuboid room.
		out.Corners = make([]scene.Corner, 8)
		for i, p := range kept {
			out.Corners[i] = scene.Corner{ID: alloc.Next(), Point: p}
		}
		out.Suggested = nil
		stats.AutoAccepted = true
		return out, stats, nil
	}

	out.Suggested = make([]scene.Corner, len(kept))
	for i, p := range kept {
		out.Suggested[i] = scene.Corner{ID: alloc.Next(), Point: p}
	}
	return out, stats, nil
}
