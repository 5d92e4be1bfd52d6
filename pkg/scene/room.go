package scene

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
)

// Corner is an accepted or suggested room corner: an addressable pickable
// point derived from intersecting three wall planes.
type Corner struct {
	ID    ID     `json:"id"`
	Point v3.Vec `json:"point"`
}

// Room is one independently scanned room: its wall planes, its source
// cloud, its corners, and the cumulative transform from its as-loaded pose
// to its current pose. Name is the source path, informational only.
type Room struct {
	ID        ID       `json:"id"`
	Planes    []*Plane `json:"planes"`
	Cloud     *Cloud   `json:"cloud"`
	Corners   []Corner `json:"corners"`   // accepted, 8 for a closed cuboid
	Suggested []Corner `json:"suggested"` // pending user acceptance
	Pose      sdf.M44  `json:"-"`         // cumulative as-loaded -> current
	Name      string   `json:"name"`
}

// NewRoom creates a room at its as-loaded pose (identity cumulative
// transform).
func NewRoom(id ID, name string) *Room {
	return &Room{ID: id, Pose: geom.Identity(), Name: name}
}

// MeanPoint returns the room's own center: the cloud centroid when a cloud
// is present, otherwise the mean of the wall-plane mean points. Rotation
// commands pivot here so they feel anchored to the object.
func (r *Room) MeanPoint() v3.Vec {
	if r.Cloud != nil && len(r.Cloud.Points) > 0 {
		return geom.Centroid(r.Cloud.Points)
	}
	var pts []v3.Vec
	for _, p := range r.Planes {
		pts = append(pts, p.MeanPoint())
	}
	return geom.Centroid(pts)
}

// Plane returns the owned plane with the given ID, or nil.
func (r *Room) Plane(id ID) *Plane {
	for _, p := range r.Planes {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AcceptCorner moves a suggested corner into the accepted set. Reports an
// input error if the ID is not currently suggested.
func (r *Room) AcceptCorner(id ID) error {
	for i, c := range r.Suggested {
		if c.ID == id {
			r.Suggested = append(r.Suggested[:i], r.Suggested[i+1:]...)
			r.Corners = append(r.Corners, c)
			return nil
		}
	}
	return fmt.Errorf("room %d: corner %d is not suggested", r.ID, id)
}

// Clone returns a deep copy.
func (r *Room) Clone() *Room {
	c := *r
	c.Planes = make([]*Plane, len(r.Planes))
	for i, p := range r.Planes {
		c.Planes[i] = p.Clone()
	}
	if r.Cloud != nil {
		c.Cloud = r.Cloud.Clone()
	}
	c.Corners = append([]Corner(nil), r.Corners...)
	c.Suggested = append([]Corner(nil), r.Suggested...)
	return &c
}

// checkInvariants panics on states that can only arise from a programming
// error: duplicate plane IDs or overlapping accepted/suggested corner sets.
func (r *Room) checkInvariants() {
	seen := make(map[ID]struct{}, len(r.Planes))
	for _, p := range r.Planes {
		if _, dup := seen[p.ID]; dup {
			panic(fmt.Sprintf("scene: room %d has duplicate plane ID %d", r.ID, p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	accepted := make(map[ID]struct{}, len(r.Corners))
	for _, c := range r.Corners {
		accepted[c.ID] = struct{}{}
	}
	for _, c := range r.Suggested {
		if _, dup := accepted[c.ID]; dup {
			panic(fmt.Sprintf("scene: room %d corner %d is both accepted and suggested", r.ID, c.ID))
		}
	}
}
