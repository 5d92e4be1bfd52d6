package scene

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
)

// Transform propagation. Every operation is total over its entity kind and
// returns a fresh clone, leaving the input untouched (replace-on-write).
// Room operations fold the applied transform into the cumulative pose:
// pose' = m.Mul(pose), so the pose always maps the as-loaded pose to the
// current one.

// ApplyPlane applies a rigid transform to a plane: boundary points plus the
// plane equation via the anchored-offset rule.
func ApplyPlane(m sdf.M44, p *Plane) *Plane {
	c := p.Clone()
	c.Eq = geom.TransformPlane(m, p.Eq)
	c.Boundary = geom.TransformPoints(m, p.Boundary)
	return c
}

// ApplyCloud applies a rigid transform to every cloud point.
func ApplyCloud(m sdf.M44, cl *Cloud) *Cloud {
	c := cl.Clone()
	c.Points = geom.TransformPoints(m, cl.Points)
	return c
}

// ApplyRoom applies a transform (always relative to the world origin) to
// every point-bearing field of the room and pre-composes the cumulative
// pose. This is the single primitive behind translate/rotate/project.
func ApplyRoom(m sdf.M44, r *Room) *Room {
	c := r.Clone()
	for i, p := range r.Planes {
		c.Planes[i] = ApplyPlane(m, p)
	}
	if r.Cloud != nil {
		c.Cloud = ApplyCloud(m, r.Cloud)
	}
	for i, cr := range r.Corners {
		c.Corners[i] = Corner{ID: cr.ID, Point: geom.TransformPoint(m, cr.Point)}
	}
	for i, cr := range r.Suggested {
		c.Suggested[i] = Corner{ID: cr.ID, Point: geom.TransformPoint(m, cr.Point)}
	}
	c.Pose = m.Mul(r.Pose)
	return c
}

// TranslateRoom moves the room by v.
func TranslateRoom(v v3.Vec, r *Room) *Room {
	return ApplyRoom(geom.Translation(v), r)
}

// RotateRoomAround rotates the room about an arbitrary center.
func RotateRoomAround(center v3.Vec, rotation sdf.M44, r *Room) *Room {
	return ApplyRoom(geom.RotationAround(center, rotation), r)
}

// RotateRoom rotates the room about its own mean point.
func RotateRoom(rotation sdf.M44, r *Room) *Room {
	return RotateRoomAround(r.MeanPoint(), rotation, r)
}

// TranslatePlane moves a free plane by v.
func TranslatePlane(v v3.Vec, p *Plane) *Plane {
	return ApplyPlane(geom.Translation(v), p)
}

// RotatePlane rotates a free plane about its own mean point.
func RotatePlane(rotation sdf.M44, p *Plane) *Plane {
	return ApplyPlane(geom.RotationAround(p.MeanPoint(), rotation), p)
}
