package persist

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/scene"
	"github.com/chazu/roomweld/pkg/walls"
)

// Conversions between the live model and the current persisted shapes.
// Encoding always writes the newest version.

func encodeVec(v v3.Vec) Vec3R { return Vec3R{v.X, v.Y, v.Z} }

func decodeVec(v Vec3R) v3.Vec { return v3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func encodeVecs(vs []v3.Vec) []Vec3R {
	out := make([]Vec3R, len(vs))
	for i, v := range vs {
		out[i] = encodeVec(v)
	}
	return out
}

func decodeVecs(vs []Vec3R) []v3.Vec {
	out := make([]v3.Vec, len(vs))
	for i, v := range vs {
		out[i] = decodeVec(v)
	}
	return out
}

func encodePlane(p *scene.Plane) PlaneRec {
	return PlaneRec{
		ID:       uint32(p.ID),
		Normal:   encodeVec(p.Eq.Normal),
		Offset:   p.Eq.Offset,
		Color:    p.Color,
		Boundary: encodeVecs(p.Boundary),
	}
}

func decodePlane(r PlaneRec) *scene.Plane {
	return &scene.Plane{
		ID:       scene.ID(r.ID),
		Eq:       geom.PlaneEq{Normal: decodeVec(r.Normal), Offset: r.Offset},
		Color:    r.Color,
		Boundary: decodeVecs(r.Boundary),
	}
}

func encodeCloud(c *scene.Cloud) CloudRec {
	rec := CloudRec{ID: uint32(c.ID), Points: encodeVecs(c.Points)}
	switch col := c.Color.(type) {
	case scene.UniformColor:
		rec.Uniform = &[3]uint8{col.R, col.G, col.B}
	case scene.PerPointColors:
		rec.PerPoint = make([][3]uint8, len(col))
		for i, rgb := range col {
			rec.PerPoint[i] = [3]uint8{rgb.R, rgb.G, rgb.B}
		}
	}
	return rec
}

func decodeCloud(r CloudRec) *scene.Cloud {
	c := &scene.Cloud{ID: scene.ID(r.ID), Points: decodeVecs(r.Points)}
	switch {
	case r.Uniform != nil:
		c.Color = scene.UniformColor{R: r.Uniform[0], G: r.Uniform[1], B: r.Uniform[2]}
	case r.PerPoint != nil:
		pc := make(scene.PerPointColors, len(r.PerPoint))
		for i, rgb := range r.PerPoint {
			pc[i] = scene.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}
		}
		c.Color = pc
	}
	return c
}

func encodeCorners(cs []scene.Corner) []CornerRec {
	out := make([]CornerRec, len(cs))
	for i, c := range cs {
		out[i] = CornerRec{ID: uint32(c.ID), Point: encodeVec(c.Point)}
	}
	return out
}

func decodeCorners(rs []CornerRec) []scene.Corner {
	out := make([]scene.Corner, len(rs))
	for i, r := range rs {
		out[i] = scene.Corner{ID: scene.ID(r.ID), Point: decodeVec(r.Point)}
	}
	return out
}

func encodeRoom(r *scene.Room) RoomRecord {
	v4 := RoomV4{
		ID:        uint32(r.ID),
		Planes:    make([]PlaneRec, len(r.Planes)),
		Corners:   encodeCorners(r.Corners),
		Suggested: encodeCorners(r.Suggested),
		Pose:      geom.RowMajor(r.Pose),
		Name:      r.Name,
	}
	for i, p := range r.Planes {
		v4.Planes[i] = encodePlane(p)
	}
	if r.Cloud != nil {
		v4.Cloud = encodeCloud(r.Cloud)
	} else {
		v4.Cloud.ID = uint32(scene.NoID) // no cloud
	}
	return RoomRecord{Version: roomVersion, V4: &v4}
}

func decodeRoom(rec RoomRecord) (*scene.Room, error) {
	v4, err := currentRoom(rec)
	if err != nil {
		return nil, err
	}
	r := &scene.Room{
		ID:        scene.ID(v4.ID),
		Planes:    make([]*scene.Plane, len(v4.Planes)),
		Corners:   decodeCorners(v4.Corners),
		Suggested: decodeCorners(v4.Suggested),
		Pose:      geom.FromRowMajor(v4.Pose),
		Name:      v4.Name,
	}
	for i, p := range v4.Planes {
		r.Planes[i] = decodePlane(p)
	}
	if v4.Cloud.ID != uint32(scene.NoID) {
		r.Cloud = decodeCloud(v4.Cloud)
	}
	return r, nil
}

func encodeEdge(e walls.Edge) WallRecord {
	v2 := WallRelationV2{
		Axis:   uint8(e.Axis),
		PlaneA: uint32(e.A),
		PlaneB: uint32(e.B),
	}
	switch rel := e.Rel.(type) {
	case walls.Opposite:
		v2.Kind = wallOpposite
		v2.Gap = rel.Gap
	default:
		v2.Kind = wallSame
	}
	return WallRecord{Version: wallVersion, V2: &v2}
}

func decodeEdge(rec WallRecord) (walls.Edge, error) {
	v2, err := currentWall(rec)
	if err != nil {
		return walls.Edge{}, err
	}
	if v2.Axis > uint8(geom.AxisZ) {
		return walls.Edge{}, fmt.Errorf("persist: wall axis %d out of range", v2.Axis)
	}
	e := walls.Edge{
		Axis: geom.Axis(v2.Axis),
		A:    scene.ID(v2.PlaneA),
		B:    scene.ID(v2.PlaneB),
	}
	switch v2.Kind {
	case wallSame:
		e.Rel = walls.Same{}
	case wallOpposite:
		e.Rel = walls.Opposite{Gap: v2.Gap}
	default:
		return walls.Edge{}, fmt.Errorf("persist: unknown wall relation kind %d", v2.Kind)
	}
	return e, nil
}
