package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis is a world coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Unit returns the unit vector along the axis.
func (a Axis) Unit() v3.Vec {
	switch a {
	case AxisX:
		return v3.Vec{X: 1}
	case AxisY:
		return v3.Vec{Y: 1}
	default:
		return v3.Vec{Z: 1}
	}
}

// Component returns the component of v along the axis.
func (a Axis) Component(v v3.Vec) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// DominantAxis returns the world axis with the largest absolute component
// of v, e.g. the facing axis of a wall normal.
func DominantAxis(v v3.Vec) Axis {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax >= ay && ax >= az:
		return AxisX
	case ay >= az:
		return AxisY
	default:
		return AxisZ
	}
}

// Transforms are sdf.M44 values in the sdfx column-vector convention:
// MulPosition computes M·p, and composition reads right to left. A room's
// cumulative transform maps its as-loaded pose to its current pose, so
// applying a new operation T pre-composes it: cum' = T.Mul(cum).

// Identity returns the identity transform.
func Identity() sdf.M44 {
	return sdf.Identity3d()
}

// Translation returns the transform that adds v to every point.
func Translation(v v3.Vec) sdf.M44 {
	return sdf.Translate3d(v)
}

// RotationAbout returns a rotation of angle radians about the given axis
// direction through the world origin.
func RotationAbout(axis v3.Vec, angle float64) sdf.M44 {
	return sdf.Rotate3d(axis, angle)
}

// RotationAround conjugates a rotation so it pivots about center instead of
// the world origin: translate center to the origin, rotate, translate back.
func RotationAround(center v3.Vec, rotation sdf.M44) sdf.M44 {
	return sdf.Translate3d(center).Mul(rotation).Mul(sdf.Translate3d(center.Neg()))
}

// TransformPoint applies m to a point.
func TransformPoint(m sdf.M44, p v3.Vec) v3.Vec {
	return m.MulPosition(p)
}

// TransformPoints applies m to every point, returning a new slice.
func TransformPoints(m sdf.M44, points []v3.Vec) []v3.Vec {
	out := make([]v3.Vec, len(points))
	for i, p := range points {
		out[i] = m.MulPosition(p)
	}
	return out
}

// TransformPlane applies a rigid transform to a plane equation. The normal
// is carried by the rotation part and re-normalized, and the offset is
// re-derived from the transformed anchor point, preserving the unit-normal
// invariant and the orientation sign.
func TransformPlane(m sdf.M44, e PlaneEq) PlaneEq {
	anchor := m.MulPosition(e.Anchor())
	normal := m.MulPosition(e.Anchor().Add(e.Normal)).Sub(anchor).Normalize()
	return PlaneEq{Normal: normal, Offset: normal.Dot(anchor)}
}

// RowMajor renders a rigid/affine transform as the standard row-major 4x4
// matrix (translation in the last column, bottom row 0 0 0 1). The matrix is
// reconstructed from basis images so the M44 representation stays opaque.
func RowMajor(m sdf.M44) [16]float64 {
	o := m.MulPosition(v3.Vec{})
	ex := m.MulPosition(v3.Vec{X: 1}).Sub(o)
	ey := m.MulPosition(v3.Vec{Y: 1}).Sub(o)
	ez := m.MulPosition(v3.Vec{Z: 1}).Sub(o)
	return [16]float64{
		ex.X, ey.X, ez.X, o.X,
		ex.Y, ey.Y, ez.Y, o.Y,
		ex.Z, ey.Z, ez.Z, o.Z,
		0, 0, 0, 1,
	}
}

// FromRowMajor rebuilds a rigid transform from its row-major rendering.
// The linear part must be a rotation; it is converted through a quaternion
// to an axis-angle rotation and recomposed with the translation.
func FromRowMajor(r [16]float64) sdf.M44 {
	q := quatFromColumns(
		v3.Vec{X: r[0], Y: r[4], Z: r[8]},
		v3.Vec{X: r[1], Y: r[5], Z: r[9]},
		v3.Vec{X: r[2], Y: r[6], Z: r[10]},
	)
	rot := q.rotation()
	return sdf.Translate3d(v3.Vec{X: r[3], Y: r[7], Z: r[11]}).Mul(rot)
}

// Quat is a unit quaternion (W scalar part), used to report cuboid
// orientations and to rebuild rotations from persisted matrices.
type Quat struct {
	W, X, Y, Z float64
}

// rotation converts the quaternion to an axis-angle rotation matrix.
func (q Quat) rotation() sdf.M44 {
	s := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if s < 1e-12 {
		return sdf.Identity3d()
	}
	w := q.W
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	angle := 2 * math.Atan2(s, w)
	axis := v3.Vec{X: q.X, Y: q.Y, Z: q.Z}.DivScalar(s)
	return sdf.Rotate3d(axis, angle)
}

// quatFromColumns builds the unit quaternion of the rotation whose columns
// are cx, cy, cz. Shepperd's method: branch on the largest diagonal term
// for numerical stability.
func quatFromColumns(cx, cy, cz v3.Vec) Quat {
	m00, m01, m02 := cx.X, cy.X, cz.X
	m10, m11, m12 := cx.Y, cy.Y, cz.Y
	m20, m21, m22 := cx.Z, cy.Z, cz.Z

	tr := m00 + m11 + m22
	var q Quat
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = Quat{W: s / 4, X: (m21 - m12) / s, Y: (m02 - m20) / s, Z: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = Quat{W: (m21 - m12) / s, X: s / 4, Y: (m01 + m10) / s, Z: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = Quat{W: (m02 - m20) / s, X: (m01 + m10) / s, Y: s / 4, Z: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = Quat{W: (m10 - m01) / s, X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: s / 4}
	}
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// QuatFromAxes builds the quaternion of the rotation carrying the world
// axes onto the given orthonormal right-handed basis.
func QuatFromAxes(axes [3]v3.Vec) Quat {
	return quatFromColumns(axes[0], axes[1], axes[2])
}

// PrincipalAxes returns the principal directions of a point set (unit
// eigenvectors of the centered scatter matrix, descending eigenvalue,
// right-handed).
func PrincipalAxes(points []v3.Vec) ([3]v3.Vec, error) {
	c := Centroid(points)
	var s [3][3]float64
	for _, p := range points {
		d := p.Sub(c)
		v := [3]float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				s[i][j] += v[i] * v[j]
			}
		}
	}
	return principalAxes(s)
}
