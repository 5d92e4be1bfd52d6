package geom

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrTooFewPoints is returned by FitPlane when fewer than 3 points are given.
var ErrTooFewPoints = errors.New("geom: plane fit needs at least 3 points")

// ErrNoSolution is returned by IntersectThree for a numerically singular
// system (parallel or near-parallel planes).
var ErrNoSolution = errors.New("geom: planes do not meet in a single point")

// singularEps is the determinant threshold below which a 3-plane system is
// treated as degenerate.
const singularEps = 1e-9

// PlaneEq is a plane in Hessian normal form: Normal·p = Offset for every
// point p on the plane. Normal has unit length. The sign of the pair
// (Normal, Offset) distinguishes the two orientations of the same surface,
// so flipping a plane is a separate operation from any rigid transform.
type PlaneEq struct {
	Normal v3.Vec  `json:"normal"`
	Offset float64 `json:"offset"`
}

// NewPlaneEq builds a PlaneEq from an arbitrary (non-zero) normal and a
// point on the plane, normalizing the normal.
func NewPlaneEq(normal, point v3.Vec) PlaneEq {
	n := normal.Normalize()
	return PlaneEq{Normal: n, Offset: n.Dot(point)}
}

// Anchor returns a point on the plane, the foot of the perpendicular from
// the origin. Transforms re-derive the offset from this point rather than
// extrapolating the old offset, so floating error does not compound across
// repeated transforms.
func (e PlaneEq) Anchor() v3.Vec {
	return e.Normal.MulScalar(e.Offset)
}

// SignedDistance returns the signed distance from p to the plane, positive
// on the side the normal points into.
func (e PlaneEq) SignedDistance(p v3.Vec) float64 {
	return e.Normal.Dot(p) - e.Offset
}

// Project returns the foot of the perpendicular from p onto the plane.
func (e PlaneEq) Project(p v3.Vec) v3.Vec {
	return p.Sub(e.Normal.MulScalar(e.SignedDistance(p)))
}

// Flip reverses the plane orientation: the surface is unchanged but the
// positive side swaps. Used when a detected face points the wrong way.
func (e PlaneEq) Flip() PlaneEq {
	return PlaneEq{Normal: e.Normal.Neg(), Offset: -e.Offset}
}

func (e PlaneEq) String() string {
	return fmt.Sprintf("plane(n=(%.4f,%.4f,%.4f) d=%.4f)", e.Normal.X, e.Normal.Y, e.Normal.Z, e.Offset)
}

// FitPlane computes the total-least-squares plane through the given points:
// centroid subtraction, 3x3 scatter matrix, eigenvector of the smallest
// eigenvalue as normal. Returns ErrTooFewPoints for fewer than 3 points.
func FitPlane(points []v3.Vec) (PlaneEq, error) {
	if len(points) < 3 {
		return PlaneEq{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}

	centroid := Centroid(points)

	var s [3][3]float64
	for _, p := range points {
		d := p.Sub(centroid)
		c := [3]float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				s[i][j] += c[i] * c[j]
			}
		}
	}

	normal, err := smallestEigenvector(s)
	if err != nil {
		return PlaneEq{}, err
	}
	return NewPlaneEq(normal, centroid), nil
}

// IntersectThree solves the linear system formed by three plane equations
// and returns their unique intersection point. A near-singular system
// (parallel planes, coincident planes) yields ErrNoSolution rather than an
// arbitrary point. Evaluated at double precision by Cramer's rule.
func IntersectThree(p1, p2, p3 PlaneEq) (v3.Vec, error) {
	n1, n2, n3 := p1.Normal, p2.Normal, p3.Normal

	det := n1.Dot(n2.Cross(n3))
	if math.Abs(det) < singularEps {
		return v3.Vec{}, ErrNoSolution
	}

	// p = (d1 (n2 x n3) + d2 (n3 x n1) + d3 (n1 x n2)) / det
	p := n2.Cross(n3).MulScalar(p1.Offset).
		Add(n3.Cross(n1).MulScalar(p2.Offset)).
		Add(n1.Cross(n2).MulScalar(p3.Offset)).
		DivScalar(det)
	return p, nil
}

// Centroid returns the mean of the given points, or the zero vector for an
// empty slice.
func Centroid(points []v3.Vec) v3.Vec {
	if len(points) == 0 {
		return v3.Vec{}
	}
	var sum v3.Vec
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.DivScalar(float64(len(points)))
}

// MaxDistance returns the largest distance from center to any of the points.
func MaxDistance(center v3.Vec, points []v3.Vec) float64 {
	var max float64
	for _, p := range points {
		if d := p.Sub(center).Length(); d > max {
			max = d
		}
	}
	return max
}
