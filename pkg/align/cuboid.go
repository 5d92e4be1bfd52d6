package align

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
)

// ErrNeedEightCorners is reported when cuboid fitting is attempted with a
// corner count other than 8.
var ErrNeedEightCorners = errors.New("align: cuboid fit needs exactly 8 corners")

// Cuboid is a fitted oriented box.
type Cuboid struct {
	Center      v3.Vec
	HalfExtents v3.Vec
	Orientation geom.Quat
	Iterations  int
	Residual    float64 // RMS corner-to-fitted-corner distance
}

// CuboidFitter fits an oriented cuboid to 8 accepted room corners.
type CuboidFitter interface {
	Fit(corners []v3.Vec) (Cuboid, error)
}

// LeastSquaresFitter is the default CuboidFitter: a PCA seed refined by
// alternating face-group axis re-estimation until the residual stops
// improving.
type LeastSquaresFitter struct {
	MaxIterations int
}

// DefaultFitter returns a LeastSquaresFitter with the default iteration cap.
func DefaultFitter() *LeastSquaresFitter {
	return &LeastSquaresFitter{MaxIterations: 20}
}

const fitConvergeEps = 1e-10

// Fit implements CuboidFitter.
func (f *LeastSquaresFitter) Fit(corners []v3.Vec) (Cuboid, error) {
	if len(corners) != 8 {
		return Cuboid{}, fmt.Errorf("%w: got %d", ErrNeedEightCorners, len(corners))
	}
	maxIter := f.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}

	center := geom.Centroid(corners)
	axes, err := geom.PrincipalAxes(corners)
	if err != nil {
		return Cuboid{}, err
	}

	best := evaluate(corners, center, axes)
	iterations := 1
	for ; iterations < maxIter; iterations++ {
		axes = refineAxes(corners, center, axes)
		next := evaluate(corners, center, axes)
		if best.Residual-next.Residual < fitConvergeEps {
			if next.Residual < best.Residual {
				best = next
			}
			break
		}
		best = next
	}
	best.Iterations = iterations
	return best, nil
}

// evaluate measures a candidate frame: half-extents are the mean absolute
// corner coordinates per axis, the residual the RMS distance between each
// corner and its ideal octant corner.
func evaluate(corners []v3.Vec, center v3.Vec, axes [3]v3.Vec) Cuboid {
	var ext [3]float64
	coords := make([][3]float64, len(corners))
	for i, p := range corners {
		d := p.Sub(center)
		for j := 0; j < 3; j++ {
			coords[i][j] = axes[j].Dot(d)
			ext[j] += math.Abs(coords[i][j])
		}
	}
	for j := 0; j < 3; j++ {
		ext[j] /= float64(len(corners))
	}

	var sq float64
	for i, p := range corners {
		ideal := center
		for j := 0; j < 3; j++ {
			s := 1.0
			if coords[i][j] < 0 {
				s = -1
			}
			ideal = ideal.Add(axes[j].MulScalar(s * ext[j]))
		}
		sq += p.Sub(ideal).Length2()
	}

	return Cuboid{
		Center:      center,
		HalfExtents: v3.Vec{X: ext[0], Y: ext[1], Z: ext[2]},
		Orientation: geom.QuatFromAxes(axes),
		Residual:    math.Sqrt(sq / float64(len(corners))),
	}
}

// refineAxes re-estimates each axis as the direction between the two
// opposing face groups (corners split by coordinate sign on that axis),
// then re-orthonormalizes the frame.
func refineAxes(corners []v3.Vec, center v3.Vec, axes [3]v3.Vec) [3]v3.Vec {
	var raw [3]v3.Vec
	for j := 0; j < 3; j++ {
		var pos, neg v3.Vec
		var npos, nneg int
		for _, p := range corners {
			d := p.Sub(center)
			if axes[j].Dot(d) >= 0 {
				pos = pos.Add(d)
				npos++
			} else {
				neg = neg.Add(d)
				nneg++
			}
		}
		if npos == 0 || nneg == 0 {
			raw[j] = axes[j]
			continue
		}
		raw[j] = pos.DivScalar(float64(npos)).Sub(neg.DivScalar(float64(nneg))).Normalize()
	}

	// Gram-Schmidt, keeping the frame right-handed.
	a0 := raw[0]
	a1 := raw[1].Sub(a0.MulScalar(a0.Dot(raw[1]))).Normalize()
	a2 := a0.Cross(a1)
	return [3]v3.Vec{a0, a1, a2}
}
