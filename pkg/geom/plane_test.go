package geom

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const tol = 1e-9

func vecNear(a, b v3.Vec, eps float64) bool {
	return a.Sub(b).Length() < eps
}

func TestNewPlaneEqNormalizes(t *testing.T) {
	e := NewPlaneEq(v3.Vec{X: 0, Y: 0, Z: 10}, v3.Vec{X: 1, Y: 2, Z: 3})
	if math.Abs(e.Normal.Length()-1) > tol {
		t.Errorf("normal length = %f, want 1", e.Normal.Length())
	}
	if math.Abs(e.Offset-3) > tol {
		t.Errorf("offset = %f, want 3", e.Offset)
	}
}

func TestSignedDistanceAndProject(t *testing.T) {
	// The z=5 plane with +z orientation.
	e := PlaneEq{Normal: v3.Vec{Z: 1}, Offset: 5}

	tests := []struct {
		name string
		p    v3.Vec
		dist float64
		foot v3.Vec
	}{
		{"above", v3.Vec{X: 1, Y: 2, Z: 8}, 3, v3.Vec{X: 1, Y: 2, Z: 5}},
		{"below", v3.Vec{X: -4, Y: 0, Z: 1}, -4, v3.Vec{X: -4, Y: 0, Z: 5}},
		{"on", v3.Vec{X: 7, Y: 7, Z: 5}, 0, v3.Vec{X: 7, Y: 7, Z: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := e.SignedDistance(tt.p); math.Abs(d-tt.dist) > tol {
				t.Errorf("SignedDistance = %f, want %f", d, tt.dist)
			}
			if f := e.Project(tt.p); !vecNear(f, tt.foot, tol) {
				t.Errorf("Project = %v, want %v", f, tt.foot)
			}
		})
	}
}

func TestFlipIsDistinctAndInvolutive(t *testing.T) {
	e := NewPlaneEq(v3.Vec{X: 1, Y: 1, Z: 0}, v3.Vec{X: 2, Y: 0, Z: 0})
	f := e.Flip()

	if !vecNear(f.Normal, e.Normal.Neg(), tol) || math.Abs(f.Offset+e.Offset) > tol {
		t.Errorf("Flip did not negate both normal and offset: %v vs %v", f, e)
	}
	// The surface is the same: distances swap sign.
	p := v3.Vec{X: 3, Y: -1, Z: 2}
	if math.Abs(e.SignedDistance(p)+f.SignedDistance(p)) > tol {
		t.Error("flipped plane should negate signed distances")
	}
	if ff := f.Flip(); !vecNear(ff.Normal, e.Normal, tol) || math.Abs(ff.Offset-e.Offset) > tol {
		t.Error("double flip should restore the original equation")
	}
}

func TestFitPlaneTooFewPoints(t *testing.T) {
	_, err := FitPlane([]v3.Vec{{X: 1}, {Y: 1}})
	if !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("err = %v, want ErrTooFewPoints", err)
	}
}

func TestFitPlaneExact(t *testing.T) {
	// Points on x + y + z = 3.
	want := NewPlaneEq(v3.Vec{X: 1, Y: 1, Z: 1}, v3.Vec{X: 1, Y: 1, Z: 1})
	pts := []v3.Vec{
		{X: 3, Y: 0, Z: 0},
		{X: 0, Y: 3, Z: 0},
		{X: 0, Y: 0, Z: 3},
		{X: 1, Y: 1, Z: 1},
	}
	got, err := FitPlane(pts)
	if err != nil {
		t.Fatalf("FitPlane: %v", err)
	}
	// Eigenvector sign is arbitrary; compare up to orientation.
	dot := got.Normal.Dot(want.Normal)
	if math.Abs(math.Abs(dot)-1) > 1e-9 {
		t.Errorf("normal = %v, want ±%v", got.Normal, want.Normal)
	}
	if math.Abs(math.Abs(got.Offset)-math.Abs(want.Offset)) > 1e-9 {
		t.Errorf("offset = %f, want ±%f", got.Offset, want.Offset)
	}
}

func TestFitPlaneNoiseRecovery(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	trueNormal := v3.Vec{X: 0.2, Y: -0.4, Z: 0.894}.Normalize()
	e := NewPlaneEq(trueNormal, v3.Vec{X: 5, Y: -2, Z: 1})

	// Angular error must shrink as the noise does.
	var lastAngle = math.Pi
	for _, sigma := range []float64{0.1, 0.01, 0.001} {
		pts := make([]v3.Vec, 0, 200)
		for i := 0; i < 200; i++ {
			p := v3.Vec{X: rng.Float64()*10 - 5, Y: rng.Float64()*10 - 5}
			p = e.Project(p).Add(trueNormal.MulScalar(rng.NormFloat64() * sigma))
			pts = append(pts, p)
		}
		got, err := FitPlane(pts)
		if err != nil {
			t.Fatalf("FitPlane(sigma=%g): %v", sigma, err)
		}
		angle := math.Acos(math.Min(1, math.Abs(got.Normal.Dot(trueNormal))))
		if angle > 0.05 {
			t.Errorf("sigma=%g: angular error %f too large", sigma, angle)
		}
		if angle > lastAngle+1e-3 {
			t.Errorf("sigma=%g: angular error %f did not shrink (previous %f)", sigma, angle, lastAngle)
		}
		lastAngle = angle
	}
}

func TestIntersectThreeOrthogonal(t *testing.T) {
	want := v3.Vec{X: 2, Y: -3, Z: 7}
	px := NewPlaneEq(v3.Vec{X: 1}, want)
	py := NewPlaneEq(v3.Vec{Y: 1}, want)
	pz := NewPlaneEq(v3.Vec{Z: 1}, want)

	got, err := IntersectThree(px, py, pz)
	if err != nil {
		t.Fatalf("IntersectThree: %v", err)
	}
	if !vecNear(got, want, 1e-12) {
		t.Errorf("intersection = %v, want %v", got, want)
	}
}

func TestIntersectThreeDegenerate(t *testing.T) {
	p1 := NewPlaneEq(v3.Vec{Z: 1}, v3.Vec{Z: 1})
	p3 := NewPlaneEq(v3.Vec{X: 1}, v3.Vec{X: 4})

	tests := []struct {
		name string
		a, b PlaneEq
	}{
		{"identical planes", p1, p1},
		{"parallel planes", p1, NewPlaneEq(v3.Vec{Z: 1}, v3.Vec{Z: 2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := IntersectThree(tt.a, tt.b, p3); !errors.Is(err, ErrNoSolution) {
				t.Errorf("err = %v, want ErrNoSolution", err)
			}
		})
	}
}

func TestCentroidAndMaxDistance(t *testing.T) {
	pts := []v3.Vec{{X: 1}, {X: -1}, {Y: 2}, {Y: -2}}
	c := Centroid(pts)
	if !vecNear(c, v3.Vec{}, tol) {
		t.Errorf("centroid = %v, want origin", c)
	}
	if d := MaxDistance(c, pts); math.Abs(d-2) > tol {
		t.Errorf("max distance = %f, want 2", d)
	}
	if !vecNear(Centroid(nil), v3.Vec{}, tol) {
		t.Error("empty centroid should be the zero vector")
	}
}
