package align

import (
	"errors"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/scene"
	"github.com/chazu/roomweld/pkg/solve"
	"github.com/chazu/roomweld/pkg/walls"
)

// boxRoom builds a cuboid room: 6 outward-facing wall planes around center
// with the given half-extent, and the 8 box corners as its cloud.
func boxRoom(a *scene.Allocator, center v3.Vec, half float64) *scene.Room {
	r := scene.NewRoom(a.Next(), "test-box")
	normals := []v3.Vec{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
	}
	for i, n := range normals {
		r.Planes = append(r.Planes, &scene.Plane{
			ID:    a.Next(),
			Eq:    geom.NewPlaneEq(n, center.Add(n.MulScalar(half))),
			Color: scene.PaletteColor(i),
		})
	}
	var pts []v3.Vec
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				pts = append(pts, center.Add(v3.Vec{X: sx * half, Y: sy * half, Z: sz * half}))
			}
		}
	}
	r.Cloud = &scene.Cloud{ID: a.Next(), Color: scene.UniformColor{R: 128, G: 128, B: 128}, Points: pts}
	return r
}

// wallFacing returns the room's wall plane whose outward normal is closest
// to dir.
func wallFacing(r *scene.Room, dir v3.Vec) *scene.Plane {
	best := r.Planes[0]
	for _, p := range r.Planes {
		if p.Eq.Normal.Dot(dir) > best.Eq.Normal.Dot(dir) {
			best = p
		}
	}
	return best
}

func TestOptimizeSameWallsCoincide(t *testing.T) {
	var a scene.Allocator
	s := scene.NewStore(&a)
	ra := boxRoom(&a, v3.Vec{}, 1)
	rb := boxRoom(&a, v3.Vec{X: 5}, 1)
	s.PutRoom(ra)
	s.PutRoom(rb)

	g := walls.New()
	_, err := g.Connect(wallFacing(ra, v3.Vec{X: 1}), wallFacing(rb, v3.Vec{X: -1}), walls.Same{})
	require.NoError(t, err)

	rep := New(s, g).Optimize()
	require.Empty(t, rep.Failed())

	// Anchor: room A (smaller ID) stays put, B's x=4 wall moves onto A's
	// x=1 wall, so B's center lands at x=2.
	assert.InDelta(t, 0, s.Room(ra.ID).MeanPoint().X, 1e-9)
	assert.InDelta(t, 2, s.Room(rb.ID).MeanPoint().X, 1e-9)

	// The walls are now coincident.
	wa := wallFacing(s.Room(ra.ID), v3.Vec{X: 1})
	wb := wallFacing(s.Room(rb.ID), v3.Vec{X: -1})
	assert.InDelta(t, wa.Eq.Project(v3.Vec{}).X, wb.Eq.Project(v3.Vec{}).X, 1e-9)

	// Other axes are untouched.
	assert.InDelta(t, 0, s.Room(rb.ID).MeanPoint().Y, 1e-9)
	assert.InDelta(t, 0, s.Room(rb.ID).MeanPoint().Z, 1e-9)
}

func TestOptimizeOppositeGap(t *testing.T) {
	var a scene.Allocator
	s := scene.NewStore(&a)
	ra := boxRoom(&a, v3.Vec{}, 1)
	rb := boxRoom(&a, v3.Vec{X: 10}, 1)
	s.PutRoom(ra)
	s.PutRoom(rb)

	const gap = 0.3
	g := walls.New()
	_, err := g.Connect(wallFacing(ra, v3.Vec{X: 1}), wallFacing(rb, v3.Vec{X: -1}), walls.Opposite{Gap: gap})
	require.NoError(t, err)

	rep := New(s, g).Optimize()
	require.Empty(t, rep.Failed())

	// B's near wall ends up one gap beyond A's wall at x=1.
	wb := wallFacing(s.Room(rb.ID), v3.Vec{X: -1})
	assert.InDelta(t, 1+gap, wb.Eq.Project(v3.Vec{}).X, 1e-9)
}

func TestOptimizeComponentsStayIndependent(t *testing.T) {
	// Two disjoint pairs on the same axis: optimizing must not pull the
	// pairs toward a shared anchor.
	var a scene.Allocator
	s := scene.NewStore(&a)
	r1 := boxRoom(&a, v3.Vec{}, 1)
	r2 := boxRoom(&a, v3.Vec{X: 5}, 1)
	r3 := boxRoom(&a, v3.Vec{X: 100}, 1)
	r4 := boxRoom(&a, v3.Vec{X: 107}, 1)
	for _, r := range []*scene.Room{r1, r2, r3, r4} {
		s.PutRoom(r)
	}

	g := walls.New()
	_, err := g.Connect(wallFacing(r1, v3.Vec{X: 1}), wallFacing(r2, v3.Vec{X: -1}), walls.Same{})
	require.NoError(t, err)
	_, err = g.Connect(wallFacing(r3, v3.Vec{X: 1}), wallFacing(r4, v3.Vec{X: -1}), walls.Same{})
	require.NoError(t, err)

	rep := New(s, g).Optimize()
	require.Empty(t, rep.Failed())

	var xAxis AxisResult
	for _, ax := range rep.Axes {
		if ax.Axis == geom.AxisX {
			xAxis = ax
		}
	}
	require.Len(t, xAxis.Components, 2, "disjoint pairs must form two components")

	// Each component anchors on its own first room; the clusters must not
	// collapse onto a shared coordinate.
	assert.InDelta(t, 0, s.Room(r1.ID).MeanPoint().X, 1e-9)
	assert.InDelta(t, 2, s.Room(r2.ID).MeanPoint().X, 1e-9)
	assert.InDelta(t, 100, s.Room(r3.ID).MeanPoint().X, 1e-9)
	assert.InDelta(t, 102, s.Room(r4.ID).MeanPoint().X, 1e-9)
}

// failingSolver fails whenever the constraint set touches a given room.
type failingSolver struct {
	poison uint32
}

func (f failingSolver) Solve(cons solve.Offsets) (solve.Solution, error) {
	for _, c := range cons {
		if c.Pair.A == f.poison || c.Pair.B == f.poison {
			return solve.Solution{}, solve.ErrSingular
		}
	}
	return solve.LeastSquares{}.Solve(cons)
}

func TestOptimizeSingularComponentDoesNotAbortOthers(t *testing.T) {
	var a scene.Allocator
	s := scene.NewStore(&a)
	r1 := boxRoom(&a, v3.Vec{}, 1)
	r2 := boxRoom(&a, v3.Vec{X: 5}, 1)
	r3 := boxRoom(&a, v3.Vec{X: 100}, 1)
	r4 := boxRoom(&a, v3.Vec{X: 107}, 1)
	for _, r := range []*scene.Room{r1, r2, r3, r4} {
		s.PutRoom(r)
	}

	g := walls.New()
	_, err := g.Connect(wallFacing(r1, v3.Vec{X: 1}), wallFacing(r2, v3.Vec{X: -1}), walls.Same{})
	require.NoError(t, err)
	_, err = g.Connect(wallFacing(r3, v3.Vec{X: 1}), wallFacing(r4, v3.Vec{X: -1}), walls.Same{})
	require.NoError(t, err)

	opt := New(s, g)
	opt.Solver = failingSolver{poison: uint32(r1.ID)}
	rep := opt.Optimize()

	failed := rep.Failed()
	require.Len(t, failed, 1)
	assert.True(t, errors.Is(failed[0].Err, solve.ErrSingular))

	// The poisoned component is untouched, the healthy one still solved.
	assert.InDelta(t, 5, s.Room(r2.ID).MeanPoint().X, 1e-9)
	assert.InDelta(t, 102, s.Room(r4.ID).MeanPoint().X, 1e-9)
}

func TestOptimizeSkipsUnresolvableEdges(t *testing.T) {
	var a scene.Allocator
	s := scene.NewStore(&a)
	ra := boxRoom(&a, v3.Vec{}, 1)
	s.PutRoom(ra)

	// Graph references a plane that never entered the store.
	ghost := &scene.Plane{ID: a.Next(), Eq: geom.NewPlaneEq(v3.Vec{X: -1}, v3.Vec{X: 9})}
	g := walls.New()
	_, err := g.Connect(wallFacing(ra, v3.Vec{X: 1}), ghost, walls.Same{})
	require.NoError(t, err)

	rep := New(s, g).Optimize()
	require.Empty(t, rep.Failed())
	var skipped int
	for _, ax := range rep.Axes {
		skipped += len(ax.Skipped)
	}
	assert.Equal(t, 1, skipped)
	assert.InDelta(t, 0, s.Room(ra.ID).MeanPoint().X, 1e-9, "room must not move")
}
