package align

import (
	"fmt"

	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/scene"
	"github.com/chazu/roomweld/pkg/solve"
	"github.com/chazu/roomweld/pkg/walls"
)

// Optimizer computes new room positions from the wall connectivity graph
// and applies them to the store.
type Optimizer struct {
	Store  *scene.Store
	Graph  *walls.Graph
	Solver solve.OffsetSolver
}

// New returns an optimizer over the given store and graph using the
// default dense least-squares solver.
func New(store *scene.Store, graph *walls.Graph) *Optimizer {
	return &Optimizer{Store: store, Graph: graph, Solver: solve.LeastSquares{}}
}

// ComponentResult reports one connected component on one axis. A singular
// component carries its error here and does not abort the others.
type ComponentResult struct {
	Rooms []scene.ID
	RMSE  float64
	Delta map[scene.ID]float64 // applied translation along the axis
	Err   error
}

// AxisResult groups the component results of one world axis.
type AxisResult struct {
	Axis       geom.Axis
	Components []ComponentResult
	Skipped    []SkippedEdge
}

// SkippedEdge is a connectivity edge that could not contribute a
// constraint, e.g. because a plane no longer resolves to a room.
type SkippedEdge struct {
	Edge   walls.Edge
	Reason string
}

// Report is the outcome of one optimization run.
type Report struct {
	Axes []AxisResult
}

// Failed returns every component that could not be solved.
func (r Report) Failed() []ComponentResult {
	var out []ComponentResult
	for _, ax := range r.Axes {
		for _, c := range ax.Components {
			if c.Err != nil {
				out = append(out, c)
			}
		}
	}
	return out
}

// constraint pairs a solver constraint with the rooms that produced it.
type constraint struct {
	roomA, roomB scene.ID
	offset       float64
}

// Optimize solves each axis independently and translates rooms in place
// (through the store, replace-on-write). Rooms of a component are shifted
// so the anchor room — the smallest room ID in the component — keeps its
// pre-optimization coordinate.
func (o *Optimizer) Optimize() Report {
	var rep Report
	for _, axis := range []geom.Axis{geom.AxisX, geom.AxisY, geom.AxisZ} {
		rep.Axes = append(rep.Axes, o.optimizeAxis(axis))
	}
	return rep
}

func (o *Optimizer) optimizeAxis(axis geom.Axis) AxisResult {
	res := AxisResult{Axis: axis}

	var cons []constraint
	for _, e := range o.Graph.OnAxis(axis) {
		c, err := o.deriveConstraint(axis, e)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedEdge{Edge: e, Reason: err.Error()})
			continue
		}
		cons = append(cons, c)
	}
	if len(cons) == 0 {
		return res
	}

	pairs := make([]solve.Pair, len(cons))
	for i, c := range cons {
		pairs[i] = solve.Pair{A: uint32(c.roomA), B: uint32(c.roomB)}
	}

	for _, members := range solve.Components(pairs) {
		res.Components = append(res.Components, o.solveComponent(axis, cons, members))
	}
	return res
}

// deriveConstraint turns one edge into a desired signed offset between the
// two rooms' centers along the axis. With wall-to-center offsets
// oa = wallA - centerA and ob = wallB - centerB, coincident walls require
// centerB - centerA = oa - ob; an Opposite relation additionally separates
// the walls by the gap, signed along plane A's facing direction.
func (o *Optimizer) deriveConstraint(axis geom.Axis, e walls.Edge) (constraint, error) {
	roomA := o.Store.RoomOfPlane(e.A)
	roomB := o.Store.RoomOfPlane(e.B)
	if roomA == nil || roomB == nil {
		return constraint{}, fmt.Errorf("plane %d or %d not owned by a room", e.A, e.B)
	}
	if roomA.ID == roomB.ID {
		return constraint{}, fmt.Errorf("planes %d and %d are walls of the same room %d", e.A, e.B, roomA.ID)
	}
	pa := roomA.Plane(e.A)
	pb := roomB.Plane(e.B)

	ca := roomA.MeanPoint()
	cb := roomB.MeanPoint()
	oa := axis.Component(pa.Eq.Project(ca)) - axis.Component(ca)
	ob := axis.Component(pb.Eq.Project(cb)) - axis.Component(cb)

	offset := oa - ob
	if opp, ok := e.Rel.(walls.Opposite); ok {
		dir := 1.0
		if axis.Component(pa.Eq.Normal) < 0 {
			dir = -1
		}
		offset += opp.Gap * dir
	}
	return constraint{roomA: roomA.ID, roomB: roomB.ID, offset: offset}, nil
}

func (o *Optimizer) solveComponent(axis geom.Axis, cons []constraint, members []uint32) ComponentResult {
	inComp := make(map[scene.ID]bool, len(members))
	rooms := make([]scene.ID, len(members))
	for i, m := range members {
		rooms[i] = scene.ID(m)
		inComp[scene.ID(m)] = true
	}
	result := ComponentResult{Rooms: rooms}

	var sub solve.Offsets
	for _, c := range cons {
		if inComp[c.roomA] && inComp[c.roomB] {
			sub = append(sub, solve.Constraint{
				Pair:   solve.Pair{A: uint32(c.roomA), B: uint32(c.roomB)},
				Offset: c.offset,
			})
		}
	}

	sol, err := o.Solver.Solve(sub)
	if err != nil {
		result.Err = fmt.Errorf("component anchored at room %d on axis %s: %w", rooms[0], axis, err)
		return result
	}
	result.RMSE = sol.RMSE

	// The solution is defined up to a shared constant; anchor it so the
	// first (smallest-ID) room keeps its pre-optimization coordinate.
	anchor := rooms[0]
	shift := o.coord(axis, anchor) - sol.Coords[uint32(anchor)]

	result.Delta = make(map[scene.ID]float64, len(rooms))
	for _, id := range rooms {
		target := sol.Coords[uint32(id)] + shift
		delta := target - o.coord(axis, id)
		result.Delta[id] = delta
		if delta != 0 {
			moved := scene.TranslateRoom(axis.Unit().MulScalar(delta), o.Store.Room(id))
			o.Store.PutRoom(moved)
		}
	}
	return result
}

// coord is the room's current center coordinate along the axis.
func (o *Optimizer) coord(axis geom.Axis, id scene.ID) float64 {
	return axis.Component(o.Store.Room(id).MeanPoint())
}
