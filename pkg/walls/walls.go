// Package walls records user-declared relations between wall planes of
// different rooms. Edges are purely declarative constraints; the alignment
// optimizer reads them, nothing here moves geometry.
package walls

import (
	"errors"
	"fmt"

	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/scene"
)

// ErrAxisConflict is reported when the two planes of a connection disagree
// on their dominant world axis.
var ErrAxisConflict = errors.New("walls: cannot infer axis, plane normals disagree")

// ErrDuplicateEdge is reported when an edge between the unordered plane
// pair already exists.
var ErrDuplicateEdge = errors.New("walls: planes already connected")

// Relation describes how two wall planes across rooms relate.
type Relation interface {
	relation() // marker method restricting implementations to this package
	String() string
}

// Same declares that both planes represent the same physical wall and
// should be made coincident.
type Same struct{}

func (Same) relation()      {}
func (Same) String() string { return "same" }

// Opposite declares that the planes face each other across a wall of the
// given thickness.
type Opposite struct {
	Gap float64 `json:"gap"`
}

func (Opposite) relation()        {}
func (o Opposite) String() string { return fmt.Sprintf("opposite(%g)", o.Gap) }

// Edge is one declared wall constraint: (axis, relation, planeA, planeB).
type Edge struct {
	Axis geom.Axis `json:"axis"`
	Rel  Relation  `json:"rel"`
	A    scene.ID  `json:"a"`
	B    scene.ID  `json:"b"`
}

// samePair reports whether the edge joins the given unordered plane pair.
func (e Edge) samePair(a, b scene.ID) bool {
	return (e.A == a && e.B == b) || (e.A == b && e.B == a)
}

// Graph is the set of declared wall connections. At most one edge exists
// per unordered plane pair.
type Graph struct {
	edges []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// FromEdges rebuilds a graph from a persisted edge list.
func FromEdges(edges []Edge) *Graph {
	return &Graph{edges: append([]Edge(nil), edges...)}
}

// Edges returns the declared edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// OnAxis returns the edges whose inferred axis is a.
func (g *Graph) OnAxis(a geom.Axis) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Axis == a {
			out = append(out, e)
		}
	}
	return out
}

// Connect declares a relation between two wall planes. The constraint axis
// is inferred from the planes' dominant normal components; if the planes
// disagree, ErrAxisConflict is returned. A second edge between the same
// unordered pair is rejected with ErrDuplicateEdge.
func (g *Graph) Connect(a, b *scene.Plane, rel Relation) (Edge, error) {
	axisA := geom.DominantAxis(a.Eq.Normal)
	axisB := geom.DominantAxis(b.Eq.Normal)
	if axisA != axisB {
		return Edge{}, fmt.Errorf("%w: plane %d faces %s, plane %d faces %s",
			ErrAxisConflict, a.ID, axisA, b.ID, axisB)
	}
	for _, e := range g.edges {
		if e.samePair(a.ID, b.ID) {
			return Edge{}, fmt.Errorf("%w: %d and %d", ErrDuplicateEdge, a.ID, b.ID)
		}
	}
	e := Edge{Axis: axisA, Rel: rel, A: a.ID, B: b.ID}
	g.edges = append(g.edges, e)
	return e, nil
}

// Disconnect removes any edge matching the unordered plane pair, reporting
// whether one existed.
func (g *Graph) Disconnect(a, b scene.ID) bool {
	for i, e := range g.edges {
		if e.samePair(a, b) {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return true
		}
	}
	return false
}

// DropPlane removes every edge touching the given plane ID, returning the
// number removed. Called when a plane or its room is deleted.
func (g *Graph) DropPlane(id scene.ID) int {
	kept := g.edges[:0]
	removed := 0
	for _, e := range g.edges {
		if e.A == id || e.B == id {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	return removed
}

// Clear removes every edge.
func (g *Graph) Clear() {
	g.edges = nil
}

// Reset replaces the whole edge list, used when adopting a loaded save.
func (g *Graph) Reset(edges []Edge) {
	g.edges = append([]Edge(nil), edges...)
}
