// Package mesh turns room geometry into triangle meshes for rendering
// and export. All arrays are flat and GPU-ready: vertices has 3 floats
// per vertex (x,y,z), normals has 3 floats per vertex, indices has 3
// uint32s per triangle.
package mesh

import (
	"fmt"

	"github.com/chazu/roomweld/pkg/scene"
)

// Mesh is one renderable triangle mesh.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // room or wall this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// FromRoom triangulates every wall boundary polygon of the room into one
// mesh per wall. Walls without a boundary polygon (or with fewer than 3
// boundary points) produce no mesh. Boundary polygons are convex in
// practice, so each is fanned from its first vertex; every vertex carries
// the wall plane's normal.
func FromRoom(r *scene.Room) []*Mesh {
	var meshes []*Mesh
	for _, p := range r.Planes {
		if len(p.Boundary) < 3 {
			continue
		}
		m := &Mesh{Name: wallName(r, p.ID)}
		n := p.Eq.Normal
		for _, v := range p.Boundary {
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		for i := 1; i < len(p.Boundary)-1; i++ {
			m.Indices = append(m.Indices, 0, uint32(i), uint32(i+1))
		}
		meshes = append(meshes, m)
	}
	return meshes
}

func wallName(r *scene.Room, plane scene.ID) string {
	if r.Name != "" {
		return fmt.Sprintf("%s/wall_%d", r.Name, plane)
	}
	return fmt.Sprintf("room_%d/wall_%d", r.ID, plane)
}
