package mesh

import (
	"bytes"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/scene"
)

func quadRoom() *scene.Room {
	return &scene.Room{
		ID: 1,
		Planes: []*scene.Plane{
			{
				ID: 2,
				Eq: geom.NewPlaneEq(v3.Vec{Z: 1}, v3.Vec{}),
				Boundary: []v3.Vec{
					{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
				},
			},
			{
				// no boundary, produces no mesh
				ID: 3,
				Eq: geom.NewPlaneEq(v3.Vec{X: 1}, v3.Vec{X: 1}),
			},
		},
		Pose: geom.Identity(),
	}
}

func TestFromRoomFansBoundary(t *testing.T) {
	meshes := FromRoom(quadRoom())
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.VertexCount() != 4 {
		t.Errorf("expected 4 vertices, got %d", m.VertexCount())
	}
	if m.TriangleCount() != 2 {
		t.Errorf("expected 2 triangles, got %d", m.TriangleCount())
	}
	// every vertex carries the wall normal
	for i := 0; i < len(m.Normals); i += 3 {
		if m.Normals[i] != 0 || m.Normals[i+1] != 0 || m.Normals[i+2] != 1 {
			t.Fatalf("vertex %d: expected normal (0,0,1), got (%g,%g,%g)",
				i/3, m.Normals[i], m.Normals[i+1], m.Normals[i+2])
		}
	}
	if m.Name != "room_1/wall_2" {
		t.Errorf("unexpected mesh name %q", m.Name)
	}
}

func TestFromRoomEmpty(t *testing.T) {
	r := &scene.Room{ID: 9, Pose: geom.Identity()}
	if got := FromRoom(r); len(got) != 0 {
		t.Errorf("expected no meshes, got %d", len(got))
	}
}

func TestWriteOBJ(t *testing.T) {
	meshes := FromRoom(quadRoom())

	var buf bytes.Buffer
	if err := WriteOBJ(&buf, meshes); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "o room_1/wall_2\n") {
		t.Error("missing object name")
	}
	if got := strings.Count(out, "\nv "); got != 4 {
		t.Errorf("expected 4 vertex lines, got %d:\n%s", got, out)
	}
	// faces are 1-based
	if !strings.Contains(out, "f 1//1 2//2 3//3\n") {
		t.Errorf("missing first fan triangle, got:\n%s", out)
	}
	if !strings.Contains(out, "f 1//1 3//3 4//4\n") {
		t.Errorf("missing second fan triangle, got:\n%s", out)
	}
}

func TestWriteOBJOffsetsAcrossMeshes(t *testing.T) {
	r := quadRoom()
	// give the second wall a triangle boundary so two meshes come out
	r.Planes[1].Boundary = []v3.Vec{{X: 1}, {X: 1, Y: 1}, {X: 1, Y: 1, Z: 1}}

	var buf bytes.Buffer
	if err := WriteOBJ(&buf, FromRoom(r)); err != nil {
		t.Fatal(err)
	}
	// second mesh's face indices continue after the first mesh's 4 vertices
	if !strings.Contains(buf.String(), "f 5//5 6//6 7//7\n") {
		t.Errorf("expected offset face indices, got:\n%s", buf.String())
	}
}
