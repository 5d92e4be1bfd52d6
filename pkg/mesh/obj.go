package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteOBJ writes the meshes as a Wavefront OBJ file, one named object
// per mesh. OBJ indices are 1-based and shared across objects, so each
// mesh's faces are offset by the vertices written before it.
func WriteOBJ(w io.Writer, meshes []*Mesh) error {
	bw := bufio.NewWriter(w)
	offset := uint32(1)
	for _, m := range meshes {
		if m.IsEmpty() {
			continue
		}
		fmt.Fprintf(bw, "o %s\n", m.Name)
		for i := 0; i < len(m.Vertices); i += 3 {
			fmt.Fprintf(bw, "v %g %g %g\n", m.Vertices[i], m.Vertices[i+1], m.Vertices[i+2])
		}
		for i := 0; i < len(m.Normals); i += 3 {
			fmt.Fprintf(bw, "vn %g %g %g\n", m.Normals[i], m.Normals[i+1], m.Normals[i+2])
		}
		for i := 0; i < len(m.Indices); i += 3 {
			a, b, c := m.Indices[i]+offset, m.Indices[i+1]+offset, m.Indices[i+2]+offset
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		}
		offset += uint32(m.VertexCount())
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("mesh: write obj: %w", err)
	}
	return nil
}

// ExportOBJ writes the meshes to path.
func ExportOBJ(path string, meshes []*Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mesh: %w", err)
	}
	defer f.Close()
	return WriteOBJ(f, meshes)
}
