package persist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
	"github.com/chazu/roomweld/pkg/scene"
)

// ReadPlaneList parses a plane-list text file: one plane per line, four
// fields a b c d separated by whitespace and/or '+', meaning ax+by+cz+d=0.
// The d sign is flipped on import to match the internal n·p = d convention,
// and the equation is normalized to unit normal.
func ReadPlaneList(r io.Reader) ([]geom.PlaneEq, error) {
	var eqs []geom.PlaneEq
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := splitPlaneFields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("persist: plane list line %d: want 4 fields, got %d", lineNo, len(fields))
		}
		var v [4]float64
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("persist: plane list line %d field %d: %w", lineNo, i+1, err)
			}
			v[i] = x
		}
		n := v3.Vec{X: v[0], Y: v[1], Z: v[2]}
		l := n.Length()
		if l == 0 {
			return nil, fmt.Errorf("persist: plane list line %d: zero normal", lineNo)
		}
		eqs = append(eqs, geom.PlaneEq{Normal: n.DivScalar(l), Offset: -v[3] / l})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("persist: plane list: %w", err)
	}
	return eqs, nil
}

// splitPlaneFields splits a plane-list line on whitespace and on the '+'
// signs joining coefficients. A '+' directly after an exponent marker
// belongs to its number, so "1e+05" survives as one field.
func splitPlaneFields(line string) []string {
	var fields []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	var prev rune
	for _, c := range line {
		switch {
		case c == ' ' || c == '\t':
			flush()
		case c == '+' && prev != 'e' && prev != 'E':
			flush()
		default:
			cur.WriteRune(c)
		}
		prev = c
	}
	flush()
	return fields
}

// readBoundary parses a boundary-polygon point file: one "x y z" point per
// line.
func readBoundary(r io.Reader) ([]v3.Vec, error) {
	var pts []v3.Vec
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: want 3 fields, got %d", lineNo, len(fields))
		}
		var v [3]float64
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			v[i] = x
		}
		pts = append(pts, v3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}
	return pts, sc.Err()
}

// ImportPlaneSet reads a plane-list file and its directory of per-plane
// boundary files, paired positionally (planes in line order, boundary
// files in sorted name order). Each imported plane gets a fresh ID and a
// round-robin color from palette; an empty palette uses the built-in one.
func ImportPlaneSet(listPath, boundaryDir string, alloc *scene.Allocator, palette []string) ([]*scene.Plane, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	defer f.Close()

	eqs, err := ReadPlaneList(f)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(boundaryDir)
	if err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) != len(eqs) {
		return nil, fmt.Errorf("persist: %d planes in %s but %d boundary files in %s",
			len(eqs), listPath, len(names), boundaryDir)
	}

	planes := make([]*scene.Plane, len(eqs))
	for i, eq := range eqs {
		bf, err := os.Open(filepath.Join(boundaryDir, names[i]))
		if err != nil {
			return nil, fmt.Errorf("persist: %w", err)
		}
		boundary, err := readBoundary(bf)
		bf.Close()
		if err != nil {
			return nil, fmt.Errorf("persist: boundary %s: %w", names[i], err)
		}
		color := scene.PaletteColor(i)
		if len(palette) > 0 {
			color = palette[i%len(palette)]
		}
		planes[i] = &scene.Plane{
			ID:       alloc.Next(),
			Eq:       eq,
			Color:    color,
			Boundary: boundary,
		}
	}
	return planes, nil
}

// WriteProjection renders a cumulative room transform in the row-major
// export convention: four lines of four comma-separated values.
func WriteProjection(w io.Writer, m sdf.M44) error {
	r := geom.RowMajor(m)
	for row := 0; row < 4; row++ {
		_, err := fmt.Fprintf(w, "%g,%g,%g,%g\n", r[row*4], r[row*4+1], r[row*4+2], r[row*4+3])
		if err != nil {
			return fmt.Errorf("persist: write projection: %w", err)
		}
	}
	return nil
}

// ExportProjection writes a room's cumulative transform to path.
func ExportProjection(path string, room *scene.Room) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	defer f.Close()
	return WriteProjection(f, room.Pose)
}

// ReadProjection parses a projection file written by WriteProjection (or
// any 16-value row-major matrix with comma/whitespace separators) back
// into a transform, for replaying a template alignment onto fresh rooms.
func ReadProjection(r io.Reader) (sdf.M44, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return sdf.M44{}, fmt.Errorf("persist: read projection: %w", err)
	}
	fields := strings.FieldsFunc(string(data), func(c rune) bool {
		return c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r'
	})
	if len(fields) != 16 {
		return sdf.M44{}, fmt.Errorf("persist: projection: want 16 values, got %d", len(fields))
	}
	var vals [16]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return sdf.M44{}, fmt.Errorf("persist: projection value %d: %w", i+1, err)
		}
		vals[i] = x
	}
	return geom.FromRowMajor(vals), nil
}
