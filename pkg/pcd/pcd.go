// Package pcd reads point cloud files in the PCD format used by scan
// capture pipelines. Only the fields the editor consumes are surfaced:
// positions, per-point colors and per-point normals.
package pcd

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Cloud is a decoded point cloud. Colors and Normals are nil when the
// file does not carry the corresponding fields; when present they are
// index-aligned with Points.
type Cloud struct {
	Points  []v3.Vec
	Colors  [][3]uint8
	Normals []v3.Vec
}

// Reader decodes one point cloud from a stream.
type Reader interface {
	ReadCloud(r io.Reader) (*Cloud, error)
}

// header is the parsed PCD preamble.
type header struct {
	fields []string
	types  []string
	points int
	data   string
}

// fieldIndex returns the column of the named field, or -1.
func (h *header) fieldIndex(name string) int {
	for i, f := range h.fields {
		if f == name {
			return i
		}
	}
	return -1
}

// ASCIIReader decodes PCD files with DATA ascii. Binary and compressed
// payloads are rejected.
type ASCIIReader struct{}

func (ASCIIReader) ReadCloud(r io.Reader) (*Cloud, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	h, err := readHeader(sc)
	if err != nil {
		return nil, err
	}
	if h.data != "ascii" {
		return nil, fmt.Errorf("pcd: unsupported DATA %q, want ascii", h.data)
	}

	ix := h.fieldIndex("x")
	iy := h.fieldIndex("y")
	iz := h.fieldIndex("z")
	if ix < 0 || iy < 0 || iz < 0 {
		return nil, fmt.Errorf("pcd: missing x/y/z fields in %v", h.fields)
	}
	irgb := h.fieldIndex("rgb")
	inx := h.fieldIndex("normal_x")
	iny := h.fieldIndex("normal_y")
	inz := h.fieldIndex("normal_z")
	hasNormals := inx >= 0 && iny >= 0 && inz >= 0

	c := &Cloud{Points: make([]v3.Vec, 0, h.points)}
	if irgb >= 0 {
		c.Colors = make([][3]uint8, 0, h.points)
	}
	if hasNormals {
		c.Normals = make([]v3.Vec, 0, h.points)
	}

	line := 0
	for len(c.Points) < h.points && sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) != len(h.fields) {
			return nil, fmt.Errorf("pcd: point %d: %d columns, want %d", line, len(cols), len(h.fields))
		}
		x, err1 := strconv.ParseFloat(cols[ix], 64)
		y, err2 := strconv.ParseFloat(cols[iy], 64)
		z, err3 := strconv.ParseFloat(cols[iz], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("pcd: point %d: bad coordinate", line)
		}
		c.Points = append(c.Points, v3.Vec{X: x, Y: y, Z: z})

		if irgb >= 0 {
			packed, err := parseRGB(cols[irgb], h.types[irgb])
			if err != nil {
				return nil, fmt.Errorf("pcd: point %d: %w", line, err)
			}
			c.Colors = append(c.Colors, [3]uint8{
				uint8(packed >> 16), uint8(packed >> 8), uint8(packed),
			})
		}
		if hasNormals {
			nx, err1 := strconv.ParseFloat(cols[inx], 64)
			ny, err2 := strconv.ParseFloat(cols[iny], 64)
			nz, err3 := strconv.ParseFloat(cols[inz], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("pcd: point %d: bad normal", line)
			}
			c.Normals = append(c.Normals, v3.Vec{X: nx, Y: ny, Z: nz})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("pcd: %w", err)
	}
	if len(c.Points) != h.points {
		return nil, fmt.Errorf("pcd: %d points, header declared %d", len(c.Points), h.points)
	}
	return c, nil
}

// readHeader consumes lines up to and including DATA.
func readHeader(sc *bufio.Scanner) (*header, error) {
	h := &header{points: -1}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToUpper(fields[0])
		args := fields[1:]
		switch key {
		case "FIELDS":
			h.fields = args
		case "TYPE":
			h.types = args
		case "POINTS":
			if len(args) != 1 {
				return nil, fmt.Errorf("pcd: malformed POINTS line %q", line)
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, fmt.Errorf("pcd: POINTS: %w", err)
			}
			h.points = n
		case "DATA":
			if len(args) != 1 {
				return nil, fmt.Errorf("pcd: malformed DATA line %q", line)
			}
			h.data = strings.ToLower(args[0])
			if h.fields == nil {
				return nil, fmt.Errorf("pcd: DATA before FIELDS")
			}
			if h.points < 0 {
				return nil, fmt.Errorf("pcd: DATA before POINTS")
			}
			if h.types == nil {
				h.types = make([]string, len(h.fields))
				for i := range h.types {
					h.types[i] = "F"
				}
			}
			if len(h.types) != len(h.fields) {
				return nil, fmt.Errorf("pcd: %d TYPE entries for %d fields", len(h.types), len(h.fields))
			}
			return h, nil
		case "VERSION", "SIZE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT":
			// not needed for ascii decoding
		default:
			return nil, fmt.Errorf("pcd: unknown header line %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("pcd: %w", err)
	}
	return nil, fmt.Errorf("pcd: truncated header, no DATA line")
}

// parseRGB unpacks the packed rgb column. Type F stores the packed
// integer in the bits of a float32, type U stores it directly.
func parseRGB(s, typ string) (uint32, error) {
	switch typ {
	case "F":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("bad rgb %q", s)
		}
		return math.Float32bits(float32(f)), nil
	case "U", "I":
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("bad rgb %q", s)
		}
		return uint32(n), nil
	default:
		return 0, fmt.Errorf("unsupported rgb type %q", typ)
	}
}

// LoadFile reads a PCD file from disk with the ASCII reader.
func LoadFile(path string) (*Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcd: %w", err)
	}
	defer f.Close()
	return ASCIIReader{}.ReadCloud(f)
}
