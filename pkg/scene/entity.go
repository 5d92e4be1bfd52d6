package scene

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/roomweld/pkg/geom"
)

// planePalette assigns distinct display colors to imported wall planes.
var planePalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// PaletteColor returns the display color for the i-th imported plane.
func PaletteColor(i int) string {
	return planePalette[i%len(planePalette)]
}

// RGB is an 8-bit color triple for cloud points.
type RGB struct {
	R, G, B uint8
}

// ---------------------------------------------------------------------------
// Plane
// ---------------------------------------------------------------------------

// Plane is a planar wall segment: the fitted plane equation plus the
// polygon outline of the detected segment. A plane is owned either by the
// free pool or by exactly one room, never both.
type Plane struct {
	ID       ID           `json:"id"`
	Eq       geom.PlaneEq `json:"eq"`
	Color    string       `json:"color"`
	Boundary []v3.Vec     `json:"boundary"` // polygon outline on the plane
}

// MeanPoint returns the centroid of the boundary polygon.
func (p *Plane) MeanPoint() v3.Vec {
	return geom.Centroid(p.Boundary)
}

// Clone returns a deep copy.
func (p *Plane) Clone() *Plane {
	c := *p
	c.Boundary = append([]v3.Vec(nil), p.Boundary...)
	return &c
}

// ---------------------------------------------------------------------------
// Cloud
// ---------------------------------------------------------------------------

// Coloring is the coloring mode of a cloud: one uniform color or one color
// per point.
type Coloring interface {
	coloring() // marker method restricting implementations to this package
}

// UniformColor colors every point of a cloud the same.
type UniformColor RGB

func (UniformColor) coloring() {}

// PerPointColors carries one color per cloud point. Its length must equal
// the point count.
type PerPointColors []RGB

func (PerPointColors) coloring() {}

// Cloud is the atomic unit of displayed point-cloud data.
type Cloud struct {
	ID     ID       `json:"id"`
	Color  Coloring `json:"-"`
	Points []v3.Vec `json:"points"`
}

// Validate reports a per-point color count that does not match the point
// count. Callers treat this as an input error, not a store invariant.
func (c *Cloud) Validate() error {
	if pc, ok := c.Color.(PerPointColors); ok && len(pc) != len(c.Points) {
		return fmt.Errorf("cloud %d: %d colors for %d points", c.ID, len(pc), len(c.Points))
	}
	return nil
}

// Clone returns a deep copy.
func (c *Cloud) Clone() *Cloud {
	cl := *c
	cl.Points = append([]v3.Vec(nil), c.Points...)
	if pc, ok := c.Color.(PerPointColors); ok {
		cl.Color = append(PerPointColors(nil), pc...)
	}
	return &cl
}
