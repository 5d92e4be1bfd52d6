// Package solve provides the generic numerical services consumed by room
// alignment: a 1-D weighted least-squares solver for pairwise offset
// constraints and a connected-components grouping over an edge list. Both
// are defined against opaque uint32 entity IDs so callers stay decoupled
// from the scene model.
package solve

import (
	"errors"
	"math"
	"sort"
)

// ErrSingular is reported for a numerically singular constraint system.
var ErrSingular = errors.New("solve: singular least-squares system")

const pivotEps = 1e-12

// Pair is an ordered pair of entity IDs; an offset constraint on Pair{A,B}
// reads "coordinate(B) - coordinate(A) should equal the offset".
type Pair struct {
	A, B uint32
}

// Offsets maps room pairs to their desired signed coordinate offsets.
// Multiple constraints between the same pair are allowed and are averaged
// by the least-squares fit.
type Offsets []Constraint

// Constraint is one desired offset between two entities.
type Constraint struct {
	Pair   Pair
	Offset float64
}

// Solution is the least-squares result for one constraint set.
type Solution struct {
	// Coords is the solved 1-D coordinate per entity, defined only up to
	// a shared additive constant.
	Coords map[uint32]float64
	// RMSE is the root-mean-square residual over all constraints, the
	// fit-quality signal surfaced to the user.
	RMSE float64
}

// OffsetSolver solves pairwise offset constraints for per-entity
// coordinates. Implementations report ErrSingular instead of returning an
// arbitrary solution for degenerate systems.
type OffsetSolver interface {
	Solve(constraints Offsets) (Solution, error)
}

// LeastSquares is the default dense OffsetSolver: normal equations over
// the constraint graph, solved by Gaussian elimination with partial
// pivoting. The gauge freedom (solutions are invariant under a shared
// shift) is fixed by pinning the smallest entity ID to zero; callers
// re-anchor the result as they see fit.
type LeastSquares struct{}

// Solve implements OffsetSolver.
func (LeastSquares) Solve(constraints Offsets) (Solution, error) {
	if len(constraints) == 0 {
		return Solution{Coords: map[uint32]float64{}}, nil
	}

	ids := collectIDs(constraints)
	index := make(map[uint32]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	// Pin ids[0] to zero; solve for the remaining n-1 unknowns.
	n := len(ids) - 1
	if n == 0 {
		return Solution{Coords: map[uint32]float64{ids[0]: 0}}, nil
	}
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n+1) // augmented column holds the RHS
	}

	// Each constraint x_b - x_a = d contributes a row (+1 at b, -1 at a)
	// to the design matrix; accumulate A^T A and A^T d directly. Terms of
	// the pinned variable (index 0) vanish.
	for _, c := range constraints {
		ia, ib := index[c.Pair.A], index[c.Pair.B]
		if ib > 0 {
			a[ib-1][ib-1]++
			a[ib-1][n] += c.Offset
			if ia > 0 {
				a[ib-1][ia-1]--
			}
		}
		if ia > 0 {
			a[ia-1][ia-1]++
			a[ia-1][n] -= c.Offset
			if ib > 0 {
				a[ia-1][ib-1]--
			}
		}
	}

	x, err := gauss(a, n)
	if err != nil {
		return Solution{}, err
	}

	coords := make(map[uint32]float64, len(ids))
	coords[ids[0]] = 0
	for i := 1; i < len(ids); i++ {
		coords[ids[i]] = x[i-1]
	}

	var sq float64
	for _, c := range constraints {
		r := coords[c.Pair.B] - coords[c.Pair.A] - c.Offset
		sq += r * r
	}
	return Solution{Coords: coords, RMSE: math.Sqrt(sq / float64(len(constraints)))}, nil
}

// gauss solves the n x n augmented system in place with partial pivoting.
func gauss(a [][]float64, n int) ([]float64, error) {
	for col := 0; col < n; col++ {
		piv := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[piv][col]) {
				piv = row
			}
		}
		if math.Abs(a[piv][col]) < pivotEps {
			return nil, ErrSingular
		}
		a[col], a[piv] = a[piv], a[col]
		for row := col + 1; row < n; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k <= n; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}
	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := a[row][n]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}

// collectIDs returns the distinct entity IDs of a constraint set, ascending.
func collectIDs(constraints Offsets) []uint32 {
	set := make(map[uint32]struct{})
	for _, c := range constraints {
		set[c.Pair.A] = struct{}{}
		set[c.Pair.B] = struct{}{}
	}
	ids := make([]uint32, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
