package geom

import (
	"errors"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrEigenFailed is returned when the Jacobi iteration does not converge.
// In practice this does not happen for 3x3 symmetric scatter matrices.
var ErrEigenFailed = errors.New("geom: eigendecomposition did not converge")

const (
	jacobiMaxSweeps = 64
	jacobiEps       = 1e-14
)

// jacobiEigen diagonalizes a symmetric 3x3 matrix by cyclic Jacobi
// rotations. It returns the eigenvalues and the matching unit eigenvectors
// as the columns of v.
func jacobiEigen(a [3][3]float64) (vals [3]float64, vecs [3][3]float64, err error) {
	// v starts as identity and accumulates the rotations.
	v := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		off := a[0][1]*a[0][1] + a[0][2]*a[0][2] + a[1][2]*a[1][2]
		if off < jacobiEps {
			return [3]float64{a[0][0], a[1][1], a[2][2]}, v, nil
		}

		for p := 0; p < 2; p++ {
			for q := p + 1; q < 3; q++ {
				if math.Abs(a[p][q]) < jacobiEps/9 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for i := 0; i < 3; i++ {
					aip, aiq := a[i][p], a[i][q]
					a[i][p] = c*aip - s*aiq
					a[i][q] = s*aip + c*aiq
				}
				for i := 0; i < 3; i++ {
					api, aqi := a[p][i], a[q][i]
					a[p][i] = c*api - s*aqi
					a[q][i] = s*api + c*aqi
				}
				for i := 0; i < 3; i++ {
					vip, viq := v[i][p], v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}
	return [3]float64{a[0][0], a[1][1], a[2][2]}, v, ErrEigenFailed
}

// smallestEigenvector returns the unit eigenvector of the smallest
// eigenvalue of a symmetric 3x3 matrix.
func smallestEigenvector(a [3][3]float64) (v3.Vec, error) {
	vals, vecs, err := jacobiEigen(a)
	if err != nil {
		return v3.Vec{}, err
	}
	k := 0
	for i := 1; i < 3; i++ {
		if vals[i] < vals[k] {
			k = i
		}
	}
	return v3.Vec{X: vecs[0][k], Y: vecs[1][k], Z: vecs[2][k]}.Normalize(), nil
}

// principalAxes returns the unit eigenvectors of a symmetric 3x3 matrix
// ordered by descending eigenvalue, forming a right-handed basis.
func principalAxes(a [3][3]float64) ([3]v3.Vec, error) {
	vals, vecs, err := jacobiEigen(a)
	if err != nil {
		return [3]v3.Vec{}, err
	}

	order := [3]int{0, 1, 2}
	for i := 0; i < 2; i++ {
		for j := i + 1; j < 3; j++ {
			if vals[order[j]] > vals[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	var axes [3]v3.Vec
	for i, k := range order {
		axes[i] = v3.Vec{X: vecs[0][k], Y: vecs[1][k], Z: vecs[2][k]}.Normalize()
	}
	// Force right-handedness so the basis is a pure rotation.
	if axes[0].Cross(axes[1]).Dot(axes[2]) < 0 {
		axes[2] = axes[2].Neg()
	}
	return axes, nil
}
