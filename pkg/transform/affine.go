// Package transform provides the spatial transforms applied during
// registration. Transforms are supplied by an external registration step;
// this package only represents and applies them.
package transform

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Affine is a 4x4 homogeneous transform over physical points. Following
// the resampling convention, it maps points from the output (fixed/atlas)
// space into the input (moving) image space.
type Affine struct {
	m *mat.Dense // 4x4, last row (0, 0, 0, 1)
}

// Identity returns the identity transform.
func Identity() *Affine {
	return &Affine{m: mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})}
}

// Translation returns a transform that shifts points by (tx, ty, tz) mm.
func Translation(tx, ty, tz float64) *Affine {
	a := Identity()
	a.m.Set(0, 3, tx)
	a.m.Set(1, 3, ty)
	a.m.Set(2, 3, tz)
	return a
}

// FromMatrix builds a transform from a row-major 4x4 matrix.
func FromMatrix(rows [4][4]float64) *Affine {
	data := make([]float64, 0, 16)
	for _, r := range rows {
		data = append(data, r[:]...)
	}
	return &Affine{m: mat.NewDense(4, 4, data)}
}

// Apply maps a physical point through the transform.
func (a *Affine) Apply(p [3]float64) [3]float64 {
	var out [3]float64
	for r := 0; r < 3; r++ {
		out[r] = a.m.At(r, 0)*p[0] + a.m.At(r, 1)*p[1] + a.m.At(r, 2)*p[2] + a.m.At(r, 3)
	}
	return out
}

// Inverse returns the inverse transform, failing if the matrix is singular.
func (a *Affine) Inverse() (*Affine, error) {
	var inv mat.Dense
	if err := inv.Inverse(a.m); err != nil {
		return nil, fmt.Errorf("transform: singular affine matrix: %w", err)
	}
	return &Affine{m: &inv}, nil
}

// Matrix returns a copy of the underlying 4x4 matrix.
func (a *Affine) Matrix() *mat.Dense {
	return mat.DenseCopyOf(a.m)
}

// transformFile is the on-disk YAML representation of an affine transform.
type transformFile struct {
	// Matrix is the 4x4 homogeneous transform, row-major.
	Matrix [4][4]float64 `yaml:"matrix"`
}

// Load reads an affine transform from a YAML file containing a 4x4
// row-major matrix under the "matrix" key.
func Load(path string) (*Affine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading transform file: %w", err)
	}

	var tf transformFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("error parsing transform file: %w", err)
	}

	return FromMatrix(tf.Matrix), nil
}

// Save writes the transform to a YAML file.
func Save(a *Affine, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating transform directory: %w", err)
	}

	var tf transformFile
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			tf.Matrix[r][c] = a.m.At(r, c)
		}
	}

	data, err := yaml.Marshal(&tf)
	if err != nil {
		return fmt.Errorf("error marshaling transform: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing transform file: %w", err)
	}

	return nil
}
