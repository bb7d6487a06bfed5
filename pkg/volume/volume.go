// Package volume provides the 3D image data model shared by all
// pre-processing filters. A Volume couples the voxel intensities with the
// spatial metadata (origin, spacing, direction cosines) needed to map
// between voxel indices and physical patient coordinates.
package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Volume represents a 3D medical image as a flat voxel array plus spatial
// metadata. Voxels are stored in x-fastest order: index = z*Nx*Ny + y*Nx + x.
type Volume struct {
	// Data holds the voxel intensities as a 1D array in x-fastest order.
	Data []float64

	// Nx, Ny, Nz are the volume dimensions in voxels.
	Nx, Ny, Nz int

	// Origin is the physical position of voxel (0,0,0) in mm.
	Origin [3]float64

	// Spacing is the physical size of each voxel in mm along each axis.
	Spacing [3]float64

	// Direction is the 3x3 direction cosine matrix mapping voxel axes to
	// physical axes. Columns are unit vectors for the x, y and z voxel axes.
	Direction *mat.Dense
}

// New creates a volume of the given dimensions with zeroed intensities,
// unit spacing, zero origin and an identity direction matrix.
func New(nx, ny, nz int) *Volume {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		panic(fmt.Sprintf("volume: non-positive dimensions %dx%dx%d", nx, ny, nz))
	}
	return &Volume{
		Data:      make([]float64, nx*ny*nz),
		Nx:        nx,
		Ny:        ny,
		Nz:        nz,
		Spacing:   [3]float64{1, 1, 1},
		Direction: identityDirection(),
	}
}

// NewUniform creates a volume like New with every voxel set to value.
func NewUniform(nx, ny, nz int, value float64) *Volume {
	v := New(nx, ny, nz)
	for i := range v.Data {
		v.Data[i] = value
	}
	return v
}

func identityDirection() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// Idx returns the flat array index for voxel (x, y, z).
func (v *Volume) Idx(x, y, z int) int {
	return z*v.Nx*v.Ny + y*v.Nx + x
}

// At returns the intensity at voxel (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Idx(x, y, z)]
}

// Set assigns the intensity at voxel (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Idx(x, y, z)] = value
}

// In reports whether voxel (x, y, z) lies inside the volume.
func (v *Volume) In(x, y, z int) bool {
	return x >= 0 && x < v.Nx && y >= 0 && y < v.Ny && z >= 0 && z < v.Nz
}

// Len returns the number of voxels.
func (v *Volume) Len() int {
	return v.Nx * v.Ny * v.Nz
}

// Clone returns a deep copy of the volume, including its geometry.
func (v *Volume) Clone() *Volume {
	out := &Volume{
		Data:    make([]float64, len(v.Data)),
		Nx:      v.Nx,
		Ny:      v.Ny,
		Nz:      v.Nz,
		Origin:  v.Origin,
		Spacing: v.Spacing,
	}
	copy(out.Data, v.Data)
	out.Direction = mat.DenseCopyOf(v.Direction)
	return out
}

// EmptyLike returns a zeroed volume with the same dimensions and geometry
// as v. Filters use this to build their output before copying geometry.
func (v *Volume) EmptyLike() *Volume {
	out := New(v.Nx, v.Ny, v.Nz)
	out.CopyGeometryFrom(v)
	return out
}

// CopyGeometryFrom copies origin, spacing and direction from src. Filters
// that do not resample must preserve the input geometry in their output.
func (v *Volume) CopyGeometryFrom(src *Volume) {
	v.Origin = src.Origin
	v.Spacing = src.Spacing
	v.Direction = mat.DenseCopyOf(src.Direction)
}

// SameShape reports whether v and o have identical voxel dimensions.
func (v *Volume) SameShape(o *Volume) bool {
	return v.Nx == o.Nx && v.Ny == o.Ny && v.Nz == o.Nz
}

// SameGeometry reports whether v and o share dimensions, origin, spacing
// and direction within the given absolute tolerance.
func (v *Volume) SameGeometry(o *Volume, tol float64) bool {
	if !v.SameShape(o) {
		return false
	}
	for i := 0; i < 3; i++ {
		if math.Abs(v.Origin[i]-o.Origin[i]) > tol {
			return false
		}
		if math.Abs(v.Spacing[i]-o.Spacing[i]) > tol {
			return false
		}
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(v.Direction.At(r, c)-o.Direction.At(r, c)) > tol {
				return false
			}
		}
	}
	return true
}

// Shape returns the voxel dimensions as an array, for error reporting.
func (v *Volume) Shape() [3]int {
	return [3]int{v.Nx, v.Ny, v.Nz}
}

// MinMax returns the minimum and maximum intensity in the volume.
func (v *Volume) MinMax() (min, max float64) {
	return floats.Min(v.Data), floats.Max(v.Data)
}

// IndexToPhysical maps a (possibly fractional) voxel index to a physical
// point: p = origin + direction * (spacing .* index).
func (v *Volume) IndexToPhysical(ix, iy, iz float64) [3]float64 {
	sx := ix * v.Spacing[0]
	sy := iy * v.Spacing[1]
	sz := iz * v.Spacing[2]
	var p [3]float64
	for r := 0; r < 3; r++ {
		p[r] = v.Origin[r] +
			v.Direction.At(r, 0)*sx +
			v.Direction.At(r, 1)*sy +
			v.Direction.At(r, 2)*sz
	}
	return p
}

// PhysicalToContinuousIndex maps a physical point to a continuous voxel
// index by inverting the direction matrix. It fails if the direction
// matrix is singular.
func (v *Volume) PhysicalToContinuousIndex(p [3]float64) ([3]float64, error) {
	var inv mat.Dense
	if err := inv.Inverse(v.Direction); err != nil {
		return [3]float64{}, fmt.Errorf("volume: singular direction matrix: %w", err)
	}
	d := [3]float64{p[0] - v.Origin[0], p[1] - v.Origin[1], p[2] - v.Origin[2]}
	var idx [3]float64
	for r := 0; r < 3; r++ {
		idx[r] = (inv.At(r, 0)*d[0] + inv.At(r, 1)*d[1] + inv.At(r, 2)*d[2]) / v.Spacing[r]
	}
	return idx, nil
}
