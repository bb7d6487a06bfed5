// Package interp provides voxel interpolation at continuous indices,
// used by resampling. Three schemes are supported: nearest-neighbor for
// label images (no new values are invented), trilinear, and cubic
// convolution (Catmull-Rom kernel) for smooth intensity images. The cubic
// kernel is interpolating, so sampling exactly at a grid point reproduces
// the stored value.
package interp

import (
	"math"

	"brainprep/pkg/volume"
)

// Mode selects the interpolation scheme.
type Mode int

const (
	// Nearest picks the closest voxel. Required for label/ground-truth
	// images so output values stay within the input label set.
	Nearest Mode = iota

	// Trilinear linearly blends the 8 surrounding voxels.
	Trilinear

	// Cubic applies separable cubic convolution with the Catmull-Rom
	// kernel over a 4x4x4 neighborhood.
	Cubic
)

// String returns the scheme name for logging.
func (m Mode) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Trilinear:
		return "trilinear"
	case Cubic:
		return "cubic"
	default:
		return "unknown"
	}
}

// Sample evaluates the volume at continuous index (x, y, z). Indices
// outside the volume support [0, N-1] along any axis yield def, matching
// the resampler's default pixel value for out-of-bounds voxels.
func Sample(v *volume.Volume, x, y, z float64, mode Mode, def float64) float64 {
	if x < 0 || x > float64(v.Nx-1) ||
		y < 0 || y > float64(v.Ny-1) ||
		z < 0 || z > float64(v.Nz-1) {
		return def
	}

	switch mode {
	case Nearest:
		return sampleNearest(v, x, y, z)
	case Trilinear:
		return sampleTrilinear(v, x, y, z)
	case Cubic:
		return sampleCubic(v, x, y, z)
	default:
		return sampleNearest(v, x, y, z)
	}
}

func sampleNearest(v *volume.Volume, x, y, z float64) float64 {
	xi := int(math.Round(x))
	yi := int(math.Round(y))
	zi := int(math.Round(z))
	return v.At(xi, yi, zi)
}

func sampleTrilinear(v *volume.Volume, x, y, z float64) float64 {
	x0, fx := splitIndex(x, v.Nx)
	y0, fy := splitIndex(y, v.Ny)
	z0, fz := splitIndex(z, v.Nz)
	x1 := min(x0+1, v.Nx-1)
	y1 := min(y0+1, v.Ny-1)
	z1 := min(z0+1, v.Nz-1)

	c000 := v.At(x0, y0, z0)
	c100 := v.At(x1, y0, z0)
	c010 := v.At(x0, y1, z0)
	c110 := v.At(x1, y1, z0)
	c001 := v.At(x0, y0, z1)
	c101 := v.At(x1, y0, z1)
	c011 := v.At(x0, y1, z1)
	c111 := v.At(x1, y1, z1)

	c00 := c000*(1-fx) + c100*fx
	c10 := c010*(1-fx) + c110*fx
	c01 := c001*(1-fx) + c101*fx
	c11 := c011*(1-fx) + c111*fx

	c0 := c00*(1-fy) + c10*fy
	c1 := c01*(1-fy) + c11*fy

	return c0*(1-fz) + c1*fz
}

// splitIndex decomposes a continuous index into a base voxel and a
// fractional offset. At the upper edge the base steps back one voxel so
// the neighbor stays in range; a single-voxel axis pins the base to 0
// with zero fraction.
func splitIndex(x float64, n int) (int, float64) {
	i := int(math.Floor(x))
	if i >= n-1 {
		i = n - 2
	}
	if i < 0 {
		return 0, 0
	}
	return i, x - float64(i)
}

// catmullRom is the cubic convolution kernel with a = -0.5 (Keys).
func catmullRom(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1:
		return ((1.5*t-2.5)*t)*t + 1
	case t < 2:
		return ((-0.5*t+2.5)*t-4)*t + 2
	default:
		return 0
	}
}

// clampIndex replicates the edge voxel for kernel taps outside the volume.
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func sampleCubic(v *volume.Volume, x, y, z float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	z0 := int(math.Floor(z))

	var wx, wy, wz [4]float64
	for i := 0; i < 4; i++ {
		wx[i] = catmullRom(x - float64(x0-1+i))
		wy[i] = catmullRom(y - float64(y0-1+i))
		wz[i] = catmullRom(z - float64(z0-1+i))
	}

	var sum float64
	for k := 0; k < 4; k++ {
		zi := clampIndex(z0-1+k, v.Nz)
		for j := 0; j < 4; j++ {
			yi := clampIndex(y0-1+j, v.Ny)
			wzy := wz[k] * wy[j]
			for i := 0; i < 4; i++ {
				xi := clampIndex(x0-1+i, v.Nx)
				sum += wzy * wx[i] * v.At(xi, yi, zi)
			}
		}
	}
	return sum
}
