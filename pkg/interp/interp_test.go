package interp

import (
	"math"
	"testing"

	"brainprep/pkg/volume"
)

// rampVolume builds a volume whose intensity is a linear ramp in x, y, z.
// Linear functions are reproduced exactly by trilinear interpolation.
func rampVolume(nx, ny, nz int) *volume.Volume {
	v := volume.New(nx, ny, nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				v.Set(x, y, z, float64(x)+2*float64(y)+4*float64(z))
			}
		}
	}
	return v
}

func TestGridPointsReproduced(t *testing.T) {
	v := rampVolume(5, 4, 3)

	for _, mode := range []Mode{Nearest, Trilinear, Cubic} {
		t.Run(mode.String(), func(t *testing.T) {
			for z := 0; z < v.Nz; z++ {
				for y := 0; y < v.Ny; y++ {
					for x := 0; x < v.Nx; x++ {
						want := v.At(x, y, z)
						got := Sample(v, float64(x), float64(y), float64(z), mode, -1)
						if math.Abs(got-want) > 1e-9 {
							t.Fatalf("Sample(%d,%d,%d) = %v, want %v", x, y, z, got, want)
						}
					}
				}
			}
		})
	}
}

func TestTrilinearMidpoint(t *testing.T) {
	v := rampVolume(4, 4, 4)
	got := Sample(v, 1.5, 2.5, 0.5, Trilinear, -1)
	want := 1.5 + 2*2.5 + 4*0.5
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Sample(1.5,2.5,0.5) = %v, want %v", got, want)
	}
}

func TestCubicReproducesLinearRamp(t *testing.T) {
	// Catmull-Rom has cubic precision, so a linear ramp must be exact
	// away from the (edge-replicated) border.
	v := rampVolume(6, 6, 6)
	got := Sample(v, 2.25, 2.5, 2.75, Cubic, -1)
	want := 2.25 + 2*2.5 + 4*2.75
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Sample(2.25,2.5,2.75) = %v, want %v", got, want)
	}
}

func TestNearestPicksClosestVoxel(t *testing.T) {
	v := volume.New(3, 1, 1)
	copy(v.Data, []float64{10, 20, 30})

	if got := Sample(v, 0.4, 0, 0, Nearest, -1); got != 10 {
		t.Errorf("Sample(0.4) = %v, want 10", got)
	}
	if got := Sample(v, 0.6, 0, 0, Nearest, -1); got != 20 {
		t.Errorf("Sample(0.6) = %v, want 20", got)
	}
}

func TestSingleVoxelAxis(t *testing.T) {
	// A single-slice acquisition collapses one axis to a single voxel;
	// sampling anywhere in its support must still address the right
	// voxel instead of running off the x-fastest layout.
	v := volume.New(1, 3, 3)
	for z := 0; z < 3; z++ {
		for y := 0; y < 3; y++ {
			v.Set(0, y, z, float64(10*y+z))
		}
	}

	for _, mode := range []Mode{Nearest, Trilinear, Cubic} {
		t.Run(mode.String(), func(t *testing.T) {
			if got := Sample(v, 0, 2, 1, mode, -1); got != v.At(0, 2, 1) {
				t.Fatalf("Sample(0,2,1) = %v, want %v", got, v.At(0, 2, 1))
			}
			if got := Sample(v, 0, 0.5, 0, mode, -1); math.IsNaN(got) {
				t.Fatalf("Sample(0,0.5,0) = NaN")
			}
		})
	}

	u := volume.NewUniform(1, 3, 3, 7)
	for _, mode := range []Mode{Nearest, Trilinear, Cubic} {
		if got := Sample(u, 0, 0, 0, mode, -1); got != 7 {
			t.Errorf("%s: Sample(0,0,0) on uniform single-slice volume = %v, want 7", mode, got)
		}
	}
}

func TestOutOfBoundsReturnsDefault(t *testing.T) {
	v := rampVolume(3, 3, 3)
	for _, mode := range []Mode{Nearest, Trilinear, Cubic} {
		if got := Sample(v, -0.01, 1, 1, mode, -99); got != -99 {
			t.Errorf("%s: Sample below support = %v, want -99", mode, got)
		}
		if got := Sample(v, 1, 1, 2.01, mode, -99); got != -99 {
			t.Errorf("%s: Sample above support = %v, want -99", mode, got)
		}
	}
}
