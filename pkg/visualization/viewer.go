// Package visualization exports axis-aligned 2D slices of a volume as PNG
// images. The CLI uses it to dump intermediary pipeline results for
// visual inspection.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"brainprep/pkg/volume"
)

// Viewer renders grayscale slices of a single volume. Intensities are
// windowed to the volume's min/max range once at construction so all
// slices of a sequence share the same scaling.
type Viewer struct {
	vol      *volume.Volume
	min, max float64
}

// NewViewer creates a viewer for the given volume.
func NewViewer(vol *volume.Volume) *Viewer {
	min, max := vol.MinMax()
	return &Viewer{vol: vol, min: min, max: max}
}

// gray maps an intensity to a 16-bit gray level using the volume-wide
// window.
func (v *Viewer) gray(val float64) color.Gray16 {
	if v.max <= v.min {
		return color.Gray16{}
	}
	t := (val - v.min) / (v.max - v.min)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return color.Gray16{Y: uint16(t * 65535)}
}

// ExtractSlice extracts a 2D slice perpendicular to the given axis.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	vol := v.vol
	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= vol.Nx {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Nx)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Nz, vol.Ny))
		for y := 0; y < vol.Ny; y++ {
			for z := 0; z < vol.Nz; z++ {
				img.SetGray16(z, y, v.gray(vol.At(position, y, z)))
			}
		}

	case "y", "Y":
		if position >= vol.Ny {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Ny)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Nx, vol.Nz))
		for z := 0; z < vol.Nz; z++ {
			for x := 0; x < vol.Nx; x++ {
				img.SetGray16(x, z, v.gray(vol.At(x, position, z)))
			}
		}

	case "z", "Z":
		if position >= vol.Nz {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, vol.Nz)
		}
		img = image.NewGray16(image.Rect(0, 0, vol.Nx, vol.Ny))
		for y := 0; y < vol.Ny; y++ {
			for x := 0; x < vol.Nx; x++ {
				img.SetGray16(x, y, v.gray(vol.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a PNG image.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every slice along the given axis
// into outputDir as slice_<axis>_NNN.png.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.vol.Nx
	case "y", "Y":
		maxPos = v.vol.Ny
	case "z", "Z":
		maxPos = v.vol.Nz
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
