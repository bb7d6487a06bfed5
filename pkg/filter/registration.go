package filter

import (
	"fmt"

	"brainprep/pkg/interp"
	"brainprep/pkg/resample"
	"brainprep/pkg/transform"
	"brainprep/pkg/volume"
)

// RegistrationParams carries the inputs for transform application. The
// transform itself is computed by an external registration step and only
// applied here.
type RegistrationParams struct {
	// Atlas is the reference image whose grid defines the output
	// geometry. When nil, the image is resampled on its own grid.
	Atlas *volume.Volume

	// Transform maps physical points from the atlas (fixed) space into
	// the image (moving) space.
	Transform *transform.Affine

	// IsGroundTruth marks label images, which are resampled with
	// nearest-neighbor interpolation to preserve discrete label values.
	IsGroundTruth bool
}

// Registration resamples an image into atlas space by applying a supplied
// spatial transform. Intensity images use cubic interpolation, ground
// truth label images nearest-neighbor; out-of-bounds voxels are filled
// with 0.
type Registration struct{}

// NewRegistration creates a new registration filter.
func NewRegistration() *Registration {
	return &Registration{}
}

// Execute resamples the volume according to the supplied transform. With
// an atlas present the output adopts the atlas grid, so image and atlas
// end up voxel-aligned; without one the image keeps its own grid.
func (f *Registration) Execute(in *volume.Volume, params Params) (*volume.Volume, error) {
	p, ok := params.(*RegistrationParams)
	if !ok || p == nil || p.Transform == nil {
		return nil, fmt.Errorf("registration: missing transform parameters")
	}

	grid := resample.GridFromVolume(in)
	if p.Atlas != nil {
		grid = resample.GridFromVolume(p.Atlas)
	}

	mode := interp.Cubic
	if p.IsGroundTruth {
		mode = interp.Nearest
	}

	out, err := resample.Resample(in, grid, p.Transform, mode, 0)
	if err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}
	return out, nil
}

// String returns a printable representation.
func (f *Registration) String() string {
	return "Registration"
}
