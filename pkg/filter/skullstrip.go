package filter

import (
	"fmt"

	"brainprep/pkg/volume"
)

// SkullStrippingParams carries the brain mask for skull-stripping.
type SkullStrippingParams struct {
	// Mask is a binary volume with the same geometry as the image;
	// nonzero voxels mark brain tissue.
	Mask *volume.Volume
}

// SkullStripping removes non-brain tissue by zeroing every voxel outside
// the supplied brain mask.
type SkullStripping struct{}

// NewSkullStripping creates a new skull-stripping filter.
func NewSkullStripping() *SkullStripping {
	return &SkullStripping{}
}

// Execute applies the brain mask: voxels where the mask is zero become 0,
// all others keep their input intensity. The mask is binarized first, so
// any nonzero mask value counts as brain.
func (f *SkullStripping) Execute(in *volume.Volume, params Params) (*volume.Volume, error) {
	p, ok := params.(*SkullStrippingParams)
	if !ok || p == nil || p.Mask == nil {
		return nil, fmt.Errorf("skull-stripping: missing brain mask parameters")
	}
	if !in.SameShape(p.Mask) {
		return nil, &InvalidGeometryError{Op: "skull-stripping", Want: in.Shape(), Got: p.Mask.Shape()}
	}

	out := in.EmptyLike()
	for i, v := range in.Data {
		if p.Mask.Data[i] != 0 {
			out.Data[i] = v
		}
	}
	return out, nil
}

// String returns a printable representation.
func (f *SkullStripping) String() string {
	return "SkullStripping"
}
