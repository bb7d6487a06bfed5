package filter

import (
	"brainprep/pkg/volume"
)

// Normalization linearly rescales image intensities so the minimum maps
// to 0 and the maximum to 1. It takes no parameters.
type Normalization struct{}

// NewNormalization creates a new normalization filter.
func NewNormalization() *Normalization {
	return &Normalization{}
}

// Execute rescales the volume to [0, 1]. A constant-valued image has no
// intensity range to stretch and yields a DegenerateIntensityRangeError
// instead of a division by zero.
func (f *Normalization) Execute(in *volume.Volume, params Params) (*volume.Volume, error) {
	min, max := in.MinMax()
	if min == max {
		return nil, &DegenerateIntensityRangeError{Value: min}
	}

	out := in.EmptyLike()
	scale := 1 / (max - min)
	for i, v := range in.Data {
		out.Data[i] = (v - min) * scale
	}
	return out, nil
}

// String returns a printable representation.
func (f *Normalization) String() string {
	return "Normalization"
}
