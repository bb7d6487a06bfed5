// Package filter contains the image pre-processing filters applied before
// the analysis pipeline: intensity normalization, skull-stripping, atlas
// registration and a generic filtering stage. Filters are stateless; each
// invocation receives a volume plus a filter-specific parameter object and
// returns a new volume, leaving the input untouched.
package filter

import (
	"fmt"

	"brainprep/pkg/volume"
)

// Params is the marker for filter-specific parameter objects. Parameter
// objects are plain data holders created per call; filters that take no
// parameters accept nil.
type Params interface{}

// Filter is the single-operation surface exposed by every pre-processing
// step. Execute never mutates in; it returns a freshly allocated volume.
type Filter interface {
	Execute(in *volume.Volume, params Params) (*volume.Volume, error)
}

// InvalidGeometryError reports mismatched shapes among the image and an
// auxiliary volume (mask or atlas).
type InvalidGeometryError struct {
	// Op names the filter that detected the mismatch.
	Op string

	// Want is the image shape, Got the auxiliary volume's shape.
	Want, Got [3]int
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("%s: geometry mismatch: image is %dx%dx%d but got %dx%dx%d",
		e.Op, e.Want[0], e.Want[1], e.Want[2], e.Got[0], e.Got[1], e.Got[2])
}

// DegenerateIntensityRangeError reports a constant-valued image, for which
// min-max normalization is undefined.
type DegenerateIntensityRangeError struct {
	// Value is the single intensity present in the image.
	Value float64
}

func (e *DegenerateIntensityRangeError) Error() string {
	return fmt.Sprintf("normalization: degenerate intensity range: image is constant at %g", e.Value)
}
