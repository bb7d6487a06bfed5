package filter

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"brainprep/pkg/volume"
)

// defaultMatchPoints is the number of quantile match points used for
// histogram matching when none is configured.
const defaultMatchPoints = 7

// FilteringParams configures the generic filtering stage. The zero value
// leaves every operation disabled, making the filter an exact
// pass-through.
type FilteringParams struct {
	// Atlas is the reference image for histogram matching.
	Atlas *volume.Volume

	// SmoothingSigma is the standard deviation in voxels of the Gaussian
	// smoothing kernel. Values <= 0 disable smoothing.
	SmoothingSigma float64

	// MatchHistogram enables quantile-based histogram matching against
	// the atlas.
	MatchHistogram bool

	// MatchPoints is the number of interior quantile points used for the
	// histogram mapping; 0 selects the default of 7.
	MatchPoints int
}

// Filtering is the generic pre-processing stage. By default it passes the
// image through unchanged; Gaussian smoothing and histogram matching can
// be enabled through its parameters.
type Filtering struct{}

// NewFiltering creates a new filtering stage.
func NewFiltering() *Filtering {
	return &Filtering{}
}

// Execute applies the configured operations in order: smoothing first,
// then histogram matching. With nil or zero-valued parameters the output
// is an identical copy of the input.
func (f *Filtering) Execute(in *volume.Volume, params Params) (*volume.Volume, error) {
	var p *FilteringParams
	if params != nil {
		var ok bool
		p, ok = params.(*FilteringParams)
		if !ok {
			return nil, fmt.Errorf("filtering: unexpected parameter type %T", params)
		}
	}

	out := in.Clone()
	if p == nil {
		return out, nil
	}

	if p.SmoothingSigma > 0 {
		out = gaussianSmooth(out, p.SmoothingSigma)
	}

	if p.MatchHistogram {
		if p.Atlas == nil {
			return nil, fmt.Errorf("filtering: histogram matching requires an atlas reference")
		}
		points := p.MatchPoints
		if points <= 0 {
			points = defaultMatchPoints
		}
		out = matchHistogram(out, p.Atlas, points)
	}

	return out, nil
}

// String returns a printable representation.
func (f *Filtering) String() string {
	return "Filtering"
}

// gaussianKernel builds a normalized 1D Gaussian kernel for the given
// sigma, truncated at three standard deviations.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflect folds an out-of-bounds coordinate back into [0, size-1].
func reflect(size, x int) int {
	for x < 0 || x >= size {
		if x < 0 {
			x = -x - 1
		}
		if x >= size {
			x = 2*size - x - 1
		}
	}
	return x
}

// gaussianSmooth applies the separable Gaussian along each axis in turn,
// with reflected boundaries. Geometry is preserved.
func gaussianSmooth(v *volume.Volume, sigma float64) *volume.Volume {
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	cur := v
	for axis := 0; axis < 3; axis++ {
		next := cur.EmptyLike()
		for z := 0; z < cur.Nz; z++ {
			for y := 0; y < cur.Ny; y++ {
				for x := 0; x < cur.Nx; x++ {
					var sum float64
					for k, w := range kernel {
						o := k - radius
						switch axis {
						case 0:
							sum += w * cur.At(reflect(cur.Nx, x+o), y, z)
						case 1:
							sum += w * cur.At(x, reflect(cur.Ny, y+o), z)
						default:
							sum += w * cur.At(x, y, reflect(cur.Nz, z+o))
						}
					}
					next.Set(x, y, z, sum)
				}
			}
		}
		cur = next
	}
	return cur
}

// matchHistogram remaps the image intensities so their quantiles line up
// with the atlas reference. The mapping is piecewise linear through the
// given number of interior quantile points plus both extrema.
func matchHistogram(v, ref *volume.Volume, points int) *volume.Volume {
	srcQ := quantilePoints(v.Data, points)
	refQ := quantilePoints(ref.Data, points)

	out := v.EmptyLike()
	for i, val := range v.Data {
		out.Data[i] = mapPiecewiseLinear(val, srcQ, refQ)
	}
	return out
}

// quantilePoints returns the intensities at the extrema and at the given
// number of evenly spaced interior quantiles, in ascending order.
func quantilePoints(data []float64, points int) []float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	q := make([]float64, 0, points+2)
	q = append(q, sorted[0])
	for i := 1; i <= points; i++ {
		p := float64(i) / float64(points+1)
		q = append(q, stat.Quantile(p, stat.Empirical, sorted, nil))
	}
	q = append(q, sorted[len(sorted)-1])
	return q
}

// mapPiecewiseLinear maps val through the piecewise linear function with
// knots (src[i], dst[i]). Values outside the source range clamp to the
// destination extrema.
func mapPiecewiseLinear(val float64, src, dst []float64) float64 {
	if val <= src[0] {
		return dst[0]
	}
	n := len(src)
	if val >= src[n-1] {
		return dst[n-1]
	}
	for i := 1; i < n; i++ {
		if val <= src[i] {
			if src[i] == src[i-1] {
				return dst[i]
			}
			t := (val - src[i-1]) / (src[i] - src[i-1])
			return dst[i-1] + t*(dst[i]-dst[i-1])
		}
	}
	return dst[n-1]
}
