// Package metrics quantifies how much a pre-processing step changed an
// image. The pipeline logs these in verbose mode so the effect of each
// filter on the intensity distribution can be tracked run to run.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"brainprep/pkg/volume"
)

// StepChange summarizes the intensity change between a filter's input and
// output.
type StepChange struct {
	// RMSE is the root mean square voxel-wise difference.
	RMSE float64

	// MeanAbsDiff is the mean absolute voxel-wise difference.
	MeanAbsDiff float64

	// EntropyDiff is the absolute difference in Shannon entropy (256-bin
	// histogram) between the two intensity distributions.
	EntropyDiff float64

	// SSIM is the global Structural Similarity Index between the two
	// volumes; 1 means structurally identical.
	SSIM float64
}

// Compare computes the change metrics between two volumes of identical
// shape. Volumes with different shapes (a resampling step changed the
// grid) are not directly comparable and yield an error.
func Compare(before, after *volume.Volume) (StepChange, error) {
	if !before.SameShape(after) {
		return StepChange{}, fmt.Errorf("metrics: volumes have different shapes %v and %v",
			before.Shape(), after.Shape())
	}

	n := len(before.Data)
	var sq, abs float64
	for i := 0; i < n; i++ {
		d := before.Data[i] - after.Data[i]
		sq += d * d
		abs += math.Abs(d)
	}

	ssim, err := SSIM(before, after)
	if err != nil {
		return StepChange{}, err
	}

	return StepChange{
		RMSE:        math.Sqrt(sq / float64(n)),
		MeanAbsDiff: abs / float64(n),
		EntropyDiff: math.Abs(Entropy(before.Data) - Entropy(after.Data)),
		SSIM:        ssim,
	}, nil
}

// Entropy computes the Shannon entropy of the intensity distribution over
// a 256-bin histogram. A constant distribution has zero entropy.
func Entropy(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	min := data[0]
	max := data[0]
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max <= min {
		return 0
	}

	const numBins = 256
	hist := make([]float64, numBins)
	binWidth := (max - min) / float64(numBins)
	for _, v := range data {
		binIdx := int((v - min) / binWidth)
		if binIdx >= numBins {
			binIdx = numBins - 1
		}
		hist[binIdx]++
	}

	entropy := 0.0
	for _, count := range hist {
		if count > 0 {
			p := count / float64(n)
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

// SSIM computes the global Structural Similarity Index between two
// equally shaped volumes over a unit dynamic range.
func SSIM(a, b *volume.Volume) (float64, error) {
	if !a.SameShape(b) {
		return 0, fmt.Errorf("metrics: volumes have different shapes %v and %v",
			a.Shape(), b.Shape())
	}

	const L = 1.0
	const k1 = 0.01
	const k2 = 0.03
	c1 := (k1 * L) * (k1 * L)
	c2 := (k2 * L) * (k2 * L)

	muX := stat.Mean(a.Data, nil)
	muY := stat.Mean(b.Data, nil)
	sigmaX := stat.Variance(a.Data, nil)
	sigmaY := stat.Variance(b.Data, nil)
	sigmaXY := stat.Covariance(a.Data, b.Data, nil)

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}
