// Package dvh provides stateless reductions over dose-volume histograms:
// dose statistics, Dx/Vx tables, homogeneity and conformity indices,
// equivalent uniform dose, biologically effective dose and DVH
// interpolation. A histogram is a pair of equal-length arrays produced by
// an external DICOM collaborator; the package never retains one beyond a
// call.
package dvh

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Structural errors. Numeric degeneracies (overflow, division by zero deep
// inside a formula) are never reported through these; they clamp to the
// limiting value of the formula instead.
var (
	// ErrShapeMismatch indicates the dose and volume arrays have
	// different lengths, or the histogram is empty.
	ErrShapeMismatch = errors.New("dose and volume arrays must have the same non-zero length")

	// ErrInvalidFraction indicates a non-positive fraction count was
	// passed to a BED calculation.
	ErrInvalidFraction = errors.New("number of fractions must be positive")
)

// DoseVolumeHistogram holds paired dose bins (Gy) and the volume
// percentage in each bin. The volume values need not sum to 100; every
// reduction normalizes internally. The caller owns both slices.
type DoseVolumeHistogram struct {
	// Dose is the dose axis in Gy, finite and non-negative.
	Dose []float64

	// VolumePercent is the volume fraction per bin in percent, finite
	// and non-negative.
	VolumePercent []float64
}

// validate checks the structural invariant shared by every reduction.
func (d DoseVolumeHistogram) validate() error {
	if len(d.Dose) == 0 || len(d.Dose) != len(d.VolumePercent) {
		return fmt.Errorf("%w: got %d dose bins and %d volume bins",
			ErrShapeMismatch, len(d.Dose), len(d.VolumePercent))
	}
	return nil
}

// ValidateDoseRange reports whether every dose value is finite and inside
// [minDose, maxDose]. Boundary collaborators call this before handing raw
// DICOM-derived arrays to the reducers.
func ValidateDoseRange(doses []float64, minDose, maxDose float64) bool {
	if len(doses) == 0 {
		return false
	}
	for _, v := range doses {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < minDose || v > maxDose {
			return false
		}
	}
	return true
}

// ValidateVolumeRange reports whether every volume value is finite and
// inside [minVolume, maxVolume].
func ValidateVolumeRange(volumes []float64, minVolume, maxVolume float64) bool {
	if len(volumes) == 0 {
		return false
	}
	for _, v := range volumes {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < minVolume || v > maxVolume {
			return false
		}
	}
	return true
}

// Statistics holds the weighted dose statistics of a histogram.
type Statistics struct {
	// MeanDose is the volume-weighted average dose in Gy.
	MeanDose float64

	// MedianDose is the dose at the bin whose cumulative normalized
	// volume is nearest to 50%. This is a nearest-bin approximation,
	// not an interpolated percentile.
	MedianDose float64

	// MinDose and MaxDose are the extremes of the dose axis.
	MinDose float64
	MaxDose float64

	// StdDose is the volume-weighted standard deviation.
	StdDose float64

	// DoseRange is MaxDose - MinDose.
	DoseRange float64
}

// Statistics computes the basic weighted dose statistics.
func (d DoseVolumeHistogram) Statistics() (Statistics, error) {
	if err := d.validate(); err != nil {
		return Statistics{}, err
	}

	weights := normalizeTo100(d.VolumePercent)
	mean := stat.Mean(d.Dose, weights)

	// Median: bin whose cumulative normalized volume is closest to 50%.
	cumulative := 0.0
	medianIdx := 0
	bestDist := math.Inf(1)
	for i, w := range weights {
		cumulative += w
		if dist := math.Abs(cumulative - 50); dist < bestDist {
			bestDist = dist
			medianIdx = i
		}
	}

	minDose := floats.Min(d.Dose)
	maxDose := floats.Max(d.Dose)

	// Weighted population variance: the weighted average of squared
	// deviations, not the sample-corrected estimator.
	sqDev := make([]float64, len(d.Dose))
	for i, dose := range d.Dose {
		diff := dose - mean
		sqDev[i] = diff * diff
	}
	variance := stat.Mean(sqDev, weights)

	return Statistics{
		MeanDose:   mean,
		MedianDose: d.Dose[medianIdx],
		MinDose:    minDose,
		MaxDose:    maxDose,
		StdDose:    math.Sqrt(variance),
		DoseRange:  maxDose - minDose,
	}, nil
}

// Interpolate resamples the histogram's volume values at arbitrary target
// doses. Bins are sorted by ascending dose and interpolated linearly;
// targets outside the dose range clamp to the boundary volume values.
func (d DoseVolumeHistogram) Interpolate(targetDoses []float64) ([]float64, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	doses, volumes := sortedByDose(d.Dose, d.VolumePercent, false)

	result := make([]float64, len(targetDoses))
	for i, target := range targetDoses {
		switch {
		case target <= doses[0]:
			result[i] = volumes[0]
		case target >= doses[len(doses)-1]:
			result[i] = volumes[len(volumes)-1]
		default:
			result[i] = interpolateLinear(doses, volumes, target, false)
		}
	}
	return result, nil
}

// normalizeTo100 scales volume values so they sum to 100.
func normalizeTo100(volumes []float64) []float64 {
	total := floats.Sum(volumes)
	normalized := make([]float64, len(volumes))
	for i, v := range volumes {
		normalized[i] = v / total * 100
	}
	return normalized
}

// sortedByDose returns copies of the dose and volume arrays ordered by
// dose, ascending or descending.
func sortedByDose(doses, volumes []float64, descending bool) ([]float64, []float64) {
	indices := make([]int, len(doses))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		if descending {
			return doses[indices[i]] > doses[indices[j]]
		}
		return doses[indices[i]] < doses[indices[j]]
	})

	sortedDoses := make([]float64, len(doses))
	sortedVolumes := make([]float64, len(volumes))
	for i, idx := range indices {
		sortedDoses[i] = doses[idx]
		sortedVolumes[i] = volumes[idx]
	}
	return sortedDoses, sortedVolumes
}

// interpolateLinear evaluates the piecewise-linear function through
// (xs, ys) at x. The xs values must be non-decreasing. When extrapolate
// is true, points outside [xs[0], xs[n-1]] continue the slope of the
// nearest segment; otherwise the caller is expected to have clamped x
// into range beforehand.
func interpolateLinear(xs, ys []float64, x float64, extrapolate bool) float64 {
	n := len(xs)
	if n == 1 {
		return ys[0]
	}

	// Pick the segment: the one containing x, or the boundary segment
	// when extrapolating.
	lo := 0
	switch {
	case x <= xs[0]:
		if !extrapolate {
			return ys[0]
		}
		lo = 0
	case x >= xs[n-1]:
		if !extrapolate {
			return ys[n-1]
		}
		lo = n - 2
	default:
		lo = sort.SearchFloat64s(xs, x) - 1
		if lo < 0 {
			lo = 0
		}
		for lo < n-2 && xs[lo+1] < x {
			lo++
		}
	}

	x0, x1 := xs[lo], xs[lo+1]
	y0, y1 := ys[lo], ys[lo+1]
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}
