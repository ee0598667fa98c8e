package dvh

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// logEpsilon guards the geometric-mean branch of EUD against log(0) for
// zero-dose bins.
const logEpsilon = 1e-10

// EUD computes the generalized equivalent uniform dose with exponent a
// over volume-fraction weights:
//
//	EUD = (sum_i w_i * dose_i^a)^(1/a)
//
// Singular exponents take their limiting form: a=0 is the weighted
// geometric mean, a=+Inf the maximum dose and a=-Inf the minimum dose.
// If the power mean overflows or degenerates, the result falls back to
// the maximum dose for a>0 and the minimum dose for a<0.
func (d DoseVolumeHistogram) EUD(a float64) (float64, error) {
	if err := d.validate(); err != nil {
		return 0, err
	}

	switch {
	case a == 0:
		logs := make([]float64, len(d.Dose))
		for i, dose := range d.Dose {
			logs[i] = math.Log(dose + logEpsilon)
		}
		return math.Exp(stat.Mean(logs, d.VolumePercent)), nil
	case math.IsInf(a, 1):
		return floats.Max(d.Dose), nil
	case math.IsInf(a, -1):
		return floats.Min(d.Dose), nil
	}

	powered := make([]float64, len(d.Dose))
	for i, dose := range d.Dose {
		powered[i] = math.Pow(dose, a)
	}
	weightedMean := stat.Mean(powered, d.VolumePercent)
	eud := math.Pow(weightedMean, 1/a)

	if math.IsNaN(weightedMean) || math.IsInf(weightedMean, 0) ||
		math.IsNaN(eud) || math.IsInf(eud, 0) {
		if a > 0 {
			return floats.Max(d.Dose), nil
		}
		return floats.Min(d.Dose), nil
	}
	return eud, nil
}
