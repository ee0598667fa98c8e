// Package ntcp implements normal tissue complication probability models,
// a registry-backed calculator over organ parameters, EUD reduction and
// multi-organ aggregation helpers.
package ntcp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownModel indicates a model name or value outside the
	// supported set.
	ErrUnknownModel = errors.New("unknown NTCP model")

	// ErrUnknownOrgan indicates an organ absent from the registry.
	ErrUnknownOrgan = errors.New("unknown organ")

	// ErrMissingParameter indicates a registry addition without all
	// required parameters.
	ErrMissingParameter = errors.New("missing required parameter")
)

// Model identifies one of the supported NTCP models.
type Model int

const (
	// LymanKutcherBurman is the probit model on the EUD-reduced dose.
	LymanKutcherBurman Model = iota

	// CriticalVolume triggers once a critical volume fraction is
	// irradiated.
	CriticalVolume

	// RelativeSeriality interpolates between parallel and serial organ
	// architecture.
	RelativeSeriality

	// Logistic is a plain logistic dose response.
	Logistic

	// Poisson is the probit approximation of the Poisson dose response.
	Poisson
)

var modelNames = map[Model]string{
	LymanKutcherBurman: "lkb",
	CriticalVolume:     "critical_volume",
	RelativeSeriality:  "relative_seriality",
	Logistic:           "logistic",
	Poisson:            "poisson",
}

// String returns the canonical lowercase model name.
func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel maps a model name from configuration or a caller onto its
// Model value.
func ParseModel(name string) (Model, error) {
	for model, n := range modelNames {
		if n == name {
			return model, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// normCDF is the standard normal cumulative distribution via the error
// function.
func normCDF(t float64) float64 {
	return 0.5 * (1 + math.Erf(t/math.Sqrt2))
}

// LKB computes the Lyman-Kutcher-Burman model: NTCP = Phi(t) with
// t = (dose-td50)/(m*td50). dose is expected to be the EUD of the
// structure for the organ's volume exponent n; n itself does not enter
// the probit. Non-finite evaluations degenerate to the 0/1 step at td50.
func LKB(dose, td50, m float64) float64 {
	t := (dose - td50) / (m * td50)
	ntcp := normCDF(t)
	if math.IsNaN(ntcp) {
		return stepAt(dose, td50)
	}
	return clip01(ntcp)
}

// CriticalVolumeNTCP computes the critical volume model. Below the
// critical volume fraction v50 no complication occurs; above it the dose
// is amplified by (volumeFraction/v50)^gamma and scored against d50.
func CriticalVolumeNTCP(dose, volumeFraction, d50, v50, gamma float64) float64 {
	if volumeFraction < v50 {
		return 0
	}

	effectiveDose := dose * math.Pow(volumeFraction/v50, gamma)
	t := (effectiveDose - d50) / d50
	ntcp := 0.5 * (1 + math.Erf(t))
	if math.IsNaN(ntcp) {
		return 0
	}
	return clip01(ntcp)
}

// RelativeSerialityNTCP computes the relative seriality model. The
// uniform-dose complication probability p = Phi((dose-d50)/(gamma*d50))
// is reshaped by the seriality parameter s: s=0 is a parallel organ
// (NTCP = p), s=1 a serial organ (NTCP = 1-(1-p)^dose, with the raw dose
// as the exponent), and intermediate s blends the two.
func RelativeSerialityNTCP(dose, d50, gamma, s float64) float64 {
	p := normCDF((dose - d50) / (gamma * d50))
	if math.IsNaN(p) {
		return 0
	}

	var ntcp float64
	switch s {
	case 0:
		ntcp = p
	case 1:
		ntcp = 1 - math.Pow(1-p, dose)
	default:
		serial := 1 - math.Pow(1-p, dose)
		ntcp = s*serial + (1-s)*p
	}
	if math.IsNaN(ntcp) {
		return 0
	}
	return clip01(ntcp)
}

// LogisticNTCP computes NTCP = 1 / (1 + exp(-k*(dose-d50))).
func LogisticNTCP(dose, d50, k float64) float64 {
	ntcp := 1 / (1 + math.Exp(-k*(dose-d50)))
	if math.IsNaN(ntcp) {
		return stepAt(dose, d50)
	}
	return clip01(ntcp)
}

// PoissonNTCP computes the probit approximation NTCP = Phi(t) with
// t = 2*gamma*(dose/d50 - 1).
func PoissonNTCP(dose, d50, gamma float64) float64 {
	t := 2 * gamma * (dose/d50 - 1)
	ntcp := normCDF(t)
	if math.IsNaN(ntcp) {
		return stepAt(dose, d50)
	}
	return clip01(ntcp)
}

// clip01 clamps a probability into [0, 1].
func clip01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// stepAt is the degenerate limit of a sigmoid whose evaluation overflowed.
func stepAt(dose, threshold float64) float64 {
	if dose < threshold {
		return 0
	}
	return 1
}
