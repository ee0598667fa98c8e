// Package tcp implements tumor control probability models and a
// registry-backed calculator that scores dose-volume histograms or
// uniform doses against a named tumor type.
package tcp

import (
	"errors"
	"fmt"
	"math"
)

// Structural errors reported by the calculator. Numeric overflow inside a
// model function never surfaces here; it degenerates to the 0/1 limit of
// the formula instead.
var (
	// ErrUnknownModel indicates a model name or value outside the
	// supported set.
	ErrUnknownModel = errors.New("unknown TCP model")

	// ErrUnknownTumorType indicates a tumor type absent from the
	// registry.
	ErrUnknownTumorType = errors.New("unknown tumor type")

	// ErrMissingParameter indicates a registry addition without all
	// required parameters.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrNotImplemented indicates parameter fitting was requested for a
	// model without fit support.
	ErrNotImplemented = errors.New("parameter fitting not implemented for model")
)

// Model identifies one of the supported TCP models.
type Model int

const (
	// Poisson is the sigmoidal Poisson model parameterized by TD50 and
	// the normalized slope gamma50.
	Poisson Model = iota

	// LinearQuadratic derives TCP from linear-quadratic cell survival.
	LinearQuadratic

	// WebbNahum folds clonogen density into a Poisson kill model.
	WebbNahum

	// Logistic is a plain logistic dose response.
	Logistic
)

var modelNames = map[Model]string{
	Poisson:         "poisson",
	LinearQuadratic: "lq",
	WebbNahum:       "webb_nahum",
	Logistic:        "logistic",
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

// DefaultClonogenDensity is the clonogen density (cells/cm3) used by the
// Webb-Nahum model when the caller has no measured value.
const DefaultClonogenDensity = 1e7

// PoissonTCP computes the Poisson model
//
//	TCP = 1 / (1 + exp(-4*gamma50*(dose-td50)/td50))
//
// degenerating to 0 below td50 and 1 above it when the evaluation is not
// finite.
func PoissonTCP(dose, td50, gamma50 float64) float64 {
	exponent := -4 * gamma50 * (dose - td50) / td50
	tcp := 1 / (1 + math.Exp(exponent))
	if math.IsNaN(tcp) {
		return stepAt(dose, td50)
	}
	return clip01(tcp)
}

// LinearQuadraticTCP computes TCP from the linear-quadratic survival
// fraction SF = exp(-alpha*dose - beta*dose^2) as 1 - SF.
func LinearQuadraticTCP(dose, alpha, beta float64) float64 {
	sf := math.Exp(-alpha*dose - beta*dose*dose)
	return clip01(1 - sf)
}

// WebbNahumTCP computes the Webb-Nahum model: survival
// SF = exp(-ln2*(dose/d50)^gamma) scaled by clonogen density rho into
// TCP = exp(-rho*SF). Non-finite evaluations degenerate to the 0/1 step
// at d50.
func WebbNahumTCP(dose, d50, gamma, clonogenDensity float64) float64 {
	sf := math.Exp(-math.Ln2 * math.Pow(dose/d50, gamma))
	tcp := math.Exp(-clonogenDensity * sf)
	if math.IsNaN(tcp) {
		return stepAt(dose, d50)
	}
	return clip01(tcp)
}

// LogisticTCP computes TCP = 1 / (1 + exp(-k*(dose-d50))).
func LogisticTCP(dose, d50, k float64) float64 {
	tcp := 1 / (1 + math.Exp(-k*(dose-d50)))
	if math.IsNaN(tcp) {
		return stepAt(dose, d50)
	}
	return clip01(tcp)
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

// stepAt is the degenerate limit of a sigmoid whose evaluation overflowed:
// 0 below the threshold dose, 1 at or above it.
func stepAt(dose, threshold float64) float64 {
	if dose < threshold {
		return 0
	}
	return 1
}
