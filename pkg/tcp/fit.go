package tcp

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"

	"radbiocalc/pkg/dvh"
)

// FitResult is the structured outcome of a parameter fit. A solver that
// fails to converge produces Success=false with the solver's message; it
// is not an error return, which is reserved for contract violations.
type FitResult struct {
	// Parameters holds the fitted values keyed by parameter name, nil
	// when the fit failed.
	Parameters map[string]float64

	// Success reports solver convergence.
	Success bool

	// FinalError is the mean-squared error at the solution.
	FinalError float64

	// Message carries the solver status when the fit failed.
	Message string

	Model Model
}

// fitBounds is a per-parameter box constraint for the local fit.
type fitBounds struct {
	lower, upper []float64
	initial      []float64
	names        []string
}

// fitSetups defines the initial guess and bounds per fittable model. The
// guesses sit at typical literature values so the local solver starts
// inside the plausible region.
var fitSetups = map[Model]fitBounds{
	Poisson: {
		names:   []string{"td50", "gamma50"},
		initial: []float64{70, 2.0},
		lower:   []float64{30, 0.5},
		upper:   []float64{100, 5.0},
	},
	LinearQuadratic: {
		names:   []string{"alpha", "beta"},
		initial: []float64{0.15, 0.05},
		lower:   []float64{0.01, 0.001},
		upper:   []float64{1.0, 0.2},
	},
}

// FitParameters fits model parameters to observed (dose, TCP) samples by
// bounded local least squares: Nelder-Mead minimization of the
// mean-squared error, with the parameter vector clamped into fixed bounds
// inside the objective. Only the Poisson and LinearQuadratic models are
// fittable.
func (c *Calculator) FitParameters(doses, tcps []float64, tumorType string, model Model) (FitResult, error) {
	if len(doses) == 0 || len(doses) != len(tcps) {
		return FitResult{}, fmt.Errorf("%w: got %d dose samples and %d TCP samples",
			dvh.ErrShapeMismatch, len(doses), len(tcps))
	}
	if _, ok := c.tumorTypes[tumorType]; !ok {
		return FitResult{}, fmt.Errorf("%w: %q", ErrUnknownTumorType, tumorType)
	}
	setup, ok := fitSetups[model]
	if !ok {
		return FitResult{}, fmt.Errorf("%w: %v", ErrNotImplemented, model)
	}

	objective := func(x []float64) float64 {
		p0 := clampTo(x[0], setup.lower[0], setup.upper[0])
		p1 := clampTo(x[1], setup.lower[1], setup.upper[1])

		mse := 0.0
		for i, dose := range doses {
			var predicted float64
			if model == Poisson {
				predicted = PoissonTCP(dose, p0, p1)
			} else {
				predicted = LinearQuadraticTCP(dose, p0, p1)
			}
			diff := predicted - tcps[i]
			mse += diff * diff
		}
		return mse / float64(len(doses))
	}

	problem := optimize.Problem{Func: objective}
	solution, err := optimize.Minimize(problem, setup.initial, nil, &optimize.NelderMead{})
	if err != nil {
		return FitResult{Success: false, Message: err.Error(), Model: model}, nil
	}

	fitted := make(map[string]float64, len(setup.names))
	for i, name := range setup.names {
		fitted[name] = clampTo(solution.X[i], setup.lower[i], setup.upper[i])
	}

	return FitResult{
		Parameters: fitted,
		Success:    true,
		FinalError: solution.F,
		Model:      model,
	}, nil
}

// clampTo limits v into [lower, upper].
func clampTo(v, lower, upper float64) float64 {
	switch {
	case v < lower:
		return lower
	case v > upper:
		return upper
	}
	return v
}
