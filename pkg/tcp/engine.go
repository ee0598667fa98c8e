package tcp

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"radbiocalc/pkg/dvh"
)

// Params holds the radiobiological parameters of one tumor type. TD50 and
// Gamma50 drive the Poisson, Webb-Nahum and Logistic models; Alpha and
// Beta drive the linear-quadratic model.
type Params struct {
	TD50        float64 `yaml:"td50"`
	Gamma50     float64 `yaml:"gamma50"`
	Alpha       float64 `yaml:"alpha"`
	Beta        float64 `yaml:"beta"`
	Description string  `yaml:"description,omitempty"`
}

// DefaultParameters returns the documented default tumor-type registry.
// Values are literature estimates for conventional fractionation.
func DefaultParameters() map[string]Params {
	return map[string]Params{
		"prostate":  {TD50: 70, Gamma50: 2.0, Alpha: 0.15, Beta: 0.05, Description: "Prostate adenocarcinoma"},
		"lung":      {TD50: 60, Gamma50: 1.8, Alpha: 0.18, Beta: 0.04, Description: "Non-small cell lung cancer"},
		"breast":    {TD50: 50, Gamma50: 2.2, Alpha: 0.20, Beta: 0.05, Description: "Breast adenocarcinoma"},
		"head_neck": {TD50: 65, Gamma50: 2.5, Alpha: 0.25, Beta: 0.06, Description: "Head and neck squamous cell carcinoma"},
		"rectum":    {TD50: 55, Gamma50: 1.9, Alpha: 0.16, Beta: 0.04, Description: "Rectal adenocarcinoma"},
		"cervix":    {TD50: 65, Gamma50: 2.1, Alpha: 0.22, Beta: 0.05, Description: "Cervical squamous cell carcinoma"},
	}
}

// Calculator scores doses and DVHs against a tumor-type parameter
// registry. The registry is read-mostly: concurrent reads are safe, but
// AddTumorType concurrent with any other call requires external
// serialization.
type Calculator struct {
	tumorTypes map[string]Params
}

// NewCalculator returns a calculator seeded with the default tumor types.
func NewCalculator() *Calculator {
	return NewCalculatorWithParameters(DefaultParameters())
}

// NewCalculatorWithParameters returns a calculator backed by an explicit
// registry, e.g. one loaded from configuration. The map is copied.
func NewCalculatorWithParameters(params map[string]Params) *Calculator {
	registry := make(map[string]Params, len(params))
	for name, p := range params {
		registry[name] = p
	}
	return &Calculator{tumorTypes: registry}
}

// UniformResult is the outcome of scoring a single uniform dose.
type UniformResult struct {
	TCP        float64
	Dose       float64
	Model      Model
	TumorType  string
	Parameters Params
}

// DVHResult is the outcome of scoring a dose-volume histogram.
type DVHResult struct {
	// TotalTCP is the sum of the per-bin volume-weighted TCP terms.
	// This is a volume-weighted aggregate, deliberately not renormalized
	// into a combined probability; consumers depend on this exact
	// definition.
	TotalTCP float64

	// MeanTCP is the arithmetic mean of the weighted terms.
	MeanTCP float64

	// TCPAtD95 and TCPAtD50 are the weighted terms at the bin whose raw
	// volume percentage is nearest to 95 and 50. Nearest-bin matching,
	// unlike the interpolating Dx reducer.
	TCPAtD95 float64
	TCPAtD50 float64

	// TCPValues is the full per-bin weighted TCP series, in bin order.
	TCPValues []float64

	MeanDose float64
	MaxDose  float64

	Model      Model
	TumorType  string
	Parameters Params
}

// evaluate dispatches a dose to the model function with the registry
// parameters. The Webb-Nahum and Logistic dispatches reuse TD50/Gamma50
// as their threshold and slope, matching the registry layout.
func evaluate(model Model, dose float64, p Params) (float64, error) {
	switch model {
	case Poisson:
		return PoissonTCP(dose, p.TD50, p.Gamma50), nil
	case LinearQuadratic:
		return LinearQuadraticTCP(dose, p.Alpha, p.Beta), nil
	case WebbNahum:
		return WebbNahumTCP(dose, p.TD50, p.Gamma50, DefaultClonogenDensity), nil
	case Logistic:
		return LogisticTCP(dose, p.TD50, p.Gamma50), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownModel, model)
}

// UniformDoseTCP scores a uniform dose for a registered tumor type.
func (c *Calculator) UniformDoseTCP(dose float64, tumorType string, model Model) (UniformResult, error) {
	params, ok := c.tumorTypes[tumorType]
	if !ok {
		return UniformResult{}, fmt.Errorf("%w: %q", ErrUnknownTumorType, tumorType)
	}

	tcp, err := evaluate(model, dose, params)
	if err != nil {
		return UniformResult{}, err
	}

	return UniformResult{
		TCP:        tcp,
		Dose:       dose,
		Model:      model,
		TumorType:  tumorType,
		Parameters: params,
	}, nil
}

// DVHTCP scores a dose-volume histogram for a registered tumor type. Each
// bin contributes modelValue(dose_i) * volumePercent_i/100.
func (c *Calculator) DVHTCP(d dvh.DoseVolumeHistogram, tumorType string, model Model) (DVHResult, error) {
	params, ok := c.tumorTypes[tumorType]
	if !ok {
		return DVHResult{}, fmt.Errorf("%w: %q", ErrUnknownTumorType, tumorType)
	}
	stats, err := d.Statistics()
	if err != nil {
		return DVHResult{}, err
	}

	weighted := make([]float64, len(d.Dose))
	for i, dose := range d.Dose {
		tcp, err := evaluate(model, dose, params)
		if err != nil {
			return DVHResult{}, err
		}
		weighted[i] = tcp * d.VolumePercent[i] / 100
	}

	total := 0.0
	for _, v := range weighted {
		total += v
	}

	return DVHResult{
		TotalTCP:   total,
		MeanTCP:    stat.Mean(weighted, nil),
		TCPAtD95:   weighted[nearestIndex(d.VolumePercent, 95)],
		TCPAtD50:   weighted[nearestIndex(d.VolumePercent, 50)],
		TCPValues:  weighted,
		MeanDose:   stats.MeanDose,
		MaxDose:    stats.MaxDose,
		Model:      model,
		TumorType:  tumorType,
		Parameters: params,
	}, nil
}

// DoseResponseCurve evaluates the model for a registered tumor type over
// [0, maxDose] at the given resolution, for plotting by a display
// collaborator. It returns parallel dose and TCP slices.
func (c *Calculator) DoseResponseCurve(maxDose, resolution float64, tumorType string, model Model) ([]float64, []float64, error) {
	params, ok := c.tumorTypes[tumorType]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTumorType, tumorType)
	}

	var doses, tcps []float64
	for dose := 0.0; dose <= maxDose; dose += resolution {
		tcp, err := evaluate(model, dose, params)
		if err != nil {
			return nil, nil, err
		}
		doses = append(doses, dose)
		tcps = append(tcps, tcp)
	}
	return doses, tcps, nil
}

// requiredTumorKeys are the parameters AddTumorType validates.
var requiredTumorKeys = []string{"td50", "gamma50", "alpha", "beta"}

// AddTumorType registers a new tumor type from a keyed parameter map. All
// of td50, gamma50, alpha and beta must be present.
func (c *Calculator) AddTumorType(name string, params map[string]float64) error {
	for _, key := range requiredTumorKeys {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingParameter, key)
		}
	}

	c.tumorTypes[name] = Params{
		TD50:    params["td50"],
		Gamma50: params["gamma50"],
		Alpha:   params["alpha"],
		Beta:    params["beta"],
	}
	return nil
}

// TumorTypes returns the registered tumor type names in sorted order.
func (c *Calculator) TumorTypes() []string {
	names := make([]string, 0, len(c.tumorTypes))
	for name := range c.tumorTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nearestIndex returns the index of the value closest to target.
func nearestIndex(values []float64, target float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, v := range values {
		if dist := math.Abs(v - target); dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}
