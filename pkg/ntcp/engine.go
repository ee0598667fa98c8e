package ntcp

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"radbiocalc/pkg/dvh"
)

// Params holds the radiobiological parameters of one organ at risk. TD50,
// M and N drive the LKB model; D50 and Gamma the critical volume,
// relative seriality, logistic and Poisson models; Seriality the organ
// architecture blend. Endpoint names the clinical complication the
// parameters describe.
type Params struct {
	TD50        float64 `yaml:"td50"`
	M           float64 `yaml:"m"`
	N           float64 `yaml:"n"`
	D50         float64 `yaml:"d50"`
	Gamma       float64 `yaml:"gamma"`
	Seriality   float64 `yaml:"seriality"`
	Endpoint    string  `yaml:"endpoint"`
	Description string  `yaml:"description,omitempty"`
}

// DefaultParameters returns the documented default organ registry.
// Values are literature estimates for grade >=2 endpoints.
func DefaultParameters() map[string]Params {
	return map[string]Params{
		"lung":        {TD50: 24.5, M: 0.18, N: 0.87, D50: 20, Gamma: 1.0, Seriality: 0.0, Endpoint: "pneumonitis", Description: "Radiation pneumonitis (Grade >=2)"},
		"heart":       {TD50: 48, M: 0.16, N: 0.35, D50: 45, Gamma: 1.2, Seriality: 0.5, Endpoint: "pericarditis", Description: "Pericarditis (Grade >=2)"},
		"spinal_cord": {TD50: 66.5, M: 0.175, N: 0.05, D50: 60, Gamma: 1.5, Seriality: 1.0, Endpoint: "myelitis", Description: "Myelitis (Grade >=2)"},
		"rectum":      {TD50: 76.9, M: 0.15, N: 0.12, D50: 70, Gamma: 1.0, Seriality: 0.3, Endpoint: "bleeding", Description: "Rectal bleeding (Grade >=2)"},
		"bladder":     {TD50: 80, M: 0.11, N: 0.5, D50: 75, Gamma: 1.1, Seriality: 0.2, Endpoint: "contracture", Description: "Bladder contracture (Grade >=2)"},
		"kidney":      {TD50: 28, M: 0.1, N: 0.87, D50: 25, Gamma: 0.8, Seriality: 0.0, Endpoint: "nephritis", Description: "Nephritis (Grade >=2)"},
		"liver":       {TD50: 40, M: 0.12, N: 0.97, D50: 35, Gamma: 0.9, Seriality: 0.1, Endpoint: "hepatitis", Description: "Hepatitis (Grade >=2)"},
		"parotid":     {TD50: 46, M: 0.4, N: 0.7, D50: 40, Gamma: 1.3, Seriality: 0.0, Endpoint: "xerostomia", Description: "Xerostomia (Grade >=2)"},
		"brainstem":   {TD50: 65, M: 0.16, N: 0.16, D50: 60, Gamma: 1.4, Seriality: 0.9, Endpoint: "necrosis", Description: "Brainstem necrosis (Grade >=2)"},
		"optic_nerve": {TD50: 65, M: 0.25, N: 0.25, D50: 60, Gamma: 1.5, Seriality: 0.8, Endpoint: "neuropathy", Description: "Optic neuropathy (Grade >=2)"},
	}
}

// criticalVolumeV50 is the fixed critical volume fraction used when the
// critical volume model is driven from registry parameters.
const criticalVolumeV50 = 0.5

// Calculator scores doses and DVHs against an organ parameter registry.
// The registry is read-mostly: concurrent reads are safe, but AddOrgan
// concurrent with any other call requires external serialization.
type Calculator struct {
	organs map[string]Params
}

// NewCalculator returns a calculator seeded with the default organs.
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
	return &Calculator{organs: registry}
}

// EUD computes the equivalent uniform dose of a histogram for the volume
// exponent n: the volume-weighted mean dose for n=0 (parallel organ), the
// maximum dose for infinite n (serial organ), and otherwise
// (mean(dose^(1/n)))^n over volume-fraction weights, falling back to the
// maximum dose when the power mean overflows.
func EUD(d dvh.DoseVolumeHistogram, n float64) (float64, error) {
	stats, err := d.Statistics()
	if err != nil {
		return 0, err
	}

	switch {
	case n == 0:
		return stats.MeanDose, nil
	case math.IsInf(n, 0):
		return stats.MaxDose, nil
	}

	powered := make([]float64, len(d.Dose))
	for i, dose := range d.Dose {
		powered[i] = math.Pow(dose, 1/n)
	}
	weightedMean := stat.Mean(powered, d.VolumePercent)
	eud := math.Pow(weightedMean, n)

	if math.IsNaN(weightedMean) || math.IsInf(weightedMean, 0) ||
		math.IsNaN(eud) || math.IsInf(eud, 0) {
		return stats.MaxDose, nil
	}
	return eud, nil
}

// UniformResult is the outcome of scoring a single uniform dose.
type UniformResult struct {
	NTCP       float64
	Dose       float64
	Model      Model
	Organ      string
	Endpoint   string
	Parameters Params
}

// Result is the outcome of scoring a dose-volume histogram for one organ.
type Result struct {
	NTCP float64

	MeanDose float64
	MaxDose  float64

	// V20, V30 and V40 are the volume percentages receiving at least
	// 20, 30 and 40 Gy (0 when no bin qualifies).
	V20 float64
	V30 float64
	V40 float64

	Model      Model
	Organ      string
	Endpoint   string
	Parameters Params
}

// UniformDoseNTCP scores a uniform dose for a registered organ. The
// critical volume model assumes the whole organ (volume fraction 1) is
// irradiated.
func (c *Calculator) UniformDoseNTCP(dose float64, organ string, model Model) (UniformResult, error) {
	params, ok := c.organs[organ]
	if !ok {
		return UniformResult{}, fmt.Errorf("%w: %q", ErrUnknownOrgan, organ)
	}

	var ntcp float64
	switch model {
	case LymanKutcherBurman:
		ntcp = LKB(dose, params.TD50, params.M)
	case CriticalVolume:
		ntcp = CriticalVolumeNTCP(dose, 1.0, params.D50, criticalVolumeV50, params.Gamma)
	case RelativeSeriality:
		ntcp = RelativeSerialityNTCP(dose, params.D50, params.Gamma, params.Seriality)
	case Logistic:
		ntcp = LogisticNTCP(dose, params.D50, params.Gamma)
	case Poisson:
		ntcp = PoissonNTCP(dose, params.D50, params.Gamma)
	default:
		return UniformResult{}, fmt.Errorf("%w: %v", ErrUnknownModel, model)
	}

	return UniformResult{
		NTCP:       ntcp,
		Dose:       dose,
		Model:      model,
		Organ:      organ,
		Endpoint:   params.Endpoint,
		Parameters: params,
	}, nil
}

// DVHNTCP scores a dose-volume histogram for a registered organ. The
// model determines the DVH reduction feeding it: LKB scores the EUD for
// the organ's volume exponent, the critical volume model scores the
// maximum dose together with the volume fraction above the organ's d50,
// and the remaining models score the volume-weighted mean dose.
func (c *Calculator) DVHNTCP(d dvh.DoseVolumeHistogram, organ string, model Model) (Result, error) {
	params, ok := c.organs[organ]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOrgan, organ)
	}
	stats, err := d.Statistics()
	if err != nil {
		return Result{}, err
	}

	var ntcp float64
	switch model {
	case LymanKutcherBurman:
		eud, err := EUD(d, params.N)
		if err != nil {
			return Result{}, err
		}
		ntcp = LKB(eud, params.TD50, params.M)
	case CriticalVolume:
		aboveThreshold := 0.0
		for i, dose := range d.Dose {
			if dose > params.D50 {
				aboveThreshold += d.VolumePercent[i]
			}
		}
		ntcp = CriticalVolumeNTCP(stats.MaxDose, aboveThreshold/100,
			params.D50, criticalVolumeV50, params.Gamma)
	case RelativeSeriality:
		ntcp = RelativeSerialityNTCP(stats.MeanDose, params.D50, params.Gamma, params.Seriality)
	case Logistic:
		ntcp = LogisticNTCP(stats.MeanDose, params.D50, params.Gamma)
	case Poisson:
		ntcp = PoissonNTCP(stats.MeanDose, params.D50, params.Gamma)
	default:
		return Result{}, fmt.Errorf("%w: %v", ErrUnknownModel, model)
	}

	vx, err := d.VxValues([]float64{20, 30, 40})
	if err != nil {
		return Result{}, err
	}

	return Result{
		NTCP:       ntcp,
		MeanDose:   stats.MeanDose,
		MaxDose:    stats.MaxDose,
		V20:        vx[20],
		V30:        vx[30],
		V40:        vx[40],
		Model:      model,
		Organ:      organ,
		Endpoint:   params.Endpoint,
		Parameters: params,
	}, nil
}

// DoseResponseCurve evaluates the model for a registered organ over
// [0, maxDose] at the given resolution. It returns parallel dose and NTCP
// slices.
func (c *Calculator) DoseResponseCurve(maxDose, resolution float64, organ string, model Model) ([]float64, []float64, error) {
	var doses, ntcps []float64
	for dose := 0.0; dose <= maxDose; dose += resolution {
		result, err := c.UniformDoseNTCP(dose, organ, model)
		if err != nil {
			return nil, nil, err
		}
		doses = append(doses, dose)
		ntcps = append(ntcps, result.NTCP)
	}
	return doses, ntcps, nil
}

// requiredOrganKeys are the numeric parameters AddOrgan validates.
// Seriality is optional and defaults to 0 (parallel organ).
var requiredOrganKeys = []string{"td50", "m", "n", "d50", "gamma"}

// AddOrgan registers a new organ from a keyed parameter map and its
// clinical endpoint. All of td50, m, n, d50 and gamma must be present.
func (c *Calculator) AddOrgan(name, endpoint string, params map[string]float64) error {
	for _, key := range requiredOrganKeys {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingParameter, key)
		}
	}

	c.organs[name] = Params{
		TD50:      params["td50"],
		M:         params["m"],
		N:         params["n"],
		D50:       params["d50"],
		Gamma:     params["gamma"],
		Seriality: params["seriality"],
		Endpoint:  endpoint,
	}
	return nil
}

// Organs returns the registered organ names in sorted order.
func (c *Calculator) Organs() []string {
	names := make([]string, 0, len(c.organs))
	for name := range c.organs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComplicationFreeProbability is the probability of no complication in
// any scored organ: the product of (1 - NTCP_i), assuming statistical
// independence across organs.
func ComplicationFreeProbability(results []Result) float64 {
	cfp := 1.0
	for _, r := range results {
		cfp *= 1 - r.NTCP
	}
	return cfp
}

// RatioResult bundles the therapeutic ratio definitions for one TCP and
// one aggregated NTCP value.
type RatioResult struct {
	TCP       float64
	TotalNTCP float64

	// UncomplicatedCureProbability is tcp * (1 - totalNTCP).
	UncomplicatedCureProbability float64

	// RatioTCPNTCP is tcp/totalNTCP, +Inf when totalNTCP is 0.
	RatioTCPNTCP float64

	// RatioUCPNTCP is ucp/totalNTCP, +Inf when totalNTCP is 0.
	RatioUCPNTCP float64
}

// TherapeuticRatio combines a tumor control probability with an
// aggregated NTCP into the uncomplicated cure probability and the two
// ratio definitions.
func TherapeuticRatio(tcp, totalNTCP float64) RatioResult {
	ucp := tcp * (1 - totalNTCP)

	ratio1 := math.Inf(1)
	ratio2 := math.Inf(1)
	if totalNTCP > 0 {
		ratio1 = tcp / totalNTCP
		ratio2 = ucp / totalNTCP
	}

	return RatioResult{
		TCP:                          tcp,
		TotalNTCP:                    totalNTCP,
		UncomplicatedCureProbability: ucp,
		RatioTCPNTCP:                 ratio1,
		RatioUCPNTCP:                 ratio2,
	}
}
