package ntcp

import (
	"errors"
	"math"
	"testing"

	"radbiocalc/pkg/dvh"
)

// TestLKB verifies the Lyman-Kutcher-Burman probit model
func TestLKB(t *testing.T) {
	// At dose == TD50 the probit argument is 0 and NTCP is exactly 0.5
	if ntcp := LKB(24.5, 24.5, 0.18); math.Abs(ntcp-0.5) > 1e-12 {
		t.Errorf("Expected NTCP 0.5 at TD50, got %f", ntcp)
	}

	// Monotonic and bounded
	prev := -1.0
	for dose := 0.0; dose <= 80; dose += 2 {
		ntcp := LKB(dose, 24.5, 0.18)
		if ntcp < prev-1e-12 {
			t.Errorf("Expected monotonic NTCP at dose %f", dose)
		}
		if ntcp < 0 || ntcp > 1 {
			t.Errorf("NTCP %f outside [0, 1] at dose %f", ntcp, dose)
		}
		prev = ntcp
	}

	// A smaller slope parameter m gives a steeper response
	shallow := LKB(30, 24.5, 0.4)
	steep := LKB(30, 24.5, 0.1)
	if steep <= shallow {
		t.Errorf("Expected smaller m to steepen the response above TD50: %f vs %f",
			steep, shallow)
	}
}

// TestCriticalVolumeNTCP verifies the threshold behavior of the critical
// volume model
func TestCriticalVolumeNTCP(t *testing.T) {
	// Below the critical volume fraction there is no complication
	if ntcp := CriticalVolumeNTCP(60, 0.3, 20, 0.5, 1.0); ntcp != 0 {
		t.Errorf("Expected NTCP 0 below the critical volume, got %f", ntcp)
	}

	// At the critical fraction the amplification factor is 1, so the
	// model reduces to the erf response at the raw dose
	ntcp := CriticalVolumeNTCP(20, 0.5, 20, 0.5, 1.0)
	if math.Abs(ntcp-0.5) > 1e-12 {
		t.Errorf("Expected NTCP 0.5 at d50 and the critical fraction, got %f", ntcp)
	}

	// A larger irradiated fraction amplifies the effective dose
	small := CriticalVolumeNTCP(15, 0.5, 20, 0.5, 1.0)
	large := CriticalVolumeNTCP(15, 1.0, 20, 0.5, 1.0)
	if large <= small {
		t.Errorf("Expected larger volume fraction to raise NTCP: %f vs %f", large, small)
	}
}

// TestRelativeSerialityNTCP verifies the seriality blending
func TestRelativeSerialityNTCP(t *testing.T) {
	d50, gamma := 50.0, 1.0

	// A parallel organ (s=0) reduces to the plain probit response
	p := 0.5 * (1 + math.Erf((60.0-d50)/(gamma*d50)/math.Sqrt2))
	if ntcp := RelativeSerialityNTCP(60, d50, gamma, 0); math.Abs(ntcp-p) > 1e-12 {
		t.Errorf("Expected parallel NTCP %f, got %f", p, ntcp)
	}

	// A serial organ (s=1) compounds the per-unit response and must
	// exceed the parallel value at doses above 1
	serial := RelativeSerialityNTCP(60, d50, gamma, 1)
	if serial <= p {
		t.Errorf("Expected serial NTCP above parallel: %f vs %f", serial, p)
	}

	// Intermediate seriality lies between the two
	blended := RelativeSerialityNTCP(60, d50, gamma, 0.5)
	if blended <= p || blended >= serial {
		t.Errorf("Expected blended NTCP between %f and %f, got %f", p, serial, blended)
	}

	// All variants stay in [0, 1]
	for _, s := range []float64{0, 0.3, 0.7, 1} {
		for dose := 0.0; dose <= 120; dose += 10 {
			ntcp := RelativeSerialityNTCP(dose, d50, gamma, s)
			if ntcp < 0 || ntcp > 1 {
				t.Errorf("NTCP %f outside [0, 1] at dose %f, s %f", ntcp, dose, s)
			}
		}
	}
}

// TestPoissonNTCP verifies the probit approximation anchor
func TestPoissonNTCP(t *testing.T) {
	if ntcp := PoissonNTCP(50, 50, 1.5); math.Abs(ntcp-0.5) > 1e-12 {
		t.Errorf("Expected NTCP 0.5 at D50, got %f", ntcp)
	}
	if ntcp := PoissonNTCP(0, 50, 1.5); ntcp > 0.01 {
		t.Errorf("Expected near-zero NTCP at zero dose, got %f", ntcp)
	}
}

// TestLogisticNTCP verifies the logistic anchor and symmetry
func TestLogisticNTCP(t *testing.T) {
	if ntcp := LogisticNTCP(40, 40, 1.2); math.Abs(ntcp-0.5) > 1e-12 {
		t.Errorf("Expected NTCP 0.5 at D50, got %f", ntcp)
	}

	below := LogisticNTCP(30, 40, 1.2)
	above := LogisticNTCP(50, 40, 1.2)
	if math.Abs(below+above-1.0) > 1e-9 {
		t.Errorf("Expected symmetry around D50: %f + %f != 1", below, above)
	}
}

// TestParseModel verifies NTCP model name round trips and rejection
func TestParseModel(t *testing.T) {
	names := []string{"lkb", "critical_volume", "relative_seriality", "logistic", "poisson"}
	for _, name := range names {
		model, err := ParseModel(name)
		if err != nil {
			t.Fatalf("ParseModel(%q) failed: %v", name, err)
		}
		if model.String() != name {
			t.Errorf("Expected round trip for %q, got %q", name, model.String())
		}
	}

	if _, err := ParseModel("kutcher"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Expected ErrUnknownModel, got %v", err)
	}
}

// TestEUD verifies the volume-exponent EUD reduction
func TestEUD(t *testing.T) {
	d := dvh.DoseVolumeHistogram{
		Dose:          []float64{10, 20, 30},
		VolumePercent: []float64{10, 60, 30},
	}

	// n=0 reduces to the weighted mean dose
	eud, err := EUD(d, 0)
	if err != nil {
		t.Fatalf("EUD failed: %v", err)
	}
	if math.Abs(eud-22.0) > 1e-9 {
		t.Errorf("Expected EUD(0) = weighted mean 22.0, got %f", eud)
	}

	// n=1 is the plain power mean with exponent 1
	eud1, err := EUD(d, 1)
	if err != nil {
		t.Fatalf("EUD failed: %v", err)
	}
	if math.Abs(eud1-22.0) > 1e-9 {
		t.Errorf("Expected EUD(1) = 22.0, got %f", eud1)
	}

	// A small volume exponent weights the maximum dose more heavily
	eudSerial, err := EUD(d, 0.05)
	if err != nil {
		t.Fatalf("EUD failed: %v", err)
	}
	if eudSerial <= eud1 || eudSerial > 30 {
		t.Errorf("Expected EUD(0.05) in (22, 30], got %f", eudSerial)
	}

	// n=+Inf degenerates to the maximum dose
	eudMax, err := EUD(d, math.Inf(1))
	if err != nil {
		t.Fatalf("EUD failed: %v", err)
	}
	if eudMax != 30 {
		t.Errorf("Expected EUD(+Inf) = 30, got %f", eudMax)
	}

	// Shape violations propagate
	bad := dvh.DoseVolumeHistogram{Dose: []float64{10}, VolumePercent: nil}
	if _, err := EUD(bad, 1); !errors.Is(err, dvh.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

// TestUniformDoseNTCP verifies registry-backed uniform dose scoring
func TestUniformDoseNTCP(t *testing.T) {
	calc := NewCalculator()

	// Lung TD50 is 24.5 Gy, so LKB sits at 0.5
	result, err := calc.UniformDoseNTCP(24.5, "lung", LymanKutcherBurman)
	if err != nil {
		t.Fatalf("UniformDoseNTCP failed: %v", err)
	}
	if math.Abs(result.NTCP-0.5) > 1e-12 {
		t.Errorf("Expected NTCP 0.5 at lung TD50, got %f", result.NTCP)
	}
	if result.Endpoint != "pneumonitis" {
		t.Errorf("Expected lung endpoint pneumonitis, got %q", result.Endpoint)
	}

	if _, err := calc.UniformDoseNTCP(30, "pancreas", LymanKutcherBurman); !errors.Is(err, ErrUnknownOrgan) {
		t.Errorf("Expected ErrUnknownOrgan, got %v", err)
	}
}

// TestDVHNTCP verifies the model-specific DVH reductions
func TestDVHNTCP(t *testing.T) {
	calc := NewCalculator()

	d := dvh.DoseVolumeHistogram{
		Dose:          []float64{10, 20, 30, 40},
		VolumePercent: []float64{40, 30, 20, 10},
	}

	// LKB scores the EUD for the organ's volume exponent
	lkb, err := calc.DVHNTCP(d, "lung", LymanKutcherBurman)
	if err != nil {
		t.Fatalf("DVHNTCP failed: %v", err)
	}
	eud, _ := EUD(d, 0.87)
	expected := LKB(eud, 24.5, 0.18)
	if math.Abs(lkb.NTCP-expected) > 1e-12 {
		t.Errorf("Expected LKB NTCP %f, got %f", expected, lkb.NTCP)
	}

	// The reported dose metrics come from the histogram
	if lkb.MaxDose != 40 {
		t.Errorf("Expected max dose 40, got %f", lkb.MaxDose)
	}
	if lkb.V20 != 60 || lkb.V30 != 30 || lkb.V40 != 10 {
		t.Errorf("Expected V20/V30/V40 = 60/30/10, got %f/%f/%f",
			lkb.V20, lkb.V30, lkb.V40)
	}

	// The mean-dose models score the weighted mean
	stats, _ := d.Statistics()
	logistic, err := calc.DVHNTCP(d, "lung", Logistic)
	if err != nil {
		t.Fatalf("DVHNTCP failed: %v", err)
	}
	expectedLogistic := LogisticNTCP(stats.MeanDose, 20, 1.0)
	if math.Abs(logistic.NTCP-expectedLogistic) > 1e-12 {
		t.Errorf("Expected logistic NTCP %f, got %f", expectedLogistic, logistic.NTCP)
	}

	// The critical volume model scores the max dose with the volume
	// fraction strictly above the organ's d50
	cv, err := calc.DVHNTCP(d, "lung", CriticalVolume)
	if err != nil {
		t.Fatalf("DVHNTCP failed: %v", err)
	}
	// Lung d50 is 20 Gy; bins at 30 and 40 Gy contribute 30% of volume
	expectedCV := CriticalVolumeNTCP(40, 0.30, 20, 0.5, 1.0)
	if math.Abs(cv.NTCP-expectedCV) > 1e-12 {
		t.Errorf("Expected critical volume NTCP %f, got %f", expectedCV, cv.NTCP)
	}
}

// TestDoseResponseCurve verifies the sampled NTCP curve
func TestDoseResponseCurve(t *testing.T) {
	calc := NewCalculator()

	doses, ntcps, err := calc.DoseResponseCurve(80, 1.0, "heart", LymanKutcherBurman)
	if err != nil {
		t.Fatalf("DoseResponseCurve failed: %v", err)
	}
	if len(doses) != len(ntcps) || len(doses) != 81 {
		t.Fatalf("Expected 81 parallel samples, got %d doses and %d values",
			len(doses), len(ntcps))
	}
	for i := 1; i < len(ntcps); i++ {
		if ntcps[i] < ntcps[i-1]-1e-12 {
			t.Errorf("Curve decreased at dose %f", doses[i])
		}
	}
}

// TestAddOrgan verifies registry additions and parameter validation
func TestAddOrgan(t *testing.T) {
	calc := NewCalculator()

	err := calc.AddOrgan("esophagus", "stricture", map[string]float64{
		"td50": 68, "m": 0.11, "n": 0.69, "d50": 62, "gamma": 1.0,
	})
	if err != nil {
		t.Fatalf("AddOrgan failed: %v", err)
	}

	result, err := calc.UniformDoseNTCP(68, "esophagus", LymanKutcherBurman)
	if err != nil {
		t.Fatalf("UniformDoseNTCP failed after registration: %v", err)
	}
	if math.Abs(result.NTCP-0.5) > 1e-12 {
		t.Errorf("Expected NTCP 0.5 at the new TD50, got %f", result.NTCP)
	}
	if result.Endpoint != "stricture" {
		t.Errorf("Expected endpoint stricture, got %q", result.Endpoint)
	}

	// Seriality is optional and defaults to a parallel organ
	if result.Parameters.Seriality != 0 {
		t.Errorf("Expected default seriality 0, got %f", result.Parameters.Seriality)
	}

	// Missing required keys are rejected
	err = calc.AddOrgan("bad", "x", map[string]float64{"td50": 68, "m": 0.11})
	if !errors.Is(err, ErrMissingParameter) {
		t.Errorf("Expected ErrMissingParameter, got %v", err)
	}
}

// TestOrgans verifies the built-in registry contents and ordering
func TestOrgans(t *testing.T) {
	calc := NewCalculator()
	names := calc.Organs()

	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Expected sorted names, got %q before %q", names[i-1], names[i])
		}
	}

	for _, required := range []string{"lung", "heart", "spinal_cord", "rectum", "parotid"} {
		found := false
		for _, name := range names {
			if name == required {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected built-in organ %q", required)
		}
	}
}

// TestComplicationFreeProbability verifies the independence product
func TestComplicationFreeProbability(t *testing.T) {
	results := []Result{{NTCP: 0.1}, {NTCP: 0.2}}

	cfp := ComplicationFreeProbability(results)
	if math.Abs(cfp-0.72) > 1e-12 {
		t.Errorf("Expected CFP 0.72, got %f", cfp)
	}

	if cfp := ComplicationFreeProbability(nil); cfp != 1 {
		t.Errorf("Expected CFP 1 with no organs, got %f", cfp)
	}
}

// TestTherapeuticRatio verifies the ratio definitions and the zero-NTCP
// edge case
func TestTherapeuticRatio(t *testing.T) {
	r := TherapeuticRatio(0.8, 0.1)
	if math.Abs(r.UncomplicatedCureProbability-0.72) > 1e-12 {
		t.Errorf("Expected UCP 0.72, got %f", r.UncomplicatedCureProbability)
	}
	if math.Abs(r.RatioTCPNTCP-8.0) > 1e-12 {
		t.Errorf("Expected TCP/NTCP ratio 8.0, got %f", r.RatioTCPNTCP)
	}
	if math.Abs(r.RatioUCPNTCP-7.2) > 1e-12 {
		t.Errorf("Expected UCP/NTCP ratio 7.2, got %f", r.RatioUCPNTCP)
	}

	// Zero NTCP yields infinite ratios but a finite UCP
	zero := TherapeuticRatio(0.8, 0)
	if !math.IsInf(zero.RatioTCPNTCP, 1) || !math.IsInf(zero.RatioUCPNTCP, 1) {
		t.Errorf("Expected infinite ratios at zero NTCP, got %f and %f",
			zero.RatioTCPNTCP, zero.RatioUCPNTCP)
	}
	if math.Abs(zero.UncomplicatedCureProbability-0.8) > 1e-12 {
		t.Errorf("Expected UCP 0.8 at zero NTCP, got %f", zero.UncomplicatedCureProbability)
	}
}
