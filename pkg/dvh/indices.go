package dvh

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultPercentiles are the Dx percentiles reported by the composite
// report.
var DefaultPercentiles = []float64{95, 50, 5, 2}

// DefaultDoseLevels are the Vx dose levels (Gy) reported by the composite
// report.
var DefaultDoseLevels = []float64{20, 30, 40, 50, 60, 70}

// DefaultConformityTolerance is the relative tolerance around the
// prescription dose used by ConformityIndex.
const DefaultConformityTolerance = 0.05

// DxValues computes the dose received by x% of the volume for each
// requested percentile. Bins are sorted by descending dose, the cumulative
// volume is normalized to 100%, and the dose at each percentile is found
// by linear interpolation over the cumulative curve (extrapolating below
// the first bin). A percentile beyond the maximum cumulative volume
// yields 0.
func (d DoseVolumeHistogram) DxValues(percentiles []float64) (map[float64]float64, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	doses, volumes := sortedByDose(d.Dose, d.VolumePercent, true)

	cumulative := make([]float64, len(volumes))
	running := 0.0
	for i, v := range volumes {
		running += v
		cumulative[i] = running
	}
	total := cumulative[len(cumulative)-1]
	for i := range cumulative {
		cumulative[i] = cumulative[i] / total * 100
	}

	dx := make(map[float64]float64, len(percentiles))
	for _, p := range percentiles {
		if p > cumulative[len(cumulative)-1] {
			dx[p] = 0
			continue
		}
		dx[p] = interpolateLinear(cumulative, doses, p, true)
	}
	return dx, nil
}

// VxValues computes the volume percentage receiving at least each
// requested dose level. This is a bin-granularity sum, not an
// interpolation: a bin contributes its full volume once its dose reaches
// the level.
func (d DoseVolumeHistogram) VxValues(doseLevels []float64) (map[float64]float64, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	vx := make(map[float64]float64, len(doseLevels))
	for _, level := range doseLevels {
		sum := 0.0
		for i, dose := range d.Dose {
			if dose >= level {
				sum += d.VolumePercent[i]
			}
		}
		vx[level] = sum
	}
	return vx, nil
}

// Conformity describes how much of the target volume receives the
// prescription dose. It is a partial index: a true conformity index would
// additionally need the total-body volume receiving the prescription
// dose, which is not available from a single-structure DVH.
type Conformity struct {
	// Coverage is the fraction of the target volume whose dose lies
	// within the tolerance band around the prescription dose.
	Coverage float64

	// TargetVolumeCovered is the absolute volume percentage inside the
	// band.
	TargetVolumeCovered float64

	// TotalTargetVolume is the sum of all volume bins.
	TotalTargetVolume float64

	// PrescriptionDose is the prescription dose the band is centred on.
	PrescriptionDose float64
}

// ConformityIndex computes target coverage for a prescription dose with a
// relative tolerance band of prescriptionDose*(1±tolerance).
func (d DoseVolumeHistogram) ConformityIndex(prescriptionDose, tolerance float64) (Conformity, error) {
	if err := d.validate(); err != nil {
		return Conformity{}, err
	}

	low := prescriptionDose * (1 - tolerance)
	high := prescriptionDose * (1 + tolerance)

	covered := 0.0
	for i, dose := range d.Dose {
		if dose >= low && dose <= high {
			covered += d.VolumePercent[i]
		}
	}
	total := floats.Sum(d.VolumePercent)

	coverage := 0.0
	if total > 0 {
		coverage = covered / total
	}

	return Conformity{
		Coverage:            coverage,
		TargetVolumeCovered: covered,
		TotalTargetVolume:   total,
		PrescriptionDose:    prescriptionDose,
	}, nil
}

// Homogeneity holds the homogeneity index and the values it derives from.
type Homogeneity struct {
	// Index is (D5 - D95) / mean dose, or 0 when the mean dose is not
	// positive.
	Index float64

	D5       float64
	D95      float64
	MeanDose float64
}

// HomogeneityIndex computes the dose homogeneity of the structure.
func (d DoseVolumeHistogram) HomogeneityIndex() (Homogeneity, error) {
	dx, err := d.DxValues([]float64{5, 95})
	if err != nil {
		return Homogeneity{}, err
	}

	d5 := dx[5]
	d95 := dx[95]
	mean := stat.Mean(d.Dose, d.VolumePercent)

	index := 0.0
	if mean > 0 {
		index = (d5 - d95) / mean
	}

	return Homogeneity{
		Index:    index,
		D5:       d5,
		D95:      d95,
		MeanDose: mean,
	}, nil
}
