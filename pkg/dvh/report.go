package dvh

// Canonical EUD exponents used by the composite report.
const (
	// EUDTumorExponent is the tumor-like EUD exponent (cold spots
	// dominate).
	EUDTumorExponent = -10

	// EUDNormalTissueExponent is the normal-tissue-like EUD exponent.
	EUDNormalTissueExponent = 2
)

// Report bundles every reduction for one structure into a flat record
// suitable for tabular rendering or serialization by a display
// collaborator.
type Report struct {
	StructureName    string
	PrescriptionDose float64

	Statistics  Statistics
	Dx          map[float64]float64
	Vx          map[float64]float64
	Homogeneity Homogeneity

	// Conformity is present only when a prescription dose was supplied.
	Conformity *Conformity

	// EUDTumor and EUDNormal are the EUD at the two canonical
	// exponents.
	EUDTumor  float64
	EUDNormal float64
}

// Report computes the composite dose report for one structure. A positive
// prescriptionDose adds the conformity section; pass 0 when no
// prescription applies.
func (d DoseVolumeHistogram) Report(structureName string, prescriptionDose float64) (Report, error) {
	stats, err := d.Statistics()
	if err != nil {
		return Report{}, err
	}

	dx, err := d.DxValues(DefaultPercentiles)
	if err != nil {
		return Report{}, err
	}
	vx, err := d.VxValues(DefaultDoseLevels)
	if err != nil {
		return Report{}, err
	}
	homogeneity, err := d.HomogeneityIndex()
	if err != nil {
		return Report{}, err
	}

	report := Report{
		StructureName:    structureName,
		PrescriptionDose: prescriptionDose,
		Statistics:       stats,
		Dx:               dx,
		Vx:               vx,
		Homogeneity:      homogeneity,
	}

	if prescriptionDose > 0 {
		conformity, err := d.ConformityIndex(prescriptionDose, DefaultConformityTolerance)
		if err != nil {
			return Report{}, err
		}
		report.Conformity = &conformity
	}

	if report.EUDTumor, err = d.EUD(EUDTumorExponent); err != nil {
		return Report{}, err
	}
	if report.EUDNormal, err = d.EUD(EUDNormalTissueExponent); err != nil {
		return Report{}, err
	}

	return report, nil
}
