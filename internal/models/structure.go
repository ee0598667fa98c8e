package models

import (
	"radbiocalc/pkg/dvh"
)

// StructureKind distinguishes targets from organs at risk in a plan
type StructureKind int

const (
	Target StructureKind = iota
	OrganAtRisk
)

// Structure represents a single contoured structure from a treatment
// plan together with its differential dose-volume histogram
type Structure struct {
	// Name is the structure label from the plan (e.g. "PTV", "Lung")
	Name string

	// Kind indicates whether this structure is a target or an organ at risk
	Kind StructureKind

	// DVH is the differential dose-volume histogram for the structure
	DVH dvh.DoseVolumeHistogram

	// TumorType selects the TCP parameter set for targets
	TumorType string

	// Organ selects the NTCP parameter set for organs at risk
	Organ string

	// PrescriptionDose is the prescribed dose in Gy (targets only)
	PrescriptionDose float64
}

// Plan is a set of structures evaluated together so that tumor control
// and normal tissue complications can be combined into one summary
type Plan struct {
	// Name identifies the treatment plan
	Name string

	// Structures are the contoured structures in the plan
	Structures []Structure
}

// Targets returns the target structures in the plan
func (p *Plan) Targets() []Structure {
	var out []Structure
	for _, s := range p.Structures {
		if s.Kind == Target {
			out = append(out, s)
		}
	}
	return out
}

// OrgansAtRisk returns the organ-at-risk structures in the plan
func (p *Plan) OrgansAtRisk() []Structure {
	var out []Structure
	for _, s := range p.Structures {
		if s.Kind == OrganAtRisk {
			out = append(out, s)
		}
	}
	return out
}
