// Package therapeutic combines one tumor TCP result with a set of
// organ-at-risk NTCP results into a single plan-level summary record.
package therapeutic

import (
	"radbiocalc/pkg/ntcp"
	"radbiocalc/pkg/tcp"
)

// OrganOutcome is the per-organ entry of a plan summary.
type OrganOutcome struct {
	Organ    string
	Endpoint string
	NTCP     float64
}

// Summary is the clinical summary of one plan: the tumor TCP, the
// aggregated normal-tissue complication metrics and the therapeutic
// ratios. It is derived purely from its inputs and carries no state.
type Summary struct {
	// TCP is the tumor's TotalTCP from the DVH scoring.
	TCP float64

	// TotalNTCP is the plain sum of the per-organ NTCP values.
	TotalNTCP float64

	// ComplicationFreeProbability is the product of (1 - NTCP_i)
	// across organs.
	ComplicationFreeProbability float64

	// UncomplicatedCureProbability is TCP * (1 - TotalNTCP).
	UncomplicatedCureProbability float64

	// RatioTCPNTCP and RatioUCPNTCP are the two therapeutic ratio
	// definitions, +Inf when TotalNTCP is 0.
	RatioTCPNTCP float64
	RatioUCPNTCP float64

	TumorType string
	Organs    []OrganOutcome
}

// Aggregate builds the plan summary from one tumor DVH result and the
// NTCP results of every scored organ at risk.
func Aggregate(tumor tcp.DVHResult, organs []ntcp.Result) Summary {
	totalNTCP := 0.0
	outcomes := make([]OrganOutcome, len(organs))
	for i, r := range organs {
		totalNTCP += r.NTCP
		outcomes[i] = OrganOutcome{Organ: r.Organ, Endpoint: r.Endpoint, NTCP: r.NTCP}
	}

	ratio := ntcp.TherapeuticRatio(tumor.TotalTCP, totalNTCP)

	return Summary{
		TCP:                          ratio.TCP,
		TotalNTCP:                    ratio.TotalNTCP,
		ComplicationFreeProbability:  ntcp.ComplicationFreeProbability(organs),
		UncomplicatedCureProbability: ratio.UncomplicatedCureProbability,
		RatioTCPNTCP:                 ratio.RatioTCPNTCP,
		RatioUCPNTCP:                 ratio.RatioUCPNTCP,
		TumorType:                    tumor.TumorType,
		Organs:                       outcomes,
	}
}
