package dvh

import (
	"fmt"
	"math"
)

// BEDResult holds a biologically effective dose calculation.
type BEDResult struct {
	// Basic is the BED without incomplete-repair correction:
	// dose * (1 + dosePerFraction / (alpha/beta)).
	Basic float64

	// Corrected applies the Lea-Catcheside dose-protraction factor when
	// dose rate and repair half-time are known; otherwise it equals
	// Basic.
	Corrected float64

	// DosePerFraction is the total dose divided by the fraction count.
	DosePerFraction float64

	// GFactor is the Lea-Catcheside factor used for Corrected (1 when
	// no protraction correction applies).
	GFactor float64

	// Fractions and AlphaBetaRatio echo the inputs.
	Fractions      int
	AlphaBetaRatio float64
}

// BED computes the biologically effective dose of a fractionated
// treatment under the linear-quadratic model. dose is the total physical
// dose in Gy and alphaBetaRatio the tissue alpha/beta in Gy.
func BED(dose, alphaBetaRatio float64, fractions int) (BEDResult, error) {
	if fractions <= 0 {
		return BEDResult{}, fmt.Errorf("%w: got %d", ErrInvalidFraction, fractions)
	}

	dosePerFraction := dose / float64(fractions)
	basic := dose * (1 + dosePerFraction/alphaBetaRatio)

	return BEDResult{
		Basic:           basic,
		Corrected:       basic,
		DosePerFraction: dosePerFraction,
		GFactor:         1,
		Fractions:       fractions,
		AlphaBetaRatio:  alphaBetaRatio,
	}, nil
}

// BEDWithRepair computes BED with the incomplete-repair correction for a
// finite dose rate. doseRate is in Gy/min and repairHalfTime the
// sublethal-damage repair half-time in minutes. The per-fraction delivery
// time T = dosePerFraction/doseRate enters the Lea-Catcheside factor
//
//	G = (2/(lambda*T)) * (1 - (1 - exp(-lambda*T)) / (lambda*T))
//
// with lambda = ln2/repairHalfTime; G is 1 when T is not positive.
func BEDWithRepair(dose, alphaBetaRatio float64, fractions int, doseRate, repairHalfTime float64) (BEDResult, error) {
	result, err := BED(dose, alphaBetaRatio, fractions)
	if err != nil {
		return BEDResult{}, err
	}

	lambda := math.Ln2 / repairHalfTime
	deliveryTime := result.DosePerFraction / doseRate

	g := 1.0
	if deliveryTime > 0 {
		lt := lambda * deliveryTime
		g = (2 / lt) * (1 - (1-math.Exp(-lt))/lt)
	}

	result.GFactor = g
	result.Corrected = dose * (1 + g*result.DosePerFraction/alphaBetaRatio)
	return result, nil
}
