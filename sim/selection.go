package sim

import (
	"fmt"
	"math"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// SoftmaxProbabilities converts scores to a probability distribution.
// Scores are shifted by their maximum before exponentiation, so large scores
// do not overflow. Fails if any score is non-finite or the list is empty.
func SoftmaxProbabilities(weights []float64) ([]float64, error) {
	if len(weights) == 0 {
		return nil, configErrorf("selection", "no candidates to weight")
	}
	maxW := math.Inf(-1)
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, configErrorf("selection", "weight %d is not finite (%f); weights are not normalizable", i, w)
		}
		if w > maxW {
			maxW = w
		}
	}
	probs := make([]float64, len(weights))
	sum := 0.0
	for i, w := range weights {
		probs[i] = math.Exp(w - maxW)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// SelectSoftmax picks one candidate with probability softmax(weights) using a
// single uniform draw u in [0, 1). Candidates are scanned in the given order and
// the first whose cumulative probability exceeds u wins; rounding residue falls to
// the last candidate. This is the only selection routine in the engine: the initial
// state builder and the switch simulator both call it.
func SelectSoftmax[T any](candidates []T, weights []float64, u float64) (T, error) {
	var zero T
	if len(candidates) != len(weights) {
		return zero, fmt.Errorf("selection: %d candidates but %d weights", len(candidates), len(weights))
	}
	probs, err := SoftmaxProbabilities(weights)
	if err != nil {
		return zero, err
	}
	cum := 0.0
	for i, p := range probs {
		cum += p
		if u < cum {
			return candidates[i], nil
		}
	}
	return candidates[len(candidates)-1], nil
}

// VendorScore is the selection score of a vendor for a site.
func (s SelectionWeights) VendorScore(level IntegrationLevel, tier int) float64 {
	return s.IntegrationWeight*float64(level) + s.TierWeight*float64(tier)
}

// vendorSelector draws a vendor for a site among a category's vendors.
type vendorSelector struct {
	weights      SelectionWeights
	integrations *IntegrationTable
}

// choose returns the selected vendor, or ok=false when excluding excludeID leaves
// no candidate. No draw is consumed in that case.
func (vs vendorSelector) choose(siteID string, vendors []catalog.Vendor, excludeID string, draw func() float64) (v catalog.Vendor, ok bool, err error) {
	candidates := make([]catalog.Vendor, 0, len(vendors))
	weights := make([]float64, 0, len(vendors))
	for _, cand := range vendors {
		if cand.ID == excludeID {
			continue
		}
		level, _ := vs.integrations.Level(siteID, cand.ID)
		candidates = append(candidates, cand)
		weights = append(weights, vs.weights.VendorScore(level, cand.Tier))
	}
	if len(candidates) == 0 {
		return catalog.Vendor{}, false, nil
	}
	v, err = SelectSoftmax(candidates, weights, draw())
	if err != nil {
		return catalog.Vendor{}, false, err
	}
	return v, true, nil
}
