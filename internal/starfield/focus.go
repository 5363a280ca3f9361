package starfield

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// AnalyzeFocus derives a focus verdict from aggregated star measurements.
//
// A frame is in focus when its mean HFR sits at or below FocusHFRThreshold
// and enough stars support the estimate. Direction is inferred from a
// single frame, which only bounds the blur, not its sign; any directional
// suggestion therefore carries a confidence of at most 50. Zero-star and
// sparse frames are never reported as in focus.
func AnalyzeFocus(stars []Star, metrics FrameMetrics, params AnalysisParams) FocusAnalysis {
	p := params.normalized()

	if metrics.StarCount == 0 {
		return FocusAnalysis{
			IsInFocus:      false,
			Direction:      FocusDirectionNone,
			Confidence:     20,
			Recommendation: "No stars detected; focus cannot be assessed. Check exposure, gain, and sky conditions.",
		}
	}
	if metrics.StarCount < p.MinStarsForFocus {
		return FocusAnalysis{
			IsInFocus:      false,
			Direction:      FocusDirectionNone,
			Confidence:     30,
			Recommendation: fmt.Sprintf("Only %d star(s) detected; too few for a reliable focus estimate.", metrics.StarCount),
		}
	}

	meanHFR := metrics.HFR
	threshold := p.FocusHFRThreshold

	if meanHFR <= threshold {
		conf := 55.0
		bonus := 2 * float64(metrics.StarCount)
		if bonus > 20 {
			bonus = 20
		}
		conf += bonus
		conf += hfrScatterBonus(stars, p.TopNForAggregates)
		return FocusAnalysis{
			IsInFocus:      true,
			Direction:      FocusDirectionNone,
			Confidence:     conf,
			Recommendation: fmt.Sprintf("Focus is good (mean HFR %.2f px); no adjustment needed.", meanHFR),
		}
	}
	if meanHFR <= 2*threshold {
		return FocusAnalysis{
			IsInFocus:      false,
			Direction:      FocusDirectionIn,
			Confidence:     40,
			Recommendation: fmt.Sprintf("Slightly defocused (mean HFR %.2f px); try small inward focuser steps.", meanHFR),
		}
	}
	return FocusAnalysis{
		IsInFocus:      false,
		Direction:      FocusDirectionOut,
		Confidence:     25,
		Recommendation: fmt.Sprintf("Strongly defocused (mean HFR %.2f px); move the focuser outward in large steps and re-run.", meanHFR),
	}
}

// hfrScatterBonus rewards frames whose bright stars agree on HFR. Tight
// agreement means the mean is trustworthy.
func hfrScatterBonus(stars []Star, topN int) float64 {
	n := topN
	if n > len(stars) {
		n = len(stars)
	}
	if n < 2 {
		return 0
	}
	hfrs := make([]float64, n)
	for i, s := range stars[:n] {
		hfrs[i] = s.HFR
	}
	scatter := stat.StdDev(hfrs, nil)
	switch {
	case scatter < 0.5:
		return 20
	case scatter < 1.0:
		return 10
	default:
		return 0
	}
}
