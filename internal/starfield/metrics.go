package starfield

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// AggregateMetrics reduces per-star measurements to frame-level statistics.
//
// stars must already be sorted brightest first. The brightest
// TopNForAggregates stars feed the shape statistics (mean HFR, FWHM,
// eccentricity; median SNR) while StarCount reflects every detection.
// A frame with zero stars reports zeros, never NaN. Timestamp is left for
// the caller to set.
func AggregateMetrics(stars []Star, bg BackgroundModel, params AnalysisParams) FrameMetrics {
	p := params.normalized()
	m := FrameMetrics{
		BackgroundLevel: bg.Level,
		PeakValue:       bg.Peak,
		StarCount:       len(stars),
	}
	if len(stars) == 0 {
		return m
	}

	n := p.TopNForAggregates
	if n > len(stars) {
		n = len(stars)
	}
	hfrs := make([]float64, n)
	fwhms := make([]float64, n)
	eccs := make([]float64, n)
	snrs := make([]float64, n)
	for i, s := range stars[:n] {
		hfrs[i] = s.HFR
		fwhms[i] = s.FWHM
		eccs[i] = s.Eccentricity
		snrs[i] = s.SNR
	}

	m.HFR = stat.Mean(hfrs, nil)
	m.FWHM = stat.Mean(fwhms, nil)
	m.Eccentricity = stat.Mean(eccs, nil)
	sort.Float64s(snrs)
	m.SNR = stat.Quantile(0.5, stat.Empirical, snrs, nil)
	m.FocusScore = 100 * clamp01(1-m.HFR/(2*p.FocusHFRThreshold))
	return m
}
