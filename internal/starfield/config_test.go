package starfield

import "testing"

func TestDefaultAnalysisParams(t *testing.T) {
	p := DefaultAnalysisParams()

	if p.DetectionSigmaMultiplier != 5.0 {
		t.Errorf("DetectionSigmaMultiplier = %v, want 5.0", p.DetectionSigmaMultiplier)
	}
	if p.MinStarSeparationPx != 10 {
		t.Errorf("MinStarSeparationPx = %d, want 10", p.MinStarSeparationPx)
	}
	if p.ApertureRadiusPx != 6 {
		t.Errorf("ApertureRadiusPx = %d, want 6", p.ApertureRadiusPx)
	}
	if p.MaxCandidateStars != 500 {
		t.Errorf("MaxCandidateStars = %d, want 500", p.MaxCandidateStars)
	}
	if p.FocusHFRThreshold != 3.5 {
		t.Errorf("FocusHFRThreshold = %v, want 3.5", p.FocusHFRThreshold)
	}
	if p.SaturationFraction != 0.5 {
		t.Errorf("SaturationFraction = %v, want 0.5", p.SaturationFraction)
	}
	if p.TopNForAggregates != 50 {
		t.Errorf("TopNForAggregates = %d, want 50", p.TopNForAggregates)
	}
	if p.MinStarsForFocus != 3 {
		t.Errorf("MinStarsForFocus = %d, want 3", p.MinStarsForFocus)
	}
	if p.SaturationLevelFraction != 0.98 {
		t.Errorf("SaturationLevelFraction = %v, want 0.98", p.SaturationLevelFraction)
	}
}

func TestNormalizedFillsZeroFields(t *testing.T) {
	// A partially populated struct keeps its explicit values and gains
	// defaults everywhere else.
	p := AnalysisParams{
		DetectionSigmaMultiplier: 3.0,
		ApertureRadiusPx:         4,
	}.normalized()

	if p.DetectionSigmaMultiplier != 3.0 {
		t.Errorf("explicit DetectionSigmaMultiplier overridden: %v", p.DetectionSigmaMultiplier)
	}
	if p.ApertureRadiusPx != 4 {
		t.Errorf("explicit ApertureRadiusPx overridden: %d", p.ApertureRadiusPx)
	}
	if p.MinStarSeparationPx != 10 {
		t.Errorf("MinStarSeparationPx = %d, want default 10", p.MinStarSeparationPx)
	}
	if p.MaxCandidateStars != 500 {
		t.Errorf("MaxCandidateStars = %d, want default 500", p.MaxCandidateStars)
	}
}

func TestNormalizedRejectsOutOfRange(t *testing.T) {
	p := AnalysisParams{
		DetectionSigmaMultiplier: -2,
		SaturationFraction:       1.5,
		SaturationLevelFraction:  -0.1,
		BackgroundSampleStride:   1,
	}.normalized()

	if p.DetectionSigmaMultiplier != 5.0 {
		t.Errorf("negative multiplier kept: %v", p.DetectionSigmaMultiplier)
	}
	if p.SaturationFraction != 0.5 {
		t.Errorf("out-of-range SaturationFraction kept: %v", p.SaturationFraction)
	}
	if p.SaturationLevelFraction != 0.98 {
		t.Errorf("out-of-range SaturationLevelFraction kept: %v", p.SaturationLevelFraction)
	}
	if p.BackgroundSampleStride != 4 {
		t.Errorf("degenerate stride kept: %d", p.BackgroundSampleStride)
	}
}

func TestSaturationLevel(t *testing.T) {
	p := DefaultAnalysisParams()
	// 0.98 of full scale, rounded
	if got := p.saturationLevel(); got != 64224 {
		t.Errorf("saturationLevel() = %d, want 64224", got)
	}
}
