package starfield

// AnalysisParams controls every stage of the analysis pipeline. The zero
// value of any field selects the documented default at run time, so callers
// only set what they want to change.
type AnalysisParams struct {
	// DetectionSigmaMultiplier sets the seed threshold at
	// background level + multiplier * noise sigma. Higher values reject
	// more noise at the cost of faint stars. If zero, a sensible
	// default (5.0) is used.
	DetectionSigmaMultiplier float64

	// MinStarSeparationPx is the radius within which a dimmer seed is
	// absorbed by a brighter accepted one. Governs how close two stars
	// may sit before they are treated as one. Default 10.
	MinStarSeparationPx int

	// ApertureRadiusPx is the radius of the circular photometry window
	// around each centroid. Values of 3-8 are sensible for typical
	// sampling; the window must comfortably contain the PSF. Default 6.
	ApertureRadiusPx int

	// MaxCandidateStars caps the number of stars carried through
	// photometry. When the detector finds more, the lowest-flux
	// candidates are dropped first. Default 500.
	MaxCandidateStars int

	// FocusHFRThreshold is the mean HFR (in pixels) at or below which a
	// frame counts as in focus. Also scales the focus score. Default 3.5.
	FocusHFRThreshold float64

	// SaturationFraction is the fraction of saturated pixels at which
	// the exposure warning fires. Default 0.5.
	SaturationFraction float64

	// TopNForAggregates is how many of the brightest stars feed the
	// frame-level HFR/FWHM/SNR/eccentricity statistics. Default 50.
	TopNForAggregates int

	// MinStarsForFocus is the minimum star count for a focus verdict.
	// Default 3.
	MinStarsForFocus int

	// NoiseClipSigma is the kappa used when iteratively clipping bright
	// outliers out of the background estimate. Default 3.0.
	NoiseClipSigma float64

	// MaxClipIterations bounds the kappa-sigma refinement. Default 5.
	MaxClipIterations int

	// BackgroundStrideThreshold is the pixel count above which the
	// background estimator subsamples the frame. Default 1000000.
	BackgroundStrideThreshold int

	// BackgroundSampleStride is the row and column stride used when
	// subsampling. Default 4.
	BackgroundSampleStride int

	// SaturationLevelFraction of full scale at or above which a pixel
	// counts as saturated. Real sensors clip below the container
	// maximum. Default 0.98.
	SaturationLevelFraction float64

	// EnableDiagnostics turns on per-stage diagnostic logging through
	// the monitoring package.
	EnableDiagnostics bool
}

// DefaultAnalysisParams returns the documented defaults for every field.
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{}.normalized()
}

// normalized fills zero-valued fields with their defaults and pins
// out-of-range values to safe bounds. Stage functions call it so that a
// hand-built AnalysisParams can never divide by zero or allocate an
// unbounded window.
func (p AnalysisParams) normalized() AnalysisParams {
	if p.DetectionSigmaMultiplier <= 0 {
		p.DetectionSigmaMultiplier = 5.0
	}
	if p.MinStarSeparationPx <= 0 {
		p.MinStarSeparationPx = 10
	}
	if p.ApertureRadiusPx <= 0 {
		p.ApertureRadiusPx = 6
	}
	if p.MaxCandidateStars <= 0 {
		p.MaxCandidateStars = 500
	}
	if p.FocusHFRThreshold <= 0 {
		p.FocusHFRThreshold = 3.5
	}
	if p.SaturationFraction <= 0 || p.SaturationFraction > 1 {
		p.SaturationFraction = 0.5
	}
	if p.TopNForAggregates <= 0 {
		p.TopNForAggregates = 50
	}
	if p.MinStarsForFocus <= 0 {
		p.MinStarsForFocus = 3
	}
	if p.NoiseClipSigma <= 0 {
		p.NoiseClipSigma = 3.0
	}
	if p.MaxClipIterations <= 0 {
		p.MaxClipIterations = 5
	}
	if p.BackgroundStrideThreshold <= 0 {
		p.BackgroundStrideThreshold = 1_000_000
	}
	if p.BackgroundSampleStride <= 1 {
		p.BackgroundSampleStride = 4
	}
	if p.SaturationLevelFraction <= 0 || p.SaturationLevelFraction > 1 {
		p.SaturationLevelFraction = 0.98
	}
	return p
}

// saturationLevel is the raw sample value at which a pixel counts as
// saturated under these params.
func (p AnalysisParams) saturationLevel() uint16 {
	return clampToUint16(p.SaturationLevelFraction * FullScale)
}
