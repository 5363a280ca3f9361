package starfield

import "fmt"

// Quality factor weights. They sum to 1.0 so the weighted blend maps
// directly onto the 0-100 score.
const (
	weightSharpness  = 0.35
	weightSNR        = 0.25
	weightStarCount  = 0.20
	weightSaturation = 0.20
)

// Saturating ceilings: values at or above these earn the full factor.
const (
	snrCeiling       = 50.0
	starCountCeiling = 30.0
)

// Recommendation trigger levels.
const (
	minUsefulStars      = 5
	eccentricityWarning = 0.6
	highBackgroundLevel = 0.25 * FullScale
)

// exposureRecommendation is emitted verbatim when the frame saturates;
// consumers match on this exact wording.
const exposureRecommendation = "Reduce exposure time or gain"

// AssessQuality scores the frame 0-100 and collects recommendations.
//
// Four weighted factors feed the score: sharpness (inverse-normalized mean
// HFR), SNR and star count against saturating ceilings, and a saturation
// penalty that zeroes out once the saturated fraction reaches
// SaturationFraction. Identical metrics always produce the identical score
// and recommendation list; the list is never nil.
func AssessQuality(metrics FrameMetrics, bg BackgroundModel, params AnalysisParams) QualityAssessment {
	p := params.normalized()

	sharpness := 0.0
	if metrics.StarCount > 0 {
		sharpness = 1 - clamp01(metrics.HFR/(2*p.FocusHFRThreshold))
	}
	snrFactor := clamp01(metrics.SNR / snrCeiling)
	countFactor := clamp01(float64(metrics.StarCount) / starCountCeiling)
	saturationFactor := 1 - clamp01(bg.SaturatedFraction/p.SaturationFraction)

	score := 100 * clamp01(
		weightSharpness*sharpness+
			weightSNR*snrFactor+
			weightStarCount*countFactor+
			weightSaturation*saturationFactor)

	recs := []string{}
	if bg.SaturatedFraction >= p.SaturationFraction {
		recs = append(recs, exposureRecommendation)
	}
	if metrics.StarCount == 0 {
		recs = append(recs, "No stars detected; increase exposure, check focus, or verify sky conditions")
	} else if metrics.StarCount < minUsefulStars {
		recs = append(recs, fmt.Sprintf("Only %d star(s) detected; consider longer exposure or higher gain", metrics.StarCount))
	}
	if metrics.StarCount > 0 && metrics.HFR > p.FocusHFRThreshold {
		recs = append(recs, fmt.Sprintf("Stars are soft (mean HFR %.2f px); refocus recommended", metrics.HFR))
	}
	if metrics.StarCount >= p.MinStarsForFocus && metrics.Eccentricity > eccentricityWarning {
		recs = append(recs, fmt.Sprintf("Stars are elongated (mean eccentricity %.2f); check mount tracking and guiding", metrics.Eccentricity))
	}
	if bg.Level > highBackgroundLevel {
		recs = append(recs, "Background level is high; consider a light pollution filter or shorter exposures")
	}
	return QualityAssessment{Score: score, Recommendations: recs}
}
