package starfield

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput marks structurally invalid frames: buffer length not
// matching the declared dimensions, zero-sized dimensions, or non-finite
// sample values. Degenerate but well-formed frames (uniform, empty sky,
// fully saturated) are valid inputs and never produce an error.
var ErrInvalidInput = errors.New("starfield: invalid input")

// FullScale is the maximum representable sample value of a 16-bit frame.
const FullScale = 65535

// Frame is an immutable monochrome 16-bit image in row-major order.
// Construct one with NewFrame or NewFrameFromFloat64; the zero value is
// not usable. Frames are borrowed read-only for the duration of an
// analysis call and are never retained.
type Frame struct {
	pixels []uint16
	width  int
	height int
}

// NewFrame validates dimensions against the buffer and wraps it without
// copying. The caller must not mutate pixels afterwards.
func NewFrame(pixels []uint16, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: frame dimensions %dx%d", ErrInvalidInput, width, height)
	}
	if len(pixels) != width*height {
		return nil, fmt.Errorf("%w: buffer length %d does not match %dx%d", ErrInvalidInput, len(pixels), width, height)
	}
	return &Frame{pixels: pixels, width: width, height: height}, nil
}

// NewFrameFromFloat64 converts float samples to a 16-bit frame, rejecting
// NaN and infinite values. Finite values are rounded and clamped to
// [0, FullScale].
func NewFrameFromFloat64(values []float64, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: frame dimensions %dx%d", ErrInvalidInput, width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("%w: buffer length %d does not match %dx%d", ErrInvalidInput, len(values), width, height)
	}
	pixels := make([]uint16, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
		pixels[i] = clampToUint16(v)
	}
	return &Frame{pixels: pixels, width: width, height: height}, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// At returns the sample at (x, y) as a float. Callers must keep x in
// [0, Width) and y in [0, Height).
func (f *Frame) At(x, y int) float64 { return float64(f.pixels[y*f.width+x]) }

// Pixel returns the raw 16-bit sample at (x, y).
func (f *Frame) Pixel(x, y int) uint16 { return f.pixels[y*f.width+x] }

// Pixels exposes the backing buffer for encoders. Treat it as read-only.
func (f *Frame) Pixels() []uint16 { return f.pixels }

// BackgroundModel describes the sky background of one frame.
type BackgroundModel struct {
	// Level is the background sky level in ADU, in [0, FullScale].
	Level float64 `json:"level"`
	// NoiseSigma is the background noise standard deviation in ADU, >= 0.
	NoiseSigma float64 `json:"noise_sigma"`
	// Peak is the brightest sample in the frame.
	Peak uint16 `json:"peak"`
	// SaturatedFraction is the fraction of pixels at or above the
	// saturation level, in [0, 1].
	SaturatedFraction float64 `json:"saturated_fraction"`
	// SampleCount is the number of pixels that fed the histogram
	// (smaller than the frame when the estimator subsamples).
	SampleCount int `json:"sample_count"`
	// ClipIterations is the number of kappa-sigma refinement rounds run.
	ClipIterations int `json:"clip_iterations"`
}

// Star is one measured star candidate. Coordinates are sub-pixel centroids
// in frame index space. Stars are value types with no identity across
// frames.
type Star struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Flux         float64 `json:"flux"`
	SNR          float64 `json:"snr"`
	HFR          float64 `json:"hfr"`
	FWHM         float64 `json:"fwhm"`
	Eccentricity float64 `json:"eccentricity"`
	// Peak is the brightest raw sample inside the measurement window.
	Peak uint16 `json:"peak"`
}

// FrameMetrics aggregates per-star measurements to frame level. With zero
// stars every numeric field is 0, never NaN.
type FrameMetrics struct {
	HFR             float64   `json:"hfr"`
	FWHM            float64   `json:"fwhm"`
	SNR             float64   `json:"snr"`
	Eccentricity    float64   `json:"eccentricity"`
	BackgroundLevel float64   `json:"background_level"`
	PeakValue       uint16    `json:"peak_value"`
	StarCount       int       `json:"star_count"`
	FocusScore      float64   `json:"focus_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// FocusDirection is the suggested focuser move derived from one frame.
type FocusDirection string

const (
	// FocusDirectionIn suggests moving the focuser inward.
	FocusDirectionIn FocusDirection = "in"
	// FocusDirectionOut suggests moving the focuser outward.
	FocusDirectionOut FocusDirection = "out"
	// FocusDirectionNone means no move is suggested.
	FocusDirectionNone FocusDirection = "none"
)

// FocusAnalysis is the focus verdict for one frame. Direction from a single
// frame is a heuristic; Confidence is capped at 50 whenever a directional
// move is suggested.
type FocusAnalysis struct {
	IsInFocus      bool           `json:"is_in_focus"`
	Direction      FocusDirection `json:"direction"`
	Confidence     float64        `json:"confidence"`
	Recommendation string         `json:"recommendation"`
}

// QualityAssessment scores the frame 0-100 with actionable recommendations.
// Recommendations is never nil; an empty slice means nothing to report.
type QualityAssessment struct {
	Score           float64  `json:"score"`
	Recommendations []string `json:"recommendations"`
}

// DetectorMetrics counts candidate dispositions across detection and
// photometry, for diagnostics.
type DetectorMetrics struct {
	Seeds        int `json:"seeds"`
	Merged       int `json:"merged"`
	ZeroFlux     int `json:"zero_flux"`
	OutOfBounds  int `json:"out_of_bounds"`
	Truncated    int `json:"truncated"`
	Unmeasurable int `json:"unmeasurable"`
	Accepted     int `json:"accepted"`
}

// StageTiming records per-stage wall time in microseconds.
type StageTiming struct {
	BackgroundMicros int64 `json:"background_micros"`
	DetectMicros     int64 `json:"detect_micros"`
	PhotometryMicros int64 `json:"photometry_micros"`
	AggregateMicros  int64 `json:"aggregate_micros"`
	FocusMicros      int64 `json:"focus_micros"`
	QualityMicros    int64 `json:"quality_micros"`
	TotalMicros      int64 `json:"total_micros"`
}

// AnalysisResult is the composite output of one AnalyzeFrame call.
// Stars is sorted by non-increasing flux.
type AnalysisResult struct {
	AnalysisID string            `json:"analysis_id"`
	Metrics    FrameMetrics      `json:"metrics"`
	Stars      []Star            `json:"stars"`
	Quality    QualityAssessment `json:"quality"`
	Focus      FocusAnalysis     `json:"focus"`
	Background BackgroundModel   `json:"background"`
	Detector   DetectorMetrics   `json:"detector"`
	Timing     StageTiming       `json:"timing"`
}

func clampToUint16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= FullScale {
		return FullScale
	}
	return uint16(v + 0.5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
