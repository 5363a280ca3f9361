package starfield

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/deepsky-data/starqc/internal/monitoring"
	"github.com/deepsky-data/starqc/internal/timeutil"
)

// Analyzer runs the full analysis pipeline with a fixed parameter set. It
// holds no per-frame state and is safe for concurrent use from multiple
// goroutines.
type Analyzer struct {
	params AnalysisParams
	clock  timeutil.Clock
}

// NewAnalyzer returns an Analyzer. Zero-valued fields of params take their
// documented defaults.
func NewAnalyzer(params AnalysisParams) *Analyzer {
	return &Analyzer{params: params.normalized(), clock: timeutil.RealClock{}}
}

// Params returns the normalized parameter set in effect.
func (a *Analyzer) Params() AnalysisParams { return a.params }

// AnalyzeFrame runs background estimation, star detection, photometry,
// aggregation, focus analysis, and quality assessment on one frame, in
// that order, and returns the composite result.
//
// The call runs to completion; there is no mid-run cancellation.
// Degenerate frames (uniform, starless, fully saturated) produce
// low-quality results, not errors. ErrInvalidInput is returned only for
// structurally invalid frames.
func (a *Analyzer) AnalyzeFrame(frame *Frame) (*AnalysisResult, error) {
	if frame == nil || frame.width <= 0 || frame.height <= 0 {
		return nil, fmt.Errorf("%w: nil or zero-sized frame", ErrInvalidInput)
	}
	if len(frame.pixels) != frame.width*frame.height {
		return nil, fmt.Errorf("%w: buffer length %d does not match %dx%d",
			ErrInvalidInput, len(frame.pixels), frame.width, frame.height)
	}

	started := a.clock.Now()
	var timing StageTiming

	stageStart := started
	bg := EstimateBackground(frame, a.params)
	timing.BackgroundMicros = a.clock.Since(stageStart).Microseconds()

	stageStart = a.clock.Now()
	stars, dm := DetectStars(frame, bg, a.params)
	timing.DetectMicros = a.clock.Since(stageStart).Microseconds()

	stageStart = a.clock.Now()
	stars, unmeasurable := MeasureStars(frame, stars, bg, a.params)
	dm.Unmeasurable = unmeasurable
	// Photometry refines flux, so the detector's ordering may shift.
	sortStarsByFlux(stars)
	dm.Accepted = len(stars)
	timing.PhotometryMicros = a.clock.Since(stageStart).Microseconds()

	stageStart = a.clock.Now()
	metrics := AggregateMetrics(stars, bg, a.params)
	metrics.Timestamp = a.clock.Now()
	timing.AggregateMicros = a.clock.Since(stageStart).Microseconds()

	stageStart = a.clock.Now()
	focus := AnalyzeFocus(stars, metrics, a.params)
	timing.FocusMicros = a.clock.Since(stageStart).Microseconds()

	stageStart = a.clock.Now()
	quality := AssessQuality(metrics, bg, a.params)
	timing.QualityMicros = a.clock.Since(stageStart).Microseconds()

	timing.TotalMicros = a.clock.Since(started).Microseconds()

	result := &AnalysisResult{
		AnalysisID: uuid.New().String(),
		Metrics:    metrics,
		Stars:      stars,
		Quality:    quality,
		Focus:      focus,
		Background: bg,
		Detector:   dm,
		Timing:     timing,
	}
	if a.params.EnableDiagnostics {
		monitoring.Logf("[Engine] %s: %dx%d stars=%d hfr=%.2f score=%.0f elapsed=%dus",
			result.AnalysisID, frame.width, frame.height,
			metrics.StarCount, metrics.HFR, quality.Score, timing.TotalMicros)
	}
	return result, nil
}

// AnalysisOutcome carries the result of an asynchronous analysis.
type AnalysisOutcome struct {
	Result *AnalysisResult
	Err    error
}

// AnalyzeFrameAsync runs AnalyzeFrame on its own goroutine and delivers
// exactly one outcome on the returned channel, which is then closed. The
// channel is buffered, so the result never blocks on a slow receiver.
func (a *Analyzer) AnalyzeFrameAsync(frame *Frame) <-chan AnalysisOutcome {
	ch := make(chan AnalysisOutcome, 1)
	go func() {
		defer close(ch)
		res, err := a.AnalyzeFrame(frame)
		ch <- AnalysisOutcome{Result: res, Err: err}
	}()
	return ch
}
