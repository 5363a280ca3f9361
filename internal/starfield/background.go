package starfield

import (
	"math"

	"github.com/deepsky-data/starqc/internal/monitoring"
)

// madToSigma converts a median absolute deviation to the standard deviation
// of the equivalent Gaussian.
const madToSigma = 1.4826

// EstimateBackground computes a robust sky background model for the frame.
//
// The estimate starts from the sample median and the scaled median absolute
// deviation, then refines both by kappa-sigma clipping so that star pixels
// in the bright tail do not inflate the level or the noise floor. Frames
// larger than BackgroundStrideThreshold feed the histogram through a regular
// row/column stride; the peak and the saturated fraction always come from a
// full scan. Uniform, all-zero, and fully saturated frames yield a valid
// model with NoiseSigma 0.
func EstimateBackground(frame *Frame, params AnalysisParams) BackgroundModel {
	p := params.normalized()

	var peak uint16
	saturated := 0
	satLevel := p.saturationLevel()
	for _, v := range frame.pixels {
		if v > peak {
			peak = v
		}
		if v >= satLevel {
			saturated++
		}
	}

	stride := 1
	if len(frame.pixels) > p.BackgroundStrideThreshold {
		stride = p.BackgroundSampleStride
	}

	hist := make([]int, FullScale+1)
	samples := 0
	for y := 0; y < frame.height; y += stride {
		row := frame.pixels[y*frame.width : (y+1)*frame.width]
		for x := 0; x < frame.width; x += stride {
			hist[row[x]]++
			samples++
		}
	}

	median := medianBin(hist, samples)
	devHist := make([]int, FullScale+1)
	for b, c := range hist {
		if c == 0 {
			continue
		}
		d := b - median
		if d < 0 {
			d = -d
		}
		devHist[d] += c
	}
	mad := medianBin(devHist, samples)

	level := float64(median)
	sigma := madToSigma * float64(mad)

	// Clip the bright tail until the clipped mean stabilises. The window
	// always contains the current level, so the clipped set cannot go
	// empty on well-formed input.
	iters := 0
	for i := 0; i < p.MaxClipIterations; i++ {
		lo := level - p.NoiseClipSigma*sigma
		hi := level + p.NoiseClipSigma*sigma
		mean, sd, n := histogramMoments(hist, lo, hi)
		if n == 0 {
			break
		}
		iters++
		converged := math.Abs(mean-level) < 0.5 && math.Abs(sd-sigma) <= 0.05*sigma+1e-9
		level, sigma = mean, sd
		if converged {
			break
		}
	}

	model := BackgroundModel{
		Level:             level,
		NoiseSigma:        sigma,
		Peak:              peak,
		SaturatedFraction: float64(saturated) / float64(len(frame.pixels)),
		SampleCount:       samples,
		ClipIterations:    iters,
	}
	if p.EnableDiagnostics {
		monitoring.Logf("[Background] level=%.1f sigma=%.2f peak=%d saturated=%.4f samples=%d iters=%d",
			model.Level, model.NoiseSigma, model.Peak, model.SaturatedFraction, model.SampleCount, model.ClipIterations)
	}
	return model
}

// medianBin returns the bin holding the middle sample of a histogram.
func medianBin(hist []int, total int) int {
	if total <= 0 {
		return 0
	}
	half := (total + 1) / 2
	cum := 0
	for b, c := range hist {
		cum += c
		if cum >= half {
			return b
		}
	}
	return FullScale
}

// histogramMoments returns the mean, standard deviation, and sample count
// of the histogram restricted to bin values in [lo, hi].
func histogramMoments(hist []int, lo, hi float64) (float64, float64, int) {
	loBin := int(math.Ceil(lo))
	if loBin < 0 {
		loBin = 0
	}
	hiBin := int(math.Floor(hi))
	if hiBin > FullScale {
		hiBin = FullScale
	}
	var sum, sumSq float64
	n := 0
	for b := loBin; b <= hiBin; b++ {
		c := hist[b]
		if c == 0 {
			continue
		}
		v := float64(b)
		fc := float64(c)
		sum += v * fc
		sumSq += v * v * fc
		n += c
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance), n
}
