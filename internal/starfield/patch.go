package starfield

import (
	"math"
	"sort"
)

// MeasureFWHM estimates the full width at half maximum, in pixels, of the
// star centered at (x, y) in an 8-bit grayscale patch. Background level is
// taken from the median of the patch border, so the patch should extend
// past the star. Returns 0 when the patch is unusable: dimensions not
// matching the buffer, center outside the patch, a patch too small to hold
// a measurement window, or no flux above the local background.
func MeasureFWHM(patch []uint8, width, height int, x, y float64) float64 {
	win, radius, ok := patchWindow(patch, width, height, x, y)
	if !ok {
		return 0
	}
	level, _ := patchBorderStats(patch, width, height)
	shape := measureAt(win, x, y, radius, level)
	if !shape.ok {
		return 0
	}
	return shape.fwhm
}

// MeasureSNR estimates the signal-to-noise ratio of the star centered at
// (x, y) in an 8-bit grayscale patch. Background level and noise sigma are
// estimated from the patch border (median and scaled MAD). Returns 0 when
// the patch is unusable.
func MeasureSNR(patch []uint8, width, height int, x, y float64) float64 {
	win, radius, ok := patchWindow(patch, width, height, x, y)
	if !ok {
		return 0
	}
	level, sigma := patchBorderStats(patch, width, height)
	shape := measureAt(win, x, y, radius, level)
	if !shape.ok {
		return 0
	}
	return snrValue(shape.flux, sigma, shape.area)
}

// patchWindow validates the patch geometry and derives the measurement
// radius that fits inside it.
func patchWindow(patch []uint8, width, height int, x, y float64) (Window, int, bool) {
	if width <= 0 || height <= 0 || len(patch) != width*height {
		return nil, 0, false
	}
	if !(x >= 0 && x <= float64(width-1) && y >= 0 && y <= float64(height-1)) {
		return nil, 0, false
	}
	short := width
	if height < short {
		short = height
	}
	radius := (short - 1) / 2
	if radius < 1 {
		return nil, 0, false
	}
	return byteWindow{data: patch, w: width, h: height}, radius, true
}

// patchBorderStats estimates local background level and noise from the
// one-pixel border of the patch.
func patchBorderStats(patch []uint8, width, height int) (float64, float64) {
	border := make([]float64, 0, 2*width+2*height)
	for x := 0; x < width; x++ {
		border = append(border, float64(patch[x]))
		if height > 1 {
			border = append(border, float64(patch[(height-1)*width+x]))
		}
	}
	for y := 1; y < height-1; y++ {
		border = append(border, float64(patch[y*width]))
		if width > 1 {
			border = append(border, float64(patch[y*width+width-1]))
		}
	}
	level := medianFloat(border)
	for i, v := range border {
		border[i] = math.Abs(v - level)
	}
	return level, madToSigma * medianFloat(border)
}

// medianFloat sorts vals in place and returns the median.
func medianFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
