package starfield

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/deepsky-data/starqc/internal/monitoring"
)

// noiseFloor is the minimum noise sigma used inside SNR so noiseless
// synthetic frames still produce finite values.
const noiseFloor = 1e-3

// starShape holds the measurements of one circular window.
type starShape struct {
	flux float64
	hfr  float64
	fwhm float64
	ecc  float64
	peak float64
	// area is the number of pixels inside the circular aperture.
	area int
	ok   bool
}

// MeasureStars runs radial photometry and shape analysis on each candidate.
//
// Flux is recomputed about the refined centroid so that flux, HFR, and SNR
// all describe the same circular window. Candidates whose window holds no
// flux above background are dropped; the second return value counts them.
// The relative order of the surviving stars is preserved.
func MeasureStars(frame *Frame, stars []Star, bg BackgroundModel, params AnalysisParams) ([]Star, int) {
	p := params.normalized()
	out := make([]Star, 0, len(stars))
	dropped := 0
	for _, st := range stars {
		shape := measureAt(frame, st.X, st.Y, p.ApertureRadiusPx, bg.Level)
		if !shape.ok {
			dropped++
			continue
		}
		st.Flux = shape.flux
		st.HFR = shape.hfr
		st.FWHM = shape.fwhm
		st.Eccentricity = shape.ecc
		st.SNR = snrValue(shape.flux, bg.NoiseSigma, shape.area)
		out = append(out, st)
	}
	if p.EnableDiagnostics {
		monitoring.Logf("[Photometry] measured=%d dropped=%d", len(out), dropped)
	}
	return out, dropped
}

// measureAt measures the circular window of the given radius around
// (cx, cy). The window is clipped at the frame edge; measurements stay
// defined as long as any flux above level remains inside.
//
// HFR is the interpolated radius at which cumulative shell flux reaches
// half of the window total. FWHM comes from the radially averaged profile:
// the interpolated radius where it falls to half its peak, doubled, and
// clamped at the window radius when the profile never drops that far.
// Eccentricity derives from the eigenvalues of the second-order intensity
// moment matrix.
func measureAt(win Window, cx, cy float64, radius int, level float64) starShape {
	x0 := int(math.Floor(cx)) - radius
	x1 := int(math.Ceil(cx)) + radius
	y0 := int(math.Floor(cy)) - radius
	y1 := int(math.Ceil(cy)) + radius
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > win.Width()-1 {
		x1 = win.Width() - 1
	}
	if y1 > win.Height()-1 {
		y1 = win.Height() - 1
	}
	if x1 < x0 || y1 < y0 {
		return starShape{}
	}

	nShells := radius + 1
	shellSum := make([]float64, nShells)
	shellRad := make([]float64, nShells)
	shellCount := make([]int, nShells)

	maxR := float64(radius)
	var shape starShape
	var sw, swx, swy, swxx, swyy, swxy float64

	for y := y0; y <= y1; y++ {
		dy := float64(y) - cy
		for x := x0; x <= x1; x++ {
			dx := float64(x) - cx
			r := math.Sqrt(dx*dx + dy*dy)
			if r > maxR {
				continue
			}
			v := win.At(x, y)
			if v > shape.peak {
				shape.peak = v
			}
			shape.area++
			s := int(r)
			if s >= nShells {
				s = nShells - 1
			}
			shellRad[s] += r
			shellCount[s]++
			w := v - level
			if w <= 0 {
				continue
			}
			shellSum[s] += w
			shape.flux += w
			sw += w
			swx += w * dx
			swy += w * dy
			swxx += w * dx * dx
			swyy += w * dy * dy
			swxy += w * dx * dy
		}
	}
	if shape.flux <= 0 {
		return shape
	}

	shape.hfr = halfFluxRadius(shellSum, shape.flux, maxR)
	shape.fwhm = profileFWHM(shellSum, shellRad, shellCount, maxR)
	shape.ecc = momentEccentricity(sw, swx, swy, swxx, swyy, swxy)
	shape.ok = true
	return shape
}

// halfFluxRadius walks cumulative shell flux to the half-total crossing and
// interpolates within the crossing shell. All flux in the innermost shell
// yields a radius near zero.
func halfFluxRadius(shellSum []float64, total, maxR float64) float64 {
	half := total / 2
	cum := 0.0
	for s, f := range shellSum {
		if cum+f >= half {
			frac := 0.0
			if f > 0 {
				frac = (half - cum) / f
			}
			return float64(s) + frac
		}
		cum += f
	}
	return maxR
}

// profileFWHM builds the radially averaged intensity profile, using each
// shell's mean pixel radius as its abscissa, and doubles the interpolated
// half-peak crossing. For a defocused profile that peaks off-center, the
// walk starts at the peak shell so only the outer crossing counts.
func profileFWHM(shellSum, shellRad []float64, shellCount []int, maxR float64) float64 {
	n := len(shellSum)
	profile := make([]float64, n)
	radius := make([]float64, n)
	for s := 0; s < n; s++ {
		if shellCount[s] > 0 {
			profile[s] = shellSum[s] / float64(shellCount[s])
			radius[s] = shellRad[s] / float64(shellCount[s])
		} else {
			radius[s] = float64(s)
		}
	}

	peakIdx := 0
	for s := 1; s < n; s++ {
		if profile[s] > profile[peakIdx] {
			peakIdx = s
		}
	}
	if profile[peakIdx] <= 0 {
		return 0
	}

	halfPeak := profile[peakIdx] / 2
	rHalf := maxR
	for s := peakIdx + 1; s < n; s++ {
		if profile[s] < halfPeak {
			prev := profile[s-1]
			frac := 0.0
			if prev > profile[s] {
				frac = (prev - halfPeak) / (prev - profile[s])
			}
			rHalf = radius[s-1] + frac*(radius[s]-radius[s-1])
			break
		}
	}
	if rHalf > maxR {
		rHalf = maxR
	}
	return 2 * rHalf
}

// ProfilePoint is one shell of a radially averaged star profile.
type ProfilePoint struct {
	// Radius is the mean pixel radius of the shell in pixels.
	Radius float64 `json:"radius"`
	// Intensity is the mean background-subtracted intensity of the shell
	// in ADU. Shells dominated by background report 0.
	Intensity float64 `json:"intensity"`
}

// RadialProfile returns the radially averaged profile of the window of the
// given radius around a star's centroid, one point per 1-pixel shell. The
// window is clipped at the frame edge. Shells that received no pixels keep
// their nominal radius and a zero intensity.
func RadialProfile(frame *Frame, star Star, bg BackgroundModel, radius int) []ProfilePoint {
	if frame == nil || radius < 1 {
		return nil
	}
	x0 := int(math.Floor(star.X)) - radius
	x1 := int(math.Ceil(star.X)) + radius
	y0 := int(math.Floor(star.Y)) - radius
	y1 := int(math.Ceil(star.Y)) + radius
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > frame.Width()-1 {
		x1 = frame.Width() - 1
	}
	if y1 > frame.Height()-1 {
		y1 = frame.Height() - 1
	}

	nShells := radius + 1
	shellSum := make([]float64, nShells)
	shellRad := make([]float64, nShells)
	shellCount := make([]int, nShells)
	maxR := float64(radius)

	for y := y0; y <= y1; y++ {
		dy := float64(y) - star.Y
		for x := x0; x <= x1; x++ {
			dx := float64(x) - star.X
			r := math.Sqrt(dx*dx + dy*dy)
			if r > maxR {
				continue
			}
			s := int(r)
			if s >= nShells {
				s = nShells - 1
			}
			shellRad[s] += r
			shellCount[s]++
			if w := frame.At(x, y) - bg.Level; w > 0 {
				shellSum[s] += w
			}
		}
	}

	points := make([]ProfilePoint, nShells)
	for s := 0; s < nShells; s++ {
		points[s] = ProfilePoint{Radius: float64(s)}
		if shellCount[s] > 0 {
			points[s].Radius = shellRad[s] / float64(shellCount[s])
			points[s].Intensity = shellSum[s] / float64(shellCount[s])
		}
	}
	return points
}

// momentEccentricity computes sqrt(1 - lambda_min/lambda_max) from the
// eigenvalues of the flux-weighted second-order moment matrix. Degenerate
// windows (a single bright pixel, or a numerically non-positive major
// axis) report 0, meaning round.
func momentEccentricity(sw, swx, swy, swxx, swyy, swxy float64) float64 {
	if sw <= 0 {
		return 0
	}
	mx := swx / sw
	my := swy / sw
	cxx := swxx/sw - mx*mx
	cyy := swyy/sw - my*my
	cxy := swxy/sw - mx*my

	sym := mat.NewSymDense(2, []float64{cxx, cxy, cxy, cyy})
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return 0
	}
	vals := eig.Values(nil)
	lmin, lmax := vals[0], vals[1]
	if lmin < 0 {
		lmin = 0
	}
	if lmax <= 0 {
		return 0
	}
	return math.Sqrt(clamp01(1 - lmin/lmax))
}

// snrValue is flux over the noise expected across the aperture area. The
// sigma floor keeps the ratio finite when the background model reports
// zero noise.
func snrValue(flux, noiseSigma float64, aperturePixels int) float64 {
	sigma := noiseSigma
	if sigma < noiseFloor {
		sigma = noiseFloor
	}
	if aperturePixels < 1 {
		aperturePixels = 1
	}
	return flux / (sigma * math.Sqrt(float64(aperturePixels)))
}
