package starfield

import (
	"math"
	"math/rand"
	"testing"
)

// makeStarPatch renders an 8-bit patch holding one Gaussian star plus
// optional Gaussian noise.
func makeStarPatch(width, height int, bg, peak, sigma, cx, cy, noiseSigma float64, seed int64) []uint8 {
	rng := rand.New(rand.NewSource(seed))
	patch := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			v := bg + peak*math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			if noiseSigma > 0 {
				v += rng.NormFloat64() * noiseSigma
			}
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			patch[y*width+x] = uint8(v + 0.5)
		}
	}
	return patch
}

func TestMeasureFWHMGaussianPatch(t *testing.T) {
	// sigma=1.5 means an ideal FWHM of 2.355*1.5 = 3.53.
	patch := makeStarPatch(21, 21, 20, 200, 1.5, 10, 10, 0, 0)

	fwhm := MeasureFWHM(patch, 21, 21, 10, 10)
	if fwhm < 3.0 || fwhm > 4.1 {
		t.Errorf("MeasureFWHM = %.3f, want within [3.0, 4.1]", fwhm)
	}
}

func TestMeasureFWHMHotPixelPatch(t *testing.T) {
	patch := make([]uint8, 21*21)
	for i := range patch {
		patch[i] = 20
	}
	patch[10*21+10] = 250

	fwhm := MeasureFWHM(patch, 21, 21, 10, 10)
	if fwhm <= 0 || fwhm > 2.0 {
		t.Errorf("MeasureFWHM = %.3f, want in (0, 2.0] for a single-pixel source", fwhm)
	}
}

func TestMeasureSNRGaussianPatch(t *testing.T) {
	patch := makeStarPatch(21, 21, 20, 200, 1.5, 10, 10, 3, 7)

	snr := MeasureSNR(patch, 21, 21, 10, 10)
	if snr <= 0 || math.IsInf(snr, 0) || math.IsNaN(snr) {
		t.Errorf("MeasureSNR = %v, want finite and positive", snr)
	}
}

func TestMeasureSNRTracksPeak(t *testing.T) {
	bright := makeStarPatch(21, 21, 20, 200, 1.5, 10, 10, 3, 11)
	dim := makeStarPatch(21, 21, 20, 60, 1.5, 10, 10, 3, 11)

	brightSNR := MeasureSNR(bright, 21, 21, 10, 10)
	dimSNR := MeasureSNR(dim, 21, 21, 10, 10)
	if brightSNR <= dimSNR {
		t.Errorf("bright SNR %.2f not above dim SNR %.2f", brightSNR, dimSNR)
	}
}

func TestPatchMeasurementsRejectBadInput(t *testing.T) {
	good := makeStarPatch(21, 21, 20, 200, 1.5, 10, 10, 0, 0)
	flat := make([]uint8, 21*21)
	for i := range flat {
		flat[i] = 20
	}

	tests := []struct {
		name          string
		patch         []uint8
		width, height int
		x, y          float64
	}{
		{"nil patch", nil, 21, 21, 10, 10},
		{"length mismatch", good[:10], 21, 21, 10, 10},
		{"zero width", good, 0, 21, 10, 10},
		{"center left of patch", good, 21, 21, -5, 10},
		{"center beyond patch", good, 21, 21, 25, 10},
		{"NaN center", good, 21, 21, math.NaN(), 10},
		{"patch too small", []uint8{1, 2, 3, 4}, 2, 2, 0.5, 0.5},
		{"no flux above background", flat, 21, 21, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MeasureFWHM(tt.patch, tt.width, tt.height, tt.x, tt.y); got != 0 {
				t.Errorf("MeasureFWHM = %v, want 0", got)
			}
			if got := MeasureSNR(tt.patch, tt.width, tt.height, tt.x, tt.y); got != 0 {
				t.Errorf("MeasureSNR = %v, want 0", got)
			}
		})
	}
}

func TestPatchBorderStats(t *testing.T) {
	// Uniform border at 20 with a bright interior that must not leak into
	// the background estimate.
	patch := make([]uint8, 9*9)
	for i := range patch {
		patch[i] = 20
	}
	for y := 2; y < 7; y++ {
		for x := 2; x < 7; x++ {
			patch[y*9+x] = 200
		}
	}

	level, sigma := patchBorderStats(patch, 9, 9)
	if level != 20 {
		t.Errorf("border level = %v, want 20", level)
	}
	if sigma != 0 {
		t.Errorf("border sigma = %v, want 0 for a flat border", sigma)
	}
}

func TestMedianFloat(t *testing.T) {
	tests := []struct {
		name string
		vals []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3}, 3},
		{"odd", []float64{9, 1, 5}, 5},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := medianFloat(tt.vals); got != tt.want {
				t.Errorf("medianFloat = %v, want %v", got, tt.want)
			}
		})
	}
}
