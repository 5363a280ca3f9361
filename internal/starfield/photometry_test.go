package starfield

import (
	"math"
	"math/rand"
	"testing"
)

// measureSingle runs photometry on one hand-placed candidate and fails the
// test if the star is dropped.
func measureSingle(t *testing.T, frame *Frame, x, y float64, bg BackgroundModel, params AnalysisParams) Star {
	t.Helper()
	stars, dropped := MeasureStars(frame, []Star{{X: x, Y: y}}, bg, params)
	if len(stars) != 1 {
		t.Fatalf("MeasureStars returned %d stars (%d dropped), want 1", len(stars), dropped)
	}
	return stars[0]
}

func TestMeasureGaussianStarShape(t *testing.T) {
	// A sigma=1.5 Gaussian has a half-flux radius of 1.177*sigma = 1.77
	// and an FWHM of 2.355*sigma = 3.53. Pixel sampling and shell
	// interpolation perturb both by a few percent.
	canvas := NewFieldCanvas(64, 64, 500)
	canvas.AddStar(32, 32, 20000, 1.5)
	frame := canvas.Frame()

	st := measureSingle(t, frame, 32, 32, BackgroundModel{Level: 500}, AnalysisParams{})

	if st.HFR < 1.5 || st.HFR > 2.1 {
		t.Errorf("HFR = %.3f, want within [1.5, 2.1]", st.HFR)
	}
	if st.FWHM < 3.0 || st.FWHM > 4.1 {
		t.Errorf("FWHM = %.3f, want within [3.0, 4.1]", st.FWHM)
	}
	ratio := st.FWHM / st.HFR
	if ratio < 1.6 || ratio > 2.4 {
		t.Errorf("FWHM/HFR = %.3f, want within [1.6, 2.4] for a Gaussian profile", ratio)
	}
	if st.Eccentricity > 0.25 {
		t.Errorf("Eccentricity = %.3f, want < 0.25 for a round star", st.Eccentricity)
	}
	if st.Flux <= 0 {
		t.Errorf("Flux = %.3f, want > 0", st.Flux)
	}
	if st.SNR <= 0 || math.IsInf(st.SNR, 0) {
		t.Errorf("SNR = %v, want finite and positive", st.SNR)
	}
}

func TestMeasureHotPixel(t *testing.T) {
	// A single bright pixel carries all its flux in the innermost shell,
	// so the half-flux crossing interpolates to 0.5 and the profile
	// collapses within the first shell.
	canvas := NewFieldCanvas(64, 64, 500)
	canvas.AddHotPixel(32, 32, 30000)
	frame := canvas.Frame()

	st := measureSingle(t, frame, 32, 32, BackgroundModel{Level: 500}, AnalysisParams{})

	if st.HFR > 0.6 {
		t.Errorf("HFR = %.3f, want <= 0.6 for a single-pixel source", st.HFR)
	}
	if st.FWHM > 2.0 {
		t.Errorf("FWHM = %.3f, want <= 2.0 for a single-pixel source", st.FWHM)
	}
	if st.Eccentricity > 0.05 {
		t.Errorf("Eccentricity = %.3f, want ~0 for a degenerate moment matrix", st.Eccentricity)
	}
	if math.Abs(st.Flux-29500) > 1 {
		t.Errorf("Flux = %.3f, want 29500 (value minus background)", st.Flux)
	}
}

func TestMeasureElongatedStar(t *testing.T) {
	round := NewFieldCanvas(64, 64, 500)
	round.AddStar(32, 32, 15000, 1.5)
	roundStar := measureSingle(t, round.Frame(), 32, 32, BackgroundModel{Level: 500}, AnalysisParams{})

	elongated := NewFieldCanvas(64, 64, 500)
	elongated.AddEllipticalStar(32, 32, 15000, 3.0, 1.5, 0.4)
	elongatedStar := measureSingle(t, elongated.Frame(), 32, 32, BackgroundModel{Level: 500}, AnalysisParams{})

	if roundStar.Eccentricity > 0.2 {
		t.Errorf("round star eccentricity = %.3f, want < 0.2", roundStar.Eccentricity)
	}
	if elongatedStar.Eccentricity < 0.5 {
		t.Errorf("elongated star eccentricity = %.3f, want > 0.5", elongatedStar.Eccentricity)
	}
	if elongatedStar.Eccentricity <= roundStar.Eccentricity+0.3 {
		t.Errorf("elongated eccentricity %.3f not clearly above round %.3f",
			elongatedStar.Eccentricity, roundStar.Eccentricity)
	}
}

func TestMeasureDefocusedStarHasLargerHFR(t *testing.T) {
	focused := NewFieldCanvas(64, 64, 500)
	focused.AddStar(32, 32, 20000, 1.5)
	focusedStar := measureSingle(t, focused.Frame(), 32, 32, BackgroundModel{Level: 500}, AnalysisParams{})

	defocused := NewFieldCanvas(64, 64, 500)
	defocused.AddStar(32, 32, 20000, 3.0)
	defocusedStar := measureSingle(t, defocused.Frame(), 32, 32, BackgroundModel{Level: 500}, AnalysisParams{})

	if defocusedStar.HFR <= focusedStar.HFR+0.5 {
		t.Errorf("defocused HFR = %.3f, want clearly above focused HFR %.3f",
			defocusedStar.HFR, focusedStar.HFR)
	}
	if defocusedStar.FWHM <= focusedStar.FWHM {
		t.Errorf("defocused FWHM = %.3f, want above focused FWHM %.3f",
			defocusedStar.FWHM, focusedStar.FWHM)
	}
}

func TestMeasureSNRTracksBrightness(t *testing.T) {
	canvas := NewFieldCanvas(64, 64, 800)
	canvas.AddStar(20, 32, 20000, 1.5)
	canvas.AddStar(44, 32, 2000, 1.5)
	canvas.AddNoise(rand.New(rand.NewSource(5)), 20)
	frame := canvas.Frame()

	bg := EstimateBackground(frame, AnalysisParams{})
	stars, dropped := MeasureStars(frame, []Star{{X: 20, Y: 32}, {X: 44, Y: 32}}, bg, AnalysisParams{})
	if len(stars) != 2 {
		t.Fatalf("MeasureStars returned %d stars (%d dropped), want 2", len(stars), dropped)
	}

	bright, dim := stars[0], stars[1]
	if bright.Flux <= dim.Flux {
		t.Errorf("bright flux %.1f not above dim flux %.1f", bright.Flux, dim.Flux)
	}
	if bright.SNR <= dim.SNR {
		t.Errorf("bright SNR %.2f not above dim SNR %.2f", bright.SNR, dim.SNR)
	}
}

func TestMeasureSNRTracksNoise(t *testing.T) {
	snrAtNoise := func(sigma float64, seed int64) float64 {
		canvas := NewFieldCanvas(64, 64, 800)
		canvas.AddStar(32, 32, 20000, 1.5)
		canvas.AddNoise(rand.New(rand.NewSource(seed)), sigma)
		frame := canvas.Frame()
		bg := EstimateBackground(frame, AnalysisParams{})
		return measureSingle(t, frame, 32, 32, bg, AnalysisParams{}).SNR
	}

	quiet := snrAtNoise(5, 3)
	noisy := snrAtNoise(50, 3)
	if quiet <= noisy {
		t.Errorf("SNR at sigma=5 (%.2f) not above SNR at sigma=50 (%.2f)", quiet, noisy)
	}
}

func TestMeasureStarsDropsFluxlessCandidates(t *testing.T) {
	canvas := NewFieldCanvas(64, 64, 500)
	canvas.AddStar(20, 20, 15000, 1.5)
	frame := canvas.Frame()

	// The second candidate sits on pure background, where no pixel rises
	// above the model level.
	candidates := []Star{{X: 20, Y: 20}, {X: 50, Y: 50}}
	stars, dropped := MeasureStars(frame, candidates, BackgroundModel{Level: 500}, AnalysisParams{})

	if len(stars) != 1 {
		t.Fatalf("MeasureStars returned %d stars, want 1", len(stars))
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if stars[0].X != 20 || stars[0].Y != 20 {
		t.Errorf("surviving star at (%.1f, %.1f), want (20, 20)", stars[0].X, stars[0].Y)
	}
}

func TestMeasureStarsPreservesInputOrder(t *testing.T) {
	canvas := NewFieldCanvas(64, 64, 500)
	canvas.AddStar(20, 32, 2000, 1.5)
	canvas.AddStar(44, 32, 20000, 1.5)
	frame := canvas.Frame()

	// Input is dim first; photometry must not reorder.
	stars, _ := MeasureStars(frame, []Star{{X: 20, Y: 32}, {X: 44, Y: 32}}, BackgroundModel{Level: 500}, AnalysisParams{})
	if len(stars) != 2 {
		t.Fatalf("MeasureStars returned %d stars, want 2", len(stars))
	}
	if stars[0].X != 20 {
		t.Errorf("first star X = %.1f, want 20 (input order preserved)", stars[0].X)
	}
	if stars[0].Flux >= stars[1].Flux {
		t.Errorf("dim star flux %.1f not below bright star flux %.1f", stars[0].Flux, stars[1].Flux)
	}
}

func TestRadialProfileGaussianDecay(t *testing.T) {
	canvas := NewFieldCanvas(64, 64, 500)
	canvas.AddStar(32, 32, 20000, 1.5)
	frame := canvas.Frame()

	profile := RadialProfile(frame, Star{X: 32, Y: 32}, BackgroundModel{Level: 500}, 6)
	if len(profile) != 7 {
		t.Fatalf("profile has %d points, want 7", len(profile))
	}

	// The center shell carries the peak; intensity must fall monotonically
	// through the first few shells of a sigma=1.5 Gaussian.
	if profile[0].Intensity < 10000 {
		t.Errorf("center intensity = %.1f, want > 10000", profile[0].Intensity)
	}
	for s := 1; s <= 4; s++ {
		if profile[s].Intensity >= profile[s-1].Intensity {
			t.Errorf("shell %d intensity %.1f not below shell %d intensity %.1f",
				s, profile[s].Intensity, s-1, profile[s-1].Intensity)
		}
	}
	if profile[6].Intensity > profile[0].Intensity*0.01 {
		t.Errorf("outer shell intensity = %.1f, want < 1%% of center %.1f",
			profile[6].Intensity, profile[0].Intensity)
	}

	// Shell radii must ascend and track the shell index.
	for s := 1; s < len(profile); s++ {
		if profile[s].Radius <= profile[s-1].Radius {
			t.Errorf("shell %d radius %.2f not above shell %d radius %.2f",
				s, profile[s].Radius, s-1, profile[s-1].Radius)
		}
	}
}

func TestRadialProfileFlatFrame(t *testing.T) {
	canvas := NewFieldCanvas(32, 32, 800)
	frame := canvas.Frame()

	profile := RadialProfile(frame, Star{X: 16, Y: 16}, BackgroundModel{Level: 800}, 4)
	if len(profile) != 5 {
		t.Fatalf("profile has %d points, want 5", len(profile))
	}
	for s, p := range profile {
		if p.Intensity != 0 {
			t.Errorf("shell %d intensity = %.3f, want 0 on a flat frame", s, p.Intensity)
		}
	}
}

func TestRadialProfileDegenerateInputs(t *testing.T) {
	canvas := NewFieldCanvas(32, 32, 500)
	frame := canvas.Frame()

	if got := RadialProfile(nil, Star{X: 16, Y: 16}, BackgroundModel{}, 4); got != nil {
		t.Errorf("nil frame profile = %v, want nil", got)
	}
	if got := RadialProfile(frame, Star{X: 16, Y: 16}, BackgroundModel{}, 0); got != nil {
		t.Errorf("zero radius profile = %v, want nil", got)
	}
}
