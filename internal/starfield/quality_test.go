package starfield

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestAssessQualityHealthyFrame(t *testing.T) {
	metrics := FrameMetrics{StarCount: 30, HFR: 2.0, SNR: 50, Eccentricity: 0.2}
	bg := BackgroundModel{Level: 800}

	q := AssessQuality(metrics, bg, AnalysisParams{})

	// sharpness 1-2/7, SNR and count factors saturated, no saturation
	// penalty: 100 * (0.35*0.7143 + 0.25 + 0.20 + 0.20) = 90.
	if math.Abs(q.Score-90) > 0.01 {
		t.Errorf("Score = %v, want 90", q.Score)
	}
	if q.Recommendations == nil {
		t.Fatal("Recommendations = nil, want empty slice")
	}
	if len(q.Recommendations) != 0 {
		t.Errorf("Recommendations = %v, want none for a healthy frame", q.Recommendations)
	}
}

func TestAssessQualityScoreRange(t *testing.T) {
	tests := []struct {
		name    string
		metrics FrameMetrics
		bg      BackgroundModel
	}{
		{"empty frame", FrameMetrics{}, BackgroundModel{}},
		{"extreme SNR", FrameMetrics{StarCount: 500, SNR: 1e9, HFR: 0.1}, BackgroundModel{}},
		{"huge HFR", FrameMetrics{StarCount: 10, HFR: 100, SNR: 5}, BackgroundModel{}},
		{"saturated", FrameMetrics{StarCount: 3, HFR: 1, SNR: 40}, BackgroundModel{SaturatedFraction: 1}},
		{"noisy background", FrameMetrics{StarCount: 8, HFR: 3, SNR: 2}, BackgroundModel{Level: 60000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := AssessQuality(tt.metrics, tt.bg, AnalysisParams{})
			if q.Score < 0 || q.Score > 100 {
				t.Errorf("Score = %v, want within [0, 100]", q.Score)
			}
		})
	}
}

func TestAssessQualityFullySaturated(t *testing.T) {
	metrics := FrameMetrics{StarCount: 0}
	bg := BackgroundModel{Level: 65535, Peak: 65535, SaturatedFraction: 1.0}

	q := AssessQuality(metrics, bg, AnalysisParams{})

	if q.Score != 0 {
		t.Errorf("Score = %v, want 0 for a fully saturated frame", q.Score)
	}
	if len(q.Recommendations) == 0 {
		t.Fatal("Recommendations empty, want the exposure warning first")
	}
	if q.Recommendations[0] != "Reduce exposure time or gain" {
		t.Errorf("Recommendations[0] = %q, want the exact exposure warning", q.Recommendations[0])
	}
}

func TestAssessQualityUniformLowFrame(t *testing.T) {
	// No stars, no saturation: only the saturation factor contributes,
	// 100 * 0.20 = 20.
	q := AssessQuality(FrameMetrics{StarCount: 0}, BackgroundModel{Level: 500}, AnalysisParams{})

	if math.Abs(q.Score-20) > 0.01 {
		t.Errorf("Score = %v, want 20", q.Score)
	}
	if q.Score > 50 {
		t.Errorf("Score = %v, want <= 50 for a starless frame", q.Score)
	}
	found := false
	for _, r := range q.Recommendations {
		if strings.Contains(r, "No stars detected") {
			found = true
		}
	}
	if !found {
		t.Errorf("Recommendations = %v, want a no-stars entry", q.Recommendations)
	}
}

func TestAssessQualitySaturationPenalty(t *testing.T) {
	metrics := FrameMetrics{StarCount: 30, HFR: 2.0, SNR: 50, Eccentricity: 0.2}
	scoreAt := func(frac float64) float64 {
		return AssessQuality(metrics, BackgroundModel{SaturatedFraction: frac}, AnalysisParams{}).Score
	}

	tests := []struct {
		frac float64
		want float64
	}{
		{0, 90},
		{0.25, 80},
		{0.5, 70},
		{0.9, 70},
	}
	for _, tt := range tests {
		if got := scoreAt(tt.frac); math.Abs(got-tt.want) > 0.01 {
			t.Errorf("score at saturated fraction %v = %v, want %v", tt.frac, got, tt.want)
		}
	}
}

func TestAssessQualityRecommendations(t *testing.T) {
	tests := []struct {
		name       string
		metrics    FrameMetrics
		bg         BackgroundModel
		wantPhrase string
	}{
		{
			"few stars",
			FrameMetrics{StarCount: 3, HFR: 2, SNR: 20},
			BackgroundModel{Level: 800},
			"Only 3 star(s) detected",
		},
		{
			"soft stars",
			FrameMetrics{StarCount: 10, HFR: 5.0, SNR: 20},
			BackgroundModel{Level: 800},
			"refocus recommended",
		},
		{
			"elongated stars",
			FrameMetrics{StarCount: 10, HFR: 2.0, SNR: 20, Eccentricity: 0.75},
			BackgroundModel{Level: 800},
			"check mount tracking",
		},
		{
			"high background",
			FrameMetrics{StarCount: 10, HFR: 2.0, SNR: 20},
			BackgroundModel{Level: 20000},
			"light pollution filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := AssessQuality(tt.metrics, tt.bg, AnalysisParams{})
			found := false
			for _, r := range q.Recommendations {
				if strings.Contains(r, tt.wantPhrase) {
					found = true
				}
			}
			if !found {
				t.Errorf("Recommendations = %v, want an entry containing %q", q.Recommendations, tt.wantPhrase)
			}
		})
	}
}

func TestAssessQualityDeterministic(t *testing.T) {
	metrics := FrameMetrics{StarCount: 7, HFR: 4.2, SNR: 12, Eccentricity: 0.7}
	bg := BackgroundModel{Level: 18000, SaturatedFraction: 0.1}

	a := AssessQuality(metrics, bg, AnalysisParams{})
	b := AssessQuality(metrics, bg, AnalysisParams{})

	if a.Score != b.Score {
		t.Errorf("scores differ across identical runs: %v vs %v", a.Score, b.Score)
	}
	if !reflect.DeepEqual(a.Recommendations, b.Recommendations) {
		t.Errorf("recommendation lists differ: %v vs %v", a.Recommendations, b.Recommendations)
	}
}
