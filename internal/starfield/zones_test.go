package starfield

import (
	"math"
	"testing"
)

func TestAnalyzeZonesBinning(t *testing.T) {
	frame := uniformFrame(t, 300, 300, 100)
	stars := []Star{
		{X: 50, Y: 50, HFR: 2},
		{X: 250, Y: 50, HFR: 2},
		{X: 50, Y: 250, HFR: 2},
		{X: 150, Y: 150, HFR: 2},
		{X: 160, Y: 140, HFR: 2},
	}

	sum := AnalyzeZones(frame, stars)

	if sum.Zones[0][0].StarCount != 1 {
		t.Errorf("zone (0,0) StarCount = %d, want 1", sum.Zones[0][0].StarCount)
	}
	if sum.Zones[0][2].StarCount != 1 {
		t.Errorf("zone (0,2) StarCount = %d, want 1", sum.Zones[0][2].StarCount)
	}
	if sum.Zones[2][0].StarCount != 1 {
		t.Errorf("zone (2,0) StarCount = %d, want 1", sum.Zones[2][0].StarCount)
	}
	if sum.Zones[1][1].StarCount != 2 {
		t.Errorf("center zone StarCount = %d, want 2", sum.Zones[1][1].StarCount)
	}
	if sum.Zones[2][2].StarCount != 0 {
		t.Errorf("zone (2,2) StarCount = %d, want 0", sum.Zones[2][2].StarCount)
	}

	total := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			z := sum.Zones[r][c]
			if z.Row != r || z.Col != c {
				t.Errorf("zone (%d,%d) labeled (%d,%d)", r, c, z.Row, z.Col)
			}
			total += z.StarCount
		}
	}
	if total != len(stars) {
		t.Errorf("zones hold %d stars, want %d", total, len(stars))
	}
}

func TestAnalyzeZonesTiltRatio(t *testing.T) {
	frame := uniformFrame(t, 300, 300, 100)
	stars := []Star{
		{X: 150, Y: 150, HFR: 2.0},
		{X: 10, Y: 10, HFR: 3.0},
		{X: 290, Y: 10, HFR: 3.0},
		{X: 10, Y: 290, HFR: 3.0},
		{X: 290, Y: 290, HFR: 3.0},
	}

	sum := AnalyzeZones(frame, stars)

	if math.Abs(sum.CenterHFR-2.0) > 1e-9 {
		t.Errorf("CenterHFR = %v, want 2.0", sum.CenterHFR)
	}
	if math.Abs(sum.CornerHFR-3.0) > 1e-9 {
		t.Errorf("CornerHFR = %v, want 3.0", sum.CornerHFR)
	}
	if math.Abs(sum.TiltRatio-1.5) > 1e-9 {
		t.Errorf("TiltRatio = %v, want 1.5", sum.TiltRatio)
	}
}

func TestAnalyzeZonesMedians(t *testing.T) {
	frame := uniformFrame(t, 300, 300, 100)
	stars := []Star{
		{X: 150, Y: 150, HFR: 1.0, Eccentricity: 0.1},
		{X: 155, Y: 150, HFR: 5.0, Eccentricity: 0.9},
		{X: 145, Y: 150, HFR: 2.0, Eccentricity: 0.2},
	}

	sum := AnalyzeZones(frame, stars)
	center := sum.Zones[1][1]

	if math.Abs(center.MedianHFR-2.0) > 1e-9 {
		t.Errorf("center MedianHFR = %v, want 2.0", center.MedianHFR)
	}
	if math.Abs(center.MedianEccentricity-0.2) > 1e-9 {
		t.Errorf("center MedianEccentricity = %v, want 0.2", center.MedianEccentricity)
	}
}

func TestAnalyzeZonesNoStars(t *testing.T) {
	sum := AnalyzeZones(uniformFrame(t, 90, 90, 100), nil)

	if sum.CenterHFR != 0 || sum.CornerHFR != 0 || sum.TiltRatio != 0 {
		t.Errorf("empty summary = (%v, %v, %v), want all zero",
			sum.CenterHFR, sum.CornerHFR, sum.TiltRatio)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if sum.Zones[r][c].StarCount != 0 {
				t.Errorf("zone (%d,%d) StarCount = %d, want 0", r, c, sum.Zones[r][c].StarCount)
			}
		}
	}
}

func TestGridIndex(t *testing.T) {
	tests := []struct {
		v, extent float64
		want      int
	}{
		{0, 300, 0},
		{99.9, 300, 0},
		{100, 300, 1},
		{299, 300, 2},
		{300, 300, 2},
		{-1, 300, 0},
	}
	for _, tt := range tests {
		if got := gridIndex(tt.v, tt.extent); got != tt.want {
			t.Errorf("gridIndex(%v, %v) = %d, want %d", tt.v, tt.extent, got, tt.want)
		}
	}
}
