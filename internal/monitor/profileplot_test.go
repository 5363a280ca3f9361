package monitor

import (
	"bytes"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/deepsky-data/starqc/internal/fsutil"
	"github.com/deepsky-data/starqc/internal/starfield"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestProfilePlotter_WritePlots(t *testing.T) {
	frame := syntheticFrame()
	analyzer := starfield.NewAnalyzer(starfield.AnalysisParams{})
	res, err := analyzer.AnalyzeFrame(frame)
	if err != nil {
		t.Fatalf("failed to analyze synthetic frame: %v", err)
	}
	if len(res.Stars) == 0 {
		t.Fatal("synthetic frame produced no stars to plot")
	}

	memFS := fsutil.NewMemoryFileSystem()
	plotter := NewProfilePlotter(ProfilePlotterConfig{
		FS:        memFS,
		OutputDir: "plots",
		TopStars:  4,
		Radius:    6,
	})

	written, err := plotter.WritePlots(frame, res)
	if err != nil {
		t.Fatalf("WritePlots failed: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("WritePlots wrote %d files, want %d", len(written), 2)
	}

	for _, path := range written {
		if !memFS.Exists(path) {
			t.Errorf("plot file %s does not exist", path)
			continue
		}
		data, err := memFS.ReadFile(path)
		if err != nil {
			t.Errorf("failed to read plot file %s: %v", path, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("plot file %s is empty", path)
		}
		if !bytes.HasPrefix(data, pngMagic) {
			t.Errorf("plot file %s is not a PNG", path)
		}
	}

	// File names carry the analysis id
	for _, path := range written {
		if !strings.Contains(path, res.AnalysisID) {
			t.Errorf("plot file %s should contain analysis id %s", path, res.AnalysisID)
		}
	}
}

func TestProfilePlotter_NoOutputDir(t *testing.T) {
	plotter := NewProfilePlotter(ProfilePlotterConfig{FS: fsutil.NewMemoryFileSystem()})

	_, err := plotter.WritePlots(syntheticFrame(), &starfield.AnalysisResult{})
	if err == nil {
		t.Fatal("WritePlots without an output directory should fail")
	}
	if !strings.Contains(err.Error(), "no output directory") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProfilePlotter_NoStars(t *testing.T) {
	analyzer := starfield.NewAnalyzer(starfield.AnalysisParams{})
	flat := starfield.NewFieldCanvas(128, 128, 800).Frame()
	res, err := analyzer.AnalyzeFrame(flat)
	if err != nil {
		t.Fatalf("failed to analyze flat frame: %v", err)
	}

	memFS := fsutil.NewMemoryFileSystem()
	plotter := NewProfilePlotter(ProfilePlotterConfig{FS: memFS, OutputDir: "plots"})

	written, err := plotter.WritePlots(flat, res)
	if err != nil {
		t.Fatalf("WritePlots on a starless frame failed: %v", err)
	}
	if len(written) != 0 {
		t.Errorf("starless frame wrote %d files, want %d", len(written), 0)
	}
}

func TestGenerateColors(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{0, 0},
		{1, 1},
		{5, 5},
		{10, 10},
		{100, 100},
	}

	for _, tt := range tests {
		colors := generateColors(tt.n)
		if len(colors) != tt.expected {
			t.Errorf("generateColors(%d): expected %d colours, got %d", tt.n, tt.expected, len(colors))
		}
	}

	// Verify colours are valid RGBA
	colors := generateColors(5)
	for i, c := range colors {
		rgba, ok := c.(color.RGBA)
		if !ok {
			t.Errorf("colour %d: expected color.RGBA, got %T", i, c)
			continue
		}
		if rgba.A != 255 {
			t.Errorf("colour %d: expected alpha 255, got %d", i, rgba.A)
		}
	}
}

func TestGenerateColors_Distinct(t *testing.T) {
	colors := generateColors(6)
	if len(colors) != 6 {
		t.Fatalf("expected 6 colours, got %d", len(colors))
	}

	seen := make(map[uint32]bool)
	for _, c := range colors {
		rgba := c.(color.RGBA)
		key := uint32(rgba.R)<<16 | uint32(rgba.G)<<8 | uint32(rgba.B)
		if seen[key] {
			t.Error("duplicate colour found in generated palette")
		}
		seen[key] = true
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	got := FormatTimestamp(ts)
	want := "20260314_092653"
	if got != want {
		t.Errorf("FormatTimestamp: got %v want %v", got, want)
	}
}

func TestMakePlotOutputDir(t *testing.T) {
	dir := MakePlotOutputDir("plots", "M42 session/light 001.fits")
	if !strings.HasPrefix(dir, "plots") {
		t.Errorf("output dir %s should be under the base directory", dir)
	}
	if !strings.Contains(dir, "light_001") {
		t.Errorf("output dir %s should contain the sanitized frame name", dir)
	}

	dir = MakePlotOutputDir("plots", "")
	if !strings.Contains(dir, "run_") {
		t.Errorf("output dir %s should fall back to a run directory", dir)
	}
}
