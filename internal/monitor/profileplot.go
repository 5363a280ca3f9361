package monitor

import (
	"fmt"
	"image/color"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/deepsky-data/starqc/internal/fsutil"
	"github.com/deepsky-data/starqc/internal/security"
	"github.com/deepsky-data/starqc/internal/starfield"
)

// ProfilePlotter writes diagnostic PNG plots for an analysis: the radial
// intensity profiles of the brightest stars and their per-star shape
// measurements. Plots go through a FileSystem so tests can capture them
// in memory.
type ProfilePlotter struct {
	fs        fsutil.FileSystem
	outputDir string
	topStars  int
	radius    int
}

// ProfilePlotterConfig contains configuration options for the plotter.
type ProfilePlotterConfig struct {
	// FS receives the PNG files; nil selects the real filesystem.
	FS fsutil.FileSystem
	// OutputDir is created if missing.
	OutputDir string
	// TopStars is how many of the brightest stars are profiled. Default 8.
	TopStars int
	// Radius is the profile extent in pixels. Default 8.
	Radius int
}

// NewProfilePlotter creates a plotter with the provided configuration.
func NewProfilePlotter(config ProfilePlotterConfig) *ProfilePlotter {
	fs := config.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	topStars := config.TopStars
	if topStars <= 0 {
		topStars = 8
	}
	radius := config.Radius
	if radius <= 0 {
		radius = 8
	}
	return &ProfilePlotter{
		fs:        fs,
		outputDir: config.OutputDir,
		topStars:  topStars,
		radius:    radius,
	}
}

// WritePlots renders the plots for one analyzed frame and returns the paths
// written. An analysis with no stars produces no files and no error.
func (pp *ProfilePlotter) WritePlots(frame *starfield.Frame, res *starfield.AnalysisResult) ([]string, error) {
	if pp.outputDir == "" {
		return nil, fmt.Errorf("no output directory configured")
	}
	if frame == nil || res == nil || len(res.Stars) == 0 {
		return nil, nil
	}
	if err := pp.fs.MkdirAll(pp.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	n := pp.topStars
	if n > len(res.Stars) {
		n = len(res.Stars)
	}

	var written []string

	profilePath := filepath.Join(pp.outputDir, fmt.Sprintf("radial_profiles_%s.png", security.SanitizeFilename(res.AnalysisID)))
	if err := pp.writeProfilePlot(profilePath, frame, res, n); err != nil {
		return written, err
	}
	written = append(written, profilePath)

	metricsPath := filepath.Join(pp.outputDir, fmt.Sprintf("star_metrics_%s.png", security.SanitizeFilename(res.AnalysisID)))
	if err := pp.writeMetricsPlot(metricsPath, res); err != nil {
		return written, err
	}
	written = append(written, metricsPath)

	return written, nil
}

// writeProfilePlot draws one line per star: radially averaged intensity
// against shell radius.
func (pp *ProfilePlotter) writeProfilePlot(path string, frame *starfield.Frame, res *starfield.AnalysisResult, n int) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Radial Profiles - Top %d Stars", n)
	p.X.Label.Text = "Radius (px)"
	p.Y.Label.Text = "Intensity (ADU)"

	colors := generateColors(n)
	for i := 0; i < n; i++ {
		st := res.Stars[i]
		profile := starfield.RadialProfile(frame, st, res.Background, pp.radius)
		if len(profile) == 0 {
			continue
		}

		pts := make(plotter.XYs, 0, len(profile))
		for _, sh := range profile {
			pts = append(pts, plotter.XY{X: sh.Radius, Y: sh.Intensity})
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("star %d (hfr %.2f)", i+1, st.HFR), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := pp.savePlot(p, path, 8*vg.Inch, 5*vg.Inch); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}

// writeMetricsPlot draws HFR and FWHM against star rank (brightest first).
func (pp *ProfilePlotter) writeMetricsPlot(path string, res *starfield.AnalysisResult) error {
	p := plot.New()
	p.Title.Text = "Star Shape by Brightness Rank"
	p.X.Label.Text = "Rank"
	p.Y.Label.Text = "Size (px)"

	hfrPts := make(plotter.XYs, 0, len(res.Stars))
	fwhmPts := make(plotter.XYs, 0, len(res.Stars))
	for i, st := range res.Stars {
		hfrPts = append(hfrPts, plotter.XY{X: float64(i + 1), Y: st.HFR})
		fwhmPts = append(fwhmPts, plotter.XY{X: float64(i + 1), Y: st.FWHM})
	}

	hfrLine, err := plotter.NewLine(hfrPts)
	if err != nil {
		return err
	}
	hfrLine.Color = color.RGBA{R: 230, G: 120, B: 40, A: 255}
	hfrLine.Width = vg.Points(1)
	p.Add(hfrLine)
	p.Legend.Add("hfr", hfrLine)

	fwhmLine, err := plotter.NewLine(fwhmPts)
	if err != nil {
		return err
	}
	fwhmLine.Color = color.RGBA{R: 60, G: 130, B: 220, A: 255}
	fwhmLine.Width = vg.Points(1)
	p.Add(fwhmLine)
	p.Legend.Add("fwhm", fwhmLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := pp.savePlot(p, path, 8*vg.Inch, 5*vg.Inch); err != nil {
		return fmt.Errorf("save metrics plot: %w", err)
	}
	return nil
}

// savePlot renders the plot to PNG through the configured filesystem.
func (pp *ProfilePlotter) savePlot(p *plot.Plot, path string, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	f, err := pp.fs.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// generateColors creates a palette of distinct colors for star lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir builds a timestamped output directory for one frame's
// plots: <baseDir>/<frame basename>/<timestamp>, or <baseDir>/run_<timestamp>
// when no frame file is named.
func MakePlotOutputDir(baseDir, frameFile string) string {
	ts := FormatTimestamp(time.Now())
	if frameFile != "" {
		base := filepath.Base(frameFile)
		ext := filepath.Ext(base)
		name := base[:len(base)-len(ext)]
		return filepath.Join(baseDir, security.SanitizeFilename(name), ts)
	}
	return filepath.Join(baseDir, "run_"+ts)
}
