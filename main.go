// Package main provides the starqc command: star detection and image
// quality analysis for astrophotography frames. It analyzes FITS/PGM/PNG
// frames (or synthetic fields) through the full pipeline and prints a
// quality report, exports JSON, writes diagnostic plots and charts, or
// serves the HTTP monitor.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deepsky-data/starqc/internal/config"
	"github.com/deepsky-data/starqc/internal/frameio"
	"github.com/deepsky-data/starqc/internal/monitor"
	"github.com/deepsky-data/starqc/internal/starfield"
	"github.com/deepsky-data/starqc/internal/units"
	"github.com/deepsky-data/starqc/internal/version"
)

// Config holds configuration for one starqc invocation.
type Config struct {
	ConfigPath string
	OutputJSON bool
	Units      string
	ShowZones  bool
	PlotsDir   string
	ChartsDir  string
	TopStars   int

	Synthetic bool
	Seed      int64

	Serve     bool
	Listen    string
	FramesDir string

	Diagnostics bool
	ShowVersion bool
}

// Main
func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}

	if !units.IsValid(cfg.Units) {
		fmt.Fprintf(os.Stderr, "Error: invalid units %q (valid: %s)\n", cfg.Units, units.GetValidUnitsString())
		os.Exit(1)
	}

	params, tuning, err := loadParams(cfg)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Diagnostics {
		params.EnableDiagnostics = true
	}

	if cfg.Serve {
		runServer(cfg, params)
		return
	}

	frames := flag.Args()
	if !cfg.Synthetic && len(frames) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one frame file is required (or -synthetic)")
		flag.Usage()
		os.Exit(1)
	}

	analyzer := starfield.NewAnalyzer(params)

	if cfg.Synthetic {
		gen := starfield.NewFieldGenerator(starfield.FieldParams{Seed: cfg.Seed})
		source := fmt.Sprintf("synthetic field (seed %d)", cfg.Seed)
		if _, err := processFrame(os.Stdout, analyzer, gen.Generate(), nil, source, cfg, tuning); err != nil {
			log.Fatalf("Failed to analyze %s: %v", source, err)
		}
	}

	for _, path := range frames {
		frame, meta, err := frameio.Load(path)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", path, err)
		}
		if _, err := processFrame(os.Stdout, analyzer, frame, meta, path, cfg, tuning); err != nil {
			log.Fatalf("Failed to analyze %s: %v", path, err)
		}
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to tuning configuration JSON (default: built-in parameters)")
	flag.BoolVar(&cfg.OutputJSON, "json", false, "Print the full analysis result as JSON instead of a report")
	flag.StringVar(&cfg.Units, "units", units.Pixels, "Units for star sizes in the report (px, arcsec)")
	flag.BoolVar(&cfg.ShowZones, "zones", false, "Include the 3x3 zone sharpness table in the report")
	flag.StringVar(&cfg.PlotsDir, "plots", "", "Directory to write radial profile PNGs (default: no plots)")
	flag.StringVar(&cfg.ChartsDir, "charts", "", "Directory to write HTML charts (default: no charts)")
	flag.IntVar(&cfg.TopStars, "top", 10, "Number of stars to list in the report and profile plots")

	flag.BoolVar(&cfg.Synthetic, "synthetic", false, "Analyze a generated synthetic star field instead of files")
	flag.Int64Var(&cfg.Seed, "seed", 0, "Random seed for the synthetic field (0 seeds from the clock)")

	flag.BoolVar(&cfg.Serve, "serve", false, "Run the HTTP monitor server instead of a one-shot analysis")
	flag.StringVar(&cfg.Listen, "listen", ":8087", "HTTP listen address for -serve")
	flag.StringVar(&cfg.FramesDir, "frames-dir", "", "Directory the server may analyze frames from (empty disables /api/analyze)")

	flag.BoolVar(&cfg.Diagnostics, "diag", false, "Enable per-stage diagnostic logging")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] frame...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Star detection and image quality analysis for astrophotography frames.\n\n")
		fmt.Fprintf(os.Stderr, "Each frame runs through the full pipeline:\n")
		fmt.Fprintf(os.Stderr, "  1. Estimate sky background with kappa-sigma clipping\n")
		fmt.Fprintf(os.Stderr, "  2. Detect star candidates above the noise floor\n")
		fmt.Fprintf(os.Stderr, "  3. Measure each star (flux, HFR, FWHM, SNR, eccentricity)\n")
		fmt.Fprintf(os.Stderr, "  4. Aggregate to frame metrics\n")
		fmt.Fprintf(os.Stderr, "  5. Judge focus and suggest a focuser move\n")
		fmt.Fprintf(os.Stderr, "  6. Score overall quality with recommendations\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s light_001.fits\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -units arcsec -zones light_001.fits\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -json -plots ./plots light_*.fits\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -synthetic -seed 7 -charts ./charts\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -serve -listen :8087 -frames-dir ./captures\n", os.Args[0])
	}

	flag.Parse()
	return cfg
}

// loadParams resolves engine parameters: the tuning file when -config is
// given, built-in defaults otherwise.
func loadParams(cfg Config) (starfield.AnalysisParams, *config.TuningConfig, error) {
	if cfg.ConfigPath == "" {
		return starfield.AnalysisParams{}, nil, nil
	}
	tuning, err := config.LoadTuningConfig(cfg.ConfigPath)
	if err != nil {
		return starfield.AnalysisParams{}, nil, err
	}
	return tuning.ToAnalysisParams(), tuning, nil
}

// resolvePlateScale returns arcseconds per pixel for the frame, preferring
// the frame's own FITS optics keywords over the tuning configuration.
// Returns 0 when neither source describes the optics.
func resolvePlateScale(meta *frameio.Metadata, tuning *config.TuningConfig) float64 {
	if meta != nil {
		if focal, ok := meta.FocalLength(); ok {
			if pixel, ok := meta.PixelSize(); ok {
				if scale := units.PlateScale(focal, pixel); scale > 0 {
					return scale
				}
			}
		}
	}
	if tuning != nil {
		return units.PlateScale(tuning.GetFocalLengthMM(), tuning.GetPixelSizeUM())
	}
	return 0
}

// processFrame runs the pipeline on one frame and emits every requested
// output: report or JSON on w, profile PNGs, and HTML charts.
func processFrame(w io.Writer, analyzer *starfield.Analyzer, frame *starfield.Frame, meta *frameio.Metadata, source string, cfg Config, tuning *config.TuningConfig) (*starfield.AnalysisResult, error) {
	res, err := analyzer.AnalyzeFrame(frame)
	if err != nil {
		return nil, err
	}

	if cfg.OutputJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("JSON marshal: %w", err)
		}
		fmt.Fprintln(w, string(data))
	} else {
		opts := reportOptions{
			Units:       cfg.Units,
			ArcsecPerPx: resolvePlateScale(meta, tuning),
			TopStars:    cfg.TopStars,
		}
		var zones *starfield.ZoneSummary
		if cfg.ShowZones {
			z := starfield.AnalyzeZones(frame, res.Stars)
			zones = &z
		}
		printReport(w, source, res, meta, zones, opts)
	}

	if cfg.PlotsDir != "" {
		plotter := monitor.NewProfilePlotter(monitor.ProfilePlotterConfig{
			OutputDir: monitor.MakePlotOutputDir(cfg.PlotsDir, source),
			TopStars:  cfg.TopStars,
		})
		written, err := plotter.WritePlots(frame, res)
		if err != nil {
			return nil, fmt.Errorf("write plots: %w", err)
		}
		for _, p := range written {
			log.Printf("Wrote plot %s", p)
		}
	}

	if cfg.ChartsDir != "" {
		written, err := monitor.WriteCharts(nil, cfg.ChartsDir, res)
		if err != nil {
			return nil, fmt.Errorf("write charts: %w", err)
		}
		for _, p := range written {
			log.Printf("Wrote chart %s", p)
		}
	}

	return res, nil
}

// runServer runs the HTTP monitor until SIGINT or SIGTERM.
func runServer(cfg Config, params starfield.AnalysisParams) {
	server := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   cfg.Listen,
		Params:    params,
		FramesDir: cfg.FramesDir,
		Version:   version.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
