package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepsky-data/starqc/internal/frameio"
	"github.com/deepsky-data/starqc/internal/starfield"
	"github.com/deepsky-data/starqc/internal/units"
)

// reportOptions controls rendering of the text report.
type reportOptions struct {
	// Units selects px or arcsec for star sizes.
	Units string
	// ArcsecPerPx converts sizes when Units is arcsec; 0 means the plate
	// scale is unknown and sizes stay in pixels.
	ArcsecPerPx float64
	// TopStars bounds the per-star table.
	TopStars int
}

// sizeUnit returns the effective size unit and scale after falling back to
// pixels when no plate scale is available.
func (o reportOptions) sizeUnit() (string, float64) {
	if o.Units == units.Arcsec && o.ArcsecPerPx > 0 {
		return units.Arcsec, o.ArcsecPerPx
	}
	return units.Pixels, 1
}

// printReport renders the human-readable analysis report for one frame.
func printReport(w io.Writer, source string, res *starfield.AnalysisResult, meta *frameio.Metadata, zones *starfield.ZoneSummary, opts reportOptions) {
	unit, scale := opts.sizeUnit()
	m := res.Metrics

	fmt.Fprintln(w, "\n========== Frame Analysis Summary ==========")
	fmt.Fprintf(w, "File: %s\n", source)
	if line := metadataLine(meta); line != "" {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Analysis: %s\n", res.AnalysisID)
	fmt.Fprintf(w, "Processing time: %.1f ms\n", float64(res.Timing.TotalMicros)/1000)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Stars: %d measured (%d seeds, %d merged, %d rejected)\n",
		m.StarCount, res.Detector.Seeds, res.Detector.Merged,
		res.Detector.ZeroFlux+res.Detector.OutOfBounds+res.Detector.Truncated+res.Detector.Unmeasurable)
	fmt.Fprintf(w, "Background: level %.1f ADU, noise %.1f ADU\n",
		res.Background.Level, res.Background.NoiseSigma)
	fmt.Fprintf(w, "Peak: %d (%.1f%% of full scale, %.2f%% saturated)\n",
		m.PeakValue, 100*float64(m.PeakValue)/starfield.FullScale, 100*res.Background.SaturatedFraction)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "HFR: %.2f %s    FWHM: %.2f %s\n", m.HFR*scale, unit, m.FWHM*scale, unit)
	fmt.Fprintf(w, "SNR: %.1f    Eccentricity: %.2f\n", m.SNR, m.Eccentricity)
	if opts.Units == units.Arcsec && opts.ArcsecPerPx > 0 {
		fmt.Fprintf(w, "Plate scale: %.2f arcsec/px\n", opts.ArcsecPerPx)
	} else if opts.Units == units.Arcsec {
		fmt.Fprintln(w, "Plate scale unknown (no optics metadata); sizes in px")
	}

	printStarTable(w, res.Stars, opts.TopStars, unit, scale)

	fmt.Fprintln(w)
	if res.Focus.IsInFocus {
		fmt.Fprintf(w, "Focus: IN FOCUS (score %.0f, confidence %.0f%%)\n", m.FocusScore, res.Focus.Confidence)
	} else {
		fmt.Fprintf(w, "Focus: OUT OF FOCUS (score %.0f, confidence %.0f%%)\n", m.FocusScore, res.Focus.Confidence)
	}
	if res.Focus.Recommendation != "" {
		fmt.Fprintf(w, "  %s\n", res.Focus.Recommendation)
	}

	fmt.Fprintf(w, "Quality score: %.0f/100\n", res.Quality.Score)
	if len(res.Quality.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range res.Quality.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}

	if zones != nil {
		printZoneTable(w, zones, unit, scale)
	}

	fmt.Fprintln(w, "=============================================")
}

// metadataLine condenses the interesting FITS keywords into one line, or
// returns "" when nothing useful is present.
func metadataLine(meta *frameio.Metadata) string {
	if meta == nil {
		return ""
	}
	var parts []string
	if obj := meta.ObjectName(); obj != "" {
		parts = append(parts, "Object: "+obj)
	}
	if filter := meta.Filter(); filter != "" {
		parts = append(parts, "Filter: "+filter)
	}
	if exp, ok := meta.ExposureTime(); ok {
		parts = append(parts, fmt.Sprintf("Exposure: %.1fs", exp))
	}
	if cam := meta.CameraName(); cam != "" {
		parts = append(parts, "Camera: "+cam)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " | ")
}

// printStarTable lists the brightest stars, one measurement row each.
func printStarTable(w io.Writer, stars []starfield.Star, topN int, unit string, scale float64) {
	if len(stars) == 0 {
		return
	}
	n := topN
	if n <= 0 {
		n = 10
	}
	if n > len(stars) {
		n = len(stars)
	}

	fmt.Fprintf(w, "\nTop %d stars (%s):\n", n, unit)
	fmt.Fprintf(w, "  %3s  %8s  %8s  %12s  %7s  %6s  %6s  %5s\n",
		"#", "X", "Y", "Flux", "SNR", "HFR", "FWHM", "Ecc")
	for i := 0; i < n; i++ {
		s := stars[i]
		fmt.Fprintf(w, "  %3d  %8.1f  %8.1f  %12.0f  %7.1f  %6.2f  %6.2f  %5.2f\n",
			i+1, s.X, s.Y, s.Flux, s.SNR, s.HFR*scale, s.FWHM*scale, s.Eccentricity)
	}
}

// printZoneTable renders the 3x3 zone sharpness grid with the tilt ratio.
func printZoneTable(w io.Writer, zones *starfield.ZoneSummary, unit string, scale float64) {
	fmt.Fprintf(w, "\nZone sharpness (median HFR in %s / star count):\n", unit)
	for r := 0; r < 3; r++ {
		fmt.Fprint(w, " ")
		for c := 0; c < 3; c++ {
			z := zones.Zones[r][c]
			if z.StarCount == 0 {
				fmt.Fprintf(w, "  %11s", "-")
				continue
			}
			fmt.Fprintf(w, "  %6.2f (%2d)", z.MedianHFR*scale, z.StarCount)
		}
		fmt.Fprintln(w)
	}
	if zones.TiltRatio > 0 {
		fmt.Fprintf(w, "Corner/center HFR ratio: %.2f\n", zones.TiltRatio)
	}
}
