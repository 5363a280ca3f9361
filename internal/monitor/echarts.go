package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/deepsky-data/starqc/internal/fsutil"
	"github.com/deepsky-data/starqc/internal/httputil"
	"github.com/deepsky-data/starqc/internal/security"
	"github.com/deepsky-data/starqc/internal/starfield"
)

// echartsAssetsPrefix is where rendered pages load the echarts runtime from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridisColors is the color ramp shared by the visual maps.
var viridisColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// chartResult resolves which stored analysis a chart request refers to:
// the 'id' query parameter when present, otherwise the latest.
func (ws *WebServer) chartResult(r *http.Request) *starfield.AnalysisResult {
	if id := r.URL.Query().Get("id"); id != "" {
		return ws.history.ByID(id)
	}
	return ws.history.Latest()
}

// buildStarMapChart plots the detected stars of one analysis in frame pixel
// coordinates, colored by flux.
func buildStarMapChart(res *starfield.AnalysisResult) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(res.Stars))
	maxX, maxY, maxFlux := 0.0, 0.0, 0.0
	for _, st := range res.Stars {
		if st.X > maxX {
			maxX = st.X
		}
		if st.Y > maxY {
			maxY = st.Y
		}
		if st.Flux > maxFlux {
			maxFlux = st.Flux
		}
		data = append(data, opts.ScatterData{Value: []interface{}{st.X, st.Y, st.Flux}})
	}

	// Pad the axes so edge stars stay visible
	padX := maxX * 1.05
	if padX == 0 {
		padX = 1.0
	}
	padY := maxY * 1.05
	if padY == 0 {
		padY = 1.0
	}
	if maxFlux == 0 {
		maxFlux = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Star Map", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Detected Stars", Subtitle: fmt.Sprintf("analysis=%s stars=%d hfr=%.2f", res.AnalysisID, len(res.Stars), res.Metrics.HFR)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: padX, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: padY, Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxFlux),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)

	scatter.AddSeries("stars", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}

// buildQualityPage lays out the scores and shape metrics of one analysis as
// two bar charts on a single page.
func buildQualityPage(res *starfield.AnalysisResult) *components.Page {
	scoreX := []string{"Quality score", "Focus score", "Focus confidence", "Star count"}
	scoreY := []opts.BarData{
		{Value: res.Quality.Score},
		{Value: res.Metrics.FocusScore},
		{Value: res.Focus.Confidence},
		{Value: res.Metrics.StarCount},
	}

	scoreBar := charts.NewBar()
	scoreBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Frame Assessment", Subtitle: fmt.Sprintf("analysis=%s %s", res.AnalysisID, res.Metrics.Timestamp.UTC().Format(time.RFC3339))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	scoreBar.SetXAxis(scoreX).
		AddSeries("assessment", scoreY,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	shapeX := []string{"HFR (px)", "FWHM (px)", "SNR", "Eccentricity"}
	shapeY := []opts.BarData{
		{Value: res.Metrics.HFR},
		{Value: res.Metrics.FWHM},
		{Value: res.Metrics.SNR},
		{Value: res.Metrics.Eccentricity},
	}

	shapeBar := charts.NewBar()
	shapeBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Star Shape Metrics", Subtitle: fmt.Sprintf("top %d stars", res.Metrics.StarCount)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	shapeBar.SetXAxis(shapeX).
		AddSeries("metrics", shapeY,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(scoreBar, shapeBar)
	return page
}

// buildHistoryChart draws HFR, star count, and quality score across stored
// analyses as line series. The input is newest first, as Recent returns it;
// the chart reads left to right in time order.
func buildHistoryChart(recent []*starfield.AnalysisResult) *charts.Line {
	x := make([]string, 0, len(recent))
	hfr := make([]opts.LineData, 0, len(recent))
	stars := make([]opts.LineData, 0, len(recent))
	score := make([]opts.LineData, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		res := recent[i]
		x = append(x, res.Metrics.Timestamp.UTC().Format("15:04:05"))
		hfr = append(hfr, opts.LineData{Value: res.Metrics.HFR})
		stars = append(stars, opts.LineData{Value: res.Metrics.StarCount})
		score = append(score, opts.LineData{Value: res.Quality.Score})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Analysis History", Theme: "dark", Width: "1200px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Analysis History", Subtitle: fmt.Sprintf("last %d analyses", len(recent))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("hfr", hfr).
		AddSeries("stars", stars).
		AddSeries("score", score)
	return line
}

// handleStarMapChart renders the star map for one analysis.
// Query params:
//
//	id (optional; defaults to the latest analysis)
func (ws *WebServer) handleStarMapChart(w http.ResponseWriter, r *http.Request) {
	res := ws.chartResult(r)
	if res == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no analysis available")
		return
	}
	if len(res.Stars) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "analysis recorded no stars")
		return
	}

	var buf bytes.Buffer
	if err := buildStarMapChart(res).Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// handleQualityChart renders the assessment page for one analysis.
// Query params:
//
//	id (optional; defaults to the latest analysis)
func (ws *WebServer) handleQualityChart(w http.ResponseWriter, r *http.Request) {
	res := ws.chartResult(r)
	if res == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "no analysis available")
		return
	}

	var buf bytes.Buffer
	if err := buildQualityPage(res).Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// handleHistoryChart renders the history line chart.
// Query params:
//
//	limit (optional, default 50)
func (ws *WebServer) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
		if limit <= 0 || limit > 500 {
			limit = 50
		}
	}

	recent := ws.history.Recent(limit)
	if len(recent) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no analysis available")
		return
	}

	var buf bytes.Buffer
	if err := buildHistoryChart(recent).Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render history chart: %v", err))
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// WriteCharts renders the star map and assessment page for one analysis as
// standalone HTML files under dir and returns the paths written. A nil fs
// selects the real filesystem. Analyses with no stars skip the star map.
func WriteCharts(fs fsutil.FileSystem, dir string, res *starfield.AnalysisResult) ([]string, error) {
	if res == nil {
		return nil, fmt.Errorf("no analysis to chart")
	}
	if dir == "" {
		return nil, fmt.Errorf("no output directory configured")
	}
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	id := security.SanitizeFilename(res.AnalysisID)
	var written []string

	if len(res.Stars) > 0 {
		path := filepath.Join(dir, fmt.Sprintf("starmap_%s.html", id))
		if err := renderChartFile(fs, path, buildStarMapChart(res)); err != nil {
			return written, fmt.Errorf("write star map: %w", err)
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, fmt.Sprintf("quality_%s.html", id))
	if err := renderChartFile(fs, path, buildQualityPage(res)); err != nil {
		return written, fmt.Errorf("write quality page: %w", err)
	}
	written = append(written, path)

	return written, nil
}

// chartRenderer is the render surface shared by go-echarts charts and pages.
type chartRenderer interface {
	Render(w io.Writer) error
}

// renderChartFile renders one chart into a file created through fs.
func renderChartFile(fs fsutil.FileSystem, path string, chart chartRenderer) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	if err := chart.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
