// Package monitor provides the HTTP interface for frame analysis: JSON
// endpoints for running and inspecting analyses, chart pages for visual
// review, and diagnostic plot generation.
package monitor

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/deepsky-data/starqc/internal/frameio"
	"github.com/deepsky-data/starqc/internal/httputil"
	"github.com/deepsky-data/starqc/internal/security"
	"github.com/deepsky-data/starqc/internal/starfield"
)

// WebServer handles the HTTP interface for the analysis engine. It keeps a
// bounded in-memory history of results so charts and the API can inspect
// recent frames without external storage.
type WebServer struct {
	address   string
	analyzer  *starfield.Analyzer
	framesDir string
	history   *AnalysisHistory
	version   string
	server    *http.Server
	startTime time.Time
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	// Address is the listen address, e.g. ":8087".
	Address string
	// Params configures the analyzer shared by all requests.
	Params starfield.AnalysisParams
	// FramesDir is the only directory /api/analyze may read frames from.
	// Empty disables the endpoint.
	FramesDir string
	// HistorySize bounds the in-memory result history; <= 0 selects
	// DefaultHistoryCapacity.
	HistorySize int
	// Version is reported by the status page and health endpoint.
	Version string
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		analyzer:  starfield.NewAnalyzer(config.Params),
		framesDir: config.FramesDir,
		history:   NewAnalysisHistory(config.HistorySize),
		version:   config.Version,
		startTime: time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// History exposes the result history so callers can seed or inspect it.
func (ws *WebServer) History() *AnalysisHistory { return ws.history }

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	// Create a shutdown context with a shorter timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// Close shuts down the web server.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/analyses", ws.handleAnalyses)
	mux.HandleFunc("/api/analysis", ws.handleAnalysis)
	mux.HandleFunc("/api/analyze", ws.handleAnalyze)
	mux.HandleFunc("/api/params", ws.handleParams)
	mux.HandleFunc("/charts/starmap", ws.handleStarMapChart)
	mux.HandleFunc("/charts/quality", ws.handleQualityChart)
	mux.HandleFunc("/charts/history", ws.handleHistoryChart)

	return mux
}

// AnalysisSummary is the compact per-result row returned by /api/analyses
// and rendered on the status page.
type AnalysisSummary struct {
	AnalysisID   string  `json:"analysis_id"`
	Timestamp    string  `json:"timestamp"`
	StarCount    int     `json:"star_count"`
	HFR          float64 `json:"hfr"`
	FWHM         float64 `json:"fwhm"`
	SNR          float64 `json:"snr"`
	Eccentricity float64 `json:"eccentricity"`
	FocusScore   float64 `json:"focus_score"`
	QualityScore float64 `json:"quality_score"`
	InFocus      bool    `json:"in_focus"`
}

func newAnalysisSummary(res *starfield.AnalysisResult) AnalysisSummary {
	return AnalysisSummary{
		AnalysisID:   res.AnalysisID,
		Timestamp:    res.Metrics.Timestamp.UTC().Format(time.RFC3339),
		StarCount:    res.Metrics.StarCount,
		HFR:          res.Metrics.HFR,
		FWHM:         res.Metrics.FWHM,
		SNR:          res.Metrics.SNR,
		Eccentricity: res.Metrics.Eccentricity,
		FocusScore:   res.Metrics.FocusScore,
		QualityScore: res.Quality.Score,
		InFocus:      res.Focus.IsInFocus,
	}
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "starqc", "version": "%s", "timestamp": "%s"}`,
		ws.version, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus handles the main status page endpoint.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	analyzeStatus := "disabled (no frames directory configured)"
	if ws.framesDir != "" {
		analyzeStatus = fmt.Sprintf("enabled (%s)", ws.framesDir)
	}

	recent := ws.history.Recent(10)
	summaries := make([]AnalysisSummary, 0, len(recent))
	for _, res := range recent {
		summaries = append(summaries, newAnalysisSummary(res))
	}

	tmpl, err := template.New("status").Parse(statusPageHTML)
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		Version       string
		HTTPAddress   string
		AnalyzeStatus string
		Uptime        string
		Count         int
		Analyses      []AnalysisSummary
	}{
		Version:       ws.version,
		HTTPAddress:   ws.address,
		AnalyzeStatus: analyzeStatus,
		Uptime:        time.Since(ws.startTime).Round(time.Second).String(),
		Count:         ws.history.Len(),
		Analyses:      summaries,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleAnalyses returns a JSON array of summaries for the most recent
// analyses.
// Query params:
//
//	limit (optional, default 10)
func (ws *WebServer) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
		if limit <= 0 || limit > 100 {
			limit = 10
		}
	}

	recent := ws.history.Recent(limit)
	summaries := make([]AnalysisSummary, 0, len(recent))
	for _, res := range recent {
		summaries = append(summaries, newAnalysisSummary(res))
	}
	httputil.WriteJSONOK(w, summaries)
}

// handleAnalysis returns the full stored result for one analysis ID.
// Query params:
//
//	id (required)
func (ws *WebServer) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "missing 'id' parameter")
		return
	}
	res := ws.history.ByID(id)
	if res == nil {
		httputil.NotFound(w, fmt.Sprintf("no analysis with id '%s'", id))
		return
	}
	httputil.WriteJSONOK(w, res)
}

// handleAnalyze loads a frame from the configured frames directory, runs
// the full pipeline on it, records the result, and returns it.
// Query params:
//
//	path (required) - frame file path relative to the frames directory
func (ws *WebServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	rel := r.URL.Query().Get("path")
	if rel == "" {
		httputil.BadRequest(w, "missing 'path' parameter")
		return
	}
	if ws.framesDir == "" {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no frames directory configured")
		return
	}

	full := filepath.Join(ws.framesDir, rel)
	if err := security.ValidatePathWithinDirectory(full, ws.framesDir); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid frame path: %v", err))
		return
	}

	frame, _, err := frameio.Load(full)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("load frame: %v", err))
		return
	}

	res, err := ws.analyzer.AnalyzeFrame(frame)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("analyze frame: %v", err))
		return
	}
	ws.history.Add(res)
	log.Printf("Analyzed %s: %d stars, HFR %.2f, score %.0f",
		rel, res.Metrics.StarCount, res.Metrics.HFR, res.Quality.Score)
	httputil.WriteJSONOK(w, res)
}

// handleParams reports the analyzer parameter set in effect.
func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	p := ws.analyzer.Params()
	httputil.WriteJSONOK(w, paramsResponse{
		DetectionSigmaMultiplier:  p.DetectionSigmaMultiplier,
		MinStarSeparationPx:       p.MinStarSeparationPx,
		ApertureRadiusPx:          p.ApertureRadiusPx,
		MaxCandidateStars:         p.MaxCandidateStars,
		FocusHFRThreshold:         p.FocusHFRThreshold,
		SaturationFraction:        p.SaturationFraction,
		TopNForAggregates:         p.TopNForAggregates,
		MinStarsForFocus:          p.MinStarsForFocus,
		NoiseClipSigma:            p.NoiseClipSigma,
		MaxClipIterations:         p.MaxClipIterations,
		BackgroundStrideThreshold: p.BackgroundStrideThreshold,
		BackgroundSampleStride:    p.BackgroundSampleStride,
		SaturationLevelFraction:   p.SaturationLevelFraction,
		EnableDiagnostics:         p.EnableDiagnostics,
	})
}

// paramsResponse mirrors starfield.AnalysisParams with wire-format names.
type paramsResponse struct {
	DetectionSigmaMultiplier  float64 `json:"detection_sigma"`
	MinStarSeparationPx       int     `json:"min_star_separation_px"`
	ApertureRadiusPx          int     `json:"aperture_radius_px"`
	MaxCandidateStars         int     `json:"max_stars"`
	FocusHFRThreshold         float64 `json:"focus_hfr_threshold"`
	SaturationFraction        float64 `json:"saturation_fraction"`
	TopNForAggregates         int     `json:"top_n_for_aggregates"`
	MinStarsForFocus          int     `json:"min_stars_for_focus"`
	NoiseClipSigma            float64 `json:"noise_clip_sigma"`
	MaxClipIterations         int     `json:"max_clip_iterations"`
	BackgroundStrideThreshold int     `json:"background_stride_threshold"`
	BackgroundSampleStride    int     `json:"background_sample_stride"`
	SaturationLevelFraction   float64 `json:"saturation_level_fraction"`
	EnableDiagnostics         bool    `json:"enable_diagnostics"`
}

const statusPageHTML = `<!DOCTYPE html>
<html>
<head>
<title>Star Field Analysis Monitor</title>
<style>
body { font-family: monospace; background: #1e1e1e; color: #d4d4d4; margin: 2em; }
h1 { color: #4ec9b0; }
a { color: #9cdcfe; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #3c3c3c; padding: 4px 10px; text-align: right; }
th { background: #252526; }
td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>Star Field Analysis Monitor</h1>
<p>Version: {{.Version}} | Listening on {{.HTTPAddress}} | Uptime: {{.Uptime}}</p>
<p>Frame analysis: {{.AnalyzeStatus}}</p>
<p>
<a href="/charts/starmap">Star map</a> |
<a href="/charts/quality">Quality</a> |
<a href="/charts/history">History</a> |
<a href="/api/analyses">API</a>
</p>
<p>{{.Count}} analyses recorded</p>
{{if .Analyses}}
<table>
<tr><th>ID</th><th>Time</th><th>Stars</th><th>HFR</th><th>FWHM</th><th>SNR</th><th>Focus</th><th>Score</th></tr>
{{range .Analyses}}
<tr>
<td><a href="/api/analysis?id={{.AnalysisID}}">{{.AnalysisID}}</a></td>
<td>{{.Timestamp}}</td>
<td>{{.StarCount}}</td>
<td>{{printf "%.2f" .HFR}}</td>
<td>{{printf "%.2f" .FWHM}}</td>
<td>{{printf "%.1f" .SNR}}</td>
<td>{{printf "%.0f" .FocusScore}}</td>
<td>{{printf "%.0f" .QualityScore}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`
