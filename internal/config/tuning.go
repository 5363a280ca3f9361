package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepsky-data/starqc/internal/starfield"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/analysis.defaults.json"

// TuningConfig represents the root configuration for analysis tuning
// parameters. The schema matches the /api/params endpoint so the same
// JSON can be used for both startup configuration and inspection.
type TuningConfig struct {
	// Detection params
	DetectionSigma      *float64 `json:"detection_sigma,omitempty"`
	MinStarSeparationPx *int     `json:"min_star_separation_px,omitempty"`
	ApertureRadiusPx    *int     `json:"aperture_radius_px,omitempty"`
	MaxStars            *int     `json:"max_stars,omitempty"`

	// Background estimation params
	NoiseClipSigma          *float64 `json:"noise_clip_sigma,omitempty"`
	MaxClipIterations       *int     `json:"max_clip_iterations,omitempty"`
	BackgroundSampleStride  *int     `json:"background_sample_stride,omitempty"`
	SaturationLevelFraction *float64 `json:"saturation_level_fraction,omitempty"`

	// Focus and quality params
	FocusHFRThreshold  *float64 `json:"focus_hfr_threshold,omitempty"`
	SaturationFraction *float64 `json:"saturation_fraction,omitempty"`
	TopNForAggregates  *int     `json:"top_n_for_aggregates,omitempty"`
	MinStarsForFocus   *int     `json:"min_stars_for_focus,omitempty"`

	// Optics, used to convert pixel measurements to arcseconds. Zero
	// means unknown; conversions stay in pixels.
	FocalLengthMM *float64 `json:"focal_length_mm,omitempty"`
	PixelSizeUM   *float64 `json:"pixel_size_um,omitempty"`

	// Diagnostics
	EnableDiagnostics *bool `json:"enable_diagnostics,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/tools/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.DetectionSigma != nil {
		if *c.DetectionSigma <= 0 {
			return fmt.Errorf("detection_sigma must be positive, got %f", *c.DetectionSigma)
		}
	}
	if c.MinStarSeparationPx != nil {
		if *c.MinStarSeparationPx < 1 {
			return fmt.Errorf("min_star_separation_px must be at least 1, got %d", *c.MinStarSeparationPx)
		}
	}
	if c.ApertureRadiusPx != nil {
		if *c.ApertureRadiusPx < 1 {
			return fmt.Errorf("aperture_radius_px must be at least 1, got %d", *c.ApertureRadiusPx)
		}
	}
	if c.MaxStars != nil {
		if *c.MaxStars < 1 {
			return fmt.Errorf("max_stars must be at least 1, got %d", *c.MaxStars)
		}
	}
	if c.SaturationFraction != nil {
		if *c.SaturationFraction <= 0 || *c.SaturationFraction > 1 {
			return fmt.Errorf("saturation_fraction must be in (0, 1], got %f", *c.SaturationFraction)
		}
	}
	if c.SaturationLevelFraction != nil {
		if *c.SaturationLevelFraction <= 0 || *c.SaturationLevelFraction > 1 {
			return fmt.Errorf("saturation_level_fraction must be in (0, 1], got %f", *c.SaturationLevelFraction)
		}
	}
	if c.BackgroundSampleStride != nil {
		if *c.BackgroundSampleStride < 2 {
			return fmt.Errorf("background_sample_stride must be at least 2, got %d", *c.BackgroundSampleStride)
		}
	}
	if c.FocalLengthMM != nil {
		if *c.FocalLengthMM < 0 {
			return fmt.Errorf("focal_length_mm must be non-negative, got %f", *c.FocalLengthMM)
		}
	}
	if c.PixelSizeUM != nil {
		if *c.PixelSizeUM < 0 {
			return fmt.Errorf("pixel_size_um must be non-negative, got %f", *c.PixelSizeUM)
		}
	}
	return nil
}

// GetDetectionSigma returns the detection_sigma value or the default.
func (c *TuningConfig) GetDetectionSigma() float64 {
	if c.DetectionSigma == nil {
		return 5.0 // default
	}
	return *c.DetectionSigma
}

// GetMinStarSeparationPx returns the min_star_separation_px value or the default.
func (c *TuningConfig) GetMinStarSeparationPx() int {
	if c.MinStarSeparationPx == nil {
		return 10
	}
	return *c.MinStarSeparationPx
}

// GetApertureRadiusPx returns the aperture_radius_px value or the default.
func (c *TuningConfig) GetApertureRadiusPx() int {
	if c.ApertureRadiusPx == nil {
		return 6
	}
	return *c.ApertureRadiusPx
}

// GetMaxStars returns the max_stars value or the default.
func (c *TuningConfig) GetMaxStars() int {
	if c.MaxStars == nil {
		return 500
	}
	return *c.MaxStars
}

// GetNoiseClipSigma returns the noise_clip_sigma value or the default.
func (c *TuningConfig) GetNoiseClipSigma() float64 {
	if c.NoiseClipSigma == nil {
		return 3.0
	}
	return *c.NoiseClipSigma
}

// GetMaxClipIterations returns the max_clip_iterations value or the default.
func (c *TuningConfig) GetMaxClipIterations() int {
	if c.MaxClipIterations == nil {
		return 5
	}
	return *c.MaxClipIterations
}

// GetBackgroundSampleStride returns the background_sample_stride value or the default.
func (c *TuningConfig) GetBackgroundSampleStride() int {
	if c.BackgroundSampleStride == nil {
		return 4
	}
	return *c.BackgroundSampleStride
}

// GetSaturationLevelFraction returns the saturation_level_fraction value or the default.
func (c *TuningConfig) GetSaturationLevelFraction() float64 {
	if c.SaturationLevelFraction == nil {
		return 0.98
	}
	return *c.SaturationLevelFraction
}

// GetFocusHFRThreshold returns the focus_hfr_threshold value or the default.
func (c *TuningConfig) GetFocusHFRThreshold() float64 {
	if c.FocusHFRThreshold == nil {
		return 3.5
	}
	return *c.FocusHFRThreshold
}

// GetSaturationFraction returns the saturation_fraction value or the default.
func (c *TuningConfig) GetSaturationFraction() float64 {
	if c.SaturationFraction == nil {
		return 0.5
	}
	return *c.SaturationFraction
}

// GetTopNForAggregates returns the top_n_for_aggregates value or the default.
func (c *TuningConfig) GetTopNForAggregates() int {
	if c.TopNForAggregates == nil {
		return 50
	}
	return *c.TopNForAggregates
}

// GetMinStarsForFocus returns the min_stars_for_focus value or the default.
func (c *TuningConfig) GetMinStarsForFocus() int {
	if c.MinStarsForFocus == nil {
		return 3
	}
	return *c.MinStarsForFocus
}

// GetFocalLengthMM returns the focal_length_mm value, or 0 when unknown.
func (c *TuningConfig) GetFocalLengthMM() float64 {
	if c.FocalLengthMM == nil {
		return 0
	}
	return *c.FocalLengthMM
}

// GetPixelSizeUM returns the pixel_size_um value, or 0 when unknown.
func (c *TuningConfig) GetPixelSizeUM() float64 {
	if c.PixelSizeUM == nil {
		return 0
	}
	return *c.PixelSizeUM
}

// GetEnableDiagnostics returns the enable_diagnostics value or the default.
func (c *TuningConfig) GetEnableDiagnostics() bool {
	if c.EnableDiagnostics == nil {
		return false // default: quiet
	}
	return *c.EnableDiagnostics
}

// ToAnalysisParams maps the configuration onto an engine parameter set,
// applying defaults for any unset field.
func (c *TuningConfig) ToAnalysisParams() starfield.AnalysisParams {
	return starfield.AnalysisParams{
		DetectionSigmaMultiplier: c.GetDetectionSigma(),
		MinStarSeparationPx:      c.GetMinStarSeparationPx(),
		ApertureRadiusPx:         c.GetApertureRadiusPx(),
		MaxCandidateStars:        c.GetMaxStars(),
		NoiseClipSigma:           c.GetNoiseClipSigma(),
		MaxClipIterations:        c.GetMaxClipIterations(),
		BackgroundSampleStride:   c.GetBackgroundSampleStride(),
		SaturationLevelFraction:  c.GetSaturationLevelFraction(),
		FocusHFRThreshold:        c.GetFocusHFRThreshold(),
		SaturationFraction:       c.GetSaturationFraction(),
		TopNForAggregates:        c.GetTopNForAggregates(),
		MinStarsForFocus:         c.GetMinStarsForFocus(),
		EnableDiagnostics:        c.GetEnableDiagnostics(),
	}
}
