// Package starfield owns star detection and image-quality analysis for raw
// monochrome sensor frames.
//
// The pipeline runs six stages in a fixed order: background estimation,
// star detection, per-star photometry, frame-level aggregation, focus
// analysis, and quality assessment. Each stage is a pure function over
// immutable inputs; Analyzer composes them and is safe for concurrent use.
//
// Key types: Frame, BackgroundModel, Star, AnalysisResult.
//
// The package performs no I/O. Frames are loaded by internal/frameio and
// results are surfaced by the CLI and internal/monitor.
package starfield
