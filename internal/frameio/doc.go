// Package frameio loads and saves the 16-bit grayscale frames the analysis
// engine consumes. It speaks FITS (the native format of astronomical
// capture software), binary PGM, and grayscale PNG/TIFF, and extracts the
// capture metadata (optics, exposure, camera) that downstream reporting
// uses for angular conversions.
package frameio
