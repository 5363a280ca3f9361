// Package units provides shared constants and conversion for star size units
package units

// Unit constants
const (
	Pixels = "px"
	Arcsec = "arcsec"
)

// arcsec per radian, divided by 1000 to absorb the um-to-mm ratio in
// the plate scale formula.
const plateScaleFactor = 206.265

// ValidUnits contains all valid unit values
var ValidUnits = []string{Pixels, Arcsec}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "px, arcsec"
}

// PlateScale returns the image scale in arcseconds per pixel for an optical
// system with the given focal length (millimetres) and pixel pitch
// (micrometres). Returns 0 when either input is missing or non-positive.
func PlateScale(focalLengthMM, pixelSizeUM float64) float64 {
	if focalLengthMM <= 0 || pixelSizeUM <= 0 {
		return 0
	}
	return plateScaleFactor * pixelSizeUM / focalLengthMM
}

// ConvertSize converts a size measured in pixels to the target units.
// Star measurements (HFR, FWHM) are computed in pixels; arcsecPerPx comes
// from PlateScale. Unknown units fall back to pixels.
func ConvertSize(sizePx float64, targetUnits string, arcsecPerPx float64) float64 {
	switch targetUnits {
	case Arcsec:
		return sizePx * arcsecPerPx
	case Pixels:
		return sizePx
	default:
		return sizePx
	}
}
