package frameio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/deepsky-data/starqc/internal/starfield"
)

// Load reads a frame from path, dispatching on the file extension. FITS
// files yield header metadata; other formats return empty metadata so
// callers can treat the result uniformly.
func Load(path string) (*starfield.Frame, *Metadata, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".fits", ".fit", ".fts":
		return ReadFITSFile(path)
	case ".pgm":
		frame, err := ReadPGMFile(path)
		return frame, NewMetadata(), err
	case ".png", ".tif", ".tiff":
		frame, err := ReadImageFile(path)
		return frame, NewMetadata(), err
	default:
		return nil, nil, fmt.Errorf("unsupported image extension %q (supported: .fits, .fit, .fts, .pgm, .png, .tif, .tiff)", ext)
	}
}

// Save writes a frame to path, dispatching on the file extension. meta is
// only carried by FITS output and may be nil.
func Save(path string, frame *starfield.Frame, meta *Metadata) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".fits", ".fit", ".fts":
		return WriteFITSFile(path, frame, meta)
	case ".pgm":
		return WritePGMFile(path, frame)
	case ".png":
		return WritePNGFile(path, frame)
	case ".tif", ".tiff":
		return WriteTIFFFile(path, frame)
	default:
		return fmt.Errorf("unsupported image extension %q (supported: .fits, .fit, .fts, .pgm, .png, .tif, .tiff)", ext)
	}
}
