package frameio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/tiff"

	"github.com/deepsky-data/starqc/internal/starfield"
)

// ReadImageFile loads a PNG or TIFF image from disk and converts it to a
// 16-bit grayscale frame.
func ReadImageFile(path string) (*starfield.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	return ReadImage(f)
}

// ReadImage decodes a PNG or TIFF stream into a frame. 16-bit grayscale
// images pass through losslessly; anything else is reduced to luminance
// scaled to the 16-bit range.
func ReadImage(r io.Reader) (*starfield.Frame, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return frameFromImage(img)
}

func frameFromImage(img image.Image) (*starfield.Frame, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]uint16, w*h)

	if gray, ok := img.(*image.Gray16); ok {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pixels[y*w+x] = gray.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				// BT.601 luma weights in 16.16 fixed point.
				pixels[y*w+x] = uint16((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
			}
		}
	}
	return starfield.NewFrame(pixels, w, h)
}

// grayImage renders the frame as a 16-bit grayscale image for encoding.
func grayImage(frame *starfield.Frame) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, frame.Width(), frame.Height()))
	for y := 0; y < frame.Height(); y++ {
		for x := 0; x < frame.Width(); x++ {
			img.SetGray16(x, y, color.Gray16{Y: frame.Pixel(x, y)})
		}
	}
	return img
}

// WritePNGFile saves a frame to disk as 16-bit grayscale PNG.
func WritePNGFile(path string, frame *starfield.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PNG file: %w", err)
	}
	defer f.Close()
	return WritePNG(f, frame)
}

// WritePNG encodes the frame as 16-bit grayscale PNG.
func WritePNG(w io.Writer, frame *starfield.Frame) error {
	if frame == nil || frame.Width() <= 0 || frame.Height() <= 0 {
		return fmt.Errorf("cannot write empty frame")
	}
	if err := png.Encode(w, grayImage(frame)); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// WriteTIFFFile saves a frame to disk as 16-bit grayscale TIFF.
func WriteTIFFFile(path string, frame *starfield.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating TIFF file: %w", err)
	}
	defer f.Close()
	return WriteTIFF(f, frame)
}

// WriteTIFF encodes the frame as 16-bit grayscale TIFF.
func WriteTIFF(w io.Writer, frame *starfield.Frame) error {
	if frame == nil || frame.Width() <= 0 || frame.Height() <= 0 {
		return fmt.Errorf("cannot write empty frame")
	}
	if err := tiff.Encode(w, grayImage(frame), nil); err != nil {
		return fmt.Errorf("encoding TIFF: %w", err)
	}
	return nil
}
