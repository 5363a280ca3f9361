package frameio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNGRoundTrip(t *testing.T) {
	t.Parallel()

	frame := testFrame(t, 9, 4)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, frame))

	got, err := ReadImage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, frame.Pixels(), got.Pixels(), "16-bit grayscale PNG must survive untouched")
}

func TestTIFFRoundTrip(t *testing.T) {
	t.Parallel()

	frame := testFrame(t, 6, 6)
	var buf bytes.Buffer
	require.NoError(t, WriteTIFF(&buf, frame))

	got, err := ReadImage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, frame.Pixels(), got.Pixels(), "16-bit grayscale TIFF must survive untouched")
}

func TestReadImage_ColorLuminance(t *testing.T) {
	t.Parallel()

	// White and black map to the range extremes under the luminance
	// conversion, regardless of the source color model.
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	frame, err := ReadImage(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), frame.Pixel(0, 0))
	assert.Equal(t, uint16(0), frame.Pixel(1, 0))
}

func TestReadImage_Garbage(t *testing.T) {
	t.Parallel()

	_, err := ReadImage(bytes.NewReader([]byte("not an image at all")))
	assert.Error(t, err)
}

func TestWriteImage_RejectsNilFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Error(t, WritePNG(&buf, nil))
	assert.Error(t, WriteTIFF(&buf, nil))
}
