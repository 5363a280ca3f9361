package frameio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/deepsky-data/starqc/internal/starfield"
)

const (
	fitsRecordSize  = 80
	fitsBlockSize   = 2880
	recordsPerBlock = fitsBlockSize / fitsRecordSize
)

// Metadata holds the header key-value pairs of a loaded frame. Keys are
// uppercase FITS keywords; values are decoded strings with quoting and
// trailing comments stripped.
type Metadata struct {
	Headers map[string]string
}

// NewMetadata returns an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{Headers: make(map[string]string)}
}

// GetString returns the header value for key, or "" when absent.
func (m *Metadata) GetString(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m.Headers[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

// GetFloat64 returns the header value for key parsed as a float.
func (m *Metadata) GetFloat64(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// GetInt returns the header value for key parsed as an integer.
func (m *Metadata) GetInt(key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// Convenience accessors for the capture keywords the reporting layer uses.
func (m *Metadata) ObjectName() string    { return m.GetString("OBJECT") }
func (m *Metadata) ImageType() string     { return m.GetString("IMAGETYP") }
func (m *Metadata) CameraName() string    { return m.GetString("INSTRUME") }
func (m *Metadata) Filter() string        { return m.GetString("FILTER") }
func (m *Metadata) TelescopeName() string { return m.GetString("TELESCOP") }

// ExposureTime returns the exposure in seconds, trying the two keywords
// capture software uses.
func (m *Metadata) ExposureTime() (float64, bool) {
	if v, ok := m.GetFloat64("EXPTIME"); ok {
		return v, true
	}
	return m.GetFloat64("EXPOSURE")
}

// FocalLength returns the telescope focal length in millimeters.
func (m *Metadata) FocalLength() (float64, bool) { return m.GetFloat64("FOCALLEN") }

// PixelSize returns the detector pixel pitch in micrometers.
func (m *Metadata) PixelSize() (float64, bool) { return m.GetFloat64("XPIXSZ") }

// ReadFITSFile loads a FITS image from disk.
func ReadFITSFile(path string) (*starfield.Frame, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return ReadFITS(f)
}

// ReadFITS parses a FITS primary HDU into a frame plus its header
// metadata. BITPIX 8, 16, 32, and -32 are supported; physical values are
// reconstructed with BZERO/BSCALE and clamped to the 16-bit range. Extra
// image planes beyond the first (NAXIS > 2) are ignored.
func ReadFITS(r io.Reader) (*starfield.Frame, *Metadata, error) {
	var bitpix, naxis, width, height int
	bzero := 0.0
	bscale := 1.0
	headerDone := false
	metadata := NewMetadata()

	recordBuf := make([]byte, fitsRecordSize)
	for !headerDone {
		for i := 0; i < recordsPerBlock; i++ {
			if _, err := io.ReadFull(r, recordBuf); err != nil {
				return nil, nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				remaining := recordsPerBlock - 1 - i
				if remaining > 0 {
					skipBuf := make([]byte, remaining*fitsRecordSize)
					if _, err := io.ReadFull(r, skipBuf); err != nil {
						return nil, nil, fmt.Errorf("reading FITS header padding: %w", err)
					}
				}
				break
			}

			if record[8] != '=' || record[9] != ' ' {
				continue
			}
			rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
			if keyword != "" {
				if decoded := decodeFITSValue(rawValue); decoded != "" {
					metadata.Headers[strings.ToUpper(keyword)] = decoded
				}
			}

			switch keyword {
			case "BITPIX":
				bitpix, _ = strconv.Atoi(rawValue)
			case "NAXIS":
				naxis, _ = strconv.Atoi(rawValue)
			case "NAXIS1":
				width, _ = strconv.Atoi(rawValue)
			case "NAXIS2":
				height, _ = strconv.Atoi(rawValue)
			case "BZERO":
				bzero, _ = strconv.ParseFloat(rawValue, 64)
			case "BSCALE":
				bscale, _ = strconv.ParseFloat(rawValue, 64)
			}
		}
	}

	if naxis < 2 || width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("invalid FITS geometry: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}

	numPixels := width * height
	pixels := make([]uint16, numPixels)

	switch bitpix {
	case 8:
		rawBytes := make([]byte, numPixels)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, nil, fmt.Errorf("reading 8-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			pixels[i] = physicalValue(float64(rawBytes[i]), bscale, bzero)
		}

	case 16:
		rawBytes := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			signed := int16(binary.BigEndian.Uint16(rawBytes[i*2:]))
			pixels[i] = physicalValue(float64(signed), bscale, bzero)
		}

	case 32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, nil, fmt.Errorf("reading 32-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			signed := int32(binary.BigEndian.Uint32(rawBytes[i*4:]))
			pixels[i] = physicalValue(float64(signed), bscale, bzero)
		}

	case -32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, nil, fmt.Errorf("reading float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			f := math.Float32frombits(binary.BigEndian.Uint32(rawBytes[i*4:]))
			pixels[i] = physicalValue(float64(f), bscale, bzero)
		}

	default:
		return nil, nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	frame, err := starfield.NewFrame(pixels, width, height)
	if err != nil {
		return nil, nil, err
	}
	return frame, metadata, nil
}

// physicalValue applies the linear BZERO/BSCALE transform and clamps the
// result into the 16-bit sample range.
func physicalValue(raw, bscale, bzero float64) uint16 {
	v := raw*bscale + bzero
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}

// decodeFITSValue strips FITS value syntax: quoted strings lose their
// quotes and trailing blanks, logicals become True/False.
func decodeFITSValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}

// fitsStringKeys are the metadata keywords written back as quoted strings,
// in a fixed order so output is deterministic.
var fitsStringKeys = []string{"OBJECT", "IMAGETYP", "INSTRUME", "FILTER", "TELESCOP"}

// fitsNumericKeys are the metadata keywords written back as numbers.
var fitsNumericKeys = []string{"EXPTIME", "FOCALLEN", "XPIXSZ", "YPIXSZ"}

// WriteFITSFile saves a frame to disk as 16-bit FITS.
func WriteFITSFile(path string, frame *starfield.Frame, meta *Metadata) error {
	var buf bytes.Buffer
	if err := WriteFITS(&buf, frame, meta); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// WriteFITS encodes the frame as a single-HDU 16-bit FITS image, using the
// conventional BZERO=32768 offset so unsigned samples survive the signed
// storage format. Known capture keywords from meta are carried into the
// header; meta may be nil.
func WriteFITS(w io.Writer, frame *starfield.Frame, meta *Metadata) error {
	if frame == nil || frame.Width() <= 0 || frame.Height() <= 0 {
		return fmt.Errorf("cannot write empty frame")
	}

	var header bytes.Buffer
	writeCard(&header, "SIMPLE", "T", "file conforms to FITS standard")
	writeCard(&header, "BITPIX", "16", "bits per data value")
	writeCard(&header, "NAXIS", "2", "number of data axes")
	writeCard(&header, "NAXIS1", strconv.Itoa(frame.Width()), "image width")
	writeCard(&header, "NAXIS2", strconv.Itoa(frame.Height()), "image height")
	writeCard(&header, "BZERO", "32768", "offset for unsigned 16-bit data")
	writeCard(&header, "BSCALE", "1", "default scaling factor")
	if meta != nil {
		for _, key := range fitsStringKeys {
			if v := meta.GetString(key); v != "" {
				writeCard(&header, key, "'"+v+"'", "")
			}
		}
		for _, key := range fitsNumericKeys {
			if v, ok := meta.GetFloat64(key); ok {
				writeCard(&header, key, strconv.FormatFloat(v, 'f', -1, 64), "")
			}
		}
	}
	header.WriteString(fmt.Sprintf("%-80s", "END"))
	padToBlock(&header)

	if _, err := w.Write(header.Bytes()); err != nil {
		return fmt.Errorf("writing FITS header: %w", err)
	}

	pixels := frame.Pixels()
	data := make([]byte, len(pixels)*2)
	for i, px := range pixels {
		binary.BigEndian.PutUint16(data[i*2:], uint16(int32(px)-32768))
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing FITS pixel data: %w", err)
	}
	if pad := (fitsBlockSize - len(data)%fitsBlockSize) % fitsBlockSize; pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("writing FITS data padding: %w", err)
		}
	}
	return nil
}

// writeCard appends one 80-byte header record in fixed format: keyword
// left-justified in 8 columns, value right-justified to column 30.
func writeCard(buf *bytes.Buffer, keyword, value, comment string) {
	card := fmt.Sprintf("%-8s= %20s", keyword, value)
	if comment != "" {
		card += " / " + comment
	}
	if len(card) > fitsRecordSize {
		card = card[:fitsRecordSize]
	}
	buf.WriteString(fmt.Sprintf("%-80s", card))
}

// padToBlock zero-fills the buffer with blank records up to a 2880-byte
// boundary.
func padToBlock(buf *bytes.Buffer) {
	for buf.Len()%fitsBlockSize != 0 {
		buf.WriteString(fmt.Sprintf("%-80s", ""))
	}
}
