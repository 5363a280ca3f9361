package frameio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/deepsky-data/starqc/internal/starfield"
)

// ReadPGMFile loads a binary PGM image from disk.
func ReadPGMFile(path string) (*starfield.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PGM file: %w", err)
	}
	defer f.Close()
	return ReadPGM(f)
}

// ReadPGM parses a binary (P5) PGM image. Both 8-bit and 16-bit sample
// depths are accepted; 16-bit samples are big-endian per the Netpbm
// specification. Sample values are taken as-is, without rescaling.
func ReadPGM(r io.Reader) (*starfield.Frame, error) {
	br := bufio.NewReader(r)

	magic, err := pgmToken(br)
	if err != nil {
		return nil, fmt.Errorf("reading PGM magic: %w", err)
	}
	if magic != "P5" {
		return nil, fmt.Errorf("unsupported PGM magic %q, want P5", magic)
	}

	width, err := pgmInt(br)
	if err != nil {
		return nil, fmt.Errorf("reading PGM width: %w", err)
	}
	height, err := pgmInt(br)
	if err != nil {
		return nil, fmt.Errorf("reading PGM height: %w", err)
	}
	maxval, err := pgmInt(br)
	if err != nil {
		return nil, fmt.Errorf("reading PGM maxval: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid PGM geometry %dx%d", width, height)
	}
	if maxval <= 0 || maxval > 65535 {
		return nil, fmt.Errorf("invalid PGM maxval %d", maxval)
	}

	numPixels := width * height
	pixels := make([]uint16, numPixels)
	if maxval < 256 {
		raw := make([]byte, numPixels)
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, fmt.Errorf("reading 8-bit PGM samples: %w", err)
		}
		for i, b := range raw {
			pixels[i] = uint16(b)
		}
	} else {
		raw := make([]byte, numPixels*2)
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, fmt.Errorf("reading 16-bit PGM samples: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			pixels[i] = binary.BigEndian.Uint16(raw[i*2:])
		}
	}
	return starfield.NewFrame(pixels, width, height)
}

// WritePGMFile saves a frame to disk as 16-bit binary PGM.
func WritePGMFile(path string, frame *starfield.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PGM file: %w", err)
	}
	defer f.Close()
	return WritePGM(f, frame)
}

// WritePGM encodes the frame as binary PGM with 16-bit big-endian samples.
func WritePGM(w io.Writer, frame *starfield.Frame) error {
	if frame == nil || frame.Width() <= 0 || frame.Height() <= 0 {
		return fmt.Errorf("cannot write empty frame")
	}
	if _, err := fmt.Fprintf(w, "P5\n%d %d\n65535\n", frame.Width(), frame.Height()); err != nil {
		return fmt.Errorf("writing PGM header: %w", err)
	}
	pixels := frame.Pixels()
	data := make([]byte, len(pixels)*2)
	for i, px := range pixels {
		binary.BigEndian.PutUint16(data[i*2:], px)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing PGM samples: %w", err)
	}
	return nil
}

// pgmToken reads the next whitespace-delimited header token, skipping
// '#' comments.
func pgmToken(br *bufio.Reader) (string, error) {
	var tok []byte
	inComment := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		if inComment {
			if b == '\n' {
				inComment = false
			}
			continue
		}
		switch {
		case b == '#':
			inComment = true
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}

func pgmInt(br *bufio.Reader) (int, error) {
	tok, err := pgmToken(br)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}
