package starfield

import (
	"math"
	"math/rand"
	"time"
)

// FieldCanvas accumulates synthetic scene components in floating point
// before quantization to a 16-bit frame. Tests build deterministic scenes
// with it; FieldGenerator drives it for randomized fields.
type FieldCanvas struct {
	w, h int
	data []float64
}

// NewFieldCanvas returns a canvas filled with a flat background level.
func NewFieldCanvas(width, height int, background float64) *FieldCanvas {
	c := &FieldCanvas{w: width, h: height, data: make([]float64, width*height)}
	for i := range c.data {
		c.data[i] = background
	}
	return c
}

// AddStar stamps a circular Gaussian PSF with the given peak amplitude
// above the existing canvas content.
func (c *FieldCanvas) AddStar(x, y, peak, sigma float64) {
	c.AddEllipticalStar(x, y, peak, sigma, sigma, 0)
}

// AddEllipticalStar stamps an elongated Gaussian with distinct major and
// minor axis sigmas, rotated by angle radians. The stamp covers four major
// sigmas and is clipped at the canvas edge.
func (c *FieldCanvas) AddEllipticalStar(x, y, peak, sigmaMajor, sigmaMinor, angle float64) {
	if peak <= 0 || sigmaMajor <= 0 || sigmaMinor <= 0 {
		return
	}
	extent := 4 * sigmaMajor
	x0 := int(math.Floor(x - extent))
	x1 := int(math.Ceil(x + extent))
	y0 := int(math.Floor(y - extent))
	y1 := int(math.Ceil(y + extent))
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > c.w-1 {
		x1 = c.w - 1
	}
	if y1 > c.h-1 {
		y1 = c.h - 1
	}

	sinA, cosA := math.Sincos(angle)
	twoMajSq := 2 * sigmaMajor * sigmaMajor
	twoMinSq := 2 * sigmaMinor * sigmaMinor
	for py := y0; py <= y1; py++ {
		dy := float64(py) - y
		for px := x0; px <= x1; px++ {
			dx := float64(px) - x
			u := dx*cosA + dy*sinA
			v := -dx*sinA + dy*cosA
			c.data[py*c.w+px] += peak * math.Exp(-(u*u/twoMajSq + v*v/twoMinSq))
		}
	}
}

// AddHotPixel sets a single sample to an absolute value.
func (c *FieldCanvas) AddHotPixel(x, y int, value float64) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.data[y*c.w+x] = value
}

// AddNoise adds zero-mean Gaussian read noise from the supplied source.
func (c *FieldCanvas) AddNoise(rng *rand.Rand, sigma float64) {
	if sigma <= 0 {
		return
	}
	for i := range c.data {
		c.data[i] += rng.NormFloat64() * sigma
	}
}

// Frame rounds and clamps the canvas to a 16-bit frame.
func (c *FieldCanvas) Frame() *Frame {
	pixels := make([]uint16, len(c.data))
	for i, v := range c.data {
		pixels[i] = clampToUint16(v)
	}
	return &Frame{pixels: pixels, width: c.w, height: c.h}
}

// FieldParams configures the synthetic star field generator.
type FieldParams struct {
	Width  int // frame width in pixels; default 800
	Height int // frame height in pixels; default 600

	// BackgroundLevel is the flat sky level in ADU. Default 800.
	BackgroundLevel float64

	// NoiseSigma is the Gaussian read noise in ADU. 0 leaves the field
	// noiseless.
	NoiseSigma float64

	// StarCount is how many stars to place. Default 60.
	StarCount int

	// PSFSigmaPx is the Gaussian sigma of stellar profiles in pixels.
	// Larger values simulate defocus or poor seeing. Default 1.6.
	PSFSigmaPx float64

	// MinPeak and MaxPeak bound star peak amplitudes above background.
	// Defaults 300 and 30000.
	MinPeak float64
	MaxPeak float64

	// Elongation stretches the major axis by this factor; 1 keeps stars
	// round. Simulates tracking drift.
	Elongation float64

	// Seed fixes the random sequence for reproducible fields. 0 seeds
	// from the wall clock.
	Seed int64
}

// FieldGenerator builds synthetic star fields for tests and tooling.
type FieldGenerator struct {
	params FieldParams
	rng    *rand.Rand
}

// NewFieldGenerator applies defaults to params and seeds the generator.
func NewFieldGenerator(params FieldParams) *FieldGenerator {
	if params.Width <= 0 {
		params.Width = 800
	}
	if params.Height <= 0 {
		params.Height = 600
	}
	if params.BackgroundLevel <= 0 {
		params.BackgroundLevel = 800
	}
	if params.StarCount <= 0 {
		params.StarCount = 60
	}
	if params.PSFSigmaPx <= 0 {
		params.PSFSigmaPx = 1.6
	}
	if params.MinPeak <= 0 {
		params.MinPeak = 300
	}
	if params.MaxPeak <= 0 {
		params.MaxPeak = 30000
	}
	if params.MaxPeak < params.MinPeak {
		params.MaxPeak = params.MinPeak
	}
	if params.Elongation < 1 {
		params.Elongation = 1
	}
	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &FieldGenerator{
		params: params,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Params returns the effective generator parameters after defaulting.
func (g *FieldGenerator) Params() FieldParams { return g.params }

// Generate renders one synthetic frame. Star positions keep a margin of
// four sigmas from the frame edge so every star is fully contained.
func (g *FieldGenerator) Generate() *Frame {
	p := g.params
	canvas := NewFieldCanvas(p.Width, p.Height, p.BackgroundLevel)

	margin := 4*p.PSFSigmaPx*p.Elongation + 2
	spanX := float64(p.Width) - 2*margin
	spanY := float64(p.Height) - 2*margin
	if spanX <= 0 || spanY <= 0 {
		margin = 0
		spanX = float64(p.Width - 1)
		spanY = float64(p.Height - 1)
	}

	for i := 0; i < p.StarCount; i++ {
		x := margin + g.rng.Float64()*spanX
		y := margin + g.rng.Float64()*spanY
		peak := p.MinPeak + g.rng.Float64()*(p.MaxPeak-p.MinPeak)
		angle := g.rng.Float64() * math.Pi
		canvas.AddEllipticalStar(x, y, peak, p.PSFSigmaPx*p.Elongation, p.PSFSigmaPx, angle)
	}
	canvas.AddNoise(g.rng, p.NoiseSigma)
	return canvas.Frame()
}
