package starfield

// Window is a read-only rectangular view over intensity samples. It lets
// the photometry math run unchanged over full 16-bit frames and the 8-bit
// patches handed to the standalone measurement helpers. Implementations
// must tolerate any (x, y) with x in [0, Width) and y in [0, Height).
type Window interface {
	Width() int
	Height() int
	At(x, y int) float64
}

var _ Window = (*Frame)(nil)

// byteWindow adapts an 8-bit patch to the Window interface.
type byteWindow struct {
	data []uint8
	w, h int
}

func (b byteWindow) Width() int          { return b.w }
func (b byteWindow) Height() int         { return b.h }
func (b byteWindow) At(x, y int) float64 { return float64(b.data[y*b.w+x]) }

var _ Window = byteWindow{}
