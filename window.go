package ili9486

import "image"

// Controller registers used outside the init script.
const (
	cmdNOP          = 0x00
	cmdSleepIn      = 0x10
	cmdSleepOut     = 0x11
	cmdNormalMode   = 0x13
	cmdDisplayOff   = 0x28
	cmdDisplayOn    = 0x29
	cmdColumnSet    = 0x2A // CASET
	cmdPageSet      = 0x2B // PASET
	cmdMemoryWrite  = 0x2C // RAMWR
	cmdMemoryAccess = 0x36 // MADCTL
	cmdPixelFormat  = 0x3A
)

// Rect is a rectangle with inclusive bounds: (X1, Y1) is painted too.
//
// Any Rect is accepted by the drawing operations; it is normalized against
// the panel first.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Normalize orders the corners so X0 <= X1 and Y0 <= Y1 and clamps them
// into a w x h panel.
func (r Rect) Normalize(w, h int) Rect {
	if r.X0 > r.X1 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	r.X0 = clamp(r.X0, 0, w-1)
	r.X1 = clamp(r.X1, 0, w-1)
	r.Y0 = clamp(r.Y0, 0, h-1)
	r.Y1 = clamp(r.Y1, 0, h-1)
	return r
}

// Count returns the number of pixels in a normalized Rect.
func (r Rect) Count() int {
	return (r.X1 - r.X0 + 1) * (r.Y1 - r.Y0 + 1)
}

// Rectangle converts r to the half-open image.Rectangle convention.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X0, r.Y0, r.X1+1, r.Y1+1)
}

func fromRectangle(r image.Rectangle) Rect {
	return Rect{X0: r.Min.X, Y0: r.Min.Y, X1: r.Max.X - 1, Y1: r.Max.Y - 1}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// setWindow restricts the controller write pointer to r and arms it for a
// row-major pixel stream.
func (d *Dev) setWindow(r Rect) error {
	r = r.Normalize(d.rect.Dx(), d.rect.Dy())
	x0, y0 := uint16(r.X0), uint16(r.Y0)
	x1, y1 := uint16(r.X1), uint16(r.Y1)

	if err := d.write(cmdPageSet, y0>>8, y0&0xFF, y1>>8, y1&0xFF); err != nil {
		return err
	}
	if err := d.write(cmdColumnSet, x0>>8, x0&0xFF, x1>>8, x1&0xFF); err != nil {
		return err
	}
	return d.command(cmdMemoryWrite)
}

func (d *Dev) setFullScreen() error {
	return d.setWindow(fromRectangle(d.rect))
}
