package ili9486

import (
	"errors"
	"image/color"

	"github.com/flavioheleno/ili9486/rgb565"
	"periph.io/x/conn/v3"
	"tinygo.org/x/drivers"
)

// Size implements drivers.Displayer.
func (d *Dev) Size() (x, y int16) {
	return int16(d.rect.Dx()), int16(d.rect.Dy())
}

// SetPixel implements drivers.Displayer. The pixel is sent right away;
// pixels outside the panel are dropped.
func (d *Dev) SetPixel(x, y int16, c color.RGBA) {
	if int(x) < 0 || int(y) < 0 || int(x) >= d.rect.Dx() || int(y) >= d.rect.Dy() {
		return
	}
	_ = d.DrawPixel(int(x), int(y), rgb565.Model.Convert(c).(rgb565.Color))
}

// Display implements drivers.Displayer. There is no frame buffer to flush.
func (d *Dev) Display() error {
	if d.halted {
		return ErrHalted
	}
	return nil
}

// FillRectangle paints a width x height rectangle with its top left corner at
// (x, y), like the TinyGo display drivers.
func (d *Dev) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.halted {
		return ErrHalted
	}
	if width <= 0 || height <= 0 {
		return errors.New("ili9486: invalid rectangle size")
	}
	r := Rect{X0: int(x), Y0: int(y), X1: int(x) + int(width) - 1, Y1: int(y) + int(height) - 1}
	return d.FillRect(r, rgb565.Model.Convert(c).(rgb565.Color))
}

var _ drivers.Displayer = (*Dev)(nil)

// NewBus initializes the display behind a TinyGo SPI bus.
func NewBus(bus drivers.SPI, opts *Opts) (*Dev, error) {
	if bus == nil {
		return nil, errors.New("ili9486: nil bus")
	}
	return New(&busConn{bus: bus}, opts)
}

// busConn exposes a drivers.SPI as a conn.Conn.
type busConn struct {
	bus drivers.SPI
}

func (b *busConn) String() string {
	return "drivers.SPI"
}

func (b *busConn) Tx(w, r []byte) error {
	return b.bus.Tx(w, r)
}

func (b *busConn) Duplex() conn.Duplex {
	return conn.Full
}
