// Package fonts converts between TinyGo tinyfont fonts and the fixed-cell
// bitmap fonts drawn by ili9486.
//
// Rasterize renders the printable ASCII range of any tinyfont.Fonter into an
// ili9486.Font, so proportional tinyfont faces can be used with DrawString
// and its opaque backgrounds. Fonter goes the other way and lets tinyfont draw
// an ili9486.Font on any drivers.Displayer.
package fonts

import (
	"fmt"
	"image/color"

	"github.com/flavioheleno/ili9486"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Range of characters covered by a rasterized Font.
const (
	First = 0x20
	Last  = 0x7E
)

// MaxWidth is the widest cell an ili9486.Font can hold.
const MaxWidth = 16

// Metrics returns the cell size of f and the distance from the top of the
// cell to the baseline. The width is the advance of "0", as for terminals.
func Metrics(f tinyfont.Fonter) (w, h, baseline int) {
	_, outbox := tinyfont.LineWidth(f, "0")
	w = int(outbox)

	descent := 0
	for r := rune(First); r <= Last; r++ {
		info := f.GetGlyph(r).Info()
		if info.Height == 0 {
			continue
		}
		if top := -int(info.YOffset); top > baseline {
			baseline = top
		}
		if bottom := int(info.YOffset) + int(info.Height); bottom > descent {
			descent = bottom
		}
	}
	return w, baseline + descent, baseline
}

// Rasterize renders f into a Font sized by Metrics.
func Rasterize(f tinyfont.Fonter) (*ili9486.Font, error) {
	w, h, baseline := Metrics(f)
	return RasterizeCell(f, w, h, baseline)
}

// RasterizeCell renders f into w x h cells with the baseline at row baseline.
// Pixels falling outside the cell are dropped.
func RasterizeCell(f tinyfont.Fonter, w, h, baseline int) (*ili9486.Font, error) {
	if f == nil {
		return nil, fmt.Errorf("fonts: nil font")
	}
	if w <= 0 || w > MaxWidth {
		return nil, fmt.Errorf("fonts: cell width %d must be between 1 and %d", w, MaxWidth)
	}
	if h <= 0 {
		return nil, fmt.Errorf("fonts: cell height %d must be positive", h)
	}

	out := &ili9486.Font{
		Width:  w,
		Height: h,
		Data:   make([]uint16, (Last-First+1)*h),
	}
	c := &cell{w: w, h: h}
	for r := rune(First); r <= Last; r++ {
		c.rows = out.Data[int(r-First)*h : int(r-First+1)*h]
		tinyfont.DrawChar(c, f, 0, int16(baseline), r, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF})
	}
	return out, nil
}

// cell is a drivers.Displayer capturing one glyph as row bit masks.
type cell struct {
	w, h int
	rows []uint16
}

func (c *cell) Size() (x, y int16) {
	return int16(c.w), int16(c.h)
}

func (c *cell) SetPixel(x, y int16, _ color.RGBA) {
	if x < 0 || y < 0 || int(x) >= c.w || int(y) >= c.h {
		return
	}
	c.rows[y] |= 0x8000 >> uint(x)
}

func (c *cell) Display() error {
	return nil
}

// Fonter exposes f to tinyfont. Glyphs sit on the baseline with their bottom
// row, and lines advance by one pixel more than the cell height, like
// ili9486.Dev.DrawString does.
//
// The returned value reuses its glyph, so it is not safe for concurrent use.
func Fonter(f *ili9486.Font) tinyfont.Fonter {
	return &fonter{g: glyph{f: f}}
}

type fonter struct {
	g glyph
}

func (f *fonter) GetGlyph(r rune) tinyfont.Glypher {
	f.g.r = r
	return &f.g
}

func (f *fonter) GetYAdvance() uint8 {
	return uint8(f.g.f.Height + 1)
}

type glyph struct {
	f *ili9486.Font
	r rune
}

func (g *glyph) Draw(display drivers.Displayer, x, y int16, c color.RGBA) {
	if g.r < First || g.r > 0xFF {
		return
	}
	top := y - int16(g.f.Height-1)
	for i := 0; i < g.f.Height; i++ {
		b := g.f.Row(byte(g.r), i)
		for j := 0; j < g.f.Width; j++ {
			if b&(0x8000>>uint(j)) == 0 {
				continue
			}
			display.SetPixel(x+int16(j), top+int16(i), c)
		}
	}
}

func (g *glyph) Info() tinyfont.GlyphInfo {
	return tinyfont.GlyphInfo{
		Rune:     g.r,
		Width:    uint8(g.f.Width),
		Height:   uint8(g.f.Height),
		XAdvance: uint8(g.f.Width),
		XOffset:  0,
		YOffset:  -int8(g.f.Height - 1),
	}
}
