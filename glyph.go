package ili9486

import (
	"errors"
	"image"

	"github.com/flavioheleno/ili9486/rgb565"
)

// Font is a fixed-cell bitmap font.
//
// Data holds Height rows per glyph, starting with ' ' (0x20). Each row is a
// bit mask where bit 15 is the leftmost pixel, so Width cannot exceed 16.
type Font struct {
	Width  int
	Height int
	Data   []uint16
}

func (f *Font) validate() error {
	if f == nil {
		return errors.New("ili9486: nil font")
	}
	if f.Width <= 0 || f.Width > 16 {
		return errors.New("ili9486: font width must be between 1 and 16")
	}
	if f.Height <= 0 {
		return errors.New("ili9486: font height must be positive")
	}
	return nil
}

// Row returns the bit pattern of row i of the glyph for ch. Characters the
// font does not cover are blank.
func (f *Font) Row(ch byte, i int) uint16 {
	if ch < 32 || i < 0 || i >= f.Height {
		return 0
	}
	idx := (int(ch)-32)*f.Height + i
	if idx >= len(f.Data) {
		return 0
	}
	return f.Data[idx]
}

// Background is the color painted behind glyphs. The zero value is
// Transparent.
type Background struct {
	c      rgb565.Color
	opaque bool
}

// Transparent leaves the pixels behind glyphs untouched.
var Transparent = Background{}

// Opaque returns a Background painting c behind glyphs.
func Opaque(c rgb565.Color) Background {
	return Background{c: c, opaque: true}
}

// Color returns the background color and whether it is painted at all.
func (b Background) Color() (rgb565.Color, bool) {
	return b.c, b.opaque
}

// Cursor returns where the next glyph goes.
func (d *Dev) Cursor() image.Point {
	return d.cursor
}

// DrawPixel paints one pixel. Coordinates outside the panel are clamped.
func (d *Dev) DrawPixel(x, y int, c rgb565.Color) error {
	if d.halted {
		return ErrHalted
	}
	if err := d.setWindow(Rect{X0: x, Y0: y, X1: x, Y1: y}); err != nil {
		return err
	}
	return d.data(uint16(c))
}

// DrawGlyph draws ch with its top left corner at (x, y) and moves the cursor
// right by the font width.
//
// A glyph that would cross the right edge goes to the start of the next text
// line instead.
func (d *Dev) DrawGlyph(x, y int, ch byte, f *Font, fg rgb565.Color, bg Background) error {
	if d.halted {
		return ErrHalted
	}
	if err := f.validate(); err != nil {
		return err
	}

	d.cursor = image.Pt(x, y)
	if d.cursor.X+f.Width > d.rect.Dx() {
		d.cursor.Y += f.Height
		d.cursor.X = 0
	}
	x0, y0 := d.cursor.X, d.cursor.Y

	if c, ok := bg.Color(); ok {
		r := Rect{X0: x0, Y0: y0, X1: x0 + f.Width - 1, Y1: y0 + f.Height - 1}
		if err := d.FillRect(r, c); err != nil {
			return err
		}
	}

	for i := 0; i < f.Height; i++ {
		b := uint32(f.Row(ch, i))
		for j := 0; j < f.Width; j++ {
			if (b<<j)&0x8000 == 0 {
				continue
			}
			if err := d.DrawPixel(x0+j, y0+i, fg); err != nil {
				return err
			}
		}
	}

	d.cursor.X += f.Width
	return nil
}

// DrawString draws text starting at (x, y).
//
// "\n" starts a new line one pixel below the previous one, back at x, or at
// the left edge when followed by "\r". A lone "\r" is ignored. Long lines wrap
// per glyph; there is no word wrapping.
func (d *Dev) DrawString(x, y int, text string, f *Font, fg rgb565.Color, bg Background) error {
	if d.halted {
		return ErrHalted
	}
	if err := f.validate(); err != nil {
		return err
	}

	startX := x
	d.cursor = image.Pt(x, y)

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			d.cursor.Y += f.Height + 1
			if i+1 < len(text) && text[i+1] == '\r' {
				d.cursor.X = 0
				i++
			} else {
				d.cursor.X = startX
			}
		case '\r':
		default:
			if err := d.DrawGlyph(d.cursor.X, d.cursor.Y, text[i], f, fg, bg); err != nil {
				return err
			}
		}
	}
	return nil
}
