package ili9486

import "github.com/flavioheleno/ili9486/rgb565"

// FillRect paints r with c. Corners may come in any order and out-of-range
// coordinates are clamped to the panel.
func (d *Dev) FillRect(r Rect, c rgb565.Color) error {
	if d.halted {
		return ErrHalted
	}
	r = r.Normalize(d.rect.Dx(), d.rect.Dy())
	if err := d.setWindow(r); err != nil {
		return err
	}
	return d.stream(c, r.Count())
}

// FillScreen paints the whole panel with c.
func (d *Dev) FillScreen(c rgb565.Color) error {
	if d.halted {
		return ErrHalted
	}
	n := d.rect.Dx() * d.rect.Dy()
	if d.overshoot {
		n++
	}
	if err := d.setFullScreen(); err != nil {
		return err
	}
	return d.stream(c, n)
}

// stream sends n pixels of c into the armed window.
func (d *Dev) stream(c rgb565.Color, n int) error {
	for i := 0; i < n; i++ {
		if err := d.data(uint16(c)); err != nil {
			return err
		}
	}
	return nil
}
