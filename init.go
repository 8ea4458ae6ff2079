package ili9486

import (
	"log/slog"
	"time"
)

// MADCTL bits.
const (
	madctlMX  = 0x40
	madctlMV  = 0x20
	madctlBGR = 0x08
)

func madctl(o Orientation, rgb bool) byte {
	v := byte(madctlMV)
	if o == Portrait {
		v = madctlMX
	}
	if !rgb {
		v |= madctlBGR
	}
	return v
}

// step is one register write of the init script. delay is waited after the
// command and its parameters went out.
type step struct {
	cmd   uint16
	args  []uint16
	delay time.Duration
}

// Reset timings. The line is held low, released, and the controller gets
// extra time before the first command.
const (
	resetLowDelay  = 50 * time.Millisecond
	resetHighDelay = 200 * time.Millisecond
	resetSettle    = 100 * time.Millisecond
)

// script returns the ILI9486L power-up sequence for the KeDei 3.5" panel.
// The order matters: power and gamma registers only take effect after sleep
// out, and the display is switched on before inversion control.
func (d *Dev) script() []step {
	w, h := uint16(d.rect.Dx()-1), uint16(d.rect.Dy()-1)
	return []step{
		{cmd: cmdNOP, delay: time.Millisecond},
		// Interface mode control
		{cmd: 0xB0, args: []uint16{0x00}},
		{cmd: cmdSleepOut, delay: 50 * time.Millisecond},
		// Frame rate control
		{cmd: 0xB3, args: []uint16{0x02, 0x00, 0x00, 0x00}},
		// Power control 1, 2 and 5
		{cmd: 0xC0, args: []uint16{0x10, 0x3B, 0x00, 0x02, 0x00, 0x01, 0x00, 0x43}},
		{cmd: 0xC1, args: []uint16{0x08, 0x16, 0x08, 0x08}},
		{cmd: 0xC4, args: []uint16{0x11, 0x07, 0x03, 0x03}},
		// CABC control
		{cmd: 0xC6, args: []uint16{0x00}},
		// Gamma setting
		{cmd: 0xC8, args: []uint16{
			0x03, 0x03, 0x13, 0x5C, 0x03, 0x07, 0x14, 0x08, 0x00, 0x21,
			0x08, 0x14, 0x07, 0x53, 0x0C, 0x13, 0x03, 0x03, 0x21, 0x00,
		}},
		// Tearing effect line on
		{cmd: 0x35, args: []uint16{0x00}},
		{cmd: cmdMemoryAccess, args: []uint16{uint16(d.madctl)}},
		// 16 bits per pixel
		{cmd: cmdPixelFormat, args: []uint16{0x55}},
		// Tear scanline
		{cmd: 0x44, args: []uint16{0x00, 0x01}},
		// Display function control
		{cmd: 0xB6, args: []uint16{0x00, 0x02, 0x3B}},
		// Power setting, VCOM control, power setting for normal mode
		{cmd: 0xD0, args: []uint16{0x07, 0x07, 0x1D}},
		{cmd: 0xD1, args: []uint16{0x00, 0x03, 0x00}},
		{cmd: 0xD2, args: []uint16{0x03, 0x14, 0x04}},
		// Positive and negative gamma correction
		{cmd: 0xE0, args: []uint16{
			0x1F, 0x2C, 0x2C, 0x0B, 0x0C, 0x04, 0x4C, 0x64,
			0x36, 0x03, 0x0E, 0x01, 0x10, 0x01, 0x00,
		}},
		{cmd: 0xE1, args: []uint16{
			0x1F, 0x3F, 0x3F, 0x0F, 0x1F, 0x0F, 0x7F, 0x32,
			0x36, 0x04, 0x0B, 0x00, 0x19, 0x14, 0x0F,
		}},
		// Digital gamma control 1 and 2
		{cmd: 0xE2, args: []uint16{0x0F, 0x0F, 0x0F}},
		{cmd: 0xE3, args: []uint16{0x0F, 0x0F, 0x0F}},
		{cmd: cmdNormalMode},
		{cmd: cmdDisplayOn, delay: 20 * time.Millisecond},
		// Display inversion control
		{cmd: 0xB4, args: []uint16{0x00}, delay: 20 * time.Millisecond},
		{cmd: cmdMemoryWrite},
		{cmd: cmdColumnSet, args: []uint16{0x00, 0x00, w >> 8, w & 0xFF}},
		{cmd: cmdPageSet, args: []uint16{0x00, 0x00, h >> 8, h & 0xFF}},
		{cmd: cmdMemoryWrite},
	}
}

// init resets the controller and runs the power-up script. It must run
// exactly once, before any drawing.
func (d *Dev) init() error {
	start := time.Now()
	d.log.Debug("ili9486: init", slog.String("dev", d.String()))

	if err := d.check(d.codec.reset(false)); err != nil {
		return err
	}
	d.sleep(resetLowDelay)
	if err := d.check(d.codec.reset(true)); err != nil {
		return err
	}
	d.sleep(resetHighDelay)
	d.sleep(resetSettle)

	for _, s := range d.script() {
		if err := d.write(s.cmd, s.args...); err != nil {
			return err
		}
		if s.delay > 0 {
			d.sleep(s.delay)
		}
	}

	d.log.Debug("ili9486: init done",
		slog.Duration("duration", time.Since(start)),
		slog.Int("failures", d.failures))
	return nil
}
