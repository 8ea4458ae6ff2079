// Package emulator models an ILI9486 panel behind the KeDei shift registers.
//
// Panel implements conn.Conn: bytes written to it are decoded as 4-byte
// frames, paired into command and data words, and applied to an RGB565
// framebuffer. It stands in for the hardware in tests and in the demo.
package emulator

import (
	"fmt"
	"image"
	"sync"

	"github.com/flavioheleno/ili9486/rgb565"
	"periph.io/x/conn/v3"
)

// Kind of decoded word.
type Kind uint8

const (
	Command Kind = iota
	Data
)

func (k Kind) String() string {
	if k == Command {
		return "command"
	}
	return "data"
}

// Word is a command or data word latched by the panel.
type Word struct {
	Kind  Kind
	Value uint16
}

func (w Word) String() string {
	return fmt.Sprintf("%s(0x%04X)", w.Kind, w.Value)
}

const (
	cmdBefore  = 0x11
	cmdAfter   = 0x1B
	dataBefore = 0x15
	dataAfter  = 0x1F
	resetLow   = 0x00
	resetHigh  = 0x02
)

// Panel is the emulated controller.
type Panel struct {
	mu sync.Mutex

	// Trace records every latched word in Words when set.
	Trace bool
	Words []Word

	// Windows lists the windows armed by memory write commands, in order.
	Windows []image.Rectangle

	// Counters
	Frames   int // 4-byte frames received
	Commands int // command words latched
	Data     int // data words latched, pixels included
	Pixels   int // data words written to the framebuffer
	Resets   int // completed reset pulses
	Glitches int // frames that could not be paired

	img *rgb565.Image

	pending    [4]byte
	hasPending bool
	inReset    bool

	on      bool
	asleep  bool
	madctl  uint16
	format  uint16
	cmd     uint16
	args    []uint16
	writing bool

	col, page [2]int
	x, y      int
}

// New returns a powered-off panel with a w x h framebuffer.
func New(w, h int) *Panel {
	return &Panel{
		img:    rgb565.NewImage(image.Rect(0, 0, w, h)),
		asleep: true,
		col:    [2]int{0, w - 1},
		page:   [2]int{0, h - 1},
	}
}

func (p *Panel) String() string {
	return fmt.Sprintf("emulator.Panel{%dx%d}", p.img.Rect.Dx(), p.img.Rect.Dy())
}

// Duplex implements conn.Conn.
func (p *Panel) Duplex() conn.Duplex {
	return conn.Full
}

// Tx implements conn.Conn. w may carry any number of whole frames; r is
// zeroed since the panel never answers.
func (p *Panel) Tx(w, r []byte) error {
	if len(w)%4 != 0 {
		return fmt.Errorf("emulator: %d bytes is not a whole number of frames", len(w))
	}
	if r != nil && len(r) != len(w) {
		return fmt.Errorf("emulator: read buffer is %d bytes, want %d", len(r), len(w))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i+4 <= len(w); i += 4 {
		p.frame([4]byte{w[i], w[i+1], w[i+2], w[i+3]})
	}
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (p *Panel) frame(f [4]byte) {
	p.Frames++
	marker := f[3]
	switch marker {
	case resetLow, resetHigh:
		if f[0] != 0 || f[1] != 0 || f[2] != 0 {
			p.Glitches++
			return
		}
		if p.hasPending {
			p.Glitches++
			p.hasPending = false
		}
		if marker == resetLow {
			p.inReset = true
			return
		}
		if p.inReset {
			p.inReset = false
			p.reset()
		}
	case cmdBefore, dataBefore:
		if p.hasPending {
			p.Glitches++
		}
		p.pending = f
		p.hasPending = true
	case cmdAfter, dataAfter:
		want := byte(cmdBefore)
		if marker == dataAfter {
			want = dataBefore
		}
		if !p.hasPending || p.pending[3] != want || p.pending[1] != f[1] || p.pending[2] != f[2] {
			p.Glitches++
			p.hasPending = false
			return
		}
		p.hasPending = false
		v := uint16(f[1])<<8 | uint16(f[2])
		if marker == cmdAfter {
			p.command(v)
		} else {
			p.data(v)
		}
	default:
		p.Glitches++
	}
}

func (p *Panel) reset() {
	p.Resets++
	p.on = false
	p.asleep = true
	p.writing = false
	p.madctl = 0
	p.format = 0
	p.cmd = 0
	p.args = p.args[:0]
	p.col = [2]int{0, p.img.Rect.Dx() - 1}
	p.page = [2]int{0, p.img.Rect.Dy() - 1}
}

func (p *Panel) command(v uint16) {
	p.Commands++
	if p.Trace {
		p.Words = append(p.Words, Word{Kind: Command, Value: v})
	}
	p.cmd = v
	p.args = p.args[:0]
	p.writing = false

	switch v {
	case 0x10:
		p.asleep = true
	case 0x11:
		p.asleep = false
	case 0x28:
		p.on = false
	case 0x29:
		p.on = true
	case 0x2C:
		p.writing = true
		p.x, p.y = p.col[0], p.page[0]
		p.Windows = append(p.Windows, image.Rect(p.col[0], p.page[0], p.col[1]+1, p.page[1]+1))
	}
}

func (p *Panel) data(v uint16) {
	p.Data++
	if p.Trace {
		p.Words = append(p.Words, Word{Kind: Data, Value: v})
	}
	if p.writing {
		p.pixel(rgb565.Color(v))
		return
	}
	p.args = append(p.args, v)
	if len(p.args) != 4 && !(len(p.args) == 1 && (p.cmd == 0x36 || p.cmd == 0x3A)) {
		return
	}
	switch p.cmd {
	case 0x2A:
		p.col = p.span(p.img.Rect.Dx())
	case 0x2B:
		p.page = p.span(p.img.Rect.Dy())
	case 0x36:
		p.madctl = p.args[0]
	case 0x3A:
		p.format = p.args[0]
	}
}

// span decodes the four parameters of CASET/PASET: start and end, high byte
// first.
func (p *Panel) span(limit int) [2]int {
	s := int(p.args[0]&0xFF)<<8 | int(p.args[1]&0xFF)
	e := int(p.args[2]&0xFF)<<8 | int(p.args[3]&0xFF)
	if e >= limit {
		e = limit - 1
	}
	if s > e {
		s = e
	}
	return [2]int{s, e}
}

// pixel writes at the memory pointer and advances it row-major inside the
// window, wrapping to the window origin.
func (p *Panel) pixel(c rgb565.Color) {
	p.Pixels++
	p.img.SetRGB565(p.x, p.y, c)
	p.x++
	if p.x > p.col[1] {
		p.x = p.col[0]
		p.y++
		if p.y > p.page[1] {
			p.y = p.page[0]
		}
	}
}

// Image returns a copy of the framebuffer.
func (p *Panel) Image() *rgb565.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	img := rgb565.NewImage(p.img.Rect)
	copy(img.Pix, p.img.Pix)
	return img
}

// At returns the framebuffer pixel at (x, y).
func (p *Panel) At(x, y int) rgb565.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.img.RGB565At(x, y)
}

// On reports whether the display is awake and switched on.
func (p *Panel) On() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on && !p.asleep
}

// MADCTL returns the last memory access control value.
func (p *Panel) MADCTL() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.madctl
}

// PixelFormat returns the last pixel format value (0x55 is 16 bits per pixel).
func (p *Panel) PixelFormat() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

var _ conn.Conn = &Panel{}
