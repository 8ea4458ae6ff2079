// Package ili9486 controls an ILI9486/ILI9341 class TFT display controller
// reached through a byte oriented SPI transceiver.
//
// The controller found on KeDei 3.5" 480x320 panels sits behind a pair of
// shift registers, so every 16-bit command or data word travels as 4-byte
// frames instead of using a dedicated data/command GPIO.
//
// See the examples for how to use this package.
package ili9486

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/flavioheleno/ili9486/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Orientation selects how the panel memory is scanned.
type Orientation uint8

const (
	// Landscape is 480x320 with the connector on the left.
	Landscape Orientation = iota
	// Portrait is 320x480.
	Portrait
)

func (o Orientation) String() string {
	if o == Portrait {
		return "portrait"
	}
	return "landscape"
}

// ErrorPolicy selects what drawing and initialization do when a frame fails
// to transfer.
type ErrorPolicy uint8

const (
	// LogAndContinue logs the failed frame, counts it and carries on with the
	// next frame. A missed frame corrupts the picture but never stops it.
	LogAndContinue ErrorPolicy = iota
	// AbortOnError returns the first failure to the caller and skips the rest
	// of the operation.
	AbortOnError
)

func (p ErrorPolicy) String() string {
	if p == AbortOnError {
		return "abort"
	}
	return "continue"
}

// ErrHalted is returned by every drawing operation after Halt.
var ErrHalted = errors.New("ili9486: halted")

// Opts is the configuration for the display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 480 landscape, 320 portrait)
	H int // Height (default: 320 landscape, 480 portrait)

	Orientation Orientation
	// RGB sends pixels in RGB order. The KeDei panels are wired BGR.
	RGB bool

	Policy ErrorPolicy
	Logger *slog.Logger // nil uses slog.Default()

	// Speed is the SPI clock used by NewSPI (default: 25MHz).
	Speed physic.Frequency

	// FillOvershoot makes FillScreen stream W*H+1 pixels like the vendor
	// sample code did.
	FillOvershoot bool
}

// Dev is the device handle for the display. It is the drawing session: it
// owns the text cursor and borrows the transceiver for its whole lifetime.
type Dev struct {
	// Communication
	c     conn.Conn
	codec codec
	log   *slog.Logger

	// Display geometry
	rect        image.Rectangle
	orientation Orientation
	madctl      byte

	policy    ErrorPolicy
	overshoot bool

	// Text cursor
	cursor image.Point

	// State
	failures int
	halted   bool

	sleep func(time.Duration)
}

// NewSPI connects to an SPI port and initializes the display.
//
// The port is configured for Mode0 (CPOL=0, CPHA=0), 8-bit words and
// opts.Speed. The caller keeps ownership of p and closes it when done.
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	speed := 25 * physic.MegaHertz
	if opts != nil && opts.Speed > 0 {
		speed = opts.Speed
	}
	c, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ili9486: connecting to %s: %w", p, err)
	}
	return New(c, opts)
}

// New initializes the display behind c and returns the session handle.
//
// opts can be nil to use defaults (480x320 landscape).
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	d, err := newDev(c, opts)
	if err != nil {
		return nil, err
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func newDev(c conn.Conn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	if c == nil {
		return nil, errors.New("ili9486: nil transceiver")
	}

	maxW, maxH := 480, 320
	if opts.Orientation == Portrait {
		maxW, maxH = 320, 480
	}
	w, h := opts.W, opts.H
	if w == 0 {
		w = maxW
	}
	if h == 0 {
		h = maxH
	}
	if w < 0 || w > maxW {
		return nil, fmt.Errorf("ili9486: width must be between 1 and %d in %s", maxW, opts.Orientation)
	}
	if h < 0 || h > maxH {
		return nil, fmt.Errorf("ili9486: height must be between 1 and %d in %s", maxH, opts.Orientation)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dev{
		c:           c,
		codec:       codec{c: c, log: logger},
		log:         logger,
		rect:        image.Rect(0, 0, w, h),
		orientation: opts.Orientation,
		madctl:      madctl(opts.Orientation, opts.RGB),
		policy:      opts.Policy,
		overshoot:   opts.FillOvershoot,
		sleep:       time.Sleep,
	}, nil
}

// check applies the error policy to the result of one frame.
func (d *Dev) check(err error) error {
	if err == nil {
		return nil
	}
	d.failures++
	if d.policy == AbortOnError {
		return err
	}
	return nil
}

func (d *Dev) command(w uint16) error {
	return d.check(d.codec.command(w))
}

func (d *Dev) data(w uint16) error {
	return d.check(d.codec.data(w))
}

// write sends a command followed by its parameters.
func (d *Dev) write(cmd uint16, args ...uint16) error {
	if err := d.command(cmd); err != nil {
		return err
	}
	for _, a := range args {
		if err := d.data(a); err != nil {
			return err
		}
	}
	return nil
}

// Failures returns how many frames failed to transfer since New.
func (d *Dev) Failures() int {
	return d.failures
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw streams src into the dst region of the display.
//
// Pixels outside the display are dropped. *rgb565.Image sources are sent
// without color conversion.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}

	// Clip to display bounds
	r := dst.Intersect(d.rect)
	if r.Empty() {
		return nil
	}
	sp = sp.Add(r.Min.Sub(dst.Min))

	if err := d.setWindow(fromRectangle(r)); err != nil {
		return err
	}

	fast, _ := src.(*rgb565.Image)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			var c rgb565.Color
			if fast != nil {
				c = fast.RGB565At(sp.X+x, sp.Y+y)
			} else {
				c = rgb565.Model.Convert(src.At(sp.X+x, sp.Y+y)).(rgb565.Color)
			}
			if err := d.data(uint16(c)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Halt turns the display off and puts the controller to sleep.
// After calling Halt, every drawing operation returns ErrHalted.
func (d *Dev) Halt() error {
	d.halted = true
	if err := d.command(cmdDisplayOff); err != nil {
		return err
	}
	return d.command(cmdSleepIn)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("ili9486.Dev{%dx%d, %s}", d.rect.Dx(), d.rect.Dy(), d.orientation)
}

var _ display.Drawer = (*Dev)(nil)
