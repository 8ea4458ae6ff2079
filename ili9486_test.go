package ili9486

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/flavioheleno/ili9486/emulator"
	"github.com/flavioheleno/ili9486/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestDev builds and initializes a Dev without waiting on the init delays.
func newTestDev(t *testing.T, c conn.Conn, opts *Opts) *Dev {
	t.Helper()
	if opts == nil {
		opts = &Opts{}
	}
	if opts.Logger == nil {
		opts.Logger = discard
	}
	d, err := newDev(c, opts)
	if err != nil {
		t.Fatalf("newDev() error = %v", err)
	}
	d.sleep = func(time.Duration) {}
	if err := d.init(); err != nil {
		t.Fatalf("init() error = %v", err)
	}
	return d
}

// newPanelDev returns an initialized Dev drawing on an emulated panel.
func newPanelDev(t *testing.T, opts *Opts) (*Dev, *emulator.Panel) {
	t.Helper()
	w, h := 480, 320
	if opts != nil && opts.Orientation == Portrait {
		w, h = 320, 480
	}
	if opts != nil && opts.W != 0 {
		w = opts.W
	}
	if opts != nil && opts.H != 0 {
		h = opts.H
	}
	p := emulator.New(w, h)
	d := newTestDev(t, p, opts)
	return d, p
}

type word struct {
	kind Kind
	v    uint16
}

func cmdWord(v uint16) word  { return word{Command, v} }
func dataWord(v uint16) word { return word{Data, v} }

// decode pairs recorded frames back into words. It fails the test on any
// frame that does not follow the before/after protocol.
func decode(t *testing.T, ops []conntest.IO) []word {
	t.Helper()
	var words []word
	for i := 0; i < len(ops); i++ {
		f := ops[i].W
		if len(f) != 4 || f[0] != 0 {
			t.Fatalf("op %d: malformed frame %#v", i, f)
		}
		switch f[3] {
		case markerResetLow, markerResetHigh:
			words = append(words, word{Reset, uint16(f[3])})
			continue
		case markerCommandBefore, markerDataBefore:
		default:
			t.Fatalf("op %d: unexpected marker 0x%02X", i, f[3])
		}
		if i+1 >= len(ops) {
			t.Fatalf("op %d: before frame without after frame", i)
		}
		g := ops[i+1].W
		k, after := Command, markerCommandAfter
		if f[3] == markerDataBefore {
			k, after = Data, markerDataAfter
		}
		if len(g) != 4 || g[0] != 0 || g[1] != f[1] || g[2] != f[2] || g[3] != after {
			t.Fatalf("op %d: after frame %#v does not match %#v", i+1, g, f)
		}
		words = append(words, word{k, uint16(f[1])<<8 | uint16(f[2])})
		i++
	}
	return words
}

// flaky is a conn.Conn failing the transfers listed in fail (0-based).
type flaky struct {
	fail map[int]bool
	n    int
}

var errBus = errors.New("bus error")

func (f *flaky) String() string       { return "flaky" }
func (f *flaky) Duplex() conn.Duplex  { return conn.Full }
func (f *flaky) Tx(w, r []byte) error {
	n := f.n
	f.n++
	if f.fail[n] {
		return errBus
	}
	return nil
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Opts
		wantW   int
		wantH   int
		wantErr bool
	}{
		{"nil options (uses defaults)", nil, 480, 320, false},
		{"valid 480x320", &Opts{W: 480, H: 320}, 480, 320, false},
		{"portrait defaults", &Opts{Orientation: Portrait}, 320, 480, false},
		{"smaller panel", &Opts{W: 320, H: 240}, 320, 240, false},
		{"width > 480", &Opts{W: 481, H: 320}, 0, 0, true},
		{"height > 320", &Opts{W: 480, H: 321}, 0, 0, true},
		{"negative width", &Opts{W: -1}, 0, 0, true},
		{"portrait width > 320", &Opts{W: 480, Orientation: Portrait}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := newDev(&conntest.Discard{}, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newDev() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if want := image.Rect(0, 0, tt.wantW, tt.wantH); d.Bounds() != want {
				t.Errorf("Bounds() = %v, want %v", d.Bounds(), want)
			}
		})
	}
}

func TestNewNilConn(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestDevString(t *testing.T) {
	d, err := newDev(&conntest.Discard{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "ili9486.Dev{480x320, landscape}"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDevColorModel(t *testing.T) {
	d := &Dev{}
	if d.ColorModel() != rgb565.Model {
		t.Error("ColorModel() did not return rgb565.Model")
	}
}

func TestDevHalt(t *testing.T) {
	rec := &conntest.Record{}
	d := newTestDev(t, rec, nil)
	rec.Ops = nil

	if err := d.Halt(); err != nil {
		t.Fatalf("Halt() error = %v", err)
	}
	want := []word{cmdWord(cmdDisplayOff), cmdWord(cmdSleepIn)}
	got := decode(t, rec.Ops)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Halt() sent %v, want %v", got, want)
	}

	font := &Font{Width: 8, Height: 8}
	checks := map[string]error{
		"FillRect":   d.FillRect(Rect{0, 0, 1, 1}, rgb565.White),
		"FillScreen": d.FillScreen(rgb565.White),
		"DrawPixel":  d.DrawPixel(0, 0, rgb565.White),
		"DrawGlyph":  d.DrawGlyph(0, 0, 'A', font, rgb565.White, Transparent),
		"DrawString": d.DrawString(0, 0, "A", font, rgb565.White, Transparent),
		"Draw":       d.Draw(d.Bounds(), image.NewRGBA(d.Bounds()), image.Point{}),
		"Display":    d.Display(),

		"FillRectangle":         d.FillRectangle(0, 0, 1, 1, color.RGBA{A: 0xFF}),
		"FillRectangle bad size": d.FillRectangle(0, 0, 0, 1, color.RGBA{A: 0xFF}),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrHalted) {
			t.Errorf("%s after Halt() error = %v, want ErrHalted", name, err)
		}
	}
}

func TestDrawClipsAndStreams(t *testing.T) {
	d, p := newPanelDev(t, nil)

	src := rgb565.NewImage(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetRGB565(x, y, rgb565.Color(y*4+x+1))
		}
	}

	// Only the top left 2x2 of src lands on the panel.
	if err := d.Draw(image.Rect(478, 318, 482, 322), src, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	want := map[image.Point]rgb565.Color{
		{478, 318}: 1, {479, 318}: 2,
		{478, 319}: 5, {479, 319}: 6,
	}
	for pt, c := range want {
		if got := p.At(pt.X, pt.Y); got != c {
			t.Errorf("At(%d, %d) = 0x%04X, want 0x%04X", pt.X, pt.Y, got, c)
		}
	}
	if last := p.Windows[len(p.Windows)-1]; last != image.Rect(478, 318, 480, 320) {
		t.Errorf("window = %v, want (478,318)-(480,320)", last)
	}
}

func TestDrawConvertsColors(t *testing.T) {
	d, p := newPanelDev(t, nil)

	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{0xFF, 0, 0, 0xFF})
	src.Set(1, 0, color.White)

	if err := d.Draw(image.Rect(10, 10, 12, 11), src, image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if got := p.At(10, 10); got != rgb565.Red {
		t.Errorf("At(10, 10) = 0x%04X, want red", got)
	}
	if got := p.At(11, 10); got != rgb565.White {
		t.Errorf("At(11, 10) = 0x%04X, want white", got)
	}
}

func TestDrawOutsideIsNoop(t *testing.T) {
	rec := &conntest.Record{}
	d := newTestDev(t, rec, nil)
	rec.Ops = nil

	if err := d.Draw(image.Rect(500, 400, 510, 410), image.NewRGBA(image.Rect(0, 0, 10, 10)), image.Point{}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(rec.Ops) != 0 {
		t.Errorf("Draw() outside the panel sent %d frames, want 0", len(rec.Ops))
	}
}

func TestEndToEndScenario(t *testing.T) {
	d, p := newPanelDev(t, nil)

	if !p.On() {
		t.Fatal("panel is not on after init")
	}
	if err := d.FillScreen(rgb565.Black); err != nil {
		t.Fatalf("FillScreen() error = %v", err)
	}
	before := p.Pixels
	if err := d.FillRect(Rect{200, 130, 280, 190}, rgb565.Magenta); err != nil {
		t.Fatalf("FillRect() error = %v", err)
	}

	if got := p.Pixels - before; got != 81*61 {
		t.Errorf("magenta fill streamed %d pixels, want %d", got, 81*61)
	}
	if last := p.Windows[len(p.Windows)-1]; last != image.Rect(200, 130, 281, 191) {
		t.Errorf("magenta window = %v, want (200,130)-(281,191)", last)
	}
	for _, pt := range []image.Point{{200, 130}, {280, 190}, {240, 160}} {
		if got := p.At(pt.X, pt.Y); got != rgb565.Magenta {
			t.Errorf("At(%d, %d) = 0x%04X, want magenta", pt.X, pt.Y, got)
		}
	}
	for _, pt := range []image.Point{{199, 130}, {281, 190}, {240, 191}} {
		if got := p.At(pt.X, pt.Y); got != rgb565.Black {
			t.Errorf("At(%d, %d) = 0x%04X, want black", pt.X, pt.Y, got)
		}
	}
	if p.Glitches != 0 {
		t.Errorf("Glitches = %d, want 0", p.Glitches)
	}
	if d.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0", d.Failures())
	}
}

func TestErrorPolicy(t *testing.T) {
	tests := []struct {
		name         string
		policy       ErrorPolicy
		wantErr      bool
		wantAttempts int
	}{
		// FillRect over 2x1 is 11 window words plus 2 pixels, 2 transfers
		// each. The failed before frame is not followed by its after frame.
		{"continue", LogAndContinue, false, 25},
		{"abort", AbortOnError, true, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &flaky{}
			d := newTestDev(t, f, &Opts{Policy: tt.policy})
			f.n = 0
			f.fail = map[int]bool{4: true}

			err := d.FillRect(Rect{0, 0, 1, 0}, rgb565.White)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FillRect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errBus) {
				t.Errorf("FillRect() error = %v, want it to wrap the bus error", err)
			}
			if f.n != tt.wantAttempts {
				t.Errorf("transfers attempted = %d, want %d", f.n, tt.wantAttempts)
			}
			if d.Failures() != 1 {
				t.Errorf("Failures() = %d, want 1", d.Failures())
			}
		})
	}
}

func TestErrorPolicyString(t *testing.T) {
	if got := LogAndContinue.String(); got != "continue" {
		t.Errorf("LogAndContinue.String() = %q", got)
	}
	if got := AbortOnError.String(); !strings.Contains(got, "abort") {
		t.Errorf("AbortOnError.String() = %q", got)
	}
}

func TestNewSPI(t *testing.T) {
	port := &spitest.Record{}
	d, err := NewSPI(port, &Opts{Speed: 10 * physic.MegaHertz, Logger: discard})
	if err != nil {
		t.Fatalf("NewSPI() error = %v", err)
	}
	if !port.Initialized {
		t.Error("NewSPI() did not connect the port")
	}
	if len(port.Ops) == 0 {
		t.Fatal("NewSPI() did not run the init sequence")
	}
	if got := port.Ops[0].W; len(got) != 4 || got[3] != markerResetLow {
		t.Errorf("first frame = %#v, want the reset low frame", got)
	}
	if d.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0", d.Failures())
	}
}

func TestNewSPIConnectError(t *testing.T) {
	// spitest.Record refuses a second Connect.
	port := &spitest.Record{Initialized: true}
	if _, err := NewSPI(port, nil); err == nil {
		t.Error("NewSPI() should fail when the port cannot connect")
	}
}
