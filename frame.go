package ili9486

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3"
)

// Frame markers. The shift registers latch a word when it is clocked in with
// the "before" marker and then again with the "after" marker.
const (
	markerCommandBefore byte = 0x11
	markerCommandAfter  byte = 0x1B
	markerDataBefore    byte = 0x15
	markerDataAfter     byte = 0x1F

	// The reset line is driven through the same registers.
	markerResetLow  byte = 0x00
	markerResetHigh byte = 0x02
)

// Kind is the kind of word carried by a frame.
type Kind uint8

const (
	Command Kind = iota
	Data
	Reset
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Data:
		return "data"
	case Reset:
		return "reset"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// FrameError reports a frame the transceiver failed to transfer.
type FrameError struct {
	Kind   Kind
	Word   uint16
	Marker byte
	Err    error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("ili9486: %s 0x%04X (marker 0x%02X): %v", e.Kind, e.Word, e.Marker, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// codec encodes words into 4-byte frames: [0, high byte, low byte, marker].
// buf is reused for every frame so streaming pixels does not allocate.
type codec struct {
	c   conn.Conn
	log *slog.Logger
	buf [4]byte
}

func (f *codec) command(w uint16) error {
	if err := f.send(Command, w, markerCommandBefore); err != nil {
		return err
	}
	return f.send(Command, w, markerCommandAfter)
}

func (f *codec) data(w uint16) error {
	if err := f.send(Data, w, markerDataBefore); err != nil {
		return err
	}
	return f.send(Data, w, markerDataAfter)
}

// reset drives the reset line. It is a single frame, not a before/after pair.
func (f *codec) reset(high bool) error {
	marker := markerResetLow
	if high {
		marker = markerResetHigh
	}
	return f.send(Reset, 0, marker)
}

func (f *codec) send(k Kind, w uint16, marker byte) error {
	f.buf = [4]byte{0, byte(w >> 8), byte(w), marker}
	if err := f.c.Tx(f.buf[:], nil); err != nil {
		f.log.Error("ili9486: frame transfer failed",
			slog.String("kind", k.String()),
			slog.String("word", fmt.Sprintf("0x%04X", w)),
			slog.String("marker", fmt.Sprintf("0x%02X", marker)),
			slog.Any("err", err))
		return &FrameError{Kind: k, Word: w, Marker: marker, Err: err}
	}
	return nil
}
