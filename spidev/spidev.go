// Package spidev talks to a Linux spidev character device directly.
//
// Port implements spi.PortCloser from periph.io, so it can be handed to
// ili9486.NewSPI without a host driver registry. Connect writes the mode,
// word size and clock to the device and reads each one back, failing with a
// *MismatchError when the kernel driver does not accept a setting.
package spidev

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// ioctl request numbers, from linux/spi/spidev.h.
const (
	iocWrite = 1
	iocRead  = 2

	spiMagic = 'k'
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | spiMagic<<8 | nr
}

var (
	iocWrMode  = ioc(iocWrite, 1, 1)
	iocRdMode  = ioc(iocRead, 1, 1)
	iocWrBits  = ioc(iocWrite, 3, 1)
	iocRdBits  = ioc(iocRead, 3, 1)
	iocWrSpeed = ioc(iocWrite, 4, 4)
	iocRdSpeed = ioc(iocRead, 4, 4)
)

// iocMessage is SPI_IOC_MESSAGE(n).
func iocMessage(n int) uintptr {
	return ioc(iocWrite, 0, uintptr(n)*unsafe.Sizeof(transfer{}))
}

// Mode flags understood by the kernel driver.
const (
	modeCPHA      = 0x01
	modeCPOL      = 0x02
	modeLSBFirst  = 0x08
	modeThreeWire = 0x10
	modeNoCS      = 0x40
)

// transfer mirrors struct spi_ioc_transfer.
type transfer struct {
	tx          uint64
	rx          uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

// MismatchError is returned by Connect when a setting reads back different
// from what was written.
type MismatchError struct {
	Setting string
	Want    uint32
	Got     uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("spidev: %s check failed: set 0x%X but got 0x%X", e.Setting, e.Want, e.Got)
}

// Port is an open spidev device.
type Port struct {
	mu        sync.Mutex
	f         *os.File
	path      string
	limit     physic.Frequency
	connected bool
}

// Open opens the spidev device at path, for example "/dev/spidev0.0".
func Open(path string) (*Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spidev: %w", err)
	}
	return &Port{f: f, path: path}, nil
}

func (p *Port) String() string {
	return "spidev(" + p.path + ")"
}

// Close implements spi.PortCloser.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	return err
}

// LimitSpeed implements spi.PortCloser.
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return errors.New("spidev: invalid speed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limit = f
	return nil
}

// Connect implements spi.Port. It can only be called once.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return nil, errors.New("spidev: port closed")
	}
	if p.connected {
		return nil, errors.New("spidev: Connect cannot be called twice")
	}
	if bits < 1 || bits > 32 {
		return nil, fmt.Errorf("spidev: invalid bits per word %d", bits)
	}
	speed := f
	if p.limit > 0 && (speed == 0 || p.limit < speed) {
		speed = p.limit
	}
	if speed <= 0 {
		return nil, errors.New("spidev: speed must be set through Connect or LimitSpeed")
	}
	hz := uint32(speed / physic.Hertz)

	fd := p.f.Fd()
	m := modeFlags(mode)
	if err := setByte(fd, "mode", iocWrMode, iocRdMode, m); err != nil {
		return nil, err
	}
	if err := setByte(fd, "bits per word", iocWrBits, iocRdBits, uint8(bits)); err != nil {
		return nil, err
	}
	if err := setWord(fd, "clock speed", iocWrSpeed, iocRdSpeed, hz); err != nil {
		return nil, err
	}
	slog.Debug("spidev: connected",
		slog.String("dev", p.path),
		slog.String("mode", mode.String()),
		slog.Int("bits", bits),
		slog.String("speed", speed.String()))

	p.connected = true
	return &Conn{p: p, fd: fd, hz: hz, bits: uint8(bits), half: mode&spi.HalfDuplex != 0}, nil
}

func modeFlags(mode spi.Mode) uint8 {
	var m uint8
	if mode&1 != 0 {
		m |= modeCPHA
	}
	if mode&2 != 0 {
		m |= modeCPOL
	}
	if mode&spi.HalfDuplex != 0 {
		m |= modeThreeWire
	}
	if mode&spi.NoCS != 0 {
		m |= modeNoCS
	}
	if mode&spi.LSBFirst != 0 {
		m |= modeLSBFirst
	}
	return m
}

func setByte(fd uintptr, name string, wr, rd uintptr, v uint8) error {
	if err := ioctl(fd, wr, unsafe.Pointer(&v)); err != nil {
		return fmt.Errorf("spidev: setting %s: %w", name, err)
	}
	var got uint8
	if err := ioctl(fd, rd, unsafe.Pointer(&got)); err != nil {
		return fmt.Errorf("spidev: reading %s: %w", name, err)
	}
	if got != v {
		return &MismatchError{Setting: name, Want: uint32(v), Got: uint32(got)}
	}
	return nil
}

func setWord(fd uintptr, name string, wr, rd uintptr, v uint32) error {
	if err := ioctl(fd, wr, unsafe.Pointer(&v)); err != nil {
		return fmt.Errorf("spidev: setting %s: %w", name, err)
	}
	var got uint32
	if err := ioctl(fd, rd, unsafe.Pointer(&got)); err != nil {
		return fmt.Errorf("spidev: reading %s: %w", name, err)
	}
	if got != v {
		return &MismatchError{Setting: name, Want: v, Got: got}
	}
	return nil
}

// Conn is a connected spidev port.
type Conn struct {
	p    *Port
	fd   uintptr
	hz   uint32
	bits uint8
	half bool
}

func (c *Conn) String() string {
	return c.p.String()
}

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex {
	if c.half {
		return conn.Half
	}
	return conn.Full
}

// Tx implements conn.Conn. r may be nil for write only transfers.
func (c *Conn) Tx(w, r []byte) error {
	return c.TxPackets([]spi.Packet{{W: w, R: r}})
}

// TxPackets implements spi.Conn. All packets go out in one ioctl.
func (c *Conn) TxPackets(pkts []spi.Packet) error {
	if len(pkts) == 0 {
		return nil
	}
	xfers, err := c.transfers(pkts)
	if err != nil {
		return err
	}
	err = ioctl(c.fd, iocMessage(len(xfers)), unsafe.Pointer(&xfers[0]))
	runtime.KeepAlive(pkts)
	if err != nil {
		return fmt.Errorf("spidev: transfer: %w", err)
	}
	return nil
}

// transfers builds the spi_ioc_transfer array for pkts.
//
// cs_change means "release CS after this transfer" for every transfer but the
// last, where it means "keep CS asserted after the message".
func (c *Conn) transfers(pkts []spi.Packet) ([]transfer, error) {
	xfers := make([]transfer, len(pkts))
	for i, pk := range pkts {
		n := len(pk.W)
		if n == 0 {
			n = len(pk.R)
		}
		if len(pk.W) != 0 && len(pk.R) != 0 && len(pk.R) != len(pk.W) {
			return nil, fmt.Errorf("spidev: packet %d: read buffer is %d bytes, want %d", i, len(pk.R), len(pk.W))
		}
		x := &xfers[i]
		x.length = uint32(n)
		x.speedHz = c.hz
		x.bitsPerWord = c.bits
		if pk.BitsPerWord != 0 {
			x.bitsPerWord = pk.BitsPerWord
		}
		last := i == len(pkts)-1
		if pk.KeepCS == last {
			x.csChange = 1
		}
		if len(pk.W) != 0 {
			x.tx = uint64(uintptr(unsafe.Pointer(&pk.W[0])))
		}
		if len(pk.R) != 0 {
			x.rx = uint64(uintptr(unsafe.Pointer(&pk.R[0])))
		}
	}
	return xfers, nil
}

var (
	_ spi.PortCloser = &Port{}
	_ spi.Conn       = &Conn{}
)
