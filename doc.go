// Package ili9486 controls an ILI9486 TFT display via SPI.
//
// The ILI9486L is a 262K color TFT controller with 320×480 pixels of RAM. This
// driver targets the KeDei 3.5" 480×320 Raspberry Pi panels, where the
// controller sits behind shift registers on the SPI bus. It implements the
// display.Drawer interface from periph.io and the drivers.Displayer interface
// from TinyGo.
//
// # Wire Protocol
//
// There is no data/command GPIO. Every 16-bit word is clocked out as a 4-byte
// frame, twice:
//
//	[0x00, high byte, low byte, before marker]
//	[0x00, high byte, low byte, after marker]
//
// Commands use the markers 0x11/0x1B, data uses 0x15/0x1F. The reset line is
// driven with the frames [0,0,0,0x00] (low) and [0,0,0,0x02] (high).
//
// # Display Characteristics
//
// - 16-bit RGB565 pixels (see package rgb565)
// - 480×320 landscape or 320×480 portrait, fixed when the device is created
// - No frame buffer: every drawing call streams straight to the panel
//
// # Hardware Connection
//
// The KeDei board plugs on the Raspberry Pi header and uses SPI0 CE0:
//
//	Panel        Raspberry Pi
//	SCLK         GPIO11 (SPI0 CLK)
//	MOSI         GPIO10 (SPI0 MOSI)
//	MISO         GPIO9  (SPI0 MISO)
//	CS (LCD)     GPIO8  (SPI0 CE0)
//
// # Basic Usage
//
//	package main
//
//	import (
//		"github.com/flavioheleno/ili9486"
//		"github.com/flavioheleno/ili9486/rgb565"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Open SPI bus
//		spiBus, _ := spireg.Open("")
//		defer spiBus.Close()
//
//		// Create device, this resets and initializes the controller
//		dev, _ := ili9486.NewSPI(spiBus, &ili9486.Opts{
//			W: 480,
//			H: 320,
//		})
//		defer dev.Halt()
//
//		dev.FillScreen(rgb565.Black)
//		dev.FillRect(ili9486.Rect{X0: 200, Y0: 130, X1: 280, Y1: 190}, rgb565.Magenta)
//	}
//
// # Text
//
// Text uses fixed-cell bitmap fonts (see Font). Glyphs that would cross the
// right edge wrap to the next line, "\n" moves one font height plus one pixel
// down, and the background is either painted or left untouched:
//
//	dev.DrawString(30, 30, "KeDei 3.5 inch", font, rgb565.Blue, ili9486.Opaque(rgb565.Green))
//	dev.DrawString(0, 70, "transparent", font, rgb565.Yellow, ili9486.Transparent)
//
// Package fonts converts TinyGo tinyfont fonts to Font. Since the device is a
// drivers.Displayer, tinyfont can also draw on it directly.
//
// # Errors
//
// A failed frame is always logged through Opts.Logger. With the default
// LogAndContinue policy the operation keeps going and the failure only shows
// in Failures(); AbortOnError returns it instead.
//
// # Performance
//
// Each pixel costs two 4-byte transfers, so a full screen fill is 307200
// transfers. At 25MHz this takes a few seconds.
//
// # Datasheet
//
// https://www.displayfuture.com/Display/datasheet/controller/ILI9486L.pdf
package ili9486
