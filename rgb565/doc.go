// Package rgb565 provides the 16-bit packed color format used by the ILI9486 display controller.
//
// Each pixel is 5 bits of red, 6 bits of green and 5 bits of blue packed
// most-significant first into a uint16:
//
//	bit  15 14 13 12 11 10 9 8 7 6 5 4 3 2 1 0
//	     R  R  R  R  R  G  G G G G G B B B B B
//
// Image stores pixels as two bytes per pixel, high byte first, which is the
// order the controller expects them on the wire.
//
// This package provides:
//
// - Color: a color.Color holding one RGB565 value
// - Model: a color model converting standard Go colors to Color
// - Image: a draw.Image backed by RGB565 pixels
//
// Example usage:
//
//	img := rgb565.NewImage(image.Rect(0, 0, 480, 320))
//	img.SetRGB565(10, 20, rgb565.Magenta)
//	c := img.RGB565At(10, 20) // 0xA254
//	draw.Draw(img, img.Bounds(), image.NewUniform(rgb565.Black), image.Point{}, draw.Src)
package rgb565
