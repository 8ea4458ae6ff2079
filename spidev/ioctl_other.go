//go:build !linux

package spidev

import (
	"errors"
	"unsafe"
)

func ioctl(fd, req uintptr, arg unsafe.Pointer) error {
	return errors.ErrUnsupported
}
