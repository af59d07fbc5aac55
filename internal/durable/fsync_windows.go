//go:build windows

package durable

import (
	"os"

	"golang.org/x/sys/windows"
)

func fsync(f *os.File) error {
	return windows.FlushFileBuffers(windows.Handle(f.Fd()))
}
