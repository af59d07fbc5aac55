//go:build (unix && !darwin) || linux || freebsd || openbsd || netbsd

package durable

import (
	"os"

	"golang.org/x/sys/unix"
)

func fsync(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
