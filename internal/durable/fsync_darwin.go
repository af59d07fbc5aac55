//go:build darwin

package durable

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsync issues F_FULLFSYNC, which instructs the drive to flush its write
// cache (plain fsync on Darwin only flushes to the drive's buffer, not the
// platter). Falls back to a regular fsync if the filesystem doesn't
// support the fcntl (e.g. some network filesystems).
func fsync(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	if err == nil {
		return nil
	}
	return unix.Fsync(int(f.Fd()))
}
