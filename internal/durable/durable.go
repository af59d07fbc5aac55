// Package durable fsyncs a file to its platform's actual durability
// guarantee: plain fsync on Linux/BSD, F_FULLFSYNC (falling back to
// fsync) on Darwin, and FlushFileBuffers on Windows. Grounded on the
// build-tag split the teacher uses for its mmap platform shims.
package durable

import "os"

// Fsync flushes f's in-kernel buffers to stable storage, using the
// strongest primitive the platform offers.
func Fsync(f *os.File) error {
	return fsync(f)
}
