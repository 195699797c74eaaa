//go:build !unix

package transport

import "os"

// preadFull falls back to os.File.ReadAt on non-unix platforms, where
// golang.org/x/sys/unix.Pread is unavailable.
func preadFull(f *os.File, p []byte, off int64) (int, error) {
	return f.ReadAt(p, off)
}
