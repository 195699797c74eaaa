//go:build unix

package transport

import (
	"os"

	"golang.org/x/sys/unix"
)

// preadFull reads len(p) bytes at off using the raw pread(2) syscall
// via golang.org/x/sys/unix, looping over short reads the way
// os.File.ReadAt does internally — made explicit here because
// spec.md §4.3 calls out pread-style positional reads as the
// transport's concurrency contract, matching the teacher's vfs
// layer's preference for direct syscalls over the generic ReadAt path
// when precise control over read semantics matters.
func preadFull(f *os.File, p []byte, off int64) (int, error) {
	var total int
	raw, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var serr error
	cerr := raw.Read(func(fd uintptr) bool {
		for total < len(p) {
			n, err := unix.Pread(int(fd), p[total:], off+int64(total))
			if n > 0 {
				total += n
			}
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				serr = err
				return true
			}
			if n == 0 {
				return true
			}
		}
		return true
	})
	if cerr != nil {
		return total, cerr
	}
	return total, serr
}
