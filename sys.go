package jetdb

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// flock acquires a shared advisory lock on the database file. Jet files are
// opened read-only, so any number of readers may hold it together; a writer
// holding an exclusive lock makes this fail with ErrWriteByOther.
func flock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB)
	if err == nil {
		return nil
	} else if err == unix.EWOULDBLOCK || err == unix.EAGAIN { // linux & unix
		return ErrWriteByOther
	} else {
		return errors.Wrap(err, "flock failed: unknown error")
	}
}

// funlock releases an advisory lock on a file descriptor.
func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// mmap memory maps sz bytes of the database file read-only.
func mmap(f *os.File, sz int) ([]byte, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, sz, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "mmap")
	}

	// Advise the kernel that the mmap is accessed randomly.
	if err := unix.Madvise(b, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(b)
		return nil, errors.Wrap(err, "madvise error")
	}
	return b, nil
}

// munmap unmaps a previously mapped region. A nil slice is ignored.
func munmap(b []byte) error {
	if b == nil {
		return nil
	}
	return unix.Munmap(b)
}
