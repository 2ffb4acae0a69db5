package blockfile

import (
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

var ErrWriteByOther = errors.New("block object opened with write mode by another process")

// flock acquires an advisory lock on an object file: exclusive for writable
// handles, shared for read-only ones.
func flock(f *os.File, readOnly bool) error {
	flag := syscall.LOCK_EX
	if readOnly {
		flag = syscall.LOCK_SH
	}

	err := syscall.Flock(int(f.Fd()), flag|syscall.LOCK_NB)
	if err == nil {
		return nil
	} else if err.(syscall.Errno) == syscall.EWOULDBLOCK || err.(syscall.Errno) == syscall.EAGAIN { // linux & unix
		return ErrWriteByOther
	} else {
		return errors.Wrap(err, "flock failed: unknown error")
	}
}

// waitflock retries the lock until timeout. A zero timeout means a single
// attempt.
func waitflock(f *os.File, readOnly bool, timeout time.Duration) error {
	var t time.Time
	for {
		err := flock(f, readOnly)
		if !errors.Is(err, ErrWriteByOther) {
			return err
		}
		if t.IsZero() {
			t = time.Now()
		}
		if timeout <= 0 || time.Since(t) > timeout {
			return err
		}
		// Wait for a bit and try again.
		time.Sleep(50 * time.Millisecond)
	}
}

// funlock releases an advisory lock on an object file.
func funlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
