package state

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	apperrors "github.com/kadavilrahul/github-repo-sync/internal/errors"
)

// Lock is an exclusive run lock backed by an atomically created lock file
// recording the holder's process id. A lock left behind by a dead process is
// reclaimed once.
type Lock struct {
	path string
}

// NewLock creates a lock backed by the file at path.
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Acquire takes the lock or fails with an ALREADY_LOCKED error naming the
// holder. A stale lock whose recorded pid is no longer live is removed and
// acquisition retried exactly once.
func (l *Lock) Acquire() error {
	err := l.tryAcquire()
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrExist) {
		return apperrors.NewInternalError("create lock file", err)
	}

	pid, readErr := l.holderPID()
	if readErr == nil && !processAlive(pid) {
		if rmErr := os.Remove(l.path); rmErr == nil || os.IsNotExist(rmErr) {
			if err := l.tryAcquire(); err == nil {
				return nil
			}
		}
	}

	return apperrors.NewLockedError(fmt.Sprintf("another sync run holds %s (pid %d)", l.path, pid))
}

// Release removes the lock file. Safe to call even when acquisition failed.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Lock) tryAcquire() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func (l *Lock) holderPID() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes pid with signal 0. EPERM means the process exists but
// belongs to someone else, which still counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
