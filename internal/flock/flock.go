// Package flock serialises processes with advisory file locks.
package flock

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/errors"
	"golang.org/x/sys/unix"

	"github.com/alecthomas/inject/internal"
)

const retryInterval = 50 * time.Millisecond

// Acquire an exclusive lock on path, creating the file if necessary.
//
// If the lock is held elsewhere Acquire retries until timeout elapses. A
// timeout of zero makes a single attempt. The returned function releases the
// lock.
func Acquire(ctx context.Context, path string, timeout time.Duration) (release func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600) //nolint
	if err != nil {
		return nil, errors.Errorf("failed to open lock file %s: %w", path, err)
	}
	deadline := time.Now().Add(timeout)
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB) //nolint
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) || !time.Now().Before(deadline) {
			_ = f.Close()
			return nil, errors.Errorf("failed to acquire lock %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, errors.Wrap(ctx.Err(), "failed to acquire lock")
		case <-time.After(internal.Jitter(retryInterval)):
		}
	}
	return func() error {
		err := unix.Flock(int(f.Fd()), unix.LOCK_UN) //nolint
		closeErr := f.Close()
		if err != nil {
			return errors.Errorf("failed to release lock %s: %w", path, err)
		}
		return errors.WithStack(closeErr)
	}, nil
}
