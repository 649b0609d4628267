// Package lock implements the single-instance guard: a process-wide named
// lock keyed by a hash of the absolute config path, so two agents running
// over the same config can never start concurrently.
// Modeled on a run_lock_linux.go flock idiom (open-or-create,
// lock, release-on-exit), ported from a raw golang.org/x/sys/unix.Flock
// syscall to the portable gofrs/flock wrapper so spyrun needs no
// platform-specific build tags here.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock holds an acquired exclusive lock on a well-known path derived from a
// config file's absolute path.
type Lock struct {
	fl *flock.Flock
}

// PathFor returns the lock file path for the given absolute config path:
// a SHA-256 hash of the path under the OS temp directory, so two spyrun
// processes pointed at the same config collide on the same lock file
// regardless of working directory.
func PathFor(configPath string) string {
	sum := sha256.Sum256([]byte(configPath))
	name := fmt.Sprintf("spyrun-%s.lock", hex.EncodeToString(sum[:])[:16])
	return filepath.Join(os.TempDir(), name)
}

// Acquire attempts a non-blocking exclusive lock for configPath. It returns
// an error immediately if another spyrun process already holds it, so the
// second instance exits non-zero without starting any watcher.
func Acquire(configPath string) (*Lock, error) {
	path := PathFor(configPath)

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("another spyrun instance already holds the lock for this config (%s)", path)
	}

	return &Lock{fl: fl}, nil
}

// Release unlocks and closes the underlying file descriptor. Safe to call
// on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
