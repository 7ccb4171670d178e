//go:build unix

package cookie

import (
	"sync"

	"golang.org/x/sys/unix"
)

const restrictiveUmask = 0o077

// umaskMu serializes umask changes; the umask is process-wide.
var umaskMu sync.Mutex

// restrictive runs fn with umask 0077 and restores the previous mask on every
// exit path, panics included.
func restrictive(fn func() error) error {
	umaskMu.Lock()
	defer umaskMu.Unlock()

	old := unix.Umask(restrictiveUmask)
	defer unix.Umask(old)

	return fn()
}
