//go:build !unix

package cookie

// restrictive has no umask to scope here; files still get the 0600 create mode.
func restrictive(fn func() error) error {
	return fn()
}
