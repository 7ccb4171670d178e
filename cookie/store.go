package cookie

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrRedisUnavailable wraps Redis failures of the store, lock and throttle.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store persists jars by fingerprint. Append never rewrites earlier tokens.
type Store interface {
	// Load returns the persisted jar. A missing jar is nil without error.
	Load(ctx context.Context, fp string) (Jar, error)
	// Append adds every cookie of jar in a single write.
	Append(ctx context.Context, fp string, jar Jar) error
}

const filePrefix = "cookie"

// FileStore keeps one file per fingerprint.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. An empty dir resolves to
// os.TempDir() on every access.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file that holds the jar of fp.
func (s *FileStore) Path(fp string) string {
	dir := s.dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, filePrefix+fp)
}

// Load reads the jar file of fp.
func (s *FileStore) Load(ctx context.Context, fp string) (Jar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(fp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}
	return ParseJar(string(data)), nil
}

// Append writes jar to the file of fp under a restrictive umask. The file is
// created with mode 0600 and opened for append only.
func (s *FileStore) Append(ctx context.Context, fp string, jar Jar) error {
	if len(jar) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(fp)
	payload := []byte(jar.Encode())

	return restrictive(func() (err error) {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open cookie jar: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close cookie jar: %w", cerr)
			}
		}()
		if _, err := f.Write(payload); err != nil {
			return fmt.Errorf("write cookie jar: %w", err)
		}
		return nil
	})
}
