package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

var fileNameReplacer = strings.NewReplacer(":", "_", "/", "_", string(filepath.Separator), "_")

// File is a lease held as an advisory lock on {dir}/{key}.lock. It only guards processes
// sharing the filesystem.
type File struct {
	dir string
}

// NewFile creates a file locker rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, fileNameReplacer.Replace(key)+".lock")
}

// Acquire try-locks the lock file.
func (f *File) Acquire(_ context.Context, key string) (Release, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	fl := flock.New(f.path(key))
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !acquired {
		return nil, fmt.Errorf("acquire %s: %w", key, ErrHeld)
	}
	return func(context.Context) error {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		return nil
	}, nil
}

// Held try-locks and immediately unlocks, without keeping the lock.
func (f *File) Held(_ context.Context, key string) (bool, error) {
	p := f.path(key)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return false, nil
	}
	fl := flock.New(p)
	acquired, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	if acquired {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}
