package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"idproof/pkg/platform/sentinel"
)

// Local stores objects as files under a root directory, one subtree per
// storage class. Writes go through a temp file and rename so readers never
// observe partial objects.
type Local struct {
	root     string
	notifier *Notifier
}

// NewLocal creates a local store rooted at root. notifier may be nil.
func NewLocal(root string, notifier *Notifier) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{abs, filepath.Join(abs, "tmp"), filepath.Join(abs, ClassOriginal), filepath.Join(abs, ClassDerived)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Local{root: abs, notifier: notifier}, nil
}

// Put writes data under key and publishes a created-object event.
func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := l.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	l.notifier.Publish(Event{Key: key, At: time.Now()})
	return nil
}

// Get returns the object bytes for key.
func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("object %s: %w", key, sentinel.ErrNotFound)
	}
	return data, err
}

// Delete removes the object. Missing objects are ignored.
func (l *Local) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Health verifies the root directory is still accessible.
func (l *Local) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(l.root)
	return err
}

// SweepClass removes objects in a storage class older than maxAge and
// returns how many were reclaimed. This is the lifecycle rule for the class;
// pipeline code never deletes by age itself.
func (l *Local) SweepClass(ctx context.Context, class string, maxAge time.Duration) (int, error) {
	if class != ClassOriginal && class != ClassDerived {
		return 0, fmt.Errorf("unknown storage class %q", class)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	root := filepath.Join(l.root, class)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func (l *Local) pathFromKey(key string) (string, error) {
	if _, err := ParseKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}
