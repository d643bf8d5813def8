package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"NewsCollector/internal/ports"
)

// DirStore archives listing markup as files below a root directory.
type DirStore struct {
	root string
}

var _ ports.SnapshotStore = (*DirStore)(nil)

// NewDirStore uses root, creating it on first save.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Save writes markup to root/key.
func (d *DirStore) Save(_ context.Context, key, markup string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(p, []byte(markup), 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

// Load reads root/key.
func (d *DirStore) Load(_ context.Context, key string) (string, error) {
	p, err := d.path(key)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return string(raw), nil
}

func (d *DirStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}
