package webconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Placeholder directories under <varlibdir>/empty.
const (
	DirPics           = "pics"
	DirSmartplaylists = "smartplaylists"
	DirMusic          = "music"
	DirPlaylists      = "playlists"
)

// EmptyDirs maintains the placeholder directories shown when browsing /browse.
type EmptyDirs interface {
	// Ensure creates name when present is true and removes it otherwise.
	Ensure(name string, present bool) error
}

// FSEmptyDirs keeps placeholders on the local filesystem below Root.
type FSEmptyDirs struct {
	Root string
}

// Ensure implements EmptyDirs. Removal only succeeds on an empty directory.
func (d FSEmptyDirs) Ensure(name string, present bool) error {
	path := filepath.Join(d.Root, name)
	if present {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
