package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores each key as a JSON file in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend uses dir, or the user cache directory when dir is empty.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		var err error
		if dir, err = defaultCacheDir(); err != nil {
			return nil, err
		}
	}
	return &FileBackend{dir: dir}, nil
}

// defaultCacheDir prefers XDG_CACHE_HOME and falls back to ~/.cache.
func defaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "studio"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "studio"), nil
}

func (f *FileBackend) path(key string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, key)
	return filepath.Join(f.dir, name+".json")
}

func (f *FileBackend) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return data, nil
}

// Save writes through a temp file so a crash never leaves a torn blob.
func (f *FileBackend) Save(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }
