package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileConfig configures the file backend.
type FileConfig struct {
	// Root is the directory holding one subdirectory per tag. It may
	// reference environment variables as ${NAME}.
	// Default: DefaultDir()
	Root string

	// Fs is the filesystem to write to.
	// Default: the OS filesystem
	Fs afero.Fs
}

// File stores one file per entry at <root>/<tag>/<base64url(digest)>.
type File struct {
	root string
	fs   afero.Fs
}

// NewFile creates the root directory and returns a file backend.
func NewFile(cfg FileConfig) (*File, error) {
	if err := expandAll(&cfg.Root); err != nil {
		return nil, fmt.Errorf("storage: file root: %w", err)
	}
	if cfg.Root == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.Root = dir
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if err := cfg.Fs.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create file root %s: %w", cfg.Root, err)
	}
	return &File{root: cfg.Root, fs: cfg.Fs}, nil
}

// Root returns the backend's root directory.
func (f *File) Root() string {
	return f.root
}

// Get reads the entry file. A missing file is a miss.
func (f *File) Get(_ context.Context, tag string, digest []byte) ([]byte, bool, error) {
	dir, err := f.tagDir(tag)
	if err != nil {
		return nil, false, err
	}
	data, err := afero.ReadFile(f.fs, filepath.Join(dir, entryName(digest)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: read entry: %w", err)
	}
	return data, true, nil
}

// Set writes the entry through a temporary file and renames it into place,
// so readers never observe a partially written value.
func (f *File) Set(_ context.Context, tag string, digest, value []byte) error {
	dir, err := f.tagDir(tag)
	if err != nil {
		return err
	}
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create tag dir: %w", err)
	}

	tmp, err := afero.TempFile(f.fs, dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("storage: write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("storage: close entry: %w", err)
	}
	if err := f.fs.Rename(tmpName, filepath.Join(dir, entryName(digest))); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("storage: commit entry: %w", err)
	}
	return nil
}

// DeleteAllWithTag removes the tag directory. Idempotent.
func (f *File) DeleteAllWithTag(_ context.Context, tag string) error {
	dir, err := f.tagDir(tag)
	if err != nil {
		return err
	}
	if err := f.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("storage: delete tag %s: %w", tag, err)
	}
	return nil
}

// Ping verifies the root directory is still reachable.
func (f *File) Ping(context.Context) error {
	info, err := f.fs.Stat(f.root)
	if err != nil {
		return fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: root %s is not a directory", f.root)
	}
	return nil
}

// tagDir maps a tag to its directory. Tags that would escape the root are
// rejected.
func (f *File) tagDir(tag string) (string, error) {
	if err := ValidateTag(tag); err != nil {
		return "", err
	}
	if tag == "." || tag == ".." || strings.ContainsAny(tag, `/\`) {
		return "", fmt.Errorf("%w: %q is not a valid directory name", ErrInvalidTag, tag)
	}
	return filepath.Join(f.root, tag), nil
}

func entryName(digest []byte) string {
	return base64.URLEncoding.EncodeToString(digest)
}

var (
	_ Storage = (*File)(nil)
	_ Pinger  = (*File)(nil)
)
