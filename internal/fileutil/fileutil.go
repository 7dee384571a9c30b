package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FS is the filesystem surface the status engine reads through.
type FS interface {
	Exists(path string) bool
	IsDir(path string) bool
	IsFile(path string) bool
	IsReadable(path string) bool
	ReadAll(path string) ([]byte, error)
	Glob(pattern string) ([]string, error)
	// Walk visits every entry below root in lexical order. It stops with
	// ctx.Err() once the context is done.
	Walk(ctx context.Context, root string, fn fs.WalkDirFunc) error
}

// OS implements FS against the host filesystem.
type OS struct{}

func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OS) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (OS) IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsReadable reports whether the effective user may read path.
func (OS) IsReadable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

func (OS) ReadAll(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OS) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

func (OS) Walk(ctx context.Context, root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fn(path, d, err)
	})
}

// Accessible reports whether the effective user holds every mode bit in
// mode (unix.R_OK, unix.W_OK, unix.X_OK) on path.
func Accessible(path string, mode uint32) bool {
	return unix.Access(path, mode) == nil
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// RemoveIfExists deletes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
