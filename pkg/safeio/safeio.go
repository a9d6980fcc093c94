/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/

// Package safeio holds the file-handling contract around the pure patch
// engine: path canonicalization for intent matching and atomic manifest
// replacement so an interrupted process never leaves a truncated file.
package safeio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanUserPath cleans a user-provided relative path and rejects traversal
// attempts. Returns paths with forward slashes, the separator manifests use.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(strings.TrimSpace(p))
	if c == ".." || strings.HasPrefix(c, "../") || strings.Contains(c, "/../") {
		return "", errors.New("path traversal detected")
	}
	return filepath.ToSlash(c), nil
}

// WriteFileAtomic writes data to path by writing a temporary file in the
// same directory, syncing it, and renaming it over the destination. The
// existing file mode is preserved; new files get 0644. On any failure the
// destination is untouched and the temporary file is removed.
func WriteFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		if m := st.Mode() & 0o777; m != 0 {
			mode = m
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WriteFilePreservePerms writes data to path preserving existing file mode
// when possible. When the file does not exist, it uses a default of 0644.
// Unlike WriteFileAtomic this writes in place; use it for side files such
// as backups, never for the manifest itself.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		if m := st.Mode() & 0o777; m != 0 {
			mode = m
		}
	}
	return os.WriteFile(path, data, mode)
}
