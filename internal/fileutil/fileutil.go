package fileutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteStream copies r into path via a sibling temp file and renames it into
// place once the copy completes. A failed copy leaves no partial file behind.
func WriteStream(path string, r io.Reader, mode os.FileMode) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return written, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return written, err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return written, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return written, err
	}
	return written, nil
}

// WriteFileAtomic is WriteStream for in-memory payloads.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	_, err := WriteStream(path, bytes.NewReader(data), mode)
	return err
}

// UniquePath returns dir/name, or dir/"name (n).ext" with the smallest n that
// does not exist yet.
func UniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); os.IsNotExist(err) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
