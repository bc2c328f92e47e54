package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SafePath joins elems under baseDir and returns an error if the result would
// escape baseDir. Each element must be a plain relative name.
func SafePath(baseDir string, elems ...string) (string, error) {
	for _, e := range elems {
		if e == "" {
			return "", fmt.Errorf("invalid path element: empty")
		}
		if filepath.IsAbs(e) {
			return "", fmt.Errorf("invalid path element %q: absolute paths not allowed", e)
		}
		if strings.Contains(e, "..") {
			return "", fmt.Errorf("invalid path element %q: path traversal not allowed", e)
		}
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for base directory: %w", err)
	}
	fullPath := filepath.Join(append([]string{absBase}, elems...)...)

	// Trailing separator prevents /foo/bar matching /foo/barbaz.
	prefix := absBase
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if fullPath != absBase && !strings.HasPrefix(fullPath, prefix) {
		return "", fmt.Errorf("path outside base directory not allowed")
	}
	return fullPath, nil
}

// WriteFileAtomic writes data to path via a temporary file in the same
// directory, fsyncs it and renames it into place, so readers never observe a
// partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
