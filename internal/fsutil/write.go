package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteError reports a failed output write. Op names the step that failed.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteFileAtomic writes data to path through a temporary file in the same
// directory followed by a rename, creating the directory first. Readers see
// either the old file or the complete new one. It returns the absolute path
// written.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &WriteError{Path: path, Op: "resolve path", Err: err}
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &WriteError{Path: abs, Op: "create directory", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return "", &WriteError{Path: abs, Op: "create temporary file", Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", &WriteError{Path: abs, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", &WriteError{Path: abs, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &WriteError{Path: abs, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return "", &WriteError{Path: abs, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", &WriteError{Path: abs, Op: "rename", Err: err}
	}
	committed = true
	return abs, nil
}
