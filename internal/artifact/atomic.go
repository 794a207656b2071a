// Package artifact writes prediction, validation and snapshot files.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to the previous version of a replaced file.
const BackupSuffix = ".bak"

// AtomicWriter replaces files so that a reader never observes a partial write.
// The previous version is kept at path+BackupSuffix.
type AtomicWriter struct {
	rename func(oldpath, newpath string) error
}

// NewAtomicWriter creates a writer backed by os.Rename.
func NewAtomicWriter() *AtomicWriter {
	return &AtomicWriter{rename: os.Rename}
}

// Write stores data at path: temp file in the same directory, fsync, move any
// existing file to the backup, rename the temp file into place. If the final
// rename fails the backup is restored.
func (w *AtomicWriter) Write(path string, data []byte) (err error) {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	backup := path + BackupSuffix
	hadPrevious := false
	if _, statErr := os.Stat(path); statErr == nil {
		if err = w.rename(path, backup); err != nil {
			return fmt.Errorf("failed to back up %s: %w", path, err)
		}
		hadPrevious = true
	}

	if err = w.rename(tmpName, path); err != nil {
		if hadPrevious {
			if restoreErr := w.rename(backup, path); restoreErr != nil {
				return fmt.Errorf("failed to replace %s: %w (restore failed: %v)", path, err, restoreErr)
			}
		}
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	syncDir(dir)
	return nil
}

// WriteJSON marshals v with indentation and writes it atomically.
func (w *AtomicWriter) WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return w.Write(path, append(data, '\n'))
}

// ReadJSON loads a file written by WriteJSON.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// syncDir flushes the directory entry so the rename survives a crash. Best effort.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
