// Package repository provides persistence implementations for credentials
// and per-user documents.
package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrIO marks failures of the underlying storage (disk, database).
	ErrIO = errors.New("storage failure")
	// ErrCredentialsCorrupt is returned in strict mode when the credential
	// file exists but cannot be parsed.
	ErrCredentialsCorrupt = errors.New("credential file is corrupt")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrCorrupt is returned when a document exists but cannot be decoded.
	ErrCorrupt = errors.New("document is corrupt")
	// ErrInvalidName is returned for usernames or filenames that would
	// escape their directory.
	ErrInvalidName = errors.New("invalid name")
)

// tempPattern names in-flight writes. The extension is never recognized as
// a document type, so a leftover temp file is not listed.
const tempPattern = ".easydesk-*.tmp"

func ioError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
