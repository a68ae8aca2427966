package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/atinyakov/EasyDesk/internal/models"
)

// FileDocumentRepository stores each user's documents as files in
// <root>/<username>/. The extension of a file determines its type.
type FileDocumentRepository struct {
	root string
}

// NewFileDocumentRepository creates a repository rooted at root (the data directory).
func NewFileDocumentRepository(root string) *FileDocumentRepository {
	return &FileDocumentRepository{root: root}
}

// Root returns the data directory.
func (s *FileDocumentRepository) Root() string {
	return s.root
}

// EnsureUserDir creates the directory of username if it does not exist.
func (s *FileDocumentRepository) EnsureUserDir(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.userDir(username)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioError("create user dir", err)
	}
	return nil
}

// List reads every recognized document of username.
// Files with unrecognized extensions and directories are ignored. Symbolic
// links are followed and listed when they point at a regular file. Recognized files that
// cannot be read or decoded are reported in Listing.Skipped.
// A missing user directory yields an empty listing.
func (s *FileDocumentRepository) List(ctx context.Context, username string) (models.Listing, error) {
	listing := models.Listing{Documents: []models.Document{}}
	if err := ctx.Err(); err != nil {
		return listing, err
	}
	dir, err := s.userDir(username)
	if err != nil {
		return listing, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return listing, nil
		}
		return listing, ioError("read user dir", err)
	}

	for _, entry := range entries {
		typ, ok := models.TypeForFilename(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		regular, err := isRegularFile(entry, path)
		if err != nil {
			listing.Skipped = append(listing.Skipped, models.SkippedEntry{
				Name:   entry.Name(),
				Reason: err.Error(),
			})
			continue
		}
		if !regular {
			continue
		}
		doc, err := readDocument(path, entry.Name(), typ)
		if err != nil {
			listing.Skipped = append(listing.Skipped, models.SkippedEntry{
				Name:   entry.Name(),
				Reason: err.Error(),
			})
			continue
		}
		listing.Documents = append(listing.Documents, doc)
	}
	return listing, nil
}

// Read loads a single document of username.
func (s *FileDocumentRepository) Read(ctx context.Context, username, filename string) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return models.Document{}, err
	}
	path, err := s.documentPath(username, filename)
	if err != nil {
		return models.Document{}, err
	}
	typ, ok := models.TypeForFilename(filename)
	if !ok {
		return models.Document{}, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return readDocument(path, filename, typ)
}

// Write stores data as filename in the directory of username, replacing any
// existing file. The user directory is created if needed.
func (s *FileDocumentRepository) Write(ctx context.Context, username, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.documentPath(username, filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ioError("create user dir", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return ioError("write document", err)
	}
	return nil
}

// Remove deletes filename from the directory of username.
// Removing a missing file is not an error.
func (s *FileDocumentRepository) Remove(ctx context.Context, username, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.documentPath(username, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioError("remove document", err)
	}
	return nil
}

// isRegularFile reports whether entry is a regular file, following a
// symbolic link to its target.
func isRegularFile(entry fs.DirEntry, path string) (bool, error) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("%w: %s: dangling link: %v", ErrCorrupt, entry.Name(), err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *FileDocumentRepository) userDir(username string) (string, error) {
	if !models.ValidName(username) {
		return "", fmt.Errorf("%w: username %q", ErrInvalidName, username)
	}
	return filepath.Join(s.root, username), nil
}

func (s *FileDocumentRepository) documentPath(username, filename string) (string, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return "", err
	}
	if !models.ValidName(filename) {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidName, filename)
	}
	return filepath.Join(dir, filename), nil
}

func readDocument(path, name string, typ models.DocumentType) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return models.Document{}, ioError("read document", err)
	}
	if !utf8.Valid(data) {
		return models.Document{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrCorrupt, name)
	}

	var content json.RawMessage
	if typ.Structured() {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return models.Document{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
		}
		content = buf.Bytes()
	} else {
		content, err = json.Marshal(string(data))
		if err != nil {
			return models.Document{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
		}
	}

	return models.Document{Name: name, Type: typ, Content: content}, nil
}
