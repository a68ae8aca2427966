package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// FileCredentialRepository keeps the username → password mapping in a single
// JSON object on disk.
type FileCredentialRepository struct {
	path   string
	strict bool
	log    *zap.Logger
	mu     sync.Mutex
}

// NewFileCredentialRepository creates a repository backed by the file at path.
// A missing file is an empty mapping. When strict is false an unparsable
// file is also treated as empty and a warning is logged.
func NewFileCredentialRepository(path string, strict bool, log *zap.Logger) *FileCredentialRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileCredentialRepository{path: path, strict: strict, log: log}
}

// Lookup returns the stored password of username.
func (r *FileCredentialRepository) Lookup(ctx context.Context, username string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return "", false, err
	}
	password, ok := users[username]
	return password, ok, nil
}

// Insert adds username with password unless the username is already taken.
// It reports whether the pair was written.
func (r *FileCredentialRepository) Insert(ctx context.Context, username, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return false, err
	}
	if _, exists := users[username]; exists {
		return false, nil
	}
	users[username] = password
	if err := r.save(users); err != nil {
		return false, err
	}
	return true, nil
}

// Usernames returns every registered username in lexical order.
func (r *FileCredentialRepository) Usernames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *FileCredentialRepository) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, ioError("read credentials", err)
	}

	var users map[string]string
	if err := json.Unmarshal(data, &users); err != nil {
		if r.strict {
			return nil, fmt.Errorf("%w: %s: %v", ErrCredentialsCorrupt, r.path, err)
		}
		r.log.Warn("credential file unreadable, treating as empty",
			zap.String("path", r.path), zap.Error(err))
		return map[string]string{}, nil
	}
	if users == nil {
		users = map[string]string{}
	}
	return users, nil
}

func (r *FileCredentialRepository) save(users map[string]string) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return ioError("create credential dir", err)
	}
	if err := writeFileAtomic(r.path, data, 0o600); err != nil {
		return ioError("write credentials", err)
	}
	return nil
}
