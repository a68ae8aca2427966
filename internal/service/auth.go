// Package service provides the authentication and document business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/EasyDesk/internal/models"
)

var (
	// ErrInvalidUsername is returned for usernames that cannot name a directory.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidCredentials is returned when a known username is paired with
	// a different password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession is returned by document operations called without an
	// active session.
	ErrNoSession = errors.New("no active session")
)

// CredentialRepository defines the persistence operations
// required by the authentication service.
type CredentialRepository interface {
	// Lookup returns the stored password of username and whether it exists.
	Lookup(ctx context.Context, username string) (string, bool, error)
	// Insert stores a new username/password pair. It reports false without
	// error when the username is already taken.
	Insert(ctx context.Context, username, password string) (bool, error)
	// Usernames returns every registered username in lexical order.
	Usernames(ctx context.Context) ([]string, error)
}

// UserDirectories prepares per-user storage.
type UserDirectories interface {
	// EnsureUserDir creates the storage directory of username if needed.
	EnsureUserDir(ctx context.Context, username string) error
}

// AuthService implements register-on-first-use authentication by delegating
// to a CredentialRepository.
type AuthService struct {
	// repo performs the credential persistence.
	repo CredentialRepository
	// dirs creates user directories for authenticated users.
	dirs UserDirectories
	log  *zap.Logger
	now  func() time.Time
}

// NewAuthService constructs a new AuthService using the provided repository
// and directory provider.
func NewAuthService(repo CredentialRepository, dirs UserDirectories, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{repo: repo, dirs: dirs, log: log, now: time.Now}
}

// AuthenticateOrRegister starts a session for username.
// An unseen username is registered with password and persisted immediately.
// A known username succeeds only when password matches exactly; otherwise
// ErrInvalidCredentials is returned and nothing is written.
// The user's directory is ensured on every successful call.
func (s *AuthService) AuthenticateOrRegister(ctx context.Context, username, password string) (models.Session, error) {
	if !models.ValidName(username) {
		return models.Session{}, fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}

	stored, found, err := s.repo.Lookup(ctx, username)
	if err != nil {
		return models.Session{}, fmt.Errorf("lookup %q: %w", username, err)
	}

	registered := false
	if !found {
		inserted, err := s.repo.Insert(ctx, username, password)
		if err != nil {
			return models.Session{}, fmt.Errorf("register %q: %w", username, err)
		}
		if inserted {
			registered = true
		} else {
			// another writer registered the name between lookup and insert
			stored, found, err = s.repo.Lookup(ctx, username)
			if err != nil {
				return models.Session{}, fmt.Errorf("lookup %q: %w", username, err)
			}
			if !found {
				return models.Session{}, fmt.Errorf("register %q: user neither inserted nor present", username)
			}
		}
	}

	if !registered && subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		s.log.Debug("password mismatch", zap.String("user", username))
		return models.Session{}, ErrInvalidCredentials
	}

	if err := s.dirs.EnsureUserDir(ctx, username); err != nil {
		return models.Session{}, fmt.Errorf("prepare directory of %q: %w", username, err)
	}

	session := models.Session{
		ID:        uuid.NewString(),
		Username:  username,
		StartedAt: s.now(),
	}
	if registered {
		s.log.Info("user registered", zap.String("user", username))
	}
	s.log.Info("session started", zap.String("user", username), zap.String("session", session.ID))
	return session, nil
}

// UserExists checks whether username is registered.
func (s *AuthService) UserExists(ctx context.Context, username string) (bool, error) {
	_, found, err := s.repo.Lookup(ctx, username)
	return found, err
}

// OtherUsers lists every registered username except the session's own.
func (s *AuthService) OtherUsers(ctx context.Context, session models.Session) ([]string, error) {
	if !session.Active() {
		return nil, ErrNoSession
	}
	names, err := s.repo.Usernames(ctx)
	if err != nil {
		return nil, err
	}
	others := make([]string, 0, len(names))
	for _, name := range names {
		if name != session.Username {
			others = append(others, name)
		}
	}
	return others, nil
}
