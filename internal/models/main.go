// Package models defines the core data structures for users, sessions and documents.
package models

import (
	"strings"
	"time"
)

// Credential is a single entry of the shared credential mapping.
type Credential struct {
	// Username identifies the user and names the user's data directory.
	// It is case-sensitive.
	Username string `json:"username"`
	// Password is stored and compared as plaintext.
	Password string `json:"password"`
}

// Session is the authenticated identity scoping every document operation.
// The zero value means no identity is active.
type Session struct {
	// ID is a random identifier used to correlate log entries of one session.
	ID string `json:"id"`
	// Username is the authenticated user.
	Username string `json:"username"`
	// StartedAt is the moment the session was established.
	StartedAt time.Time `json:"started_at"`
}

// Active reports whether the session carries an identity.
func (s Session) Active() bool {
	return s.Username != ""
}

// ValidName reports whether name can be used as a single path element:
// a username directory or a document filename.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}
