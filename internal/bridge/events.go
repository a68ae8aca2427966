package bridge

import (
	"fmt"

	"github.com/atinyakov/EasyDesk/internal/models"
)

// EventKind identifies a notification sent to the presentation layer.
type EventKind int

const (
	// SessionStarted follows a successful login or registration.
	SessionStarted EventKind = iota + 1
	// DocumentsLoaded carries the current user's full listing.
	DocumentsLoaded
	// UsersLoaded carries every registered user except the current one.
	UsersLoaded
	// SessionEnded follows a sign out.
	SessionEnded
)

func (k EventKind) String() string {
	switch k {
	case SessionStarted:
		return "session_started"
	case DocumentsLoaded:
		return "documents_loaded"
	case UsersLoaded:
		return "users_loaded"
	case SessionEnded:
		return "session_ended"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Username  string
	Documents []models.Document
	Skipped   []models.SkippedEntry
	Users     []string
}

// Notifier receives events. Notify is called synchronously from the
// goroutine that triggered the event.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) {
	f(e)
}

func documentsLoaded(listing models.Listing) Event {
	return Event{Kind: DocumentsLoaded, Documents: listing.Documents, Skipped: listing.Skipped}
}
