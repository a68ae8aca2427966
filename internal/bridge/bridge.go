// Package bridge connects a presentation layer to the authentication and
// document services. It owns the process-wide session and reports results
// as events instead of return values.
package bridge

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/EasyDesk/internal/models"
	"github.com/atinyakov/EasyDesk/internal/service"
)

// Authenticator is the subset of service.AuthService used by the Bridge.
type Authenticator interface {
	AuthenticateOrRegister(ctx context.Context, username, password string) (models.Session, error)
	OtherUsers(ctx context.Context, session models.Session) ([]string, error)
}

// Documents is the subset of service.DocumentService used by the Bridge.
type Documents interface {
	List(ctx context.Context, session models.Session) (models.Listing, error)
	Open(ctx context.Context, session models.Session, name string) (models.Document, error)
	Save(ctx context.Context, session models.Session, req service.SaveRequest) (models.Listing, error)
	Delete(ctx context.Context, session models.Session, name string) (models.Listing, error)
	Transfer(ctx context.Context, session models.Session, recipient, name, payload string) (models.Listing, error)
}

// Bridge serializes presentation requests against a single active session.
// Calls made without an active session are ignored, except
// SubmitCredentials.
type Bridge struct {
	auth   Authenticator
	docs   Documents
	notify Notifier
	log    *zap.Logger

	// inferContent selects service.KindAuto for every save.
	inferContent bool

	mu      sync.Mutex
	session models.Session
}

// New creates a Bridge without an active session.
func New(auth Authenticator, docs Documents, notify Notifier, inferContent bool, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	if notify == nil {
		notify = NotifierFunc(func(Event) {})
	}
	return &Bridge{auth: auth, docs: docs, notify: notify, inferContent: inferContent, log: log}
}

// Session returns the active session, or the zero Session.
func (b *Bridge) Session() models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// SubmitCredentials logs in or registers username. On success the session
// replaces any previous one and SessionStarted, DocumentsLoaded and
// UsersLoaded are emitted in that order. A password mismatch emits nothing
// and returns nil.
func (b *Bridge) SubmitCredentials(ctx context.Context, username, password string) error {
	session, err := b.auth.AuthenticateOrRegister(ctx, username, password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return nil
	}
	if err != nil {
		return b.fail("authenticate", err)
	}

	b.mu.Lock()
	b.session = session
	b.mu.Unlock()

	b.notify.Notify(Event{Kind: SessionStarted, Username: session.Username})
	if err := b.RequestDocumentList(ctx); err != nil {
		return err
	}
	return b.RequestOtherUsers(ctx)
}

// RequestDocumentList emits DocumentsLoaded with the current listing.
func (b *Bridge) RequestDocumentList(ctx context.Context) error {
	session, ok := b.active()
	if !ok {
		return nil
	}
	listing, err := b.docs.List(ctx, session)
	if err != nil {
		return b.fail("list documents", err)
	}
	b.notify.Notify(documentsLoaded(listing))
	return nil
}

// SubmitSave stores a document and emits DocumentsLoaded.
func (b *Bridge) SubmitSave(ctx context.Context, name, content string, typ models.DocumentType) error {
	session, ok := b.active()
	if !ok {
		return nil
	}
	listing, err := b.docs.Save(ctx, session, service.SaveRequest{
		Name:    name,
		Type:    typ,
		Content: content,
		Kind:    service.KindFor(typ, b.inferContent),
	})
	if err != nil {
		return b.fail("save document", err)
	}
	b.notify.Notify(documentsLoaded(listing))
	return nil
}

// SubmitDelete removes a document and emits DocumentsLoaded.
func (b *Bridge) SubmitDelete(ctx context.Context, name string) error {
	session, ok := b.active()
	if !ok {
		return nil
	}
	listing, err := b.docs.Delete(ctx, session, name)
	if err != nil {
		return b.fail("delete document", err)
	}
	b.notify.Notify(documentsLoaded(listing))
	return nil
}

// SubmitTransfer sends payload to recipient as a secret document and emits
// DocumentsLoaded with the sender's own listing.
func (b *Bridge) SubmitTransfer(ctx context.Context, recipient, name, payload string) error {
	session, ok := b.active()
	if !ok {
		return nil
	}
	listing, err := b.docs.Transfer(ctx, session, recipient, name, payload)
	if err != nil {
		return b.fail("transfer document", err)
	}
	b.notify.Notify(documentsLoaded(listing))
	return nil
}

// RequestOtherUsers emits UsersLoaded.
func (b *Bridge) RequestOtherUsers(ctx context.Context) error {
	session, ok := b.active()
	if !ok {
		return nil
	}
	users, err := b.auth.OtherUsers(ctx, session)
	if err != nil {
		return b.fail("list users", err)
	}
	b.notify.Notify(Event{Kind: UsersLoaded, Users: users})
	return nil
}

// Open reads one document of the active user. Unlike the Submit calls it
// returns service.ErrNoSession when no session is active.
func (b *Bridge) Open(ctx context.Context, name string) (models.Document, error) {
	session, ok := b.active()
	if !ok {
		return models.Document{}, service.ErrNoSession
	}
	return b.docs.Open(ctx, session, name)
}

// SignOut clears the session and emits SessionEnded.
func (b *Bridge) SignOut() {
	b.mu.Lock()
	session := b.session
	b.session = models.Session{}
	b.mu.Unlock()

	if !session.Active() {
		return
	}
	b.log.Info("session ended", zap.String("user", session.Username), zap.String("session", session.ID))
	b.notify.Notify(Event{Kind: SessionEnded, Username: session.Username})
}

func (b *Bridge) active() (models.Session, bool) {
	session := b.Session()
	return session, session.Active()
}

func (b *Bridge) fail(op string, err error) error {
	if errors.Is(err, service.ErrNoSession) {
		return nil
	}
	b.log.Error("request failed", zap.String("op", op), zap.Error(err))
	return err
}
