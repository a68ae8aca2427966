package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/EasyDesk/internal/models"
)

var (
	// ErrUnknownType is returned when a save names a type outside the closed set.
	ErrUnknownType = errors.New("unknown document type")
	// ErrInvalidContent is returned when structured content is not valid JSON.
	ErrInvalidContent = errors.New("invalid document content")
	// ErrUnknownRecipient is returned when a transfer targets an unregistered user.
	ErrUnknownRecipient = errors.New("unknown recipient")
)

// ContentKind tells Save how to encode the submitted content.
type ContentKind int

const (
	// KindAuto stores content as compact JSON when it parses as JSON and
	// verbatim otherwise.
	KindAuto ContentKind = iota
	// KindText stores content verbatim.
	KindText
	// KindJSON requires content to be valid JSON and stores it compacted.
	KindJSON
)

// String returns the lowercase name of the kind.
func (k ContentKind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindText:
		return "text"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("ContentKind(%d)", int(k))
	}
}

// KindFor returns the content kind matching the storage form of typ:
// text for diary entries and JSON for every structured type.
// With infer set, KindAuto is returned regardless of the type.
func KindFor(typ models.DocumentType, infer bool) ContentKind {
	switch {
	case infer:
		return KindAuto
	case typ.Structured():
		return KindJSON
	default:
		return KindText
	}
}

// DocumentRepository defines the persistence operations needed by the
// DocumentService.
type DocumentRepository interface {
	// List returns every recognized document of username.
	List(ctx context.Context, username string) (models.Listing, error)
	// Read loads one document of username by filename.
	Read(ctx context.Context, username, filename string) (models.Document, error)
	// Write stores data under filename, replacing any existing file.
	Write(ctx context.Context, username, filename string, data []byte) error
	// Remove deletes filename. A missing file is not an error.
	Remove(ctx context.Context, username, filename string) error
}

// Recipients reports whether a username is registered.
type Recipients interface {
	UserExists(ctx context.Context, username string) (bool, error)
}

// SaveRequest describes one document save.
type SaveRequest struct {
	// Name is the requested filename, with or without extension.
	// A blank name selects the type's default name.
	Name string
	// Type selects the extension and storage form.
	Type models.DocumentType
	// Content is the serialized payload.
	Content string
	// Kind selects how Content is encoded on disk.
	Kind ContentKind
}

// DocumentService implements per-user document storage.
// Every operation is scoped to the directory of the session's user.
type DocumentService struct {
	repo       DocumentRepository
	recipients Recipients
	log        *zap.Logger
}

// NewDocumentService constructs a DocumentService. recipients validates
// transfer targets.
func NewDocumentService(repo DocumentRepository, recipients Recipients, log *zap.Logger) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentService{repo: repo, recipients: recipients, log: log}
}

// List returns every recognized document of the session's user.
// Entries that could not be read are reported in Listing.Skipped.
func (s *DocumentService) List(ctx context.Context, session models.Session) (models.Listing, error) {
	if !session.Active() {
		return models.Listing{}, ErrNoSession
	}
	listing, err := s.repo.List(ctx, session.Username)
	if err != nil {
		return models.Listing{}, fmt.Errorf("list documents of %q: %w", session.Username, err)
	}
	for _, skipped := range listing.Skipped {
		s.log.Warn("document skipped",
			zap.String("user", session.Username),
			zap.String("file", skipped.Name),
			zap.String("reason", skipped.Reason),
		)
	}
	return listing, nil
}

// Open reads a single document of the session's user.
func (s *DocumentService) Open(ctx context.Context, session models.Session, name string) (models.Document, error) {
	if !session.Active() {
		return models.Document{}, ErrNoSession
	}
	return s.repo.Read(ctx, session.Username, name)
}

// Save writes a document into the session user's directory, overwriting any
// file of the same name, and returns the refreshed listing.
func (s *DocumentService) Save(ctx context.Context, session models.Session, req SaveRequest) (models.Listing, error) {
	if !session.Active() {
		return models.Listing{}, ErrNoSession
	}
	if !req.Type.Valid() {
		return models.Listing{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}

	data, err := encodeContent(req.Content, req.Kind)
	if err != nil {
		return models.Listing{}, err
	}

	filename := Filename(req.Name, req.Type)
	if err := s.repo.Write(ctx, session.Username, filename, data); err != nil {
		return models.Listing{}, fmt.Errorf("save %s: %w", filename, err)
	}
	s.log.Info("document saved",
		zap.String("user", session.Username),
		zap.String("file", filename),
		zap.Stringer("kind", req.Kind),
	)
	return s.List(ctx, session)
}

// Delete removes a document of the session's user and returns the refreshed
// listing. Deleting a missing document is not an error.
func (s *DocumentService) Delete(ctx context.Context, session models.Session, name string) (models.Listing, error) {
	if !session.Active() {
		return models.Listing{}, ErrNoSession
	}
	if err := s.repo.Remove(ctx, session.Username, name); err != nil {
		return models.Listing{}, fmt.Errorf("delete %s: %w", name, err)
	}
	s.log.Info("document deleted", zap.String("user", session.Username), zap.String("file", name))
	return s.List(ctx, session)
}

// Transfer writes payload as a secret document into the directory of
// recipient and returns the sender's refreshed listing.
func (s *DocumentService) Transfer(ctx context.Context, session models.Session, recipient, name, payload string) (models.Listing, error) {
	if !session.Active() {
		return models.Listing{}, ErrNoSession
	}
	if !models.ValidName(recipient) {
		return models.Listing{}, fmt.Errorf("%w: %q", ErrUnknownRecipient, recipient)
	}
	exists, err := s.recipients.UserExists(ctx, recipient)
	if err != nil {
		return models.Listing{}, fmt.Errorf("check recipient %q: %w", recipient, err)
	}
	if !exists {
		return models.Listing{}, fmt.Errorf("%w: %q", ErrUnknownRecipient, recipient)
	}

	data, err := json.Marshal(models.SecretNote{Plain: payload})
	if err != nil {
		return models.Listing{}, err
	}
	filename := Filename(name, models.TypeSecret)
	if err := s.repo.Write(ctx, recipient, filename, data); err != nil {
		return models.Listing{}, fmt.Errorf("transfer %s to %q: %w", filename, recipient, err)
	}
	s.log.Info("document transferred",
		zap.String("user", session.Username),
		zap.String("recipient", recipient),
		zap.String("file", filename),
	)
	return s.List(ctx, session)
}

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-", "\x00", "-",
)

// Filename derives the on-disk filename for a document named name of type typ.
// A blank name, or one that is only an extension of typ, becomes the type's
// default name. Characters that are invalid in filenames become "-", and the
// type's extension is appended unless name already ends with one of its
// extensions. Filename is idempotent.
func Filename(name string, typ models.DocumentType) string {
	if trimmed := strings.TrimSpace(name); trimmed == "" || slices.Contains(typ.Extensions(), trimmed) {
		name = typ.DefaultName()
	}
	name = filenameReplacer.Replace(name)
	if typ.HasExtension(name) {
		return name
	}
	return name + typ.Extension()
}

func encodeContent(content string, kind ContentKind) ([]byte, error) {
	switch kind {
	case KindText:
		return []byte(content), nil
	case KindJSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(content)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
		return buf.Bytes(), nil
	case KindAuto:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(content)); err != nil {
			return []byte(content), nil
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", ErrInvalidContent, kind)
	}
}
