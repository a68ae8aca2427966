package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrContentType is returned by typed content accessors called on a document
// of another type.
var ErrContentType = errors.New("document is not of the requested type")

// ErrInvalidDataURI is returned when a sketch image is not a data URI.
var ErrInvalidDataURI = errors.New("invalid data URI")

// DocumentType defines the closed set of document kinds.
type DocumentType string

const (
	// TypeDiary is a journal entry stored as raw text.
	TypeDiary DocumentType = "diary"
	// TypeTasks is an ordered task list.
	TypeTasks DocumentType = "tasks"
	// TypeSketch is a freehand drawing stored as an image data URI.
	TypeSketch DocumentType = "sketch"
	// TypeSecret is a note displayed through a Caesar cipher.
	TypeSecret DocumentType = "secret"
	// TypeFlashcards is an ordered deck of question/answer cards.
	TypeFlashcards DocumentType = "flashcards"
)

type typeInfo struct {
	// extensions lists the recognized extensions, canonical one first.
	extensions  []string
	defaultName string
	structured  bool
}

var documentTypes = map[DocumentType]typeInfo{
	TypeDiary:      {extensions: []string{".md"}, defaultName: "Thought"},
	TypeTasks:      {extensions: []string{".json"}, defaultName: "Objectives", structured: true},
	TypeSketch:     {extensions: []string{".sketch"}, defaultName: "Snapshot", structured: true},
	TypeSecret:     {extensions: []string{".secret"}, defaultName: "Cipher", structured: true},
	TypeFlashcards: {extensions: []string{".deck", ".cards"}, defaultName: "Deck", structured: true},
}

// DocumentTypes returns every known type in a stable order.
func DocumentTypes() []DocumentType {
	return []DocumentType{TypeDiary, TypeTasks, TypeSketch, TypeSecret, TypeFlashcards}
}

// ParseDocumentType converts s into a DocumentType.
func ParseDocumentType(s string) (DocumentType, bool) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t is one of the known types.
func (t DocumentType) Valid() bool {
	_, ok := documentTypes[t]
	return ok
}

// Extension returns the extension used when saving a document of type t.
func (t DocumentType) Extension() string {
	info, ok := documentTypes[t]
	if !ok {
		return ""
	}
	return info.extensions[0]
}

// Extensions returns all extensions recognized as type t.
func (t DocumentType) Extensions() []string {
	info, ok := documentTypes[t]
	if !ok {
		return nil
	}
	return append([]string(nil), info.extensions...)
}

// DefaultName is the base name used when a document is saved without one.
func (t DocumentType) DefaultName() string {
	return documentTypes[t].defaultName
}

// Structured reports whether documents of type t hold a JSON payload
// rather than raw text.
func (t DocumentType) Structured() bool {
	return documentTypes[t].structured
}

// HasExtension reports whether name already ends with one of t's extensions.
func (t DocumentType) HasExtension(name string) bool {
	for _, ext := range documentTypes[t].extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// TypeForFilename maps a filename to its document type by extension.
func TypeForFilename(name string) (DocumentType, bool) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", false
	}
	for t, info := range documentTypes {
		for _, e := range info.extensions {
			if e == ext {
				return t, true
			}
		}
	}
	return "", false
}

// Task is one entry of a task list.
type Task struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Sketch wraps a self-contained raster image.
type Sketch struct {
	// Image is a data URI, e.g. "data:image/png;base64,...".
	Image string `json:"image"`
}

// NewSketch builds a sketch from raw image bytes.
func NewSketch(mediaType string, data []byte) Sketch {
	return Sketch{Image: "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)}
}

// Decode splits the data URI into its media type and raw bytes.
func (s Sketch) Decode() (string, []byte, error) {
	rest, ok := strings.CutPrefix(s.Image, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "text/plain;charset=US-ASCII"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
		return mediaType, data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mediaType, []byte(data), nil
}

// SecretNote is the persisted form of a secret document. Only the plain
// text is stored; the ciphered view is derived on display.
type SecretNote struct {
	Plain string `json:"plain"`
}

// Card is one flashcard.
type Card struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// Document is one persisted unit of user content.
type Document struct {
	// Name is the on-disk filename including its extension.
	Name string `json:"name"`
	// Type is derived from the extension of Name.
	Type DocumentType `json:"type"`
	// Content is the JSON form of the payload. For diary documents it is a
	// JSON string holding the raw file text.
	Content json.RawMessage `json:"content"`
}

// DisplayName returns the filename without its extension.
func (d Document) DisplayName() string {
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}

// Text returns the raw text of a diary document.
func (d Document) Text() (string, error) {
	var s string
	if err := d.decode(TypeDiary, &s); err != nil {
		return "", err
	}
	return s, nil
}

// Tasks returns the entries of a task list.
func (d Document) Tasks() ([]Task, error) {
	var tasks []Task
	if err := d.decode(TypeTasks, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Sketch returns the image of a sketch document.
func (d Document) Sketch() (Sketch, error) {
	var s Sketch
	if err := d.decode(TypeSketch, &s); err != nil {
		return Sketch{}, err
	}
	return s, nil
}

// Secret returns the plain content of a secret document.
func (d Document) Secret() (SecretNote, error) {
	var s SecretNote
	if err := d.decode(TypeSecret, &s); err != nil {
		return SecretNote{}, err
	}
	return s, nil
}

// Cards returns the cards of a flashcard deck.
func (d Document) Cards() ([]Card, error) {
	var cards []Card
	if err := d.decode(TypeFlashcards, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (d Document) decode(want DocumentType, v any) error {
	if d.Type != want {
		return fmt.Errorf("%w: %s is %s, not %s", ErrContentType, d.Name, d.Type, want)
	}
	if err := json.Unmarshal(d.Content, v); err != nil {
		return fmt.Errorf("decode %s content of %s: %w", want, d.Name, err)
	}
	return nil
}

// SkippedEntry describes a recognized file that could not be listed.
type SkippedEntry struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Listing is the full set of documents of one user.
type Listing struct {
	Documents []Document     `json:"documents"`
	Skipped   []SkippedEntry `json:"skipped,omitempty"`
}

// Find returns the document with the given filename.
func (l Listing) Find(name string) (Document, bool) {
	for _, d := range l.Documents {
		if d.Name == name {
			return d, true
		}
	}
	return Document{}, false
}

// Names returns the filenames of all listed documents.
func (l Listing) Names() []string {
	names := make([]string, 0, len(l.Documents))
	for _, d := range l.Documents {
		names = append(names, d.Name)
	}
	return names
}
