package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeForFilename(t *testing.T) {
	tests := []struct {
		name   string
		want   DocumentType
		wantOK bool
	}{
		{"Notes.md", TypeDiary, true},
		{"Objectives.json", TypeTasks, true},
		{"Snapshot.sketch", TypeSketch, true},
		{"Cipher.secret", TypeSecret, true},
		{"Deck.deck", TypeFlashcards, true},
		{"Deck.cards", TypeFlashcards, true},
		{"photo.png", "", false},
		{"README", "", false},
		{"archive.md.bak", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TypeForFilename(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentTypeMetadata(t *testing.T) {
	for _, typ := range DocumentTypes() {
		assert.True(t, typ.Valid(), typ)
		assert.NotEmpty(t, typ.Extension(), typ)
		assert.NotEmpty(t, typ.DefaultName(), typ)
		assert.True(t, typ.HasExtension("x"+typ.Extension()), typ)
	}

	assert.False(t, TypeDiary.Structured())
	assert.True(t, TypeTasks.Structured())
	assert.Equal(t, []string{".deck", ".cards"}, TypeFlashcards.Extensions())

	unknown := DocumentType("video")
	assert.False(t, unknown.Valid())
	assert.Empty(t, unknown.Extension())
	assert.Nil(t, unknown.Extensions())
}

func TestParseDocumentType(t *testing.T) {
	typ, ok := ParseDocumentType(" Tasks ")
	require.True(t, ok)
	assert.Equal(t, TypeTasks, typ)

	_, ok = ParseDocumentType("movie")
	assert.False(t, ok)
}

func TestDocumentAccessors(t *testing.T) {
	tasks := Document{Name: "todo.json", Type: TypeTasks, Content: json.RawMessage(`[{"text":"a","done":false},{"text":"b","done":true}]`)}
	got, err := tasks.Tasks()
	require.NoError(t, err)
	assert.Equal(t, []Task{{Text: "a"}, {Text: "b", Done: true}}, got)
	assert.Equal(t, "todo", tasks.DisplayName())

	_, err = tasks.Text()
	assert.True(t, errors.Is(err, ErrContentType))

	diary := Document{Name: "day.md", Type: TypeDiary, Content: json.RawMessage(`"dear diary"`)}
	text, err := diary.Text()
	require.NoError(t, err)
	assert.Equal(t, "dear diary", text)

	secret := Document{Name: "s.secret", Type: TypeSecret, Content: json.RawMessage(`{"plain":"hush"}`)}
	note, err := secret.Secret()
	require.NoError(t, err)
	assert.Equal(t, "hush", note.Plain)

	deck := Document{Name: "d.cards", Type: TypeFlashcards, Content: json.RawMessage(`[{"q":"2+2","a":"4"}]`)}
	cards, err := deck.Cards()
	require.NoError(t, err)
	assert.Equal(t, []Card{{Q: "2+2", A: "4"}}, cards)

	wrongShape := Document{Name: "bad.json", Type: TypeTasks, Content: json.RawMessage(`{"text":"a"}`)}
	_, err = wrongShape.Tasks()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrContentType))
}

func TestSketchDecode(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	s := NewSketch("image/png", png)

	mediaType, data, err := s.Decode()
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, png, data)

	mediaType, data, err = Sketch{Image: "data:,hello%20world"}.Decode()
	require.NoError(t, err)
	assert.Equal(t, "text/plain;charset=US-ASCII", mediaType)
	assert.Equal(t, []byte("hello world"), data)

	for _, bad := range []string{"", "image/png;base64,AAAA", "data:image/png;base64", "data:image/png;base64,***"} {
		_, _, err := Sketch{Image: bad}.Decode()
		assert.ErrorIs(t, err, ErrInvalidDataURI, bad)
	}
}

func TestListingHelpers(t *testing.T) {
	l := Listing{Documents: []Document{{Name: "a.md"}, {Name: "b.json"}}}

	assert.Equal(t, []string{"a.md", "b.json"}, l.Names())
	d, ok := l.Find("b.json")
	assert.True(t, ok)
	assert.Equal(t, "b.json", d.Name)
	_, ok = l.Find("c.md")
	assert.False(t, ok)
}

func TestDocumentJSONShape(t *testing.T) {
	d := Document{Name: "Notes.md", Type: TypeDiary, Content: json.RawMessage(`"hi"`)}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Notes.md","type":"diary","content":"hi"}`, string(b))
}

func TestSessionActive(t *testing.T) {
	assert.False(t, Session{}.Active())
	assert.True(t, Session{Username: "alice"}.Active())
}

func TestValidName(t *testing.T) {
	for _, ok := range []string{"alice", "Notes.md", "..hidden", "two words"} {
		assert.True(t, ValidName(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "nul\x00"} {
		assert.False(t, ValidName(bad), bad)
	}
}
