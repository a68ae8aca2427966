// Package shell implements the interactive terminal front end that drives
// the bridge: it turns typed commands into bridge requests and prints the
// events it receives.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/EasyDesk/internal/bridge"
	"github.com/atinyakov/EasyDesk/internal/cipher"
	"github.com/atinyakov/EasyDesk/internal/models"
	"github.com/atinyakov/EasyDesk/internal/service"
)

const promptText = "easydesk> "

const usage = `Available commands:
  help                        show this message
  login [user]                sign in, registering unknown users
  list                        list your documents
  show <file>                 print a document
  diary [name]                write a diary entry, finish with "."
  tasks [name]                write a task list, one per line ("[x] " marks done)
  cards [name]                write flashcards as "question | answer"
  secret [name]               store a secret note
  sketch <name> <png>         import a PNG image as a sketch
  export <file> <png>         write a sketch image to a PNG file
  encode <file>               print the ciphered view of a secret
  decode <text>               decipher text
  save <type> <name> <data>   store raw content ("-" selects the default name)
  delete <file>               delete a document
  users                       list other users
  send <user> <file>          send a document to another user as a secret
  logout                      sign out
  exit                        quit`

var errNotSignedIn = errors.New("not signed in, use login first")

// Backend is the request surface of bridge.Bridge.
type Backend interface {
	Session() models.Session
	SubmitCredentials(ctx context.Context, username, password string) error
	RequestDocumentList(ctx context.Context) error
	SubmitSave(ctx context.Context, name, content string, typ models.DocumentType) error
	SubmitDelete(ctx context.Context, name string) error
	SubmitTransfer(ctx context.Context, recipient, name, payload string) error
	RequestOtherUsers(ctx context.Context) error
	Open(ctx context.Context, name string) (models.Document, error)
	SignOut()
	StartAutosave(ctx context.Context, interval time.Duration, src bridge.DraftSource) <-chan struct{}
}

// Shell is a line-oriented REPL. It implements bridge.Notifier and keeps the
// latest listing and user list it was notified of.
type Shell struct {
	prompt   *Prompter
	out      io.Writer
	cipher   cipher.Caesar
	autosave time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	documents []models.Document
	skipped   []models.SkippedEntry
	users     []string
}

// New creates a Shell reading commands from in and writing to out.
// Diary entries being composed are autosaved every autosave interval.
func New(in io.Reader, out io.Writer, c cipher.Caesar, autosave time.Duration, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{
		prompt:   NewPrompter(in, out),
		out:      out,
		cipher:   c,
		autosave: autosave,
		log:      log,
	}
}

// Notify implements bridge.Notifier.
func (s *Shell) Notify(e bridge.Event) {
	s.mu.Lock()
	switch e.Kind {
	case bridge.DocumentsLoaded:
		s.documents, s.skipped = e.Documents, e.Skipped
	case bridge.UsersLoaded:
		s.users = e.Users
	case bridge.SessionEnded:
		s.documents, s.skipped, s.users = nil, nil, nil
	}
	s.mu.Unlock()

	switch e.Kind {
	case bridge.SessionStarted:
		fmt.Fprintf(s.out, "Signed in as %s\n", e.Username)
	case bridge.SessionEnded:
		fmt.Fprintf(s.out, "Signed out %s\n", e.Username)
	}
}

// Run executes commands until "exit", the end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context, b Backend) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := s.prompt.Line(promptText)
		if !ok {
			fmt.Fprintln(s.out)
			return s.prompt.Err()
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(s.out, "Bye")
			return nil
		}
		if err := s.dispatch(ctx, b, args, line); err != nil {
			s.log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *Shell) dispatch(ctx context.Context, b Backend, args []string, line string) error {
	cmd := args[0]
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, usage)
		return nil
	case "login":
		return s.login(ctx, b, args)
	case "logout":
		b.SignOut()
		return nil
	case "decode":
		fmt.Fprintln(s.out, s.cipher.Decode(tail(line, 1)))
		return nil
	}

	if !b.Session().Active() {
		switch cmd {
		case "list", "show", "diary", "tasks", "cards", "secret", "sketch",
			"export", "encode", "save", "delete", "users", "send":
			return errNotSignedIn
		}
	}

	switch cmd {
	case "list":
		if err := b.RequestDocumentList(ctx); err != nil {
			return err
		}
		s.printListing()
	case "show":
		if len(args) < 2 {
			return usageError("show <file>")
		}
		doc, err := b.Open(ctx, tail(line, 1))
		if err != nil {
			return err
		}
		return s.render(doc)
	case "diary":
		return s.composeDiary(ctx, b, tail(line, 1))
	case "tasks":
		return s.composeTasks(ctx, b, tail(line, 1))
	case "cards":
		return s.composeCards(ctx, b, tail(line, 1))
	case "secret":
		return s.composeSecret(ctx, b, tail(line, 1))
	case "sketch":
		if len(args) != 3 {
			return usageError("sketch <name> <png>")
		}
		return s.importSketch(ctx, b, args[1], args[2])
	case "export":
		if len(args) != 3 {
			return usageError("export <file> <png>")
		}
		return s.exportSketch(ctx, b, args[1], args[2])
	case "encode":
		if len(args) < 2 {
			return usageError("encode <file>")
		}
		return s.encode(ctx, b, tail(line, 1))
	case "save":
		if len(args) < 3 {
			return usageError("save <type> <name> <data>")
		}
		return s.saveRaw(ctx, b, args[1], args[2], tail(line, 3))
	case "delete":
		if len(args) < 2 {
			return usageError("delete <file>")
		}
		if err := b.SubmitDelete(ctx, tail(line, 1)); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Deleted %s\n", tail(line, 1))
	case "users":
		if err := b.RequestOtherUsers(ctx); err != nil {
			return err
		}
		s.printUsers()
	case "send":
		if len(args) < 3 {
			return usageError("send <user> <file>")
		}
		return s.send(ctx, b, args[1], tail(line, 2))
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func usageError(form string) error {
	return fmt.Errorf("usage: %s", form)
}

func (s *Shell) login(ctx context.Context, b Backend, args []string) error {
	username := ""
	if len(args) > 1 {
		username = args[1]
	} else {
		line, ok := s.prompt.Line("Username: ")
		if !ok {
			return io.ErrUnexpectedEOF
		}
		username = strings.TrimSpace(line)
	}
	password, ok := s.prompt.Line("Password: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}

	before := b.Session()
	if err := b.SubmitCredentials(ctx, username, password); err != nil {
		return err
	}
	if after := b.Session(); after.ID == before.ID {
		fmt.Fprintln(s.out, "Login failed: wrong password")
	}
	return nil
}

func (s *Shell) save(ctx context.Context, b Backend, name string, typ models.DocumentType, content string) error {
	if err := b.SubmitSave(ctx, name, content, typ); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", service.Filename(name, typ))
	return nil
}

func (s *Shell) saveRaw(ctx context.Context, b Backend, typeName, name, content string) error {
	typ, ok := models.ParseDocumentType(typeName)
	if !ok {
		return fmt.Errorf("%w: %q", service.ErrUnknownType, typeName)
	}
	if name == "-" {
		name = ""
	}
	return s.save(ctx, b, name, typ, content)
}

func (s *Shell) composeDiary(ctx context.Context, b Backend, name string) error {
	fmt.Fprintln(s.out, `Write your entry. Finish with a line containing only "."`)

	d := &draft{current: bridge.Draft{Name: name, Type: models.TypeDiary}}
	actx, cancel := context.WithCancel(ctx)
	done := b.StartAutosave(actx, s.autosave, d)
	lines, err := s.prompt.Block(func(lines []string) {
		d.update(strings.Join(lines, "\n"))
	})
	cancel()
	<-done
	if err != nil {
		return err
	}

	return s.save(ctx, b, name, models.TypeDiary, strings.Join(lines, "\n"))
}

func (s *Shell) composeTasks(ctx context.Context, b Backend, name string) error {
	fmt.Fprintln(s.out, `One task per line, "[x] " marks a done task. Finish with "."`)

	lines, err := s.prompt.Block(nil)
	if err != nil {
		return err
	}
	tasks := []models.Task{}
	for _, line := range lines {
		if task, ok := parseTask(line); ok {
			tasks = append(tasks, task)
		}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return s.save(ctx, b, name, models.TypeTasks, string(data))
}

func parseTask(line string) (models.Task, bool) {
	line = strings.TrimSpace(line)
	done := false
	if rest, ok := strings.CutPrefix(line, "[x]"); ok {
		line, done = rest, true
	} else if rest, ok := strings.CutPrefix(line, "[ ]"); ok {
		line = rest
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return models.Task{}, false
	}
	return models.Task{Text: line, Done: done}, true
}

func (s *Shell) composeCards(ctx context.Context, b Backend, name string) error {
	fmt.Fprintln(s.out, `One card per line as "question | answer". Finish with "."`)

	lines, err := s.prompt.Block(nil)
	if err != nil {
		return err
	}
	cards := []models.Card{}
	for _, line := range lines {
		q, a, _ := strings.Cut(line, "|")
		q, a = strings.TrimSpace(q), strings.TrimSpace(a)
		if q == "" {
			continue
		}
		cards = append(cards, models.Card{Q: q, A: a})
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return err
	}
	return s.save(ctx, b, name, models.TypeFlashcards, string(data))
}

func (s *Shell) composeSecret(ctx context.Context, b Backend, name string) error {
	plain, ok := s.prompt.Line("Secret: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	data, err := json.Marshal(models.SecretNote{Plain: plain})
	if err != nil {
		return err
	}
	if err := s.save(ctx, b, name, models.TypeSecret, string(data)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Encoded: %s\n", s.cipher.Encode(plain))
	return nil
}

func (s *Shell) importSketch(ctx context.Context, b Backend, name, path string) error {
	img, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if mediaType := http.DetectContentType(img); mediaType != "image/png" {
		return fmt.Errorf("%s is not a PNG image (%s)", path, mediaType)
	}
	data, err := json.Marshal(models.NewSketch("image/png", img))
	if err != nil {
		return err
	}
	return s.save(ctx, b, name, models.TypeSketch, string(data))
}

func (s *Shell) exportSketch(ctx context.Context, b Backend, file, path string) error {
	doc, err := b.Open(ctx, file)
	if err != nil {
		return err
	}
	sketch, err := doc.Sketch()
	if err != nil {
		return err
	}
	_, img, err := sketch.Decode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Wrote %d bytes to %s\n", len(img), path)
	return nil
}

func (s *Shell) encode(ctx context.Context, b Backend, file string) error {
	doc, err := b.Open(ctx, file)
	if err != nil {
		return err
	}
	note, err := doc.Secret()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.cipher.Encode(note.Plain))
	return nil
}

func (s *Shell) send(ctx context.Context, b Backend, recipient, file string) error {
	doc, err := b.Open(ctx, file)
	if err != nil {
		return err
	}
	payload, err := plainText(doc)
	if err != nil {
		return err
	}
	if err := b.SubmitTransfer(ctx, recipient, doc.DisplayName(), payload); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Sent %s to %s\n", service.Filename(doc.DisplayName(), models.TypeSecret), recipient)
	return nil
}

// plainText returns the text carried when doc is sent to another user.
func plainText(doc models.Document) (string, error) {
	switch doc.Type {
	case models.TypeDiary:
		return doc.Text()
	case models.TypeSecret:
		note, err := doc.Secret()
		return note.Plain, err
	default:
		return string(doc.Content), nil
	}
}

func (s *Shell) render(doc models.Document) error {
	fmt.Fprintf(s.out, "%s (%s)\n", doc.Name, doc.Type)
	switch doc.Type {
	case models.TypeDiary:
		text, err := doc.Text()
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, text)
	case models.TypeTasks:
		tasks, err := doc.Tasks()
		if err != nil {
			return err
		}
		for i, t := range tasks {
			mark := " "
			if t.Done {
				mark = "x"
			}
			fmt.Fprintf(s.out, "%d. [%s] %s\n", i+1, mark, t.Text)
		}
	case models.TypeSketch:
		sketch, err := doc.Sketch()
		if err != nil {
			return err
		}
		mediaType, img, err := sketch.Decode()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "image %s, %d bytes\n", mediaType, len(img))
	case models.TypeSecret:
		note, err := doc.Secret()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "plain:   %s\nencoded: %s\n", note.Plain, s.cipher.Encode(note.Plain))
	case models.TypeFlashcards:
		cards, err := doc.Cards()
		if err != nil {
			return err
		}
		for i, c := range cards {
			fmt.Fprintf(s.out, "%d. Q: %s\n   A: %s\n", i+1, c.Q, c.A)
		}
	}
	return nil
}

func (s *Shell) printListing() {
	s.mu.Lock()
	docs, skipped := s.documents, s.skipped
	s.mu.Unlock()

	if len(docs) == 0 {
		fmt.Fprintln(s.out, "No documents")
	}
	for _, d := range docs {
		fmt.Fprintf(s.out, "  %-10s %s\n", d.Type, d.Name)
	}
	for _, sk := range skipped {
		fmt.Fprintf(s.out, "  skipped %s: %s\n", sk.Name, sk.Reason)
	}
}

func (s *Shell) printUsers() {
	s.mu.Lock()
	users := s.users
	s.mu.Unlock()

	if len(users) == 0 {
		fmt.Fprintln(s.out, "No other users")
		return
	}
	for _, u := range users {
		fmt.Fprintf(s.out, "  %s\n", u)
	}
}

// draft tracks the diary entry being composed for autosave.
type draft struct {
	mu      sync.Mutex
	current bridge.Draft
	dirty   bool
}

func (d *draft) update(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current.Content = content
	d.dirty = true
}

// PendingDraft implements bridge.DraftSource.
func (d *draft) PendingDraft() (bridge.Draft, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dirty {
		return bridge.Draft{}, false
	}
	d.dirty = false
	return d.current, true
}
