package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/EasyDesk/internal/models"
)

// Draft is unsaved editor content.
type Draft struct {
	Name    string
	Type    models.DocumentType
	Content string
}

// DraftSource reports the draft to persist on the next autosave tick.
// It returns false when nothing changed since the last tick.
type DraftSource interface {
	PendingDraft() (Draft, bool)
}

// DraftFunc adapts a function to the DraftSource interface.
type DraftFunc func() (Draft, bool)

// PendingDraft calls f().
func (f DraftFunc) PendingDraft() (Draft, bool) {
	return f()
}

// StartAutosave saves the pending draft of src every interval until ctx is
// cancelled. The returned channel is closed once the loop has exited and no
// save is in flight. A non-positive interval disables autosave.
func (b *Bridge) StartAutosave(ctx context.Context, interval time.Duration, src DraftSource) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				draft, ok := src.PendingDraft()
				if !ok {
					continue
				}
				// a save already started completes even if ctx is cancelled meanwhile
				if err := b.SubmitSave(context.WithoutCancel(ctx), draft.Name, draft.Content, draft.Type); err != nil {
					b.log.Error("autosave failed", zap.String("file", draft.Name), zap.Error(err))
					continue
				}
				b.log.Debug("autosaved draft", zap.String("file", draft.Name))
			}
		}
	}()
	return done
}
