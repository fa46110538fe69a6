package paper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/exampaper/internal/model"
)

// DefaultDraftTTL is how long an untouched draft is kept.
const DefaultDraftTTL = 12 * time.Hour

// Workspace holds the drafts currently open for editing.
type Workspace struct {
	mu     sync.Mutex
	drafts map[string]*Draft
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// NewWorkspace returns an empty workspace. A ttl of zero uses DefaultDraftTTL.
func NewWorkspace(ttl time.Duration) *Workspace {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &Workspace{
		drafts: make(map[string]*Draft),
		ttl:    ttl,
		now:    time.Now,
		newID:  NewQuestionID,
	}
}

// Open registers a new draft for p and returns it.
func (w *Workspace) Open(p model.ExamPaper) *Draft {
	d := newDraft(uuid.NewString(), p, w.newID, w.now())
	w.mu.Lock()
	w.drafts[d.ID] = d
	w.mu.Unlock()
	return d
}

// Get returns the draft with id if ownerID owns it. A draft of another
// owner is reported as missing.
func (w *Workspace) Get(id, ownerID string) (*Draft, error) {
	w.mu.Lock()
	d, ok := w.drafts[id]
	w.mu.Unlock()
	if !ok || d.OwnerID() != ownerID {
		return nil, ErrDraftNotFound
	}
	d.touch(w.now())
	return d, nil
}

// Close discards a draft without saving it.
func (w *Workspace) Close(id, ownerID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.drafts[id]
	if !ok || d.OwnerID() != ownerID {
		return ErrDraftNotFound
	}
	delete(w.drafts, id)
	return nil
}

// Len returns the number of open drafts.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.drafts)
}

// Sweep drops drafts idle for longer than the TTL and returns how many
// were dropped.
func (w *Workspace) Sweep() int {
	cutoff := w.now().Add(-w.ttl)
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for id, d := range w.drafts {
		if d.idleSince(cutoff) {
			delete(w.drafts, id)
			n++
		}
	}
	return n
}

// Run sweeps expired drafts every interval until ctx is cancelled.
func (w *Workspace) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := w.Sweep(); n > 0 {
				slog.Info("expired idle drafts", "count", n)
			}
		}
	}
}
