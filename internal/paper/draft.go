package paper

import (
	"errors"
	"sync"
	"time"

	"github.com/pavelanni/exampaper/internal/model"
)

var (
	// ErrBusy is returned when a network operation is already running on a draft.
	ErrBusy          = errors.New("draft is busy")
	ErrDraftNotFound = errors.New("draft not found")
)

// BusyState names the network operation a draft is waiting on.
type BusyState string

const (
	Idle       BusyState = ""
	Generating BusyState = "generating"
	Saving     BusyState = "saving"
)

// Draft is one paper open for editing. All access goes through its mutex.
type Draft struct {
	ID string

	mu        sync.Mutex
	paper     model.ExamPaper
	questions *Collection
	busy      BusyState
	touched   time.Time
}

// DraftView is a consistent snapshot of a draft.
type DraftView struct {
	ID        string             `json:"id"`
	PaperID   string             `json:"paperId,omitempty"`
	OwnerID   string             `json:"userId"`
	ProjectID string             `json:"projectId"`
	Settings  model.ExamSettings `json:"settings"`
	Questions []model.Question   `json:"questions"`
	Stats     model.Stats        `json:"stats"`
	Busy      BusyState          `json:"busy,omitempty"`
	Version   int64              `json:"version,omitempty"`
	CreatedAt time.Time          `json:"createdAt,omitzero"`
	UpdatedAt time.Time          `json:"updatedAt,omitzero"`
	Problems  []string           `json:"problems,omitempty"`
}

func newDraft(id string, p model.ExamPaper, newID func() string, now time.Time) *Draft {
	c := NewCollection(newID)
	c.Load(p.Questions)
	p.Questions = nil
	return &Draft{ID: id, paper: p, questions: c, touched: now}
}

// OwnerID returns the owner of the draft.
func (d *Draft) OwnerID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paper.OwnerID
}

// View returns a snapshot of the draft.
func (d *Draft) View() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *Draft) viewLocked() DraftView {
	return DraftView{
		ID:        d.ID,
		PaperID:   d.paper.ID,
		OwnerID:   d.paper.OwnerID,
		ProjectID: d.paper.ProjectID,
		Settings:  d.paper.Settings,
		Questions: d.questions.Questions(),
		Stats:     d.questions.Stats(),
		Busy:      d.busy,
		Version:   d.paper.Version,
		CreatedAt: d.paper.CreatedAt,
		UpdatedAt: d.paper.UpdatedAt,
		Problems:  d.questions.Problems(),
	}
}

// Edit runs fn against the question collection under the draft lock. Edits
// are allowed while a network operation is in flight.
func (d *Draft) Edit(fn func(c *Collection) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.questions)
}

// UpdateSettings merges patch into the draft's settings.
func (d *Draft) UpdateSettings(patch model.SettingsPatch) (model.ExamSettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := ApplySettings(d.paper.Settings, patch)
	if err != nil {
		return d.paper.Settings, err
	}
	d.paper.Settings = s
	return s, nil
}

// Snapshot returns the paper as it would be saved now.
func (d *Draft) Snapshot() model.ExamPaper {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Draft) snapshotLocked() model.ExamPaper {
	p := d.paper
	p.Questions = d.questions.Questions()
	return p
}

// begin marks the draft busy with state. It fails with ErrBusy if another
// network operation is running.
func (d *Draft) begin(state BusyState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy != Idle {
		return ErrBusy
	}
	d.busy = state
	return nil
}

func (d *Draft) end() {
	d.mu.Lock()
	d.busy = Idle
	d.mu.Unlock()
}

// markSaved records the persisted identity of saved. Questions edited while
// the save was in flight are kept as they are.
func (d *Draft) markSaved(saved model.ExamPaper) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paper.ID = saved.ID
	d.paper.Version = saved.Version
	d.paper.CreatedAt = saved.CreatedAt
	d.paper.UpdatedAt = saved.UpdatedAt
}

func (d *Draft) touch(now time.Time) {
	d.mu.Lock()
	d.touched = now
	d.mu.Unlock()
}

// idleSince reports whether the draft has been untouched since cutoff and
// has no operation in flight.
func (d *Draft) idleSince(cutoff time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy == Idle && d.touched.Before(cutoff)
}
