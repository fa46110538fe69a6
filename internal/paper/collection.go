// Package paper holds the exam paper authoring core: the ordered question
// collection, editing drafts, and the persistence adapter.
package paper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pavelanni/exampaper/internal/generate"
	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/validate"
)

var (
	ErrQuestionNotFound     = errors.New("question not found")
	ErrTooFewOptions        = errors.New("multiple choice questions need at least two options")
	ErrConfirmationRequired = errors.New("deleting a question must be confirmed")
)

// Field names a single editable question field.
type Field string

const (
	FieldPrompt Field = "prompt"
	FieldType   Field = "type"
	FieldAnswer Field = "answer"
	FieldMarks  Field = "marks"
)

// NewQuestionID returns a collision-free question identifier.
func NewQuestionID() string {
	return "q-" + uuid.NewString()
}

// Collection is the ordered question list of one paper. It is not safe for
// concurrent use; Draft serializes access.
type Collection struct {
	questions []model.Question
	newID     func() string
}

// NewCollection returns an empty collection. A nil newID uses NewQuestionID.
func NewCollection(newID func() string) *Collection {
	if newID == nil {
		newID = NewQuestionID
	}
	return &Collection{newID: newID}
}

// Load replaces the contents with qs, re-keying blank or repeated ids so
// identity stays unique.
func (c *Collection) Load(qs []model.Question) {
	seen := make(map[string]bool, len(qs))
	c.questions = make([]model.Question, 0, len(qs))
	for _, q := range qs {
		q = q.Clone()
		if q.ID == "" || seen[q.ID] {
			q.ID = c.newID()
		}
		seen[q.ID] = true
		c.questions = append(c.questions, q)
	}
}

// Len returns the number of questions.
func (c *Collection) Len() int {
	return len(c.questions)
}

// Questions returns a copy of the ordered questions.
func (c *Collection) Questions() []model.Question {
	out := make([]model.Question, len(c.questions))
	for i, q := range c.questions {
		out[i] = q.Clone()
	}
	return out
}

// Get returns a copy of the question with the given id.
func (c *Collection) Get(id string) (model.Question, error) {
	i, err := c.index(id)
	if err != nil {
		return model.Question{}, err
	}
	return c.questions[i].Clone(), nil
}

// Stats derives per-type counts and total marks from the current list.
func (c *Collection) Stats() model.Stats {
	return model.ComputeStats(c.questions)
}

func (c *Collection) index(id string) (int, error) {
	for i := range c.questions {
		if c.questions[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
}

// Add appends a blank multiple choice question and returns its id.
func (c *Collection) Add() string {
	q := model.NewQuestion(model.MultipleChoice, c.newID())
	c.questions = append(c.questions, q)
	return q.ID
}

// Update sets one field of a question. The value must be a string for
// prompt, type and answer, and an integer for marks.
func (c *Collection) Update(id string, field Field, value any) error {
	i, err := c.index(id)
	if err != nil {
		return err
	}
	q := c.questions[i].Clone()

	switch field {
	case FieldPrompt, "question":
		s, ok := value.(string)
		if !ok {
			return fieldKindError(field, "a string")
		}
		q.Prompt = s
	case FieldAnswer:
		s, ok := value.(string)
		if !ok {
			return fieldKindError(field, "a string")
		}
		if q.Type == model.YesNo && !model.ValidYesNoAnswer(s) {
			return validate.New("invalid answer", model.Violation{Field: string(field), Message: `must be "Yes", "No" or empty`})
		}
		q.Answer = s
	case FieldMarks:
		n, ok := toInt(value)
		if !ok {
			return fieldKindError(field, "an integer")
		}
		if n <= 0 {
			return validate.New("invalid marks", model.Violation{Field: string(field), Message: "must be a positive integer"})
		}
		q.Marks = n
	case FieldType:
		s, ok := value.(string)
		if !ok {
			return fieldKindError(field, "a string")
		}
		t := model.QuestionType(s)
		if !t.Valid() {
			return validate.New("invalid type", model.Violation{Field: string(field), Message: fmt.Sprintf("unknown question type %q", s)})
		}
		retype(&q, t)
	default:
		return validate.New("invalid field", model.Violation{Field: string(field), Message: "is not editable"})
	}

	c.questions[i] = q
	return nil
}

// retype switches q to t while keeping the options invariant.
func retype(q *model.Question, t model.QuestionType) {
	if q.Type == t {
		return
	}
	q.Type = t
	switch t {
	case model.MultipleChoice:
		if len(q.Options) < model.MinOptions {
			q.Options = model.EmptyOptions(model.DefaultOptionSlots)
		}
	default:
		q.Options = nil
	}
	if t == model.YesNo && !model.ValidYesNoAnswer(q.Answer) {
		q.Answer = ""
	}
}

func fieldKindError(field Field, kind string) error {
	return validate.New("invalid value", model.Violation{Field: string(field), Message: "must be " + kind})
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func (c *Collection) mcq(id string) (int, error) {
	i, err := c.index(id)
	if err != nil {
		return -1, err
	}
	if c.questions[i].Type != model.MultipleChoice {
		return -1, validate.New("options are only editable on multiple choice questions",
			model.Violation{Field: "options", Message: "question is " + string(c.questions[i].Type)})
	}
	return i, nil
}

func optionIndexError(index, n int) error {
	return validate.New("invalid option index",
		model.Violation{Field: "index", Message: fmt.Sprintf("%d is out of range [0, %d)", index, n)})
}

// UpdateOption replaces one option string of a multiple choice question.
func (c *Collection) UpdateOption(id string, index int, value string) error {
	i, err := c.mcq(id)
	if err != nil {
		return err
	}
	opts := c.questions[i].Options
	if index < 0 || index >= len(opts) {
		return optionIndexError(index, len(opts))
	}
	opts = append([]string(nil), opts...)
	opts[index] = value
	c.questions[i].Options = opts
	return nil
}

// AddOption appends an empty option to a multiple choice question and
// returns its index.
func (c *Collection) AddOption(id string) (int, error) {
	i, err := c.mcq(id)
	if err != nil {
		return -1, err
	}
	opts := append(append([]string(nil), c.questions[i].Options...), "")
	c.questions[i].Options = opts
	return len(opts) - 1, nil
}

// RemoveOption deletes one option. It is refused when fewer than two options
// would remain.
func (c *Collection) RemoveOption(id string, index int) error {
	i, err := c.mcq(id)
	if err != nil {
		return err
	}
	opts := c.questions[i].Options
	if index < 0 || index >= len(opts) {
		return optionIndexError(index, len(opts))
	}
	if len(opts) <= model.MinOptions {
		return ErrTooFewOptions
	}
	next := make([]string, 0, len(opts)-1)
	next = append(next, opts[:index]...)
	next = append(next, opts[index+1:]...)
	c.questions[i].Options = next
	return nil
}

// Remove deletes a question. confirmed must be true; there is no undo.
func (c *Collection) Remove(id string, confirmed bool) error {
	i, err := c.index(id)
	if err != nil {
		return err
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	c.questions = append(c.questions[:i], c.questions[i+1:]...)
	return nil
}

// Reorder moves the question with id to newIndex, shifting the others. An
// out-of-range index is clamped to the ends of the list.
func (c *Collection) Reorder(id string, newIndex int) error {
	from, err := c.index(id)
	if err != nil {
		return err
	}
	last := len(c.questions) - 1
	to := min(max(newIndex, 0), last)
	if from == to {
		return nil
	}
	q := c.questions[from]
	if from < to {
		copy(c.questions[from:to], c.questions[from+1:to+1])
	} else {
		copy(c.questions[to+1:from+1], c.questions[to:from])
	}
	c.questions[to] = q
	return nil
}

// AppendGenerated maps generated items onto questions and appends them after
// the existing ones. It returns the number appended.
func (c *Collection) AppendGenerated(items []generate.RawItem) int {
	qs := generate.ToQuestions(items, c.uniqueID)
	c.questions = append(c.questions, qs...)
	return len(qs)
}

// uniqueID draws ids until one is unused, guarding against a weak generator.
func (c *Collection) uniqueID() string {
	for {
		id := c.newID()
		if _, err := c.index(id); err != nil {
			return id
		}
	}
}

// Problems lists validation findings per question, keyed by 1-based position.
func (c *Collection) Problems() []string {
	var out []string
	for i, q := range c.questions {
		for _, v := range model.Validate(q) {
			out = append(out, fmt.Sprintf("question %d: %s", i+1, v))
		}
		if strings.TrimSpace(q.Prompt) == "" {
			out = append(out, fmt.Sprintf("question %d: question text is empty", i+1))
		}
	}
	return out
}
