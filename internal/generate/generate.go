// Package generate talks to the external question generation service and maps
// its loosely typed items onto the question model.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/validate"
)

// MaxCount bounds how many questions one batch may ask for.
const MaxCount = 50

// ErrGeneration is matched by every failed generation batch.
var ErrGeneration = errors.New("question generation failed")

// Generator produces raw question items for a request. Any error means the
// whole batch failed and nothing should be appended.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]RawItem, error)
}

// Request describes one generation batch.
type Request struct {
	OwnerID     string
	SessionID   string
	ProjectID   string
	DocumentIDs []string
	Type        model.QuestionType
	Difficulty  model.Difficulty
	Count       int
}

// Validate rejects a request before any network call is made.
func (r Request) Validate() error {
	var vs []model.Violation
	if r.OwnerID == "" {
		vs = append(vs, model.Violation{Field: "userId", Message: "is required"})
	}
	if r.ProjectID == "" {
		vs = append(vs, model.Violation{Field: "projectId", Message: "is required"})
	}
	if len(r.DocumentIDs) == 0 {
		vs = append(vs, model.Violation{Field: "documentIds", Message: "select at least one document"})
	}
	if !r.Type.Valid() {
		vs = append(vs, model.Violation{Field: "type", Message: fmt.Sprintf("unknown question type %q", r.Type)})
	}
	if !model.ValidDifficulty(r.Difficulty) {
		vs = append(vs, model.Violation{Field: "difficulty", Message: "must be beginner, intermediate or advanced"})
	}
	if r.Count < 1 || r.Count > MaxCount {
		vs = append(vs, model.Violation{Field: "count", Message: fmt.Sprintf("must be between 1 and %d", MaxCount)})
	}
	if len(vs) > 0 {
		return validate.New("invalid generation request", vs...)
	}
	return nil
}

// ServiceError reports a failed batch together with any message the service gave.
type ServiceError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrGeneration.Error())
	if e.Status != 0 {
		sb.WriteString(fmt.Sprintf(" (status %d)", e.Status))
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Err}
}

// RawItem is one question as returned by a generator, before normalization.
type RawItem struct {
	Question string
	Type     string
	Options  []string
	Answer   string
}

type rawItemJSON struct {
	Question json.RawMessage `json:"question"`
	Type     json.RawMessage `json:"type"`
	Options  json.RawMessage `json:"options"`
	Answer   json.RawMessage `json:"answer"`
}

// UnmarshalJSON decodes leniently: a malformed field degrades to its zero
// value instead of failing the batch.
func (r *RawItem) UnmarshalJSON(data []byte) error {
	var raw rawItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object at all; keep the item as an editable blank.
		*r = RawItem{}
		return nil
	}
	r.Question = lenientString(raw.Question)
	r.Type = lenientString(raw.Type)
	r.Answer = lenientString(raw.Answer)
	r.Options = lenientStrings(raw.Options)
	return nil
}

// MarshalJSON writes the service's wire shape.
func (r RawItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Question string   `json:"question"`
		Type     string   `json:"type"`
		Options  []string `json:"options,omitempty"`
		Answer   string   `json:"answer"`
	}{r.Question, r.Type, r.Options, r.Answer})
}

func lenientString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

func lenientStrings(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, lenientString(e))
	}
	return out
}

// NormalizeType maps internal and external type labels onto a QuestionType.
// Anything unrecognized becomes a text answer.
func NormalizeType(label string) model.QuestionType {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(key)
	switch key {
	case "mcq", "multiple_choice", "multiplechoice":
		return model.MultipleChoice
	case "yes_no", "yesno", "true_false":
		return model.YesNo
	default:
		return model.TextAnswer
	}
}

// ExternalType returns the generation service's label for t.
func ExternalType(t model.QuestionType) string {
	switch t {
	case model.MultipleChoice:
		return "multiple_choice"
	case model.YesNo:
		return "yes_no"
	default:
		return "text_answer"
	}
}

// ToQuestions converts raw items into questions, assigning ids with newID.
func ToQuestions(items []RawItem, newID func() string) []model.Question {
	out := make([]model.Question, 0, len(items))
	for _, it := range items {
		typ := NormalizeType(it.Type)
		q := model.NewQuestion(typ, newID())
		q.Prompt = it.Question
		q.Answer = it.Answer
		if typ == model.MultipleChoice && len(it.Options) > 0 {
			q.Options = append([]string(nil), it.Options...)
			for len(q.Options) < model.MinOptions {
				q.Options = append(q.Options, "")
			}
		}
		if typ == model.YesNo {
			q.Answer = normalizeYesNo(q.Answer)
		}
		out = append(out, q)
	}
	return out
}

func normalizeYesNo(a string) string {
	switch strings.ToLower(strings.TrimSpace(a)) {
	case "yes", "true", "y":
		return model.AnswerYes
	case "no", "false", "n":
		return model.AnswerNo
	default:
		return ""
	}
}
