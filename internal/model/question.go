package model

import "fmt"

// QuestionType is the closed set of question kinds a paper may hold.
type QuestionType string

const (
	MultipleChoice QuestionType = "MCQ"
	YesNo          QuestionType = "Yes/No"
	TextAnswer     QuestionType = "Text Answer"
)

// QuestionTypes lists every type in section order (A, B, C).
var QuestionTypes = []QuestionType{MultipleChoice, TextAnswer, YesNo}

// Valid reports whether t is one of the three known types.
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, YesNo, TextAnswer:
		return true
	}
	return false
}

// DefaultMarks returns the marks a fresh question of type t starts with.
func (t QuestionType) DefaultMarks() int {
	switch t {
	case MultipleChoice:
		return 3
	case YesNo:
		return 2
	default:
		return 5
	}
}

const (
	// MinOptions is the smallest option list a multiple choice question may have.
	MinOptions = 2
	// DefaultOptionSlots is how many empty options a new multiple choice question gets.
	DefaultOptionSlots = 4

	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// Question is one assessment item on a paper.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"question"`
	Options []string     `json:"options,omitempty"`
	Answer  string       `json:"answer"`
	Marks   int          `json:"marks"`
}

// NewQuestion returns a question of type t populated with that type's defaults.
func NewQuestion(t QuestionType, id string) Question {
	q := Question{ID: id, Type: t, Marks: t.DefaultMarks()}
	if t == MultipleChoice {
		q.Options = EmptyOptions(DefaultOptionSlots)
	}
	return q
}

// EmptyOptions returns n empty option strings.
func EmptyOptions(n int) []string {
	return make([]string, n)
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

// Violation describes a single broken rule on a question or settings field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Validate checks the structural invariants of q. An empty prompt is allowed
// because drafts may be incomplete.
func Validate(q Question) []Violation {
	var vs []Violation
	if !q.Type.Valid() {
		vs = append(vs, Violation{"type", fmt.Sprintf("unknown question type %q", q.Type)})
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < MinOptions {
			vs = append(vs, Violation{"options", fmt.Sprintf("multiple choice needs at least %d options, has %d", MinOptions, len(q.Options))})
		}
	default:
		if q.Options != nil {
			vs = append(vs, Violation{"options", "only multiple choice questions carry options"})
		}
	}
	if q.Type == YesNo && !ValidYesNoAnswer(q.Answer) {
		vs = append(vs, Violation{"answer", `must be "Yes", "No" or empty`})
	}
	if q.Marks <= 0 {
		vs = append(vs, Violation{"marks", "must be a positive integer"})
	}
	return vs
}

// ValidYesNoAnswer reports whether a is an acceptable yes/no answer.
func ValidYesNoAnswer(a string) bool {
	return a == "" || a == AnswerYes || a == AnswerNo
}

// OptionLetter returns the printed letter for option i (A, B, C, ...).
func OptionLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("%s%d", string(rune('A'+i%26)), i/26)
}
