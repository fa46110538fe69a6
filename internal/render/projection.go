// Package render derives the printable views of a paper: the student-facing
// exam layout and the examiner-facing answer sheet.
package render

import (
	"strings"

	"github.com/pavelanni/exampaper/internal/model"
)

// AnswerLines is the number of blank lines printed under a text question.
const AnswerLines = 3

// Kind tells the two printable documents apart.
type Kind string

const (
	KindExam    Kind = "exam"
	KindAnswers Kind = "answers"
)

// ParseKind maps a URL or CLI value onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindExam:
		return KindExam, true
	case KindAnswers, "answer-sheet":
		return KindAnswers, true
	}
	return "", false
}

// Option is one printed multiple choice option.
type Option struct {
	Letter  string
	Text    string
	Correct bool
}

// Item is one numbered question within a section.
type Item struct {
	Number      int
	QuestionID  string
	Type        model.QuestionType
	Prompt      string
	Marks       int
	Options     []Option
	Answer      string
	AnswerLines int
}

// Section groups the questions of one type.
type Section struct {
	Letter string
	Type   model.QuestionType
	Marks  int
	Items  []Item
}

// Layout is a printable document. Answers are only populated for KindAnswers.
type Layout struct {
	Kind      Kind
	Settings  model.ExamSettings
	Sections  []Section
	Marks     int
	Questions int
}

var sectionLetters = []string{"A", "B", "C"}

// ExamLayout builds the student-facing layout. It never carries answers.
func ExamLayout(s model.ExamSettings, qs []model.Question) Layout {
	return project(KindExam, s, qs)
}

// AnswerSheet builds the examiner-facing layout with correct answers marked.
func AnswerSheet(s model.ExamSettings, qs []model.Question) Layout {
	return project(KindAnswers, s, qs)
}

func project(kind Kind, s model.ExamSettings, qs []model.Question) Layout {
	l := Layout{Kind: kind, Settings: s}
	for i, t := range model.QuestionTypes {
		sec := Section{Letter: sectionLetters[i], Type: t}
		for _, q := range qs {
			if q.Type != t {
				continue
			}
			sec.Items = append(sec.Items, newItem(kind, len(sec.Items)+1, q))
			sec.Marks += q.Marks
		}
		if len(sec.Items) == 0 {
			continue
		}
		l.Sections = append(l.Sections, sec)
		l.Marks += sec.Marks
		l.Questions += len(sec.Items)
	}
	return l
}

func newItem(kind Kind, n int, q model.Question) Item {
	it := Item{
		Number:     n,
		QuestionID: q.ID,
		Type:       q.Type,
		Prompt:     q.Prompt,
		Marks:      q.Marks,
	}
	if q.Type == model.MultipleChoice {
		correct := make([]bool, len(q.Options))
		if kind == KindAnswers {
			correct = CorrectOptions(q.Options, q.Answer)
		}
		for i, o := range q.Options {
			it.Options = append(it.Options, Option{Letter: model.OptionLetter(i), Text: o, Correct: correct[i]})
		}
	}
	switch kind {
	case KindExam:
		if q.Type == model.TextAnswer {
			it.AnswerLines = AnswerLines
		}
	case KindAnswers:
		it.Answer = q.Answer
	}
	return it
}

// CorrectOptions reports which options the answer denotes. A trimmed answer
// that is a single option letter, optionally followed by ")" or ".", selects
// the option with that letter. Any other answer selects every option whose
// trimmed text equals it.
func CorrectOptions(options []string, answer string) []bool {
	out := make([]bool, len(options))
	a := strings.TrimSpace(answer)
	if a == "" {
		return out
	}
	if i, ok := letterIndex(a, len(options)); ok {
		out[i] = true
		return out
	}
	for i, o := range options {
		out[i] = strings.TrimSpace(o) == a
	}
	return out
}

func letterIndex(a string, n int) (int, bool) {
	a = strings.TrimRight(a, ").")
	if len(a) != 1 {
		return 0, false
	}
	c := a[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	i := int(c - 'A')
	if i >= n {
		return 0, false
	}
	return i, true
}
