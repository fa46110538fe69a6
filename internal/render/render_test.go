package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	appI18n "github.com/pavelanni/exampaper/internal/i18n"
	"github.com/pavelanni/exampaper/internal/model"
)

func question(id string, t model.QuestionType, prompt string, marks int) model.Question {
	q := model.NewQuestion(t, id)
	q.Prompt = prompt
	q.Marks = marks
	return q
}

func sampleQuestions() []model.Question {
	mcq := question("q1", model.MultipleChoice, "Capital of France?", 3)
	mcq.Options = []string{"Rome", "Paris", "Berlin"}
	mcq.Answer = "B"
	text := question("q2", model.TextAnswer, "Explain <photosynthesis>.", 5)
	text.Answer = "Light to chemical energy"
	mcq2 := question("q3", model.MultipleChoice, "2+2?", 2)
	mcq2.Options = []string{"3", "4"}
	mcq2.Answer = "4"
	text2 := question("q4", model.TextAnswer, "Define inertia.", 4)
	return []model.Question{mcq, text, mcq2, text2}
}

func TestExamLayoutSections(t *testing.T) {
	l := ExamLayout(model.DefaultSettings(), sampleQuestions())

	if len(l.Sections) != 2 {
		t.Fatalf("expected 2 sections (no yes/no), got %d", len(l.Sections))
	}
	a, b := l.Sections[0], l.Sections[1]
	if a.Letter != "A" || a.Type != model.MultipleChoice || b.Letter != "B" || b.Type != model.TextAnswer {
		t.Fatalf("unexpected section order: %s/%s, %s/%s", a.Letter, a.Type, b.Letter, b.Type)
	}
	if a.Marks != 5 || b.Marks != 9 || l.Marks != 14 || l.Questions != 4 {
		t.Errorf("unexpected marks: A=%d B=%d total=%d questions=%d", a.Marks, b.Marks, l.Marks, l.Questions)
	}
	if a.Items[0].QuestionID != "q1" || a.Items[1].QuestionID != "q3" {
		t.Error("section did not keep relative order")
	}
	for _, sec := range l.Sections {
		for i, it := range sec.Items {
			if it.Number != i+1 {
				t.Errorf("section %s item %d numbered %d", sec.Letter, i, it.Number)
			}
			if it.Answer != "" {
				t.Errorf("exam layout leaked answer for %s", it.QuestionID)
			}
			for _, o := range it.Options {
				if o.Correct {
					t.Errorf("exam layout marks a correct option for %s", it.QuestionID)
				}
			}
		}
	}
	if b.Items[0].AnswerLines != AnswerLines {
		t.Errorf("text answer lines = %d, want %d", b.Items[0].AnswerLines, AnswerLines)
	}
}

func TestSectionCOnlyWithYesNo(t *testing.T) {
	qs := []model.Question{question("y1", model.YesNo, "Is the sky blue?", 2)}
	l := AnswerSheet(model.DefaultSettings(), qs)
	if len(l.Sections) != 1 || l.Sections[0].Letter != "C" {
		t.Fatalf("expected only section C, got %+v", l.Sections)
	}

	if l := ExamLayout(model.DefaultSettings(), nil); len(l.Sections) != 0 || l.Marks != 0 {
		t.Errorf("empty paper produced sections: %+v", l)
	}
}

func TestAnswerSheetMarksCorrectOptions(t *testing.T) {
	l := AnswerSheet(model.DefaultSettings(), sampleQuestions())
	a := l.Sections[0]
	if !a.Items[0].Options[1].Correct || a.Items[0].Options[0].Correct {
		t.Errorf("letter answer not matched: %+v", a.Items[0].Options)
	}
	if !a.Items[1].Options[1].Correct || a.Items[1].Options[0].Correct {
		t.Errorf("text answer not matched: %+v", a.Items[1].Options)
	}
	if l.Sections[1].Items[0].Answer != "Light to chemical energy" {
		t.Errorf("model answer missing")
	}
}

func TestCorrectOptions(t *testing.T) {
	opts := []string{"Apple", "Banana", " Cherry ", "D"}
	tests := []struct {
		name   string
		answer string
		want   []bool
	}{
		{"letter", "B", []bool{false, true, false, false}},
		{"lower letter with paren", " c) ", []bool{false, false, true, false}},
		{"letter with dot", "A.", []bool{true, false, false, false}},
		{"exact text", "Cherry", []bool{false, false, true, false}},
		{"letter beats text", "D", []bool{false, false, false, true}},
		{"substring does not match", "Ban", []bool{false, false, false, false}},
		{"letter out of range", "Z", []bool{false, false, false, false}},
		{"empty", "", []bool{false, false, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CorrectOptions(opts, tt.answer)
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("CorrectOptions(%q) = %v, want %v", tt.answer, got, tt.want)
				}
			}
		})
	}
}

func renderString(t *testing.T, ctx context.Context, l Layout) string {
	t.Helper()
	var buf bytes.Buffer
	if err := HTML(l).Render(ctx, &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestHTMLIsDeterministic(t *testing.T) {
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := appI18n.WithLang(context.Background(), "en")
	s := model.DefaultSettings()
	s.Subject = "Science"
	qs := sampleQuestions()

	first := renderString(t, ctx, ExamLayout(s, qs))
	second := renderString(t, ctx, ExamLayout(s, qs))
	if first != second {
		t.Error("exam HTML differs between renders")
	}

	for _, want := range []string{
		"SECTION A: MULTIPLE CHOICE QUESTIONS (5 marks)",
		"SECTION B: SHORT ANSWER QUESTIONS (9 marks)",
		"Explain &lt;photosynthesis&gt;.",
		"END OF EXAMINATION",
		"break-inside: avoid",
		"@page",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("exam HTML missing %q", want)
		}
	}
	if strings.Contains(first, "Light to chemical energy") || strings.Contains(first, "✓") {
		t.Error("exam HTML leaked an answer")
	}
	if strings.Contains(first, "SECTION C") {
		t.Error("exam HTML has an empty section C")
	}
}

func TestAnswerSheetHTML(t *testing.T) {
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := appI18n.WithLang(context.Background(), "en")
	out := renderString(t, ctx, AnswerSheet(model.DefaultSettings(), sampleQuestions()))

	for _, want := range []string{
		"FOR EXAMINER USE ONLY",
		"B) Paris ✓",
		"Model Answer:",
		"N/A",
		"END OF ANSWER SHEET",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("answer sheet missing %q", want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"exam": KindExam, "answers": KindAnswers, "answer-sheet": KindAnswers} {
		if got, ok := ParseKind(in); !ok || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseKind("draft"); ok {
		t.Error("ParseKind accepted an unknown kind")
	}
}
