package model

import "testing"

func TestNewQuestionDefaults(t *testing.T) {
	tests := []struct {
		typ         QuestionType
		wantMarks   int
		wantOptions int
		wantNil     bool
	}{
		{MultipleChoice, 3, 4, false},
		{YesNo, 2, 0, true},
		{TextAnswer, 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			q := NewQuestion(tt.typ, "q-1")
			if q.ID != "q-1" {
				t.Errorf("ID = %q, want q-1", q.ID)
			}
			if q.Marks != tt.wantMarks {
				t.Errorf("Marks = %d, want %d", q.Marks, tt.wantMarks)
			}
			if len(q.Options) != tt.wantOptions {
				t.Errorf("len(Options) = %d, want %d", len(q.Options), tt.wantOptions)
			}
			if tt.wantNil && q.Options != nil {
				t.Errorf("Options = %v, want nil", q.Options)
			}
			for i, o := range q.Options {
				if o != "" {
					t.Errorf("option %d = %q, want empty", i, o)
				}
			}
			if vs := Validate(q); len(vs) != 0 {
				t.Errorf("fresh question should be valid, got %v", vs)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		q         Question
		wantField string
	}{
		{"empty prompt allowed", Question{Type: TextAnswer, Marks: 5}, ""},
		{"mcq one option", Question{Type: MultipleChoice, Options: []string{"a"}, Marks: 3}, "options"},
		{"mcq no options", Question{Type: MultipleChoice, Marks: 3}, "options"},
		{"yes/no with options", Question{Type: YesNo, Options: []string{"a", "b"}, Marks: 2}, "options"},
		{"yes/no bad answer", Question{Type: YesNo, Answer: "maybe", Marks: 2}, "answer"},
		{"yes/no graded", Question{Type: YesNo, Answer: "No", Marks: 2}, ""},
		{"zero marks", Question{Type: TextAnswer}, "marks"},
		{"negative marks", Question{Type: TextAnswer, Marks: -1}, "marks"},
		{"unknown type", Question{Type: "Essay", Marks: 1}, "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := Validate(tt.q)
			if tt.wantField == "" {
				if len(vs) != 0 {
					t.Errorf("expected no violations, got %v", vs)
				}
				return
			}
			found := false
			for _, v := range vs {
				if v.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected violation on %q, got %v", tt.wantField, vs)
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	qs := []Question{
		NewQuestion(MultipleChoice, "q1"),
		NewQuestion(YesNo, "q2"),
	}
	got := ComputeStats(qs)
	want := Stats{MultipleChoice: 1, YesNo: 1, TextAnswer: 0, Total: 2, TotalMarks: 5}
	if got != want {
		t.Errorf("ComputeStats() = %+v, want %+v", got, want)
	}
}

func TestSettingsPatchMerge(t *testing.T) {
	base := DefaultSettings()
	subject := "Cell Biology"
	dur := 3
	got := SettingsPatch{Subject: &subject, Duration: &dur}.Merge(base)

	if got.Subject != subject || got.Duration != 3 {
		t.Errorf("patched fields not applied: %+v", got)
	}
	if got.TotalMarks != base.TotalMarks || got.InstitutionName != base.InstitutionName {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestOptionLetter(t *testing.T) {
	if got := OptionLetter(0); got != "A" {
		t.Errorf("OptionLetter(0) = %q", got)
	}
	if got := OptionLetter(3); got != "D" {
		t.Errorf("OptionLetter(3) = %q", got)
	}
}
