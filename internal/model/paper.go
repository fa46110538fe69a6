package model

import "time"

// ExamSettings is the metadata attached 1:1 to a paper. TotalMarks is the
// nominal total and is not checked against the sum of question marks.
type ExamSettings struct {
	Subject         string `json:"subject" validate:"max=200"`
	GradeLevel      string `json:"gradeLevel" validate:"max=100"`
	Duration        int    `json:"duration" validate:"gt=0"`
	TotalMarks      int    `json:"totalMarks" validate:"gt=0"`
	InstitutionName string `json:"institutionName" validate:"max=200"`
	ExamType        string `json:"examType" validate:"max=100"`
	StudentName     string `json:"studentName,omitempty"`
	StudentID       string `json:"studentId,omitempty"`
	Batch           string `json:"batch,omitempty"`
}

// DefaultSettings returns the settings a new paper starts with.
func DefaultSettings() ExamSettings {
	return ExamSettings{
		GradeLevel:      "HND",
		Duration:        2,
		TotalMarks:      100,
		InstitutionName: "National Institute of Business Management",
		ExamType:        "MCE EXAMINATION",
	}
}

// SettingsPatch carries a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	Subject         *string `json:"subject"`
	GradeLevel      *string `json:"gradeLevel"`
	Duration        *int    `json:"duration"`
	TotalMarks      *int    `json:"totalMarks"`
	InstitutionName *string `json:"institutionName"`
	ExamType        *string `json:"examType"`
	StudentName     *string `json:"studentName"`
	StudentID       *string `json:"studentId"`
	Batch           *string `json:"batch"`
}

// Merge returns s with every non-nil field of p applied.
func (p SettingsPatch) Merge(s ExamSettings) ExamSettings {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setStr(&s.Subject, p.Subject)
	setStr(&s.GradeLevel, p.GradeLevel)
	setStr(&s.InstitutionName, p.InstitutionName)
	setStr(&s.ExamType, p.ExamType)
	setStr(&s.StudentName, p.StudentName)
	setStr(&s.StudentID, p.StudentID)
	setStr(&s.Batch, p.Batch)
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
	if p.TotalMarks != nil {
		s.TotalMarks = *p.TotalMarks
	}
	return s
}

// ExamPaper is the aggregate root: settings plus an ordered question list.
// An empty ID marks a draft that has never been saved.
type ExamPaper struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"userId"`
	ProjectID string       `json:"projectId"`
	Settings  ExamSettings `json:"settings"`
	Questions []Question   `json:"questions"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Version   int64        `json:"version"`
}

// IsDraft reports whether the paper has not been persisted yet.
func (p ExamPaper) IsDraft() bool {
	return p.ID == ""
}

// Stats are derived from a question list on demand and never stored.
type Stats struct {
	MultipleChoice int `json:"mcq"`
	YesNo          int `json:"yesNo"`
	TextAnswer     int `json:"textAnswer"`
	Total          int `json:"total"`
	TotalMarks     int `json:"totalMarks"`
}

// ComputeStats counts questions per type and sums their marks.
func ComputeStats(qs []Question) Stats {
	var s Stats
	for _, q := range qs {
		switch q.Type {
		case MultipleChoice:
			s.MultipleChoice++
		case YesNo:
			s.YesNo++
		case TextAnswer:
			s.TextAnswer++
		}
		s.Total++
		s.TotalMarks += q.Marks
	}
	return s
}

// PaperSummary is the list view of a persisted paper.
type PaperSummary struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"projectId"`
	Settings  ExamSettings `json:"settings"`
	Stats     Stats        `json:"stats"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Summarize builds the list view for p.
func Summarize(p ExamPaper) PaperSummary {
	return PaperSummary{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		Settings:  p.Settings,
		Stats:     ComputeStats(p.Questions),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
