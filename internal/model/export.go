package model

import "time"

// PaperExport is the top-level JSON structure written by the export command.
type PaperExport struct {
	OwnerID    string        `json:"owner_id"`
	Username   string        `json:"username"`
	ProjectID  string        `json:"project_id,omitempty"`
	ExportedAt time.Time     `json:"exported_at"`
	NumPapers  int           `json:"num_papers"`
	Papers     []PaperRecord `json:"papers"`
}

// PaperRecord holds one paper with its derived statistics for export.
type PaperRecord struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	Settings  ExamSettings `json:"settings"`
	Stats     Stats        `json:"stats"`
	Questions []Question   `json:"questions"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
