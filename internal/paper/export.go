package paper

import (
	"context"
	"fmt"

	"github.com/pavelanni/exampaper/internal/model"
)

// Export collects every paper of owner, newest first, with its stats.
// An empty projectID exports all projects.
func (s *Service) Export(ctx context.Context, owner model.User, projectID string) (model.PaperExport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	summaries, err := s.repo.List(ctx, owner.ID, projectID)
	if err != nil {
		return model.PaperExport{}, fmt.Errorf("list papers: %w", err)
	}

	records := make([]model.PaperRecord, 0, len(summaries))
	for _, sum := range summaries {
		p, err := s.repo.Load(ctx, sum.ID, owner.ID)
		if err != nil {
			return model.PaperExport{}, fmt.Errorf("load paper %s: %w", sum.ID, err)
		}
		records = append(records, model.PaperRecord{
			ID:        p.ID,
			ProjectID: p.ProjectID,
			Settings:  p.Settings,
			Stats:     model.ComputeStats(p.Questions),
			Questions: p.Questions,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}

	return model.PaperExport{
		OwnerID:    owner.ID,
		Username:   owner.Username,
		ProjectID:  projectID,
		ExportedAt: s.repo.now().UTC(),
		NumPapers:  len(records),
		Papers:     records,
	}, nil
}
