package paper

import (
	"github.com/pavelanni/exampaper/internal/model"
	"github.com/pavelanni/exampaper/internal/validate"
)

// ApplySettings merges patch into s. On a validation failure the original
// settings are returned unchanged along with the error.
func ApplySettings(s model.ExamSettings, patch model.SettingsPatch) (model.ExamSettings, error) {
	next := patch.Merge(s)
	if err := validate.Struct(next); err != nil {
		return s, err
	}
	return next, nil
}
