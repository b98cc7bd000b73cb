package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/catalogbot/internal/models"
)

// SaveTemplate stores content under name, replacing an existing template of
// the same name. Placeholder validation is the caller's job.
func (s *Service) SaveTemplate(ctx context.Context, name, content string) (*models.Template, error) {
	const op = "save_template"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(op, "template name is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, validationError(op, "template content is required")
	}

	t := models.Template{Name: name, Content: content}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&t).Error
	if err != nil {
		return nil, s.fail(op, 0, err)
	}
	return s.GetTemplate(ctx, name)
}

// GetTemplate loads a template by name
func (s *Service) GetTemplate(ctx context.Context, name string) (*models.Template, error) {
	const op = "get_template"
	var t models.Template
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Kind: ErrNotFound, Op: op, Msg: "template " + name + " not found"}
		}
		return nil, s.fail(op, 0, err)
	}
	return &t, nil
}

// ListTemplates returns all templates ordered by name
func (s *Service) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var out []models.Template
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, s.fail("list_templates", 0, err)
	}
	return out, nil
}
