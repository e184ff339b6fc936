package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

// GoalRepository reads student goals owned by the goal-setting feature.
type GoalRepository interface {
	ListBySection(ctx context.Context, section models.SectionKey) (map[string]string, error)
}

type goalRepository struct {
	db *gorm.DB
}

// NewGoalRepository constructs a goal repository.
func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) ListBySection(ctx context.Context, section models.SectionKey) (map[string]string, error) {
	var goals []models.Goal
	if err := r.db.WithContext(ctx).
		Where("course = ?", section.Course).
		Where("section = ?", section.Section).
		Where("semester = ?", section.Semester).
		Find(&goals).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string, len(goals))
	for _, goal := range goals {
		result[goal.StudentUsername] = goal.Text
	}

	return result, nil
}
