package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

// ScoreRepository persists aggregated scores.
type ScoreRepository interface {
	Upsert(ctx context.Context, scores []models.Score) error
	DeleteExcept(ctx context.Context, assignmentID uint, keep []string) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Score, error)
	GetByStudent(ctx context.Context, assignmentID uint, username string) (models.Score, error)
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository constructs a score repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) Upsert(ctx context.Context, scores []models.Score) error {
	if len(scores) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_username"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "published", "finalized_at"}),
	}).Create(&scores).Error
}

// DeleteExcept removes the assignment's scores for students not listed in keep.
func (r *scoreRepository) DeleteExcept(ctx context.Context, assignmentID uint, keep []string) error {
	query := r.db.WithContext(ctx).Where("assignment_id = ?", assignmentID)
	if len(keep) > 0 {
		query = query.Where("student_username NOT IN ?", keep)
	}
	return query.Delete(&models.Score{}).Error
}

func (r *scoreRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Score, error) {
	var scores []models.Score
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("student_username ASC").
		Find(&scores).Error; err != nil {
		return nil, err
	}

	return scores, nil
}

func (r *scoreRepository) GetByStudent(ctx context.Context, assignmentID uint, username string) (models.Score, error) {
	var score models.Score
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_username = ?", username).
		First(&score).Error; err != nil {
		return models.Score{}, err
	}

	return score, nil
}
