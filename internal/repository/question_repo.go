package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

// QuestionRepository reads and writes the ordered question list of an assignment.
type QuestionRepository interface {
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Question, error)
	CreateBatch(ctx context.Context, questions []models.Question) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("position ASC").
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) CreateBatch(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&questions).Error
}
