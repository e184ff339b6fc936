package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID       uint
	EvaluatorUsername  string
	EvaluateeUsernames []string
	Status             *models.SubmissionStatus
}

// SubmissionRepository defines data operations for fanout submissions.
type SubmissionRepository interface {
	CreateBatch(ctx context.Context, submissions []models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	Count(ctx context.Context, filter SubmissionFilter) (int64, error)
	TouchSaved(ctx context.Context, id uint, at time.Time) error
	MarkSubmitted(ctx context.Context, id uint, at time.Time) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) filtered(ctx context.Context, filter SubmissionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.AssignmentID != 0 {
		query = query.Where("assignment_id = ?", filter.AssignmentID)
	}

	if filter.EvaluatorUsername != "" {
		query = query.Where("evaluator_username = ?", filter.EvaluatorUsername)
	}

	if filter.EvaluateeUsernames != nil {
		query = query.Where("evaluatee_username IN ?", filter.EvaluateeUsernames)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	return query
}

// CreateBatch inserts submissions in a single statement. Duplicate pairs violate the unique index.
func (r *submissionRepository) CreateBatch(ctx context.Context, submissions []models.Submission) error {
	if len(submissions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&submissions).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	if filter.EvaluateeUsernames != nil && len(filter.EvaluateeUsernames) == 0 {
		return []models.Submission{}, nil
	}

	var submissions []models.Submission
	if err := r.filtered(ctx, filter).
		Order("evaluatee_username ASC").
		Order("evaluator_username ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) Count(ctx context.Context, filter SubmissionFilter) (int64, error) {
	if filter.EvaluateeUsernames != nil && len(filter.EvaluateeUsernames) == 0 {
		return 0, nil
	}

	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

func (r *submissionRepository) TouchSaved(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", id).
		Update("last_saved_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkSubmitted moves an in-progress submission to submitted and reports whether it did so.
func (r *submissionRepository) MarkSubmitted(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", id).
		Where("status = ?", models.SubmissionStatusInProgress).
		Updates(map[string]interface{}{
			"status":        models.SubmissionStatusSubmitted,
			"submitted_at":  at,
			"last_saved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
