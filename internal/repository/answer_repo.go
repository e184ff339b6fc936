package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

// RatingRow is one goal rating given in a submitted evaluation.
type RatingRow struct {
	EvaluateeUsername string
	EvaluatorUsername string
	Value             datatypes.JSON
}

// AnswerRepository stores answers keyed by (submission, question).
type AnswerRepository interface {
	Upsert(ctx context.Context, answers []models.Answer) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Answer, error)
	ListSubmittedGoalRatings(ctx context.Context, assignmentID uint) ([]RatingRow, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository constructs an answer repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

// Upsert inserts each answer or overwrites the stored value of the same (submission, question).
func (r *answerRepository) Upsert(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&answers).Error
}

func (r *answerRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

func (r *answerRepository) ListSubmittedGoalRatings(ctx context.Context, assignmentID uint) ([]RatingRow, error) {
	var rows []RatingRow
	err := r.db.WithContext(ctx).Table("answers").
		Select("student_submissions.evaluatee_username AS evaluatee_username, student_submissions.evaluator_username AS evaluator_username, answers.value AS value").
		Joins("JOIN student_submissions ON student_submissions.id = answers.submission_id").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("student_submissions.assignment_id = ?", assignmentID).
		Where("student_submissions.status = ?", models.SubmissionStatusSubmitted).
		Where("questions.type = ?", models.QuestionTypeGoal).
		Order("student_submissions.evaluatee_username ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}
