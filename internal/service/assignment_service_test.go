package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/dto"
	"github.com/noah-isme/peer-eval-api/internal/models"
	"github.com/noah-isme/peer-eval-api/internal/repository"
)

func newTestAssignmentService(db *gorm.DB, cache *redis.Client) AssignmentService {
	return NewAssignmentService(repository.NewTransactor(db), repository.NewRepositories(db), testValidator(), cache, time.Minute, testLogger())
}

func validAssignmentRequest() dto.AssignmentCreateRequest {
	return dto.AssignmentCreateRequest{
		Course:   "CS101",
		Semester: "2024-fall",
		Section:  "A",
		Title:    "Sprint 1 review",
		DueDate:  time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		Questions: []dto.QuestionCreateRequest{
			{Type: "rating", Prompt: "Communication"},
			{Type: "multiple_choice", Prompt: "Would you work with them again?", Options: []string{"Yes", " No "}},
			{Type: "free_response", Prompt: "Anything else?"},
		},
	}
}

func TestAssignmentServiceCreate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAssignmentService(db, nil)

	result, err := svc.Create(context.Background(), validAssignmentRequest(), "prof")
	require.NoError(t, err)
	require.NotZero(t, result.ID)
	require.False(t, result.Published)
	require.Len(t, result.Questions, 3)
	require.Equal(t, 1, result.Questions[0].RatingMin)
	require.Equal(t, 5, result.Questions[0].RatingMax)
	require.Equal(t, []string{"Yes", "No"}, result.Questions[1].Options)

	var stored models.Assignment
	require.NoError(t, db.First(&stored, result.ID).Error)
	require.Equal(t, "prof", stored.CreatedBy)

	var questions []models.Question
	require.NoError(t, db.Where("assignment_id = ?", result.ID).Order("position").Find(&questions).Error)
	require.Len(t, questions, 3)
	require.Equal(t, models.QuestionTypeMultipleChoice, questions[1].Type)
}

func TestAssignmentServiceCreateAddsGoalQuestion(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAssignmentService(db, nil)

	request := validAssignmentRequest()
	request.EvaluateGoals = true

	result, err := svc.Create(context.Background(), request, "prof")
	require.NoError(t, err)
	require.Len(t, result.Questions, 4)
	last := result.Questions[3]
	require.Equal(t, string(models.QuestionTypeGoal), last.Type)
	require.Equal(t, 4, last.Position)
	require.Equal(t, defaultGoalPrompt, last.Prompt)

	request.Questions = append(request.Questions, dto.QuestionCreateRequest{Type: "goal", Prompt: "Goal progress", RatingMin: 0, RatingMax: 10})
	result, err = svc.Create(context.Background(), request, "prof")
	require.NoError(t, err)
	require.Len(t, result.Questions, 4)
	require.Equal(t, 10, result.Questions[3].RatingMax)
}

func TestAssignmentServiceCreateRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAssignmentService(db, nil)
	ctx := context.Background()

	missingTitle := validAssignmentRequest()
	missingTitle.Title = ""
	_, err := svc.Create(ctx, missingTitle, "prof")
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))

	pastDue := validAssignmentRequest()
	pastDue.DueDate = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	_, err = svc.Create(ctx, pastDue, "prof")
	require.ErrorIs(t, err, ErrInvalidDueDate)

	oneOption := validAssignmentRequest()
	oneOption.Questions[1].Options = []string{"Yes"}
	_, err = svc.Create(ctx, oneOption, "prof")
	require.ErrorIs(t, err, ErrInvalidQuestion)

	unknownType := validAssignmentRequest()
	unknownType.Questions[0].Type = "essay"
	_, err = svc.Create(ctx, unknownType, "prof")
	require.True(t, errors.As(err, &validationErrs))

	var count int64
	require.NoError(t, db.Model(&models.Assignment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAssignmentServiceGet(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestAssignmentService(db, nil)

	assignment, goal, _ := seedAssignment(t, db, testSection)

	result, err := svc.Get(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, assignment.Title, result.Title)
	require.Len(t, result.Questions, 2)
	require.Equal(t, goal.ID, result.Questions[0].ID)

	_, err = svc.Get(context.Background(), 404)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAssignmentServiceGetCacheInvalidatedByPublish(t *testing.T) {
	db := setupTestDB(t)
	assignment, _, _ := seedAssignment(t, db, testSection)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	svc := newTestAssignmentService(db, redisClient)
	ctx := context.Background()

	before, err := svc.Get(ctx, assignment.ID)
	require.NoError(t, err)
	require.False(t, before.Published)
	require.True(t, mr.Exists(assignmentViewKey(assignment.ID)))

	publisher := NewPublicationService(repository.NewTransactor(db), redisClient, nil, testLogger())
	_, err = publisher.Publish(ctx, assignment.ID)
	require.NoError(t, err)
	require.False(t, mr.Exists(assignmentViewKey(assignment.ID)))

	after, err := svc.Get(ctx, assignment.ID)
	require.NoError(t, err)
	require.True(t, after.Published)
}
