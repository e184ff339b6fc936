package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/dto"
	"github.com/noah-isme/peer-eval-api/internal/models"
	"github.com/noah-isme/peer-eval-api/internal/repository"
)

const (
	defaultRatingMin  = 1
	defaultRatingMax  = 5
	defaultGoalPrompt = "How much progress has this student made toward their goal?"
)

// AssignmentService exposes assignment authoring and the question/status view.
type AssignmentService interface {
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, owner string) (dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	tx        repository.Transactor
	repos     repository.Repositories
	validator *validator.Validate
	cache     viewCache
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(tx repository.Transactor, repos repository.Repositories, validate *validator.Validate, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) AssignmentService {
	logger = logger.With().Str("component", "assignment_service").Logger()
	return &assignmentService{
		tx:        tx,
		repos:     repos,
		validator: validate,
		cache:     newViewCache(cache, cacheTTL, logger),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, owner string) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrInvalidDueDate, err)
	}
	if !dueDate.After(s.now()) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: due date must be in the future", ErrInvalidDueDate)
	}

	questions, err := buildQuestions(payload.Questions, payload.EvaluateGoals)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Course:        strings.TrimSpace(payload.Course),
		Semester:      strings.TrimSpace(payload.Semester),
		Section:       strings.TrimSpace(payload.Section),
		Title:         strings.TrimSpace(payload.Title),
		DueDate:       dueDate,
		EvaluateGoals: payload.EvaluateGoals,
		CreatedBy:     owner,
	}

	err = s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if err := repos.Assignments.Create(ctx, &assignment); err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		for i := range questions {
			questions[i].AssignmentID = assignment.ID
		}
		if err := repos.Questions.CreateBatch(ctx, questions); err != nil {
			return fmt.Errorf("create questions of assignment %d: %w", assignment.ID, err)
		}
		return nil
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Int("questions", len(questions)).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment, questions), nil
}

// Get returns the assignment with its questions and publication state.
func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	var cached dto.AssignmentResponse
	if s.cache.get(ctx, assignmentViewKey(id), &cached) {
		return cached, nil
	}

	assignment, err := s.repos.Assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, fmt.Errorf("load assignment %d: %w", id, err)
	}

	questions, err := s.repos.Questions.ListByAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("load questions of assignment %d: %w", id, err)
	}

	response := dto.NewAssignmentResponse(assignment, questions)
	s.cache.set(ctx, assignmentViewKey(id), response)

	return response, nil
}

func buildQuestions(requests []dto.QuestionCreateRequest, evaluateGoals bool) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(requests)+1)
	hasGoal := false

	for idx, request := range requests {
		question := models.Question{
			Position:  idx + 1,
			Type:      models.QuestionType(request.Type),
			Prompt:    strings.TrimSpace(request.Prompt),
			RatingMin: request.RatingMin,
			RatingMax: request.RatingMax,
		}

		kind, err := question.Kind()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
		}

		switch kind.(type) {
		case models.MultipleChoiceKind:
			options := make([]string, 0, len(request.Options))
			for _, option := range request.Options {
				if trimmed := strings.TrimSpace(option); trimmed != "" {
					options = append(options, trimmed)
				}
			}
			if len(options) < 2 {
				return nil, fmt.Errorf("%w: question %d needs at least two options", ErrInvalidQuestion, idx+1)
			}
			question.Options = options
		case models.RatingKind, models.GoalKind:
			if question.RatingMax == 0 {
				question.RatingMin = defaultRatingMin
				question.RatingMax = defaultRatingMax
			}
			if _, isGoal := kind.(models.GoalKind); isGoal {
				hasGoal = true
			}
		}

		questions = append(questions, question)
	}

	if evaluateGoals && !hasGoal {
		questions = append(questions, models.Question{
			Position:  len(questions) + 1,
			Type:      models.QuestionTypeGoal,
			Prompt:    defaultGoalPrompt,
			RatingMin: defaultRatingMin,
			RatingMax: defaultRatingMax,
		})
	}

	return questions, nil
}
