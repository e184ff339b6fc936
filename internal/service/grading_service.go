package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/dto"
	"github.com/noah-isme/peer-eval-api/internal/events"
	"github.com/noah-isme/peer-eval-api/internal/models"
	"github.com/noah-isme/peer-eval-api/internal/observability"
	"github.com/noah-isme/peer-eval-api/internal/repository"
)

// GradingService aggregates submitted goal ratings into published scores.
type GradingService interface {
	PublishGrades(ctx context.Context, assignmentID uint) (dto.PublishGradesResponse, error)
	GetGrades(ctx context.Context, assignmentID uint) ([]dto.GradeEntry, error)
	GetStudentScore(ctx context.Context, assignmentID uint, username string) (dto.StudentScoreResponse, error)
}

type gradingService struct {
	tx     repository.Transactor
	repos  repository.Repositories
	cache  viewCache
	events EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewGradingService constructs the aggregation engine.
func NewGradingService(tx repository.Transactor, repos repository.Repositories, cache *redis.Client, cacheTTL time.Duration, publisher EventPublisher, logger zerolog.Logger) GradingService {
	logger = logger.With().Str("component", "grading_service").Logger()
	return &gradingService{
		tx:     tx,
		repos:  repos,
		cache:  newViewCache(cache, cacheTTL, logger),
		events: publisher,
		logger: logger,
		now:    time.Now,
	}
}

// PublishGrades recomputes every score of the assignment from the current submitted goal
// ratings and replaces the stored rows. Students nobody rated get no row.
func (s *gradingService) PublishGrades(ctx context.Context, assignmentID uint) (dto.PublishGradesResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/peer-eval-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grades.publish", trace.WithAttributes(attribute.Int64("assignment.id", int64(assignmentID))))
	defer span.End()

	finalizedAt := s.now()
	var written int
	var skipped int
	err := s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		assignment, err := repos.Assignments.GetByID(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("load assignment %d: %w", assignmentID, err)
		}
		if !assignment.Published {
			return ErrAssignmentNotPublished
		}

		rows, err := repos.Answers.ListSubmittedGoalRatings(ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("load goal ratings of assignment %d: %w", assignmentID, err)
		}

		averages, ignored := averageRatings(rows)
		skipped = ignored

		students := make([]string, 0, len(averages))
		for username := range averages {
			students = append(students, username)
		}
		sort.Strings(students)

		scores := make([]models.Score, 0, len(students))
		for _, username := range students {
			scores = append(scores, models.Score{
				AssignmentID:    assignmentID,
				StudentUsername: username,
				Value:           averages[username],
				Published:       true,
				FinalizedAt:     &finalizedAt,
			})
		}

		if err := repos.Scores.DeleteExcept(ctx, assignmentID, students); err != nil {
			return fmt.Errorf("remove stale scores of assignment %d: %w", assignmentID, err)
		}
		if err := repos.Scores.Upsert(ctx, scores); err != nil {
			return fmt.Errorf("store scores of assignment %d: %w", assignmentID, err)
		}
		if err := repos.Assignments.MarkGradesPublished(ctx, assignmentID); err != nil {
			return fmt.Errorf("mark grades of assignment %d published: %w", assignmentID, err)
		}

		written = len(scores)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish_grades_failed")
		return dto.PublishGradesResponse{}, err
	}

	if skipped > 0 {
		s.logger.Warn().Uint("assignment_id", assignmentID).Int("ignored", skipped).Msg("ignored non-numeric goal ratings")
	}

	span.SetAttributes(attribute.Int("grades.scores_written", written))
	observability.GradesPublished().Inc()
	observability.ScoresWritten().Add(float64(written))

	s.cache.invalidate(ctx, assignmentGradesKey(assignmentID), assignmentViewKey(assignmentID))

	response := dto.PublishGradesResponse{AssignmentID: assignmentID, ScoresWritten: written, FinalizedAt: finalizedAt}
	if s.events != nil {
		if err := s.events.Publish(ctx, events.GradesPublished, response); err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to emit grades event")
		}
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Int("scores_written", written).Msg("grades published")

	return response, nil
}

// averageRatings averages the numeric ratings per evaluatee and counts the values it had to ignore.
func averageRatings(rows []repository.RatingRow) (map[string]float64, int) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	ignored := 0

	for _, row := range rows {
		value, ok := numericValue(row.Value)
		if !ok {
			ignored++
			continue
		}
		sums[row.EvaluateeUsername] += value
		counts[row.EvaluateeUsername]++
	}

	averages := make(map[string]float64, len(sums))
	for username, sum := range sums {
		averages[username] = sum / float64(counts[username])
	}

	return averages, ignored
}

// GetGrades returns every enrolled student of the section with their published score or
// "Not available", and their goal text.
func (s *gradingService) GetGrades(ctx context.Context, assignmentID uint) ([]dto.GradeEntry, error) {
	var cached []dto.GradeEntry
	if s.cache.get(ctx, assignmentGradesKey(assignmentID), &cached) {
		return cached, nil
	}

	assignment, err := s.repos.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("load assignment %d: %w", assignmentID, err)
	}

	enrollments, err := s.repos.Roster.ListEnrollments(ctx, assignment.RosterKey())
	if err != nil {
		return nil, fmt.Errorf("load roster of assignment %d: %w", assignmentID, err)
	}
	usernames := make([]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		usernames = append(usernames, enrollment.StudentUsername)
	}

	names, err := s.repos.Roster.StudentNames(ctx, usernames)
	if err != nil {
		return nil, fmt.Errorf("load student names: %w", err)
	}

	scores, err := s.repos.Scores.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load scores of assignment %d: %w", assignmentID, err)
	}
	scoreOf := make(map[string]models.Score, len(scores))
	for _, score := range scores {
		scoreOf[score.StudentUsername] = score
	}

	goals, err := s.repos.Goals.ListBySection(ctx, assignment.RosterKey())
	if err != nil {
		return nil, fmt.Errorf("load goals of assignment %d: %w", assignmentID, err)
	}

	entries := make([]dto.GradeEntry, 0, len(usernames))
	for _, username := range usernames {
		entry := dto.GradeEntry{
			Student: username,
			Name:    names[username],
			Score:   dto.ScoreNotAvailable,
			Goal:    goals[username],
		}
		if score, ok := scoreOf[username]; ok && score.Published {
			entry.Score = roundScore(score.Value)
		}
		entries = append(entries, entry)
	}

	s.cache.set(ctx, assignmentGradesKey(assignmentID), entries)

	return entries, nil
}

// GetStudentScore returns the caller's own score once it is published.
func (s *gradingService) GetStudentScore(ctx context.Context, assignmentID uint, username string) (dto.StudentScoreResponse, error) {
	if _, err := s.repos.Assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentScoreResponse{}, ErrAssignmentNotFound
		}
		return dto.StudentScoreResponse{}, fmt.Errorf("load assignment %d: %w", assignmentID, err)
	}

	response := dto.StudentScoreResponse{AssignmentID: assignmentID, Score: dto.ScoreNotAvailable}

	score, err := s.repos.Scores.GetByStudent(ctx, assignmentID, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response, nil
		}
		return dto.StudentScoreResponse{}, fmt.Errorf("load score of %s: %w", username, err)
	}

	if score.Published {
		response.Score = roundScore(score.Value)
		response.FinalizedAt = score.FinalizedAt
	}

	return response, nil
}

func roundScore(value float64) float64 {
	return math.Round(value*100) / 100
}
