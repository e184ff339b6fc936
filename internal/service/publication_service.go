package service

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/noah-isme/peer-eval-api/internal/observability"
	"github.com/noah-isme/peer-eval-api/internal/repository"
)

// PublicationService makes an assignment go live together with its complete evaluation matrix.
type PublicationService interface {
	Publish(ctx context.Context, assignmentID uint) (dto.PublishResponse, error)
}

type publicationService struct {
	tx     repository.Transactor
	cache  viewCache
	events EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewPublicationService constructs the publication coordinator.
func NewPublicationService(tx repository.Transactor, cache *redis.Client, publisher EventPublisher, logger zerolog.Logger) PublicationService {
	logger = logger.With().Str("component", "publication_service").Logger()
	return &publicationService{
		tx:     tx,
		cache:  newViewCache(cache, 0, logger),
		events: publisher,
		logger: logger,
		now:    time.Now,
	}
}

// Publish flips the assignment to published and inserts one submission per cross-group pair.
// Either all of it commits or none of it does; a second call fails with ErrAlreadyPublished.
func (s *publicationService) Publish(ctx context.Context, assignmentID uint) (dto.PublishResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/peer-eval-api/internal/service/publication")
	ctx, span := tracer.Start(ctx, "assignment.publish", trace.WithAttributes(attribute.Int64("assignment.id", int64(assignmentID))))
	defer span.End()

	created := 0
	err := s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		flipped, err := repos.Assignments.MarkPublished(ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("mark assignment %d published: %w", assignmentID, err)
		}

		assignment, err := repos.Assignments.GetByID(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("load assignment %d: %w", assignmentID, err)
		}
		if !flipped {
			return ErrAlreadyPublished
		}

		plan, err := PlanFanout(ctx, repos.Roster, assignment.RosterKey())
		if err != nil {
			return err
		}

		createdAt := s.now()
		for _, batch := range plan.Batches {
			if err := repos.Submissions.CreateBatch(ctx, batch.Submissions(assignmentID, createdAt)); err != nil {
				return fmt.Errorf("insert submissions of group %d for assignment %d: %w", batch.GroupID, assignmentID, err)
			}
			created += len(batch.Pairs)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, ErrAssignmentNotFound):
			span.SetStatus(codes.Error, "assignment_not_found")
			observability.Publications().WithLabelValues("not_found").Inc()
		case errors.Is(err, ErrAlreadyPublished):
			span.SetStatus(codes.Error, "already_published")
			observability.Publications().WithLabelValues("conflict").Inc()
		default:
			span.SetStatus(codes.Error, "publish_failed")
			observability.Publications().WithLabelValues("failed").Inc()
		}
		return dto.PublishResponse{}, err
	}

	span.SetAttributes(attribute.Int("fanout.submissions", created))
	observability.Publications().WithLabelValues("published").Inc()
	observability.FanoutSubmissions().Add(float64(created))

	s.cache.invalidate(ctx, assignmentViewKey(assignmentID))

	response := dto.PublishResponse{AssignmentID: assignmentID, SubmissionsCreated: created}
	if s.events != nil {
		if err := s.events.Publish(ctx, events.AssignmentPublished, response); err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to emit publication event")
		}
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Int("submissions_created", created).Msg("assignment published")

	return response, nil
}
