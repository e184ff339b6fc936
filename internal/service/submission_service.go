package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
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

// SubmissionService governs the answer lifecycle of fanout submissions.
type SubmissionService interface {
	SaveDraft(ctx context.Context, submissionID uint, evaluator string, payload dto.AnswersRequest) (dto.SubmissionAck, error)
	Finalize(ctx context.Context, submissionID uint, evaluator string, payload dto.AnswersRequest) (dto.SubmissionAck, error)
	ViewForEvaluator(ctx context.Context, assignmentID uint, evaluator string, submissionID uint) (dto.SubmissionView, error)
	ListForOwner(ctx context.Context, assignmentID uint) ([]dto.EvaluateeProgress, error)
	GroupEvaluationTargets(ctx context.Context, evaluator string, groupID, assignmentID uint) (dto.GroupEvaluationTargets, error)
	ListEvaluationGroups(ctx context.Context, evaluator string, assignmentID uint) ([]dto.EvaluationGroupSummary, error)
}

type submissionService struct {
	tx        repository.Transactor
	repos     repository.Repositories
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	events    EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(tx repository.Transactor, repos repository.Repositories, validate *validator.Validate, publisher EventPublisher, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		tx:        tx,
		repos:     repos,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		events:    publisher,
		logger:    logger.With().Str("component", "submission_service").Logger(),
		now:       time.Now,
	}
}

// SaveDraft upserts the given answers without changing the submission status.
func (s *submissionService) SaveDraft(ctx context.Context, submissionID uint, evaluator string, payload dto.AnswersRequest) (dto.SubmissionAck, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionAck{}, err
	}

	var ack dto.SubmissionAck
	err := s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		submission, err := s.storeAnswers(ctx, repos, submissionID, evaluator, payload)
		if err != nil {
			return err
		}
		ack = dto.SubmissionAck{
			SubmissionID:  submission.ID,
			Status:        string(submission.Status),
			AnswersStored: len(payload.Answers),
		}
		return nil
	})
	if err != nil {
		return dto.SubmissionAck{}, err
	}

	observability.AnswersSaved().Add(float64(ack.AnswersStored))
	s.logger.Debug().Uint("submission_id", submissionID).Int("answers", ack.AnswersStored).Msg("draft saved")

	return ack, nil
}

// Finalize stores the answers and moves the submission to submitted in one transaction.
func (s *submissionService) Finalize(ctx context.Context, submissionID uint, evaluator string, payload dto.AnswersRequest) (dto.SubmissionAck, error) {
	tracer := otel.Tracer("github.com/noah-isme/peer-eval-api/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.finalize", trace.WithAttributes(attribute.Int64("submission.id", int64(submissionID))))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionAck{}, err
	}

	submittedAt := s.now()
	var ack dto.SubmissionAck
	var finalized models.Submission
	err := s.tx.WithinTransaction(ctx, func(repos repository.Repositories) error {
		submission, err := s.storeAnswers(ctx, repos, submissionID, evaluator, payload)
		if err != nil {
			return err
		}

		moved, err := repos.Submissions.MarkSubmitted(ctx, submission.ID, submittedAt)
		if err != nil {
			return fmt.Errorf("finalize submission %d: %w", submission.ID, err)
		}
		if !moved {
			return ErrAlreadySubmitted
		}

		finalized = submission
		ack = dto.SubmissionAck{
			SubmissionID:  submission.ID,
			Status:        string(models.SubmissionStatusSubmitted),
			AnswersStored: len(payload.Answers),
			SubmittedAt:   &submittedAt,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize_failed")
		return dto.SubmissionAck{}, err
	}

	observability.AnswersSaved().Add(float64(ack.AnswersStored))
	observability.SubmissionsFinalized().Inc()

	if s.events != nil {
		event := map[string]interface{}{
			"submission_id": finalized.ID,
			"assignment_id": finalized.AssignmentID,
			"evaluator":     finalized.EvaluatorUsername,
			"evaluatee":     finalized.EvaluateeUsername,
			"submitted_at":  submittedAt,
		}
		if err := s.events.Publish(ctx, events.SubmissionSubmitted, event); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", finalized.ID).Msg("failed to emit submission event")
		}
	}

	s.logger.Info().Uint("submission_id", finalized.ID).Uint("assignment_id", finalized.AssignmentID).Msg("submission finalized")

	return ack, nil
}

// storeAnswers loads the caller's submission, rejects finalized ones, validates each answer
// against its question and upserts them.
func (s *submissionService) storeAnswers(ctx context.Context, repos repository.Repositories, submissionID uint, evaluator string, payload dto.AnswersRequest) (models.Submission, error) {
	submission, err := s.loadOwnSubmission(ctx, repos, submissionID, evaluator)
	if err != nil {
		return models.Submission{}, err
	}
	if submission.IsSubmitted() {
		return models.Submission{}, ErrAlreadySubmitted
	}

	questions, err := repos.Questions.ListByAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return models.Submission{}, fmt.Errorf("load questions of assignment %d: %w", submission.AssignmentID, err)
	}
	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	questionIDs := make([]uint, 0, len(payload.Answers))
	for id := range payload.Answers {
		questionIDs = append(questionIDs, id)
	}
	sort.Slice(questionIDs, func(i, j int) bool { return questionIDs[i] < questionIDs[j] })

	savedAt := s.now()
	answers := make([]models.Answer, 0, len(questionIDs))
	for _, questionID := range questionIDs {
		question, ok := byID[questionID]
		if !ok {
			return models.Submission{}, fmt.Errorf("%w: question %d is not part of assignment %d", ErrQuestionNotFound, questionID, submission.AssignmentID)
		}
		value, err := normalizeAnswer(question, payload.Answers[questionID], s.sanitizer)
		if err != nil {
			return models.Submission{}, err
		}
		answers = append(answers, models.Answer{
			SubmissionID: submission.ID,
			QuestionID:   questionID,
			Value:        value,
			CreatedAt:    savedAt,
			UpdatedAt:    savedAt,
		})
	}

	if err := repos.Answers.Upsert(ctx, answers); err != nil {
		return models.Submission{}, fmt.Errorf("store answers of submission %d: %w", submission.ID, err)
	}
	if err := repos.Submissions.TouchSaved(ctx, submission.ID, savedAt); err != nil {
		return models.Submission{}, fmt.Errorf("touch submission %d: %w", submission.ID, err)
	}
	submission.LastSavedAt = &savedAt

	return submission, nil
}

func (s *submissionService) loadOwnSubmission(ctx context.Context, repos repository.Repositories, submissionID uint, evaluator string) (models.Submission, error) {
	submission, err := repos.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, fmt.Errorf("load submission %d: %w", submissionID, err)
	}
	if evaluator != "" && submission.EvaluatorUsername != evaluator {
		return models.Submission{}, ErrSubmissionNotFound
	}
	return submission, nil
}

func (s *submissionService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.repos.Assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, fmt.Errorf("load assignment %d: %w", id, err)
	}
	return assignment, nil
}

// ViewForEvaluator merges the assignment's questions with the stored answers of one submission.
func (s *submissionService) ViewForEvaluator(ctx context.Context, assignmentID uint, evaluator string, submissionID uint) (dto.SubmissionView, error) {
	submission, err := s.loadOwnSubmission(ctx, s.repos, submissionID, evaluator)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	if submission.AssignmentID != assignmentID {
		return dto.SubmissionView{}, ErrSubmissionNotFound
	}

	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionView{}, err
	}

	questions, err := s.repos.Questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionView{}, fmt.Errorf("load questions of assignment %d: %w", assignmentID, err)
	}

	answers, err := s.repos.Answers.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionView{}, fmt.Errorf("load answers of submission %d: %w", submission.ID, err)
	}
	answerByQuestion := make(map[uint]json.RawMessage, len(answers))
	for _, answer := range answers {
		answerByQuestion[answer.QuestionID] = json.RawMessage(answer.Value)
	}

	var goals map[string]string
	for _, question := range questions {
		if question.Type == models.QuestionTypeGoal {
			goals, err = s.repos.Goals.ListBySection(ctx, assignment.RosterKey())
			if err != nil {
				return dto.SubmissionView{}, fmt.Errorf("load goals for assignment %d: %w", assignmentID, err)
			}
			break
		}
	}
	goal, hasGoal := goals[submission.EvaluateeUsername]

	view := dto.SubmissionView{
		SubmissionID: submission.ID,
		AssignmentID: assignment.ID,
		Title:        assignment.Title,
		Evaluatee:    submission.EvaluateeUsername,
		Status:       string(submission.Status),
		LastSavedAt:  submission.LastSavedAt,
		SubmittedAt:  submission.SubmittedAt,
		DueDate:      assignment.DueDate,
		Questions:    make([]dto.SubmissionQuestionView, 0, len(questions)),
	}

	for _, question := range questions {
		view.Questions = append(view.Questions, dto.SubmissionQuestionView{
			QuestionID: question.ID,
			Position:   question.Position,
			Type:       string(question.Type),
			Prompt:     renderPrompt(question, goal, hasGoal),
			Options:    []string(question.Options),
			RatingMin:  question.RatingMin,
			RatingMax:  question.RatingMax,
			Answer:     answerByQuestion[question.ID],
		})
	}

	return view, nil
}

// ListForOwner reports, per enrolled evaluatee, how many of their evaluators have submitted.
// Students nobody evaluates are listed with zero evaluators.
func (s *submissionService) ListForOwner(ctx context.Context, assignmentID uint) ([]dto.EvaluateeProgress, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.repos.Roster.ListEnrollments(ctx, assignment.RosterKey())
	if err != nil {
		return nil, fmt.Errorf("load roster of assignment %d: %w", assignmentID, err)
	}

	submissions, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{AssignmentID: assignmentID})
	if err != nil {
		return nil, fmt.Errorf("list submissions of assignment %d: %w", assignmentID, err)
	}

	order := make([]string, 0, len(enrollments))
	progress := make(map[string]*dto.EvaluateeProgress, len(enrollments))
	for _, enrollment := range enrollments {
		if _, ok := progress[enrollment.StudentUsername]; ok {
			continue
		}
		progress[enrollment.StudentUsername] = &dto.EvaluateeProgress{Username: enrollment.StudentUsername}
		order = append(order, enrollment.StudentUsername)
	}

	for _, submission := range submissions {
		entry, ok := progress[submission.EvaluateeUsername]
		if !ok {
			entry = &dto.EvaluateeProgress{Username: submission.EvaluateeUsername}
			progress[submission.EvaluateeUsername] = entry
			order = append(order, submission.EvaluateeUsername)
		}
		entry.Evaluators++
		if submission.IsSubmitted() {
			entry.Submitted++
		}
	}

	names, err := s.repos.Roster.StudentNames(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load student names: %w", err)
	}

	result := make([]dto.EvaluateeProgress, 0, len(order))
	for _, username := range order {
		entry := progress[username]
		entry.Name = names[username]
		switch {
		case entry.Evaluators == 0:
			entry.Status = "No evaluators"
		case entry.Submitted == entry.Evaluators:
			entry.Status = "Completed"
		default:
			entry.Status = "Incomplete"
		}
		entry.Summary = fmt.Sprintf("%d of %d evaluators submitted", entry.Submitted, entry.Evaluators)
		result = append(result, *entry)
	}

	return result, nil
}

// GroupEvaluationTargets lists the evaluator's submissions against members of one group.
func (s *submissionService) GroupEvaluationTargets(ctx context.Context, evaluator string, groupID, assignmentID uint) (dto.GroupEvaluationTargets, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.GroupEvaluationTargets{}, err
	}

	group, err := s.repos.Roster.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GroupEvaluationTargets{}, ErrGroupNotFound
		}
		return dto.GroupEvaluationTargets{}, fmt.Errorf("load group %d: %w", groupID, err)
	}
	if (models.SectionKey{Course: group.Course, Section: group.Section, Semester: group.Semester}) != assignment.RosterKey() {
		return dto.GroupEvaluationTargets{}, ErrGroupNotFound
	}

	members, err := s.repos.Roster.GroupMembers(ctx, groupID)
	if err != nil {
		return dto.GroupEvaluationTargets{}, fmt.Errorf("load members of group %d: %w", groupID, err)
	}

	submissions, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID:       assignmentID,
		EvaluatorUsername:  evaluator,
		EvaluateeUsernames: members,
	})
	if err != nil {
		return dto.GroupEvaluationTargets{}, fmt.Errorf("list evaluations for group %d: %w", groupID, err)
	}
	if len(submissions) == 0 {
		return dto.GroupEvaluationTargets{}, ErrNoEvaluationTargets
	}

	evaluatees := make([]string, 0, len(submissions))
	for _, submission := range submissions {
		evaluatees = append(evaluatees, submission.EvaluateeUsername)
	}
	names, err := s.repos.Roster.StudentNames(ctx, evaluatees)
	if err != nil {
		return dto.GroupEvaluationTargets{}, fmt.Errorf("load student names: %w", err)
	}

	response := dto.GroupEvaluationTargets{
		GroupID:     group.ID,
		GroupName:   group.Name,
		Evaluations: make([]dto.EvaluationTarget, 0, len(submissions)),
	}
	for _, submission := range submissions {
		response.Evaluations = append(response.Evaluations, dto.EvaluationTarget{
			SubmissionID: submission.ID,
			Username:     submission.EvaluateeUsername,
			Name:         names[submission.EvaluateeUsername],
			Status:       submission.StatusLabel(),
		})
	}

	return response, nil
}

// ListEvaluationGroups summarises the evaluator's progress per target group.
func (s *submissionService) ListEvaluationGroups(ctx context.Context, evaluator string, assignmentID uint) ([]dto.EvaluationGroupSummary, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	groups, err := s.repos.Roster.ListGroups(ctx, assignment.RosterKey())
	if err != nil {
		return nil, fmt.Errorf("list groups of assignment %d: %w", assignmentID, err)
	}
	enrollments, err := s.repos.Roster.ListEnrollments(ctx, assignment.RosterKey())
	if err != nil {
		return nil, fmt.Errorf("load roster of assignment %d: %w", assignmentID, err)
	}
	groupOf := make(map[string]uint, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.GroupID != nil {
			groupOf[enrollment.StudentUsername] = *enrollment.GroupID
		}
	}

	submissions, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID:      assignmentID,
		EvaluatorUsername: evaluator,
	})
	if err != nil {
		return nil, fmt.Errorf("list evaluations of %s: %w", evaluator, err)
	}

	totals := make(map[uint]*dto.EvaluationGroupSummary, len(groups))
	for _, group := range groups {
		totals[group.ID] = &dto.EvaluationGroupSummary{GroupID: group.ID, GroupName: group.Name}
	}
	for _, submission := range submissions {
		summary, ok := totals[groupOf[submission.EvaluateeUsername]]
		if !ok {
			continue
		}
		summary.Total++
		if submission.IsSubmitted() {
			summary.Completed++
		}
	}

	result := make([]dto.EvaluationGroupSummary, 0, len(groups))
	for _, group := range groups {
		if summary := totals[group.ID]; summary.Total > 0 {
			result = append(result, *summary)
		}
	}

	return result, nil
}
