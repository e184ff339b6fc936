package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/dto"
	"github.com/noah-isme/peer-eval-api/internal/models"
	"github.com/noah-isme/peer-eval-api/internal/repository"
)

type submissionFixture struct {
	db         *gorm.DB
	svc        SubmissionService
	publisher  *recordingPublisher
	assignment models.Assignment
	goal       models.Question
	comment    models.Question
	groups     map[string]uint
}

func newSubmissionFixture(t *testing.T) submissionFixture {
	t.Helper()

	db := setupTestDB(t)
	groups := seedRoster(t, db, testSection, map[string][]string{
		"Red":  {"alice", "bob"},
		"Blue": {"carol"},
	})
	require.NoError(t, db.Create(&models.Goal{
		StudentUsername: "carol",
		Course:          testSection.Course,
		Section:         testSection.Section,
		Semester:        testSection.Semester,
		Text:            "Ship the login page",
	}).Error)

	assignment, goal, comment := seedAssignment(t, db, testSection)
	_, err := newTestPublicationService(db, nil).Publish(context.Background(), assignment.ID)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	svc := NewSubmissionService(repository.NewTransactor(db), repository.NewRepositories(db), testValidator(), publisher, testLogger())

	return submissionFixture{
		db:         db,
		svc:        svc,
		publisher:  publisher,
		assignment: assignment,
		goal:       goal,
		comment:    comment,
		groups:     groups,
	}
}

func answers(pairs map[uint]string) dto.AnswersRequest {
	payload := dto.AnswersRequest{Answers: make(map[uint]json.RawMessage, len(pairs))}
	for id, raw := range pairs {
		payload.Answers[id] = json.RawMessage(raw)
	}
	return payload
}

func TestSubmissionServiceSaveDraftIsIdempotent(t *testing.T) {
	f := newSubmissionFixture(t)
	submission := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")

	payload := answers(map[uint]string{f.goal.ID: `4`})
	_, err := f.svc.SaveDraft(context.Background(), submission.ID, "alice", payload)
	require.NoError(t, err)
	ack, err := f.svc.SaveDraft(context.Background(), submission.ID, "alice", payload)
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusInProgress), ack.Status)

	var stored []models.Answer
	require.NoError(t, f.db.Where("submission_id = ?", submission.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	require.JSONEq(t, `4`, string(stored[0].Value))

	_, err = f.svc.SaveDraft(context.Background(), submission.ID, "alice", answers(map[uint]string{f.goal.ID: `"2"`}))
	require.NoError(t, err)
	require.NoError(t, f.db.Where("submission_id = ?", submission.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	require.JSONEq(t, `2`, string(stored[0].Value))

	reloaded := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")
	require.Equal(t, models.SubmissionStatusInProgress, reloaded.Status)
	require.NotNil(t, reloaded.LastSavedAt)
	require.Nil(t, reloaded.SubmittedAt)
}

func TestSubmissionServicePartialSaveShowsInView(t *testing.T) {
	f := newSubmissionFixture(t)
	submission := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")

	_, err := f.svc.SaveDraft(context.Background(), submission.ID, "alice", answers(map[uint]string{f.comment.ID: `"<b>Great</b> teammate"`}))
	require.NoError(t, err)

	view, err := f.svc.ViewForEvaluator(context.Background(), f.assignment.ID, "alice", submission.ID)
	require.NoError(t, err)
	require.Equal(t, "carol", view.Evaluatee)
	require.Len(t, view.Questions, 2)
	require.Nil(t, view.Questions[0].Answer)
	require.JSONEq(t, `"Great teammate"`, string(view.Questions[1].Answer))
}

func TestSubmissionServiceViewShowsEvaluateeGoal(t *testing.T) {
	f := newSubmissionFixture(t)

	towardCarol := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")
	view, err := f.svc.ViewForEvaluator(context.Background(), f.assignment.ID, "alice", towardCarol.ID)
	require.NoError(t, err)
	require.Equal(t, f.goal.Prompt+"\n\nGoal: Ship the login page", view.Questions[0].Prompt)
	require.Equal(t, f.comment.Prompt, view.Questions[1].Prompt)

	towardAlice := findSubmission(t, f.db, f.assignment.ID, "carol", "alice")
	view, err = f.svc.ViewForEvaluator(context.Background(), f.assignment.ID, "carol", towardAlice.ID)
	require.NoError(t, err)
	require.Equal(t, f.goal.Prompt+"\n\nGoal: "+goalPlaceholder, view.Questions[0].Prompt)
}

func TestSubmissionServiceViewHidesOtherEvaluators(t *testing.T) {
	f := newSubmissionFixture(t)
	submission := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")

	_, err := f.svc.ViewForEvaluator(context.Background(), f.assignment.ID, "bob", submission.ID)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = f.svc.SaveDraft(context.Background(), submission.ID, "bob", answers(map[uint]string{f.goal.ID: `3`}))
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSubmissionServiceRejectsInvalidAnswers(t *testing.T) {
	f := newSubmissionFixture(t)
	submission := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")

	_, err := f.svc.SaveDraft(context.Background(), submission.ID, "alice", answers(map[uint]string{f.goal.ID: `9`}))
	require.ErrorIs(t, err, ErrInvalidAnswer)

	_, err = f.svc.SaveDraft(context.Background(), submission.ID, "alice", answers(map[uint]string{f.goal.ID: `"plenty"`}))
	require.ErrorIs(t, err, ErrInvalidAnswer)

	for _, raw := range []string{`"NaN"`, `"Inf"`, `"-Infinity"`} {
		_, err = f.svc.SaveDraft(context.Background(), submission.ID, "alice", answers(map[uint]string{f.goal.ID: raw}))
		require.ErrorIs(t, err, ErrInvalidAnswer, raw)
	}

	_, err = f.svc.SaveDraft(context.Background(), submission.ID, "alice", answers(map[uint]string{9999: `3`}))
	require.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = f.svc.SaveDraft(context.Background(), 4242, "alice", answers(map[uint]string{f.goal.ID: `3`}))
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	var count int64
	require.NoError(t, f.db.Model(&models.Answer{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSubmissionServiceFinalize(t *testing.T) {
	f := newSubmissionFixture(t)
	submission := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")

	ack, err := f.svc.Finalize(context.Background(), submission.ID, "alice", answers(map[uint]string{
		f.goal.ID:    `5`,
		f.comment.ID: `"Always on time"`,
	}))
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusSubmitted), ack.Status)
	require.Equal(t, 2, ack.AnswersStored)
	require.NotNil(t, ack.SubmittedAt)

	reloaded := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")
	require.True(t, reloaded.IsSubmitted())
	require.NotNil(t, reloaded.SubmittedAt)
	require.Equal(t, []string{"submission.submitted"}, f.publisher.events)

	_, err = f.svc.Finalize(context.Background(), submission.ID, "alice", answers(map[uint]string{}))
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	_, err = f.svc.SaveDraft(context.Background(), submission.ID, "alice", answers(map[uint]string{f.goal.ID: `1`}))
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	var stored models.Answer
	require.NoError(t, f.db.Where("submission_id = ? AND question_id = ?", submission.ID, f.goal.ID).First(&stored).Error)
	require.JSONEq(t, `5`, string(stored.Value))
}

func TestSubmissionServiceFinalizeRollsBackOnInvalidAnswer(t *testing.T) {
	f := newSubmissionFixture(t)
	submission := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")

	_, err := f.svc.Finalize(context.Background(), submission.ID, "alice", answers(map[uint]string{f.goal.ID: `0`}))
	require.ErrorIs(t, err, ErrInvalidAnswer)

	reloaded := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")
	require.False(t, reloaded.IsSubmitted())
	require.Empty(t, f.publisher.events)
}

func TestSubmissionServiceListForOwner(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	fromAlice := findSubmission(t, f.db, f.assignment.ID, "alice", "carol")
	_, err := f.svc.Finalize(ctx, fromAlice.ID, "alice", answers(map[uint]string{f.goal.ID: `4`}))
	require.NoError(t, err)

	progress, err := f.svc.ListForOwner(ctx, f.assignment.ID)
	require.NoError(t, err)
	require.Len(t, progress, 3)

	byUser := map[string]dto.EvaluateeProgress{}
	for _, entry := range progress {
		byUser[entry.Username] = entry
	}
	require.Equal(t, "Incomplete", byUser["carol"].Status)
	require.Equal(t, "1 of 2 evaluators submitted", byUser["carol"].Summary)
	require.Equal(t, "Student carol", byUser["carol"].Name)

	fromBob := findSubmission(t, f.db, f.assignment.ID, "bob", "carol")
	_, err = f.svc.Finalize(ctx, fromBob.ID, "bob", answers(map[uint]string{f.goal.ID: `2`}))
	require.NoError(t, err)

	progress, err = f.svc.ListForOwner(ctx, f.assignment.ID)
	require.NoError(t, err)
	for _, entry := range progress {
		if entry.Username == "carol" {
			require.Equal(t, "Completed", entry.Status)
			require.Equal(t, 2, entry.Submitted)
		} else {
			require.Equal(t, "Incomplete", entry.Status)
			require.Equal(t, 1, entry.Evaluators)
		}
	}

	_, err = f.svc.ListForOwner(ctx, 999)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSubmissionServiceListForOwnerIncludesUnevaluatedStudents(t *testing.T) {
	db := setupTestDB(t)
	seedRoster(t, db, testSection, map[string][]string{"Red": {"alice", "bob"}}, "erin")
	assignment, _, _ := seedAssignment(t, db, testSection)
	_, err := newTestPublicationService(db, nil).Publish(context.Background(), assignment.ID)
	require.NoError(t, err)

	svc := NewSubmissionService(repository.NewTransactor(db), repository.NewRepositories(db), testValidator(), nil, testLogger())
	progress, err := svc.ListForOwner(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Len(t, progress, 3)

	usernames := make([]string, 0, len(progress))
	for _, entry := range progress {
		usernames = append(usernames, entry.Username)
		require.Zero(t, entry.Evaluators)
		require.Equal(t, "No evaluators", entry.Status)
		require.Equal(t, "0 of 0 evaluators submitted", entry.Summary)
		require.Equal(t, "Student "+entry.Username, entry.Name)
	}
	require.Equal(t, []string{"alice", "bob", "erin"}, usernames)
}

func TestSubmissionServiceGroupEvaluationTargets(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	targets, err := f.svc.GroupEvaluationTargets(ctx, "alice", f.groups["Blue"], f.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, "Blue", targets.GroupName)
	require.Len(t, targets.Evaluations, 1)
	require.Equal(t, "carol", targets.Evaluations[0].Username)
	require.Equal(t, "Incomplete", targets.Evaluations[0].Status)

	_, err = f.svc.GroupEvaluationTargets(ctx, "alice", f.groups["Red"], f.assignment.ID)
	require.ErrorIs(t, err, ErrNoEvaluationTargets)

	_, err = f.svc.GroupEvaluationTargets(ctx, "alice", 999, f.assignment.ID)
	require.ErrorIs(t, err, ErrGroupNotFound)

	targets, err = f.svc.GroupEvaluationTargets(ctx, "carol", f.groups["Red"], f.assignment.ID)
	require.NoError(t, err)
	require.Len(t, targets.Evaluations, 2)
	require.Equal(t, "alice", targets.Evaluations[0].Username)
	require.Equal(t, "bob", targets.Evaluations[1].Username)
}

func TestSubmissionServiceListEvaluationGroups(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	towardAlice := findSubmission(t, f.db, f.assignment.ID, "carol", "alice")
	_, err := f.svc.Finalize(ctx, towardAlice.ID, "carol", answers(map[uint]string{f.goal.ID: `3`}))
	require.NoError(t, err)

	summaries, err := f.svc.ListEvaluationGroups(ctx, "carol", f.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, []dto.EvaluationGroupSummary{{GroupID: f.groups["Red"], GroupName: "Red", Completed: 1, Total: 2}}, summaries)

	summaries, err = f.svc.ListEvaluationGroups(ctx, "alice", f.assignment.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "Blue", summaries[0].GroupName)
	require.Zero(t, summaries[0].Completed)
}
