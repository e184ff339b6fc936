package dto

import (
	"encoding/json"
	"time"
)

// AnswersRequest carries answers keyed by question id. Partial sets are allowed.
type AnswersRequest struct {
	Answers map[uint]json.RawMessage `json:"answers" validate:"required,dive,keys,gt=0,endkeys"`
}

// SubmissionQuestionView is a question merged with the evaluator's stored answer, if any.
type SubmissionQuestionView struct {
	QuestionID uint            `json:"question_id"`
	Position   int             `json:"position"`
	Type       string          `json:"type"`
	Prompt     string          `json:"prompt"`
	Options    []string        `json:"options,omitempty"`
	RatingMin  int             `json:"rating_min,omitempty"`
	RatingMax  int             `json:"rating_max,omitempty"`
	Answer     json.RawMessage `json:"answer"`
}

// SubmissionView is what an evaluator sees when opening one evaluation.
type SubmissionView struct {
	SubmissionID uint                     `json:"submission_id"`
	AssignmentID uint                     `json:"assignment_id"`
	Title        string                   `json:"title"`
	Evaluatee    string                   `json:"evaluatee"`
	Status       string                   `json:"status"`
	LastSavedAt  *time.Time               `json:"last_saved_at"`
	SubmittedAt  *time.Time               `json:"submitted_at"`
	DueDate      time.Time                `json:"due_date"`
	Questions    []SubmissionQuestionView `json:"questions"`
}

// SubmissionAck acknowledges a save or submit.
type SubmissionAck struct {
	SubmissionID  uint       `json:"submission_id"`
	Status        string     `json:"status"`
	AnswersStored int        `json:"answers_stored"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
}

// EvaluationTarget is one peer the evaluator must assess.
type EvaluationTarget struct {
	SubmissionID uint   `json:"submission_id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Status       string `json:"status"`
}

// GroupEvaluationTargets lists the evaluator's obligations toward one group.
type GroupEvaluationTargets struct {
	GroupID     uint               `json:"group_id"`
	GroupName   string             `json:"group_name"`
	Evaluations []EvaluationTarget `json:"evaluations"`
}

// EvaluationGroupSummary summarises the evaluator's progress toward one group.
type EvaluationGroupSummary struct {
	GroupID   uint   `json:"group_id"`
	GroupName string `json:"group_name"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// EvaluateeProgress is the owner-facing completion state of one evaluatee.
type EvaluateeProgress struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Submitted  int    `json:"submitted"`
	Evaluators int    `json:"evaluators"`
	Status     string `json:"status"`
	Summary    string `json:"summary"`
}
