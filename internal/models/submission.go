package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus is the lifecycle state of one evaluator/evaluatee obligation.
type SubmissionStatus string

const (
	// SubmissionStatusInProgress is the initial state set by fanout.
	SubmissionStatusInProgress SubmissionStatus = "in_progress"
	// SubmissionStatusSubmitted is terminal; answers are frozen.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
)

// Submission is one evaluator's evaluation task against one evaluatee for one assignment.
type Submission struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	AssignmentID      uint             `gorm:"not null;uniqueIndex:idx_submission_pair" json:"assignment_id"`
	EvaluatorUsername string           `gorm:"size:64;not null;uniqueIndex:idx_submission_pair" json:"evaluator_username"`
	EvaluateeUsername string           `gorm:"size:64;not null;uniqueIndex:idx_submission_pair;index" json:"evaluatee_username"`
	Status            SubmissionStatus `gorm:"size:32;not null" json:"status"`
	LastSavedAt       *time.Time       `json:"last_saved_at"`
	SubmittedAt       *time.Time       `json:"submitted_at"`
	CreatedAt         time.Time        `json:"created_at"`
}

// TableName keeps the historical table name.
func (Submission) TableName() string {
	return "student_submissions"
}

// IsSubmitted reports whether the submission reached its terminal state.
func (s Submission) IsSubmitted() bool {
	return s.Status == SubmissionStatusSubmitted
}

// StatusLabel is the owner-facing completion label.
func (s Submission) StatusLabel() string {
	if s.IsSubmitted() {
		return "Completed"
	}
	return "Incomplete"
}

// Answer stores the serialized answer payload for one question of a submission.
type Answer struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"not null;uniqueIndex:idx_answer_question" json:"submission_id"`
	QuestionID   uint           `gorm:"not null;uniqueIndex:idx_answer_question" json:"question_id"`
	Value        datatypes.JSON `gorm:"type:text" json:"value"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Score is the aggregated peer rating of a student on an assignment.
type Score struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AssignmentID    uint       `gorm:"not null;uniqueIndex:idx_score_student" json:"assignment_id"`
	StudentUsername string     `gorm:"size:64;not null;uniqueIndex:idx_score_student" json:"student_username"`
	Value           float64    `gorm:"not null" json:"value"`
	Published       bool       `gorm:"not null;default:false" json:"published"`
	FinalizedAt     *time.Time `json:"finalized_at"`
}
