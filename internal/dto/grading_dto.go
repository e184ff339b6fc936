package dto

import "time"

// ScoreNotAvailable is shown for students without a computed score.
const ScoreNotAvailable = "Not available"

// GradeEntry is one row of the teacher grade sheet. Score is a number or ScoreNotAvailable.
type GradeEntry struct {
	Student string      `json:"student"`
	Name    string      `json:"name"`
	Score   interface{} `json:"score"`
	Goal    string      `json:"goal"`
}

// PublishGradesResponse acknowledges a grade publication.
type PublishGradesResponse struct {
	AssignmentID  uint      `json:"assignment_id"`
	ScoresWritten int       `json:"scores_written"`
	FinalizedAt   time.Time `json:"finalized_at"`
}

// StudentScoreResponse is the owning student's view of their score.
type StudentScoreResponse struct {
	AssignmentID uint        `json:"assignment_id"`
	Score        interface{} `json:"score"`
	FinalizedAt  *time.Time  `json:"finalized_at,omitempty"`
}
