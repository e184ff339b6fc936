package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// QuestionType is the stored type tag of a question.
type QuestionType string

const (
	QuestionTypeGoal           QuestionType = "goal"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeRating         QuestionType = "rating"
	QuestionTypeFreeResponse   QuestionType = "free_response"
)

// Question is one ordered prompt of an assignment.
type Question struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	AssignmentID uint                        `gorm:"not null;index" json:"assignment_id"`
	Position     int                         `gorm:"not null" json:"position"`
	Type         QuestionType                `gorm:"size:32;not null" json:"type"`
	Prompt       string                      `gorm:"type:text;not null" json:"prompt"`
	Options      datatypes.JSONSlice[string] `gorm:"type:text" json:"options,omitempty"`
	RatingMin    int                         `json:"rating_min"`
	RatingMax    int                         `json:"rating_max"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// QuestionKind is the closed set of question variants with their type-specific payload.
type QuestionKind interface {
	questionKind()
	Type() QuestionType
}

// GoalKind asks peers to rate progress toward the evaluatee's stated goal.
type GoalKind struct {
	Min int
	Max int
}

// MultipleChoiceKind restricts answers to one of Options.
type MultipleChoiceKind struct {
	Options []string
}

// RatingKind is a bounded numeric rating.
type RatingKind struct {
	Min int
	Max int
}

// FreeResponseKind accepts any text.
type FreeResponseKind struct{}

func (GoalKind) questionKind()           {}
func (MultipleChoiceKind) questionKind() {}
func (RatingKind) questionKind()         {}
func (FreeResponseKind) questionKind()   {}

func (GoalKind) Type() QuestionType           { return QuestionTypeGoal }
func (MultipleChoiceKind) Type() QuestionType { return QuestionTypeMultipleChoice }
func (RatingKind) Type() QuestionType         { return QuestionTypeRating }
func (FreeResponseKind) Type() QuestionType   { return QuestionTypeFreeResponse }

// Kind decodes the stored type tag into its variant.
func (q Question) Kind() (QuestionKind, error) {
	switch q.Type {
	case QuestionTypeGoal:
		return GoalKind{Min: q.RatingMin, Max: q.RatingMax}, nil
	case QuestionTypeMultipleChoice:
		return MultipleChoiceKind{Options: append([]string(nil), q.Options...)}, nil
	case QuestionTypeRating:
		return RatingKind{Min: q.RatingMin, Max: q.RatingMax}, nil
	case QuestionTypeFreeResponse:
		return FreeResponseKind{}, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
}
