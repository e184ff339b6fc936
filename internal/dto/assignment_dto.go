package dto

import (
	"time"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

// QuestionCreateRequest describes one question of a new assignment.
type QuestionCreateRequest struct {
	Type      string   `json:"type" validate:"required,oneof=goal multiple_choice rating free_response"`
	Prompt    string   `json:"prompt" validate:"required,min=3"`
	Options   []string `json:"options" validate:"omitempty,dive,required"`
	RatingMin int      `json:"rating_min" validate:"gte=0"`
	RatingMax int      `json:"rating_max" validate:"gtefield=RatingMin"`
}

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Course        string                  `json:"course" validate:"required"`
	Semester      string                  `json:"semester" validate:"required"`
	Section       string                  `json:"section" validate:"required"`
	Title         string                  `json:"title" validate:"required,min=3"`
	DueDate       string                  `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EvaluateGoals bool                    `json:"evaluate_goals"`
	Questions     []QuestionCreateRequest `json:"questions" validate:"dive"`
}

// QuestionResponse is a question as shown to teachers.
type QuestionResponse struct {
	ID        uint     `json:"id"`
	Position  int      `json:"position"`
	Type      string   `json:"type"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options,omitempty"`
	RatingMin int      `json:"rating_min,omitempty"`
	RatingMax int      `json:"rating_max,omitempty"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID              uint               `json:"id"`
	Course          string             `json:"course"`
	Semester        string             `json:"semester"`
	Section         string             `json:"section"`
	Title           string             `json:"title"`
	DueDate         time.Time          `json:"due_date"`
	Published       bool               `json:"published"`
	EvaluateGoals   bool               `json:"evaluate_goals"`
	GradesPublished bool               `json:"grades_published"`
	Questions       []QuestionResponse `json:"questions"`
}

// PublishResponse acknowledges a publication.
type PublishResponse struct {
	AssignmentID       uint `json:"assignment_id"`
	SubmissionsCreated int  `json:"submissions_created"`
}

// NewQuestionResponse converts a model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:        model.ID,
		Position:  model.Position,
		Type:      string(model.Type),
		Prompt:    model.Prompt,
		Options:   []string(model.Options),
		RatingMin: model.RatingMin,
		RatingMax: model.RatingMax,
	}
}

// NewAssignmentResponse converts an assignment and its questions into a DTO.
func NewAssignmentResponse(model models.Assignment, questions []models.Question) AssignmentResponse {
	response := AssignmentResponse{
		ID:              model.ID,
		Course:          model.Course,
		Semester:        model.Semester,
		Section:         model.Section,
		Title:           model.Title,
		DueDate:         model.DueDate,
		Published:       model.Published,
		EvaluateGoals:   model.EvaluateGoals,
		GradesPublished: model.GradesPublished,
		Questions:       make([]QuestionResponse, 0, len(questions)),
	}

	for _, question := range questions {
		response.Questions = append(response.Questions, NewQuestionResponse(question))
	}

	return response
}
