package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

const goalPlaceholder = "This student has not set a goal yet."

// normalizeAnswer checks raw against the question kind and returns the value to store.
func normalizeAnswer(question models.Question, raw json.RawMessage, sanitizer *bluemonday.Policy) (datatypes.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: question %d has no value", ErrInvalidAnswer, question.ID)
	}

	kind, err := question.Kind()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}

	switch k := kind.(type) {
	case models.FreeResponseKind:
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%w: question %d expects text", ErrInvalidAnswer, question.ID)
		}
		return marshalValue(strings.TrimSpace(sanitizer.Sanitize(text)))
	case models.MultipleChoiceKind:
		var choice string
		if err := json.Unmarshal(trimmed, &choice); err != nil {
			return nil, fmt.Errorf("%w: question %d expects one option", ErrInvalidAnswer, question.ID)
		}
		for _, option := range k.Options {
			if option == choice {
				return marshalValue(choice)
			}
		}
		return nil, fmt.Errorf("%w: %q is not an option of question %d", ErrInvalidAnswer, choice, question.ID)
	case models.RatingKind:
		return normalizeRating(question.ID, trimmed, k.Min, k.Max)
	case models.GoalKind:
		return normalizeRating(question.ID, trimmed, k.Min, k.Max)
	default:
		return nil, fmt.Errorf("%w: unsupported question kind", ErrInvalidAnswer)
	}
}

func normalizeRating(questionID uint, raw json.RawMessage, lo, hi int) (datatypes.JSON, error) {
	value, ok := numericValue(raw)
	if !ok {
		return nil, fmt.Errorf("%w: question %d expects a number", ErrInvalidAnswer, questionID)
	}
	if hi != 0 && hi >= lo && (value < float64(lo) || value > float64(hi)) {
		return nil, fmt.Errorf("%w: question %d expects a value between %d and %d", ErrInvalidAnswer, questionID, lo, hi)
	}
	return marshalValue(value)
}

// numericValue reads a JSON number or a string holding one.
func numericValue(raw []byte) (float64, bool) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, true
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

func marshalValue(value interface{}) (datatypes.JSON, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

// renderPrompt returns the question text shown to an evaluator. Goal questions carry the
// evaluatee's current goal, or a placeholder when none is set.
func renderPrompt(question models.Question, goal string, hasGoal bool) string {
	kind, err := question.Kind()
	if err != nil {
		return question.Prompt
	}

	if _, ok := kind.(models.GoalKind); ok {
		text := strings.TrimSpace(goal)
		if !hasGoal || text == "" {
			text = goalPlaceholder
		}
		return fmt.Sprintf("%s\n\nGoal: %s", question.Prompt, text)
	}

	return question.Prompt
}
