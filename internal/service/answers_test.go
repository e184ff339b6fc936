package service

import (
	"encoding/json"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

func TestNormalizeAnswerRatingBounds(t *testing.T) {
	sanitizer := bluemonday.StrictPolicy()

	fixed := models.Question{ID: 1, Type: models.QuestionTypeRating, RatingMin: 3, RatingMax: 3}
	value, err := normalizeAnswer(fixed, json.RawMessage(`3`), sanitizer)
	require.NoError(t, err)
	require.JSONEq(t, `3`, string(value))

	_, err = normalizeAnswer(fixed, json.RawMessage(`1000`), sanitizer)
	require.ErrorIs(t, err, ErrInvalidAnswer)

	goal := models.Question{ID: 2, Type: models.QuestionTypeGoal, RatingMin: 1, RatingMax: 5}
	value, err = normalizeAnswer(goal, json.RawMessage(`"4"`), sanitizer)
	require.NoError(t, err)
	require.JSONEq(t, `4`, string(value))

	_, err = normalizeAnswer(goal, json.RawMessage(`6`), sanitizer)
	require.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestNumericValueRejectsNonFinite(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"nan"`, `"Inf"`, `"+Inf"`, `"-Infinity"`} {
		_, ok := numericValue([]byte(raw))
		require.False(t, ok, raw)
	}

	value, ok := numericValue([]byte(`" 2.5 "`))
	require.True(t, ok)
	require.Equal(t, 2.5, value)
}
