package service

import (
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/peer-eval-api/internal/database"
	"github.com/noah-isme/peer-eval-api/internal/models"
)

var testDBCounter int64

var testSection = models.SectionKey{Course: "CS101", Section: "A", Semester: "2024-fall"}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:peer_eval_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// seedRoster enrolls the given groups into section and returns the group ids by name.
// Students listed in ungrouped are enrolled without a group.
func seedRoster(t *testing.T, db *gorm.DB, section models.SectionKey, groups map[string][]string, ungrouped ...string) map[string]uint {
	t.Helper()

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	ids := make(map[string]uint, len(groups))
	for _, name := range names {
		group := models.StudentGroup{Course: section.Course, Section: section.Section, Semester: section.Semester, Name: name}
		require.NoError(t, db.Create(&group).Error)
		ids[name] = group.ID

		for _, username := range groups[name] {
			groupID := group.ID
			enroll(t, db, section, username, &groupID)
		}
	}

	for _, username := range ungrouped {
		enroll(t, db, section, username, nil)
	}

	return ids
}

func enroll(t *testing.T, db *gorm.DB, section models.SectionKey, username string, groupID *uint) {
	t.Helper()

	require.NoError(t, db.Create(&models.Student{Username: username, Name: "Student " + username}).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		StudentUsername: username,
		Course:          section.Course,
		Section:         section.Section,
		Semester:        section.Semester,
		GroupID:         groupID,
	}).Error)
}

// seedAssignment stores an unpublished assignment with a goal rating and a free response question.
func seedAssignment(t *testing.T, db *gorm.DB, section models.SectionKey) (models.Assignment, models.Question, models.Question) {
	t.Helper()

	assignment := models.Assignment{
		Course:        section.Course,
		Section:       section.Section,
		Semester:      section.Semester,
		Title:         "Sprint 1 review",
		DueDate:       time.Now().Add(72 * time.Hour),
		EvaluateGoals: true,
		CreatedBy:     "prof",
	}
	require.NoError(t, db.Create(&assignment).Error)

	goal := models.Question{AssignmentID: assignment.ID, Position: 1, Type: models.QuestionTypeGoal, Prompt: "How well did they meet their goal?", RatingMin: 1, RatingMax: 5}
	comment := models.Question{AssignmentID: assignment.ID, Position: 2, Type: models.QuestionTypeFreeResponse, Prompt: "Comments"}
	require.NoError(t, db.Create(&goal).Error)
	require.NoError(t, db.Create(&comment).Error)

	return assignment, goal, comment
}

func findSubmission(t *testing.T, db *gorm.DB, assignmentID uint, evaluator, evaluatee string) models.Submission {
	t.Helper()

	var submission models.Submission
	require.NoError(t, db.Where("assignment_id = ? AND evaluator_username = ? AND evaluatee_username = ?", assignmentID, evaluator, evaluatee).First(&submission).Error)
	return submission
}
