package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Assignments AssignmentRepository
	Questions   QuestionRepository
	Roster      RosterRepository
	Goals       GoalRepository
	Submissions SubmissionRepository
	Answers     AnswerRepository
	Scores      ScoreRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Assignments: NewAssignmentRepository(db),
		Questions:   NewQuestionRepository(db),
		Roster:      NewRosterRepository(db),
		Goals:       NewGoalRepository(db),
		Submissions: NewSubmissionRepository(db),
		Answers:     NewAnswerRepository(db),
		Scores:      NewScoreRepository(db),
	}
}

// Transactor runs a unit of work inside a single storage transaction.
// The transaction commits when fn returns nil and rolls back otherwise, including on panic.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor instantiates a GORM-backed transactor.
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
