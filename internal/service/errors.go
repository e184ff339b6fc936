package service

import "errors"

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSubmissionNotFound indicates a submission could not be found for the caller.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrQuestionNotFound indicates an answer references a question outside the assignment.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrGroupNotFound indicates the group does not exist in the assignment's section.
	ErrGroupNotFound = errors.New("group not found")
	// ErrNoEvaluationTargets indicates the evaluator has nothing to evaluate in the requested group.
	ErrNoEvaluationTargets = errors.New("no evaluations found")
	// ErrAlreadyPublished indicates the assignment was published before.
	ErrAlreadyPublished = errors.New("assignment already published")
	// ErrAssignmentNotPublished indicates the operation needs a published assignment.
	ErrAssignmentNotPublished = errors.New("assignment not published")
	// ErrAlreadySubmitted indicates the submission is finalized and its answers are frozen.
	ErrAlreadySubmitted = errors.New("submission already submitted")
	// ErrInvalidAnswer indicates an answer payload does not fit its question.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidQuestion indicates a question definition is inconsistent with its type.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidDueDate indicates the due date is malformed or not in the future.
	ErrInvalidDueDate = errors.New("invalid due date")
)
