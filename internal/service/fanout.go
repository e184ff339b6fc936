package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/peer-eval-api/internal/models"
	"github.com/noah-isme/peer-eval-api/internal/repository"
)

// EvaluationPair is one ordered evaluation obligation.
type EvaluationPair struct {
	Evaluator string
	Evaluatee string
}

// FanoutBatch holds the obligations of every member of one evaluating group.
type FanoutBatch struct {
	GroupID uint
	Pairs   []EvaluationPair
}

// FanoutPlan is the full cross-group evaluation matrix of a section.
type FanoutPlan struct {
	Batches []FanoutBatch
}

// Size returns the number of pairs in the plan.
func (p FanoutPlan) Size() int {
	total := 0
	for _, batch := range p.Batches {
		total += len(batch.Pairs)
	}
	return total
}

// Pairs flattens the plan.
func (p FanoutPlan) Pairs() []EvaluationPair {
	pairs := make([]EvaluationPair, 0, p.Size())
	for _, batch := range p.Batches {
		pairs = append(pairs, batch.Pairs...)
	}
	return pairs
}

// Submissions materialises one batch as in-progress submission records.
func (b FanoutBatch) Submissions(assignmentID uint, createdAt time.Time) []models.Submission {
	submissions := make([]models.Submission, 0, len(b.Pairs))
	for _, pair := range b.Pairs {
		submissions = append(submissions, models.Submission{
			AssignmentID:      assignmentID,
			EvaluatorUsername: pair.Evaluator,
			EvaluateeUsername: pair.Evaluatee,
			Status:            models.SubmissionStatusInProgress,
			CreatedAt:         createdAt,
		})
	}
	return submissions
}

// BuildFanoutPlan expands group membership into pairwise evaluations: every grouped
// student evaluates every member of every other group. Students without a group are
// left out entirely. The output is sorted by group id and username.
func BuildFanoutPlan(enrollments []models.Enrollment) FanoutPlan {
	buckets := make(map[uint][]string)
	seen := make(map[string]struct{}, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.GroupID == nil {
			continue
		}
		if _, dup := seen[enrollment.StudentUsername]; dup {
			continue
		}
		seen[enrollment.StudentUsername] = struct{}{}
		buckets[*enrollment.GroupID] = append(buckets[*enrollment.GroupID], enrollment.StudentUsername)
	}

	groupIDs := make([]uint, 0, len(buckets))
	for id := range buckets {
		groupIDs = append(groupIDs, id)
		sort.Strings(buckets[id])
	}
	sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i] < groupIDs[j] })

	plan := FanoutPlan{}
	for _, groupID := range groupIDs {
		outsiders := make([]string, 0)
		for _, other := range groupIDs {
			if other != groupID {
				outsiders = append(outsiders, buckets[other]...)
			}
		}
		if len(outsiders) == 0 {
			continue
		}

		batch := FanoutBatch{GroupID: groupID}
		for _, evaluator := range buckets[groupID] {
			for _, evaluatee := range outsiders {
				if evaluator == evaluatee {
					continue
				}
				batch.Pairs = append(batch.Pairs, EvaluationPair{Evaluator: evaluator, Evaluatee: evaluatee})
			}
		}
		plan.Batches = append(plan.Batches, batch)
	}

	return plan
}

// PlanFanout loads the section roster and builds its evaluation matrix. An empty roster
// yields an empty plan.
func PlanFanout(ctx context.Context, roster repository.RosterRepository, section models.SectionKey) (FanoutPlan, error) {
	enrollments, err := roster.ListEnrollments(ctx, section)
	if err != nil {
		return FanoutPlan{}, fmt.Errorf("load roster %s/%s/%s: %w", section.Course, section.Section, section.Semester, err)
	}

	return BuildFanoutPlan(enrollments), nil
}
