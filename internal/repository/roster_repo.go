package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peer-eval-api/internal/models"
)

// RosterRepository gives read access to enrollments, groups and student profiles.
// Group membership is always derived from enrollments at query time.
type RosterRepository interface {
	ListEnrollments(ctx context.Context, section models.SectionKey) ([]models.Enrollment, error)
	GetGroup(ctx context.Context, id uint) (models.StudentGroup, error)
	ListGroups(ctx context.Context, section models.SectionKey) ([]models.StudentGroup, error)
	GroupMembers(ctx context.Context, groupID uint) ([]string, error)
	StudentNames(ctx context.Context, usernames []string) (map[string]string, error)
}

type rosterRepository struct {
	db *gorm.DB
}

// NewRosterRepository constructs a roster repository.
func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

func (r *rosterRepository) sectionQuery(ctx context.Context, model interface{}, section models.SectionKey) *gorm.DB {
	return r.db.WithContext(ctx).Model(model).
		Where("course = ?", section.Course).
		Where("section = ?", section.Section).
		Where("semester = ?", section.Semester)
}

func (r *rosterRepository) ListEnrollments(ctx context.Context, section models.SectionKey) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.sectionQuery(ctx, &models.Enrollment{}, section).
		Order("student_username ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *rosterRepository) GetGroup(ctx context.Context, id uint) (models.StudentGroup, error) {
	var group models.StudentGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return models.StudentGroup{}, err
	}

	return group, nil
}

func (r *rosterRepository) ListGroups(ctx context.Context, section models.SectionKey) ([]models.StudentGroup, error) {
	var groups []models.StudentGroup
	if err := r.sectionQuery(ctx, &models.StudentGroup{}, section).
		Order("name ASC").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *rosterRepository) GroupMembers(ctx context.Context, groupID uint) ([]string, error) {
	var usernames []string
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("group_id = ?", groupID).
		Order("student_username ASC").
		Pluck("student_username", &usernames).Error; err != nil {
		return nil, err
	}

	return usernames, nil
}

func (r *rosterRepository) StudentNames(ctx context.Context, usernames []string) (map[string]string, error) {
	names := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return names, nil
	}

	var students []models.Student
	if err := r.db.WithContext(ctx).Where("username IN ?", usernames).Find(&students).Error; err != nil {
		return nil, err
	}

	for _, student := range students {
		names[student.Username] = student.Name
	}

	return names, nil
}
