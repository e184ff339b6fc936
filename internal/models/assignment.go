package models

import "time"

// Assignment represents a peer evaluation assignment owned by a course section.
type Assignment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Course          string    `gorm:"size:64;not null;index:idx_assignment_section" json:"course"`
	Semester        string    `gorm:"size:32;not null;index:idx_assignment_section" json:"semester"`
	Section         string    `gorm:"size:32;not null;index:idx_assignment_section" json:"section"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	DueDate         time.Time `gorm:"not null" json:"due_date"`
	Published       bool      `gorm:"not null;default:false" json:"published"`
	EvaluateGoals   bool      `gorm:"not null;default:false" json:"evaluate_goals"`
	GradesPublished bool      `gorm:"not null;default:false" json:"grades_published"`
	CreatedBy       string    `gorm:"size:64" json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SectionKey identifies the roster an assignment fans out over.
type SectionKey struct {
	Course   string
	Section  string
	Semester string
}

// RosterKey returns the section whose roster the assignment fans out over.
func (a Assignment) RosterKey() SectionKey {
	return SectionKey{Course: a.Course, Section: a.Section, Semester: a.Semester}
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}
