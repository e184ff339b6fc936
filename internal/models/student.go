package models

import "time"

// Student represents a learner account known to the roster.
type Student struct {
	Username  string    `gorm:"primaryKey;size:64" json:"username"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentGroup is a partition label inside a course section. Membership lives on Enrollment.
type StudentGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Course    string    `gorm:"size:64;not null;index:idx_group_section" json:"course"`
	Section   string    `gorm:"size:32;not null;index:idx_group_section" json:"section"`
	Semester  string    `gorm:"size:32;not null;index:idx_group_section" json:"semester"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment places a student in a course section and, optionally, in one of its groups.
type Enrollment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StudentUsername string    `gorm:"size:64;not null;uniqueIndex:idx_enrollment_unique" json:"student_username"`
	Course          string    `gorm:"size:64;not null;uniqueIndex:idx_enrollment_unique" json:"course"`
	Section         string    `gorm:"size:32;not null;uniqueIndex:idx_enrollment_unique" json:"section"`
	Semester        string    `gorm:"size:32;not null;uniqueIndex:idx_enrollment_unique" json:"semester"`
	GroupID         *uint     `gorm:"index" json:"group_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Goal is the self-set goal text of a student for a course section.
type Goal struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StudentUsername string    `gorm:"size:64;not null;uniqueIndex:idx_goal_unique" json:"student_username"`
	Course          string    `gorm:"size:64;not null;uniqueIndex:idx_goal_unique" json:"course"`
	Section         string    `gorm:"size:32;not null;uniqueIndex:idx_goal_unique" json:"section"`
	Semester        string    `gorm:"size:32;not null;uniqueIndex:idx_goal_unique" json:"semester"`
	Text            string    `gorm:"type:text" json:"text"`
	UpdatedAt       time.Time `json:"updated_at"`
}
