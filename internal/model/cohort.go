package model

import (
	"time"

	"gorm.io/datatypes"
)

type CohortStatus string

const (
	CohortUpcoming  CohortStatus = "upcoming"
	CohortActive    CohortStatus = "active"
	CohortCompleted CohortStatus = "completed"
	CohortArchived  CohortStatus = "archived"
)

func (s CohortStatus) Valid() bool {
	switch s {
	case CohortUpcoming, CohortActive, CohortCompleted, CohortArchived:
		return true
	}
	return false
}

// OpenForEnrollment reports whether new students may join.
func (s CohortStatus) OpenForEnrollment() bool {
	return s == CohortUpcoming || s == CohortActive
}

const DefaultMaxStudents = 50

// swagger:model Cohort
type Cohort struct {
	UUIDBase
	CourseID    uint            `gorm:"index;not null;uniqueIndex:idx_cohort_course_name" json:"courseId"`
	Name        string          `gorm:"size:255;not null;uniqueIndex:idx_cohort_course_name" json:"name"`
	StartDate   datatypes.Date  `json:"startDate"`
	EndDate     *datatypes.Date `json:"endDate"`
	Status      CohortStatus    `gorm:"size:20;default:'upcoming'" json:"status"`
	MaxStudents int             `gorm:"default:50" json:"maxStudents"`
	CreatedBy   string          `gorm:"size:36" json:"createdBy"`
	Course      *Course         `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Cohort) TableName() string {
	return "cohorts"
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentPaused    EnrollmentStatus = "paused"
)

// swagger:model CohortEnrollment
type CohortEnrollment struct {
	UUIDBase
	CohortID         string           `gorm:"size:36;not null;uniqueIndex:idx_enrollment_cohort_user" json:"cohortId"`
	UserID           string           `gorm:"size:36;not null;uniqueIndex:idx_enrollment_cohort_user;index" json:"userId"`
	Status           EnrollmentStatus `gorm:"size:20;default:'active'" json:"status"`
	EnrolledAt       time.Time        `json:"enrolledAt"`
	CompletedLessons int              `gorm:"default:0" json:"completedLessons"`
	LastActivityAt   *time.Time       `json:"lastActivityAt,omitempty"`
}

func (CohortEnrollment) TableName() string {
	return "cohort_enrollments"
}

// CohortSchedule holds the unlock window of one module for one cohort.
// Dates are calendar dates without time of day.
//
// swagger:model CohortSchedule
type CohortSchedule struct {
	UUIDBase
	CohortID   string          `gorm:"size:36;not null;uniqueIndex:idx_schedule_cohort_module" json:"cohortId"`
	ModuleID   uint            `gorm:"not null;uniqueIndex:idx_schedule_cohort_module" json:"moduleId"`
	UnlockDate datatypes.Date  `gorm:"not null" json:"unlockDate"`
	LockDate   *datatypes.Date `json:"lockDate"`
	Module     *Module         `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

func (CohortSchedule) TableName() string {
	return "cohort_schedules"
}
