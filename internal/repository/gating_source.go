package repository

import (
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GatingSource implements gating.DataSource on top of gorm.
type GatingSource struct {
	DB *gorm.DB
}

func NewGatingSource(db *gorm.DB) *GatingSource {
	return &GatingSource{DB: db}
}

var _ gating.DataSource = (*GatingSource)(nil)

// formatDate keeps the calendar fields of the scanned value. Drivers hand DATE
// columns back at midnight of the session zone, so converting to UTC first
// could move the day.
func formatDate(d datatypes.Date) string {
	return time.Time(d).Format(gating.DateLayout)
}

func formatOptionalDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := formatDate(*d)
	return &s
}

func toGatingSchedule(s model.CohortSchedule) gating.Schedule {
	return gating.Schedule{
		ModuleID:   s.ModuleID,
		CohortID:   s.CohortID,
		UnlockDate: formatDate(s.UnlockDate),
		LockDate:   formatOptionalDate(s.LockDate),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gating.ErrNotFound
	}
	return err
}

func (s *GatingSource) FetchSchedule(ctx context.Context, moduleID uint, cohortID string) (*gating.Schedule, error) {
	var row model.CohortSchedule
	err := s.DB.WithContext(ctx).
		Select("module_id", "cohort_id", "unlock_date", "lock_date").
		Where("cohort_id = ? AND module_id = ?", cohortID, moduleID).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	sched := toGatingSchedule(row)
	return &sched, nil
}

type enrollmentRow struct {
	ModuleID uint
	CourseID uint
	CohortID string
	Status   string
}

// FetchEnrollment resolves lesson -> module -> course and finds the user's
// active enrollment in a cohort of that course.
func (s *GatingSource) FetchEnrollment(ctx context.Context, lessonID uint, userID string) (*gating.Enrollment, error) {
	var row enrollmentRow
	res := s.DB.WithContext(ctx).
		Table("lessons").
		Select("modules.id AS module_id, modules.course_id AS course_id, cohort_enrollments.cohort_id AS cohort_id, cohort_enrollments.status AS status").
		Joins("JOIN modules ON modules.id = lessons.module_id AND modules.deleted_at IS NULL").
		Joins("JOIN cohorts ON cohorts.course_id = modules.course_id AND cohorts.deleted_at IS NULL").
		Joins("JOIN cohort_enrollments ON cohort_enrollments.cohort_id = cohorts.id AND cohort_enrollments.deleted_at IS NULL").
		Where("lessons.id = ? AND lessons.deleted_at IS NULL", lessonID).
		Where("cohort_enrollments.user_id = ? AND cohort_enrollments.status = ?", userID, model.EnrollmentActive).
		Order("cohort_enrollments.enrolled_at DESC").
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gating.ErrNotFound
	}
	return &gating.Enrollment{
		ModuleID: row.ModuleID,
		CourseID: row.CourseID,
		CohortID: row.CohortID,
		Status:   row.Status,
	}, nil
}

func (s *GatingSource) FetchCohortSchedules(ctx context.Context, cohortID string) ([]gating.Schedule, error) {
	var rows []model.CohortSchedule
	err := s.DB.WithContext(ctx).
		Select("module_id", "cohort_id", "unlock_date", "lock_date").
		Where("cohort_id = ?", cohortID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	schedules := make([]gating.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, toGatingSchedule(row))
	}
	return schedules, nil
}
