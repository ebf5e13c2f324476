package repository

import (
	"cohort_course_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ScheduleRepository struct {
	DB *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{DB: db}
}

func (r *ScheduleRepository) Find(ctx context.Context, cohortID string, moduleID uint) (*model.CohortSchedule, error) {
	var schedule model.CohortSchedule
	err := r.DB.WithContext(ctx).
		Where("cohort_id = ? AND module_id = ?", cohortID, moduleID).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListByCohort returns the cohort schedule with module details, earliest
// unlock first.
func (r *ScheduleRepository) ListByCohort(ctx context.Context, cohortID string) ([]model.CohortSchedule, error) {
	var schedules []model.CohortSchedule
	err := r.DB.WithContext(ctx).
		Preload("Module").
		Where("cohort_id = ?", cohortID).
		Order("unlock_date ASC, module_id ASC").
		Find(&schedules).Error
	return schedules, err
}

// Upsert creates or replaces the window for (cohort, module). It reports
// whether a new row was created.
func (r *ScheduleRepository) Upsert(ctx context.Context, schedule *model.CohortSchedule) (bool, error) {
	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.CohortSchedule
		err := tx.Where("cohort_id = ? AND module_id = ?", schedule.CohortID, schedule.ModuleID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			return tx.Create(schedule).Error
		case err != nil:
			return err
		}

		schedule.ID = existing.ID
		schedule.CreatedAt = existing.CreatedAt
		return tx.Model(&existing).
			Updates(map[string]interface{}{
				"unlock_date": schedule.UnlockDate,
				"lock_date":   schedule.LockDate,
			}).Error
	})
	return created, err
}

// Delete removes the row for good so the (cohort, module) pair can be
// scheduled again. It reports whether a row existed.
func (r *ScheduleRepository) Delete(ctx context.Context, cohortID string, moduleID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Unscoped().
		Where("cohort_id = ? AND module_id = ?", cohortID, moduleID).
		Delete(&model.CohortSchedule{})
	return res.RowsAffected > 0, res.Error
}
