package repository

import (
	"cohort_course_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type CohortRepository struct {
	DB *gorm.DB
}

func NewCohortRepository(db *gorm.DB) *CohortRepository {
	return &CohortRepository{DB: db}
}

type CohortFilter struct {
	CourseID uint
	Status   model.CohortStatus
}

func (r *CohortRepository) Create(ctx context.Context, cohort *model.Cohort) error {
	return r.DB.WithContext(ctx).Create(cohort).Error
}

// FindByID loads the cohort together with its course.
func (r *CohortRepository) FindByID(ctx context.Context, id string) (*model.Cohort, error) {
	var cohort model.Cohort
	err := r.DB.WithContext(ctx).Preload("Course").Where("id = ?", id).First(&cohort).Error
	if err != nil {
		return nil, err
	}
	return &cohort, nil
}

func (r *CohortRepository) ExistsByName(ctx context.Context, courseID uint, name string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Cohort{}).
		Where("course_id = ? AND name = ?", courseID, name).
		Count(&count).Error
	return count > 0, err
}

// List returns cohorts newest start date first.
func (r *CohortRepository) List(ctx context.Context, filter CohortFilter) ([]model.Cohort, error) {
	query := r.DB.WithContext(ctx).Model(&model.Cohort{})
	if filter.CourseID != 0 {
		query = query.Where("course_id = ?", filter.CourseID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var cohorts []model.Cohort
	err := query.Order("start_date DESC").Find(&cohorts).Error
	return cohorts, err
}
