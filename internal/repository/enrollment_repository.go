package repository

import (
	"cohort_course_backend/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Find(ctx context.Context, cohortID, userID string) (*model.CohortEnrollment, error) {
	var enrollment model.CohortEnrollment
	err := r.DB.WithContext(ctx).
		Where("cohort_id = ? AND user_id = ?", cohortID, userID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) CountActive(ctx context.Context, cohortID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CohortEnrollment{}).
		Where("cohort_id = ? AND status = ?", cohortID, model.EnrollmentActive).
		Count(&count).Error
	return count, err
}

// LockCohort reloads the cohort with SELECT ... FOR UPDATE so capacity checks
// in the same transaction are serialized. SQLite ignores the locking clause.
func (r *EnrollmentRepository) LockCohort(ctx context.Context, cohortID string) (*model.Cohort, error) {
	var cohort model.Cohort
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", cohortID).
		First(&cohort).Error
	if err != nil {
		return nil, err
	}
	return &cohort, nil
}

func (r *EnrollmentRepository) Save(ctx context.Context, enrollment *model.CohortEnrollment) error {
	return r.DB.WithContext(ctx).Save(enrollment).Error
}

// Transaction runs fn against repositories bound to one transaction.
func (r *EnrollmentRepository) Transaction(ctx context.Context, fn func(tx *EnrollmentRepository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&EnrollmentRepository{DB: tx})
	})
}

func (r *EnrollmentRepository) ListByCohort(ctx context.Context, cohortID string) ([]model.CohortEnrollment, error) {
	var enrollments []model.CohortEnrollment
	err := r.DB.WithContext(ctx).
		Where("cohort_id = ?", cohortID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}
