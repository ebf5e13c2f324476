package service

import (
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/util"
	"cohort_course_backend/pkg/logger"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	repo    *repository.EnrollmentRepository
	users   *repository.UserRepository
	cohorts *CohortService
}

func NewEnrollmentService(repo *repository.EnrollmentRepository, users *repository.UserRepository, cohorts *CohortService) *EnrollmentService {
	return &EnrollmentService{repo: repo, users: users, cohorts: cohorts}
}

// resolveTarget applies the rule that only course staff act on behalf of
// other users.
func (s *EnrollmentService) resolveTarget(ctx context.Context, actor Actor, cohortID, userID string) (*model.Cohort, string, error) {
	cohort, err := s.cohorts.Get(ctx, cohortID)
	if err != nil {
		return nil, "", err
	}
	if userID == "" || userID == actor.UserID {
		return cohort, actor.UserID, nil
	}
	if !actor.CanManage(cohort.Course) {
		return nil, "", util.ErrPermissionDenied
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", util.ErrUserNotFound
		}
		return nil, "", err
	}
	return cohort, userID, nil
}

// Enroll adds userID (or the actor when empty) to the cohort. A dropped or
// paused enrollment is reactivated.
func (s *EnrollmentService) Enroll(ctx context.Context, actor Actor, cohortID, userID string) (*model.CohortEnrollment, error) {
	cohort, target, err := s.resolveTarget(ctx, actor, cohortID, userID)
	if err != nil {
		return nil, err
	}
	if !cohort.Status.OpenForEnrollment() {
		return nil, util.ErrCohortClosed
	}
	if cohort.Course == nil || (!cohort.Course.IsPublished && !actor.CanManage(cohort.Course)) {
		return nil, util.ErrCourseUnavailable
	}

	var enrollment *model.CohortEnrollment
	err = s.repo.Transaction(ctx, func(tx *repository.EnrollmentRepository) error {
		locked, err := tx.LockCohort(ctx, cohort.ID)
		if err != nil {
			return err
		}

		existing, err := tx.Find(ctx, cohort.ID, target)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil && existing.Status == model.EnrollmentActive {
			return util.ErrAlreadyEnrolled
		}

		if locked.MaxStudents > 0 {
			active, err := tx.CountActive(ctx, cohort.ID)
			if err != nil {
				return err
			}
			if active >= int64(locked.MaxStudents) {
				return util.ErrCohortFull
			}
		}

		if existing == nil {
			existing = &model.CohortEnrollment{CohortID: cohort.ID, UserID: target}
		}
		existing.Status = model.EnrollmentActive
		existing.EnrolledAt = time.Now().UTC()
		enrollment = existing
		return tx.Save(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("cohort enrollment",
		zap.String("cohort_id", cohort.ID),
		zap.String("user_id", target),
		zap.String("by", actor.UserID),
	)
	return enrollment, nil
}

// Unenroll marks the enrollment dropped; rows are kept for progress history.
func (s *EnrollmentService) Unenroll(ctx context.Context, actor Actor, cohortID, userID string) (*model.CohortEnrollment, error) {
	cohort, target, err := s.resolveTarget(ctx, actor, cohortID, userID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.repo.Find(ctx, cohort.ID, target)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}

	enrollment.Status = model.EnrollmentDropped
	if err := s.repo.Save(ctx, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Roster lists the cohort enrollments; staff only.
func (s *EnrollmentService) Roster(ctx context.Context, actor Actor, cohortID string) ([]model.CohortEnrollment, error) {
	cohort, err := s.cohorts.Get(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(cohort.Course) {
		return nil, util.ErrPermissionDenied
	}
	return s.repo.ListByCohort(ctx, cohort.ID)
}
