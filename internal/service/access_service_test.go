package service

import (
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/testutil"
	"cohort_course_backend/internal/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduleModule(t *testing.T, s *services, moduleIdx int, unlock string, lock *string) {
	t.Helper()
	_, _, err := s.schedules.Upsert(context.Background(), s.teacher(), s.fixture.Cohort.ID, ScheduleRequest{
		ModuleID:   int64(s.fixture.Modules[moduleIdx].ID),
		UnlockDate: unlock,
		LockDate:   lock,
	})
	require.NoError(t, err)
}

func TestAccessService_ModuleStatus(t *testing.T) {
	s := newServices(t, "2025-01-15")
	ctx := context.Background()
	f := s.fixture
	scheduleModule(t, s, 0, "2025-01-20", nil)
	scheduleModule(t, s, 1, "2025-01-10", strPtr("2025-02-01"))
	testutil.Enroll(t, s.db, f.Cohort.ID, f.Student.ID)

	view, err := s.access.ModuleStatus(ctx, s.student(), f.Cohort.ID, f.Modules[0].ID)
	require.NoError(t, err)
	assert.False(t, view.IsUnlocked)
	assert.Equal(t, gating.ReasonLocked, view.Reason)
	require.NotNil(t, view.UnlockDate)
	assert.Equal(t, "2025-01-20", *view.UnlockDate)
	assert.Equal(t, "January 20, 2025", view.UnlockDateLabel)
	assert.Equal(t, 5, view.DaysUntilUnlock)

	view, err = s.access.ModuleStatus(ctx, s.student(), f.Cohort.ID, f.Modules[1].ID)
	require.NoError(t, err)
	assert.True(t, view.IsUnlocked)
	assert.Equal(t, gating.ReasonUnlocked, view.Reason)
	require.NotNil(t, view.LockDate)
	assert.Equal(t, "2025-02-01", *view.LockDate)
	assert.Equal(t, -5, view.DaysUntilUnlock)

	view, err = s.access.ModuleStatus(ctx, s.teacher(), f.Cohort.ID, f.Modules[0].ID)
	require.NoError(t, err)
	assert.True(t, view.IsUnlocked)
	assert.Equal(t, gating.ReasonTeacherOverride, view.Reason)
	assert.Nil(t, view.UnlockDate)
	assert.Equal(t, "Not scheduled", view.UnlockDateLabel)

	view, err = s.access.ModuleStatus(ctx, s.admin(), f.Cohort.ID, f.Modules[0].ID)
	require.NoError(t, err)
	assert.Equal(t, gating.ReasonTeacherOverride, view.Reason)
}

func TestAccessService_ModuleStatusErrors(t *testing.T) {
	s := newServices(t, "2025-01-15")
	ctx := context.Background()
	f := s.fixture

	_, err := s.access.ModuleStatus(ctx, s.student(), "missing", f.Modules[0].ID)
	assert.ErrorIs(t, err, util.ErrCohortNotFound)

	_, err = s.access.ModuleStatus(ctx, s.student(), f.Cohort.ID, 4242)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}

func TestAccessService_CohortReadsRequireMembership(t *testing.T) {
	s := newServices(t, "2025-01-15")
	ctx := context.Background()
	f := s.fixture
	scheduleModule(t, s, 0, "2025-01-20", nil)

	_, err := s.access.ModuleStatus(ctx, s.student(), f.Cohort.ID, f.Modules[0].ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = s.access.UnlockDate(ctx, s.student(), f.Cohort.ID, f.Modules[0].ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = s.access.CohortModuleStatuses(ctx, s.student(), f.Cohort.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = s.enrollments.Enroll(ctx, s.student(), f.Cohort.ID, "")
	require.NoError(t, err)
	_, err = s.access.ModuleStatus(ctx, s.student(), f.Cohort.ID, f.Modules[0].ID)
	assert.NoError(t, err)

	_, err = s.enrollments.Unenroll(ctx, s.student(), f.Cohort.ID, "")
	require.NoError(t, err)
	_, err = s.access.CohortModuleStatuses(ctx, s.student(), f.Cohort.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = s.access.UnlockDate(ctx, s.admin(), f.Cohort.ID, f.Modules[0].ID)
	assert.NoError(t, err)
}

func TestAccessService_UnlockDate(t *testing.T) {
	s := newServices(t, "2025-01-15")
	ctx := context.Background()
	f := s.fixture
	scheduleModule(t, s, 0, "2025-01-18", nil)
	testutil.Enroll(t, s.db, f.Cohort.ID, f.Student.ID)

	view, err := s.access.UnlockDate(ctx, s.student(), f.Cohort.ID, f.Modules[0].ID)
	require.NoError(t, err)
	require.NotNil(t, view.UnlockDate)
	assert.Equal(t, "2025-01-18", *view.UnlockDate)
	assert.Equal(t, "January 18, 2025", view.Label)
	assert.Equal(t, 3, view.DaysUntilUnlock)

	view, err = s.access.UnlockDate(ctx, s.student(), f.Cohort.ID, f.Modules[1].ID)
	require.NoError(t, err)
	assert.Nil(t, view.UnlockDate)
	assert.Equal(t, "Not scheduled", view.Label)
	assert.Equal(t, 0, view.DaysUntilUnlock)
}

func TestAccessService_CohortModuleStatuses(t *testing.T) {
	s := newServices(t, "2025-01-15")
	ctx := context.Background()
	f := s.fixture
	scheduleModule(t, s, 0, "2025-01-06", strPtr("2025-01-15"))
	testutil.Enroll(t, s.db, f.Cohort.ID, f.Student.ID)

	views, err := s.access.CohortModuleStatuses(ctx, s.student(), f.Cohort.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	first := views[f.Modules[0].ID]
	assert.False(t, first.IsUnlocked, "lock date is exclusive")
	assert.Equal(t, gating.ReasonLocked, first.Reason)

	second := views[f.Modules[1].ID]
	assert.True(t, second.IsUnlocked)
	assert.Equal(t, gating.ReasonNotScheduled, second.Reason)

	views, err = s.access.CohortModuleStatuses(ctx, s.teacher(), f.Cohort.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.True(t, v.IsUnlocked)
		assert.Equal(t, gating.ReasonTeacherOverride, v.Reason)
	}
}

func TestAccessService_LessonAccess(t *testing.T) {
	s := newServices(t, "2025-01-15")
	ctx := context.Background()
	f := s.fixture
	scheduleModule(t, s, 0, "2025-01-10", nil)
	scheduleModule(t, s, 1, "2025-01-20", nil)

	access, err := s.access.LessonAccess(ctx, s.student(), f.Lessons[0].ID)
	require.NoError(t, err)
	assert.False(t, access.CanAccess)
	assert.Equal(t, gating.LessonNotEnrolled, access.Reason)

	testutil.Enroll(t, s.db, f.Cohort.ID, f.Student.ID)

	access, err = s.access.LessonAccess(ctx, s.student(), f.Lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, access.CanAccess)
	assert.Equal(t, gating.LessonAccessible, access.Reason)
	assert.Equal(t, f.Cohort.ID, access.CohortID)

	access, err = s.access.LessonAccess(ctx, s.student(), f.Lessons[1].ID)
	require.NoError(t, err)
	assert.False(t, access.CanAccess)
	assert.True(t, access.IsEnrolled)
	assert.Equal(t, gating.LessonModuleLocked, access.Reason)

	access, err = s.access.LessonAccess(ctx, s.teacher(), f.Lessons[1].ID)
	require.NoError(t, err)
	assert.True(t, access.CanAccess)
	assert.Equal(t, gating.LessonTeacherOverride, access.Reason)

	_, err = s.access.LessonAccess(ctx, s.student(), 999)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}
