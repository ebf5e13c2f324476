package gating

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu          sync.Mutex
	schedules   map[uint]Schedule
	enrollments map[uint]Enrollment
	err         error
	calls       int
}

func (f *fakeSource) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeSource) FetchSchedule(_ context.Context, moduleID uint, _ string) (*Schedule, error) {
	f.count()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.schedules[moduleID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (f *fakeSource) FetchEnrollment(_ context.Context, lessonID uint, _ string) (*Enrollment, error) {
	f.count()
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.enrollments[lessonID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (f *fakeSource) FetchCohortSchedules(_ context.Context, _ string) ([]Schedule, error) {
	f.count()
	if f.err != nil {
		return nil, f.err
	}
	var out []Schedule
	for _, s := range f.schedules {
		out = append(out, s)
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func clockAt(t *testing.T, day string, hour int) func() time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, day)
	require.NoError(t, err)
	at := d.Add(time.Duration(hour) * time.Hour)
	return func() time.Time { return at }
}

func TestIsModuleUnlocked_Window(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, CohortID: "c1", UnlockDate: "2025-01-10"},
		2: {ModuleID: 2, CohortID: "c1", UnlockDate: "2025-01-10", LockDate: strPtr("2025-02-01")},
	}}

	tests := []struct {
		name     string
		moduleID uint
		today    string
		unlocked bool
		reason   ModuleReason
	}{
		{"open-ended before unlock", 1, "2025-01-09", false, ReasonLocked},
		{"open-ended on unlock day", 1, "2025-01-10", true, ReasonUnlocked},
		{"open-ended long after", 1, "2030-06-01", true, ReasonUnlocked},
		{"window before unlock", 2, "2025-01-09", false, ReasonLocked},
		{"window on unlock day", 2, "2025-01-10", true, ReasonUnlocked},
		{"window day before lock", 2, "2025-01-31", true, ReasonUnlocked},
		{"window on lock day", 2, "2025-02-01", false, ReasonLocked},
		{"window after lock", 2, "2025-03-01", false, ReasonLocked},
		{"unscheduled module", 9, "2025-01-01", true, ReasonNotScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(src, WithClock(clockAt(t, tt.today, 12)))
			got, err := g.IsModuleUnlocked(context.Background(), tt.moduleID, "c1", false)
			require.NoError(t, err)
			assert.Equal(t, tt.unlocked, got.IsUnlocked)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestIsModuleUnlocked_SameDayIgnoresWallClock(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "2025-01-10", LockDate: strPtr("2025-01-11")},
	}}
	for _, hour := range []int{0, 1, 11, 23} {
		g := New(src, WithClock(clockAt(t, "2025-01-10", hour)))
		got, err := g.IsModuleUnlocked(context.Background(), 1, "c1", false)
		require.NoError(t, err)
		assert.True(t, got.IsUnlocked, "hour %d", hour)
	}

	// 2025-01-09 23:30 in UTC-5 is already 2025-01-10 in UTC.
	est := time.FixedZone("EST", -5*60*60)
	g := New(src, WithClock(func() time.Time { return time.Date(2025, 1, 9, 23, 30, 0, 0, est) }))
	got, err := g.IsModuleUnlocked(context.Background(), 1, "c1", false)
	require.NoError(t, err)
	assert.True(t, got.IsUnlocked)
}

func TestIsModuleUnlocked_EchoesDates(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "2025-01-10", LockDate: strPtr("2025-02-01")},
	}}
	g := New(src, WithClock(clockAt(t, "2025-01-15", 8)))

	got, err := g.IsModuleUnlocked(context.Background(), 1, "c1", false)
	require.NoError(t, err)
	require.NotNil(t, got.UnlockDate)
	require.NotNil(t, got.LockDate)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), *got.UnlockDate)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), *got.LockDate)
}

func TestIsModuleUnlocked_TeacherOverride(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "not-a-date"},
	}}
	g := New(src, WithClock(clockAt(t, "2020-01-01", 0)))

	got, err := g.IsModuleUnlocked(context.Background(), 1, "c1", true)
	require.NoError(t, err)
	assert.Equal(t, ModuleStatus{IsUnlocked: true, Reason: ReasonTeacherOverride}, got)
	assert.Zero(t, src.calls)
}

func TestIsModuleUnlocked_ArgumentErrors(t *testing.T) {
	src := &fakeSource{}
	g := New(src)

	_, err := g.IsModuleUnlocked(context.Background(), 0, "c1", false)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "moduleID")

	_, err = g.IsModuleUnlocked(context.Background(), 1, "", true)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "cohortID")

	assert.Zero(t, src.calls)

	_, err = New(nil).IsModuleUnlocked(context.Background(), 1, "c1", false)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestIsModuleUnlocked_SourceFailure(t *testing.T) {
	boom := errors.New("connection refused")
	g := New(&fakeSource{err: boom})

	_, err := g.IsModuleUnlocked(context.Background(), 1, "c1", false)
	assert.ErrorIs(t, err, boom)
}

func TestIsModuleUnlocked_MalformedDate(t *testing.T) {
	g := New(&fakeSource{schedules: map[uint]Schedule{1: {ModuleID: 1, UnlockDate: "10/01/2025"}}})

	_, err := g.IsModuleUnlocked(context.Background(), 1, "c1", false)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestIsModuleUnlocked_InvertedWindowStaysLocked(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "2025-03-01", LockDate: strPtr("2025-02-01")},
	}}
	for _, day := range []string{"2025-01-15", "2025-02-15", "2025-03-15"} {
		g := New(src, WithClock(clockAt(t, day, 9)))
		got, err := g.IsModuleUnlocked(context.Background(), 1, "c1", false)
		require.NoError(t, err)
		assert.False(t, got.IsUnlocked, day)
	}
}

func TestGetUnlockDate(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "2025-03-15"},
	}}
	g := New(src, WithClock(clockAt(t, "2025-03-15", 23)))

	date, err := g.GetUnlockDate(context.Background(), 1, "c1")
	require.NoError(t, err)
	require.NotNil(t, date)

	status, err := g.IsModuleUnlocked(context.Background(), 1, "c1", false)
	require.NoError(t, err)
	assert.True(t, date.Equal(*status.UnlockDate))
	assert.Equal(t, 0, g.DaysUntilUnlock(date))

	none, err := g.GetUnlockDate(context.Background(), 2, "c1")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = g.GetUnlockDate(context.Background(), 0, "c1")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCanAccessLesson(t *testing.T) {
	src := &fakeSource{
		schedules: map[uint]Schedule{
			10: {ModuleID: 10, UnlockDate: "2025-01-10"},
			20: {ModuleID: 20, UnlockDate: "2025-05-01"},
		},
		enrollments: map[uint]Enrollment{
			100: {ModuleID: 10, CourseID: 1, CohortID: "c1", Status: "active"},
			200: {ModuleID: 20, CourseID: 1, CohortID: "c1", Status: "active"},
		},
	}
	g := New(src, WithClock(clockAt(t, "2025-02-01", 10)))
	ctx := context.Background()

	got, err := g.CanAccessLesson(ctx, 100, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, LessonAccess{CanAccess: true, ModuleUnlocked: true, IsEnrolled: true, Reason: LessonAccessible, ModuleID: 10, CohortID: "c1"}, got)

	got, err = g.CanAccessLesson(ctx, 200, "u1", false)
	require.NoError(t, err)
	assert.False(t, got.CanAccess)
	assert.True(t, got.IsEnrolled)
	assert.Equal(t, LessonModuleLocked, got.Reason)

	got, err = g.CanAccessLesson(ctx, 300, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, LessonAccess{Reason: LessonNotEnrolled}, got)

	before := src.calls
	got, err = g.CanAccessLesson(ctx, 300, "u1", true)
	require.NoError(t, err)
	assert.True(t, got.CanAccess)
	assert.Equal(t, LessonTeacherOverride, got.Reason)
	assert.Equal(t, before, src.calls)

	_, err = g.CanAccessLesson(ctx, 100, "", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetCohortModuleStatuses(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "2025-01-01"},
		2: {ModuleID: 2, UnlockDate: "2025-01-01", LockDate: strPtr("2025-01-20")},
		3: {ModuleID: 3, UnlockDate: "2025-02-01"},
	}}
	g := New(src, WithClock(clockAt(t, "2025-01-20", 6)))
	ctx := context.Background()

	statuses, err := g.GetCohortModuleStatuses(ctx, "c1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	require.Len(t, statuses, 3)
	assert.True(t, statuses[1].IsUnlocked)
	assert.Equal(t, ReasonLocked, statuses[2].Reason)
	assert.Equal(t, ReasonLocked, statuses[3].Reason)

	statuses, err = g.GetCohortModuleStatuses(ctx, "c1", true)
	require.NoError(t, err)
	assert.Empty(t, statuses)
	assert.Equal(t, 1, src.calls)

	_, err = g.GetCohortModuleStatuses(ctx, "", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetCohortModuleStatuses_InvalidRowLocksOnlyItsModule(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "2025-01-01"},
		2: {ModuleID: 2, UnlockDate: "2025-13-40"},
		3: {ModuleID: 3, UnlockDate: "2025-01-01", LockDate: strPtr("garbage")},
	}}

	var invalid []uint
	g := New(src,
		WithClock(clockAt(t, "2025-01-20", 6)),
		WithInvalidScheduleHandler(func(s Schedule, err error) {
			assert.ErrorIs(t, err, ErrInvalidDate)
			invalid = append(invalid, s.ModuleID)
		}),
	)

	statuses, err := g.GetCohortModuleStatuses(context.Background(), "c1", false)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.True(t, statuses[1].IsUnlocked)
	assert.Equal(t, ModuleStatus{IsUnlocked: false, Reason: ReasonLocked}, statuses[2])
	assert.Equal(t, ModuleStatus{IsUnlocked: false, Reason: ReasonLocked}, statuses[3])
	assert.ElementsMatch(t, []uint{2, 3}, invalid)

	// single-module lookups still surface the error
	_, err = g.IsModuleUnlocked(context.Background(), 2, "c1", false)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestGate_ConcurrentCalls(t *testing.T) {
	src := &fakeSource{schedules: map[uint]Schedule{
		1: {ModuleID: 1, UnlockDate: "2025-01-01"},
		2: {ModuleID: 2, UnlockDate: "2026-01-01"},
	}}
	g := New(src, WithClock(clockAt(t, "2025-06-01", 0)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			got, err := g.IsModuleUnlocked(context.Background(), id, "c1", false)
			assert.NoError(t, err)
			assert.Equal(t, id == 1, got.IsUnlocked)
		}(uint(i%2 + 1))
	}
	wg.Wait()
	assert.Equal(t, 50, src.calls)
}
