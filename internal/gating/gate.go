// Package gating decides whether cohort members may currently see a module or
// lesson, based on per-cohort unlock/lock dates and enrollment.
//
// All comparisons are on calendar dates. Stored dates and "now" are both
// normalized to UTC midnight before comparing, so the unlock window of a
// schedule is the half-open interval [unlockDate, lockDate).
package gating

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConfiguration   = errors.New("configuration error")
	// ErrNotFound is returned by a DataSource when no row matches.
	ErrNotFound = errors.New("not found")
)

type ModuleReason string

const (
	ReasonTeacherOverride ModuleReason = "teacher_override"
	ReasonNotScheduled    ModuleReason = "not_scheduled"
	ReasonUnlocked        ModuleReason = "unlocked"
	ReasonLocked          ModuleReason = "locked"
)

type LessonReason string

const (
	LessonTeacherOverride LessonReason = "teacher_override"
	LessonNotEnrolled     LessonReason = "not_enrolled"
	LessonModuleLocked    LessonReason = "module_locked"
	LessonAccessible      LessonReason = "accessible"
)

// Schedule is a cohort_schedules row as handed over by a DataSource.
// Dates are YYYY-MM-DD strings.
type Schedule struct {
	ModuleID   uint
	CohortID   string
	UnlockDate string
	LockDate   *string
}

// Enrollment links a lesson to the user's active cohort for the lesson's course.
type Enrollment struct {
	ModuleID uint
	CourseID uint
	CohortID string
	Status   string
}

// DataSource is the read side the gate needs from its host. Implementations
// return ErrNotFound (possibly wrapped) when nothing matches.
type DataSource interface {
	FetchSchedule(ctx context.Context, moduleID uint, cohortID string) (*Schedule, error)
	FetchEnrollment(ctx context.Context, lessonID uint, userID string) (*Enrollment, error)
	FetchCohortSchedules(ctx context.Context, cohortID string) ([]Schedule, error)
}

type ModuleStatus struct {
	IsUnlocked bool         `json:"isUnlocked"`
	Reason     ModuleReason `json:"reason"`
	UnlockDate *time.Time   `json:"unlockDate"`
	LockDate   *time.Time   `json:"lockDate"`
}

type LessonAccess struct {
	CanAccess      bool         `json:"canAccess"`
	ModuleUnlocked bool         `json:"moduleUnlocked"`
	IsEnrolled     bool         `json:"isEnrolled"`
	Reason         LessonReason `json:"reason"`
	ModuleID       uint         `json:"moduleId,omitempty"`
	CohortID       string       `json:"cohortId,omitempty"`
}

type Option func(*Gate)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithInvalidScheduleHandler is called for each stored schedule the bulk
// evaluation could not parse. The module itself is reported locked.
func WithInvalidScheduleHandler(fn func(Schedule, error)) Option {
	return func(g *Gate) {
		g.onInvalid = fn
	}
}

// Gate evaluates access rules. It keeps no state besides its collaborators and
// is safe for concurrent use.
type Gate struct {
	src       DataSource
	now       func() time.Time
	onInvalid func(Schedule, error)
}

func New(src DataSource, opts ...Option) *Gate {
	g := &Gate{src: src, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Today is the current UTC calendar date at midnight.
func (g *Gate) Today() time.Time {
	return DateOnly(g.now())
}

func required(name string, missing bool) error {
	if missing {
		return fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
	}
	return nil
}

func (g *Gate) source() (DataSource, error) {
	if g == nil || g.src == nil {
		return nil, fmt.Errorf("%w: data source is required", ErrConfiguration)
	}
	return g.src, nil
}

// IsModuleUnlocked reports whether moduleID is visible to cohortID today.
// A missing schedule means the module is not gated.
func (g *Gate) IsModuleUnlocked(ctx context.Context, moduleID uint, cohortID string, teacherOverride bool) (ModuleStatus, error) {
	if err := required("moduleID", moduleID == 0); err != nil {
		return ModuleStatus{}, err
	}
	if err := required("cohortID", cohortID == ""); err != nil {
		return ModuleStatus{}, err
	}
	src, err := g.source()
	if err != nil {
		return ModuleStatus{}, err
	}

	if teacherOverride {
		return ModuleStatus{IsUnlocked: true, Reason: ReasonTeacherOverride}, nil
	}

	sched, err := src.FetchSchedule(ctx, moduleID, cohortID)
	if errors.Is(err, ErrNotFound) || (err == nil && sched == nil) {
		return ModuleStatus{IsUnlocked: true, Reason: ReasonNotScheduled}, nil
	}
	if err != nil {
		return ModuleStatus{}, fmt.Errorf("fetch schedule for module %d: %w", moduleID, err)
	}

	return evaluate(*sched, g.Today())
}

// GetUnlockDate returns the normalized unlock date, or nil when unscheduled.
func (g *Gate) GetUnlockDate(ctx context.Context, moduleID uint, cohortID string) (*time.Time, error) {
	if err := required("moduleID", moduleID == 0); err != nil {
		return nil, err
	}
	if err := required("cohortID", cohortID == ""); err != nil {
		return nil, err
	}
	src, err := g.source()
	if err != nil {
		return nil, err
	}

	sched, err := src.FetchSchedule(ctx, moduleID, cohortID)
	if errors.Is(err, ErrNotFound) || (err == nil && sched == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch schedule for module %d: %w", moduleID, err)
	}

	unlock, err := ParseDate(sched.UnlockDate)
	if err != nil {
		return nil, err
	}
	return &unlock, nil
}

// CanAccessLesson requires an active cohort enrollment for the lesson's course
// and an unlocked module.
func (g *Gate) CanAccessLesson(ctx context.Context, lessonID uint, userID string, teacherOverride bool) (LessonAccess, error) {
	if err := required("lessonID", lessonID == 0); err != nil {
		return LessonAccess{}, err
	}
	if err := required("userID", userID == ""); err != nil {
		return LessonAccess{}, err
	}
	src, err := g.source()
	if err != nil {
		return LessonAccess{}, err
	}

	if teacherOverride {
		return LessonAccess{
			CanAccess:      true,
			ModuleUnlocked: true,
			IsEnrolled:     true,
			Reason:         LessonTeacherOverride,
		}, nil
	}

	enr, err := src.FetchEnrollment(ctx, lessonID, userID)
	if errors.Is(err, ErrNotFound) || (err == nil && enr == nil) {
		return LessonAccess{Reason: LessonNotEnrolled}, nil
	}
	if err != nil {
		return LessonAccess{}, fmt.Errorf("fetch enrollment for lesson %d: %w", lessonID, err)
	}

	status, err := g.IsModuleUnlocked(ctx, enr.ModuleID, enr.CohortID, false)
	if err != nil {
		return LessonAccess{}, err
	}

	access := LessonAccess{
		CanAccess:      status.IsUnlocked,
		ModuleUnlocked: status.IsUnlocked,
		IsEnrolled:     true,
		Reason:         LessonAccessible,
		ModuleID:       enr.ModuleID,
		CohortID:       enr.CohortID,
	}
	if !status.IsUnlocked {
		access.Reason = LessonModuleLocked
	}
	return access, nil
}

// GetCohortModuleStatuses evaluates every scheduled module of a cohort from a
// single fetch. Modules without a schedule have no entry; under teacher
// override the map is empty and callers treat every module as unlocked.
// A row with an unparseable date locks only its own module.
func (g *Gate) GetCohortModuleStatuses(ctx context.Context, cohortID string, teacherOverride bool) (map[uint]ModuleStatus, error) {
	if err := required("cohortID", cohortID == ""); err != nil {
		return nil, err
	}
	src, err := g.source()
	if err != nil {
		return nil, err
	}

	statuses := make(map[uint]ModuleStatus)
	if teacherOverride {
		return statuses, nil
	}

	schedules, err := src.FetchCohortSchedules(ctx, cohortID)
	if errors.Is(err, ErrNotFound) {
		return statuses, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch schedules for cohort %s: %w", cohortID, err)
	}

	today := g.Today()
	for _, sched := range schedules {
		status, err := evaluate(sched, today)
		if err != nil {
			if g.onInvalid != nil {
				g.onInvalid(sched, err)
			}
			status = ModuleStatus{IsUnlocked: false, Reason: ReasonLocked}
		}
		statuses[sched.ModuleID] = status
	}
	return statuses, nil
}

// DaysUntilUnlock is positive for future dates, negative for past ones and
// zero for today or nil.
func (g *Gate) DaysUntilUnlock(date *time.Time) int {
	if date == nil {
		return 0
	}
	return DaysBetween(g.Today(), *date)
}

func evaluate(sched Schedule, today time.Time) (ModuleStatus, error) {
	unlock, err := ParseDate(sched.UnlockDate)
	if err != nil {
		return ModuleStatus{}, err
	}
	lock, err := parseOptionalDate(sched.LockDate)
	if err != nil {
		return ModuleStatus{}, err
	}

	status := ModuleStatus{
		IsUnlocked: true,
		Reason:     ReasonUnlocked,
		UnlockDate: &unlock,
		LockDate:   lock,
	}
	switch {
	case today.Before(unlock):
		status.IsUnlocked, status.Reason = false, ReasonLocked
	case lock != nil && !today.Before(*lock):
		status.IsUnlocked, status.Reason = false, ReasonLocked
	}
	return status, nil
}
