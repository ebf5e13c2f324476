package service

import (
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/util"
	"cohort_course_backend/pkg/monitoring"
	"cohort_course_backend/pkg/tracing"
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// AccessService answers gate questions for an authenticated caller. Course
// staff get the teacher override.
type AccessService struct {
	gate    *gating.Gate
	cohorts *CohortService
	courses *CourseService
}

func NewAccessService(gate *gating.Gate, cohorts *CohortService, courses *CourseService) *AccessService {
	return &AccessService{gate: gate, cohorts: cohorts, courses: courses}
}

type ModuleStatusView struct {
	ModuleID        uint                `json:"moduleId"`
	CohortID        string              `json:"cohortId"`
	IsUnlocked      bool                `json:"isUnlocked"`
	Reason          gating.ModuleReason `json:"reason"`
	UnlockDate      *string             `json:"unlockDate"`
	LockDate        *string             `json:"lockDate"`
	UnlockDateLabel string              `json:"unlockDateLabel"`
	DaysUntilUnlock int                 `json:"daysUntilUnlock"`
}

type UnlockDateView struct {
	ModuleID        uint    `json:"moduleId"`
	CohortID        string  `json:"cohortId"`
	UnlockDate      *string `json:"unlockDate"`
	Label           string  `json:"label"`
	DaysUntilUnlock int     `json:"daysUntilUnlock"`
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(gating.DateLayout)
	return &s
}

func (s *AccessService) statusView(moduleID uint, cohortID string, st gating.ModuleStatus) ModuleStatusView {
	return ModuleStatusView{
		ModuleID:        moduleID,
		CohortID:        cohortID,
		IsUnlocked:      st.IsUnlocked,
		Reason:          st.Reason,
		UnlockDate:      formatOptional(st.UnlockDate),
		LockDate:        formatOptional(st.LockDate),
		UnlockDateLabel: gating.FormatUnlockDate(st.UnlockDate),
		DaysUntilUnlock: s.gate.DaysUntilUnlock(st.UnlockDate),
	}
}

// cohortModule loads the cohort, checks that moduleID belongs to its course
// and that the actor is staff or a member.
func (s *AccessService) cohortModule(ctx context.Context, actor Actor, cohortID string, moduleID uint) (*model.Cohort, error) {
	cohort, err := s.cohorts.Get(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	module, err := s.courses.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if module.CourseID != cohort.CourseID {
		return nil, util.ErrModuleNotInCourse
	}
	if err := s.cohorts.CheckMember(ctx, actor, cohort); err != nil {
		return nil, err
	}
	return cohort, nil
}

func (s *AccessService) ModuleStatus(ctx context.Context, actor Actor, cohortID string, moduleID uint) (view *ModuleStatusView, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.module_status",
		attribute.String("cohort_id", cohortID),
		attribute.Int64("module_id", int64(moduleID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	cohort, err := s.cohortModule(ctx, actor, cohortID, moduleID)
	if err != nil {
		return nil, err
	}

	st, err := s.gate.IsModuleUnlocked(ctx, moduleID, cohort.ID, actor.CanManage(cohort.Course))
	if err != nil {
		return nil, err
	}
	monitoring.RecordDecision("module_status", string(st.Reason))
	span.SetAttributes(attribute.String("reason", string(st.Reason)))

	v := s.statusView(moduleID, cohort.ID, st)
	return &v, nil
}

func (s *AccessService) UnlockDate(ctx context.Context, actor Actor, cohortID string, moduleID uint) (view *UnlockDateView, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.unlock_date",
		attribute.String("cohort_id", cohortID),
		attribute.Int64("module_id", int64(moduleID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	cohort, err := s.cohortModule(ctx, actor, cohortID, moduleID)
	if err != nil {
		return nil, err
	}

	date, err := s.gate.GetUnlockDate(ctx, moduleID, cohort.ID)
	if err != nil {
		return nil, err
	}
	return &UnlockDateView{
		ModuleID:        moduleID,
		CohortID:        cohort.ID,
		UnlockDate:      formatOptional(date),
		Label:           gating.FormatUnlockDate(date),
		DaysUntilUnlock: s.gate.DaysUntilUnlock(date),
	}, nil
}

// CohortModuleStatuses covers every module of the cohort's course. Modules
// without a schedule report not_scheduled.
func (s *AccessService) CohortModuleStatuses(ctx context.Context, actor Actor, cohortID string) (views map[uint]ModuleStatusView, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.cohort_module_statuses", attribute.String("cohort_id", cohortID))
	defer func() { tracing.EndSpan(span, err) }()

	cohort, err := s.cohorts.Visible(ctx, actor, cohortID)
	if err != nil {
		return nil, err
	}
	modules, err := s.courses.ListModules(ctx, cohort.CourseID)
	if err != nil {
		return nil, err
	}

	override := actor.CanManage(cohort.Course)
	statuses, err := s.gate.GetCohortModuleStatuses(ctx, cohort.ID, override)
	if err != nil {
		return nil, err
	}

	views = make(map[uint]ModuleStatusView, len(modules))
	for _, m := range modules {
		st, ok := statuses[m.ID]
		switch {
		case override:
			st = gating.ModuleStatus{IsUnlocked: true, Reason: gating.ReasonTeacherOverride}
		case !ok:
			st = gating.ModuleStatus{IsUnlocked: true, Reason: gating.ReasonNotScheduled}
		}
		monitoring.RecordDecision("cohort_module_statuses", string(st.Reason))
		views[m.ID] = s.statusView(m.ID, cohort.ID, st)
	}
	span.SetAttributes(attribute.Int("modules", len(views)))
	return views, nil
}

func (s *AccessService) LessonAccess(ctx context.Context, actor Actor, lessonID uint) (access *gating.LessonAccess, err error) {
	ctx, span := tracing.StartSpan(ctx, "gate.lesson_access",
		attribute.Int64("lesson_id", int64(lessonID)),
		attribute.String("user_id", actor.UserID),
	)
	defer func() { tracing.EndSpan(span, err) }()

	course, err := s.courses.LessonCourse(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	result, err := s.gate.CanAccessLesson(ctx, lessonID, actor.UserID, actor.CanManage(course))
	if err != nil {
		return nil, err
	}
	monitoring.RecordDecision("lesson_access", string(result.Reason))
	span.SetAttributes(attribute.String("reason", string(result.Reason)))
	return &result, nil
}
