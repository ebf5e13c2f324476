package service

import (
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/util"
	"cohort_course_backend/pkg/logger"
	"cohort_course_backend/pkg/notify"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ScheduleService struct {
	repo      *repository.ScheduleRepository
	cohorts   *CohortService
	courses   *CourseService
	publisher notify.Publisher
}

func NewScheduleService(repo *repository.ScheduleRepository, cohorts *CohortService, courses *CourseService, publisher notify.Publisher) *ScheduleService {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &ScheduleService{repo: repo, cohorts: cohorts, courses: courses, publisher: publisher}
}

type ScheduleRequest struct {
	ModuleID   int64   `json:"moduleId"`
	UnlockDate string  `json:"unlockDate"`
	LockDate   *string `json:"lockDate"`
}

// ScheduleEntry is the API shape of a cohort_schedules row, dates as YYYY-MM-DD.
type ScheduleEntry struct {
	ID          string  `json:"id"`
	CohortID    string  `json:"cohortId"`
	ModuleID    uint    `json:"moduleId"`
	ModuleTitle string  `json:"moduleTitle,omitempty"`
	ModuleOrder int     `json:"moduleOrder"`
	UnlockDate  string  `json:"unlockDate"`
	LockDate    *string `json:"lockDate"`
}

func dateString(d datatypes.Date) string {
	return time.Time(d).Format(gating.DateLayout)
}

func newScheduleEntry(s model.CohortSchedule) ScheduleEntry {
	entry := ScheduleEntry{
		ID:         s.ID,
		CohortID:   s.CohortID,
		ModuleID:   s.ModuleID,
		UnlockDate: dateString(s.UnlockDate),
	}
	if s.LockDate != nil {
		lock := dateString(*s.LockDate)
		entry.LockDate = &lock
	}
	if s.Module != nil {
		entry.ModuleTitle = s.Module.Title
		entry.ModuleOrder = s.Module.OrderIndex
	}
	return entry
}

type scheduleWindow struct {
	unlock time.Time
	lock   *time.Time
}

// validate rejects inverted or empty windows at write time. Rows written
// before this rule still evaluate (as always locked) in the gate.
func (r ScheduleRequest) validate() (scheduleWindow, error) {
	var v util.Validation
	var w scheduleWindow

	if r.ModuleID == 0 {
		v.Add("moduleId is required")
	} else if r.ModuleID < 0 {
		v.Add("moduleId must be a positive integer")
	}

	if strings.TrimSpace(r.UnlockDate) == "" {
		v.Add("unlockDate is required")
	} else if unlock, err := gating.ParseDate(r.UnlockDate); err != nil {
		v.Add("unlockDate must be a valid date (YYYY-MM-DD)")
	} else {
		w.unlock = unlock
	}

	if r.LockDate != nil && strings.TrimSpace(*r.LockDate) != "" {
		lock, err := gating.ParseDate(*r.LockDate)
		switch {
		case err != nil:
			v.Add("lockDate must be a valid date (YYYY-MM-DD)")
		case !w.unlock.IsZero() && !lock.After(w.unlock):
			v.Add("lockDate must be after unlockDate")
		default:
			w.lock = &lock
		}
	}

	return w, v.Err()
}

// List is open to course staff and cohort members.
func (s *ScheduleService) List(ctx context.Context, actor Actor, cohortID string) ([]ScheduleEntry, error) {
	cohort, err := s.cohorts.Visible(ctx, actor, cohortID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByCohort(ctx, cohort.ID)
	if err != nil {
		return nil, err
	}
	entries := make([]ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, newScheduleEntry(row))
	}
	return entries, nil
}

func (s *ScheduleService) manageableCohort(ctx context.Context, actor Actor, cohortID string) (*model.Cohort, error) {
	cohort, err := s.cohorts.Get(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(cohort.Course) {
		return nil, util.ErrPermissionDenied
	}
	return cohort, nil
}

// Upsert creates or replaces a module window. created is false on update.
func (s *ScheduleService) Upsert(ctx context.Context, actor Actor, cohortID string, req ScheduleRequest) (entry *ScheduleEntry, created bool, err error) {
	cohort, err := s.manageableCohort(ctx, actor, cohortID)
	if err != nil {
		return nil, false, err
	}

	window, err := req.validate()
	if err != nil {
		return nil, false, err
	}

	module, err := s.courses.GetModule(ctx, uint(req.ModuleID))
	if err != nil {
		return nil, false, err
	}
	if module.CourseID != cohort.CourseID {
		return nil, false, util.ErrModuleNotInCourse
	}

	row := &model.CohortSchedule{
		CohortID:   cohort.ID,
		ModuleID:   module.ID,
		UnlockDate: datatypes.Date(window.unlock),
	}
	if window.lock != nil {
		lock := datatypes.Date(*window.lock)
		row.LockDate = &lock
	}

	created, err = s.repo.Upsert(ctx, row)
	if err != nil {
		return nil, false, err
	}
	row.Module = module

	result := newScheduleEntry(*row)
	s.publish(ctx, notify.ScheduleEvent{
		Type:       notify.ScheduleUpserted,
		CohortID:   cohort.ID,
		ModuleID:   module.ID,
		UnlockDate: result.UnlockDate,
		LockDate:   result.LockDate,
	})
	return &result, created, nil
}

func (s *ScheduleService) Delete(ctx context.Context, actor Actor, cohortID string, moduleID uint) error {
	cohort, err := s.manageableCohort(ctx, actor, cohortID)
	if err != nil {
		return err
	}

	existed, err := s.repo.Delete(ctx, cohort.ID, moduleID)
	if err != nil {
		return err
	}
	if existed {
		s.publish(ctx, notify.ScheduleEvent{
			Type:     notify.ScheduleDeleted,
			CohortID: cohort.ID,
			ModuleID: moduleID,
		})
	}
	return nil
}

func (s *ScheduleService) publish(ctx context.Context, event notify.ScheduleEvent) {
	if err := s.publisher.PublishSchedule(ctx, event); err != nil {
		logger.Log.Warn("publish schedule event failed",
			zap.String("cohort_id", event.CohortID),
			zap.Uint("module_id", event.ModuleID),
			zap.Error(err),
		)
	}
}
