package service

import (
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/util"
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CohortService struct {
	repo        *repository.CohortRepository
	enrollments *repository.EnrollmentRepository
	courses     *CourseService
}

func NewCohortService(repo *repository.CohortRepository, enrollments *repository.EnrollmentRepository, courses *CourseService) *CohortService {
	return &CohortService{repo: repo, enrollments: enrollments, courses: courses}
}

type CohortRequest struct {
	CourseID    int64   `json:"courseId"`
	Name        string  `json:"name"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate"`
	MaxStudents *int    `json:"maxStudents"`
	Status      string  `json:"status"`
}

type cohortDates struct {
	start time.Time
	end   *time.Time
}

func (r CohortRequest) validate() (cohortDates, error) {
	var v util.Validation
	var dates cohortDates

	if r.CourseID == 0 {
		v.Add("courseId is required")
	} else if r.CourseID < 0 {
		v.Add("courseId must be a positive integer")
	}

	v.Check(strings.TrimSpace(r.Name) != "", "name is required")

	if strings.TrimSpace(r.StartDate) == "" {
		v.Add("startDate is required")
	} else if start, err := gating.ParseDate(r.StartDate); err != nil {
		v.Add("startDate must be a valid date (YYYY-MM-DD)")
	} else {
		dates.start = start
	}

	if r.EndDate != nil && strings.TrimSpace(*r.EndDate) != "" {
		end, err := gating.ParseDate(*r.EndDate)
		switch {
		case err != nil:
			v.Add("endDate must be a valid date (YYYY-MM-DD)")
		case !dates.start.IsZero() && !end.After(dates.start):
			v.Add("endDate must be after startDate")
		default:
			dates.end = &end
		}
	}

	if r.MaxStudents != nil && *r.MaxStudents < 1 {
		v.Add("maxStudents must be a positive integer")
	}

	if r.Status != "" && !model.CohortStatus(r.Status).Valid() {
		v.Add("status must be one of: upcoming, active, completed, archived")
	}

	return dates, v.Err()
}

func (s *CohortService) Create(ctx context.Context, actor Actor, req CohortRequest) (*model.Cohort, error) {
	dates, err := req.validate()
	if err != nil {
		return nil, err
	}

	course, err := s.courses.GetCourse(ctx, uint(req.CourseID))
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(course) {
		return nil, util.ErrPermissionDenied
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, course.ID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrCohortNameTaken
	}

	cohort := &model.Cohort{
		CourseID:    course.ID,
		Name:        name,
		StartDate:   datatypes.Date(dates.start),
		Status:      model.CohortUpcoming,
		MaxStudents: model.DefaultMaxStudents,
		CreatedBy:   actor.UserID,
	}
	if dates.end != nil {
		end := datatypes.Date(*dates.end)
		cohort.EndDate = &end
	}
	if req.MaxStudents != nil {
		cohort.MaxStudents = *req.MaxStudents
	}
	if req.Status != "" {
		cohort.Status = model.CohortStatus(req.Status)
	}

	if err := s.repo.Create(ctx, cohort); err != nil {
		return nil, err
	}
	return cohort, nil
}

func (s *CohortService) Get(ctx context.Context, id string) (*model.Cohort, error) {
	cohort, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCohortNotFound
	}
	return cohort, err
}

// Visible loads a cohort the actor may look into: its schedule, event stream
// and module states.
func (s *CohortService) Visible(ctx context.Context, actor Actor, id string) (*model.Cohort, error) {
	cohort, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.CheckMember(ctx, actor, cohort); err != nil {
		return nil, err
	}
	return cohort, nil
}

// CheckMember passes course staff and any member whose enrollment was not
// dropped. Completed and paused members keep read access.
func (s *CohortService) CheckMember(ctx context.Context, actor Actor, cohort *model.Cohort) error {
	if actor.CanManage(cohort.Course) {
		return nil
	}
	if actor.UserID == "" {
		return util.ErrPermissionDenied
	}
	enrollment, err := s.enrollments.Find(ctx, cohort.ID, actor.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrPermissionDenied
	}
	if err != nil {
		return err
	}
	if enrollment.Status == model.EnrollmentDropped {
		return util.ErrPermissionDenied
	}
	return nil
}

func (s *CohortService) List(ctx context.Context, filter repository.CohortFilter) ([]model.Cohort, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &util.ValidationError{Errors: []string{"status must be one of: upcoming, active, completed, archived"}}
	}
	return s.repo.List(ctx, filter)
}
