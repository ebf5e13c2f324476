package service

import (
	"cohort_course_backend/internal/config"
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/testutil"
	"cohort_course_backend/pkg/notify"
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.ScheduleEvent
	err    error
}

func (p *recordingPublisher) PublishSchedule(_ context.Context, event notify.ScheduleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []notify.ScheduleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.ScheduleEvent(nil), p.events...)
}

type services struct {
	db          *gorm.DB
	fixture     *testutil.Fixture
	publisher   *recordingPublisher
	auth        *AuthService
	courses     *CourseService
	cohorts     *CohortService
	enrollments *EnrollmentService
	schedules   *ScheduleService
	access      *AccessService
}

func newServices(t *testing.T, today string) *services {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)

	now, err := time.Parse("2006-01-02 15:04", today+" 12:00")
	if err != nil {
		t.Fatalf("parse clock: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour

	pub := &recordingPublisher{}
	users := repository.NewUserRepository(db)
	courses := NewCourseService(repository.NewCourseRepository(db))
	cohorts := NewCohortService(repository.NewCohortRepository(db), repository.NewEnrollmentRepository(db), courses)
	gate := gating.New(repository.NewGatingSource(db), gating.WithClock(func() time.Time { return now }))

	return &services{
		db:          db,
		fixture:     f,
		publisher:   pub,
		auth:        NewAuthService(users, cfg),
		courses:     courses,
		cohorts:     cohorts,
		enrollments: NewEnrollmentService(repository.NewEnrollmentRepository(db), users, cohorts),
		schedules:   NewScheduleService(repository.NewScheduleRepository(db), cohorts, courses, pub),
		access:      NewAccessService(gate, cohorts, courses),
	}
}

func (s *services) teacher() Actor {
	return Actor{UserID: s.fixture.Teacher.ID, Role: s.fixture.Teacher.Role}
}

func (s *services) student() Actor {
	return Actor{UserID: s.fixture.Student.ID, Role: s.fixture.Student.Role}
}

func (s *services) admin() Actor {
	return Actor{UserID: s.fixture.Admin.ID, Role: s.fixture.Admin.Role}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
