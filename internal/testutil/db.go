// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"cohort_course_backend/internal/model"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

// NewDB opens an isolated in-memory sqlite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Date builds a datatypes.Date from YYYY-MM-DD.
func Date(t *testing.T, s string) datatypes.Date {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return datatypes.Date(d)
}

func DatePtr(t *testing.T, s string) *datatypes.Date {
	d := Date(t, s)
	return &d
}

// Fixture is a course with one teacher, one student, one cohort and two
// modules with a lesson each.
type Fixture struct {
	Teacher model.User
	Student model.User
	Admin   model.User
	Course  model.Course
	Modules []model.Module
	Lessons []model.Lesson
	Cohort  model.Cohort
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{
		Teacher: model.User{Name: "Tess Teacher", Email: "teacher@example.com", Password: "x", Role: model.Teacher},
		Student: model.User{Name: "Sam Student", Email: "student@example.com", Password: "x", Role: model.Student},
		Admin:   model.User{Name: "Ada Admin", Email: "admin@example.com", Password: "x", Role: model.Admin},
	}
	mustCreate(t, db, &f.Teacher)
	mustCreate(t, db, &f.Student)
	mustCreate(t, db, &f.Admin)

	f.Course = model.Course{Title: "Intro to Go", CreatedBy: f.Teacher.ID, IsPublished: true}
	mustCreate(t, db, &f.Course)

	for i := 1; i <= 2; i++ {
		m := model.Module{CourseID: f.Course.ID, Title: fmt.Sprintf("Week %d", i), OrderIndex: i}
		mustCreate(t, db, &m)
		f.Modules = append(f.Modules, m)

		l := model.Lesson{ModuleID: m.ID, Title: fmt.Sprintf("Lesson %d.1", i), OrderIndex: 1}
		mustCreate(t, db, &l)
		f.Lessons = append(f.Lessons, l)
	}

	f.Cohort = model.Cohort{
		CourseID:    f.Course.ID,
		Name:        "Spring 2025",
		StartDate:   Date(t, "2025-01-06"),
		Status:      model.CohortActive,
		MaxStudents: model.DefaultMaxStudents,
		CreatedBy:   f.Teacher.ID,
	}
	mustCreate(t, db, &f.Cohort)
	return f
}

// Enroll adds an active enrollment for user in cohort.
func Enroll(t *testing.T, db *gorm.DB, cohortID, userID string) model.CohortEnrollment {
	t.Helper()
	e := model.CohortEnrollment{
		CohortID:   cohortID,
		UserID:     userID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now().UTC(),
	}
	mustCreate(t, db, &e)
	return e
}
