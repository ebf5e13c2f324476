package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrCourseNotFound    = errors.New("course not found")
	ErrCourseUnavailable = errors.New("course is not available")
	ErrModuleNotFound    = errors.New("module not found")
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrModuleNotInCourse = errors.New("module does not belong to this cohort's course")

	ErrCohortNotFound     = errors.New("cohort not found")
	ErrCohortNameTaken    = errors.New("a cohort with this name already exists for this course")
	ErrCohortClosed       = errors.New("cohort is not open for enrollment")
	ErrCohortFull         = errors.New("cohort is full")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this cohort")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// ValidationError carries every failed rule of a request body.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Validation collects rule failures; Err returns nil when nothing failed.
type Validation struct {
	errs []string
}

func (v *Validation) Add(msg string) {
	v.errs = append(v.errs, msg)
}

func (v *Validation) Check(ok bool, msg string) {
	if !ok {
		v.Add(msg)
	}
}

func (v *Validation) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errs}
}
