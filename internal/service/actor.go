package service

import (
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/util"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   model.UserRole
}

func ActorFromClaims(c *util.Claims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Role: c.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.Admin
}

// CanManage reports whether the actor is staff for the course: its creator or
// an admin. Staff bypass schedule gates.
func (a Actor) CanManage(course *model.Course) bool {
	if a.IsAdmin() {
		return true
	}
	return course != nil && a.UserID != "" && course.CreatedBy == a.UserID
}
