package controller

import (
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/service"
	"cohort_course_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError maps service and gate errors onto the response envelope.
// Anything unrecognized is logged and reported as 500.
func respondError(ctx *gin.Context, err error) {
	var verr *util.ValidationError
	switch {
	case errors.As(err, &verr):
		util.ValidationFailed(ctx, verr.Errors)

	case errors.Is(err, gating.ErrInvalidArgument):
		util.BadRequest(ctx, err.Error())

	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrModuleNotFound),
		errors.Is(err, util.ErrLessonNotFound),
		errors.Is(err, util.ErrCohortNotFound),
		errors.Is(err, util.ErrEnrollmentNotFound):
		util.NotFound(ctx, err.Error())

	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrCohortClosed),
		errors.Is(err, util.ErrCourseUnavailable):
		util.Error(ctx, http.StatusForbidden, err.Error())

	case errors.Is(err, util.ErrEmailRegistered),
		errors.Is(err, util.ErrCohortNameTaken),
		errors.Is(err, util.ErrAlreadyEnrolled),
		errors.Is(err, util.ErrCohortFull):
		util.Conflict(ctx, err.Error())

	case errors.Is(err, util.ErrModuleNotInCourse):
		util.BadRequest(ctx, err.Error())

	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, util.ErrUserDisabled):
		util.Error(ctx, http.StatusForbidden, "Account is disabled")

	default:
		util.LogInternalError(ctx, err)
	}
}

func currentActor(ctx *gin.Context) service.Actor {
	return service.ActorFromClaims(util.GetUserFromContext(ctx))
}

// pathID parses a numeric path parameter, writing a 400 when it is invalid.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.BadRequest(ctx, "Invalid "+name)
	}
	return id, ok
}
