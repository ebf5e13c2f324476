package controller

import (
	"cohort_course_backend/internal/service"
	"cohort_course_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AccessController exposes the schedule gate to clients. Course staff
// always see modules as unlocked.
type AccessController struct {
	AccessService *service.AccessService
}

func NewAccessController(accessService *service.AccessService) *AccessController {
	return &AccessController{AccessService: accessService}
}

// ModuleStatus godoc
// @Summary 模块解锁状态
// @Tags 访问控制
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=service.ModuleStatusView}
// @Failure 404 {object} util.Response
// @Failure 403 {object} util.Response "非本班期成员"
// @Router /api/cohorts/{id}/modules/{moduleId}/status [get]
func (c *AccessController) ModuleStatus(ctx *gin.Context) {
	moduleID, ok := pathID(ctx, "moduleId")
	if !ok {
		return
	}

	view, err := c.AccessService.ModuleStatus(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"), moduleID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// UnlockDate godoc
// @Summary 模块解锁日期
// @Tags 访问控制
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response{data=service.UnlockDateView}
// @Failure 403 {object} util.Response "非本班期成员"
// @Router /api/cohorts/{id}/modules/{moduleId}/unlock-date [get]
func (c *AccessController) UnlockDate(ctx *gin.Context) {
	moduleID, ok := pathID(ctx, "moduleId")
	if !ok {
		return
	}

	view, err := c.AccessService.UnlockDate(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"), moduleID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// CohortModuleStatuses godoc
// @Summary 班期全部模块解锁状态
// @Tags 访问控制
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Success 200 {object} util.Response{data=map[string]service.ModuleStatusView}
// @Failure 403 {object} util.Response "非本班期成员"
// @Router /api/cohorts/{id}/modules/status [get]
func (c *AccessController) CohortModuleStatuses(ctx *gin.Context) {
	views, err := c.AccessService.CohortModuleStatuses(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// LessonAccess godoc
// @Summary 课时访问权限
// @Description 需要有效的班期报名且所属模块已解锁
// @Tags 访问控制
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=gating.LessonAccess}
// @Failure 404 {object} util.Response
// @Router /api/lessons/{id}/access [get]
func (c *AccessController) LessonAccess(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	access, err := c.AccessService.LessonAccess(ctx.Request.Context(), currentActor(ctx), lessonID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, access)
}
