package controller

import (
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/service"
	"cohort_course_backend/internal/util"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

type CohortController struct {
	CohortService     *service.CohortService
	EnrollmentService *service.EnrollmentService
}

func NewCohortController(cohortService *service.CohortService, enrollmentService *service.EnrollmentService) *CohortController {
	return &CohortController{
		CohortService:     cohortService,
		EnrollmentService: enrollmentService,
	}
}

// CreateCohort godoc
// @Summary 创建班期
// @Description 课程创建者或管理员为课程新建一个班期(cohort)
// @Tags 班期
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CohortRequest true "班期信息"
// @Success 201 {object} util.Response{data=model.Cohort}
// @Failure 400 {object} util.Response "参数校验失败"
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 409 {object} util.Response "同名班期已存在"
// @Router /api/cohorts [post]
func (c *CohortController) CreateCohort(ctx *gin.Context) {
	var req service.CohortRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	cohort, err := c.CohortService.Create(ctx.Request.Context(), currentActor(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, cohort)
}

// ListCohorts godoc
// @Summary 班期列表
// @Tags 班期
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId query int false "课程ID"
// @Param   status query string false "状态" Enums(upcoming, active, completed, archived)
// @Success 200 {object} util.Response{data=[]model.Cohort}
// @Router /api/cohorts [get]
func (c *CohortController) ListCohorts(ctx *gin.Context) {
	filter := repository.CohortFilter{
		CourseID: util.MustParseUint(ctx.Query("courseId")),
		Status:   model.CohortStatus(ctx.Query("status")),
	}

	cohorts, err := c.CohortService.List(ctx.Request.Context(), filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, cohorts)
}

// GetCohort godoc
// @Summary 班期详情
// @Tags 班期
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Success 200 {object} util.Response{data=model.Cohort}
// @Failure 404 {object} util.Response
// @Router /api/cohorts/{id} [get]
func (c *CohortController) GetCohort(ctx *gin.Context) {
	cohort, err := c.CohortService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, cohort)
}

// swagger:model EnrollRequest
type EnrollRequest struct {
	UserID string `json:"userId"`
}

// bindEnrollRequest accepts an empty body, meaning the caller themselves.
// The userId query parameter is honored when the body names nobody.
func bindEnrollRequest(ctx *gin.Context) (EnrollRequest, bool) {
	var req EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.BadRequest(ctx, err.Error())
		return req, false
	}
	if req.UserID == "" {
		req.UserID = ctx.Query("userId")
	}
	return req, true
}

// Enroll godoc
// @Summary 加入班期
// @Description 学生报名班期；课程管理者可为其他用户报名
// @Tags 班期
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Param   body body EnrollRequest false "目标用户，缺省为当前用户"
// @Success 201 {object} util.Response{data=model.CohortEnrollment}
// @Failure 403 {object} util.Response "班期未开放报名"
// @Failure 409 {object} util.Response "已报名或班期已满"
// @Router /api/cohorts/{id}/enroll [post]
func (c *CohortController) Enroll(ctx *gin.Context) {
	req, ok := bindEnrollRequest(ctx)
	if !ok {
		return
	}

	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"), req.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// Unenroll godoc
// @Summary 退出班期
// @Tags 班期
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Param   userId query string false "目标用户，缺省为当前用户"
// @Success 200 {object} util.Response{data=model.CohortEnrollment}
// @Failure 404 {object} util.Response "未报名"
// @Router /api/cohorts/{id}/enroll [delete]
func (c *CohortController) Unenroll(ctx *gin.Context) {
	req, ok := bindEnrollRequest(ctx)
	if !ok {
		return
	}

	enrollment, err := c.EnrollmentService.Unenroll(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"), req.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// Roster godoc
// @Summary 班期学员名单
// @Tags 班期
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Success 200 {object} util.Response{data=[]model.CohortEnrollment}
// @Failure 403 {object} util.Response
// @Router /api/cohorts/{id}/enrollments [get]
func (c *CohortController) Roster(ctx *gin.Context) {
	roster, err := c.EnrollmentService.Roster(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, roster)
}
