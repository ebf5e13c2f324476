package controller

import (
	"cohort_course_backend/internal/service"
	"cohort_course_backend/internal/util"
	"cohort_course_backend/pkg/logger"
	"cohort_course_backend/pkg/notify"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ScheduleSubscriber streams schedule events for one cohort.
type ScheduleSubscriber interface {
	Subscribe(ctx context.Context, cohortID string) (<-chan notify.ScheduleEvent, error)
}

type ScheduleController struct {
	ScheduleService *service.ScheduleService
	CohortService   *service.CohortService
	Subscriber      ScheduleSubscriber
	Heartbeat       time.Duration
}

// NewScheduleController takes a nil subscriber when realtime updates are off.
func NewScheduleController(scheduleService *service.ScheduleService, cohortService *service.CohortService, subscriber ScheduleSubscriber) *ScheduleController {
	return &ScheduleController{
		ScheduleService: scheduleService,
		CohortService:   cohortService,
		Subscriber:      subscriber,
		Heartbeat:       25 * time.Second,
	}
}

// ListSchedule godoc
// @Summary 班期模块解锁计划
// @Description 按解锁日期升序返回班期的所有模块排期
// @Tags 排期
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Success 200 {object} util.Response{data=[]service.ScheduleEntry}
// @Failure 403 {object} util.Response "非本班期成员"
// @Failure 404 {object} util.Response "班期不存在"
// @Router /api/cohorts/{id}/schedule [get]
func (c *ScheduleController) ListSchedule(ctx *gin.Context) {
	entries, err := c.ScheduleService.List(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// UpsertSchedule godoc
// @Summary 设置模块解锁时间
// @Description 新建或更新某模块在班期中的解锁/锁定日期（YYYY-MM-DD，锁定日期不含当天）
// @Tags 排期
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Param   body body service.ScheduleRequest true "排期"
// @Success 200 {object} util.Response{data=service.ScheduleEntry} "已更新"
// @Success 201 {object} util.Response{data=service.ScheduleEntry} "已创建"
// @Failure 400 {object} util.Response "参数校验失败"
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/cohorts/{id}/schedule [post]
func (c *ScheduleController) UpsertSchedule(ctx *gin.Context) {
	var req service.ScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	entry, created, err := c.ScheduleService.Upsert(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if created {
		util.Created(ctx, entry)
		return
	}
	util.Success(ctx, entry)
}

// DeleteSchedule godoc
// @Summary 删除模块排期
// @Description 删除后该模块对班期不再受时间限制
// @Tags 排期
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Param   moduleId query int true "模块ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/cohorts/{id}/schedule [delete]
func (c *ScheduleController) DeleteSchedule(ctx *gin.Context) {
	moduleID, ok := util.ParseID(ctx.Query("moduleId"))
	if !ok {
		util.ValidationFailed(ctx, []string{"moduleId query parameter is required"})
		return
	}

	if err := c.ScheduleService.Delete(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"), moduleID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"moduleId": moduleID, "deleted": true})
}

// ScheduleEvents godoc
// @Summary 排期变更推送(SSE)
// @Description 以 text/event-stream 推送班期排期的新增、修改与删除
// @Tags 排期
// @Produce  text/event-stream
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Failure 403 {object} util.Response "非本班期成员"
// @Failure 503 {object} util.Response "未启用实时推送"
// @Router /api/cohorts/{id}/schedule/events [get]
func (c *ScheduleController) ScheduleEvents(ctx *gin.Context) {
	if c.Subscriber == nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Realtime schedule updates are disabled")
		return
	}

	cohort, err := c.CohortService.Visible(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	streamCtx, cancel := context.WithCancel(ctx.Request.Context())
	defer cancel()

	events, err := c.Subscriber.Subscribe(streamCtx, cohort.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	logger.Log.Debug("schedule stream opened", zap.String("cohort_id", cohort.ID))
	heartbeat := time.NewTicker(c.Heartbeat)
	defer heartbeat.Stop()

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")
	// 先把响应头发出去，客户端据此确认订阅已建立
	ctx.Status(http.StatusOK)
	ctx.Writer.Flush()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-streamCtx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			ctx.SSEvent(string(event.Type), event)
			return true
		case <-heartbeat.C:
			ctx.SSEvent("ping", gin.H{"time": time.Now().UTC().Format(time.RFC3339)})
			return true
		}
	})
}
