package controller

import (
	"cohort_course_backend/internal/util"
	"cohort_course_backend/pkg/logger"
	"cohort_course_backend/pkg/notify"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	socketWriteWait = 10 * time.Second
	socketPongWait  = 60 * time.Second
	socketReadLimit = 512
)

var scheduleUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由 CORS 中间件统一处理
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SocketMessage is one frame pushed to websocket clients.
type SocketMessage struct {
	Type string                `json:"type"`
	Data *notify.ScheduleEvent `json:"data,omitempty"`
}

// ScheduleSocket godoc
// @Summary 排期变更推送(WebSocket)
// @Description 与 SSE 相同的事件，通过 WebSocket 推送；消息格式 {"type": "...", "data": {...}}
// @Tags 排期
// @Security ApiKeyAuth
// @Param   id path string true "班期ID"
// @Failure 403 {object} util.Response "非本班期成员"
// @Failure 503 {object} util.Response "未启用实时推送"
// @Router /api/cohorts/{id}/schedule/ws [get]
func (c *ScheduleController) ScheduleSocket(ctx *gin.Context) {
	if c.Subscriber == nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Realtime schedule updates are disabled")
		return
	}

	cohort, err := c.CohortService.Visible(ctx.Request.Context(), currentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	// 连接被 hijack 之后请求的 context 不再感知断开，由 readPump 负责取消
	streamCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.Subscriber.Subscribe(streamCtx, cohort.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	conn, err := scheduleUpgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Log.Warn("schedule socket upgrade failed", zap.String("cohort_id", cohort.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Log.Debug("schedule socket opened", zap.String("cohort_id", cohort.ID))
	go socketReadPump(conn, cancel)
	c.socketWritePump(streamCtx, conn, events)
}

// socketReadPump drains client frames so pongs and close frames are handled.
func socketReadPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(socketReadLimit)
	conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(socketPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("schedule socket closed", zap.Error(err))
			}
			return
		}
	}
}

func (c *ScheduleController) socketWritePump(ctx context.Context, conn *websocket.Conn, events <-chan notify.ScheduleEvent) {
	ticker := time.NewTicker(c.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case event, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(SocketMessage{Type: string(event.Type), Data: &event}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
