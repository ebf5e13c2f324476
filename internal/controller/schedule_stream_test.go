package controller

import (
	"bufio"
	"cohort_course_backend/internal/model"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/service"
	"cohort_course_backend/internal/testutil"
	"cohort_course_backend/internal/util"
	"cohort_course_backend/pkg/notify"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSubscriber struct {
	events chan notify.ScheduleEvent
	closed chan struct{}
}

func newChanSubscriber() *chanSubscriber {
	return &chanSubscriber{
		events: make(chan notify.ScheduleEvent, 4),
		closed: make(chan struct{}),
	}
}

func (s *chanSubscriber) Subscribe(ctx context.Context, _ string) (<-chan notify.ScheduleEvent, error) {
	go func() {
		<-ctx.Done()
		close(s.closed)
	}()
	return s.events, nil
}

func (s *chanSubscriber) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-s.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("subscription context was not cancelled")
	}
}

type streamEnv struct {
	fixture *testutil.Fixture
	sub     *chanSubscriber
	server  *httptest.Server
}

// newStreamEnv serves the schedule stream endpoints as the given fixture user.
func newStreamEnv(t *testing.T, heartbeat time.Duration, as func(*testutil.Fixture) model.User) *streamEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	courses := service.NewCourseService(repository.NewCourseRepository(db))
	cohorts := service.NewCohortService(repository.NewCohortRepository(db), repository.NewEnrollmentRepository(db), courses)

	sub := newChanSubscriber()
	c := NewScheduleController(nil, cohorts, sub)
	c.Heartbeat = heartbeat

	user := as(f)
	router := gin.New()
	router.Use(func(ctx *gin.Context) {
		ctx.Set(util.ContextUserKey, &util.Claims{UserID: user.ID, Role: user.Role})
		ctx.Next()
	})
	router.GET("/cohorts/:id/schedule/events", c.ScheduleEvents)
	router.GET("/cohorts/:id/schedule/ws", c.ScheduleSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &streamEnv{fixture: f, sub: sub, server: srv}
}

func asTeacher(f *testutil.Fixture) model.User { return f.Teacher }

func asStudent(f *testutil.Fixture) model.User { return f.Student }

func TestScheduleEvents_StreamsEventsAndPings(t *testing.T) {
	env := newStreamEnv(t, 20*time.Millisecond, asTeacher)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/cohorts/"+env.fixture.Cohort.ID+"/schedule/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	env.sub.events <- notify.ScheduleEvent{Type: notify.ScheduleUpserted, CohortID: env.fixture.Cohort.ID, ModuleID: 3, UnlockDate: "2025-01-20"}

	var (
		sawPing bool
		got     *notify.ScheduleEvent
		event   string
	)
	reader := bufio.NewReader(resp.Body)
	for !sawPing || got == nil {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			if event == "ping" {
				sawPing = true
				continue
			}
			if event == string(notify.ScheduleUpserted) {
				var e notify.ScheduleEvent
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &e))
				got = &e
			}
		}
	}
	assert.Equal(t, uint(3), got.ModuleID)
	assert.Equal(t, "2025-01-20", got.UnlockDate)

	cancel()
	env.sub.waitClosed(t)
}

func TestScheduleEvents_RejectsNonMembers(t *testing.T) {
	env := newStreamEnv(t, time.Second, asStudent)

	for _, path := range []string{"/schedule/events", "/schedule/ws"} {
		resp, err := http.Get(env.server.URL + "/cohorts/" + env.fixture.Cohort.ID + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	resp, err := http.Get(env.server.URL + "/cohorts/missing/schedule/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScheduleSocket_PushesEvents(t *testing.T) {
	env := newStreamEnv(t, 20*time.Millisecond, asTeacher)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/cohorts/" + env.fixture.Cohort.ID + "/schedule/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	lock := "2025-03-01"
	env.sub.events <- notify.ScheduleEvent{Type: notify.ScheduleUpserted, CohortID: env.fixture.Cohort.ID, ModuleID: 5, UnlockDate: "2025-02-01", LockDate: &lock}
	env.sub.events <- notify.ScheduleEvent{Type: notify.ScheduleDeleted, CohortID: env.fixture.Cohort.ID, ModuleID: 5}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var first, second SocketMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, string(notify.ScheduleUpserted), first.Type)
	require.NotNil(t, first.Data)
	require.NotNil(t, first.Data.LockDate)
	assert.Equal(t, "2025-03-01", *first.Data.LockDate)
	assert.Equal(t, string(notify.ScheduleDeleted), second.Type)

	// control frames are only handled while reading
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	select {
	case <-pinged:
	case <-time.After(3 * time.Second):
		t.Fatal("no ping from server")
	}

	require.NoError(t, conn.Close())
	env.sub.waitClosed(t)
}

func TestScheduleSocket_DisabledWithoutSubscriber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewScheduleController(nil, nil, nil)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.ScheduleSocket(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
