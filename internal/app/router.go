package app

import (
	"cohort_course_backend/internal/config"
	"cohort_course_backend/internal/middleware"
	"cohort_course_backend/internal/model"
	"cohort_course_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		a.registerCourseRoutes(authGroup, c)
		a.registerCohortRoutes(authGroup, c)
		a.registerAccessRoutes(authGroup, c)
	}
}

func (a *App) registerCourseRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.GET("/courses/:id/modules", c.course.ListModules)

	// 教师相关接口；课程归属在 service 层校验
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.POST("/courses/:id/modules", c.course.AddModule)
		teacher.POST("/modules/:id/lessons", c.course.AddLesson)
	}
}

func (a *App) registerCohortRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/cohorts", c.cohort.ListCohorts)
	rg.POST("/cohorts", middleware.RoleMiddleware(model.Teacher), c.cohort.CreateCohort)
	rg.GET("/cohorts/:id", c.cohort.GetCohort)

	// 报名
	rg.POST("/cohorts/:id/enroll", c.cohort.Enroll)
	rg.DELETE("/cohorts/:id/enroll", c.cohort.Unenroll)
	rg.GET("/cohorts/:id/enrollments", c.cohort.Roster)

	// 排期
	rg.GET("/cohorts/:id/schedule", c.schedule.ListSchedule)
	rg.POST("/cohorts/:id/schedule", c.schedule.UpsertSchedule)
	rg.DELETE("/cohorts/:id/schedule", c.schedule.DeleteSchedule)
	rg.GET("/cohorts/:id/schedule/events", c.schedule.ScheduleEvents)
	rg.GET("/cohorts/:id/schedule/ws", c.schedule.ScheduleSocket)
}

func (a *App) registerAccessRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/cohorts/:id/modules/status", c.access.CohortModuleStatuses)
	rg.GET("/cohorts/:id/modules/:moduleId/status", c.access.ModuleStatus)
	rg.GET("/cohorts/:id/modules/:moduleId/unlock-date", c.access.UnlockDate)
	rg.GET("/lessons/:id/access", c.access.LessonAccess)
}
