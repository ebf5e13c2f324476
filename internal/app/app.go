package app

import (
	"cohort_course_backend/internal/config"
	"cohort_course_backend/internal/controller"
	"cohort_course_backend/internal/gating"
	"cohort_course_backend/internal/repository"
	"cohort_course_backend/internal/service"
	"cohort_course_backend/pkg/configwatcher"
	"cohort_course_backend/pkg/database"
	"cohort_course_backend/pkg/logger"
	"cohort_course_backend/pkg/monitoring"
	"cohort_course_backend/pkg/notify"
	"cohort_course_backend/pkg/security"
	"cohort_course_backend/pkg/tracing"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	cors            *security.CORS
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	cohort     *repository.CohortRepository
	enrollment *repository.EnrollmentRepository
	schedule   *repository.ScheduleRepository
	gating     *repository.GatingSource
}

type services struct {
	auth       *service.AuthService
	course     *service.CourseService
	cohort     *service.CohortService
	enrollment *service.EnrollmentService
	schedule   *service.ScheduleService
	access     *service.AccessService
}

type controllers struct {
	auth     *controller.AuthController
	course   *controller.CourseController
	cohort   *controller.CohortController
	schedule *controller.ScheduleController
	access   *controller.AccessController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) reloadConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		cohort:     repository.NewCohortRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		schedule:   repository.NewScheduleRepository(db),
		gating:     repository.NewGatingSource(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, publisher notify.Publisher, gateOpts ...gating.Option) *services {
	s := &services{}
	s.auth = service.NewAuthService(repos.user, cfg)
	s.course = service.NewCourseService(repos.course)
	s.cohort = service.NewCohortService(repos.cohort, repos.enrollment, s.course)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.user, s.cohort)
	s.schedule = service.NewScheduleService(repos.schedule, s.cohort, s.course, publisher)
	opts := append([]gating.Option{gating.WithInvalidScheduleHandler(logInvalidSchedule)}, gateOpts...)
	s.access = service.NewAccessService(gating.New(repos.gating, opts...), s.cohort, s.course)
	return s
}

func logInvalidSchedule(s gating.Schedule, err error) {
	logger.Log.Warn("unreadable cohort schedule row",
		zap.String("cohort_id", s.CohortID),
		zap.Uint("module_id", s.ModuleID),
		zap.Error(err),
	)
}

func initControllers(s *services, db *gorm.DB, rdb *redis.Client, subscriber controller.ScheduleSubscriber) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		course:   controller.NewCourseController(s.course),
		cohort:   controller.NewCohortController(s.cohort, s.enrollment),
		schedule: controller.NewScheduleController(s.schedule, s.cohort, subscriber),
		access:   controller.NewAccessController(s.access),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(a.cors.Handler())
	router.Use(security.Secure())
	router.Use(a.limiter.Handler())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New wires an App around already opened stores. rdb may be nil, in which
// case schedule events are dropped and the SSE and websocket endpoints
// answer 503.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, gateOpts ...gating.Option) *App {
	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		cors:    security.NewCORS(cfg.CORS.AllowedOrigins),
		limiter: security.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window()),
	}

	var publisher notify.Publisher = notify.NopPublisher{}
	var subscriber controller.ScheduleSubscriber
	if rdb != nil {
		redisPublisher := notify.NewRedisPublisher(rdb)
		publisher, subscriber = redisPublisher, redisPublisher
	}

	repos := initRepositories(db)
	services := initServices(repos, cfg, publisher, gateOpts...)
	controllers := initControllers(services, db, rdb, subscriber)

	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(logger.SetLevel)
	app.RegisterConfigCallback(func(c *config.Config) {
		app.cors.SetOrigins(c.CORS.AllowedOrigins)
	})
	app.RegisterConfigCallback(func(c *config.Config) {
		app.limiter.SetLimit(c.RateLimit.MaxRequests, c.RateLimit.Window())
	})

	return app
}

// shouldMigrate: release deployments migrate only when asked to; sqlite
// files are always brought up to date.
func shouldMigrate(cfg *config.Config) bool {
	return cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode || cfg.Database.Driver == "sqlite"
}

// NewApp opens the stores described by cfg and builds the App. Startup
// failures are fatal.
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully", zap.String("level", logger.Level().String()))

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if shouldMigrate(cfg) {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Database migration failed", zap.Error(err))
		}
		logger.Log.Info("Database migration finished", zap.String("driver", cfg.Database.Driver))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled && !cfg.MigrateOnly {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled && !cfg.MigrateOnly {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.limiter.Run(ctx)
	go func() {
		if err := configwatcher.WatchConfig(ctx, configDir, a.reloadConfig); err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
	}()

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	// 设置5秒的超时时间
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
}

// Close releases the tracer, Redis and database handles.
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
