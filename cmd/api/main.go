package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edupath/enroll-api/api/swagger"
	"github.com/edupath/enroll-api/internal/handler"
	"github.com/edupath/enroll-api/internal/middleware"
	"github.com/edupath/enroll-api/internal/repository"
	"github.com/edupath/enroll-api/internal/service"
	"github.com/edupath/enroll-api/pkg/cache"
	"github.com/edupath/enroll-api/pkg/config"
	"github.com/edupath/enroll-api/pkg/database"
	"github.com/edupath/enroll-api/pkg/logger"
	corsmiddleware "github.com/edupath/enroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupath/enroll-api/pkg/middleware/requestid"
)

// @title Enroll API
// @version 1.0.0
// @description Enrollment platform backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, teacherRepo, tokenRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, enrollmentRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, courseRepo, classRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, teacherRepo, classRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, courseRepo, teacherRepo, enrollmentRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, userRepo, classRepo, cacheRepo, cfg.Cache.TTL, validate, logr).
		WithMetrics(metricsSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	classHandler := handler.NewClassHandler(classSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.RegisterUser)
			auth.POST("/login", authHandler.LoginUser)
			auth.POST("/teachers/register", authHandler.RegisterTeacher)
			auth.POST("/teachers/login", authHandler.LoginTeacher)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.GET("/users", userHandler.List)
			protected.GET("/users/:id", userHandler.Get)
			protected.PUT("/users/:id", middleware.RequireKinds("admin", "SELF"), userHandler.Update)
			protected.DELETE("/users/:id", middleware.RequireKinds("admin", "SELF"), userHandler.Delete)

			protected.GET("/teachers", teacherHandler.List)
			protected.GET("/teachers/:id", teacherHandler.Get)
			protected.PUT("/teachers/:id", middleware.RequireKinds("admin", "SELF"), teacherHandler.Update)
			protected.DELETE("/teachers/:id", middleware.RequireKinds("admin"), teacherHandler.Delete)

			protected.GET("/courses", courseHandler.List)
			protected.GET("/courses/:id", courseHandler.Get)
			protected.POST("/courses", middleware.RequireKinds("teacher", "admin"), courseHandler.Create)
			protected.PUT("/courses/:id", middleware.RequireKinds("teacher", "admin"), courseHandler.Update)
			protected.DELETE("/courses/:id", middleware.RequireKinds("teacher", "admin"), courseHandler.Delete)

			protected.GET("/classes", classHandler.List)
			protected.GET("/classes/:id", classHandler.Get)
			protected.POST("/classes", middleware.RequireKinds("teacher", "admin"), classHandler.Create)
			protected.PUT("/classes/:id", middleware.RequireKinds("teacher", "admin"), classHandler.Update)
			protected.DELETE("/classes/:id", middleware.RequireKinds("teacher", "admin"), classHandler.Delete)
			protected.GET("/classes/:id/roster", middleware.RequireKinds("teacher", "admin"), enrollmentHandler.Roster)

			protected.GET("/enrollments", enrollmentHandler.List)
			protected.POST("/enrollments", enrollmentHandler.Create)
			protected.PUT("/enrollments/:id", enrollmentHandler.Update)
			protected.PATCH("/enrollments/:id", enrollmentHandler.Update)
			protected.DELETE("/enrollments/:id", middleware.RequireKinds("admin"), enrollmentHandler.Delete)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
