package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasktracker/backend/internal/cache"
	"tasktracker/backend/internal/config"
	"tasktracker/backend/internal/handlers"
	"tasktracker/backend/internal/mail"
	"tasktracker/backend/internal/middleware"
	"tasktracker/backend/internal/models"
	"tasktracker/backend/internal/monitoring"
	"tasktracker/backend/internal/services"
	"tasktracker/backend/internal/worker"
	"tasktracker/backend/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	redisCache := cache.NewRedisCacheFromClient(redisClient)
	jobQueue := worker.NewJobQueue(redisClient)
	hub := ws.NewHub()

	userService := services.NewUserService()
	taskStore := services.NewTaskService(userService)
	taskService := services.NewCachedTaskService(taskStore, redisCache)
	recurrenceService := services.NewRecurrenceService(taskService, cfg.Recurrence.DefaultHorizonDays)
	auditService := services.NewAuditService()
	notificationService := services.NewNotificationService(userService, hub, jobQueue, jobQueue)
	taskManager := services.NewTaskManager(taskService, recurrenceService, auditService, notificationService, userService)
	authService := services.NewAuthService(cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	registerService := services.NewRegisterService(cfg.Auth.BCryptCost)

	mailer := mail.NewSMTPMailer(cfg.Mail)
	jobWorker := worker.NewWorker(worker.Config{
		RedisClient: redisClient,
		Queues:      cfg.Worker.Queues,
	})
	jobWorker.RegisterHandler(worker.JobTypeEmailNotification, worker.EmailNotificationHandler(mailer))
	jobWorker.RegisterHandler(worker.JobTypeTaskReminder, worker.TaskReminderHandler(mailer))
	jobWorker.Start(cfg.Worker.Concurrency)

	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	router := setupRouter(cfg, db, taskManager, taskService, auditService, userService, authService, registerService, hub)

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("server listening on %s", cfg.GetServerAddr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	jobWorker.Stop()

	if err := redisClient.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("shutdown complete")
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.AuditLog{},
		&models.Token{},
		&models.NotificationPreference{},
	); err != nil {
		return nil, err
	}

	return db, nil
}

func setupRouter(
	cfg *config.Config,
	db *gorm.DB,
	taskManager services.TaskManagerService,
	taskService services.TaskService,
	auditService services.AuditService,
	userService services.UserService,
	authService services.AuthService,
	registerService services.RegisterService,
	hub *ws.Hub,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	taskHandler := handlers.NewTaskHandler(db, taskManager, taskService)
	auditHandler := handlers.NewAuditHandler(db, auditService)
	recurringHandler := handlers.NewRecurringHandler(db, taskManager)
	preferencesHandler := handlers.NewPreferencesHandler(db, userService)
	authHandler := handlers.NewAuthHandler(db, authService)
	registerHandler := handlers.NewRegisterHandler(db, registerService)

	router.GET("/health", monitoring.HealthHandler())
	router.GET("/ready", monitoring.ReadinessHandler())
	router.GET("/live", monitoring.LivenessHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	api := router.Group("/api")
	{
		api.POST("/register", registerHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/refresh", authHandler.Refresh)
		api.POST("/logout", authHandler.Logout)
	}

	authed := api.Group("")
	authed.Use(middleware.AuthzMiddleware(middleware.AuthzConfig{}))
	{
		authed.POST("/tasks", taskHandler.CreateTask)
		authed.GET("/tasks", taskHandler.GetTasks)
		authed.GET("/tasks/search", taskHandler.SearchTasks)
		authed.GET("/tasks/overdue", taskHandler.GetOverdueTasks)
		authed.GET("/tasks/:id", taskHandler.GetTaskByID)
		authed.PUT("/tasks/:id", taskHandler.UpdateTask)
		authed.DELETE("/tasks/:id", taskHandler.DeleteTask)
		authed.GET("/users/:user_id/tasks", taskHandler.GetTasksByUser)

		authed.GET("/me/preferences", preferencesHandler.GetPreferences)
		authed.PUT("/me/preferences", preferencesHandler.UpdatePreferences)

		authed.GET("/ws", ws.Handler(hub))
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthzMiddleware(middleware.AuthzConfig{Role: "admin"}))
	{
		admin.GET("/audit-logs", auditHandler.GetAuditLogs)
		admin.POST("/recurring/process", recurringHandler.ProcessRecurring)
	}

	return router
}
