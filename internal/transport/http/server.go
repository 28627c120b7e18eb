package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "taskhub/internal/app"
	"taskhub/internal/bootstrap"
	"taskhub/internal/cache"
	"taskhub/internal/metrics"
	"taskhub/internal/platform/rabbitmq"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
	"taskhub/internal/transport/http/handler"
	"taskhub/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	userRepo := repository.NewUserRepository(app.MySQL)
	taskRepo := repository.NewTaskRepository(app.MySQL)
	revokedTokens := cache.NewRevokedTokens(app.Redis)
	notifier := rabbitmq.NewNotificationPublisher(app.MQConn, app.Config.RabbitMQ.NotificationQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		revokedTokens,
		notifier,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.TokenTTLHours)*time.Hour,
	)
	taskService := appsvc.NewTaskService(
		taskRepo,
		userRepo,
		app.Storage,
		notifier,
		app.Audit,
		policy.Policy{EnforceStatusOrder: app.Config.Tasks.EnforceStatusOrder},
	)

	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService, app.Config.Tasks.UploadDir)

	requireSession := middleware.Auth(app.Config.Auth.JWTSecret, revokedTokens, userRepo)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", requireSession, authHandler.Logout)
	authGroup.GET("/me", requireSession, authHandler.Me)
	authGroup.GET("/users", requireSession, authHandler.ListUsers)
	authGroup.PUT("/update", requireSession, authHandler.ChangePassword)

	taskGroup := api.Group("/tasks")
	taskGroup.Use(requireSession)
	taskGroup.POST("/create", taskHandler.Create)
	taskGroup.GET("", taskHandler.List)
	taskGroup.GET("/:id", taskHandler.Get)
	taskGroup.PUT("/update/:id", taskHandler.Update)
	taskGroup.DELETE("/delete/:id", taskHandler.Delete)

	return router
}
