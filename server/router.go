package server

import (
	"net/http"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/infrastructure/metrics"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultOrigins = []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"}

func InitiateRouter(
	secretKey string,
	allowedOrigins []string,
	connectionHandler httpHandler.IConnectionHandler,
	publishHandler httpHandler.IPublishHandler,
	scheduleHandler httpHandler.IScheduleHandler,
	activityHandler httpHandler.IActivityHandler,
) *gin.Engine {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultOrigins
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.GinMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.Response{Success: true, Message: "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Provider redirects carry no bearer token; the state identifies the workspace.
	router.GET("/auth/:platform/callback", connectionHandler.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	api.GET("/auth/:platform", connectionHandler.GetAuthURL)

	connections := api.Group("/connections")
	connections.GET("", connectionHandler.List)
	connections.POST("/:platform/refresh", connectionHandler.Refresh)
	connections.DELETE("/:platform", connectionHandler.Disconnect)
	connections.GET("/:platform/verify", connectionHandler.Verify)
	connections.GET("/:platform/profile", connectionHandler.Profile)

	publish := api.Group("/publish")
	publish.POST("", publishHandler.Publish)
	publish.POST("/multi", publishHandler.PublishMulti)
	publish.POST("/schedule", publishHandler.Schedule)

	posts := api.Group("/posts")
	posts.GET("/:platform/:postId", publishHandler.GetPost)
	posts.GET("/:platform/:postId/metrics", publishHandler.GetPostMetrics)
	posts.DELETE("/:platform/:postId", publishHandler.DeletePost)

	schedule := api.Group("/schedule")
	schedule.POST("", scheduleHandler.Queue)
	schedule.GET("/upcoming", scheduleHandler.Upcoming)
	schedule.POST("/process", scheduleHandler.Process)
	schedule.GET("/stream", scheduleHandler.Stream)
	schedule.PATCH("/:id", scheduleHandler.Reschedule)
	schedule.DELETE("/:id", scheduleHandler.Cancel)

	api.GET("/activity", activityHandler.Recent)

	return router
}
