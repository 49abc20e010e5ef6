package server

import (
	"time"

	httpHandler "autopost/interfaces/http"
	"autopost/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func InitiateRouter(
	secretKey string,
	corsOrigins []string,
	healthHandler httpHandler.IHealthHandler,
	groupPostHandler httpHandler.IGroupPostHandler,
	pointsHandler httpHandler.IPointsHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	groupPosts := api.Group("/instant-group-posts")
	{
		groupPosts.POST("", groupPostHandler.Create)
		groupPosts.GET("", groupPostHandler.List)
		groupPosts.GET("/history", groupPostHandler.History)
		groupPosts.GET("/:id", groupPostHandler.Get)
		groupPosts.DELETE("/:id", groupPostHandler.Delete)
	}

	points := api.Group("/points")
	{
		points.GET("/balance", pointsHandler.Balance)
		points.GET("/transactions", pointsHandler.Transactions)
	}

	return router
}
