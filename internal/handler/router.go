package handler

import (
	"net/http"
	"strings"
	"time"

	"sodabet/backend/internal/auth"
	"sodabet/backend/internal/config"
	"sodabet/backend/internal/mw"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the API route table. Swagger is mounted by the
// caller so that tests do not need the generated docs package.
func NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(config.AppConfig.CORSAllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// User routes
	userRoutes := router.Group("/users")
	{
		loginLimiter := mw.RateLimit(5, 10)
		userRoutes.POST("", loginLimiter, RegisterUser)
		userRoutes.POST("/login", loginLimiter, LoginUser)
		userRoutes.POST("/refresh", RefreshSession)

		authed := userRoutes.Group("")
		authed.Use(auth.AuthMiddleware())
		{
			authed.POST("/logout", LogoutUser)
			authed.GET("/me", GetMe)
		}
	}

	// Room routes
	roomRoutes := router.Group("/rooms")
	{
		// Public discovery needs no credentials.
		roomRoutes.GET("/public", GetPublicRooms)
		roomRoutes.GET("/search/:token", SearchRoomByToken)

		authed := roomRoutes.Group("")
		authed.Use(auth.AuthMiddleware())
		{
			authed.POST("/public", CreatePublicRoom)
			authed.POST("/private", CreatePrivateRoom)
			authed.GET("/me", GetMyRooms)
			authed.GET("/private", GetPrivateRooms)
			authed.GET("/:id", GetRoomByID)
			authed.POST("/:id/join", JoinRoom)
			authed.GET("/:id/members", ListRoomMembers)
			authed.DELETE("/public/:id", DeletePublicRoom)
			authed.DELETE("/private/:token", DeletePrivateRoom)
		}
	}

	// Bet routes
	betRoutes := router.Group("/bets")
	betRoutes.Use(auth.AuthMiddleware())
	{
		betRoutes.POST("", ProposeBet)
		betRoutes.GET("", ListBets)
		betRoutes.PATCH("/:id", DecideBet)
	}

	// Message routes
	messageRoutes := router.Group("/messages")
	messageRoutes.Use(auth.AuthMiddleware())
	{
		messageRoutes.POST("", SendMessage)
		messageRoutes.GET("/room/:room_id", GetRoomMessages)
		messageRoutes.GET("/ws/:room_id", MessageSocket)
	}

	// Notification routes
	notificationRoutes := router.Group("/notifications")
	notificationRoutes.Use(auth.AuthMiddleware())
	{
		notificationRoutes.GET("", GetNotifications)
	}

	return router
}
