package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/telega-lite/internal/handlers"
	"github.com/thereayou/telega-lite/internal/middleware"
	"github.com/thereayou/telega-lite/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *auth.JWTManager,
	rdb *redis.Client,
	authH *handlers.AuthHandler,
	userH *handlers.UserHandler,
	chatH *handlers.ChatHandler,
	messageH *handlers.MessageHandler,
	wsH *handlers.WebSocketHandler,
) {
	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", authH.Logout)
	}

	// API endpoints
	api := r.Group("/api", middleware.AuthMiddleware(jwtMgr, rdb))
	{
		api.GET("/users/me", userH.GetMe)
		api.GET("/users/search", userH.SearchUsers)
		api.GET("/users/:id", userH.GetUser)

		api.POST("/chats", chatH.CreateDirectChat)
		api.POST("/chats/group", chatH.CreateGroupChat)
		api.GET("/chats", chatH.GetMyChats)
		api.GET("/chats/:id", chatH.GetChat)
		api.PUT("/chats/:id/rename", chatH.RenameGroup)
		api.PUT("/chats/:id/members", chatH.AddMember)
		api.DELETE("/chats/:id/members/:userID", chatH.RemoveMember)
		api.PUT("/chats/:id/admin", chatH.TransferAdmin)

		api.POST("/messages", messageH.SendMessage)
		api.GET("/messages/:chatID", messageH.GetChatMessages)
		api.POST("/messages/:chatID/read", messageH.MarkRead)
	}

	// WebSocket
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), wsH.HandleWebSocket)
}
