package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/digidoc-org/digidoc-backend/internal/handlers"
	"github.com/digidoc-org/digidoc-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	MeHandler        *handlers.MeHandler
	ChatHandler      *handlers.ChatHandler
	AssistantHandler *handlers.AssistantHandler
	MediaHandler     *handlers.MediaHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	//-----------------------------------------
	// Cors Setup
	//-----------------------------------------
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	//-----------------------------------------
	// Health Routes
	//-----------------------------------------
	router.GET("/healthz", handlers.Healthz)

	//-----------------------------------------
	// Public Routes
	//-----------------------------------------
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	//------------------------------------------
	// Protected Routes
	//------------------------------------------
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.POST("/logout", cfg.AuthHandler.Logout)

	//Me
	protected.GET("/me", cfg.MeHandler.GetMe)
	protected.POST("/summarize-about-me", cfg.MeHandler.SummarizeAboutMe)
	protected.GET("/get-about-me", cfg.MeHandler.GetAboutMe)

	//Assistant
	protected.POST("/ask_a", cfg.AssistantHandler.Ask)
	protected.POST("/process-image", cfg.AssistantHandler.ProcessAttachment)

	//Chats
	protected.POST("/save-message", cfg.ChatHandler.SaveMessage)
	protected.GET("/chat-data/:chat_id", cfg.ChatHandler.GetChatData)
	protected.GET("/chats", cfg.ChatHandler.ListChats)
	protected.POST("/generate-title", cfg.ChatHandler.GenerateTitle)
	protected.POST("/update-chat-title", cfg.ChatHandler.UpdateChatTitle)

	//Media
	protected.GET("/user/media", cfg.MediaHandler.ListUserMedia)

	// Media files load from plain <img src> links, which can only carry
	// the token as a query parameter.
	router.GET("/media/:chat_id/:filename", cfg.AuthMiddleware.RequireAuthFromQuery(), cfg.MediaHandler.ServeMedia)

	return router
}
