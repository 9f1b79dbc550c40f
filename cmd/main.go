package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/digidoc-org/digidoc-backend/internal/db"
	"github.com/digidoc-org/digidoc-backend/internal/handlers"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/media"
	"github.com/digidoc-org/digidoc-backend/internal/middleware"
	"github.com/digidoc-org/digidoc-backend/internal/repos"
	"github.com/digidoc-org/digidoc-backend/internal/server"
	"github.com/digidoc-org/digidoc-backend/internal/services"
	"github.com/digidoc-org/digidoc-backend/internal/store"
	"github.com/digidoc-org/digidoc-backend/internal/stream"
	"github.com/digidoc-org/digidoc-backend/internal/utils"
)

func main() {
	// Logger Setup
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, relying on the environment")
	}
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 1800, log)
	storeBackend := utils.GetEnv("STORE_BACKEND", "postgres", log)
	appDataDir := utils.GetEnv("APP_DATA_DIR", "./data", log)
	mediaDir := utils.GetEnv("MEDIA_DIR", "./media", log)
	geminiAPIKey := utils.GetEnv("GEMINI_API_KEY", "", log)
	ollamaURL := utils.GetEnv("OLLAMA_URL", "http://localhost:11434", log)
	ollamaModel := utils.GetEnv("OLLAMA_MODEL", "llama3.2:3b", log)
	avatarFont := utils.GetEnv("AVATAR_FONT", "", log)

	// Postgres Setup
	log.Info("Setting up Postgres now...")
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("DB init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repositories Setup
	userRepo := repos.NewUserRepo(thePG, log)

	// Chat Store Setup
	var chatStore store.ChatStore
	switch storeBackend {
	case "file":
		chatStore, err = store.NewFileStore(appDataDir, log)
		if err != nil {
			log.Error("Fatal error: cannot init file store", "error", err)
			os.Exit(1)
		}
		log.Info("Using file-backed chat store", "root", appDataDir)
	default:
		chatStore = store.NewPostgresStore(thePG, log, userRepo)
		log.Info("Using Postgres-backed chat store")
	}

	// Media Store Setup
	mediaStore, err := media.NewStore(mediaDir, log)
	if err != nil {
		log.Error("Fatal error: cannot init media store", "error", err)
		os.Exit(1)
	}

	// Services Setup
	log.Info("Setting up services now...")
	var avatarService services.AvatarService
	if avatarFont != "" {
		avatarService, err = services.NewAvatarService(log, mediaDir, avatarFont)
		if err != nil {
			log.Warn("Could not init AvatarService, avatars disabled", "error", err)
			avatarService = nil
		}
	} else {
		log.Info("AVATAR_FONT not set, avatars disabled")
	}
	assistantService, err := services.NewAssistantService(context.Background(), log, geminiAPIKey)
	if err != nil {
		log.Warn("Could not init AssistantService, assistant calls will fail", "error", err)
	}
	defer assistantService.Close()
	ollamaService, err := services.NewOllamaService(log, ollamaURL, ollamaModel)
	if err != nil {
		log.Warn("Could not init OllamaService", "error", err)
	}
	authService := services.NewAuthService(thePG, log, userRepo, avatarService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	chatService := services.NewChatService(log, chatStore, mediaStore, assistantService, ollamaService)
	meService := services.NewMeService(log, userRepo, chatStore, ollamaService)

	// Handler Setup
	relay := stream.NewRelay(stream.DefaultDelay)
	authHandler := handlers.NewAuthHandler(authService)
	meHandler := handlers.NewMeHandler(meService)
	chatHandler := handlers.NewChatHandler(chatService)
	assistantHandler := handlers.NewAssistantHandler(log, chatService, relay)
	mediaHandler := handlers.NewMediaHandler(chatService)

	// Middleware Setup
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router Setup
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		MeHandler:        meHandler,
		ChatHandler:      chatHandler,
		AssistantHandler: assistantHandler,
		MediaHandler:     mediaHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
