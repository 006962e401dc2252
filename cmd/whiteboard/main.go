package main

import (
	"log"

	"github.com/AssaadHalabi/Collaborative-Whiteboard/config"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/board"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/engine"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/handlers"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/hub"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/middleware"
	"github.com/AssaadHalabi/Collaborative-Whiteboard/internal/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to Redis (room metadata + presence)
	if err := redis.Connect(cfg.Redis); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	log.Println("Redis connection established")

	// Realtime core: state store, connection registry, sync engine
	store := board.NewStore()
	registry := hub.NewRegistry()
	eng := engine.New(store, registry, cfg.RoomGracePeriod)

	boardHandler := handlers.NewBoardHandler(
		eng,
		registry,
		handlers.RedisAdmission{},
		handlers.RedisPresence{},
		cfg.MaxMessageBytes,
	)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Room management API
	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", handlers.Login(cfg.JWTSecret))

		// Create room (requires JWT)
		apiGroup.POST("/rooms", middleware.JWTAuth(cfg.JWTSecret), handlers.CreateRoom)

		// Get room info (public)
		apiGroup.GET("/rooms/:roomId", handlers.GetRoom)

		// Delete room (requires JWT, creator only)
		apiGroup.DELETE("/rooms/:roomId", middleware.JWTAuth(cfg.JWTSecret), handlers.DeleteRoom)

		// Export the current board snapshot as PDF (public)
		apiGroup.GET("/rooms/:roomId/export.pdf", handlers.ExportRoomPDF(store))
	}

	// WebSocket board endpoint
	wsGroup := router.Group("/ws")
	{
		// Board channel - accepts room code or ID
		wsGroup.GET("/board/:roomId", boardHandler.HandleBoard)
	}

	// Start server
	log.Printf("Starting whiteboard sync server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
