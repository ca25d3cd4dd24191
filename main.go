package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-api/config"
	"storefront-api/middleware"
	"storefront-api/notify"
	"storefront-api/orders"
	"storefront-api/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Set Gin mode
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		gin.SetMode(gin.DebugMode)
	}

	cfg := config.Load()

	db, err := config.OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	log.Println("Database connected and migrated")

	// Notification channels: email always, WhatsApp only when configured
	channels := []notify.Channel{
		&notify.EmailChannel{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom},
	}
	if cfg.WhatsAppURL != "" {
		channels = append(channels, &notify.WhatsAppChannel{
			URL:   cfg.WhatsAppURL,
			Token: cfg.WhatsAppToken,
		})
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyQueueSize, channels...)

	svc := orders.NewService(db, dispatcher, cfg.DefaultCountryCode)
	auth := &middleware.Auth{Secret: cfg.JWTSecret}

	// Create Gin router with default middleware (logger + recovery)
	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Storefront Order API",
			"version": "1.0.0",
		})
	})

	routes.Setup(r, db, auth, svc)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server running on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown failed:", err)
	}

	// Drain queued notifications before exit
	dispatcher.Close()
	log.Println("Server exited")
}
