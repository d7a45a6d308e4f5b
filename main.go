package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"blogapi/config"
	"blogapi/database"
	"blogapi/handlers"
	"blogapi/routes"
	"blogapi/storage"
	"blogapi/websocket"
)

func main() {
	log.Println("Starting blog API...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config error: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== CONNECT TO MONGODB WITH RETRY =====
	var store *database.Store
	for i := 1; i <= 3; i++ {
		store, err = database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions)
		if err == nil {
			break
		}
		log.Printf("MongoDB connection attempt %d failed: %v", i, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}

	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create indexes: ", err)
	}

	images, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to set up image storage: ", err)
	}

	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	feed := websocket.NewManager()
	feedCtx, stopFeed := context.WithCancel(context.Background())
	go feed.Start(feedCtx)

	h := handlers.New(handlers.Options{
		Store:     store,
		Images:    images,
		Feed:      feed,
		JWTSecret: []byte(cfg.JWTSecret),
		JWTTTL:    cfg.JWTTTL,
	})

	opts := routes.Options{
		JWTSecret:     []byte(cfg.JWTSecret),
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		Feed:          feed.Handler(),
	}
	if disk, ok := images.(*storage.Disk); ok {
		opts.UploadDir = disk.Dir()
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.SetupRouter(h, opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown: ", err)
	}
	stopFeed()

	if err := store.Close(shutdownCtx); err != nil {
		log.Println("MongoDB disconnect error: ", err)
	}

	log.Println("Server stopped")
}
