package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"blogapi/handlers"
	"blogapi/middleware"
	"blogapi/storage"
)

type Options struct {
	JWTSecret     []byte
	CORSOrigins   []string
	AuthRateLimit int

	// UploadDir is served under /uploads when set.
	UploadDir string

	// Feed serves the live comment websocket when set.
	Feed http.Handler
}

func SetupRouter(h *handlers.Handler, opts Options) *gin.Engine {
	handlers.UseJSONFieldNames()

	router := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = opts.CORSOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	auth := middleware.JWTAuth(opts.JWTSecret)

	limit := opts.AuthRateLimit
	if limit <= 0 {
		limit = 60
	}
	limiter := middleware.NewIPRateLimiter(limit, time.Minute)

	// Users
	users := router.Group("/auth")
	users.POST("/login", limiter.Middleware(), h.Login)
	users.POST("/register", limiter.Middleware(), h.Register)
	users.GET("/me", auth, h.GetMe)

	// Uploads
	router.POST("/upload", auth, h.UploadImage)
	if opts.UploadDir != "" {
		router.Static(storage.DiskPrefix, opts.UploadDir)
	}

	// Tags
	router.GET("/tags", h.GetLastTags)
	router.GET("/tags/:tag", h.GetPostsByTag)

	// Posts
	router.GET("/posts", h.GetAllPosts)
	router.GET("/posts/tags", h.GetLastTags)
	router.GET("/posts/:id", h.GetPost)
	router.POST("/posts", auth, h.CreatePost)
	router.PATCH("/posts/:id", auth, h.UpdatePost)
	router.DELETE("/posts/:id", auth, h.DeletePost)

	// Comments
	router.GET("/comments", h.GetLastComments)
	router.GET("/comments/:postId", h.GetPostComments)
	router.POST("/comments/:postId", auth, h.CreateComment)
	router.PATCH("/comments/:commentId", auth, h.UpdateComment)
	router.DELETE("/comments/:commentId", auth, h.DeleteComment)

	// Live comment feed
	if opts.Feed != nil {
		router.GET("/ws", gin.WrapH(opts.Feed))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Endpoint not found"})
	})

	return router
}
