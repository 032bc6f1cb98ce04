package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stylhelpr/stylhelpr-backend/config"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/controller"
	"github.com/stylhelpr/stylhelpr-backend/internal/middleware"
)

type Router struct {
	outfitController    *controller.CustomOutfitController
	handoffController   *controller.HandoffController
	uploadController    *controller.UploadController
	websocketController *controller.WebSocketController
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

// NewRouter wires the controllers. uploadController may be nil when S3 is
// not configured; the thumbnail route is then not registered.
func NewRouter(
	outfitController *controller.CustomOutfitController,
	handoffController *controller.HandoffController,
	uploadController *controller.UploadController,
	websocketController *controller.WebSocketController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		outfitController:    outfitController,
		handoffController:   handoffController,
		uploadController:    uploadController,
		websocketController: websocketController,
		authMiddleware:      authMiddleware,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "StylHelpr API is running",
		})
	})

	api := router.Group(r.config.Server.BasePath)
	api.Use(r.authMiddleware.Middleware(r.config.Auth.Required))
	self := r.authMiddleware.RequireSelf("userId")

	outfits := api.Group("/custom-outfits")
	{
		outfits.POST("", r.outfitController.Create)
		outfits.GET("/count/:userId", self, r.outfitController.Count)
		outfits.GET("/export/:userId", self, r.outfitController.Export)
		outfits.GET("/:userId", self, r.outfitController.GetByUser)
		outfits.PUT("/:id", r.outfitController.Update)
		outfits.DELETE("/:id", r.outfitController.Delete)
		if r.uploadController != nil {
			outfits.POST("/thumbnail-upload", r.uploadController.ThumbnailUpload)
		}
	}

	handoff := api.Group("/handoff")
	{
		handoff.PUT("/:userId", self, r.handoffController.Put)
		handoff.POST("/:userId/take", self, r.handoffController.Take)
	}

	api.GET("/ws/outfits", r.websocketController.OutfitEvents)

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			// credentials cannot be combined with a literal wildcard
			cfg.AllowOriginFunc = func(string) bool { return true }
			origins = nil
			break
		}
		origins = append(origins, o)
	}
	cfg.AllowOrigins = origins
	if cfg.AllowOriginFunc == nil && len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	}

	return cors.New(cfg)
}
