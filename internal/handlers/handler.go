package handlers

import (
	"net/http"

	"agrotrace/internal/hub"
	"agrotrace/internal/logger"
	"agrotrace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services, the broadcast hub and logging.
type Handler struct {
	services *service.Service
	hub      *hub.Hub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, h *hub.Hub, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: h, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health and metrics endpoints
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// WebSocket live feed, served on the same port via HTTP upgrade
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerReadingRoutes(api)
		h.registerAlertRoutes(api)
		h.registerSyncRoutes(api)
		h.registerTraceRoutes(api)
	}
}

func (h *Handler) registerReadingRoutes(api *gin.RouterGroup) {
	api.POST("/readings", h.postReading)
	api.PUT("/thresholds", h.putThreshold)
}

func (h *Handler) registerAlertRoutes(api *gin.RouterGroup) {
	alerts := api.Group("/alerts")
	{
		alerts.GET("/", h.getAlerts)
		alerts.POST("/:id/resolve", h.resolveAlert)
	}
}

func (h *Handler) registerSyncRoutes(api *gin.RouterGroup) {
	sync := api.Group("/sync")
	{
		sync.GET("/status", h.getSyncStatus)
		sync.GET("/jobs", h.getSyncJobs)
		sync.POST("/jobs/:id/retry", h.retrySyncJob)
	}
}

func (h *Handler) registerTraceRoutes(api *gin.RouterGroup) {
	trace := api.Group("/trace")
	{
		trace.POST("/events", h.postTraceEvent)
		trace.GET("/lots/:id/history", h.getLotHistory)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
