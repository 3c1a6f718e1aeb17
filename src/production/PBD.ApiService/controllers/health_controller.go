package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ApiService/health"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ApiService/implementation/readings"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
)

// HealthController handles health and stats requests
type HealthController struct {
	service       *readings.Service
	healthChecker *health.HealthChecker
	logger        *logger.Logger
}

// NewHealthController creates a new health controller
func NewHealthController(service *readings.Service, healthChecker *health.HealthChecker, logger *logger.Logger) *HealthController {
	return &HealthController{
		service:       service,
		healthChecker: healthChecker,
		logger:        logger,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/", c.Root)
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
	router.GET("/stats/summary", c.GetSummaryStats)
}

func (c *HealthController) Root(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"service": "plantbuddy-data-server",
		"status":  "ok",
	})
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	status := c.healthChecker.GetHealthStatus(ctx.Request.Context())
	code := http.StatusOK
	if status["status"] != "ok" {
		code = http.StatusServiceUnavailable
	}
	ctx.JSON(code, status)
}

func (c *HealthController) GetSummaryStats(ctx *gin.Context) {
	stats, err := c.service.Stats(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, stats)
}
