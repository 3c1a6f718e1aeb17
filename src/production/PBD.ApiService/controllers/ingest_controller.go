package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ApiService/implementation/readings"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
	normalizer "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Normalizer"
)

// IngestController handles reading ingest requests
type IngestController struct {
	service *readings.Service
	logger  *logger.Logger
}

// NewIngestController creates a new ingest controller
func NewIngestController(service *readings.Service, logger *logger.Logger) *IngestController {
	return &IngestController{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the ingest routes with Gin
func (c *IngestController) RegisterRoutes(router *gin.Engine) {
	router.POST("/ingest", c.Ingest)
	router.POST("/ingest/sample", c.IngestSample)
}

// Ingest accepts a live device payload under any recognized field alias,
// stores it and fans it out to live subscribers.
func (c *IngestController) Ingest(ctx *gin.Context) {
	raw, ok := c.bindPayload(ctx)
	if !ok {
		return
	}

	stored, err := c.service.Ingest(ctx.Request.Context(), raw)
	c.respond(ctx, stored, err)
}

// IngestSample accepts a labeled training capture; the label defaults to
// unlabeled rather than "ok".
func (c *IngestController) IngestSample(ctx *gin.Context) {
	raw, ok := c.bindPayload(ctx)
	if !ok {
		return
	}

	stored, err := c.service.IngestSample(ctx.Request.Context(), raw)
	c.respond(ctx, stored, err)
}

func (c *IngestController) bindPayload(ctx *gin.Context) (map[string]interface{}, bool) {
	var raw map[string]interface{}
	if err := ctx.ShouldBindJSON(&raw); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return nil, false
	}
	return raw, true
}

func (c *IngestController) respond(ctx *gin.Context, stored *pbdmodels.StoredReading, err error) {
	if err != nil {
		var verr *normalizer.ValidationError
		if errors.As(err, &verr) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":          verr.Error(),
				"missing_fields": verr.MissingFields,
			})
			return
		}
		c.logger.ErrorWithError(err, "Failed to ingest reading")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store reading"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "id": stored.ID})
}
