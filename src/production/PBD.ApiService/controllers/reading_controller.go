package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ApiService/implementation/readings"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
)

// SSE framing for the live reading stream.
const (
	sseContentType = "text/event-stream"
	sseEventName   = "reading"
)

// ReadingController handles reading query and live-stream requests
type ReadingController struct {
	service *readings.Service
	logger  *logger.Logger
}

// NewReadingController creates a new reading controller
func NewReadingController(service *readings.Service, logger *logger.Logger) *ReadingController {
	return &ReadingController{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the reading routes with Gin
func (c *ReadingController) RegisterRoutes(router *gin.Engine) {
	router.GET("/readings/latest", c.GetLatestReading)
	router.GET("/live", c.LiveStream)
}

// GetLatestReading returns the most recent stored reading, optionally
// restricted to one device.
func (c *ReadingController) GetLatestReading(ctx *gin.Context) {
	deviceID := ctx.Query("device_id")

	reading, err := c.service.Latest(ctx.Request.Context(), deviceID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reading == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no data"})
		return
	}

	ctx.JSON(http.StatusOK, reading)
}

// LiveStream pushes each stored reading to the client as a server-sent
// event until the client disconnects. An optional device_id query filters
// the stream to one device.
func (c *ReadingController) LiveStream(ctx *gin.Context) {
	flusher, ok := ctx.Writer.(http.Flusher)
	if !ok {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	deviceID := ctx.Query("device_id")

	sub := c.service.OpenLiveStream()
	defer c.service.CloseLiveStream(sub)

	ctx.Header("Content-Type", sseContentType)
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	done := ctx.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case reading, open := <-sub.Readings():
			if !open {
				return
			}
			if deviceID != "" && reading.DeviceID != deviceID {
				continue
			}

			payload, err := json.Marshal(reading)
			if err != nil {
				c.logger.ErrorWithError(err, "Failed to encode live reading")
				continue
			}

			fmt.Fprintf(ctx.Writer, "event: %s\ndata: %s\n\n", sseEventName, payload)
			flusher.Flush()
		}
	}
}
