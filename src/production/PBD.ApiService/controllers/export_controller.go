package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ApiService/implementation/readings"
	export "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Export"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
)

// ExportController handles dataset download requests
type ExportController struct {
	service *readings.Service
	logger  *logger.Logger
}

// NewExportController creates a new export controller
func NewExportController(service *readings.Service, logger *logger.Logger) *ExportController {
	return &ExportController{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the export routes with Gin
func (c *ExportController) RegisterRoutes(router *gin.Engine) {
	router.GET("/export-csv", c.ExportCSV)
	router.GET("/export-xlsx", c.ExportXLSX)
}

// ExportCSV returns the full reading history as a CSV attachment. The schema
// query selects the column layout: "raw" (default) or "training". The file
// is assembled before any headers commit, so an empty or failing store gets
// a proper status instead of a truncated download.
func (c *ExportController) ExportCSV(ctx *gin.Context) {
	schema, err := export.ParseSchema(ctx.Query("schema"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deviceID := ctx.Query("device_id")

	var buf bytes.Buffer
	if err := c.service.ExportCSV(ctx.Request.Context(), &buf, deviceID, schema); err != nil {
		if errors.Is(err, readings.ErrNoData) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "no data"})
			return
		}
		c.logger.ErrorWithError(err, "CSV export failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", schema.Filename()))
	ctx.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportXLSX returns the full reading history as a spreadsheet attachment.
func (c *ExportController) ExportXLSX(ctx *gin.Context) {
	deviceID := ctx.Query("device_id")

	data, err := c.service.ExportXLSX(ctx.Request.Context(), deviceID)
	if err != nil {
		if errors.Is(err, readings.ErrNoData) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "no data"})
			return
		}
		c.logger.ErrorWithError(err, "XLSX export failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.XLSXFilename))
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
