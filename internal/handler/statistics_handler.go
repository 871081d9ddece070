package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-sheets-api/internal/middleware"
	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/service"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/response"
)

const statisticsReportName = "statistics.pdf"

type statisticsService interface {
	Compute(ctx context.Context, req service.StatisticsRequest) (models.StatisticsBundle, bool, error)
	Report(ctx context.Context, req service.StatisticsRequest) ([]byte, error)
}

// StatisticsHandler serves chart data computed from result exports.
type StatisticsHandler struct {
	service statisticsService
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(service statisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// Statistics godoc
// @Summary Compute quiz statistics
// @Description Returns a bar series of per-question averages and a pie series of grade buckets.
// @Tags Statistics
// @Accept multipart/form-data
// @Produce json
// @Produce application/pdf
// @Param file formData file true "Result CSV export (Windows-1250, ',')"
// @Param format query string false "json (default) or pdf"
// @Param lang query string false "Label language; falls back to Accept-Language"
// @Success 200 {array} object
// @Failure 422 {object} response.ErrorBody
// @Router /generate/statistics [post]
func (h *StatisticsHandler) Statistics(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "statistics service not configured"))
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	if format != "json" && format != "pdf" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json or pdf"))
		return
	}
	file, err := readUpload(c, "file", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	lang := strings.TrimSpace(c.Query("lang"))
	if lang == "" {
		lang = c.GetHeader("Accept-Language")
	}
	req := service.StatisticsRequest{File: file, Lang: lang}

	if format == "pdf" {
		doc, err := h.service.Report(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Binary(c, "application/pdf", statisticsReportName, doc)
		return
	}

	bundle, cached, err := h.service.Compute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, bundle)
}
