package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-sheets-api/internal/service"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/response"
)

type evaluationService interface {
	Process(ctx context.Context, req service.ProcessRequest) ([]byte, error)
}

// EvaluationHandler serves scanned answer-sheet processing.
type EvaluationHandler struct {
	service evaluationService
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service evaluationService) *EvaluationHandler {
	return &EvaluationHandler{service: service}
}

// ProcessArks godoc
// @Summary Evaluate scanned answer sheets
// @Description Sends the scan to the OCR service and returns result.zip with result.csv and log.txt.
// @Tags Evaluation
// @Accept multipart/form-data
// @Produce application/zip
// @Param file formData file true "Scanned answer sheets (pdf, png, jpeg)"
// @Param questions formData integer false "Number of questions every sheet must carry"
// @Success 200 {file} binary
// @Failure 415 {object} response.ErrorBody
// @Failure 422 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /process/arks [post]
func (h *EvaluationHandler) ProcessArks(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "evaluation service not configured"))
		return
	}
	scan, err := readUpload(c, "file", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	questions, err := optionalInt(c, "questions")
	if err != nil {
		response.Error(c, err)
		return
	}
	archive, err := h.service.Process(c.Request.Context(), service.ProcessRequest{Scan: scan, ExpectedQuestions: questions})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, "application/zip", service.ResultArchiveName, archive)
}
