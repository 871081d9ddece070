package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-sheets-api/internal/evaluator"
	"github.com/noah-isme/exam-sheets-api/internal/service"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/response"
)

type generateService interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*evaluator.PrintArtifact, error)
}

// GenerateHandler serves answer-sheet generation.
type GenerateHandler struct {
	service generateService
}

// NewGenerateHandler constructs the handler.
func NewGenerateHandler(service generateService) *GenerateHandler {
	return &GenerateHandler{service: service}
}

// Generate godoc
// @Summary Generate answer sheets from a quiz export and a student roster
// @Tags Generation
// @Accept multipart/form-data
// @Produce application/pdf
// @Param quiz formData file true "Moodle quiz XML export"
// @Param students formData file true "Student roster CSV (Windows-1250, ';')"
// @Param date formData string false "Exam date, YYYY-MM-DD"
// @Success 200 {file} binary
// @Failure 415 {object} response.ErrorBody
// @Failure 422 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /generate [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
	quiz, err := readUpload(c, "quiz", false)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, err := readUpload(c, "students", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.generate(c, service.GenerateRequest{Quiz: quiz, Students: students, Date: strings.TrimSpace(c.PostForm("date"))})
}

// FromXML godoc
// @Summary Generate answer sheets from a quiz export alone
// @Tags Generation
// @Accept multipart/form-data
// @Produce application/pdf
// @Param file formData file true "Moodle quiz XML export"
// @Param date formData string false "Exam date, YYYY-MM-DD"
// @Success 200 {file} binary
// @Failure 422 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /generate/from-xml [post]
func (h *GenerateHandler) FromXML(c *gin.Context) {
	quiz, err := readUpload(c, "file", false)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.generate(c, service.GenerateRequest{Quiz: quiz, Date: strings.TrimSpace(c.PostForm("date"))})
}

func (h *GenerateHandler) generate(c *gin.Context, req service.GenerateRequest) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generate service not configured"))
		return
	}
	artifact, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, artifact.ContentType, "", artifact.Body)
}
