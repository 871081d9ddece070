package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-sheets-api/internal/service"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

// readUpload buffers one multipart file field. A missing optional field yields nil;
// a missing required one is a MissingField error. An empty upload counts as missing.
func readUpload(c *gin.Context, field string, required bool) (*service.Upload, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, http.ErrMissingFile):
			if required {
				return nil, appErrors.MissingField(field, fmt.Sprintf("%s file is required", field))
			}
			return nil, nil
		case errors.Is(err, http.ErrNotMultipart):
			return nil, appErrors.Clone(appErrors.ErrValidation, "request must be multipart/form-data")
		default:
			return nil, appErrors.MalformedInput("invalid multipart form", err)
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file")
	}
	if len(data) == 0 {
		if required {
			return nil, appErrors.MissingField(field, fmt.Sprintf("%s file is empty", field))
		}
		return nil, nil
	}
	return &service.Upload{
		Field:    field,
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// optionalInt reads a non-negative integer form field; empty means zero.
func optionalInt(c *gin.Context, field string) (int, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		e := appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a non-negative integer", field))
		e.Data = map[string]string{"field": field, "value": raw}
		return 0, e
	}
	return n, nil
}
