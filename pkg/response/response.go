package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

// ErrorPrefix starts every errorMsg so clients can recognise handled failures.
const ErrorPrefix = "Caught an error: "

// ErrorBody is the failure contract shared by every endpoint.
type ErrorBody struct {
	ErrorMsg  string      `json:"errorMsg"`
	ErrorData interface{} `json:"errorData"`
}

// JSON sends a success response without caching.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// OK sends {"status":"ok"}.
func OK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Binary streams a generated document. A non-empty filename makes it a download.
func Binary(c *gin.Context, contentType, filename string, body []byte) {
	c.Header("Cache-Control", "no-store")
	if filename != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	c.Data(http.StatusOK, contentType, body)
}

// Error converts err into the failure contract using its status, 500 when untyped.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Status, ErrorBody{
		ErrorMsg:  ErrorPrefix + appErr.Message,
		ErrorData: appErr.Data,
	})
}
