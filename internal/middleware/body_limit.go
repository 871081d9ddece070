package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for boundaries and the small text fields sent with a file.
const multipartOverhead = 1 << 20

// BodyLimit caps the request body at maxFileBytes plus multipart overhead. Larger bodies
// fail while the handler reads the form.
func BodyLimit(maxFileBytes int64) gin.HandlerFunc {
	limit := maxFileBytes + multipartOverhead
	return func(c *gin.Context) {
		if maxFileBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
