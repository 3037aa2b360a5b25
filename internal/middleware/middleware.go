package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

var errRequestTooLarge = &apperrors.CustomError{
	Err:     apperrors.ErrFileTooLarge,
	Message: "Request body exceeds the upload limit",
}

// multipartOverhead is added to the largest file cap for boundaries and text fields
const multipartOverhead = 1 << 20

// RequestLogger logs one line per request. The token query value is redacted.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", redactQuery(c.Request.URL.RawQuery)).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

func redactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparsable]"
	}
	if values.Has(TokenQueryParam) {
		values.Set(TokenQueryParam, "REDACTED")
	}
	return values.Encode()
}

// CORS allows the configured frontend origin with credentials
func CORS(frontendURL string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if frontendURL != "" {
		config.AllowOrigins = []string{frontendURL}
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowCredentials = frontendURL != ""
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Range"}
	config.AllowMethods = []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.ExposeHeaders = []string{"Content-Length", "Content-Range", "Content-Disposition", "Accept-Ranges", "Retry-After"}
	config.MaxAge = 12 * time.Hour
	return cors.New(config)
}

// MaxBodySize caps the request body at maxFileSize plus multipart overhead
func MaxBodySize(maxFileSize int64) gin.HandlerFunc {
	limit := maxFileSize + multipartOverhead
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			HandleAPIError(c, errRequestTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// Deadline bounds a route: the handler context gets timeout and the connection
// read/write deadlines are extended to match the server-wide ones.
func Deadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		deadline := time.Now().Add(timeout)

		rc := http.NewResponseController(c.Writer)
		// Not every writer supports deadlines, e.g. httptest recorders
		_ = rc.SetReadDeadline(deadline)
		_ = rc.SetWriteDeadline(deadline)

		ctx, cancel := context.WithDeadline(c.Request.Context(), deadline)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
