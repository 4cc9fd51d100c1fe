package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger logs every HTTP request after it completes.
func RequestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
