package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ChristianSeip/SimpleChat-Server/internal/chat"
	"github.com/ChristianSeip/SimpleChat-Server/internal/config"
)

// NewServer builds the HTTP server hosting the health probe and the
// WebSocket endpoint.
//
// The /ws route is mounted on the outer mux rather than on gin: the
// websocket accept hijacks the connection after writing the 101, which
// gin's ResponseWriter refuses once a status has gone out.
func NewServer(router *chat.Router, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(RequestLogger(logger), gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(router, logger))
	mux.Handle("/", engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
