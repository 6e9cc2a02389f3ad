// Package router assembles the Gin engine for the admin API.
package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"support-mail-ingest-go/internal/handler"
)

// SetupRouter builds the engine with panic recovery and request logging,
// then mounts the API routes.
func SetupRouter(h *handler.Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return fmt.Sprintf("%s %s %s -> %d in %s (client %s) %s\n",
			p.TimeStamp.Format(time.RFC3339),
			p.Method,
			p.Path,
			p.StatusCode,
			p.Latency,
			p.ClientIP,
			p.ErrorMessage,
		)
	}))

	h.SetupRoutes(r)
	return r
}
