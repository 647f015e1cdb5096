// Package http is the HTTP and SSE surface of the assistant.
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medassist/internal/logging"
	"medassist/internal/metrics"
	"medassist/internal/server/app"
	"medassist/internal/session"
)

// RouterConfig carries the transport-level settings.
type RouterConfig struct {
	AllowedOrigins    []string
	BrowserHistoryDir string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(orchestrator *app.Orchestrator, store session.Store, cfg RouterConfig) *gin.Engine {
	h := &handler{
		orchestrator: orchestrator,
		store:        store,
		historyDir:   cfg.BrowserHistoryDir,
		logger:       logging.NewComponentLogger("HTTP"),
	}

	r := gin.New()
	r.Use(gin.Recovery())

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.POST("/chat/stream", h.streamChat)
		api.POST("/session", h.createSession)
		api.GET("/session/:id/history", h.sessionHistory)
		api.GET("/team_members", h.teamMembers)
		api.GET("/browser_history/:filename", h.browserHistory)
	}

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

type handler struct {
	orchestrator *app.Orchestrator
	store        session.Store
	historyDir   string
	logger       logging.Logger
}

func (h *handler) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
