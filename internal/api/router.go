// Package api wires every subsystem — graph assembly, pattern
// analysis, investigations, streaming, and security — into the gin
// route groups spec.md §6 names: a public group, an IP-rate-limited
// group, a bearer-authenticated group, and a rate-limited +
// token-authenticated group for the websocket stream endpoint.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rawblock/substrate-graph-sleuth/internal/analysis"
	"github.com/rawblock/substrate-graph-sleuth/internal/assembler"
	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/internal/investigation"
	"github.com/rawblock/substrate-graph-sleuth/internal/ratelimit"
	"github.com/rawblock/substrate-graph-sleuth/internal/security"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/internal/stream"
	"github.com/rs/zerolog"
)

// Handler bundles the collaborators every route needs.
type Handler struct {
	store          *store.Store
	engine         *graphquery.Engine
	assembler      *assembler.Assembler
	analyzer       *analysis.Analyzer
	investigations *investigation.Manager
	streams        *stream.Manager
	anonymizer     *security.Anonymizer
	log            zerolog.Logger
}

// Router builds the full gin.Engine for the service.
func Router(
	s *store.Store,
	engine *graphquery.Engine,
	asm *assembler.Assembler,
	az *analysis.Analyzer,
	inv *investigation.Manager,
	sm *stream.Manager,
	anon *security.Anonymizer,
	authToken string,
	allowedOrigins []string,
	httpLimiter *ratelimit.HTTPLimiter,
	log zerolog.Logger,
) *gin.Engine {
	h := &Handler{store: s, engine: engine, assembler: asm, analyzer: az, investigations: inv, streams: sm, anonymizer: anon, log: log}

	r := gin.New()
	r.Use(security.Recovery(log))
	r.Use(security.SecurityHeaders())
	r.Use(security.CORS(allowedOrigins))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pub := r.Group("/api")
	{
		pub.GET("/health", h.handleHealth)
	}

	streaming := r.Group("/api")
	streaming.Use(httpLimiter.Middleware())
	streaming.Use(security.AuthMiddlewareWS(authToken, log))
	{
		streaming.GET("/stream", h.handleStream)
	}

	limited := r.Group("/api")
	limited.Use(httpLimiter.Middleware())
	{
		limited.GET("/addresses/search", h.handleSearchAddresses)
		limited.GET("/addresses/:address", h.handleGetAddress)
		limited.GET("/addresses/:address/transfers", h.handleGetTransfers)
		limited.GET("/addresses/:address/relationships", h.handleGetRelationships)
	}

	auth := r.Group("/api")
	auth.Use(httpLimiter.Middleware())
	auth.Use(security.AuthMiddleware(authToken, log))
	{
		auth.GET("/graph/:address", h.handleGetGraph)
		auth.GET("/graph/expand", h.handleExpandGraph)
		auth.GET("/graph/path", h.handleShortestPath)
		auth.GET("/graph/metrics/:address", h.handleGraphMetrics)
		auth.GET("/graph/patterns/:address", h.handleGraphPatterns)

		auth.POST("/investigations", h.handleCreateInvestigation)
		auth.GET("/investigations/:id", h.handleGetInvestigation)
		auth.GET("/investigations/:id/timeline", h.handleGetTimeline)
		auth.POST("/investigations/:id/tag", h.handleTagAddress)
		auth.GET("/investigations/:id/cluster-quality", h.handleClusterQuality)
	}

	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
