package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/substrate-graph-sleuth/internal/analysis"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/internal/assembler"
	"github.com/rawblock/substrate-graph-sleuth/internal/validate"
)

func (h *Handler) fail(c *gin.Context, err error) {
	apiErr := apierr.AsAPIError(err)
	if apiErr.Code == apierr.CodeInternalError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
	}
	c.JSON(apierr.HTTPStatus(apiErr.Code), gin.H{
		"error":   apiErr.Code,
		"message": apiErr.Message,
		"details": apiErr.Details,
	})
}

// handleGetGraph serves GET /api/graph/:address.
func (h *Handler) handleGetGraph(c *gin.Context) {
	address, err := validate.Address(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}

	depth := validate.Depth(validate.IntOrDefault(c.Query("depth"), 1))
	maxNodes := validate.MaxNodes(validate.IntOrDefault(c.Query("maxNodes"), 100))
	minVolume := validate.ParseVolume(c.DefaultQuery("minVolume", "0"), &h.log).Int

	var nodeTypes []string
	if raw := c.Query("nodeTypes"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				nodeTypes = append(nodeTypes, t)
			}
		}
	}

	req := assembler.Request{
		CallerID:          callerID(c),
		Address:           address,
		Depth:             depth,
		MaxNodes:          maxNodes,
		MinVolume:         minVolume,
		Direction:         c.DefaultQuery("direction", "both"),
		Days:              validate.IntOrDefault(c.Query("days"), 30),
		Layout:            c.Query("layout"),
		IncludeRiskScores: c.Query("includeRiskScores") == "true",
		RiskThreshold:     validate.IntOrDefault(c.Query("riskThreshold"), 0),
		NodeTypes:         nodeTypes,
		StartTime:         validate.ParseTime(c.Query("startTime")),
		EndTime:           validate.ParseTime(c.Query("endTime")),
		EnableClustering:  c.Query("enableClustering") == "true",
	}

	payload, err := h.assembler.Assemble(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// handleExpandGraph serves GET /api/graph/expand?cursor=...&limit=...
func (h *Handler) handleExpandGraph(c *gin.Context) {
	cursor := c.Query("cursor")
	if cursor == "" {
		h.fail(c, apierr.New(apierr.CodeInvalidCursor, "cursor query parameter is required"))
		return
	}
	limit := validate.Limit(validate.IntOrDefault(c.Query("limit"), 50))
	minVolume := validate.ParseVolume(c.DefaultQuery("minVolume", "0"), &h.log).Int

	result, err := h.assembler.Expand(c.Request.Context(), callerID(c), cursor, limit, minVolume)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleShortestPath serves GET /api/graph/path?from=...&to=...&mode=hops|volume
func (h *Handler) handleShortestPath(c *gin.Context) {
	from, err := validate.Address(c.Query("from"))
	if err != nil {
		h.fail(c, err)
		return
	}
	to, err := validate.Address(c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	mode := c.DefaultQuery("mode", analysis.WeightHops)
	maxDepth := validate.Depth(validate.IntOrDefault(c.Query("maxDepth"), 4))

	result, found, err := h.analyzer.ShortestPath(c.Request.Context(), from, to, mode, maxDepth)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		h.fail(c, apierr.New(apierr.CodeAddressNotFound, "no path found between the given addresses within the local snapshot"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleGraphMetrics serves GET /api/graph/metrics/:address.
func (h *Handler) handleGraphMetrics(c *gin.Context) {
	address, err := validate.Address(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	maxNodes := validate.MaxNodes(validate.IntOrDefault(c.Query("maxNodes"), 100))

	report, err := h.analyzer.Metrics(c.Request.Context(), address, maxNodes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleGraphPatterns serves GET /api/graph/patterns/:address.
func (h *Handler) handleGraphPatterns(c *gin.Context) {
	address, err := validate.Address(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	depth := validate.Depth(validate.IntOrDefault(c.Query("depth"), 3))
	timeWindow := int64(validate.IntOrDefault(c.Query("timeWindow"), analysis.DefaultRapidSequentialWindowSeconds))
	sensitivity := validate.IntOrDefault(c.Query("sensitivity"), 0)

	assessment, err := h.analyzer.Patterns(c.Request.Context(), address, depth, timeWindow, sensitivity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func callerID(c *gin.Context) string {
	if tok := c.GetHeader("Authorization"); tok != "" {
		return tok
	}
	return c.ClientIP()
}
