package api

import (
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/internal/clustering"
	"github.com/rawblock/substrate-graph-sleuth/internal/investigation"
	"github.com/rawblock/substrate-graph-sleuth/internal/validate"
)

// clusterQualityHighVolumeFactor mirrors the assembler's default
// enableClustering threshold, so the reported agreement reflects the
// same heuristic graph responses actually use.
const clusterQualityHighVolumeFactor = 5.0

// clusterQualityDepth/MaxNodes bound the snapshot ClusterGraph is
// evaluated against — a quality check, not a full graph response, so
// it stays cheap regardless of how large the investigation's seed
// neighborhood has grown.
const (
	clusterQualityDepth    = 2
	clusterQualityMaxNodes = 200
)

// handleCreateInvestigation serves POST /api/investigations.
func (h *Handler) handleCreateInvestigation(c *gin.Context) {
	var req struct {
		CaseName      string                    `json:"caseName"`
		Description   string                    `json:"description"`
		SeedAddresses []string                  `json:"seedAddresses"`
		Params        investigation.SavedParams `json:"params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apierr.New(apierr.CodeInvalidParameters, "invalid request body"))
		return
	}
	for _, addr := range req.SeedAddresses {
		if _, err := validate.Address(addr); err != nil {
			h.fail(c, err)
			return
		}
	}

	inv, err := h.investigations.Create(c.Request.Context(), req.CaseName, req.Description, req.SeedAddresses, req.Params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// handleGetInvestigation serves GET /api/investigations/:id.
func (h *Handler) handleGetInvestigation(c *gin.Context) {
	inv, err := h.investigations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// handleGetTimeline serves GET /api/investigations/:id/timeline.
func (h *Handler) handleGetTimeline(c *gin.Context) {
	timeline, err := h.investigations.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": timeline})
}

// handleTagAddress serves POST /api/investigations/:id/tag.
func (h *Handler) handleTagAddress(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
		Label   string `json:"label"`
		Role    string `json:"role"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apierr.New(apierr.CodeInvalidParameters, "invalid request body"))
		return
	}
	if _, err := validate.Address(req.Address); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.investigations.TagAddress(c.Request.Context(), c.Param("id"), req.Address, req.Label, req.Role, req.Notes); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "tagged"})
}

// handleClusterQuality serves GET /api/investigations/:id/cluster-quality:
// it scores how well ClusterGraph's common-control heuristic, run over
// the investigation's first seed address, agrees with the roles the
// investigator has manually tagged so far.
func (h *Handler) handleClusterQuality(c *gin.Context) {
	inv, err := h.investigations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(inv.SeedAddresses) == 0 {
		h.fail(c, apierr.New(apierr.CodeInvalidParameters, "investigation has no seed addresses to cluster"))
		return
	}
	if len(inv.Tags) == 0 {
		c.JSON(http.StatusOK, clustering.Agreement{})
		return
	}

	result, err := h.engine.MultiHop(c.Request.Context(), inv.SeedAddresses[0], big.NewInt(0), clusterQualityDepth, clusterQualityMaxNodes)
	if err != nil {
		h.fail(c, err)
		return
	}

	tagsByAddress := make(map[string]string, len(inv.Tags))
	for _, tag := range inv.Tags {
		tagsByAddress[tag.Address] = tag.Role
	}

	clusters := clustering.ClusterGraph(result.Edges, clusterQualityHighVolumeFactor)
	c.JSON(http.StatusOK, clustering.ScoreAgainstTags(clusters, tagsByAddress))
}
