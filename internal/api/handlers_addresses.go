package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/internal/validate"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// handleSearchAddresses serves GET /api/addresses/search?q=...
func (h *Handler) handleSearchAddresses(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		h.fail(c, apierr.New(apierr.CodeInvalidParameters, "q query parameter is required"))
		return
	}
	limit := validate.Limit(validate.IntOrDefault(c.Query("limit"), 20))

	accounts, err := h.store.SearchAccounts(c.Request.Context(), q, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": accounts})
}

// handleGetAddress serves GET /api/addresses/:address.
func (h *Handler) handleGetAddress(c *gin.Context) {
	address, err := validate.Address(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}

	acct, err := h.store.GetAccount(c.Request.Context(), address)
	if err != nil {
		if err == store.ErrNotFound {
			h.fail(c, apierr.New(apierr.CodeAddressNotFound, "address not found"))
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

// handleGetTransfers serves GET /api/addresses/:address/transfers.
func (h *Handler) handleGetTransfers(c *gin.Context) {
	address, err := validate.Address(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	direction := c.DefaultQuery("direction", "both")
	limit := validate.Limit(validate.IntOrDefault(c.Query("limit"), 50))
	offset := validate.Offset(validate.IntOrDefault(c.Query("offset"), 0))

	transfers, err := h.store.TransfersForAddress(c.Request.Context(), address, direction, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": annotateTransfers(transfers, address)})
}

// transferView annotates a stored transfer with the direction and
// counterparty relative to the address the caller queried (spec.md §6).
type transferView struct {
	models.Transfer
	Direction    string `json:"direction"`
	Counterparty string `json:"counterparty"`
}

func annotateTransfers(transfers []models.Transfer, address string) []transferView {
	out := make([]transferView, 0, len(transfers))
	for _, t := range transfers {
		view := transferView{Transfer: t}
		if t.FromAddress == address {
			view.Direction = "sent"
			view.Counterparty = t.ToAddress
		} else {
			view.Direction = "received"
			view.Counterparty = t.FromAddress
		}
		out = append(out, view)
	}
	return out
}

// handleGetRelationships serves GET /api/addresses/:address/relationships:
// the direct-neighbor aggregation also used as the depth-1 graph view,
// returned here as a flat list rather than a node/edge graph payload.
func (h *Handler) handleGetRelationships(c *gin.Context) {
	address, err := validate.Address(c.Param("address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	limit := validate.Limit(validate.IntOrDefault(c.Query("limit"), 50))
	minVolume := validate.ParseVolume(c.DefaultQuery("minVolume", "0"), &h.log).Int

	result, err := h.engine.Direct(c.Request.Context(), address, minVolume, limit+1)
	if err != nil {
		h.fail(c, err)
		return
	}

	type relationship struct {
		Counterparty  string `json:"counterparty"`
		Volume        string `json:"volume"`
		TransferCount int64  `json:"transferCount"`
		Bidirectional bool   `json:"bidirectional"`
	}
	anonymize := c.Query("anonymize") == "true"
	out := make([]relationship, 0, len(result.Edges))
	for _, e := range result.Edges {
		counterparty := e.To
		if counterparty == address {
			counterparty = e.From
		}
		if anonymize {
			counterparty = h.anonymizer.Pseudonym(counterparty)
		}
		out = append(out, relationship{
			Counterparty:  counterparty,
			Volume:        e.Volume.String(),
			TransferCount: e.Count,
			Bidirectional: e.Bidirectional,
		})
	}
	c.JSON(http.StatusOK, gin.H{"relationships": out, "hasMore": result.HasMore})
}
