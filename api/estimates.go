package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
)

// CreateEstimate handles POST /estimates.
func (h *Handler) CreateEstimate(c *gin.Context) {
	var in salesdoc.EstimateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	est, err := h.engine.CreateEstimate(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, est)
}

// ListEstimates handles GET /estimates.
func (h *Handler) ListEstimates(c *gin.Context) {
	limit, offset, ok := page(c)
	if !ok {
		return
	}

	out, err := h.engine.ListEstimates(c.Request.Context(), actorOf(c), estimate.ListOpts{
		ContactID: c.Query("contact_id"),
		Status:    estimate.Status(c.Query("status")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(out))
}

// GetEstimate handles GET /estimates/:id.
func (h *Handler) GetEstimate(c *gin.Context) {
	estID, ok := pathID(c, id.ParseEstimateID)
	if !ok {
		return
	}
	h.respondEstimate(c, func() (*estimate.Estimate, error) {
		return h.engine.GetEstimate(c.Request.Context(), actorOf(c), estID)
	})
}

// UpdateEstimate handles PATCH /estimates/:id. The body replaces the
// editable content of the draft.
func (h *Handler) UpdateEstimate(c *gin.Context) {
	estID, ok := pathID(c, id.ParseEstimateID)
	if !ok {
		return
	}
	var in salesdoc.EstimateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.respondEstimate(c, func() (*estimate.Estimate, error) {
		return h.engine.UpdateEstimate(c.Request.Context(), actorOf(c), estID, in)
	})
}

// SendEstimate handles POST /estimates/:id/send.
func (h *Handler) SendEstimate(c *gin.Context) {
	estID, ok := pathID(c, id.ParseEstimateID)
	if !ok {
		return
	}
	h.respondEstimate(c, func() (*estimate.Estimate, error) {
		return h.engine.SendEstimate(c.Request.Context(), actorOf(c), estID)
	})
}

// ViewEstimate handles POST /estimates/:id/view.
func (h *Handler) ViewEstimate(c *gin.Context) {
	estID, ok := pathID(c, id.ParseEstimateID)
	if !ok {
		return
	}
	h.respondEstimate(c, func() (*estimate.Estimate, error) {
		return h.engine.MarkEstimateViewed(c.Request.Context(), actorOf(c), estID)
	})
}

// ApproveEstimate handles POST /estimates/:id/approve.
func (h *Handler) ApproveEstimate(c *gin.Context) {
	estID, ok := pathID(c, id.ParseEstimateID)
	if !ok {
		return
	}
	h.respondEstimate(c, func() (*estimate.Estimate, error) {
		return h.engine.ApproveEstimate(c.Request.Context(), actorOf(c), estID)
	})
}

// RejectEstimate handles POST /estimates/:id/reject.
func (h *Handler) RejectEstimate(c *gin.Context) {
	estID, ok := pathID(c, id.ParseEstimateID)
	if !ok {
		return
	}
	var req reasonRequest
	if !bind(c, &req) {
		return
	}
	h.respondEstimate(c, func() (*estimate.Estimate, error) {
		return h.engine.RejectEstimate(c.Request.Context(), actorOf(c), estID, req.Reason)
	})
}

// ConvertEstimate handles POST /estimates/:id/convert.
func (h *Handler) ConvertEstimate(c *gin.Context) {
	estID, ok := pathID(c, id.ParseEstimateID)
	if !ok {
		return
	}
	var opts salesdoc.ContractOptions
	if !bind(c, &opts) {
		return
	}

	ctr, err := h.engine.ConvertEstimateToContract(c.Request.Context(), actorOf(c), estID, opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ctr)
}

func (h *Handler) respondEstimate(c *gin.Context, fn func() (*estimate.Estimate, error)) {
	est, err := fn()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}
