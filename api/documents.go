package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/salesdoc/id"
)

// GetPayment handles GET /payments/:id.
func (h *Handler) GetPayment(c *gin.Context) {
	payID, ok := pathID(c, id.ParsePaymentID)
	if !ok {
		return
	}

	p, err := h.engine.GetPayment(c.Request.Context(), actorOf(c), payID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ReversePayment handles POST /payments/:id/reverse.
func (h *Handler) ReversePayment(c *gin.Context) {
	payID, ok := pathID(c, id.ParsePaymentID)
	if !ok {
		return
	}
	var req reasonRequest
	if !bind(c, &req) {
		return
	}

	inv, p, err := h.engine.ReversePayment(c.Request.Context(), actorOf(c), payID, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, paymentResponse{Invoice: inv, Payment: p})
}

// CancelDocument handles POST /documents/:id/cancel for any document kind.
func (h *Handler) CancelDocument(c *gin.Context) {
	docID, ok := pathID(c, id.ParseDocumentID)
	if !ok {
		return
	}
	var req reasonRequest
	if !bind(c, &req) {
		return
	}

	doc, err := h.engine.CancelDocument(c.Request.Context(), actorOf(c), docID, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DocumentHistory handles GET /documents/:id/history.
func (h *Handler) DocumentHistory(c *gin.Context) {
	docID, ok := pathID(c, id.ParseDocumentID)
	if !ok {
		return
	}

	entries, err := h.engine.DocumentHistory(c.Request.Context(), actorOf(c), docID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(entries))
}

// OverdueReport handles GET /reports/overdue. as_of defaults to now.
func (h *Handler) OverdueReport(c *gin.Context) {
	asOf, ok := queryTime(c, "as_of")
	if !ok {
		return
	}
	var at time.Time
	if asOf != nil {
		at = *asOf
	}

	out, err := h.engine.ListOverdueInvoices(c.Request.Context(), actorOf(c), at)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(out))
}
