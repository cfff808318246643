package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/payment"
)

// paymentResponse is returned by payment and reversal calls.
type paymentResponse struct {
	Invoice *invoice.Invoice `json:"invoice"`
	Payment *payment.Payment `json:"payment,omitempty"`
}

// CreateInvoice handles POST /invoices.
func (h *Handler) CreateInvoice(c *gin.Context) {
	var in salesdoc.InvoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	inv, err := h.engine.CreateInvoice(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// ListInvoices handles GET /invoices.
func (h *Handler) ListInvoices(c *gin.Context) {
	limit, offset, ok := page(c)
	if !ok {
		return
	}
	dueBefore, ok := queryTime(c, "due_before")
	if !ok {
		return
	}
	opts := invoice.ListOpts{
		ContactID: c.Query("contact_id"),
		Status:    invoice.Status(c.Query("status")),
		DueBefore: dueBefore,
		Limit:     limit,
		Offset:    offset,
	}
	if raw := c.Query("contract_id"); raw != "" {
		ctrID, err := id.ParseContractID(raw)
		if err != nil {
			badRequest(c, "contract_id: "+err.Error())
			return
		}
		opts.ContractID = ctrID
	}

	out, err := h.engine.ListInvoices(c.Request.Context(), actorOf(c), opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(out))
}

// GetInvoice handles GET /invoices/:id.
func (h *Handler) GetInvoice(c *gin.Context) {
	invID, ok := pathID(c, id.ParseInvoiceID)
	if !ok {
		return
	}
	h.respondInvoice(c, func() (*invoice.Invoice, error) {
		return h.engine.GetInvoice(c.Request.Context(), actorOf(c), invID)
	})
}

// UpdateInvoice handles PATCH /invoices/:id.
func (h *Handler) UpdateInvoice(c *gin.Context) {
	invID, ok := pathID(c, id.ParseInvoiceID)
	if !ok {
		return
	}
	var in salesdoc.InvoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.respondInvoice(c, func() (*invoice.Invoice, error) {
		return h.engine.UpdateInvoice(c.Request.Context(), actorOf(c), invID, in)
	})
}

// SendInvoice handles POST /invoices/:id/send.
func (h *Handler) SendInvoice(c *gin.Context) {
	invID, ok := pathID(c, id.ParseInvoiceID)
	if !ok {
		return
	}
	h.respondInvoice(c, func() (*invoice.Invoice, error) {
		return h.engine.SendInvoice(c.Request.Context(), actorOf(c), invID)
	})
}

// ViewInvoice handles POST /invoices/:id/view.
func (h *Handler) ViewInvoice(c *gin.Context) {
	invID, ok := pathID(c, id.ParseInvoiceID)
	if !ok {
		return
	}
	h.respondInvoice(c, func() (*invoice.Invoice, error) {
		return h.engine.MarkInvoiceViewed(c.Request.Context(), actorOf(c), invID)
	})
}

// RecordPayment handles POST /invoices/:id/payments.
func (h *Handler) RecordPayment(c *gin.Context) {
	invID, ok := pathID(c, id.ParseInvoiceID)
	if !ok {
		return
	}
	var in salesdoc.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	inv, p, err := h.engine.RecordPayment(c.Request.Context(), actorOf(c), invID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, paymentResponse{Invoice: inv, Payment: p})
}

// ListPayments handles GET /invoices/:id/payments.
func (h *Handler) ListPayments(c *gin.Context) {
	invID, ok := pathID(c, id.ParseInvoiceID)
	if !ok {
		return
	}

	out, err := h.engine.ListPayments(c.Request.Context(), actorOf(c), invID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(out))
}

func (h *Handler) respondInvoice(c *gin.Context, fn func() (*invoice.Invoice, error)) {
	inv, err := fn()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
