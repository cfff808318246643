package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/id"
)

// signRequest is the body of POST /contracts/:id/sign.
type signRequest struct {
	Party     contract.Party `json:"party"`
	Signature string         `json:"signature"`
}

// CreateContract handles POST /contracts.
func (h *Handler) CreateContract(c *gin.Context) {
	var in salesdoc.ContractInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctr, err := h.engine.CreateContract(c.Request.Context(), actorOf(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ctr)
}

// ListContracts handles GET /contracts.
func (h *Handler) ListContracts(c *gin.Context) {
	limit, offset, ok := page(c)
	if !ok {
		return
	}
	opts := contract.ListOpts{
		ContactID: c.Query("contact_id"),
		Status:    contract.Status(c.Query("status")),
		Limit:     limit,
		Offset:    offset,
	}
	if raw := c.Query("estimate_id"); raw != "" {
		estID, err := id.ParseEstimateID(raw)
		if err != nil {
			badRequest(c, "estimate_id: "+err.Error())
			return
		}
		opts.EstimateID = estID
	}

	out, err := h.engine.ListContracts(c.Request.Context(), actorOf(c), opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(out))
}

// GetContract handles GET /contracts/:id.
func (h *Handler) GetContract(c *gin.Context) {
	ctrID, ok := pathID(c, id.ParseContractID)
	if !ok {
		return
	}
	h.respondContract(c, func() (*contract.Contract, error) {
		return h.engine.GetContract(c.Request.Context(), actorOf(c), ctrID)
	})
}

// UpdateContract handles PATCH /contracts/:id.
func (h *Handler) UpdateContract(c *gin.Context) {
	ctrID, ok := pathID(c, id.ParseContractID)
	if !ok {
		return
	}
	var in salesdoc.ContractInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.respondContract(c, func() (*contract.Contract, error) {
		return h.engine.UpdateContract(c.Request.Context(), actorOf(c), ctrID, in)
	})
}

// SendContract handles POST /contracts/:id/send.
func (h *Handler) SendContract(c *gin.Context) {
	ctrID, ok := pathID(c, id.ParseContractID)
	if !ok {
		return
	}
	h.respondContract(c, func() (*contract.Contract, error) {
		return h.engine.SendContract(c.Request.Context(), actorOf(c), ctrID)
	})
}

// ViewContract handles POST /contracts/:id/view.
func (h *Handler) ViewContract(c *gin.Context) {
	ctrID, ok := pathID(c, id.ParseContractID)
	if !ok {
		return
	}
	h.respondContract(c, func() (*contract.Contract, error) {
		return h.engine.MarkContractViewed(c.Request.Context(), actorOf(c), ctrID)
	})
}

// SignContract handles POST /contracts/:id/sign.
func (h *Handler) SignContract(c *gin.Context) {
	ctrID, ok := pathID(c, id.ParseContractID)
	if !ok {
		return
	}
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.respondContract(c, func() (*contract.Contract, error) {
		return h.engine.SignContract(c.Request.Context(), actorOf(c), ctrID, req.Party, req.Signature)
	})
}

// InvoiceContract handles POST /contracts/:id/invoice.
func (h *Handler) InvoiceContract(c *gin.Context) {
	ctrID, ok := pathID(c, id.ParseContractID)
	if !ok {
		return
	}
	var opts salesdoc.InvoiceOptions
	if !bind(c, &opts) {
		return
	}

	inv, err := h.engine.ConvertContractToInvoice(c.Request.Context(), actorOf(c), ctrID, opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// InvoiceInstallment handles POST /contracts/:id/installments/:index/invoice.
func (h *Handler) InvoiceInstallment(c *gin.Context) {
	ctrID, ok := pathID(c, id.ParseContractID)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index must be an integer")
		return
	}
	var opts salesdoc.InvoiceOptions
	if !bind(c, &opts) {
		return
	}

	inv, err := h.engine.InvoiceInstallment(c.Request.Context(), actorOf(c), ctrID, index, opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) respondContract(c *gin.Context, fn func() (*contract.Contract, error)) {
	ctr, err := fn()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ctr)
}
