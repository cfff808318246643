// Package api exposes the lifecycle engine over HTTP with gin.
//
// The caller is identified by the trusted gateway headers X-Actor-ID and
// X-Actor-Role; authentication itself happens upstream.
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/id"
)

// Handler serves the engine's operations.
type Handler struct {
	engine *salesdoc.Engine
	logger *slog.Logger
}

// NewHandler creates a Handler for engine.
func NewHandler(engine *salesdoc.Engine) *Handler {
	return &Handler{engine: engine, logger: engine.Logger()}
}

// NewRouter builds a gin engine with the standard middleware and all
// routes mounted at the root.
func NewRouter(engine *salesdoc.Engine) *gin.Engine {
	h := NewHandler(engine)

	r := gin.New()
	r.Use(RequestID(), Recovery(h.logger), RequestLogger(h.logger))
	r.GET("/healthz", h.Health)

	h.Routes(r.Group("/", Authenticate()))
	return r
}

// Routes registers the document routes on r.
func (h *Handler) Routes(r gin.IRoutes) {
	r.POST("/estimates", h.CreateEstimate)
	r.GET("/estimates", h.ListEstimates)
	r.GET("/estimates/:id", h.GetEstimate)
	r.PATCH("/estimates/:id", h.UpdateEstimate)
	r.POST("/estimates/:id/send", h.SendEstimate)
	r.POST("/estimates/:id/view", h.ViewEstimate)
	r.POST("/estimates/:id/approve", h.ApproveEstimate)
	r.POST("/estimates/:id/reject", h.RejectEstimate)
	r.POST("/estimates/:id/convert", h.ConvertEstimate)

	r.POST("/contracts", h.CreateContract)
	r.GET("/contracts", h.ListContracts)
	r.GET("/contracts/:id", h.GetContract)
	r.PATCH("/contracts/:id", h.UpdateContract)
	r.POST("/contracts/:id/send", h.SendContract)
	r.POST("/contracts/:id/view", h.ViewContract)
	r.POST("/contracts/:id/sign", h.SignContract)
	r.POST("/contracts/:id/invoice", h.InvoiceContract)
	r.POST("/contracts/:id/installments/:index/invoice", h.InvoiceInstallment)

	r.POST("/invoices", h.CreateInvoice)
	r.GET("/invoices", h.ListInvoices)
	r.GET("/invoices/:id", h.GetInvoice)
	r.PATCH("/invoices/:id", h.UpdateInvoice)
	r.POST("/invoices/:id/send", h.SendInvoice)
	r.POST("/invoices/:id/view", h.ViewInvoice)
	r.POST("/invoices/:id/payments", h.RecordPayment)
	r.GET("/invoices/:id/payments", h.ListPayments)

	r.GET("/payments/:id", h.GetPayment)
	r.POST("/payments/:id/reverse", h.ReversePayment)
	r.POST("/documents/:id/cancel", h.CancelDocument)
	r.GET("/documents/:id/history", h.DocumentHistory)
	r.GET("/reports/overdue", h.OverdueReport)
}

// Health reports store connectivity.
func (h *Handler) Health(c *gin.Context) {
	if err := h.engine.Store().Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// reasonRequest is the body of reject, cancel and reverse.
type reasonRequest struct {
	Reason string `json:"reason"`
}

// listResponse wraps collection responses.
type listResponse[T any] struct {
	Data []T `json:"data"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Data: items}
}

// pathID parses the :id parameter. Malformed ids are reported as not
// found so callers cannot probe for id formats.
func pathID(c *gin.Context, parse func(string) (id.ID, error)) (id.ID, bool) {
	parsed, err := parse(c.Param("id"))
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", salesdoc.ErrNotFound, err))
		return id.Nil, false
	}
	return parsed, true
}

// bind decodes an optional JSON body into v. An empty body leaves v as is.
func bind(c *gin.Context, v any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// page reads limit and offset.
func page(c *gin.Context) (limit, offset int, ok bool) {
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &limit}, {"offset", &offset}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, p.name+" must be a non-negative integer")
			return 0, 0, false
		}
		*p.dst = n
	}
	return limit, offset, true
}

// queryTime parses an RFC 3339 timestamp or a YYYY-MM-DD date.
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	badRequest(c, name+" must be an RFC 3339 timestamp or a date")
	return nil, false
}
