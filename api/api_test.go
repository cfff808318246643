package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/api"
	"github.com/xraph/salesdoc/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type client struct {
	t      *testing.T
	router http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()

	clock := func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) }
	e := salesdoc.New(memory.New(), salesdoc.WithClock(clock))
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })

	return &client{t: t, router: api.NewRouter(e)}
}

// do sends a request as actor and decodes the response into out when
// given.
func (c *client) do(method, path string, actor salesdoc.Actor, body any, out any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor.ID != "" {
		req.Header.Set(api.HeaderActorID, actor.ID)
		req.Header.Set(api.HeaderActorRole, string(actor.Role))
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

var (
	staff    = salesdoc.Staff("staff_1")
	customer = salesdoc.Customer("contact_1")
	stranger = salesdoc.Customer("contact_2")
)

type doc struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	Total      string `json:"total"`
	AmountDue  string `json:"amount_due"`
	AmountPaid string `json:"amount_paid"`
}

func estimateBody() map[string]any {
	return map[string]any{
		"contact_id": customer.ID,
		"title":      "Oak flooring, living room",
		"line_items": []map[string]any{
			{"description": "Oak plank, installed", "quantity": "212.5", "unit": "sqft", "unit_price": "3.49"},
		},
		"tax":                  "59.33",
		"terms_and_conditions": "Net 30",
	}
}

func TestEstimateToPaidInvoice(t *testing.T) {
	c := newClient(t)

	var est doc
	w := c.do(http.MethodPost, "/estimates", staff, estimateBody(), &est)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "EST-2024-0001", est.Number)
	assert.Equal(t, "800.96", est.Total)
	assert.NotEmpty(t, w.Header().Get(api.HeaderRequestID))

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/estimates/"+est.ID+"/send", staff, nil, nil).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/estimates/"+est.ID+"/view", customer, nil, &est).Code)
	assert.Equal(t, "viewed", est.Status)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/estimates/"+est.ID+"/approve", customer, nil, nil).Code)

	var ctr doc
	w = c.do(http.MethodPost, "/estimates/"+est.ID+"/convert", staff, map[string]any{"payment_terms": "Net 30"}, &ctr)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "CTR-2024-0001", ctr.Number)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/contracts/"+ctr.ID+"/send", staff, nil, nil).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/contracts/"+ctr.ID+"/sign", customer,
		map[string]any{"party": "customer", "signature": "J. Customer"}, nil).Code)
	w = c.do(http.MethodPost, "/contracts/"+ctr.ID+"/sign", staff,
		map[string]any{"party": "company", "signature": "A. Contractor"}, &ctr)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "signed", ctr.Status)

	var inv doc
	w = c.do(http.MethodPost, "/contracts/"+ctr.ID+"/invoice", staff, nil, &inv)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "INV-2024-0001", inv.Number)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/invoices/"+inv.ID+"/send", staff, nil, nil).Code)

	var paid struct {
		Invoice doc `json:"invoice"`
		Payment struct {
			ID     string `json:"id"`
			Amount string `json:"amount"`
		} `json:"payment"`
	}
	w = c.do(http.MethodPost, "/invoices/"+inv.ID+"/payments", customer, map[string]any{"amount": "800.96", "method": "card"}, &paid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "paid", paid.Invoice.Status)
	assert.Equal(t, "0.00", paid.Invoice.AmountDue)
	assert.Equal(t, "800.96", paid.Payment.Amount)

	var payments struct {
		Data []map[string]any `json:"data"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/invoices/"+inv.ID+"/payments", customer, nil, &payments).Code)
	assert.Len(t, payments.Data, 1)

	var history struct {
		Data []struct {
			Operation string `json:"operation"`
		} `json:"data"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/documents/"+est.ID+"/history", staff, nil, &history).Code)
	require.NotEmpty(t, history.Data)
	assert.Equal(t, "convert", history.Data[len(history.Data)-1].Operation)
}

func TestErrorMapping(t *testing.T) {
	c := newClient(t)

	var est doc
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/estimates", staff, estimateBody(), &est).Code)

	tests := []struct {
		name   string
		method string
		path   string
		actor  salesdoc.Actor
		body   any
		status int
		kind   string
	}{
		{"no actor", http.MethodGet, "/estimates/" + est.ID, salesdoc.Actor{}, nil, http.StatusForbidden, "Unauthorized"},
		{"wrong role", http.MethodPost, "/estimates", customer, estimateBody(), http.StatusForbidden, "Unauthorized"},
		{"other customer", http.MethodGet, "/estimates/" + est.ID, stranger, nil, http.StatusNotFound, "NotFound"},
		{"malformed id", http.MethodGet, "/estimates/nope", staff, nil, http.StatusNotFound, "NotFound"},
		{"wrong prefix", http.MethodGet, "/invoices/" + est.ID, staff, nil, http.StatusNotFound, "NotFound"},
		{"validation", http.MethodPost, "/estimates", staff, map[string]any{"title": "x"}, http.StatusBadRequest, "InvalidInput"},
		{"bad json", http.MethodPost, "/estimates", staff, "not an object", http.StatusBadRequest, "InvalidInput"},
		{"bad paging", http.MethodGet, "/estimates?limit=-1", staff, nil, http.StatusBadRequest, "InvalidInput"},
		{"illegal transition", http.MethodPost, "/estimates/" + est.ID + "/approve", customer, nil, http.StatusConflict, salesdoc.StaleKind},
		{"not convertible", http.MethodPost, "/estimates/" + est.ID + "/convert", staff, nil, http.StatusUnprocessableEntity, "NotConvertible"},
		{"customer overdue report", http.MethodGet, "/reports/overdue", customer, nil, http.StatusForbidden, "Unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp api.ErrorResponse
			w := c.do(tt.method, tt.path, tt.actor, tt.body, &resp)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, resp.Error)
		})
	}
}

func TestCustomerSeesCollapsedMessages(t *testing.T) {
	c := newClient(t)

	var est doc
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/estimates", staff, estimateBody(), &est).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/estimates/"+est.ID+"/send", staff, nil, nil).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/estimates/"+est.ID+"/reject", customer, map[string]any{"reason": "too much"}, nil).Code)

	var resp api.ErrorResponse
	w := c.do(http.MethodPost, "/estimates/"+est.ID+"/approve", customer, nil, &resp)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, salesdoc.StaleKind, resp.Error)
	assert.Equal(t, salesdoc.StaleDocumentMessage, resp.Message)

	resp = api.ErrorResponse{}
	w = c.do(http.MethodPost, "/documents/"+est.ID+"/cancel", staff, nil, &resp)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InvalidTransition", resp.Error)
	assert.NotEqual(t, salesdoc.StaleDocumentMessage, resp.Message, "staff see the underlying error")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{salesdoc.ErrAlreadyExists, http.StatusConflict},
		{salesdoc.ErrVersionConflict, http.StatusConflict},
		{salesdoc.ErrStoreClosed, http.StatusServiceUnavailable},
		{salesdoc.ErrNumberingBackendUnavailable, http.StatusServiceUnavailable},
		{salesdoc.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, api.StatusFor(fmt.Errorf("op: %w", tt.err)), tt.err.Error())
	}
}

func TestOverpaymentAndReversal(t *testing.T) {
	c := newClient(t)

	var inv doc
	w := c.do(http.MethodPost, "/invoices", staff, map[string]any{
		"contact_id": customer.ID,
		"title":      "Repair visit",
		"line_items": []map[string]any{{"description": "Board replacement", "quantity": "1", "unit_price": "500.00"}},
		"due_date":   "2024-03-01T00:00:00Z",
	}, &inv)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/invoices/"+inv.ID+"/send", staff, nil, nil).Code)

	var overdue struct {
		Data []doc `json:"data"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/reports/overdue", staff, nil, &overdue).Code)
	require.Len(t, overdue.Data, 1)
	assert.Equal(t, "500.00", overdue.Data[0].AmountDue)

	var resp api.ErrorResponse
	w = c.do(http.MethodPost, "/invoices/"+inv.ID+"/payments", staff, map[string]any{"amount": "600.00", "method": "check"}, &resp)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "OverpaymentRejected", resp.Error)

	var paid struct {
		Payment struct {
			ID string `json:"id"`
		} `json:"payment"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/invoices/"+inv.ID+"/payments", staff, map[string]any{"amount": "200.00", "method": "check"}, &paid).Code)

	var reversed struct {
		Invoice doc `json:"invoice"`
	}
	w = c.do(http.MethodPost, "/payments/"+paid.Payment.ID+"/reverse", staff, map[string]any{"reason": "bounced"}, &reversed)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "sent", reversed.Invoice.Status)
	assert.Equal(t, "500.00", reversed.Invoice.AmountDue)

	w = c.do(http.MethodPost, "/payments/"+paid.Payment.ID+"/reverse", staff, nil, &resp)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AlreadyReversed", resp.Error)
}

func TestPaymentAmountOutOfRange(t *testing.T) {
	c := newClient(t)

	var inv doc
	w := c.do(http.MethodPost, "/invoices", staff, map[string]any{
		"contact_id": customer.ID,
		"title":      "Repair visit",
		"line_items": []map[string]any{{"description": "Board replacement", "quantity": "1", "unit_price": "500.00"}},
	}, &inv)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/invoices/"+inv.ID+"/send", staff, nil, nil).Code)

	var resp api.ErrorResponse
	w = c.do(http.MethodPost, "/invoices/"+inv.ID+"/payments", staff, map[string]any{"amount": "184467440737095516.17", "method": "card"}, &resp)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "InvalidInput", resp.Error)

	var after doc
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/invoices/"+inv.ID, staff, nil, &after).Code)
	assert.Equal(t, "500.00", after.AmountDue)
	assert.Equal(t, "0.00", after.AmountPaid)
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	var body map[string]string
	w := c.do(http.MethodGet, "/healthz", salesdoc.Actor{}, nil, &body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}
