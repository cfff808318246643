package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/salesdoc"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps an engine error onto an HTTP status.
func StatusFor(err error) int {
	switch salesdoc.Kind(err) {
	case "InvalidInput":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusForbidden
	case "NotFound":
		return http.StatusNotFound
	case "InvalidTransition", "AlreadyConverted", "AlreadyInvoiced", "AlreadyReversed", "Conflict":
		return http.StatusConflict
	case "OverpaymentRejected", "InvalidAmount", "NotConvertible":
		return http.StatusUnprocessableEntity
	case "NumberingBackendUnavailable", "Unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err. Customers get the collapsed kind and message; staff see
// the error text except for internal failures.
func fail(c *gin.Context, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{
		Error:     salesdoc.Kind(err),
		Message:   err.Error(),
		RequestID: GetRequestID(c),
	}
	if actorOf(c).IsCustomer() {
		resp.Error = salesdoc.CustomerKind(err)
		resp.Message = salesdoc.CustomerMessage(err)
	} else if status == http.StatusInternalServerError {
		resp.Message = salesdoc.CustomerMessage(err)
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:     "InvalidInput",
		Message:   msg,
		RequestID: GetRequestID(c),
	})
}
