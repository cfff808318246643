package salesdoc_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/salesdoc"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err         error
		kind        string
		recoverable bool
		message     string
	}{
		{salesdoc.ErrInvalidTransition, "InvalidTransition", true, salesdoc.StaleDocumentMessage},
		{salesdoc.ErrAlreadyConverted, "AlreadyConverted", true, salesdoc.StaleDocumentMessage},
		{salesdoc.ErrVersionConflict, "Conflict", true, salesdoc.StaleDocumentMessage},
		{salesdoc.ErrOverpaymentRejected, "OverpaymentRejected", true, "the payment is larger than the amount due"},
		{salesdoc.ErrUnauthorized, "Unauthorized", false, "document not found"},
		{salesdoc.ErrNotFound, "NotFound", false, "document not found"},
		{salesdoc.ErrNumberingBackendUnavailable, "NumberingBackendUnavailable", false, "something went wrong, please try again later"},
		{salesdoc.ErrAlreadyExists, "Conflict", false, salesdoc.StaleDocumentMessage},
		{salesdoc.ErrStoreClosed, "Unavailable", false, "something went wrong, please try again later"},
		{errors.New("disk full"), "Internal", false, "something went wrong, please try again later"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("op: %w", tt.err)
			assert.Equal(t, tt.kind, salesdoc.Kind(wrapped))
			assert.Equal(t, tt.recoverable, salesdoc.IsRecoverable(wrapped))
			assert.Equal(t, tt.message, salesdoc.CustomerMessage(wrapped))
		})
	}

	assert.Empty(t, salesdoc.Kind(nil))
	assert.True(t, salesdoc.IsNotFound(fmt.Errorf("x: %w", salesdoc.ErrNotFound)))
}

func TestCustomerKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{salesdoc.ErrInvalidTransition, salesdoc.StaleKind},
		{salesdoc.ErrAlreadyConverted, salesdoc.StaleKind},
		{salesdoc.ErrVersionConflict, salesdoc.StaleKind},
		{salesdoc.ErrAlreadyExists, salesdoc.StaleKind},
		{salesdoc.ErrOverpaymentRejected, "OverpaymentRejected"},
		{salesdoc.ErrNotFound, "NotFound"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, salesdoc.CustomerKind(fmt.Errorf("op: %w", tt.err)), tt.err.Error())
	}
}
