package estimate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/fsm"
	"github.com/xraph/salesdoc/lineitem"
)

var now = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func TestEstimateTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  estimate.Status
		event estimate.Event
		to    estimate.Status
		ok    bool
	}{
		{"send draft", estimate.StatusDraft, estimate.EventSend, estimate.StatusSent, true},
		{"approve without viewing", estimate.StatusSent, estimate.EventApprove, estimate.StatusApproved, true},
		{"approve after viewing", estimate.StatusViewed, estimate.EventApprove, estimate.StatusApproved, true},
		{"reject from sent", estimate.StatusSent, estimate.EventReject, estimate.StatusRejected, true},
		{"convert approved", estimate.StatusApproved, estimate.EventConvert, estimate.StatusConverted, true},
		{"cancel approved", estimate.StatusApproved, estimate.EventCancel, estimate.StatusCancelled, true},
		{"approve draft", estimate.StatusDraft, estimate.EventApprove, estimate.StatusDraft, false},
		{"convert twice", estimate.StatusConverted, estimate.EventConvert, estimate.StatusConverted, false},
		{"edit sent", estimate.StatusSent, estimate.EventEdit, estimate.StatusSent, false},
		{"cancel rejected", estimate.StatusRejected, estimate.EventCancel, estimate.StatusRejected, false},
		{"cancel converted", estimate.StatusConverted, estimate.EventCancel, estimate.StatusConverted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &estimate.Estimate{Status: tt.from}
			err := e.Apply(tt.event, now)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, fsm.ErrInvalidTransition)
			}
			assert.Equal(t, tt.to, e.Status)
		})
	}
}

func TestEstimateTimestamps(t *testing.T) {
	e := &estimate.Estimate{Status: estimate.StatusDraft}
	require.NoError(t, e.Apply(estimate.EventSend, now))
	require.NoError(t, e.Apply(estimate.EventApprove, now.Add(time.Hour)))

	require.NotNil(t, e.SentAt)
	require.NotNil(t, e.ApprovedAt)
	assert.Nil(t, e.ViewedAt)
	assert.Equal(t, now.Add(time.Hour), *e.ApprovedAt)
	assert.Equal(t, now.Add(time.Hour), e.UpdatedAt)
}

func TestReviseOnlyInDraft(t *testing.T) {
	e := &estimate.Estimate{Status: estimate.StatusSent}
	err := e.Revise(nil, lineitem.Totals{}, now)
	assert.ErrorIs(t, err, fsm.ErrInvalidTransition)
	assert.True(t, estimate.Machine.IsTerminal(estimate.StatusConverted))
	assert.True(t, estimate.Machine.IsTerminal(estimate.StatusRejected))
}
