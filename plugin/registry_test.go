package plugin_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/plugin"
)

type recorder struct {
	name        string
	transitions atomic.Int32
	failures    atomic.Int32
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnStatusChanged(context.Context, plugin.Transition) error {
	r.transitions.Add(1)
	return nil
}

func (r *recorder) OnOperationFailed(context.Context, plugin.Failure) error {
	r.failures.Add(1)
	return nil
}

type broken struct{}

func (broken) Name() string { return "broken" }

func (broken) OnStatusChanged(context.Context, plugin.Transition) error {
	return errors.New("boom")
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnStatusChanged(ctx context.Context, _ plugin.Transition) error {
	<-ctx.Done()
	return ctx.Err()
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) OnDocumentCreated(context.Context, plugin.Document) error {
	panic("unexpected")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&recorder{name: "a"}))
	assert.Error(t, r.Register(&recorder{name: "a"}))
	assert.Equal(t, 1, r.Count())
	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("b"))
	assert.Len(t, r.List(), 1)
}

func TestEmitDispatchesOnlyToImplementers(t *testing.T) {
	r := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	require.NoError(t, r.Register(rec))
	require.NoError(t, r.Register(broken{}))

	ctx := context.Background()
	r.EmitStatusChanged(ctx, plugin.Transition{Operation: "send", From: "draft", To: "sent"})
	r.EmitOperationFailed(ctx, plugin.Failure{Operation: "send", Kind: "InvalidTransition"})
	r.EmitPaymentRecorded(ctx, plugin.PaymentEvent{})

	assert.Equal(t, int32(1), rec.transitions.Load())
	assert.Equal(t, int32(1), rec.failures.Load())
}

func TestSlowAndPanickingPluginsDoNotBlock(t *testing.T) {
	r := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	require.NoError(t, r.Register(slow{}))
	require.NoError(t, r.Register(panicky{}))

	start := time.Now()
	r.EmitStatusChanged(context.Background(), plugin.Transition{})
	r.EmitDocumentCreated(context.Background(), plugin.Document{ID: "est_x"})
	assert.Less(t, time.Since(start), time.Second)
}
