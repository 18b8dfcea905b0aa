package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCompleter_CannedResponses(t *testing.T) {
	m := NewMockCompleter("mock")
	m.AddResponse("ping", "pong")

	text, err := m.Complete(context.Background(), Request{Prompt: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", text)

	text, err = m.Complete(context.Background(), Request{Prompt: "other"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", text)
	assert.Equal(t, 2, m.Calls())
}

func TestMockCompleter_ScriptedFailures(t *testing.T) {
	m := NewMockCompleter("mock")
	m.AddResponse("ping", "pong")
	m.FailNTimes(2, NewError(KindRateLimited, "mock", nil))

	_, err := m.Complete(context.Background(), Request{Prompt: "ping"})
	assert.Error(t, err)
	_, err = m.Complete(context.Background(), Request{Prompt: "ping"})
	assert.Error(t, err)

	text, err := m.Complete(context.Background(), Request{Prompt: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", text)
}

func TestMockCompleter_Cancelled(t *testing.T) {
	m := NewMockCompleter("mock")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, Request{Prompt: "ping"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
}
