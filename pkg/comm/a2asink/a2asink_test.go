package a2asink

import (
	"context"
	"testing"

	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_UnknownRecipientFailsAsToolFailure(t *testing.T) {
	s := New(nil, 0)

	_, err := s.Send(context.Background(), "ghost", "(EXECUTE [kv] [\"x\"])")
	require.Error(t, err)

	aerr, ok := aerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindToolFailure, aerr.Kind)
	assert.Equal(t, "communicate", aerr.Tool)
}

func TestSink_RegisterAddsRecipient(t *testing.T) {
	s := New(nil, 0)
	s.Register(Recipient{Name: "peer", AgentCard: nil})

	s.mu.RLock()
	_, ok := s.directory["peer"]
	s.mu.RUnlock()
	assert.True(t, ok)
}
