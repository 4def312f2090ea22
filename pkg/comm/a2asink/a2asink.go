// Package a2asink delivers COMMUNICATE payloads to other agents over
// the A2A protocol, grounded on the teacher's remoteagent.a2aAgent
// (pkg/agent/remoteagent/a2a.go): resolve an agent card, dial a client
// from it, send one message. Unlike the teacher's streaming sub-agent
// call, delivery here is a single at-most-once message — the first
// response event is the acknowledgment, and the connection is torn
// down immediately after.
package a2asink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"

	aerrors "github.com/ailrun/ail/pkg/errors"
)

// Recipient describes how to reach one named agent.
type Recipient struct {
	Name      string
	AgentCard *a2a.AgentCard
}

// Sink implements comm.Sink over A2A, resolving recipient names
// against a fixed directory supplied at construction.
type Sink struct {
	mu        sync.RWMutex
	directory map[string]*a2a.AgentCard
	timeout   time.Duration
}

// New creates a Sink with the given recipient directory.
func New(recipients []Recipient, timeout time.Duration) *Sink {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dir := make(map[string]*a2a.AgentCard, len(recipients))
	for _, r := range recipients {
		dir[r.Name] = r.AgentCard
	}
	return &Sink{directory: dir, timeout: timeout}
}

// Register adds or replaces a recipient at runtime.
func (s *Sink) Register(r Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directory[r.Name] = r.AgentCard
}

// Send delivers serializedCognition as a text message to recipient.
func (s *Sink) Send(ctx context.Context, recipient string, serializedCognition string) (string, error) {
	s.mu.RLock()
	card, ok := s.directory[recipient]
	s.mu.RUnlock()
	if !ok {
		return "", aerrors.WrapTool(aerrors.KindToolFailure, "communicate",
			fmt.Sprintf("unknown recipient %q", recipient), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return "", aerrors.WrapTool(aerrors.KindToolFailure, "communicate",
			fmt.Sprintf("dial %q", recipient), err)
	}
	defer func() { _ = client.Destroy() }()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: serializedCognition})
	req := &a2a.MessageSendParams{Message: msg}

	for event, err := range client.SendStreamingMessage(ctx, req) {
		if err != nil {
			return "", aerrors.WrapTool(aerrors.KindToolFailure, "communicate",
				fmt.Sprintf("deliver to %q", recipient), err)
		}
		return fmt.Sprintf("delivered:%v", event), nil
	}

	return "delivered", nil
}
