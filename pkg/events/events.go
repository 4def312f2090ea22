// Package events implements the process-wide event registry of
// spec.md §4.1: an EVENT cognition registers {name, trigger, handler},
// and lives until process shutdown or explicit removal. The core never
// fires events itself; an external collaborator calls FireEvent.
package events

import (
	"context"
	"fmt"
	"time"

	aerrors "github.com/ailrun/ail/pkg/errors"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/registry"
)

// Event is one registered trigger/handler pair.
type Event struct {
	Name         string
	Trigger      string
	Handler      *ail.Cognition
	Description  string
	RegisteredAt time.Time
}

// Handler evaluates a fired event's handler cognition against payload.
// The kernel supplies this; pkg/events never evaluates cognitions
// itself, to avoid an import cycle with pkg/kernel.
type Handler func(ctx context.Context, handler *ail.Cognition, payload ail.Value) (ail.Value, error)

// Registry holds every currently-registered event.
type Registry struct {
	*registry.BaseRegistry[Event]
}

// NewRegistry creates an empty event registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Event]()}
}

// Register records e, redefining any prior event under the same name
// (an EVENT cognition re-run with the same name replaces it).
func (r *Registry) Register(e Event) error {
	if e.Name == "" {
		return aerrors.New(aerrors.KindValidation, "events: name must not be empty")
	}
	if e.Handler == nil {
		return aerrors.New(aerrors.KindValidation, "events: handler must not be nil")
	}
	e.RegisteredAt = time.Now()

	_ = r.BaseRegistry.Remove(e.Name) // redefine: drop any prior registration first
	if err := r.BaseRegistry.Register(e.Name, e); err != nil {
		return aerrors.Wrap(aerrors.KindInternal, fmt.Sprintf("events: register %q", e.Name), err)
	}
	return nil
}

// Fire looks up name and, if found, invokes handle against its handler
// cognition and payload. Returns ErrorKind::UnknownTool-shaped errors
// are not used here; an unknown event name is KindValidation.
func (r *Registry) Fire(ctx context.Context, name string, payload ail.Value, handle Handler) (ail.Value, error) {
	e, ok := r.BaseRegistry.Get(name)
	if !ok {
		return nil, aerrors.New(aerrors.KindValidation, fmt.Sprintf("events: unknown event %q", name))
	}
	return handle(ctx, e.Handler, payload)
}
