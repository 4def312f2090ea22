package kernel

import "time"

// ExecContext is the mutable state threaded through one top-level
// execute call (spec.md §4.6): the current lexical Frame, the
// append-only causality chain, the calling agent, the root
// cognition's id (for variable-store side-table keys), and an
// optional overall deadline.
type ExecContext struct {
	Frame           *Frame
	Chain           *CausalityChain
	AgentID         string
	RootCognitionID string
	Deadline        *time.Time
}

// withFrame returns a shallow copy of ec with f as the active frame;
// used by LET/TRY to scope a nested frame without mutating the
// caller's ExecContext.
func (ec *ExecContext) withFrame(f *Frame) *ExecContext {
	cp := *ec
	cp.Frame = f
	return &cp
}
