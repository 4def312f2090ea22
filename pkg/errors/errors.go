// Package errors defines the kernel's exhaustive error taxonomy
// (spec.md §7): every failure produced anywhere in the AIL pipeline
// maps to exactly one Kind, and Kind alone determines whether a TRY
// cognition may recover it.
package errors

import (
	"errors"
	"fmt"
)

// Kind is one of the eleven error variants of spec.md §7.
type Kind string

const (
	KindParse           Kind = "parse"
	KindSecurity        Kind = "security"
	KindValidation      Kind = "validation"
	KindUnknownTool     Kind = "unknown_tool"
	KindToolFailure     Kind = "tool_failure"
	KindToolTimeout     Kind = "tool_timeout"
	KindTimeout         Kind = "timeout"
	KindPolicyViolation Kind = "policy_violation"
	KindMemoryStore     Kind = "memory_store"
	KindUnboundVariable Kind = "unbound_variable"
	KindInternal        Kind = "internal"
)

// recoverable pins spec.md §7's propagation policy: Parse, Security,
// Validation, PolicyViolation and Internal bypass every enclosing TRY;
// everything else may be caught.
var recoverable = map[Kind]bool{
	KindParse:           false,
	KindSecurity:        false,
	KindValidation:      false,
	KindUnknownTool:     true,
	KindToolFailure:     true,
	KindToolTimeout:     true,
	KindTimeout:         true,
	KindPolicyViolation: false,
	KindMemoryStore:     true,
	KindUnboundVariable: true,
	KindInternal:        false,
}

// Error is the single concrete error type threaded through the
// kernel. Tool and tool-name fields are populated for ToolFailure,
// ToolTimeout and UnknownTool per spec.md §7.
type Error struct {
	Kind    Kind
	Message string
	Tool    string
	Cause   error
}

func (e *Error) Error() string {
	if e.Tool != "" && e.Cause != nil {
		return fmt.Sprintf("%s: %s [tool=%s]: %v", e.Kind, e.Message, e.Tool, e.Cause)
	}
	if e.Tool != "" {
		return fmt.Sprintf("%s: %s [tool=%s]", e.Kind, e.Message, e.Tool)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a plain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WrapTool creates a tool-scoped error (UnknownTool, ToolFailure, ToolTimeout).
func WrapTool(kind Kind, tool string, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Tool: tool, Cause: cause}
}

// Recoverable reports whether err (at any point in its chain) names a
// Kind that a TRY cognition is permitted to catch. A nil error, or an
// error that does not carry a Kind at all, is treated as unrecoverable
// internal failure — TRY must never silently swallow an error it
// cannot classify.
func Recoverable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return recoverable[ae.Kind]
	}
	return false
}

// As extracts the *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal if err does not
// carry one — every unclassified failure is treated as an
// implementation bug per spec.md §7.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}
