// Package tool defines the callable surface EXECUTE and
// SANDBOXED-EXECUTE dispatch against, and the registry the kernel
// looks tools up in. Cooperative tools run inline on the evaluator's
// goroutine; blocking tools are dispatched to a bounded worker pool so
// one slow tool cannot starve the others (spec.md §5's suspension
// points and concurrency model).
package tool

import (
	"context"
	"time"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/sandbox"
)

// Mode declares whether a tool yields the evaluator goroutine while it
// runs.
type Mode int

const (
	// Cooperative tools are short, pure, or otherwise safe to run
	// inline without a worker-pool slot.
	Cooperative Mode = iota
	// Blocking tools (shell commands, network calls, out-of-process
	// plugins) are dispatched to the bounded worker pool.
	Blocking
)

// Parameter describes one named input a tool accepts. It is
// descriptive only: no JSON Schema is generated from it, and EXECUTE
// parameters are not checked against it.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Info is a tool's static description.
type Info struct {
	Name              string
	Description       string
	Parameters        []Parameter
	DefaultTimeoutMS  int
}

// Result is what a tool invocation produces.
type Result struct {
	Success  bool
	Value    ail.Value
	Error    string
	Metadata map[string]interface{}
}

// Tool is anything EXECUTE/SANDBOXED-EXECUTE can invoke by name.
type Tool interface {
	Info() Info
	Mode() Mode
	Capabilities() sandbox.Capabilities
	Execute(ctx context.Context, params ail.Value) (Result, error)
}

// DefaultTimeout is used when neither the tool nor the caller
// specifies one.
const DefaultTimeout = 30 * time.Second
