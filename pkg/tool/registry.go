package tool

import (
	"context"
	"time"

	"github.com/ailrun/ail/pkg/ail"
	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/ailrun/ail/pkg/registry"
	"golang.org/x/sync/semaphore"
)

// Entry pairs a registered Tool with the name it was registered
// under, the shape the teacher's ToolRegistry wraps around
// registry.BaseRegistry.
type Entry struct {
	Name string
	Tool Tool
}

// DefaultPoolWeight bounds how many Blocking tools may run
// concurrently across the whole kernel.
const DefaultPoolWeight = 16

// Registry is the kernel's name→Tool lookup plus dispatch.
type Registry struct {
	*registry.BaseRegistry[Entry]
	pool *semaphore.Weighted
}

// NewRegistry creates an empty registry with the given bounded
// worker-pool weight for Blocking tools (DefaultPoolWeight if <= 0).
func NewRegistry(poolWeight int64) *Registry {
	if poolWeight <= 0 {
		poolWeight = DefaultPoolWeight
	}
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Entry](),
		pool:         semaphore.NewWeighted(poolWeight),
	}
}

// RegisterTool registers t under its own declared name.
func (r *Registry) RegisterTool(t Tool) error {
	name := t.Info().Name
	return r.Register(name, Entry{Name: name, Tool: t})
}

// Invoke looks up name and runs it, enforcing timeoutMS if > 0
// (otherwise the tool's own default, or DefaultTimeout). Cooperative
// tools run inline; Blocking tools are dispatched to the bounded
// worker pool and their context is cancelled on timeout.
func (r *Registry) Invoke(ctx context.Context, name string, params ail.Value, timeoutMS int) (Result, error) {
	entry, ok := r.Get(name)
	if !ok {
		return Result{}, aerrors.WrapTool(aerrors.KindUnknownTool, name, "tool not registered", nil)
	}

	timeout := resolveTimeout(entry.Tool.Info(), timeoutMS)
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if entry.Tool.Mode() == Cooperative {
		return r.runInline(execCtx, name, entry.Tool, params)
	}
	return r.runBlocking(execCtx, name, entry.Tool, params)
}

func resolveTimeout(info Info, timeoutMS int) time.Duration {
	if timeoutMS > 0 {
		return time.Duration(timeoutMS) * time.Millisecond
	}
	if info.DefaultTimeoutMS > 0 {
		return time.Duration(info.DefaultTimeoutMS) * time.Millisecond
	}
	return DefaultTimeout
}

func (r *Registry) runInline(ctx context.Context, name string, t Tool, params ail.Value) (Result, error) {
	res, err := t.Execute(ctx, params)
	return classify(name, res, err, ctx)
}

func (r *Registry) runBlocking(ctx context.Context, name string, t Tool, params ail.Value) (Result, error) {
	if err := r.pool.Acquire(ctx, 1); err != nil {
		return Result{}, aerrors.WrapTool(aerrors.KindToolTimeout, name, "timed out waiting for a worker slot", err)
	}
	defer r.pool.Release(1)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.Execute(ctx, params)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return classify(name, o.res, o.err, ctx)
	case <-ctx.Done():
		return Result{}, aerrors.WrapTool(aerrors.KindToolTimeout, name, "tool exceeded its timeout", ctx.Err())
	}
}

func classify(name string, res Result, err error, ctx context.Context) (Result, error) {
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, aerrors.WrapTool(aerrors.KindToolTimeout, name, "tool exceeded its timeout", ctx.Err())
		}
		return Result{}, aerrors.WrapTool(aerrors.KindToolFailure, name, err.Error(), err)
	}
	if !res.Success {
		return res, aerrors.WrapTool(aerrors.KindToolFailure, name, res.Error, nil)
	}
	return res, nil
}
