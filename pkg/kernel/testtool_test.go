package kernel

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/sandbox"
	"github.com/ailrun/ail/pkg/tool"
)

// kvTool echoes its parameter unchanged, unwrapping a singleton
// positional array so `(EXECUTE [kv] ["42"])` yields the bare string
// "42" rather than a one-element array.
type kvTool struct {
	invocations int64
}

func (t *kvTool) Info() tool.Info { return tool.Info{Name: "kv"} }
func (t *kvTool) Mode() tool.Mode { return tool.Cooperative }
func (t *kvTool) Capabilities() sandbox.Capabilities {
	return sandbox.Capabilities{}
}
func (t *kvTool) Execute(_ context.Context, params ail.Value) (tool.Result, error) {
	atomic.AddInt64(&t.invocations, 1)
	if arr, ok := params.([]ail.Value); ok && len(arr) == 1 {
		return tool.Result{Success: true, Value: arr[0]}, nil
	}
	return tool.Result{Success: true, Value: params}, nil
}

// flakyTool always fails.
type flakyTool struct{}

func (flakyTool) Info() tool.Info { return tool.Info{Name: "flaky"} }
func (flakyTool) Mode() tool.Mode { return tool.Cooperative }
func (flakyTool) Capabilities() sandbox.Capabilities {
	return sandbox.Capabilities{}
}
func (flakyTool) Execute(context.Context, ail.Value) (tool.Result, error) {
	return tool.Result{Success: false, Error: "flaky: always fails"}, errors.New("flaky: always fails")
}
