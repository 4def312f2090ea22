package tool

import (
	"context"
	"testing"
	"time"

	"github.com/ailrun/ail/pkg/ail"
	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/ailrun/ail/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	info  Info
	mode  Mode
	delay time.Duration
	fail  bool
}

func (f *fakeTool) Info() Info                        { return f.info }
func (f *fakeTool) Mode() Mode                         { return f.mode }
func (f *fakeTool) Capabilities() sandbox.Capabilities { return sandbox.Capabilities{} }
func (f *fakeTool) Execute(ctx context.Context, params ail.Value) (Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if f.fail {
		return Result{Success: false, Error: "boom"}, nil
	}
	return Result{Success: true, Value: params}, nil
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	r := NewRegistry(0)
	_, err := r.Invoke(context.Background(), "missing", nil, 0)
	require.Error(t, err)
	assert.Equal(t, aerrors.KindUnknownTool, aerrors.KindOf(err))
}

func TestRegistry_InvokeCooperative(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.RegisterTool(&fakeTool{info: Info{Name: "echo"}, mode: Cooperative}))

	res, err := r.Invoke(context.Background(), "echo", "hi", 0)
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Value)
}

func TestRegistry_InvokeBlocking(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.RegisterTool(&fakeTool{info: Info{Name: "slow"}, mode: Blocking, delay: 10 * time.Millisecond}))

	res, err := r.Invoke(context.Background(), "slow", nil, 1000)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRegistry_BlockingTimeout(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.RegisterTool(&fakeTool{info: Info{Name: "hangs"}, mode: Blocking, delay: time.Second}))

	_, err := r.Invoke(context.Background(), "hangs", nil, 10)
	require.Error(t, err)
	assert.Equal(t, aerrors.KindToolTimeout, aerrors.KindOf(err))
}

func TestRegistry_ToolFailure(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.RegisterTool(&fakeTool{info: Info{Name: "broken"}, mode: Cooperative, fail: true}))

	_, err := r.Invoke(context.Background(), "broken", nil, 0)
	require.Error(t, err)
	assert.Equal(t, aerrors.KindToolFailure, aerrors.KindOf(err))
}

func TestRegistry_BoundedPoolSerializesOverflow(t *testing.T) {
	r := NewRegistry(1)
	require.NoError(t, r.RegisterTool(&fakeTool{info: Info{Name: "slow"}, mode: Blocking, delay: 30 * time.Millisecond}))

	start := time.Now()
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _ = r.Invoke(context.Background(), "slow", nil, 1000)
			done <- struct{}{}
		}()
	}
	<-done
	<-done
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
