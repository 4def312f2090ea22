package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/ailrun/ail/pkg/cognitionlog"
	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/ailrun/ail/pkg/tool"
	"github.com/ailrun/ail/pkg/tool/shelltool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T) (*Kernel, *kvTool) {
	t.Helper()
	tools := tool.NewRegistry(0)
	require.NoError(t, tools.RegisterTool(shelltool.New(shelltool.Config{})))

	kv := &kvTool{}
	require.NoError(t, tools.RegisterTool(kv))
	require.NoError(t, tools.RegisterTool(flakyTool{}))

	return New(Config{Tools: tools}), kv
}

// 1. Simple shell execute.
func TestExecute_SimpleShellExecute(t *testing.T) {
	k, _ := newTestKernel(t)

	result := k.Execute(context.Background(), `(EXECUTE [shell] ["echo hello"])`, "agent-1", Options{})

	require.True(t, result.Success)
	assert.Equal(t, "hello\n", result.Value)
	require.Len(t, result.CausalityChain, 1)
	assert.Equal(t, "EXECUTE", result.CausalityChain[0].Operation)
}

// 2. Variable binding: the LET binding does not leak into the root
// frame a sibling PLAN child shares.
func TestExecute_VariableBindingDoesNotLeak(t *testing.T) {
	k, _ := newTestKernel(t)

	result := k.Execute(context.Background(),
		`(LET ((x (EXECUTE [kv] ["42"]))) (EXECUTE [kv] [x]))`, "agent-1", Options{})
	require.True(t, result.Success)
	assert.Equal(t, "42", result.Value)

	leaked := k.Execute(context.Background(),
		`(PLAN {"goal":"g"} (LET ((x (EXECUTE [kv] ["1"]))) (EXECUTE [kv] [x])) (EXECUTE [kv] [x]))`,
		"agent-1", Options{})
	require.False(t, leaked.Success)
	assert.Equal(t, aerrors.KindUnboundVariable, leaked.Error.Kind)
}

// 3. Error recovery via TRY/ON-FAIL.
func TestExecute_ErrorRecoveryViaTry(t *testing.T) {
	k, _ := newTestKernel(t)

	result := k.Execute(context.Background(),
		`(TRY (EXECUTE [flaky] []) ON-FAIL (EXECUTE [kv] ["recovered"]))`, "agent-1", Options{})

	require.True(t, result.Success)
	assert.Equal(t, "recovered", result.Value)
	require.Len(t, result.CausalityChain, 3) // TRY, EXECUTE[flaky], EXECUTE[kv]

	var sawFailedFlaky, sawRecoveredKV bool
	for _, n := range result.CausalityChain {
		if n.Operation == "EXECUTE" && !n.Success {
			sawFailedFlaky = true
		}
		if n.Operation == "EXECUTE" && n.Success {
			sawRecoveredKV = true
		}
	}
	assert.True(t, sawFailedFlaky)
	assert.True(t, sawRecoveredKV)
}

// Unrecoverable errors (PolicyViolation) bypass TRY entirely.
func TestExecute_TryDoesNotRecoverPolicyViolation(t *testing.T) {
	k, kv := newTestKernel(t)

	result := k.Execute(context.Background(),
		`(TRY (SANDBOXED-EXECUTE [shell] ["ls"] {"policy":{"allowed_operations":["nothing"]}}) ON-FAIL (EXECUTE [kv] ["recovered"]))`,
		"agent-1", Options{})

	require.False(t, result.Success)
	assert.Equal(t, aerrors.KindPolicyViolation, result.Error.Kind)
	assert.EqualValues(t, 0, kv.invocations)
}

// 4. Depth limit.
func TestExecute_DepthLimitRejectsBeforeAnyToolInvocation(t *testing.T) {
	k, kv := newTestKernel(t)

	text := `(EXECUTE [kv] ["x"])`
	for i := 0; i < 10; i++ {
		text = `(PLAN {"goal":"g"} ` + text + `)`
	}

	result := k.Execute(context.Background(), text, "agent-1", Options{})
	require.False(t, result.Success)
	assert.Equal(t, aerrors.KindSecurity, result.Error.Kind)
	assert.EqualValues(t, 0, kv.invocations)
}

// 5. Sandbox denial.
func TestExecute_SandboxDenial(t *testing.T) {
	k, _ := newTestKernel(t)

	result := k.Execute(context.Background(),
		`(SANDBOXED-EXECUTE [shell] ["ls"] {"policy": {"allowed_operations": ["kv"]}})`,
		"agent-1", Options{})

	require.False(t, result.Success)
	assert.Equal(t, aerrors.KindPolicyViolation, result.Error.Kind)
	require.Len(t, result.CausalityChain, 1)
	assert.False(t, result.CausalityChain[0].Success)
}

// 6. AWAIT timeout: the event never fires, but remains registered.
func TestExecute_AwaitTimesOutEventStaysRegistered(t *testing.T) {
	k, _ := newTestKernel(t)

	start := time.Now()
	result := k.Execute(context.Background(),
		`(AWAIT (EVENT {"name":"never","trigger":"impossible","handler":(EXECUTE [kv] ["x"])}) {"timeout_ms": 50})`,
		"agent-1", Options{})
	elapsed := time.Since(start)

	require.False(t, result.Success)
	assert.Equal(t, aerrors.KindTimeout, result.Error.Kind)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)

	_, err := k.FireEvent(context.Background(), "never", "payload")
	assert.NoError(t, err)
}

// Boundary: AWAIT timeout_ms=0 returns Timeout without suspending.
func TestExecute_AwaitZeroTimeoutReturnsImmediately(t *testing.T) {
	k, _ := newTestKernel(t)

	start := time.Now()
	result := k.Execute(context.Background(),
		`(AWAIT (EVENT {"name":"immediate-never","trigger":"x","handler":(EXECUTE [kv] ["x"])}) {"timeout_ms": 0})`,
		"agent-1", Options{})
	elapsed := time.Since(start)

	require.False(t, result.Success)
	assert.Equal(t, aerrors.KindTimeout, result.Error.Kind)
	assert.Less(t, elapsed, 20*time.Millisecond)
}

// AWAIT on an already-resolved inner cognition returns its value
// without suspending at all.
func TestExecute_AwaitOnResolvedCognitionReturnsImmediately(t *testing.T) {
	k, _ := newTestKernel(t)

	result := k.Execute(context.Background(), `(AWAIT (EXECUTE [kv] ["done"]))`, "agent-1", Options{})
	require.True(t, result.Success)
	assert.Equal(t, "done", result.Value)
}

// EVENT fires and feeds a still-suspended AWAIT.
func TestExecute_AwaitWakesOnFire(t *testing.T) {
	k, _ := newTestKernel(t)

	registered := make(chan struct{})
	resultCh := make(chan CognitionResult, 1)
	go func() {
		close(registered)
		resultCh <- k.Execute(context.Background(),
			`(AWAIT (EVENT {"name":"ping","trigger":"manual","handler":(EXECUTE [kv] ["fired"])}) {"timeout_ms": 2000})`,
			"agent-1", Options{})
	}()
	<-registered
	time.Sleep(20 * time.Millisecond)

	_, err := k.FireEvent(context.Background(), "ping", nil)
	require.NoError(t, err)

	result := <-resultCh
	require.True(t, result.Success)
	assert.Equal(t, "fired", result.Value)
}

// Universal invariant: parse never panics on malformed input.
func TestExecute_ParseFailureIsTotalNotPanic(t *testing.T) {
	k, _ := newTestKernel(t)

	result := k.Execute(context.Background(), `(EXECUTE [shell]`, "agent-1", Options{})
	require.False(t, result.Success)
	assert.Equal(t, aerrors.KindParse, result.Error.Kind)
}

// Unknown tool is recoverable by TRY.
func TestExecute_UnknownToolRecoveredByTry(t *testing.T) {
	k, _ := newTestKernel(t)

	result := k.Execute(context.Background(),
		`(TRY (EXECUTE [nope] []) ON-FAIL (EXECUTE [kv] ["fallback"]))`, "agent-1", Options{})
	require.True(t, result.Success)
	assert.Equal(t, "fallback", result.Value)
}

// Every execute call produces a cognition-log append, success or
// failure, exactly once.
func TestExecute_AppendsExactlyOnceToCognitionLog(t *testing.T) {
	tools := tool.NewRegistry(0)
	kv := &kvTool{}
	require.NoError(t, tools.RegisterTool(kv))
	var log countingLog
	k := New(Config{Tools: tools, Log: &log})

	k.Execute(context.Background(), `(EXECUTE [kv] ["x"])`, "agent-1", Options{})
	k.Execute(context.Background(), `(EXECUTE [missing]`, "agent-1", Options{}) // parse failure

	assert.EqualValues(t, 2, log.appends)
}

type countingLog struct {
	appends int
}

func (l *countingLog) Append(context.Context, cognitionlog.Entry) error {
	l.appends++
	return nil
}

func (l *countingLog) Close() error { return nil }
