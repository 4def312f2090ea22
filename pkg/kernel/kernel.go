// Package kernel implements the recursive evaluator over the AIL
// Cognition tree (spec.md §4.6): lexical scopes, structured error
// recovery, cooperative suspension, sandboxed tool execution, a
// deterministic causality chain, and durable cognition logging. It is
// the one place every other package — ail, validator, tool, planner,
// sandbox, memory, events, cognitionlog, comm — gets wired together.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/cognitionlog"
	"github.com/ailrun/ail/pkg/comm"
	"github.com/ailrun/ail/pkg/events"
	"github.com/ailrun/ail/pkg/memory"
	"github.com/ailrun/ail/pkg/memory/embedder"
	"github.com/ailrun/ail/pkg/sandbox"
	"github.com/ailrun/ail/pkg/tool"
	"github.com/ailrun/ail/pkg/validator"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config wires the kernel's collaborators (spec.md §6). Every field is
// optional: New supplies empty Tools and Events registries, QUERY and
// COMMUNICATE fail with a descriptive error when Store or Sink is
// unset, and with no Log nothing is appended.
type Config struct {
	Tools          *tool.Registry
	Store          memory.Store
	Embedder       embedder.Embedder
	Events         *events.Registry
	Log            cognitionlog.Log
	Sink           comm.Sink
	DefaultSandbox sandbox.Config
	Limits         ail.Limits
}

// Options configures a single Execute call.
type Options struct {
	// DeadlineMS, if > 0, bounds the whole call; on expiry, in-flight
	// tools are cancelled and the call returns ErrorKind::Timeout.
	DeadlineMS int64
}

// Kernel is the evaluator plus its ancillary structures: tool
// registry, query planner (stateless, called directly), scope store
// (per-call Frames), event registry, and cognition log.
type Kernel struct {
	tools          *tool.Registry
	store          memory.Store
	embedder       embedder.Embedder
	events         *events.Registry
	log            cognitionlog.Log
	sink           comm.Sink
	defaultSandbox sandbox.Config
	limits         ail.Limits
	tracer         trace.Tracer

	awaitersMu sync.Mutex
	awaiters   map[string][]chan ail.Value
}

// New constructs a Kernel. A nil Tools/Events registry is replaced
// with an empty one so the zero Config is always usable for tests.
func New(cfg Config) *Kernel {
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry(0)
	}
	if cfg.Events == nil {
		cfg.Events = events.NewRegistry()
	}
	if isZeroSandbox(cfg.DefaultSandbox) {
		cfg.DefaultSandbox = sandbox.DefaultConfig()
	}
	return &Kernel{
		tools:          cfg.Tools,
		store:          cfg.Store,
		embedder:       cfg.Embedder,
		events:         cfg.Events,
		log:            cfg.Log,
		sink:           cfg.Sink,
		defaultSandbox: cfg.DefaultSandbox,
		limits:         cfg.Limits,
		tracer:         otel.Tracer("github.com/ailrun/ail/pkg/kernel"),
		awaiters:       make(map[string][]chan ail.Value),
	}
}

func isZeroSandbox(c sandbox.Config) bool {
	return c.MemoryLimitMB == 0 && c.CPULimitMS == 0 && !c.NetworkAccess &&
		c.FileAccess == "" && len(c.AllowedOperations) == 0
}

// Execute parses, validates and evaluates cognitionText as a fresh
// root cognition for agentID (spec.md §6's execute entry point).
func (k *Kernel) Execute(ctx context.Context, cognitionText string, agentID string, opts Options) CognitionResult {
	started := time.Now()
	chain := &CausalityChain{}

	if opts.DeadlineMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.DeadlineMS)*time.Millisecond)
		defer cancel()
	}

	tree, err := ail.ParseWithLimits(cognitionText, k.limits)
	if err != nil {
		return k.finalize(tree, agentID, cognitionText, started, chain, failureResult(err, started, chain))
	}
	if err := validator.Validate(tree); err != nil {
		return k.finalize(tree, agentID, cognitionText, started, chain, failureResult(err, started, chain))
	}

	ec := &ExecContext{
		Frame:           newRootFrame(),
		Chain:           chain,
		AgentID:         agentID,
		RootCognitionID: tree.ID,
	}
	if opts.DeadlineMS > 0 {
		if d, ok := ctx.Deadline(); ok {
			ec.Deadline = &d
		}
	}

	value, evalErr := k.eval(ctx, ec, tree)
	var result CognitionResult
	if evalErr != nil {
		result = failureResult(evalErr, started, chain)
	} else {
		result = successResult(value, started, chain)
	}
	return k.finalize(tree, agentID, cognitionText, started, chain, result)
}

// RegisterTool exposes the tool registry's administrative operation
// (spec.md §6's register_tool).
func (k *Kernel) RegisterTool(t tool.Tool) error {
	return k.tools.RegisterTool(t)
}

// FireEvent resolves name's registered handler cognition and
// evaluates it as a fresh execute call with agent_id="event" (spec.md
// §6), then wakes any AWAIT currently suspended on name.
func (k *Kernel) FireEvent(ctx context.Context, name string, payload ail.Value) (CognitionResult, error) {
	started := time.Now()
	chain := &CausalityChain{}
	var result CognitionResult

	handle := func(innerCtx context.Context, handlerCog *ail.Cognition, p ail.Value) (ail.Value, error) {
		ec := &ExecContext{
			Frame:           newRootFrame(),
			Chain:           chain,
			AgentID:         "event",
			RootCognitionID: handlerCog.ID,
		}
		ec.Frame.set("_payload", p)
		value, err := k.eval(innerCtx, ec, handlerCog)
		if err != nil {
			result = failureResult(err, started, chain)
			return nil, err
		}
		result = successResult(value, started, chain)
		return value, nil
	}

	value, err := k.events.Fire(ctx, name, payload, handle)
	if err != nil {
		if result.CausalityChain == nil {
			result = failureResult(err, started, chain)
		}
		return result, err
	}

	k.notifyAwaiters(name, value)

	if k.log != nil {
		entry := cognitionlog.Entry{
			CognitionID:      uuid.NewString(),
			AgentID:          "event",
			Operation:        "EVENT_FIRE",
			InputSerialized:  name,
			ResultSerialized: fmt.Sprintf("%v", value),
			Success:          true,
			StartedAt:        started,
			FinishedAt:       time.Now(),
		}
		if logErr := k.log.Append(context.Background(), entry); logErr != nil {
			slog.Error("cognitionlog: append failed", "error", logErr)
		}
	}
	return result, nil
}

// Shutdown releases the kernel's durable collaborators.
func (k *Kernel) Shutdown() error {
	if k.log != nil {
		return k.log.Close()
	}
	return nil
}

func (k *Kernel) subscribe(name string, ch chan ail.Value) {
	k.awaitersMu.Lock()
	defer k.awaitersMu.Unlock()
	k.awaiters[name] = append(k.awaiters[name], ch)
}

func (k *Kernel) unsubscribe(name string, ch chan ail.Value) {
	k.awaitersMu.Lock()
	defer k.awaitersMu.Unlock()
	chans := k.awaiters[name]
	for i, c := range chans {
		if c == ch {
			k.awaiters[name] = append(chans[:i], chans[i+1:]...)
			return
		}
	}
}

func (k *Kernel) notifyAwaiters(name string, value ail.Value) {
	k.awaitersMu.Lock()
	chans := append([]chan ail.Value{}, k.awaiters[name]...)
	k.awaitersMu.Unlock()
	for _, ch := range chans {
		select {
		case ch <- value:
		default:
		}
	}
}

// finalize appends one cognition-log entry (success or failure,
// always exactly one per execute call) and returns result unchanged.
// Append failure is logged but never changes the returned result
// (spec.md §4.8).
func (k *Kernel) finalize(tree *ail.Cognition, agentID, input string, started time.Time, chain *CausalityChain, result CognitionResult) CognitionResult {
	if k.log == nil {
		return result
	}

	cognitionID := uuid.NewString()
	operation := "PARSE_ERROR"
	if tree != nil {
		cognitionID = tree.ID
		operation = string(tree.Operation)
	}

	causalityJSON, err := json.Marshal(chain.Nodes())
	if err != nil {
		causalityJSON = []byte("[]")
	}

	entry := cognitionlog.Entry{
		CognitionID:      cognitionID,
		AgentID:          agentID,
		Operation:        operation,
		InputSerialized:  input,
		ResultSerialized: fmt.Sprintf("%v", result.Value),
		Success:          result.Success,
		StartedAt:        started,
		FinishedAt:       time.Now(),
		CausalityJSON:    string(causalityJSON),
	}
	if logErr := k.log.Append(context.Background(), entry); logErr != nil {
		slog.Error("cognitionlog: append failed", "error", logErr)
	}
	return result
}
