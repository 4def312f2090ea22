package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/ailrun/ail/pkg/ail"
	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/ailrun/ail/pkg/events"
	"github.com/ailrun/ail/pkg/memory"
	"github.com/ailrun/ail/pkg/planner"
	"github.com/ailrun/ail/pkg/sandbox"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// eval is the single recursive entry point every operation handler
// goes through: it pushes a causality node before dispatching and
// finishes it with the outcome after, per spec.md §4.6's three-step
// contract (push, evaluate, finish).
func (k *Kernel) eval(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, aerrors.New(aerrors.KindTimeout, "deadline exceeded before evaluating "+string(c.Operation))
	}

	ctx, span := k.tracer.Start(ctx, string(c.Operation))
	span.SetAttributes(
		attribute.String("ail.cognition_id", c.ID),
		attribute.String("ail.operation", string(c.Operation)),
	)
	defer span.End()

	idx := ec.Chain.push(c.ID, string(c.Operation), c.ParentID)
	value, err := k.dispatch(ctx, ec, c)
	ec.Chain.finish(idx, err == nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return value, err
}

func (k *Kernel) dispatch(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	switch c.Operation {
	case ail.OpQuery:
		return k.evalQuery(ctx, ec, c)
	case ail.OpExecute:
		return k.evalExecute(ctx, ec, c)
	case ail.OpPlan:
		return k.evalPlan(ctx, ec, c)
	case ail.OpCommunicate:
		return k.evalCommunicate(ctx, ec, c)
	case ail.OpLet:
		return k.evalLet(ctx, ec, c)
	case ail.OpTry:
		return k.evalTry(ctx, ec, c)
	case ail.OpAwait:
		return k.evalAwait(ctx, ec, c)
	case ail.OpSandboxedExecute:
		return k.evalSandboxedExecute(ctx, ec, c)
	case ail.OpClarify:
		return k.evalClarify(ctx, ec, c)
	case ail.OpEvent:
		return k.evalEvent(ctx, ec, c)
	default:
		return nil, aerrors.New(aerrors.KindInternal, "unhandled operation "+string(c.Operation))
	}
}

// reduceValue eagerly reduces any nested cognition in v to its
// evaluated result, and resolves a payload-less Entity as a variable
// reference. It is used only for EXECUTE/SANDBOXED-EXECUTE params, per
// spec.md §4.6's "evaluate params (eagerly reducing any child
// cognitions)" — tool-name/recipient-name/binding-name entities are
// always read directly off the AST, never passed through here.
func (k *Kernel) reduceValue(ctx context.Context, ec *ExecContext, v ail.Value) (ail.Value, error) {
	switch t := v.(type) {
	case *ail.Cognition:
		return k.eval(ctx, ec, t)
	case *ail.Entity:
		if t.Payload == nil {
			return ec.Frame.mustGet(t.Name)
		}
		payload, err := k.reduceValue(ctx, ec, t.Payload)
		if err != nil {
			return nil, err
		}
		return &ail.Entity{Name: t.Name, Payload: payload}, nil
	case []ail.Value:
		out := make([]ail.Value, len(t))
		for i, e := range t {
			r, err := k.reduceValue(ctx, ec, e)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]ail.Value:
		out := make(map[string]ail.Value, len(t))
		for key, e := range t {
			r, err := k.reduceValue(ctx, ec, e)
			if err != nil {
				return nil, err
			}
			out[key] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func (k *Kernel) evalQuery(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	rawMeta, _ := c.Args[0].(map[string]ail.Value)
	meta, err := planner.DecodeMetadata(rawMeta)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Build(meta)
	if err != nil {
		return nil, err
	}
	if k.store == nil {
		return nil, aerrors.New(aerrors.KindInternal, "query: no memory store configured")
	}

	var queryEmbedding []float32
	if k.embedder != nil {
		queryEmbedding, err = k.embedder.Embed(ctx, meta.Intent)
		if err != nil {
			return nil, aerrors.Wrap(aerrors.KindMemoryStore, "query: embedding intent", err)
		}
	}

	result, err := planner.ExecuteWithEmbedding(ctx, plan, meta, k.store, queryEmbedding)
	if err != nil {
		return nil, err
	}
	return map[string]ail.Value{
		"mode":     result.Mode,
		"intent":   result.Intent,
		"memories": recordsToValue(result.Memories),
		"total":    float64(result.Total),
		"plan_id":  result.PlanID,
	}, nil
}

func (k *Kernel) evalExecute(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	toolEntity := c.Args[0].(*ail.Entity)
	params, err := k.reduceValue(ctx, ec, c.Args[1])
	if err != nil {
		return nil, err
	}
	res, err := k.tools.Invoke(ctx, toolEntity.Name, params, 0)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (k *Kernel) evalSandboxedExecute(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	toolEntity := c.Args[0].(*ail.Entity)

	cfg := k.defaultSandbox
	if len(c.Args) == 3 {
		m, _ := c.Args[2].(map[string]ail.Value)
		if rawPolicy, ok := m["policy"]; ok {
			policyMap, _ := rawPolicy.(map[string]ail.Value)
			decoded, err := sandbox.Decode(policyMap)
			if err != nil {
				return nil, err
			}
			cfg = decoded
		}
	}

	entry, ok := k.tools.Get(toolEntity.Name)
	if !ok {
		return nil, aerrors.WrapTool(aerrors.KindUnknownTool, toolEntity.Name, "tool not registered", nil)
	}
	if err := sandbox.Enforce(cfg, toolEntity.Name, entry.Tool.Capabilities()); err != nil {
		return nil, err
	}
	if cfg.CPULimitMS == 0 {
		return nil, aerrors.WrapTool(aerrors.KindToolTimeout, toolEntity.Name,
			"cpu_limit_ms=0 elapses immediately", nil)
	}

	params, err := k.reduceValue(ctx, ec, c.Args[1])
	if err != nil {
		return nil, err
	}
	res, err := k.tools.Invoke(ctx, toolEntity.Name, params, int(cfg.Timeout().Milliseconds()))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (k *Kernel) evalPlan(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	m, _ := c.Args[0].(map[string]ail.Value)
	goal, _ := m["goal"].(string)

	stages := make([]ail.Value, 0, len(c.Args)-1)
	for _, arg := range c.Args[1:] {
		child := arg.(*ail.Cognition)
		value, err := k.eval(ctx, ec, child)
		if err != nil {
			return nil, err
		}
		stages = append(stages, value)
	}
	return map[string]ail.Value{"goal": goal, "stages": stages}, nil
}

func (k *Kernel) evalCommunicate(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	recipient := c.Args[0].(*ail.Entity)
	inner := c.Args[1].(*ail.Cognition)
	serialized := ail.Serialize(inner)

	if k.sink == nil {
		return nil, aerrors.WrapTool(aerrors.KindToolFailure, "communicate", "no communication sink configured", nil)
	}
	ack, err := k.sink.Send(ctx, recipient.Name, serialized)
	if err != nil {
		return nil, err
	}
	return ack, nil
}

func (k *Kernel) evalLet(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	bindings := c.Args[0].([]ail.Value)
	body := c.Args[1].(*ail.Cognition)

	frame := ec.Frame.child()
	bindEc := ec.withFrame(frame)

	for _, b := range bindings {
		entity := b.(*ail.Entity)
		bindingCog := entity.Payload.(*ail.Cognition)
		value, err := k.eval(ctx, bindEc, bindingCog)
		if err != nil {
			return nil, err
		}
		frame.set(entity.Name, value)
	}

	return k.eval(ctx, bindEc, body)
}

func (k *Kernel) evalTry(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	attempt := c.Args[0].(*ail.Cognition)
	recovery := c.Args[2].(*ail.Cognition)

	value, err := k.eval(ctx, ec, attempt)
	if err == nil {
		return value, nil
	}
	if !aerrors.Recoverable(err) {
		return nil, err
	}

	frame := ec.Frame.child()
	aerr, _ := aerrors.As(err)
	frame.set("_error", errorToValue(aerr))
	recoverEc := ec.withFrame(frame)
	return k.eval(ctx, recoverEc, recovery)
}

func (k *Kernel) evalAwait(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	inner := c.Args[0].(*ail.Cognition)

	hasTimeout := false
	timeoutMS := 0
	if len(c.Args) == 2 {
		m, _ := c.Args[1].(map[string]ail.Value)
		if v, ok := m["timeout_ms"]; ok {
			hasTimeout = true
			if n, ok := v.(float64); ok {
				timeoutMS = int(n)
			}
		}
	}
	if hasTimeout && timeoutMS <= 0 {
		return nil, aerrors.New(aerrors.KindTimeout, "await: timeout_ms=0 elapses immediately")
	}

	if inner.Operation == ail.OpEvent {
		m, _ := inner.Args[0].(map[string]ail.Value)
		name, _ := m["name"].(string)
		if _, err := k.eval(ctx, ec, inner); err != nil {
			return nil, err
		}
		return k.waitForEvent(ctx, name, timeoutMS, hasTimeout)
	}

	return k.eval(ctx, ec, inner)
}

func (k *Kernel) waitForEvent(ctx context.Context, name string, timeoutMS int, hasTimeout bool) (ail.Value, error) {
	ch := make(chan ail.Value, 1)
	k.subscribe(name, ch)
	defer k.unsubscribe(name, ch)

	var timeoutCh <-chan time.Time
	if hasTimeout {
		timer := time.NewTimer(time.Duration(timeoutMS) * time.Millisecond)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case v := <-ch:
		return v, nil
	case <-timeoutCh:
		return nil, aerrors.New(aerrors.KindTimeout,
			fmt.Sprintf("await: event %q did not fire within %dms", name, timeoutMS))
	case <-ctx.Done():
		return nil, aerrors.New(aerrors.KindTimeout, "await: deadline exceeded")
	}
}

func (k *Kernel) evalClarify(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	m, _ := c.Args[0].(map[string]ail.Value)
	return m, nil
}

func (k *Kernel) evalEvent(ctx context.Context, ec *ExecContext, c *ail.Cognition) (ail.Value, error) {
	m, _ := c.Args[0].(map[string]ail.Value)
	name, _ := m["name"].(string)
	handler := m["handler"].(*ail.Cognition)

	err := k.events.Register(events.Event{
		Name:        name,
		Trigger:     stringValue(m["trigger"]),
		Handler:     handler,
		Description: stringValue(m["description"]),
	})
	if err != nil {
		return nil, err
	}
	return map[string]ail.Value{"name": name, "registered": true}, nil
}

func recordsToValue(records []memory.Record) []ail.Value {
	out := make([]ail.Value, len(records))
	for i, r := range records {
		out[i] = map[string]ail.Value{
			"id":                 r.ID,
			"content":            r.Content,
			"metadata":           metadataToValue(r.Metadata),
			"created_at_unix_ms": float64(r.CreatedAtUnixMS),
			"similarity_score":   r.SimilarityScore,
		}
	}
	return out
}

func metadataToValue(m map[string]interface{}) map[string]ail.Value {
	if m == nil {
		return nil
	}
	out := make(map[string]ail.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringValue(v ail.Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func errorToValue(e *aerrors.Error) ail.Value {
	if e == nil {
		return nil
	}
	m := map[string]ail.Value{"kind": string(e.Kind), "message": e.Message}
	if e.Tool != "" {
		m["tool"] = e.Tool
	}
	return m
}
