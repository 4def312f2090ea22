// Package ail implements the Agent Instruction Language: a lexer and
// recursive-descent parser that turn AIL source text into a bounded
// Cognition tree, plus the canonical serializer used to round-trip a
// tree back to text (spec.md §4.1–§4.2, §8).
package ail

import (
	"fmt"

	"github.com/google/uuid"
)

// Operation is one of the eleven reserved cognition operations.
type Operation string

const (
	OpQuery             Operation = "QUERY"
	OpExecute           Operation = "EXECUTE"
	OpPlan              Operation = "PLAN"
	OpCommunicate       Operation = "COMMUNICATE"
	OpLet               Operation = "LET"
	OpTry               Operation = "TRY"
	OpOnFail            Operation = "ON-FAIL"
	OpAwait             Operation = "AWAIT"
	OpSandboxedExecute  Operation = "SANDBOXED-EXECUTE"
	OpClarify           Operation = "CLARIFY"
	OpEvent             Operation = "EVENT"
)

// operations is the set of tokens the lexer recognizes as operation
// keywords, independent of their syntactic position.
var operations = map[string]Operation{
	"QUERY":             OpQuery,
	"EXECUTE":           OpExecute,
	"PLAN":              OpPlan,
	"COMMUNICATE":       OpCommunicate,
	"LET":               OpLet,
	"TRY":               OpTry,
	"ON-FAIL":           OpOnFail,
	"AWAIT":             OpAwait,
	"SANDBOXED-EXECUTE": OpSandboxedExecute,
	"CLARIFY":           OpClarify,
	"EVENT":             OpEvent,
}

// Value is the dynamic type of anything that can appear as a cognition
// argument: *Cognition, *Entity, OnFailMarker, string, float64, bool,
// nil, []Value (array) or map[string]Value (metadata object).
type Value = interface{}

// Entity is a named reference with an optional payload, written
// "[name]" or "[name:payload]".
type Entity struct {
	Name    string
	Payload Value
}

// Equal reports structural equality, used by tests and the validator.
func (e *Entity) Equal(other *Entity) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Name != other.Name {
		return false
	}
	return valuesEqual(e.Payload, other.Payload)
}

func (e *Entity) String() string {
	if e.Payload == nil {
		return fmt.Sprintf("[%s]", e.Name)
	}
	return fmt.Sprintf("[%s:%v]", e.Name, e.Payload)
}

// OnFailMarker is the value produced for the bare ON-FAIL keyword that
// appears as the literal second element of a TRY's argument list. It
// is never an independent cognition.
type OnFailMarker struct{}

func (OnFailMarker) String() string { return "ON-FAIL" }

// Cognition is one node of the parsed AIL tree (spec.md §2).
type Cognition struct {
	ID        string
	ParentID  string
	Operation Operation
	Args      []Value
	Metadata  map[string]Value
}

// newCognition assigns a fresh ID and threads the parent's ID through,
// then promotes any metadata-object argument onto the node's Metadata
// field for convenient access by the validator and kernel.
func newCognition(op Operation, parentID string, args []Value) *Cognition {
	c := &Cognition{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Operation: op,
		Args:      args,
	}
	for _, a := range args {
		if m, ok := a.(map[string]Value); ok {
			c.Metadata = m
			break
		}
	}
	return c
}

// Walk calls fn for c and every nested *Cognition reachable through its
// argument tree, depth first, parent before child.
func (c *Cognition) Walk(fn func(*Cognition)) {
	if c == nil {
		return
	}
	fn(c)
	for _, a := range c.Args {
		walkValue(a, fn)
	}
}

func walkValue(v Value, fn func(*Cognition)) {
	switch t := v.(type) {
	case *Cognition:
		t.Walk(fn)
	case *Entity:
		walkValue(t.Payload, fn)
	case []Value:
		for _, e := range t {
			walkValue(e, fn)
		}
	case map[string]Value:
		for _, e := range t {
			walkValue(e, fn)
		}
	}
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case *Entity:
		bv, ok := b.(*Entity)
		return ok && av.Equal(bv)
	case []Value:
		bv, ok := b.([]Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]Value:
		bv, ok := b.(map[string]Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !valuesEqual(v, bv[k]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
