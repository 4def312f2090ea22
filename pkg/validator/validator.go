// Package validator performs the static per-operation arity and shape
// checks of spec.md §4.3 over a parsed Cognition tree, before any
// evaluation happens. A violation anywhere in the tree fails the whole
// tree with a Validation error (spec.md: "Any violation fails with
// ErrorKind::Validation and halts before evaluation").
package validator

import (
	"fmt"

	"github.com/ailrun/ail/pkg/ail"
	aerrors "github.com/ailrun/ail/pkg/errors"
)

var validModes = map[string]bool{"standard": true, "explore": true, "connect": true}

// Validate walks c and every nested cognition, checking each against
// its operation's arity/shape contract. It returns the first
// violation found, depth-first, parent before child.
func Validate(c *ail.Cognition) error {
	if c == nil {
		return aerrors.New(aerrors.KindValidation, "nil cognition")
	}
	return validateNode(c)
}

func validateNode(c *ail.Cognition) error {
	if err := validateShape(c); err != nil {
		return err
	}
	for _, a := range c.Args {
		if err := validateValue(a); err != nil {
			return err
		}
	}
	return nil
}

// validateValue recurses into a value looking for nested cognitions to
// validate; entities, arrays and metadata objects are not cognitions
// themselves but may contain them.
func validateValue(v ail.Value) error {
	switch t := v.(type) {
	case *ail.Cognition:
		return validateNode(t)
	case *ail.Entity:
		if t.Payload != nil {
			return validateValue(t.Payload)
		}
		return nil
	case []ail.Value:
		for _, e := range t {
			if err := validateValue(e); err != nil {
				return err
			}
		}
		return nil
	case map[string]ail.Value:
		for _, e := range t {
			if err := validateValue(e); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func validationErr(c *ail.Cognition, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	return aerrors.New(aerrors.KindValidation, fmt.Sprintf("%s: %s", c.Operation, msg))
}

func validateShape(c *ail.Cognition) error {
	switch c.Operation {
	case ail.OpQuery:
		return validateQuery(c)
	case ail.OpExecute:
		return validateExecute(c)
	case ail.OpPlan:
		return validatePlan(c)
	case ail.OpCommunicate:
		return validateCommunicate(c)
	case ail.OpLet:
		return validateLet(c)
	case ail.OpTry:
		return validateTry(c)
	case ail.OpOnFail:
		return validationErr(c, "invalid as a standalone cognition; may only appear as the literal third element of TRY")
	case ail.OpAwait:
		return validateAwait(c)
	case ail.OpSandboxedExecute:
		return validateSandboxedExecute(c)
	case ail.OpClarify:
		return validateClarify(c)
	case ail.OpEvent:
		return validateEvent(c)
	default:
		return validationErr(c, "unknown operation")
	}
}

func asMetadata(v ail.Value) (map[string]ail.Value, bool) {
	m, ok := v.(map[string]ail.Value)
	return m, ok
}

func asEntity(v ail.Value) (*ail.Entity, bool) {
	e, ok := v.(*ail.Entity)
	return e, ok
}

func asCognition(v ail.Value) (*ail.Cognition, bool) {
	c, ok := v.(*ail.Cognition)
	return c, ok
}

func asString(v ail.Value) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asNumber(v ail.Value) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

func validateQuery(c *ail.Cognition) error {
	if len(c.Args) != 1 {
		return validationErr(c, "exactly 1 arg required, got %d", len(c.Args))
	}
	m, ok := asMetadata(c.Args[0])
	if !ok {
		return validationErr(c, "arg must be a metadata map")
	}
	intent, ok := asString(m["intent"])
	if !ok || intent == "" {
		return validationErr(c, "metadata must contain a non-empty intent:string")
	}
	if mode, present := m["mode"]; present {
		modeStr, ok := asString(mode)
		if !ok || !validModes[modeStr] {
			return validationErr(c, "mode must be one of standard, explore, connect")
		}
	}
	if v, present := m["max_results"]; present {
		if _, ok := asNumber(v); !ok {
			return validationErr(c, "max_results must be a number")
		}
	}
	if v, present := m["similarity_threshold"]; present {
		if _, ok := asNumber(v); !ok {
			return validationErr(c, "similarity_threshold must be a number")
		}
	}
	return nil
}

func validateExecute(c *ail.Cognition) error {
	if len(c.Args) != 2 {
		return validationErr(c, "exactly 2 args required, got %d", len(c.Args))
	}
	if _, ok := asEntity(c.Args[0]); !ok {
		return validationErr(c, "first arg must be a [tool_name] entity")
	}
	return nil
}

func validatePlan(c *ail.Cognition) error {
	if len(c.Args) < 2 {
		return validationErr(c, "requires a metadata arg and at least 1 child cognition, got %d args", len(c.Args))
	}
	m, ok := asMetadata(c.Args[0])
	if !ok {
		return validationErr(c, "first arg must be a metadata map")
	}
	if goal, ok := asString(m["goal"]); !ok || goal == "" {
		return validationErr(c, "metadata must contain a non-empty goal:string")
	}
	for i, a := range c.Args[1:] {
		if _, ok := asCognition(a); !ok {
			return validationErr(c, "stage %d must be a child cognition", i)
		}
	}
	return nil
}

func validateCommunicate(c *ail.Cognition) error {
	if len(c.Args) != 2 {
		return validationErr(c, "exactly 2 args required, got %d", len(c.Args))
	}
	if _, ok := asEntity(c.Args[0]); !ok {
		return validationErr(c, "first arg must be a [recipient_agent] entity")
	}
	if _, ok := asCognition(c.Args[1]); !ok {
		return validationErr(c, "second arg must be a child cognition")
	}
	return nil
}

func validateLet(c *ail.Cognition) error {
	if len(c.Args) != 2 {
		return validationErr(c, "exactly 2 args required, got %d", len(c.Args))
	}
	bindings, ok := c.Args[0].([]ail.Value)
	if !ok {
		return validationErr(c, "first arg must be a list of (name, cognition) pairs")
	}
	seen := make(map[string]bool, len(bindings))
	for i, b := range bindings {
		entity, ok := asEntity(b)
		if !ok {
			return validationErr(c, "binding %d must be a [name:cognition] entity", i)
		}
		if entity.Name == "" {
			return validationErr(c, "binding %d has an empty name", i)
		}
		if seen[entity.Name] {
			return validationErr(c, "binding name %q is not unique within the binding list", entity.Name)
		}
		seen[entity.Name] = true
		if _, ok := asCognition(entity.Payload); !ok {
			return validationErr(c, "binding %q must bind to a cognition", entity.Name)
		}
	}
	if _, ok := asCognition(c.Args[1]); !ok {
		return validationErr(c, "second arg must be a body cognition")
	}
	return nil
}

func validateTry(c *ail.Cognition) error {
	if len(c.Args) != 3 {
		return validationErr(c, "exactly 3 args required, got %d", len(c.Args))
	}
	if _, ok := asCognition(c.Args[0]); !ok {
		return validationErr(c, "first arg must be the attempt cognition")
	}
	if _, ok := c.Args[1].(ail.OnFailMarker); !ok {
		return validationErr(c, "second arg must be the literal token ON-FAIL")
	}
	if _, ok := asCognition(c.Args[2]); !ok {
		return validationErr(c, "third arg must be the recovery cognition")
	}
	return nil
}

func validateAwait(c *ail.Cognition) error {
	if len(c.Args) < 1 || len(c.Args) > 2 {
		return validationErr(c, "1 or 2 args required, got %d", len(c.Args))
	}
	if _, ok := asCognition(c.Args[0]); !ok {
		return validationErr(c, "first arg must be the awaited child cognition")
	}
	if len(c.Args) == 2 {
		m, ok := asMetadata(c.Args[1])
		if !ok {
			return validationErr(c, "second arg must be a metadata map")
		}
		if v, present := m["timeout_ms"]; present {
			if _, ok := asNumber(v); !ok {
				return validationErr(c, "timeout_ms must be a number")
			}
		}
	}
	return nil
}

func validateSandboxedExecute(c *ail.Cognition) error {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		return validationErr(c, "2 or 3 args required, got %d", len(c.Args))
	}
	if _, ok := asEntity(c.Args[0]); !ok {
		return validationErr(c, "first arg must be a [tool] entity")
	}
	if len(c.Args) == 3 {
		m, ok := asMetadata(c.Args[2])
		if !ok {
			return validationErr(c, "third arg must be a metadata map")
		}
		if _, present := m["policy"]; present {
			if _, ok := asMetadata(m["policy"]); !ok {
				return validationErr(c, "policy must be a metadata map")
			}
		}
	}
	return nil
}

func validateClarify(c *ail.Cognition) error {
	if len(c.Args) != 1 {
		return validationErr(c, "exactly 1 metadata arg required, got %d", len(c.Args))
	}
	m, ok := asMetadata(c.Args[0])
	if !ok {
		return validationErr(c, "arg must be a metadata map")
	}
	if v, ok := asString(m["ambiguous_intent"]); !ok || v == "" {
		return validationErr(c, "metadata must contain a non-empty ambiguous_intent:string")
	}
	if v, ok := asString(m["clarification_prompt"]); !ok || v == "" {
		return validationErr(c, "metadata must contain a non-empty clarification_prompt:string")
	}
	return nil
}

func validateEvent(c *ail.Cognition) error {
	if len(c.Args) != 1 {
		return validationErr(c, "exactly 1 metadata arg required, got %d", len(c.Args))
	}
	m, ok := asMetadata(c.Args[0])
	if !ok {
		return validationErr(c, "arg must be a metadata map")
	}
	if v, ok := asString(m["name"]); !ok || v == "" {
		return validationErr(c, "metadata must contain a non-empty name:string")
	}
	if _, present := m["trigger"]; !present {
		return validationErr(c, "metadata must contain a trigger")
	}
	if _, ok := asCognition(m["handler"]); !ok {
		return validationErr(c, "metadata must contain a handler:cognition")
	}
	return nil
}
