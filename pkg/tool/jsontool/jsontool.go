// Package jsontool implements a cooperative "json" tool for
// validating and normalizing JSON text — a new tool with no teacher
// analogue, so it is stdlib-only (encoding/json); no pack library
// improves on parsing/re-serializing a JSON document.
package jsontool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/sandbox"
	"github.com/ailrun/ail/pkg/tool"
)

// Tool parses a JSON string and returns its canonical (compact,
// deterministic) re-encoding.
type Tool struct{}

// New creates the json tool.
func New() *Tool { return &Tool{} }

func (t *Tool) Info() tool.Info {
	return tool.Info{
		Name:        "json",
		Description: "Parse and normalize a JSON document",
		Parameters: []tool.Parameter{
			{Name: "document", Type: "string", Description: "raw JSON text", Required: true},
		},
	}
}

func (t *Tool) Mode() tool.Mode { return tool.Cooperative }

func (t *Tool) Capabilities() sandbox.Capabilities {
	return sandbox.Capabilities{}
}

// Execute expects params as []ail.Value with a single string element:
// the raw JSON document, matching EXECUTE [json] ["{...}"].
func (t *Tool) Execute(_ context.Context, params ail.Value) (tool.Result, error) {
	args, ok := params.([]ail.Value)
	if !ok || len(args) == 0 {
		err := fmt.Errorf("json: expected [document] parameters")
		return tool.Result{Success: false, Error: err.Error()}, err
	}
	doc, ok := args[0].(string)
	if !ok {
		err := fmt.Errorf("json: document parameter must be a string")
		return tool.Result{Success: false, Error: err.Error()}, err
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(doc), &decoded); err != nil {
		wrapped := fmt.Errorf("json: invalid document: %w", err)
		return tool.Result{Success: false, Error: wrapped.Error()}, wrapped
	}

	normalized, err := json.Marshal(decoded)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, err
	}

	return tool.Result{Success: true, Value: string(normalized)}, nil
}
