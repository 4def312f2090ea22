package kernel

import (
	"github.com/ailrun/ail/pkg/ail"
	aerrors "github.com/ailrun/ail/pkg/errors"
)

// Frame is a lexical variable scope introduced by LET (spec.md §4.7).
// Its lifetime is exactly the dynamic extent of the LET that created
// it; the evaluator drops it on every exit path.
type Frame struct {
	parent     *Frame
	bindings   map[string]ail.Value
	scopeLevel int
}

// newRootFrame creates the scope_level=0 frame for a root execute call.
func newRootFrame() *Frame {
	return &Frame{bindings: make(map[string]ail.Value)}
}

// child creates a new frame nested under f, one scope_level deeper.
func (f *Frame) child() *Frame {
	return &Frame{parent: f, bindings: make(map[string]ail.Value), scopeLevel: f.scopeLevel + 1}
}

// set installs name into the innermost (this) frame.
func (f *Frame) set(name string, value ail.Value) {
	f.bindings[name] = value
}

// get walks parent pointers looking for name.
func (f *Frame) get(name string) (ail.Value, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// mustGet is get, turned into spec.md §7's UnboundVariable error.
func (f *Frame) mustGet(name string) (ail.Value, error) {
	v, ok := f.get(name)
	if !ok {
		return nil, aerrors.New(aerrors.KindUnboundVariable, "unbound variable: "+name)
	}
	return v, nil
}
