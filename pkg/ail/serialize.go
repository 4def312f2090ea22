package ail

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Serialize renders c in canonical form: normalized whitespace and
// metadata keys sorted lexicographically. Two trees that are
// structurally equal (ignoring IDs) always serialize identically, and
// re-parsing the result reproduces the same tree shape — spec.md §8's
// idempotent serialize/reparse property.
func Serialize(c *Cognition) string {
	var sb strings.Builder
	writeCognition(&sb, c)
	return sb.String()
}

func writeCognition(sb *strings.Builder, c *Cognition) {
	sb.WriteByte('(')
	sb.WriteString(string(c.Operation))
	for i, a := range c.Args {
		sb.WriteByte(' ')
		if bindings, ok := a.([]Value); c.Operation == OpLet && i == 0 && ok && isBindingList(bindings) {
			writeBindingList(sb, bindings)
			continue
		}
		writeValue(sb, a)
	}
	sb.WriteByte(')')
}

// isBindingList reports whether every element of a LET's first
// argument is an (name cognition) pair, i.e. an *Entity — the shape
// parseBindingList produces. An empty list is vacuously a binding
// list, matching "(LET () body)".
func isBindingList(bindings []Value) bool {
	for _, b := range bindings {
		if _, ok := b.(*Entity); !ok {
			return false
		}
	}
	return true
}

// writeBindingList renders LET's first argument as "((name cog) ...)",
// the mirror of parseBindingList.
func writeBindingList(sb *strings.Builder, bindings []Value) {
	sb.WriteByte('(')
	for _, b := range bindings {
		e := b.(*Entity)
		sb.WriteByte('(')
		sb.WriteString(e.Name)
		sb.WriteByte(' ')
		writeValue(sb, e.Payload)
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
}

func writeValue(sb *strings.Builder, v Value) {
	switch t := v.(type) {
	case *Cognition:
		writeCognition(sb, t)
	case *Entity:
		writeEntity(sb, t)
	case OnFailMarker:
		sb.WriteString("ON-FAIL")
	case string:
		writeString(sb, t)
	case float64:
		sb.WriteString(formatNumber(t))
	case bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case nil:
		sb.WriteString("null")
	case []Value:
		writeArray(sb, t)
	case map[string]Value:
		writeMetadata(sb, t)
	}
}

func writeEntity(sb *strings.Builder, e *Entity) {
	sb.WriteByte('[')
	sb.WriteString(e.Name)
	if e.Payload != nil {
		sb.WriteByte(':')
		writeValue(sb, e.Payload)
	}
	sb.WriteByte(']')
}

func writeArray(sb *strings.Builder, arr []Value) {
	sb.WriteByte('[')
	for i, v := range arr {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeValue(sb, v)
	}
	sb.WriteByte(']')
}

func writeMetadata(sb *strings.Builder, m map[string]Value) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeString(sb, k)
		sb.WriteByte(':')
		writeValue(sb, m[k])
	}
	sb.WriteByte('}')
}

func writeString(sb *strings.Builder, s string) {
	encoded, _ := json.Marshal(s)
	sb.Write(encoded)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
