package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Combinator tags understood by the inventory grammar.
const (
	And = "and"
	Or  = "or"
	Not = "not"
)

// ErrMalformedQuery is returned by Parse for input that is not a valid
// query document.
var ErrMalformedQuery = errors.New("malformed query")

// Node is one element of the query AST: either a Leaf or a Combinator.
type Node interface {
	json.Marshaler
	isNode()
}

// Field is the left-hand side of a comparison. A fact field serializes as
// ["fact", name]; anything else is a flat field name such as "title".
type Field struct {
	Name string
	Fact bool
}

// FactField returns a fact-namespaced field.
func FactField(name string) Field { return Field{Name: name, Fact: true} }

// FlatField returns a plain field.
func FlatField(name string) Field { return Field{Name: name} }

// MarshalJSON implements json.Marshaler.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.Fact {
		return encode([]string{"fact", f.Name})
	}
	return encode(f.Name)
}

// Leaf is a single comparison [op, field, value].
type Leaf struct {
	Op    string
	Field Field
	Value string
}

func (Leaf) isNode() {}

// MarshalJSON implements json.Marshaler.
func (l Leaf) MarshalJSON() ([]byte, error) {
	return encode([]any{l.Op, l.Field, l.Value})
}

// Combinator composes one or more children under and/or/not.
type Combinator struct {
	Tag      string
	Children []Node
}

func (Combinator) isNode() {}

// MarshalJSON implements json.Marshaler.
func (c Combinator) MarshalJSON() ([]byte, error) {
	if len(c.Children) == 0 {
		return nil, fmt.Errorf("%w: %q combinator without children", ErrMalformedQuery, c.Tag)
	}
	out := make([]any, 0, len(c.Children)+1)
	out = append(out, c.Tag)
	for _, child := range c.Children {
		out = append(out, child)
	}
	return encode(out)
}

// Combine joins nodes under tag. A single node is returned as-is and an
// empty slice yields nil.
func Combine(tag string, nodes []Node) Node {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	return Combinator{Tag: tag, Children: nodes}
}

// Marshal serializes n to the wire form. A nil node yields nil bytes,
// meaning "no query parameter".
func Marshal(n Node) ([]byte, error) {
	if n == nil {
		return nil, nil
	}
	return encode(n)
}

// encode is json.Marshal without HTML escaping, so relational operators
// stay readable on the wire.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Parse reads the wire form back into an AST.
func Parse(data []byte) (Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}
	return parseNode(raw)
}

func parseNode(raw any) (Node, error) {
	arr, ok := raw.([]any)
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("%w: expected non-empty array, got %v", ErrMalformedQuery, raw)
	}
	head, ok := arr[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: operator must be a string, got %v", ErrMalformedQuery, arr[0])
	}

	switch head {
	case And, Or, Not:
		if len(arr) < 2 {
			return nil, fmt.Errorf("%w: %q combinator without children", ErrMalformedQuery, head)
		}
		children := make([]Node, 0, len(arr)-1)
		for _, c := range arr[1:] {
			child, err := parseNode(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return Combinator{Tag: head, Children: children}, nil
	}

	if len(arr) != 3 {
		return nil, fmt.Errorf("%w: %q comparison needs 3 elements, got %d", ErrMalformedQuery, head, len(arr))
	}
	field, err := parseField(arr[1])
	if err != nil {
		return nil, err
	}
	value, ok := arr[2].(string)
	if !ok {
		return nil, fmt.Errorf("%w: value must be a string, got %v", ErrMalformedQuery, arr[2])
	}
	return Leaf{Op: head, Field: field, Value: value}, nil
}

func parseField(raw any) (Field, error) {
	switch v := raw.(type) {
	case string:
		return FlatField(v), nil
	case []any:
		if len(v) == 2 {
			kind, _ := v[0].(string)
			name, ok := v[1].(string)
			if kind == "fact" && ok {
				return FactField(name), nil
			}
		}
	}
	return Field{}, fmt.Errorf("%w: unsupported field %v", ErrMalformedQuery, raw)
}
