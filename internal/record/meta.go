package record

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Well-known frontmatter keys. The set of keys is open (metadata is a
// string-keyed mapping), but these are the ones the engine itself reads.
const (
	KeyTitle        = "title"
	KeyName         = "name"
	KeyDate         = "date"
	KeyUpdated      = "updated"
	KeyCategory     = "category"
	KeyPriority     = "priority"
	KeyQuadrant     = "quadrant"
	KeyDeadline     = "deadline"
	KeyRole         = "role"
	KeyOrganization = "organization"
	KeyEmail        = "email"
	KeyPhone        = "phone"
	KeyLocation     = "location"
	KeyTimezone     = "timezone"
	KeyTags         = "tags"
	KeyRelatedTo    = "related_to"
	KeyDerivedFrom  = "derived_from"
	KeySourceEmails = "source_emails"
)

// Kind distinguishes the closed set of metadata value shapes.
type Kind uint8

// Supported value shapes: scalars (string, int, bool) and lists of strings.
const (
	KindString Kind = iota
	KindInt
	KindBool
	KindList
)

// Value is one tagged metadata value.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Bool bool
	List []string
}

// S builds a string value.
func S(s string) Value { return Value{Kind: KindString, Str: s} }

// I builds an integer value.
func I(i int64) Value { return Value{Kind: KindInt, Int: i} }

// B builds a boolean value.
func B(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// L builds a list-of-strings value.
func L(items ...string) Value { return Value{Kind: KindList, List: items} }

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindInt:
		return v.Int == o.Int
	case KindBool:
		return v.Bool == o.Bool
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Field is one key/value pair of a metadata block.
type Field struct {
	Key   string
	Value Value
}

// Meta is an ordered string-keyed metadata mapping. Field order is
// preserved through decode/encode so that backlink injection rewrites
// produce minimal diffs.
type Meta struct {
	fields []Field
}

// NewMeta builds a Meta from fields in the given order.
func NewMeta(fields ...Field) *Meta {
	return &Meta{fields: fields}
}

// Len returns the number of fields.
func (m *Meta) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// Fields returns the fields in order. The slice is shared; do not mutate.
func (m *Meta) Fields() []Field {
	if m == nil {
		return nil
	}
	return m.fields
}

// Get returns the value for key.
func (m *Meta) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, f := range m.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// String returns the string value for key, or "" if absent or not a string.
func (m *Meta) String(key string) string {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// List returns the string list for key, or nil if absent or not a list.
func (m *Meta) List(key string) []string {
	v, ok := m.Get(key)
	if !ok || v.Kind != KindList {
		return nil
	}
	return v.List
}

// Set replaces the value for key in place, or appends the field when the
// key is not yet present.
func (m *Meta) Set(key string, v Value) {
	for i, f := range m.fields {
		if f.Key == key {
			m.fields[i].Value = v
			return
		}
	}
	m.fields = append(m.fields, Field{Key: key, Value: v})
}

// Equal reports whether two metadata blocks have the same fields in the
// same order with equal values.
func (m *Meta) Equal(o *Meta) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, f := range m.Fields() {
		of := o.Fields()[i]
		if f.Key != of.Key || !f.Value.Equal(of.Value) {
			return false
		}
	}
	return true
}

// marshalYAML renders the metadata block as YAML, preserving field order.
func (m *Meta) marshalYAML() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range m.Fields() {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}
		valNode, err := valueNode(f.Value)
		if err != nil {
			return nil, fmt.Errorf("record: field %s: %w", f.Key, err)
		}
		root.Content = append(root.Content, keyNode, valNode)
	}
	return yaml.Marshal(root)
}

func valueNode(v Value) (*yaml.Node, error) {
	switch v.Kind {
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str}, nil
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.Int, 10)}, nil
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.Bool)}, nil
	case KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(v.List) == 0 {
			seq.Style = yaml.FlowStyle
		}
		for _, item := range v.List {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %d", v.Kind)
	}
}

// parseMeta parses a YAML metadata block into the closed value model.
// Scalars that are not ints or bools (including dates and timestamps) are
// kept as their literal string form. Nested mappings and non-scalar list
// items are outside the supported shape and fail the parse.
func parseMeta(block []byte) (*Meta, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &Meta{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("metadata block is not a mapping")
	}

	m := &Meta{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val, err := parseValue(root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		m.fields = append(m.fields, Field{Key: key, Value: val})
	}
	return m, nil
}

func parseValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!int":
			i, err := strconv.ParseInt(n.Value, 10, 64)
			if err != nil {
				return S(n.Value), nil
			}
			return I(i), nil
		case "!!bool":
			return B(n.Value == "true" || n.Value == "True"), nil
		case "!!null":
			return S(""), nil
		default:
			return S(n.Value), nil
		}
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("list items must be scalars")
			}
			items = append(items, c.Value)
		}
		return L(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value shape")
	}
}
