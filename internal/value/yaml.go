package value

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromNode converts a yaml.v3 node tree into a Value, preserving mapping key
// order. Aliases are followed and merge keys ("<<") are expanded.
func FromNode(n *yaml.Node) (Value, error) {
	if n == nil {
		return Null(), nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.ScalarNode:
		return scalarFromNode(n)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := FromNode(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items}, nil
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			kn, vn := n.Content[i], n.Content[i+1]
			if kn.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping keys must be scalars", kn.Line)
			}
			v, err := FromNode(vn)
			if err != nil {
				return Value{}, err
			}
			if kn.ShortTag() == "!!merge" {
				if err := mergeInto(m, v, kn.Line); err != nil {
					return Value{}, err
				}
				continue
			}
			m.Set(kn.Value, v)
		}
		return FromMap(m), nil
	}
	return Value{}, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

func mergeInto(m *Map, v Value, line int) error {
	var sources []Value
	switch v.Kind() {
	case KindMap:
		sources = []Value{v}
	case KindList:
		sources = v.Items()
	default:
		return fmt.Errorf("line %d: merge key requires a mapping", line)
	}
	for _, src := range sources {
		if src.Kind() != KindMap {
			return fmt.Errorf("line %d: merge key requires a mapping", line)
		}
		for k, item := range src.Map().All() {
			if !m.Has(k) {
				m.Set(k, item)
			}
		}
	}
	return nil
}

func scalarFromNode(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			var f float64
			if ferr := n.Decode(&f); ferr != nil {
				return Value{}, err
			}
			return Float(f), nil
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	}
	return String(n.Value), nil
}

// Node converts v into a yaml.v3 node tree. Strings are always tagged !!str so
// that values such as "80" or "yes" stay quoted, and multi-line strings use
// literal block style.
func (v Value) Node() *yaml.Node {
	switch v.kind {
	case KindString:
		n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
		switch {
		case strings.Contains(strings.TrimRight(v.str, "\n"), "\n"):
			n.Style = yaml.LiteralStyle
		case isLegacyBool(v.str):
			// YAML 1.1 readers such as Ansible treat these as booleans.
			n.Style = yaml.DoubleQuotedStyle
		}
		return n
	case KindInteger:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.num, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(v.flt)}
	case KindBoolean:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			n.Content = append(n.Content, item.Node())
		}
		return n
	case KindMap:
		return v.m.Node()
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// Node converts m into a mapping node in insertion order.
func (m *Map) Node() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range m.All() {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			v.Node(),
		)
	}
	return n
}

func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	out, err := FromNode(n)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	return v.Node(), nil
}

func (m *Map) UnmarshalYAML(n *yaml.Node) error {
	v, err := FromNode(n)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case KindNull:
		*m = Map{}
	case KindMap:
		*m = *v.Map()
	default:
		return fmt.Errorf("line %d: expected a mapping, got %s", n.Line, v.Kind())
	}
	return nil
}

func (m *Map) MarshalYAML() (any, error) {
	return m.Node(), nil
}

func isLegacyBool(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "n", "no", "on", "off", "true", "false":
		return true
	}
	return false
}

// ParseYAML decodes a single YAML document into a Value.
func ParseYAML(data []byte) (Value, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return Value{}, err
	}
	return FromNode(&n)
}
