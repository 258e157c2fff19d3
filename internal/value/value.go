package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:    "null",
	KindString:  "string",
	KindInteger: "integer",
	KindFloat:   "float",
	KindBoolean: "boolean",
	KindList:    "list",
	KindMap:     "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable tagged variant. The zero Value is null.
//
// List and map payloads are shared between copies, so callers must treat the
// slices and maps returned by Items and Map as read-only.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
	list []Value
	m    *Map
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInteger, num: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// ListOf returns a list value holding a copy of items.
func ListOf(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// FromMap wraps m as a map value. A nil m becomes an empty map.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the payload of a string value, or "" for any other kind.
func (v Value) AsString() string { return v.str }

func (v Value) AsInt() int64 { return v.num }

func (v Value) AsFloat() float64 { return v.flt }

func (v Value) AsBool() bool { return v.b }

// Items returns the elements of a list value, or nil for any other kind.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Map returns the payload of a map value, or nil for any other kind.
func (v Value) Map() *Map {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Len reports the number of characters, elements or entries. Scalars other
// than strings report zero.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len(v.str)
	case KindList:
		return len(v.list)
	case KindMap:
		return v.m.Len()
	}
	return 0
}

// Equal reports deep equality. Integers and floats compare numerically and
// map comparison ignores key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		switch {
		case v.kind == KindInteger && o.kind == KindFloat:
			return float64(v.num) == o.flt
		case v.kind == KindFloat && o.kind == KindInteger:
			return v.flt == float64(o.num)
		}
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInteger:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt || (math.IsNaN(v.flt) && math.IsNaN(o.flt))
	case KindBoolean:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// String renders v for diagnostics and for interpolating scalars into text.
// Strings are returned verbatim; collections use a compact flow notation.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb, false)
	return sb.String()
}

// Describe is like String but quotes strings, for use in error messages.
func (v Value) Describe() string {
	var sb strings.Builder
	v.write(&sb, true)
	return sb.String()
}

func (v Value) write(sb *strings.Builder, quote bool) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindString:
		if quote {
			sb.WriteString(strconv.Quote(v.str))
		} else {
			sb.WriteString(v.str)
		}
	case KindInteger:
		sb.WriteString(strconv.FormatInt(v.num, 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.flt))
	case KindBoolean:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb, true)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		i := 0
		for k, item := range v.m.All() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			item.write(sb, true)
			i++
		}
		sb.WriteByte('}')
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
