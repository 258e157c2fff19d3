package value

import (
	"fmt"
	"sort"
)

// FromAny converts plain Go data into a Value. Go maps carry no order, so
// their keys are sorted.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Map:
		return FromMap(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case []Value:
		return ListOf(t...), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindList, list: items}, nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			item, err := FromAny(t[k])
			if err != nil {
				return Value{}, err
			}
			m.Set(k, item)
		}
		return FromMap(m), nil
	}
	return Value{}, fmt.Errorf("unsupported Go type %T", x)
}

// MustFromAny is FromAny for literals known to be valid.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ToAny converts v into plain Go data. Map order is lost.
func (v Value) ToAny() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return v.num
	case KindFloat:
		return v.flt
	case KindBoolean:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		for k, item := range v.m.All() {
			out[k] = item.ToAny()
		}
		return out
	}
	return nil
}
