package value

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// Cty converts v into a cty value for template evaluation. Lists become
// tuples and maps become objects so that heterogeneous elements survive.
func (v Value) Cty() cty.Value {
	switch v.kind {
	case KindString:
		return cty.StringVal(v.str)
	case KindInteger:
		return cty.NumberIntVal(v.num)
	case KindFloat:
		return cty.NumberFloatVal(v.flt)
	case KindBoolean:
		return cty.BoolVal(v.b)
	case KindList:
		if len(v.list) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(v.list))
		for i, item := range v.list {
			elems[i] = item.Cty()
		}
		return cty.TupleVal(elems)
	case KindMap:
		return cty.ObjectVal(v.m.CtyAttributes())
	}
	return cty.NullVal(cty.DynamicPseudoType)
}

// CtyAttributes converts every entry of m. The result is suitable both as an
// object's attributes and as hcl.EvalContext variables.
func (m *Map) CtyAttributes() map[string]cty.Value {
	attrs := make(map[string]cty.Value, m.Len())
	for k, v := range m.All() {
		attrs[k] = v.Cty()
	}
	return attrs
}

// FromCty converts an evaluated cty value back into a Value. Whole numbers
// that fit in an int64 become integers. Object attributes come back in
// lexical order because cty does not retain declaration order.
func FromCty(cv cty.Value) (Value, error) {
	cv, _ = cv.UnmarkDeep()
	if cv.IsNull() {
		return Null(), nil
	}
	if !cv.IsWhollyKnown() {
		return Value{}, errors.New("value is not known")
	}
	ty := cv.Type()
	switch {
	case ty == cty.String:
		return String(cv.AsString()), nil
	case ty == cty.Number:
		bf := cv.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return Float(f), nil
	case ty == cty.Bool:
		return Bool(cv.True()), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]Value, 0, cv.LengthInt())
		for it := cv.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			item, err := FromCty(ev)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items}, nil
	case ty.IsObjectType() || ty.IsMapType():
		m := NewMap()
		for it := cv.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			item, err := FromCty(ev)
			if err != nil {
				return Value{}, err
			}
			m.Set(k.AsString(), item)
		}
		return FromMap(m), nil
	}
	return Value{}, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}
