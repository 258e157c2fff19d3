package render

import (
	"fmt"
	"maps"

	"github.com/vk/playbookgen/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// keyOrder records the declared key order of every mapping in a render
// context, indexed by the mapping's content. cty objects iterate their
// attributes lexically, so loops, items(), keys(), values() and results
// converted back into values look the order up here. A mapping built inside
// a template has no entry and keeps the lexical order.
type keyOrder map[string][]string

func newKeyOrder(ctx *value.Map) keyOrder {
	o := keyOrder{}
	for _, v := range ctx.All() {
		o.add(v)
	}
	return o
}

func (o keyOrder) add(v value.Value) {
	switch v.Kind() {
	case value.KindList:
		for _, item := range v.Items() {
			o.add(item)
		}
	case value.KindMap:
		for _, item := range v.Map().All() {
			o.add(item)
		}
		sig, err := signature(v.Cty())
		if err != nil {
			return
		}
		// Equal content declared in two orders keeps the first.
		if _, seen := o[sig]; !seen {
			o[sig] = v.Map().Keys()
		}
	}
}

func signature(cv cty.Value) (string, error) {
	cv, _ = cv.UnmarkDeep()
	b, err := ctyjson.Marshal(cv, cv.Type())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// keys lists the attribute names of an object or map value.
func (o keyOrder) keys(cv cty.Value) []string {
	var lexical []string
	for it := cv.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		lexical = append(lexical, k.AsString())
	}
	if len(o) == 0 {
		return lexical
	}
	if sig, err := signature(cv); err == nil {
		if declared, ok := o[sig]; ok && len(declared) == len(lexical) {
			return declared
		}
	}
	return lexical
}

// restore rebuilds every mapping inside v in its declared order.
func (o keyOrder) restore(v value.Value) value.Value {
	if len(o) == 0 {
		return v
	}
	switch v.Kind() {
	case value.KindList:
		items := v.Items()
		out := make([]value.Value, len(items))
		for i, item := range items {
			out[i] = o.restore(item)
		}
		return value.ListOf(out...)
	case value.KindMap:
		m := v.Map()
		keys := m.Keys()
		if sig, err := signature(v.Cty()); err == nil {
			if declared, ok := o[sig]; ok && len(declared) == len(keys) {
				keys = declared
			}
		}
		out := value.NewMap()
		for _, k := range keys {
			item, _ := m.Get(k)
			out.Set(k, o.restore(item))
		}
		return value.FromMap(out)
	}
	return v
}

func entry(v cty.Value, k string) cty.Value {
	if v.Type().IsObjectType() {
		return v.GetAttr(k)
	}
	return v.Index(cty.StringVal(k))
}

func (o keyOrder) value(cv cty.Value) (value.Value, error) {
	v, err := value.FromCty(cv)
	if err != nil {
		return value.Value{}, err
	}
	return o.restore(v), nil
}

// functions returns the function table with the order-sensitive entries
// bound to o.
func (o keyOrder) functions() map[string]function.Function {
	fns := maps.Clone(functions)
	fns["iter"] = o.iterFunc()
	fns["items"] = o.itemsFunc()
	fns["keys"] = o.entriesFunc(false)
	fns["values"] = o.entriesFunc(true)
	fns["tostr"] = o.toStrFunc()
	return fns
}

// iter yields what a for loop visits: elements of sequences, keys of
// mappings, characters of strings.
func (o keyOrder) iterFunc() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "collection", Type: cty.DynamicPseudoType}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v := args[0]
			ty := v.Type()
			switch {
			case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
				return v, nil
			case ty.IsMapType() || ty.IsObjectType():
				var keys []cty.Value
				for _, k := range o.keys(v) {
					keys = append(keys, cty.StringVal(k))
				}
				return tuple(keys), nil
			case ty == cty.String:
				var chars []cty.Value
				for _, r := range v.AsString() {
					chars = append(chars, cty.StringVal(string(r)))
				}
				return tuple(chars), nil
			}
			return cty.NilVal, fmt.Errorf("cannot iterate over %s", ty.FriendlyName())
		},
	})
}

// items yields [key, value] pairs of a mapping. Sequences pass through so
// that a two-name loop can unpack their elements.
func (o keyOrder) itemsFunc() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "collection", Type: cty.DynamicPseudoType}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v := args[0]
			ty := v.Type()
			switch {
			case isSequence(ty):
				return v, nil
			case ty.IsMapType() || ty.IsObjectType():
				var pairs []cty.Value
				for _, k := range o.keys(v) {
					pairs = append(pairs, cty.TupleVal([]cty.Value{cty.StringVal(k), entry(v, k)}))
				}
				return tuple(pairs), nil
			}
			return cty.NilVal, fmt.Errorf("cannot unpack items of %s", ty.FriendlyName())
		},
	})
}

func (o keyOrder) entriesFunc(values bool) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "mapping", Type: cty.DynamicPseudoType}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v := args[0]
			ty := v.Type()
			if !ty.IsMapType() && !ty.IsObjectType() {
				return cty.NilVal, fmt.Errorf("%s is not a mapping", ty.FriendlyName())
			}
			var out []cty.Value
			for _, k := range o.keys(v) {
				if values {
					out = append(out, entry(v, k))
				} else {
					out = append(out, cty.StringVal(k))
				}
			}
			return tuple(out), nil
		},
	})
}

// tostr renders any value as text. Null becomes the empty string and
// collections use a compact flow notation.
func (o keyOrder) toStrFunc() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{anyParam("value")},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v, err := o.value(args[0])
			if err != nil {
				return cty.NilVal, err
			}
			if v.IsNull() {
				return cty.StringVal(""), nil
			}
			return cty.StringVal(v.String()), nil
		},
	})
}
