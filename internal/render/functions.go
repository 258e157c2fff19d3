package render

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/vk/playbookgen/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions is the part of the function table that does not depend on key
// order; keyOrder.functions adds iter, items, keys, values and tostr.
// Translation only ever emits calls to names listed in the full table.
var functions = map[string]function.Function{
	"abs":           stdlib.AbsoluteFunc,
	"add":           addFunc,
	"can":           tryfunc.CanFunc,
	"compare":       compareFunc,
	"capitalize":    capitalizeFunc,
	"distinct":      stdlib.DistinctFunc,
	"first":         firstFunc,
	"floor":         stdlib.FloorFunc,
	"format":        stdlib.FormatFunc,
	"in_collection": inCollectionFunc,
	"indent":        stdlib.IndentFunc,
	"join":          stdlib.JoinFunc,
	"jsonencode":    stdlib.JSONEncodeFunc,
	"last":          lastFunc,
	"length":        lengthFunc,
	"lower":         stdlib.LowerFunc,
	"max":           stdlib.MaxFunc,
	"min":           stdlib.MinFunc,
	"pow":           stdlib.PowFunc,
	"range":         stdlib.RangeFunc,
	"replace":       stdlib.ReplaceFunc,
	"sort_values":   sortValuesFunc,
	"split":         stdlib.SplitFunc,
	"title":         stdlib.TitleFunc,
	"to_bool":       toBoolFunc,
	"to_int":        toIntFunc,
	"tonumber":      stdlib.MakeToFunc(cty.Number),
	"trimspace":     stdlib.TrimSpaceFunc,
	"truthy":        truthyFunc,
	"try":           tryfunc.TryFunc,
	"upper":         stdlib.UpperFunc,
}

func anyParam(name string) function.Parameter {
	return function.Parameter{Name: name, Type: cty.DynamicPseudoType, AllowNull: true}
}

func toValue(v cty.Value) (value.Value, error) {
	return value.FromCty(v)
}

var truthyFunc = function.New(&function.Spec{
	Params: []function.Parameter{anyParam("value")},
	Type:   function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v, err := toValue(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		return cty.BoolVal(v.Truthy()), nil
	},
})

var toBoolFunc = function.New(&function.Spec{
	Params: []function.Parameter{anyParam("value")},
	Type:   function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v, err := toValue(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		switch v.Kind() {
		case value.KindString:
			b, _ := value.ParseBool(v.AsString())
			return cty.BoolVal(b), nil
		case value.KindMap, value.KindList:
			return cty.NilVal, fmt.Errorf("cannot convert %s to boolean", v.Kind())
		}
		return cty.BoolVal(v.Truthy()), nil
	},
})

var toIntFunc = function.New(&function.Spec{
	Params: []function.Parameter{anyParam("value")},
	Type:   function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v, err := toValue(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		switch v.Kind() {
		case value.KindInteger:
			return cty.NumberIntVal(v.AsInt()), nil
		case value.KindFloat:
			return cty.NumberIntVal(int64(v.AsFloat())), nil
		case value.KindBoolean:
			if v.AsBool() {
				return cty.NumberIntVal(1), nil
			}
			return cty.NumberIntVal(0), nil
		case value.KindString:
			s := strings.TrimSpace(v.AsString())
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return cty.NumberIntVal(i), nil
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return cty.NumberIntVal(int64(f)), nil
			}
			return cty.NilVal, fmt.Errorf("cannot convert %q to integer", s)
		}
		return cty.NilVal, fmt.Errorf("cannot convert %s to integer", v.Kind())
	},
})

var capitalizeFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "str", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		s := args[0].AsString()
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return cty.StringVal(s), nil
		}
		return cty.StringVal(string(unicode.ToUpper(r)) + strings.ToLower(s[size:])), nil
	},
})

// length counts characters of strings and elements of collections.
var lengthFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "value", Type: cty.DynamicPseudoType}},
	Type:   function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v := args[0]
		ty := v.Type()
		switch {
		case ty == cty.String:
			return cty.NumberIntVal(int64(utf8.RuneCountInString(v.AsString()))), nil
		case ty.IsCollectionType() || ty.IsTupleType() || ty.IsObjectType():
			return cty.NumberIntVal(int64(v.LengthInt())), nil
		}
		return cty.NilVal, fmt.Errorf("value of type %s has no length", ty.FriendlyName())
	},
})

func tuple(elems []cty.Value) cty.Value {
	if len(elems) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(elems)
}

// in_collection implements the "in" operator: substring for strings, key
// membership for mappings, element membership for sequences.
var inCollectionFunc = function.New(&function.Spec{
	Params: []function.Parameter{anyParam("needle"), {Name: "haystack", Type: cty.DynamicPseudoType}},
	Type:   function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		needle, err := toValue(args[0])
		if err != nil {
			return cty.NilVal, err
		}
		haystack, err := toValue(args[1])
		if err != nil {
			return cty.NilVal, err
		}
		switch haystack.Kind() {
		case value.KindString:
			if needle.Kind() != value.KindString {
				return cty.NilVal, fmt.Errorf("'in <string>' requires a string on the left, got %s", needle.Kind())
			}
			return cty.BoolVal(strings.Contains(haystack.AsString(), needle.AsString())), nil
		case value.KindMap:
			if needle.Kind() != value.KindString {
				return cty.False, nil
			}
			return cty.BoolVal(haystack.Map().Has(needle.AsString())), nil
		case value.KindList:
			for _, item := range haystack.Items() {
				if item.Equal(needle) {
					return cty.True, nil
				}
			}
			return cty.False, nil
		}
		return cty.NilVal, fmt.Errorf("'in' requires a string, list or mapping on the right, got %s", haystack.Kind())
	},
})

func endElement(first bool) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "value", Type: cty.DynamicPseudoType}},
		Type:   function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v := args[0]
			ty := v.Type()
			switch {
			case ty == cty.String:
				r := []rune(v.AsString())
				if len(r) == 0 {
					return cty.NullVal(cty.DynamicPseudoType), nil
				}
				if first {
					return cty.StringVal(string(r[0])), nil
				}
				return cty.StringVal(string(r[len(r)-1])), nil
			case ty.IsListType() || ty.IsTupleType():
				n := v.LengthInt()
				if n == 0 {
					return cty.NullVal(cty.DynamicPseudoType), nil
				}
				if first {
					return v.Index(cty.NumberIntVal(0)), nil
				}
				return v.Index(cty.NumberIntVal(int64(n - 1))), nil
			}
			return cty.NilVal, fmt.Errorf("value of type %s has no elements", ty.FriendlyName())
		},
	})
}

var (
	firstFunc = endElement(true)
	lastFunc  = endElement(false)
)

// sort_values orders a sequence of numbers numerically or of strings
// lexically. Mixed sequences are rejected.
var sortValuesFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "list", Type: cty.DynamicPseudoType}},
	Type:   function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v := args[0]
		ty := v.Type()
		if !(ty.IsListType() || ty.IsTupleType() || ty.IsSetType()) {
			return cty.NilVal, fmt.Errorf("cannot sort %s", ty.FriendlyName())
		}
		var elems []cty.Value
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			if e.IsNull() {
				return cty.NilVal, fmt.Errorf("cannot sort a list containing null")
			}
			elems = append(elems, e)
		}
		if len(elems) == 0 {
			return cty.EmptyTupleVal, nil
		}
		kind := elems[0].Type()
		for _, e := range elems {
			if !e.Type().Equals(kind) || (kind != cty.String && kind != cty.Number) {
				return cty.NilVal, fmt.Errorf("can only sort lists of all strings or all numbers")
			}
		}
		sort.SliceStable(elems, func(i, j int) bool {
			if kind == cty.Number {
				return elems[i].AsBigFloat().Cmp(elems[j].AsBigFloat()) < 0
			}
			return elems[i].AsString() < elems[j].AsString()
		})
		return cty.TupleVal(elems), nil
	},
})

// add implements "+": numeric addition, string concatenation or sequence
// concatenation.
var addFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "a", Type: cty.DynamicPseudoType}, {Name: "b", Type: cty.DynamicPseudoType}},
	Type:   function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		a, b := args[0], args[1]
		at, bt := a.Type(), b.Type()
		switch {
		case at == cty.Number && bt == cty.Number:
			sum := new(big.Float).Add(a.AsBigFloat(), b.AsBigFloat())
			return cty.NumberVal(sum), nil
		case at == cty.String && bt == cty.String:
			return cty.StringVal(a.AsString() + b.AsString()), nil
		case isSequence(at) && isSequence(bt):
			var elems []cty.Value
			for _, s := range []cty.Value{a, b} {
				for it := s.ElementIterator(); it.Next(); {
					_, e := it.Element()
					elems = append(elems, e)
				}
			}
			return tuple(elems), nil
		}
		return cty.NilVal, fmt.Errorf("unsupported operand types for +: %s and %s", at.FriendlyName(), bt.FriendlyName())
	},
})

func isSequence(ty cty.Type) bool {
	return ty.IsListType() || ty.IsTupleType()
}

// compare implements the ordering operators. Numbers compare numerically and
// strings lexically; any other pairing is an error.
var compareFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "a", Type: cty.DynamicPseudoType},
		{Name: "op", Type: cty.String},
		{Name: "b", Type: cty.DynamicPseudoType},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		a, op, b := args[0], args[1].AsString(), args[2]
		at, bt := a.Type(), b.Type()
		var c int
		switch {
		case at == cty.Number && bt == cty.Number:
			c = a.AsBigFloat().Cmp(b.AsBigFloat())
		case at == cty.String && bt == cty.String:
			c = strings.Compare(a.AsString(), b.AsString())
		default:
			return cty.NilVal, fmt.Errorf("'%s' not supported between %s and %s", op, at.FriendlyName(), bt.FriendlyName())
		}
		switch op {
		case "<":
			return cty.BoolVal(c < 0), nil
		case "<=":
			return cty.BoolVal(c <= 0), nil
		case ">":
			return cty.BoolVal(c > 0), nil
		case ">=":
			return cty.BoolVal(c >= 0), nil
		}
		return cty.NilVal, fmt.Errorf("unknown comparison %q", op)
	},
})
