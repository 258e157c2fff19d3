package render

import (
	"fmt"
	"sort"
	"strings"
)

// filter describes how "x | name(args)" translates into HCL.
type filter struct {
	minArgs, maxArgs int
	boolean          bool
	emit             func(x string, args []string) string
}

func wrap(fn string) func(string, []string) string {
	return func(x string, _ []string) string { return fn + "(" + x + ")" }
}

func wrapString(fn string) func(string, []string) string {
	return func(x string, _ []string) string { return fn + "(tostr(" + x + "))" }
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

var filters = map[string]filter{
	"abs":        {emit: wrap("abs")},
	"bool":       {emit: wrap("to_bool"), boolean: true},
	"capitalize": {emit: wrapString("capitalize")},
	"count":      {emit: wrap("length")},
	"d":          {maxArgs: 2, emit: emitDefault},
	"default":    {maxArgs: 2, emit: emitDefault},
	"first":      {emit: wrap("first")},
	"float":      {emit: wrap("tonumber")},
	"indent": {maxArgs: 1, emit: func(x string, args []string) string {
		return fmt.Sprintf("indent(%s, tostr(%s))", argOr(args, 0, "4"), x)
	}},
	"int": {emit: wrap("to_int")},
	"join": {maxArgs: 1, emit: func(x string, args []string) string {
		return fmt.Sprintf("join(%s, [for elem in iter(%s) : tostr(elem)])", argOr(args, 0, `""`), x)
	}},
	"last":   {emit: wrap("last")},
	"length": {emit: wrap("length")},
	"lower":  {emit: wrapString("lower")},
	"max":    {emit: func(x string, _ []string) string { return "max(" + x + "...)" }},
	"min":    {emit: func(x string, _ []string) string { return "min(" + x + "...)" }},
	"replace": {minArgs: 2, maxArgs: 2, emit: func(x string, args []string) string {
		return fmt.Sprintf("replace(tostr(%s), %s, %s)", x, args[0], args[1])
	}},
	"sort": {emit: wrap("sort_values")},
	"split": {maxArgs: 1, emit: func(x string, args []string) string {
		return fmt.Sprintf("split(%s, tostr(%s))", argOr(args, 0, `" "`), x)
	}},
	"string": {emit: wrap("tostr")},
	"ternary": {minArgs: 2, maxArgs: 2, emit: func(x string, args []string) string {
		return fmt.Sprintf("(truthy(%s) ? %s : %s)", x, args[0], args[1])
	}},
	"title":   {emit: wrapString("title")},
	"to_json": {emit: wrap("jsonencode")},
	"tojson":  {emit: wrap("jsonencode")},
	"trim":    {emit: wrapString("trimspace")},
	"unique":  {emit: wrap("distinct")},
	"upper":   {emit: wrapString("upper")},
}

// emitDefault follows default(value, boolean=false): the fallback replaces
// an undefined value, or any falsy value when the second argument is true.
func emitDefault(x string, args []string) string {
	fallback := argOr(args, 0, `""`)
	if argOr(args, 1, "false") == "true" {
		return fmt.Sprintf("(truthy(try(%s, null)) ? try(%s, null) : %s)", x, x, fallback)
	}
	return fmt.Sprintf("try(%s, %s)", x, fallback)
}

func applyFilter(x operand, name string, args []operand, offset int) (operand, error) {
	f, ok := filters[name]
	if !ok {
		return operand{}, syntaxErrorf(offset, "unknown filter %q (available: %s)", name, strings.Join(FilterNames(), ", "))
	}
	if len(args) < f.minArgs || len(args) > f.maxArgs {
		return operand{}, syntaxErrorf(offset, "filter %q takes %s", name, arity(f.minArgs, f.maxArgs))
	}
	return operand{src: f.emit(x.src, sources(args)), boolean: f.boolean}, nil
}

// Method calls map onto filters; items(), keys() and values() follow the
// mapping's declared key order.
var methods = map[string]string{
	"lower": "lower",
	"strip": "trim",
	"split": "split",
	"upper": "upper",
}

func applyMethod(x operand, name string, args []operand, offset int) (operand, error) {
	switch name {
	case "items", "keys", "values":
		if len(args) > 0 {
			return operand{}, syntaxErrorf(offset, "%s() takes no arguments", name)
		}
		return operand{src: name + "(" + x.src + ")"}, nil
	}
	f, ok := methods[name]
	if !ok {
		return operand{}, syntaxErrorf(offset, "unknown method %q", name)
	}
	return applyFilter(x, f, args, offset)
}

// Only range() may be called directly.
func applyCall(name string, args []operand, offset int) (operand, error) {
	if name != "range" {
		return operand{}, syntaxErrorf(offset, "unknown function %q", name)
	}
	if len(args) < 1 || len(args) > 3 {
		return operand{}, syntaxErrorf(offset, "function \"range\" takes %s", arity(1, 3))
	}
	return operand{src: "range(" + strings.Join(sources(args), ", ") + ")"}, nil
}

func sources(args []operand) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.src
	}
	return out
}

func arity(lo, hi int) string {
	switch {
	case lo == hi && lo == 0:
		return "no arguments"
	case lo == hi:
		return fmt.Sprintf("exactly %d argument(s)", lo)
	}
	return fmt.Sprintf("%d to %d arguments", lo, hi)
}

// FilterNames lists the supported filters in sorted order.
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
