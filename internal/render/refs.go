package render

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/playbookgen/internal/value"
)

// References returns the sorted root names a template reads from its
// context. Loop variables are local and excluded. Names read only under an
// "is defined" test or a default filter are excluded too, since their absence
// is handled by the template itself.
//
// An error means the template does not translate: bad syntax, an unknown
// filter or an unknown function.
func References(template string) ([]string, error) {
	if !HasTemplate(template) {
		return nil, nil
	}
	expr, err := compile(template)
	if err != nil {
		return nil, err
	}

	guarded := guardedRanges(expr)
	seen := make(map[string]struct{})
	for _, traversal := range expr.Variables() {
		if isGuarded(traversal.SourceRange(), guarded) {
			continue
		}
		seen[traversal.RootName()] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValueReferences collects References for every template string inside v.
// Errors carry the path of the offending template.
func ValueReferences(v value.Value) ([]string, error) {
	seen := make(map[string]struct{})
	if err := collectReferences(v, "", seen); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func collectReferences(v value.Value, path string, seen map[string]struct{}) error {
	switch v.Kind() {
	case value.KindString:
		names, err := References(v.AsString())
		if err != nil {
			return &Error{Path: path, Template: v.AsString(), Err: err}
		}
		for _, n := range names {
			seen[n] = struct{}{}
		}
	case value.KindList:
		for i, item := range v.Items() {
			if err := collectReferences(item, fmt.Sprintf("%s[%d]", path, i), seen); err != nil {
				return err
			}
		}
	case value.KindMap:
		for k, item := range v.Map().All() {
			if err := collectReferences(item, joinPath(path, k), seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// guardedRanges finds the argument ranges of can() and of every try()
// argument except the fallback.
func guardedRanges(expr hclsyntax.Expression) []hcl.Range {
	var ranges []hcl.Range
	hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		call, ok := n.(*hclsyntax.FunctionCallExpr)
		if !ok {
			return nil
		}
		switch call.Name {
		case "can":
			for _, arg := range call.Args {
				ranges = append(ranges, arg.Range())
			}
		case "try":
			if len(call.Args) == 0 {
				return nil
			}
			for _, arg := range call.Args[:len(call.Args)-1] {
				ranges = append(ranges, arg.Range())
			}
		}
		return nil
	})
	return ranges
}

func isGuarded(r hcl.Range, guarded []hcl.Range) bool {
	for _, g := range guarded {
		if g.ContainsOffset(r.Start.Byte) && r.End.Byte <= g.End.Byte {
			return true
		}
	}
	return false
}
