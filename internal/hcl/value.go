package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// exprValue evaluates a static expression. Object and tuple constructors are
// walked item by item so object keys keep their source order, which a cty
// object value would sort.
func exprValue(expr hcl.Expression) (value.Value, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.ParenthesesExpr:
		return exprValue(e.Expression)

	case *hclsyntax.ObjectConsExpr:
		var diags hcl.Diagnostics
		m := value.NewMap()
		for _, item := range e.Items {
			key, keyDiags := objectKey(item.KeyExpr)
			diags = append(diags, keyDiags...)
			v, valDiags := exprValue(item.ValueExpr)
			diags = append(diags, valDiags...)
			if keyDiags.HasErrors() || valDiags.HasErrors() {
				continue
			}
			m.Set(key, v)
		}
		return value.FromMap(m), diags

	case *hclsyntax.TupleConsExpr:
		var diags hcl.Diagnostics
		items := make([]value.Value, 0, len(e.Exprs))
		for _, item := range e.Exprs {
			v, moreDiags := exprValue(item)
			diags = append(diags, moreDiags...)
			items = append(items, v)
		}
		return value.ListOf(items...), diags
	}

	cv, diags := expr.Value(nil)
	if diags.HasErrors() {
		return value.Value{}, diags
	}
	v, err := value.FromCty(cv)
	if err != nil {
		return value.Value{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported value",
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		}}
	}
	return v, nil
}

func objectKey(expr hcl.Expression) (string, hcl.Diagnostics) {
	kv, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	kv, err := convert.Convert(kv, cty.String)
	if err != nil || kv.IsNull() {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid object key",
			Detail:   "Object keys must be strings.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	return kv.AsString(), nil
}

// promptType reads a prompt type written either as a keyword (type = integer)
// or as a string (type = "integer"). Unknown names are passed through so
// module validation reports them with the other defects.
func promptType(expr hcl.Expression) (schema.PromptType, hcl.Diagnostics) {
	if traversal, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		if len(traversal) != 1 {
			return "", hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid type specification",
				Detail:   "The type must be a simple keyword such as string or integer.",
				Subject:  expr.Range().Ptr(),
			}}
		}
		return schema.PromptType(traversal.RootName()), nil
	}

	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if v.IsNull() || !v.Type().Equals(cty.String) {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid type specification",
			Detail:   fmt.Sprintf("The type must be a keyword or a string, got %s.", v.Type().FriendlyName()),
			Subject:  expr.Range().Ptr(),
		}}
	}
	return schema.PromptType(v.AsString()), nil
}
