package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/playbookgen/internal/ctxlog"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

// BlockError holds the error diagnostics of one module block. Module is the
// block's name label.
type BlockError struct {
	Module string
	Diags  hcl.Diagnostics
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("module %q: %s", e.Module, e.Diags.Error())
}

// rootSchema selects the module blocks of a file; anything else at the top
// level is ignored.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{{Type: "module", LabelNames: []string{"name"}}},
}

// DecodeFile reads and decodes one HCL definition file.
func DecodeFile(ctx context.Context, path string) ([]*schema.Module, []*BlockError, hcl.Diagnostics) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Failed to read file",
			Detail:   err.Error(),
		}}
	}
	return Decode(ctx, path, src)
}

// Decode parses src and translates each module block on its own. File-level
// problems such as syntax errors come back as diags and yield no modules. A
// block that fails to decode or translate is reported as a BlockError under
// its own name and does not affect the other blocks.
func Decode(ctx context.Context, filename string, src []byte) ([]*schema.Module, []*BlockError, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx).With("file", filename)

	// A parser caches files by name, so each call gets its own.
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, nil, diags
	}
	content, _, diags := file.Body.PartialContent(rootSchema)
	if diags.HasErrors() {
		return nil, nil, diags
	}
	logger.Debug("Decoded HCL definition file.", "modules", len(content.Blocks))

	var (
		modules []*schema.Module
		failed  []*BlockError
	)
	for _, block := range content.Blocks {
		mb := &moduleBlock{Name: block.Labels[0]}
		blockDiags := gohcl.DecodeBody(block.Body, nil, mb)
		if !blockDiags.HasErrors() {
			var m *schema.Module
			m, blockDiags = translateModule(mb, filename)
			if !blockDiags.HasErrors() {
				modules = append(modules, m)
				continue
			}
		}
		failed = append(failed, &BlockError{Module: mb.Name, Diags: blockDiags})
	}
	return modules, failed, nil
}

func translateModule(b *moduleBlock, filename string) (*schema.Module, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	m := &schema.Module{
		Name:        b.Name,
		Description: b.Description,
		Source:      filename,
	}

	if isExprDefined(b.Vars) {
		vars, moreDiags := objectAttr(b.Vars, "vars")
		diags = append(diags, moreDiags...)
		m.Vars = vars
	}

	for _, pb := range b.Prompts {
		p, moreDiags := translatePrompt(pb)
		diags = append(diags, moreDiags...)
		m.Prompts = append(m.Prompts, p)
	}
	for _, tb := range b.Tasks {
		t, moreDiags := translateTask(tb)
		diags = append(diags, moreDiags...)
		m.Tasks = append(m.Tasks, t)
	}
	for _, hb := range b.Handlers {
		h, moreDiags := translateTask(hb)
		diags = append(diags, moreDiags...)
		m.Handlers = append(m.Handlers, h)
	}
	return m, diags
}

func translatePrompt(b *promptBlock) (*schema.Prompt, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	p := &schema.Prompt{
		Name:        b.Name,
		Description: b.Description,
		Type:        schema.TypeString,
		Required:    true,
	}
	if b.Required != nil {
		p.Required = *b.Required
	}

	if isExprDefined(b.Type) {
		t, moreDiags := promptType(b.Type)
		diags = append(diags, moreDiags...)
		p.Type = t
	}

	if isExprDefined(b.Default) {
		def, moreDiags := exprValue(b.Default)
		diags = append(diags, moreDiags...)
		if !moreDiags.HasErrors() {
			p.Default = &def
		}
	}

	if isExprDefined(b.Choices) {
		choices, moreDiags := exprValue(b.Choices)
		diags = append(diags, moreDiags...)
		switch {
		case moreDiags.HasErrors():
		case choices.Kind() != value.KindList:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid choices",
				Detail:   fmt.Sprintf("Prompt %q: choices must be a list, got %s.", b.Name, choices.Kind()),
				Subject:  b.Choices.Range().Ptr(),
			})
		default:
			p.Choices = choices.Items()
		}
	}
	return p, diags
}

func translateTask(b *taskBlock) (*schema.TaskSpec, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	t := &schema.TaskSpec{
		Name:     b.Name,
		Module:   b.Module,
		Notify:   b.Notify,
		Register: b.Register,
	}

	if isExprDefined(b.Params) {
		params, moreDiags := objectAttr(b.Params, "params")
		diags = append(diags, moreDiags...)
		t.Params = params
	}
	if isExprDefined(b.When) {
		when, moreDiags := exprValue(b.When)
		diags = append(diags, moreDiags...)
		t.When = &when
	}
	if isExprDefined(b.Loop) {
		loop, moreDiags := exprValue(b.Loop)
		diags = append(diags, moreDiags...)
		t.Loop = &loop
	}
	return t, diags
}

// objectAttr decodes an attribute that must hold an object.
func objectAttr(expr hcl.Expression, name string) (*value.Map, hcl.Diagnostics) {
	v, diags := exprValue(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != value.KindMap {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid " + name,
			Detail:   fmt.Sprintf("The %q attribute must be an object, got %s.", name, v.Kind()),
			Subject:  expr.Range().Ptr(),
		}}
	}
	return v.Map(), nil
}

// isExprDefined reports whether an optional attribute was written in the
// source. gohcl fills omitted attributes with a zero-width placeholder.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
