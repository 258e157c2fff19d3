package render

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

// Render resolves every template string inside v against ctx. Maps keep their
// keys and key order, lists keep their order, and non-string scalars pass
// through unchanged. A string that is exactly one {{ expr }} takes the type of
// the expression's result; any other template renders to a string.
//
// Undefined names are errors. Templates opt out with "is defined" tests and
// the default filter.
func Render(v value.Value, ctx *value.Map) (value.Value, error) {
	return newRun(ctx).render(v, "")
}

type run struct {
	eval  *hcl.EvalContext
	order keyOrder
}

func newRun(ctx *value.Map) *run {
	order := newKeyOrder(ctx)
	return &run{
		eval: &hcl.EvalContext{
			Variables: ctx.CtyAttributes(),
			Functions: order.functions(),
		},
		order: order,
	}
}

func (r *run) render(v value.Value, path string) (value.Value, error) {
	switch v.Kind() {
	case value.KindString:
		if !HasTemplate(v.AsString()) {
			return v, nil
		}
		return r.renderString(v.AsString(), path)
	case value.KindList:
		items := v.Items()
		out := make([]value.Value, len(items))
		for i, item := range items {
			rendered, err := r.render(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return value.Value{}, err
			}
			out[i] = rendered
		}
		return value.ListOf(out...), nil
	case value.KindMap:
		out, err := r.renderMap(v.Map(), path)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromMap(out), nil
	}
	return v, nil
}

func (r *run) renderMap(m *value.Map, path string) (*value.Map, error) {
	out := value.NewMap()
	for k, item := range m.All() {
		rendered, err := r.render(item, joinPath(path, k))
		if err != nil {
			return nil, err
		}
		out.Set(k, rendered)
	}
	return out, nil
}

func (r *run) renderString(tmpl, path string) (value.Value, error) {
	expr, err := compile(tmpl)
	if err != nil {
		return value.Value{}, &Error{Path: path, Template: tmpl, Err: err}
	}
	result, diags := expr.Value(r.eval)
	if diags.HasErrors() {
		return value.Value{}, &Error{Path: path, Template: tmpl, Err: diagError(diags)}
	}
	out, err := r.order.value(result)
	if err != nil {
		return value.Value{}, &Error{Path: path, Template: tmpl, Err: err}
	}
	return out, nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// RenderTask renders a task or handler into its playbook form: name, the
// module key holding the rendered params, then when, loop, notify and
// register when the TaskSpec sets them. included is false when the condition
// renders to the boolean false; such a task belongs in no playbook.
func RenderTask(spec *schema.TaskSpec, ctx *value.Map) (task *value.Map, included bool, err error) {
	r := newRun(ctx)

	var when value.Value
	if spec.When != nil {
		if when, err = r.render(*spec.When, "when"); err != nil {
			return nil, false, err
		}
		if when.Kind() == value.KindBoolean && !when.AsBool() {
			return nil, false, nil
		}
	}

	task = value.NewMap()
	name, err := r.render(value.String(spec.Name), "name")
	if err != nil {
		return nil, false, err
	}
	task.Set("name", name)

	params, err := r.renderMap(spec.Params, spec.Module)
	if err != nil {
		return nil, false, err
	}
	task.Set(spec.Module, value.FromMap(params))

	if spec.When != nil {
		task.Set("when", when)
	}
	if spec.Loop != nil {
		loop, err := r.render(*spec.Loop, "loop")
		if err != nil {
			return nil, false, err
		}
		task.Set("loop", loop)
	}
	if len(spec.Notify) > 0 {
		notify := make([]value.Value, len(spec.Notify))
		for i, h := range spec.Notify {
			if notify[i], err = r.render(value.String(h), fmt.Sprintf("notify[%d]", i)); err != nil {
				return nil, false, err
			}
		}
		task.Set("notify", value.ListOf(notify...))
	}
	if spec.Register != "" {
		reg, err := r.render(value.String(spec.Register), "register")
		if err != nil {
			return nil, false, err
		}
		task.Set("register", reg)
	}
	return task, true, nil
}
