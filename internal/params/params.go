// Package params binds caller-supplied parameters to a module's prompts and
// vars, producing the context its templates render against.
package params

import (
	"fmt"
	"strings"

	"github.com/vk/playbookgen/internal/render"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

// Violation is one field-level problem with supplied parameters.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Result is the outcome of Bind. When Violations is empty, Context holds
// every resolved prompt and var and Vars holds the module's rendered vars.
type Result struct {
	Context    *value.Map
	Vars       *value.Map
	Violations []Violation
}

// OK reports whether binding produced no violations.
func (r *Result) OK() bool { return len(r.Violations) == 0 }

// Fields lists the offending field names in violation order.
func (r *Result) Fields() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Field)
	}
	return out
}

// Bind resolves the effective parameters of m. Precedence is supplied value,
// then module var, then prompt default. Every prompt is checked for presence,
// type and choices and all violations are collected before returning.
//
// Supplied keys that name neither a prompt nor a var are violations. Vars are
// rendered against the resolved prompt values. A render failure is returned
// as an error rather than a violation.
func Bind(m *schema.Module, supplied *value.Map) (*Result, error) {
	res := &Result{}
	promptCtx := value.NewMap()

	for _, p := range m.Prompts {
		v, ok := supplied.Get(p.Name)
		if !ok || v.IsNull() {
			switch {
			case m.Vars.Has(p.Name):
				// Resolved from the var below.
				continue
			case p.HasDefault():
				v = *p.Default
			case p.Required:
				res.add(p.Name, "required parameter is missing")
				continue
			default:
				continue
			}
		}
		checked, ok := res.check(p, v)
		if ok {
			promptCtx.Set(p.Name, checked)
		}
	}

	for k := range supplied.All() {
		if _, isPrompt := m.Prompt(k); isPrompt || m.Vars.Has(k) {
			continue
		}
		res.add(k, fmt.Sprintf("unknown parameter (module %s accepts: %s)", m.Name, accepted(m)))
	}

	if !res.OK() {
		return res, nil
	}

	vars := value.NewMap()
	for k, raw := range m.Vars.All() {
		if v, ok := supplied.Get(k); ok && !v.IsNull() {
			// A supplied prompt was already coerced and checked above.
			if checked, isPrompt := promptCtx.Get(k); isPrompt {
				v = checked
			}
			vars.Set(k, v)
			continue
		}
		rendered, err := render.Render(raw, promptCtx)
		if err != nil {
			return nil, fmt.Errorf("module %s: var %s: %w", m.Name, k, err)
		}
		if p, isPrompt := m.Prompt(k); isPrompt {
			checked, ok := res.check(p, rendered)
			if !ok {
				continue
			}
			rendered = checked
		}
		vars.Set(k, rendered)
	}
	if !res.OK() {
		return res, nil
	}

	ctx := promptCtx.Clone()
	ctx.Merge(vars)
	res.Context = ctx
	res.Vars = vars
	return res, nil
}

func (r *Result) add(field, msg string) {
	r.Violations = append(r.Violations, Violation{Field: field, Message: msg})
}

// check coerces v to the prompt's type and tests its choices.
func (r *Result) check(p *schema.Prompt, v value.Value) (value.Value, bool) {
	coerced, err := value.Coerce(v, p.Type.Kind())
	if err != nil {
		r.add(p.Name, err.Error())
		return value.Value{}, false
	}
	if coerced.IsNull() && p.Required {
		r.add(p.Name, "required parameter is missing")
		return value.Value{}, false
	}
	if !coerced.IsNull() && !p.Allows(coerced) {
		r.add(p.Name, fmt.Sprintf("%s is not one of the allowed choices: %s", coerced.Describe(), choices(p)))
		return value.Value{}, false
	}
	return coerced, true
}

func choices(p *schema.Prompt) string {
	out := make([]string, len(p.Choices))
	for i, c := range p.Choices {
		out[i] = c.Describe()
	}
	return strings.Join(out, ", ")
}

func accepted(m *schema.Module) string {
	names := m.PromptNames()
	for k := range m.Vars.All() {
		if _, isPrompt := m.Prompt(k); !isPrompt {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
