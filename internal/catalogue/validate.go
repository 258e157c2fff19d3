package catalogue

import (
	"fmt"
	"strings"

	"github.com/vk/playbookgen/internal/render"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

// validateModule returns every structural and template defect of m.
func validateModule(m *schema.Module) []string {
	defects := m.Validate()
	return append(defects, templateDefects(m)...)
}

// templateDefects checks that every template parses and reads only names the
// render context will hold. Vars see the prompts; tasks and handlers see the
// prompts and the vars.
func templateDefects(m *schema.Module) []string {
	var defects []string

	prompts := make(map[string]struct{}, len(m.Prompts))
	for _, p := range m.Prompts {
		prompts[p.Name] = struct{}{}
	}
	all := make(map[string]struct{}, len(prompts)+m.Vars.Len())
	for name := range prompts {
		all[name] = struct{}{}
	}
	for name := range m.Vars.All() {
		all[name] = struct{}{}
	}

	for name, v := range m.Vars.All() {
		defects = append(defects, checkTemplates(fmt.Sprintf("var '%s'", name), v, prompts)...)
	}
	for i, t := range m.Tasks {
		defects = append(defects, taskTemplateDefects("task", i, t, all)...)
	}
	for i, h := range m.Handlers {
		defects = append(defects, taskTemplateDefects("handler", i, h, all)...)
	}
	return defects
}

func taskTemplateDefects(kind string, index int, t *schema.TaskSpec, allowed map[string]struct{}) []string {
	label := fmt.Sprintf("%s '%s'", kind, t.Name)
	if t.Name == "" {
		label = fmt.Sprintf("%s #%d", kind, index+1)
	}

	fields := value.NewMap()
	fields.Set("name", value.String(t.Name))
	if t.Params != nil {
		fields.Set("params", value.FromMap(t.Params))
	}
	if t.When != nil {
		fields.Set("when", *t.When)
	}
	if t.Loop != nil {
		fields.Set("loop", *t.Loop)
	}
	if len(t.Notify) > 0 {
		items := make([]value.Value, len(t.Notify))
		for i, n := range t.Notify {
			items[i] = value.String(n)
		}
		fields.Set("notify", value.ListOf(items...))
	}
	if t.Register != "" {
		fields.Set("register", value.String(t.Register))
	}

	var defects []string
	for field, v := range fields.All() {
		defects = append(defects, checkTemplates(label+" "+field, v, allowed)...)
	}
	return defects
}

func checkTemplates(label string, v value.Value, allowed map[string]struct{}) []string {
	names, err := render.ValueReferences(v)
	if err != nil {
		return []string{fmt.Sprintf("%s: %v", label, err)}
	}
	var unknown []string
	for _, n := range names {
		if _, ok := allowed[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%s: references undeclared name(s) %s", label, strings.Join(unknown, ", "))}
}
