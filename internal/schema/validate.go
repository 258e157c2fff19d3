package schema

import (
	"fmt"
	"strings"

	"github.com/vk/playbookgen/internal/value"
)

// Validate checks the structural rules every catalogued module must satisfy
// and returns every defect found, in a stable order. Template contents are
// not inspected here.
func (m *Module) Validate() []string {
	var errs []string

	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, "module name is required")
	}
	if strings.TrimSpace(m.Description) == "" {
		errs = append(errs, "module description is required")
	}
	if len(m.Tasks) == 0 {
		errs = append(errs, "module must define at least one task")
	}

	seen := make(map[string]bool, len(m.Prompts))
	for i, p := range m.Prompts {
		errs = append(errs, p.validate(i)...)
		if p.Name == "" {
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("prompt '%s' is declared more than once", p.Name))
		}
		seen[p.Name] = true
	}

	for i, t := range m.Tasks {
		errs = append(errs, t.validate("task", i)...)
	}
	for i, h := range m.Handlers {
		errs = append(errs, h.validate("handler", i)...)
	}
	return errs
}

func (p *Prompt) validate(index int) []string {
	var errs []string
	label := p.Name
	if label == "" {
		label = fmt.Sprintf("#%d", index+1)
		errs = append(errs, fmt.Sprintf("prompt %s: name is required", label))
	}
	if strings.TrimSpace(p.Description) == "" {
		errs = append(errs, fmt.Sprintf("prompt '%s': description is required", label))
	}
	if !p.Type.Valid() {
		errs = append(errs, fmt.Sprintf("prompt '%s': unknown type '%s' (expected one of %s)", label, p.Type, joinTypes()))
		// Default and choice checks need a valid type.
		return errs
	}

	want := p.Type.Kind()
	for _, c := range p.Choices {
		if !matchesKind(c, want) {
			errs = append(errs, fmt.Sprintf("prompt '%s': choice %s is not of type %s", label, c.Describe(), p.Type))
		}
	}
	if p.Default != nil {
		switch {
		case !matchesKind(*p.Default, want):
			errs = append(errs, fmt.Sprintf("prompt '%s': default %s is not of type %s", label, p.Default.Describe(), p.Type))
		case !p.Allows(*p.Default):
			errs = append(errs, fmt.Sprintf("prompt '%s': default %s is not one of the allowed choices", label, p.Default.Describe()))
		}
	}
	return errs
}

func (t *TaskSpec) validate(kind string, index int) []string {
	var errs []string
	label := fmt.Sprintf("%s #%d", kind, index+1)
	if t.Name == "" {
		errs = append(errs, label+": name is required")
	} else {
		label = fmt.Sprintf("%s '%s'", kind, t.Name)
	}
	if strings.TrimSpace(t.Module) == "" {
		errs = append(errs, label+": module is required")
	}
	return errs
}

// matchesKind treats null as acceptable so that an explicit "default: null"
// behaves like an omitted default at bind time.
func matchesKind(v value.Value, want value.Kind) bool {
	return v.IsNull() || v.Kind() == want
}

func joinTypes() string {
	parts := make([]string, len(PromptTypes))
	for i, t := range PromptTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
