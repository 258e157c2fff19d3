package catalogue

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
	"gopkg.in/yaml.v3"
)

// yamlModule mirrors a YAML definition file. Unknown keys are ignored.
type yamlModule struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Prompts     []*yamlPrompt `yaml:"prompts"`
	Vars        *value.Map    `yaml:"vars"`
	Tasks       []*yamlTask   `yaml:"tasks"`
	Handlers    []*yamlTask   `yaml:"handlers"`
}

type yamlPrompt struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Type        string        `yaml:"type"`
	Required    *bool         `yaml:"required"`
	Default     *value.Value  `yaml:"default"`
	Choices     []value.Value `yaml:"choices"`
}

type yamlTask struct {
	Name     string       `yaml:"name"`
	Module   string       `yaml:"module"`
	Params   *value.Map   `yaml:"params"`
	When     *value.Value `yaml:"when"`
	Loop     *value.Value `yaml:"loop"`
	Notify   stringList   `yaml:"notify"`
	Register string       `yaml:"register"`
}

// stringList accepts a single string or a sequence of strings, as Ansible
// does for notify.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*l = stringList{n.Value}
		return nil
	}
	var items []string
	if err := n.Decode(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

// decodeYAML parses one YAML definition. Type errors are split so each
// becomes a separate defect. yaml.v3 keeps decoding past type errors, so the
// partly decoded module is returned with them and can still be validated.
func decodeYAML(data []byte, source string) (*schema.Module, []string) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, []string{"definition file is empty"}
	}

	var def yamlModule
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, []string{"definition file is empty"}
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return def.module(source), typeErr.Errors
		}
		return nil, []string{fmt.Sprintf("invalid YAML: %v", err)}
	}
	return def.module(source), nil
}

func (d *yamlModule) module(source string) *schema.Module {
	m := &schema.Module{
		Name:        d.Name,
		Description: d.Description,
		Vars:        d.Vars,
		Source:      source,
	}
	for _, p := range d.Prompts {
		if p == nil {
			p = &yamlPrompt{}
		}
		prompt := &schema.Prompt{
			Name:        p.Name,
			Description: p.Description,
			Type:        schema.PromptType(p.Type),
			Required:    true,
			Default:     p.Default,
			Choices:     p.Choices,
		}
		if p.Type == "" {
			prompt.Type = schema.TypeString
		}
		if p.Required != nil {
			prompt.Required = *p.Required
		}
		m.Prompts = append(m.Prompts, prompt)
	}
	m.Tasks = taskSpecs(d.Tasks)
	m.Handlers = taskSpecs(d.Handlers)
	return m
}

func taskSpecs(in []*yamlTask) []*schema.TaskSpec {
	var out []*schema.TaskSpec
	for _, t := range in {
		if t == nil {
			t = &yamlTask{}
		}
		out = append(out, &schema.TaskSpec{
			Name:     t.Name,
			Module:   t.Module,
			Params:   t.Params,
			When:     t.When,
			Loop:     t.Loop,
			Notify:   t.Notify,
			Register: t.Register,
		})
	}
	return out
}
