package schema

import (
	"github.com/vk/playbookgen/internal/value"
)

// PromptType is the declared kind of a prompt's value.
type PromptType string

const (
	TypeString  PromptType = "string"
	TypeInteger PromptType = "integer"
	TypeBoolean PromptType = "boolean"
	TypeList    PromptType = "list"
	TypeDict    PromptType = "dict"
)

// PromptTypes lists the closed set of accepted prompt types.
var PromptTypes = []PromptType{TypeString, TypeInteger, TypeBoolean, TypeList, TypeDict}

// Valid reports whether t belongs to the closed set.
func (t PromptType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean, TypeList, TypeDict:
		return true
	}
	return false
}

// Kind maps t onto the value variant that holds it.
func (t PromptType) Kind() value.Kind {
	switch t {
	case TypeInteger:
		return value.KindInteger
	case TypeBoolean:
		return value.KindBoolean
	case TypeList:
		return value.KindList
	case TypeDict:
		return value.KindMap
	}
	return value.KindString
}

// Prompt is one user-suppliable parameter of a module.
type Prompt struct {
	Name        string
	Description string
	Type        PromptType
	// Required defaults to true when a definition omits it.
	Required bool
	// Default is nil when the definition declares none.
	Default *value.Value
	// Choices is nil when any value of Type is allowed.
	Choices []value.Value
}

// HasDefault reports whether the prompt declares a default value.
func (p *Prompt) HasDefault() bool { return p.Default != nil }

// Allows reports whether v satisfies the prompt's choices.
func (p *Prompt) Allows(v value.Value) bool {
	if p.Choices == nil {
		return true
	}
	for _, c := range p.Choices {
		if c.Equal(v) {
			return true
		}
	}
	return false
}

// TaskSpec is a templated task or handler fragment. Every string leaf may
// contain template syntax that is resolved when the module is added to a
// playbook.
type TaskSpec struct {
	Name   string
	Module string
	Params *value.Map
	// Optional fields are nil or empty when absent from the definition.
	When     *value.Value
	Loop     *value.Value
	Notify   []string
	Register string
}

// Module is a validated, reusable unit of playbook content.
type Module struct {
	Name        string
	Description string
	Prompts     []*Prompt
	Vars        *value.Map
	Tasks       []*TaskSpec
	Handlers    []*TaskSpec
	// Source is the definition file the module was loaded from.
	Source string
}

// Prompt returns the prompt with the given name.
func (m *Module) Prompt(name string) (*Prompt, bool) {
	for _, p := range m.Prompts {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// PromptNames returns prompt names in declaration order.
func (m *Module) PromptNames() []string {
	names := make([]string, 0, len(m.Prompts))
	for _, p := range m.Prompts {
		names = append(names, p.Name)
	}
	return names
}
