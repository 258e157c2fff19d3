package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/playbookgen/internal/value"
)

func ptr(v value.Value) *value.Value { return &v }

func validModule() *Module {
	return &Module{
		Name:        "webserver",
		Description: "Installs a web server",
		Prompts: []*Prompt{
			{Name: "port", Description: "Port", Type: TypeInteger, Required: true, Default: ptr(value.Int(80))},
			{
				Name: "server_type", Description: "Server", Type: TypeString, Required: true,
				Default: ptr(value.String("apache2")),
				Choices: []value.Value{value.String("apache2"), value.String("nginx")},
			},
		},
		Tasks: []*TaskSpec{{Name: "Install", Module: "ansible.builtin.apt"}},
	}
}

func TestValidate_ValidModule(t *testing.T) {
	assert.Empty(t, validModule().Validate())
}

func TestValidate_CollectsEveryDefect(t *testing.T) {
	m := &Module{
		Prompts: []*Prompt{
			{Name: "port", Type: "number"},
			{Name: "port", Description: "dup", Type: TypeString},
			{Description: "nameless", Type: TypeBoolean, Default: ptr(value.String("yes"))},
			{
				Name: "mode", Description: "Mode", Type: TypeString,
				Default: ptr(value.String("c")),
				Choices: []value.Value{value.String("a"), value.Int(2)},
			},
		},
		Handlers: []*TaskSpec{{Module: "ansible.builtin.service"}},
	}

	errs := m.Validate()
	assert.ElementsMatch(t, []string{
		"module name is required",
		"module description is required",
		"module must define at least one task",
		"prompt 'port': description is required",
		"prompt 'port': unknown type 'number' (expected one of string, integer, boolean, list, dict)",
		"prompt 'port' is declared more than once",
		"prompt #3: name is required",
		`prompt '#3': default "yes" is not of type boolean`,
		"prompt 'mode': choice 2 is not of type string",
		`prompt 'mode': default "c" is not one of the allowed choices`,
		"handler #1: name is required",
	}, errs)
}

func TestValidate_TaskWithoutModule(t *testing.T) {
	m := validModule()
	m.Tasks = append(m.Tasks, &TaskSpec{Name: "Broken"})
	assert.Equal(t, []string{"task 'Broken': module is required"}, m.Validate())
}

func TestPrompt_Allows(t *testing.T) {
	p := validModule().Prompts[1]
	assert.True(t, p.Allows(value.String("nginx")))
	assert.False(t, p.Allows(value.String("iis")))

	open := &Prompt{Name: "x", Type: TypeString}
	assert.True(t, open.Allows(value.String("anything")))
}

func TestPromptType_Kind(t *testing.T) {
	assert.Equal(t, value.KindMap, TypeDict.Kind())
	assert.Equal(t, value.KindInteger, TypeInteger.Kind())
	assert.False(t, PromptType("float").Valid())
}
