package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/playbookgen/internal/builder"
	"github.com/vk/playbookgen/internal/ctxlog"
	"github.com/vk/playbookgen/internal/value"
	"gopkg.in/yaml.v3"
)

// Recipe describes a playbook assembled from several modules plus literal
// tasks and handlers. Modules are added first, in order, followed by the
// literal tasks and handlers.
type Recipe struct {
	Name        string         `yaml:"name"`
	Hosts       string         `yaml:"hosts"`
	GatherFacts *bool          `yaml:"gather_facts"`
	Vars        *value.Map     `yaml:"vars"`
	Modules     []RecipeModule `yaml:"modules"`
	Tasks       []*value.Map   `yaml:"tasks"`
	Handlers    []*value.Map   `yaml:"handlers"`
}

// RecipeModule is one module invocation inside a recipe.
type RecipeModule struct {
	Module string     `yaml:"module"`
	Params *value.Map `yaml:"params"`
}

// ParseRecipe decodes a recipe document. Unknown keys are an error so that
// typos do not silently drop parts of a playbook.
func ParseRecipe(data []byte) (*Recipe, error) {
	var r Recipe
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("recipe is empty")
		}
		return nil, err
	}
	for i, m := range r.Modules {
		if m.Module == "" {
			return nil, fmt.Errorf("modules[%d]: module name is required", i)
		}
	}
	return &r, nil
}

// LoadRecipe reads and decodes a recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", path, err)
	}
	r, err := ParseRecipe(data)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", path, err)
	}
	return r, nil
}

// Build assembles a recipe into a sealed builder. The first failing module
// aborts the build.
func (a *App) Build(ctx context.Context, r *Recipe) (*builder.Builder, error) {
	ctx = ctxlog.With(a.Context(ctx), "recipe", r.Name)
	b, err := a.start(Header{Name: r.Name, Hosts: r.Hosts, GatherFacts: r.GatherFacts, Vars: r.Vars})
	if err != nil {
		return nil, err
	}
	for _, m := range r.Modules {
		if err := b.AddModule(ctx, m.Module, m.Params); err != nil {
			return nil, err
		}
	}
	for i, t := range r.Tasks {
		if err := b.AddTask(t); err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
	}
	for i, h := range r.Handlers {
		if err := b.AddHandler(h); err != nil {
			return nil, fmt.Errorf("handlers[%d]: %w", i, err)
		}
	}
	if _, err := b.Build(); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Recipe built.", "modules", len(r.Modules), "tasks", len(r.Tasks))
	return b, nil
}
