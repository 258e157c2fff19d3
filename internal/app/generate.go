package app

import (
	"context"

	"github.com/vk/playbookgen/internal/builder"
	"github.com/vk/playbookgen/internal/value"
)

// DefaultPlaybookName names playbooks whose caller gave no name.
const DefaultPlaybookName = "My Playbook"

// Header holds the play-level settings of a playbook. Empty fields fall back
// to the configured defaults.
type Header struct {
	Name        string
	Hosts       string
	GatherFacts *bool
	Vars        *value.Map
}

// GenerateRequest asks for a playbook built from a single module.
type GenerateRequest struct {
	Header
	Module string
	Params *value.Map
}

// Generate builds a playbook from one module and returns the sealed
// builder, ready for ToYAML or Write.
func (a *App) Generate(ctx context.Context, req GenerateRequest) (*builder.Builder, error) {
	ctx = a.Context(ctx)
	b, err := a.start(req.Header)
	if err != nil {
		return nil, err
	}
	if err := b.AddModule(ctx, req.Module, req.Params); err != nil {
		return nil, err
	}
	if _, err := b.Build(); err != nil {
		return nil, err
	}
	a.logger.Debug("Playbook generated.", "module", req.Module)
	return b, nil
}

// start returns a builder with the header applied.
func (a *App) start(h Header) (*builder.Builder, error) {
	b := a.NewBuilder()
	name := h.Name
	if name == "" {
		name = DefaultPlaybookName
	}
	hosts := h.Hosts
	if hosts == "" {
		hosts = a.cfg.Defaults.Hosts
	}
	if err := b.SetName(name); err != nil {
		return nil, err
	}
	if err := b.SetHosts(hosts); err != nil {
		return nil, err
	}
	if h.GatherFacts != nil {
		if err := b.SetGatherFacts(*h.GatherFacts); err != nil {
			return nil, err
		}
	}
	if h.Vars.Len() > 0 {
		if err := b.AddVars(h.Vars); err != nil {
			return nil, err
		}
	}
	return b, nil
}
