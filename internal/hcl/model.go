package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// moduleBlock is the body of a module block. Name comes from the block
// label and is filled in by Decode.
type moduleBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Vars        hcl.Expression `hcl:"vars,optional"`
	Prompts     []*promptBlock `hcl:"prompt,block"`
	Tasks       []*taskBlock   `hcl:"task,block"`
	Handlers    []*taskBlock   `hcl:"handler,block"`
	Remain      hcl.Body       `hcl:",remain"`
}

type promptBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Type        hcl.Expression `hcl:"type,optional"`
	Required    *bool          `hcl:"required,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Choices     hcl.Expression `hcl:"choices,optional"`
}

type taskBlock struct {
	Name     string         `hcl:"name,optional"`
	Module   string         `hcl:"module,optional"`
	Params   hcl.Expression `hcl:"params,optional"`
	When     hcl.Expression `hcl:"when,optional"`
	Loop     hcl.Expression `hcl:"loop,optional"`
	Notify   []string       `hcl:"notify,optional"`
	Register string         `hcl:"register,optional"`
}
