package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vk/playbookgen/internal/app"
	"github.com/vk/playbookgen/internal/value"
)

// Keys of a parameter file that set play fields rather than module params.
var headerKeys = []string{"playbook_name", "hosts", "gather_facts"}

type generateFromFileOptions struct {
	header headerOptions
	output outputOptions
}

func newGenerateFromFileCommand(o *rootOptions) *cobra.Command {
	opts := &generateFromFileOptions{}
	cmd := &cobra.Command{
		Use:   "generate-from-file MODULE PARAMS.yaml",
		Short: "Generate a playbook from one module with parameters from a YAML file",
		Long: `Generate a playbook from one module, reading its parameters from a YAML
mapping. The keys playbook_name, hosts and gather_facts set the play header
unless the matching flag is given.`,
		Args: exactArgs(2, "a module name and a parameter file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runGenerateFromFile(cmd, args, opts)
		},
	}
	opts.header.register(cmd)
	opts.output.register(cmd)
	return cmd
}

func (o *rootOptions) runGenerateFromFile(cmd *cobra.Command, args []string, opts *generateFromFileOptions) error {
	if opts.output.stdout && opts.output.path != "" {
		return usageErrorf("--stdout and --output cannot be used together")
	}
	a, err := o.application(cmd)
	if err != nil {
		return err
	}
	header, err := opts.header.header(cmd)
	if err != nil {
		return err
	}
	params, err := readParams(args[1])
	if err != nil {
		return err
	}
	if err := splitHeader(params, &header); err != nil {
		return fmt.Errorf("parameters %s: %w", args[1], err)
	}

	ctx := a.Context(cmd.Context())
	b, err := a.Generate(ctx, app.GenerateRequest{Header: header, Module: args[0], Params: params})
	if err != nil {
		return err
	}
	return o.emit(ctx, b, &opts.output)
}

// readParams reads a YAML mapping of parameters. An empty file is an empty
// mapping.
func readParams(path string) (*value.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	v, err := value.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parameters %s: %w", path, err)
	}
	switch v.Kind() {
	case value.KindNull:
		return value.NewMap(), nil
	case value.KindMap:
		return v.Map().Clone(), nil
	}
	return nil, fmt.Errorf("parameters %s: expected a mapping, got %s", path, v.Kind())
}

// splitHeader moves play header keys out of params into h. Flags already set
// in h take precedence.
func splitHeader(params *value.Map, h *app.Header) error {
	for _, key := range headerKeys {
		v, ok := params.Get(key)
		if !ok {
			continue
		}
		params.Delete(key)
		switch key {
		case "playbook_name":
			if h.Name == "" {
				h.Name = v.String()
			}
		case "hosts":
			if h.Hosts == "" {
				h.Hosts = v.String()
			}
		case "gather_facts":
			if h.GatherFacts != nil {
				continue
			}
			b, err := value.Coerce(v, value.KindBoolean)
			if err != nil {
				return fmt.Errorf("gather_facts: %w", err)
			}
			gather := b.AsBool()
			h.GatherFacts = &gather
		}
	}
	return nil
}
