package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/playbookgen/internal/app"
	"github.com/vk/playbookgen/internal/value"
)

// headerOptions are the flags setting play-level fields.
type headerOptions struct {
	name        string
	hosts       string
	gatherFacts bool
	vars        []string
}

func (ho *headerOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ho.name, "name", "", "Play name (default \""+app.DefaultPlaybookName+"\").")
	cmd.Flags().StringVar(&ho.hosts, "hosts", "", "Host pattern the play targets (default from config).")
	cmd.Flags().BoolVar(&ho.gatherFacts, "gather-facts", true, "Gather facts before running tasks.")
	cmd.Flags().StringArrayVar(&ho.vars, "var", nil, "Play var as key=value; values are parsed as YAML. Repeatable.")
}

// header converts the flags into an app.Header. gather_facts is only set when
// the flag was given.
func (ho *headerOptions) header(cmd *cobra.Command) (app.Header, error) {
	vars, err := parseAssignments(ho.vars, true)
	if err != nil {
		return app.Header{}, err
	}
	h := app.Header{Name: ho.name, Hosts: ho.hosts, Vars: vars}
	if cmd.Flags().Changed("gather-facts") {
		gather := ho.gatherFacts
		h.GatherFacts = &gather
	}
	return h, nil
}

// parseAssignments turns key=value items into a map. Untyped values stay
// strings so the binder can coerce them to each prompt's type.
func parseAssignments(items []string, typed bool) (*value.Map, error) {
	m := value.NewMap()
	for _, item := range items {
		key, raw, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, usageErrorf("invalid assignment %q: expected key=value", item)
		}
		v := value.String(raw)
		if typed && raw != "" {
			parsed, err := value.ParseYAML([]byte(raw))
			if err != nil {
				return nil, usageErrorf("invalid value for %s: %v", key, err)
			}
			v = parsed
		}
		m.Set(key, v)
	}
	return m, nil
}

type generateOptions struct {
	header      headerOptions
	output      outputOptions
	set         []string
	interactive bool
}

func newGenerateCommand(o *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [MODULE]",
		Short: "Generate a playbook from one module",
		Long: `Generate a playbook from one module. Parameters come from --set; with -i,
or when no MODULE is given, every prompt is asked for interactively with its
default offered.`,
		Example: `  playbookgen generate webserver --set server_type=nginx --set port=8080
  playbookgen generate database --set db_name=app --set db_user=app --stdout
  playbookgen generate -i`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("generate accepts at most one module (got %d)\nUsage: %s", len(args), cmd.UseLine())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runGenerate(cmd, args, opts)
		},
	}
	opts.header.register(cmd)
	opts.output.register(cmd)
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "Module parameter as key=value. Repeatable.")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Ask for every prompt interactively.")
	return cmd
}

func (o *rootOptions) runGenerate(cmd *cobra.Command, args []string, opts *generateOptions) error {
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
	params, err := parseAssignments(opts.set, false)
	if err != nil {
		return err
	}

	interactive := opts.interactive
	p := newPrompter(o.streams.In, o.streams.Err)
	name := ""
	if len(args) == 1 {
		name = args[0]
	} else {
		modules := a.Catalogue().List()
		if len(modules) == 0 {
			return fmt.Errorf("no modules available in %s", a.Config().ModulesPath)
		}
		if name, err = p.choose("Available modules:", modules); err != nil {
			return fmt.Errorf("selecting a module: %w", err)
		}
		interactive = true
	}

	m, err := a.Module(name)
	if err != nil {
		return err
	}

	// Without -i, required prompts left unset are asked for only when a
	// person is at the terminal.
	askMissing := !interactive && isTerminal(o.streams.In)
	for _, pr := range m.Prompts {
		if params.Has(pr.Name) {
			continue
		}
		if !interactive && !(askMissing && pr.Required && !pr.HasDefault()) {
			continue
		}
		v, ok, err := p.askPrompt(pr)
		if err != nil {
			return fmt.Errorf("reading %s: %w", pr.Name, err)
		}
		if ok {
			params.Set(pr.Name, v)
		}
	}

	if interactive {
		if header.Name == "" {
			if header.Name, err = p.ask("Playbook name", app.DefaultPlaybookName); err != nil {
				return err
			}
		}
		if header.Hosts == "" {
			if header.Hosts, err = p.ask("Target hosts", a.Config().Defaults.Hosts); err != nil {
				return err
			}
		}
	}

	ctx := a.Context(cmd.Context())
	b, err := a.Generate(ctx, app.GenerateRequest{Header: header, Module: name, Params: params})
	if err != nil {
		return err
	}
	return o.emit(ctx, b, &opts.output)
}
