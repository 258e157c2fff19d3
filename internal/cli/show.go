package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

func newShowCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "show MODULE",
		Aliases: []string{"info"},
		Short:   "Show the prompts, vars and tasks of a module",
		Args:    exactArgs(1, "a module name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.application(cmd)
			if err != nil {
				return err
			}
			m, err := a.Module(args[0])
			if err != nil {
				return err
			}
			return describeModule(o.streams.Out, m)
		},
	}
}

func describeModule(w io.Writer, m *schema.Module) error {
	heading(w, m.Name)
	fmt.Fprintln(w, m.Description)
	if m.Source != "" {
		fmt.Fprintln(w, mutedStyle.Render("Defined in "+m.Source))
	}

	section(w, "Prompts")
	if len(m.Prompts) == 0 {
		fmt.Fprintln(w, "(none)")
	} else {
		tw := newTable(w)
		fmt.Fprintln(tw, "NAME\tTYPE\tREQUIRED\tDEFAULT\tCHOICES\tDESCRIPTION")
		for _, p := range m.Prompts {
			def := "-"
			if p.HasDefault() {
				def = p.Default.Describe()
			}
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n", p.Name, p.Type, p.Required, def, describeChoices(p.Choices), p.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if m.Vars.Len() > 0 {
		section(w, "Vars")
		tw := newTable(w)
		for k, v := range m.Vars.All() {
			fmt.Fprintf(tw, "%s\t%s\n", k, v.Describe())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	section(w, "Tasks")
	if err := describeTasks(w, m.Tasks); err != nil {
		return err
	}
	if len(m.Handlers) > 0 {
		section(w, "Handlers")
		if err := describeTasks(w, m.Handlers); err != nil {
			return err
		}
	}
	return nil
}

func describeTasks(w io.Writer, tasks []*schema.TaskSpec) error {
	tw := newTable(w)
	for i, t := range tasks {
		var extra []string
		if t.When != nil {
			extra = append(extra, "when "+t.When.String())
		}
		if t.Loop != nil {
			extra = append(extra, "loop "+t.Loop.String())
		}
		if len(t.Notify) > 0 {
			extra = append(extra, "notify "+strings.Join(t.Notify, ", "))
		}
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\n", i+1, t.Name, t.Module, strings.Join(extra, "; "))
	}
	return tw.Flush()
}

func describeChoices(choices []value.Value) string {
	if len(choices) == 0 {
		return "-"
	}
	parts := make([]string, len(choices))
	for i, c := range choices {
		parts[i] = c.String()
	}
	return strings.Join(parts, "|")
}
