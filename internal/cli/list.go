package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"list-modules", "list-templates"},
		Short:   "List available modules",
		Args:    exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.application(cmd)
			if err != nil {
				return err
			}
			out := o.streams.Out
			modules := a.Catalogue().Modules()
			if len(modules) == 0 {
				fmt.Fprintf(out, "No modules found in %s.\n", a.Config().ModulesPath)
				return nil
			}

			heading(out, "Available modules")
			tw := newTable(out)
			fmt.Fprintln(tw, "NAME\tPROMPTS\tTASKS\tDESCRIPTION")
			for _, m := range modules {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", m.Name, len(m.Prompts), len(m.Tasks), m.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if a.LoadError() != nil {
				fmt.Fprintln(out, mutedStyle.Render("Some definitions failed to load; run with --log-level=warn for details."))
			}
			return nil
		},
	}
}
