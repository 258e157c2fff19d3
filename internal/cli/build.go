package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vk/playbookgen/internal/app"
)

func newBuildCommand(o *rootOptions) *cobra.Command {
	output := &outputOptions{}
	cmd := &cobra.Command{
		Use:   "build RECIPE.yaml",
		Short: "Build a playbook from a recipe combining several modules",
		Long: `Build a playbook from a recipe file:

  name: Site
  hosts: web
  gather_facts: true
  vars: {env: prod}
  modules:
    - module: webserver
      params: {server_type: nginx}
    - module: database
      params: {db_name: app, db_user: app}
  tasks: []
  handlers: []

Modules are added in order, then the literal tasks and handlers.`,
		Args: exactArgs(1, "a recipe file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output.stdout && output.path != "" {
				return usageErrorf("--stdout and --output cannot be used together")
			}
			a, err := o.application(cmd)
			if err != nil {
				return err
			}
			r, err := app.LoadRecipe(args[0])
			if err != nil {
				return err
			}
			ctx := a.Context(cmd.Context())
			b, err := a.Build(ctx, r)
			if err != nil {
				return err
			}
			return o.emit(ctx, b, output)
		},
	}
	output.register(cmd)
	return cmd
}

func newWatchCommand(o *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "watch RECIPE.yaml",
		Short: "Rebuild a recipe whenever module definitions change",
		Args:  exactArgs(1, "a recipe file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.application(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.Watch(ctx, args[0], app.WatchOptions{
				Output: output,
				OnBuild: func(path string, err error) {
					if err != nil {
						fmt.Fprintf(o.streams.Err, "Rebuild failed: %v\n", err)
						return
					}
					fmt.Fprintln(o.streams.Out, successStyle.Render("✓ Playbook generated: "+path))
				},
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <output-dir>/<sanitized name>.yml).")
	return cmd
}
