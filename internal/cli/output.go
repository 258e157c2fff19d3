package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vk/playbookgen/internal/builder"
)

// outputOptions are the flags controlling where a playbook goes.
type outputOptions struct {
	path      string
	timestamp bool
	stdout    bool
}

func (oo *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&oo.path, "output", "o", "", "Output file (default <output-dir>/<sanitized name>.yml).")
	cmd.Flags().BoolVar(&oo.timestamp, "timestamp", false, "Append a _YYYYMMDDHHMMSS suffix to the file name.")
	cmd.Flags().BoolVar(&oo.stdout, "stdout", false, "Print the playbook instead of writing a file.")
}

// emit prints or writes a built playbook.
func (o *rootOptions) emit(ctx context.Context, b *builder.Builder, oo *outputOptions) error {
	if oo.stdout {
		data, err := b.ToYAML()
		if err != nil {
			return err
		}
		_, err = o.streams.Out.Write(data)
		return err
	}
	path, err := b.Write(ctx, oo.path, oo.timestamp)
	if err != nil {
		return err
	}
	fmt.Fprintln(o.streams.Out, successStyle.Render("✓ Playbook generated: "+path))
	return nil
}
