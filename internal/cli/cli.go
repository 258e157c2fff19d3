package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/playbookgen/internal/app"
	"github.com/vk/playbookgen/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Streams are the standard streams a command reads from and writes to.
// Results go to Out; logs and prompts go to Err.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	streams     Streams
	configPath  string
	modulesPath string
	outputDir   string
	logLevel    string
	logFormat   string

	app *app.App
}

// Execute runs the command line described by args. Usage errors come back as
// an *ExitError with code 2.
func Execute(ctx context.Context, args []string, streams Streams) error {
	root := NewRootCommand(streams)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	// cobra reports unknown subcommands as plain errors.
	if strings.HasPrefix(err.Error(), "unknown command") {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return err
}

// NewRootCommand builds the full command tree.
func NewRootCommand(streams Streams) *cobra.Command {
	o := &rootOptions{streams: streams}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "playbookgen",
		Short: "Generate Ansible playbooks from a catalogue of modules",
		Long: `playbookgen renders reusable module definitions (YAML or HCL) into
Ansible playbooks. Modules declare prompts, vars, tasks and handlers; the
generator validates the supplied parameters, renders every template and
writes a single-play playbook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ExitError{Code: 2, Message: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "Path to a YAML configuration file.")
	flags.StringVar(&o.modulesPath, "modules-path", defaults.ModulesPath, "Directory containing module definitions.")
	flags.StringVar(&o.outputDir, "output-dir", defaults.OutputDir, "Directory generated playbooks are written to.")
	flags.StringVar(&o.logLevel, "log-level", defaults.LogLevel, "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&o.logFormat, "log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(
		newListCommand(o),
		newShowCommand(o),
		newGenerateCommand(o),
		newGenerateFromFileCommand(o),
		newBuildCommand(o),
		newWatchCommand(o),
	)
	return root
}

// config resolves the configuration: defaults, then the config file, then
// flags the user set explicitly.
func (o *rootOptions) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("modules-path") {
		cfg.ModulesPath = o.modulesPath
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = strings.ToLower(o.logFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}

// application loads the app on first use.
func (o *rootOptions) application(cmd *cobra.Command) (*app.App, error) {
	if o.app != nil {
		return o.app, nil
	}
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), o.streams.Err, cfg)
	if err != nil {
		return nil, err
	}
	o.app = a
	return a, nil
}

func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("%s expects %s (got %d argument(s))\nUsage: %s", cmd.Name(), names, len(args), cmd.UseLine())
		}
		return nil
	}
}
