package builder

import (
	"context"
	"fmt"

	"github.com/vk/playbookgen/internal/ctxlog"
	"github.com/vk/playbookgen/internal/fsutil"
	"github.com/vk/playbookgen/internal/params"
	"github.com/vk/playbookgen/internal/render"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

// DefaultOutputDir is where playbooks go when no path is given.
const DefaultOutputDir = "generated_playbooks"

// State is a step of the builder's lifecycle. States only move forward.
type State int

const (
	StateEmpty State = iota
	StateConfigured
	StateAccumulating
	StateBuilt
	StateWritten
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateConfigured:
		return "configured"
	case StateAccumulating:
		return "accumulating"
	case StateBuilt:
		return "built"
	case StateWritten:
		return "written"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ModuleSource resolves module names. *catalogue.Catalogue implements it.
type ModuleSource interface {
	Get(name string) (*schema.Module, error)
}

// Option configures a Builder.
type Option func(*Builder)

// WithOutputDir sets the directory Write uses when no path is given.
func WithOutputDir(dir string) Option {
	return func(b *Builder) { b.outputDir = dir }
}

// WithGatherFacts sets the initial gather_facts value.
func WithGatherFacts(v bool) Option {
	return func(b *Builder) { b.gatherFacts = v }
}

// Builder accumulates one playbook. It is not safe for concurrent use; give
// each playbook its own Builder.
type Builder struct {
	src       ModuleSource
	outputDir string

	state       State
	name        string
	hosts       string
	gatherFacts bool
	vars        *value.Map
	tasks       []*value.Map
	handlers    []*value.Map
	modules     []string

	doc *Document
}

// New returns an empty Builder resolving modules through src.
func New(src ModuleSource, opts ...Option) *Builder {
	b := &Builder{
		src:         src,
		outputDir:   DefaultOutputDir,
		gatherFacts: true,
		vars:        value.NewMap(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current lifecycle state.
func (b *Builder) State() State { return b.state }

// Modules lists the modules added so far, in call order.
func (b *Builder) Modules() []string { return append([]string(nil), b.modules...) }

func (b *Builder) mutable(op string) error {
	if b.state >= StateBuilt {
		return fmt.Errorf("%s: %w", op, ErrSealed)
	}
	return nil
}

func (b *Builder) advance(to State) {
	if to > b.state {
		b.state = to
	}
}

func (b *Builder) checkConfigured() {
	if b.name != "" && b.hosts != "" {
		b.advance(StateConfigured)
	}
}

// SetName sets the play name.
func (b *Builder) SetName(name string) error {
	if err := b.mutable("set name"); err != nil {
		return err
	}
	b.name = name
	b.checkConfigured()
	return nil
}

// SetHosts sets the host pattern the play targets.
func (b *Builder) SetHosts(hosts string) error {
	if err := b.mutable("set hosts"); err != nil {
		return err
	}
	b.hosts = hosts
	b.checkConfigured()
	return nil
}

// SetGatherFacts sets whether the play gathers facts.
func (b *Builder) SetGatherFacts(v bool) error {
	if err := b.mutable("set gather_facts"); err != nil {
		return err
	}
	b.gatherFacts = v
	return nil
}

// AddVars merges vars into the play vars. Later values win on key
// collisions.
func (b *Builder) AddVars(vars *value.Map) error {
	if err := b.mutable("add vars"); err != nil {
		return err
	}
	b.vars.Merge(vars)
	b.advance(StateAccumulating)
	return nil
}

// AddTask appends a task that is already in playbook form.
func (b *Builder) AddTask(task *value.Map) error {
	if err := b.mutable("add task"); err != nil {
		return err
	}
	if task.Len() == 0 {
		return fmt.Errorf("add task: task is empty")
	}
	b.tasks = append(b.tasks, task.Clone())
	b.advance(StateAccumulating)
	return nil
}

// AddHandler appends a handler that is already in playbook form.
func (b *Builder) AddHandler(handler *value.Map) error {
	if err := b.mutable("add handler"); err != nil {
		return err
	}
	if handler.Len() == 0 {
		return fmt.Errorf("add handler: handler is empty")
	}
	b.handlers = append(b.handlers, handler.Clone())
	b.advance(StateAccumulating)
	return nil
}

// AddModule resolves the named module with the supplied parameters and
// appends its tasks, handlers and vars. Errors are a *catalogue.NotFoundError,
// a *ValidationError listing every bad parameter, a *render.Error, or
// ErrSealed. On error the builder is unchanged.
func (b *Builder) AddModule(ctx context.Context, name string, supplied *value.Map) error {
	if err := b.mutable("add module"); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx).With("module", name)

	m, err := b.src.Get(name)
	if err != nil {
		return err
	}

	res, err := params.Bind(m, supplied)
	if err != nil {
		return err
	}
	if !res.OK() {
		logger.Debug("Module parameters rejected.", "fields", res.Fields())
		return &ValidationError{Module: name, Violations: res.Violations}
	}

	tasks, err := renderTasks(m, "task", m.Tasks, res.Context)
	if err != nil {
		return err
	}
	handlers, err := renderTasks(m, "handler", m.Handlers, res.Context)
	if err != nil {
		return err
	}

	b.tasks = append(b.tasks, tasks...)
	b.handlers = append(b.handlers, handlers...)
	b.vars.Merge(res.Vars)
	b.modules = append(b.modules, name)
	b.advance(StateAccumulating)

	logger.Debug("Module added.",
		"tasks", len(tasks),
		"skipped_tasks", len(m.Tasks)-len(tasks),
		"handlers", len(handlers),
		"vars", res.Vars.Len(),
	)
	return nil
}

func renderTasks(m *schema.Module, kind string, specs []*schema.TaskSpec, ctx *value.Map) ([]*value.Map, error) {
	var out []*value.Map
	for _, spec := range specs {
		task, included, err := render.RenderTask(spec, ctx)
		if err != nil {
			return nil, fmt.Errorf("module '%s', %s '%s': %w", m.Name, kind, spec.Name, err)
		}
		if included {
			out = append(out, task)
		}
	}
	return out, nil
}

// Build materializes the document and seals the builder. It needs a name, a
// host pattern and at least one task; otherwise it returns an
// *IncompleteDocumentError naming everything missing. Once built, Build
// returns the same document on every call.
func (b *Builder) Build() (*Document, error) {
	if b.doc != nil {
		return b.doc, nil
	}

	var missing []string
	if b.name == "" {
		missing = append(missing, "name is not set")
	}
	if b.hosts == "" {
		missing = append(missing, "hosts are not set")
	}
	if len(b.tasks) == 0 {
		missing = append(missing, "no tasks were added")
	}
	if len(missing) > 0 {
		return nil, &IncompleteDocumentError{Missing: missing}
	}

	tasks := make([]*value.Map, len(b.tasks))
	copy(tasks, b.tasks)
	handlers := make([]*value.Map, len(b.handlers))
	copy(handlers, b.handlers)

	b.doc = &Document{
		Name:        b.name,
		Hosts:       b.hosts,
		GatherFacts: b.gatherFacts,
		Vars:        b.vars.Clone(),
		Tasks:       tasks,
		Handlers:    handlers,
	}
	b.advance(StateBuilt)
	return b.doc, nil
}

// ToYAML builds the document if needed and serializes it. Repeated calls
// return identical bytes.
func (b *Builder) ToYAML() ([]byte, error) {
	doc, err := b.Build()
	if err != nil {
		return nil, err
	}
	return doc.YAML()
}

// Write builds the document if needed and writes it atomically. An empty
// path means the output directory plus the sanitized play name. With
// timestamped set, a "_YYYYMMDDHHMMSS" suffix is added before the
// extension. It returns the absolute path written; write failures are a
// *fsutil.WriteError.
func (b *Builder) Write(ctx context.Context, path string, timestamped bool) (string, error) {
	data, err := b.ToYAML()
	if err != nil {
		return "", err
	}
	target := fsutil.OutputPath(path, b.outputDir, b.doc.Name, timestamped)
	abs, err := fsutil.WriteFileAtomic(target, data, 0o644)
	if err != nil {
		return "", err
	}
	b.advance(StateWritten)
	ctxlog.FromContext(ctx).Info("Playbook written.", "path", abs, "tasks", len(b.doc.Tasks), "handlers", len(b.doc.Handlers))
	return abs, nil
}
