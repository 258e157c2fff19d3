package catalogue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/vk/playbookgen/internal/ctxlog"
	"github.com/vk/playbookgen/internal/schema"
)

// Catalogue is the set of valid modules loaded from one directory. It is
// safe for concurrent use.
type Catalogue struct {
	dir string

	// reloadMu serializes reloads; mu guards the published set.
	reloadMu sync.Mutex
	mu       sync.RWMutex
	modules  map[string]*schema.Module
	names    []string
}

// Load reads every definition file under dir. It always returns a usable
// catalogue holding the modules that passed validation. The error is a
// *LoadError when any module failed. A missing directory gives an empty
// catalogue and a warning.
func Load(ctx context.Context, dir string) (*Catalogue, error) {
	c := &Catalogue{dir: dir, modules: map[string]*schema.Module{}}
	set, loadErr, err := loadDir(ctx, dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return c, fmt.Errorf("loading catalogue from %s: %w", dir, err)
		}
		ctxlog.FromContext(ctx).Warn("Modules directory does not exist; the catalogue is empty.", "dir", dir)
		return c, nil
	}
	c.publish(set)
	if loadErr != nil {
		return c, loadErr
	}
	return c, nil
}

// New builds a catalogue from modules held in memory, validating each one
// exactly as Load does. Sources that are empty are reported as "<memory>".
func New(modules ...*schema.Module) (*Catalogue, error) {
	c := &Catalogue{modules: map[string]*schema.Module{}}
	results := make([]fileResult, len(modules))
	for i, m := range modules {
		source := m.Source
		if source == "" {
			source = "<memory>"
		}
		results[i] = fileResult{path: source, modules: []*schema.Module{m}}
	}
	set, loadErr := merge(context.Background(), "<memory>", results)
	c.publish(set)
	if loadErr != nil {
		return c, loadErr
	}
	return c, nil
}

// Dir returns the directory the catalogue loads from.
func (c *Catalogue) Dir() string { return c.dir }

// List returns the module names in lexical order.
func (c *Catalogue) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.names)
}

// Len returns the number of modules.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// Get returns the named module. Callers must treat it as read-only.
func (c *Catalogue) Get(name string) (*schema.Module, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Available: slices.Clone(c.names)}
	}
	return m, nil
}

// Modules returns every module ordered by name.
func (c *Catalogue) Modules() []*schema.Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*schema.Module, len(c.names))
	for i, name := range c.names {
		out[i] = c.modules[name]
	}
	return out
}

// Reload re-reads the directory and replaces the whole module set at once.
// Readers see either the old set or the new one. When the directory cannot
// be read at all the old set is kept and the error returned. Otherwise the
// new set is published even if some modules failed, and those failures are
// returned as a *LoadError.
func (c *Catalogue) Reload(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	logger := ctxlog.FromContext(ctx)
	set, loadErr, err := loadDir(ctx, c.dir)
	if err != nil {
		logger.Error("Catalogue reload failed; keeping the previous modules.", "dir", c.dir, "error", err)
		return fmt.Errorf("reloading catalogue from %s: %w", c.dir, err)
	}
	c.publish(set)
	logger.Info("Catalogue reloaded.", "dir", c.dir, "modules", len(set))
	if loadErr != nil {
		return loadErr
	}
	return nil
}

func (c *Catalogue) publish(set map[string]*schema.Module) {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)

	c.mu.Lock()
	c.modules = set
	c.names = names
	c.mu.Unlock()
}
