package app

import (
	"context"

	"github.com/vk/playbookgen/internal/catalogue"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	// Output is the file to rewrite; empty means the default output path.
	Output string
	// OnBuild, when set, receives the written path or the error of every
	// rebuild, including the first one.
	OnBuild func(path string, err error)
	// Catalogue tunes the underlying catalogue watcher. Its OnReload is
	// replaced.
	Catalogue catalogue.WatchOptions
}

// Watch builds the recipe at recipePath and writes it, then rebuilds and
// rewrites it every time the module definitions change, until ctx is
// cancelled. The recipe file is re-read on every rebuild. A failing rebuild
// is reported and leaves the last good output in place.
func (a *App) Watch(ctx context.Context, recipePath string, opts WatchOptions) error {
	ctx = a.Context(ctx)
	rebuild := func() {
		path, err := a.writeRecipe(ctx, recipePath, opts.Output)
		if err != nil {
			a.logger.Error("Rebuild failed.", "recipe", recipePath, "error", err)
		}
		if opts.OnBuild != nil {
			opts.OnBuild(path, err)
		}
	}

	rebuild()

	catOpts := opts.Catalogue
	catOpts.OnReload = func(err error) {
		if err != nil {
			a.logger.Warn("Catalogue reloaded with errors.", "error", err)
		}
		rebuild()
	}
	w, err := a.catalogue.Watch(ctx, catOpts)
	if err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

func (a *App) writeRecipe(ctx context.Context, recipePath, output string) (string, error) {
	r, err := LoadRecipe(recipePath)
	if err != nil {
		return "", err
	}
	b, err := a.Build(ctx, r)
	if err != nil {
		return "", err
	}
	path, err := b.Write(ctx, output, false)
	if err != nil {
		return "", err
	}
	return path, nil
}
