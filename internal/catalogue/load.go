package catalogue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/playbookgen/internal/ctxlog"
	"github.com/vk/playbookgen/internal/fsutil"
	hclmodule "github.com/vk/playbookgen/internal/hcl"
	"github.com/vk/playbookgen/internal/schema"
	"golang.org/x/sync/errgroup"
)

// Extensions lists the definition file extensions the catalogue reads.
var Extensions = []string{".yaml", ".yml", ".hcl"}

// fileResult is what one definition file yielded: decoded modules and the
// failures of modules that could not be decoded.
type fileResult struct {
	path    string
	modules []*schema.Module
	failed  []*ModuleError
}

// loadDir decodes and validates every definition under dir. err is set only
// when the directory itself cannot be walked; per-module failures go into
// the *LoadError and never stop the load.
func loadDir(ctx context.Context, dir string) (map[string]*schema.Module, *LoadError, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading module definitions.", "dir", dir)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", dir)
	}

	files, err := fsutil.FindFilesByExtension(dir, Extensions...)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		logger.Warn("No module definition files found.", "dir", dir)
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = decodeFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	set, loadErr := merge(ctx, dir, results)
	logger.Debug("Module definitions loaded.", "dir", dir, "files", len(files), "modules", len(set))
	return set, loadErr, nil
}

func decodeFile(ctx context.Context, path string) fileResult {
	res := fileResult{path: path}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if filepath.Ext(path) == ".hcl" {
		modules, failed, diags := hclmodule.DecodeFile(ctx, path)
		if diags.HasErrors() {
			res.failed = append(res.failed, &ModuleError{Module: stem, File: path, Defects: diagDefects(diags)})
		}
		for _, f := range failed {
			res.failed = append(res.failed, &ModuleError{Module: f.Module, File: path, Defects: diagDefects(f.Diags)})
		}
		res.modules = modules
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.failed = append(res.failed, &ModuleError{Module: stem, File: path, Defects: []string{err.Error()}})
		return res
	}
	m, defects := decodeYAML(data, path)
	if len(defects) > 0 {
		id := stem
		if m != nil {
			defects = append(defects, validateModule(m)...)
			if m.Name != "" {
				id = m.Name
			}
		}
		res.failed = append(res.failed, &ModuleError{Module: id, File: path, Defects: defects})
		return res
	}
	res.modules = []*schema.Module{m}
	return res
}

func diagDefects(diags hcl.Diagnostics) []string {
	var defects []string
	for _, d := range diags.Errs() {
		defects = append(defects, d.Error())
	}
	return defects
}

// merge validates decoded modules in file order and builds the module set.
// A name already taken by an earlier file is a defect of the later one.
func merge(ctx context.Context, dir string, results []fileResult) (map[string]*schema.Module, *LoadError) {
	logger := ctxlog.FromContext(ctx)
	set := make(map[string]*schema.Module)
	var failed []*ModuleError

	for _, res := range results {
		failed = append(failed, res.failed...)
		for _, m := range res.modules {
			defects := validateModule(m)
			if prev, ok := set[m.Name]; ok && m.Name != "" {
				defects = append(defects, fmt.Sprintf("module name '%s' is already defined in %s", m.Name, prev.Source))
			}
			if len(defects) > 0 {
				id := m.Name
				if id == "" {
					id = strings.TrimSuffix(filepath.Base(res.path), filepath.Ext(res.path))
				}
				failed = append(failed, &ModuleError{Module: id, File: res.path, Defects: defects})
				continue
			}
			set[m.Name] = m
		}
	}

	for _, f := range failed {
		for _, d := range f.Defects {
			logger.Warn("Invalid module definition.", "module", f.Module, "file", f.File, "defect", d)
		}
	}
	if len(failed) > 0 {
		return set, &LoadError{Dir: dir, Modules: failed}
	}
	return set, nil
}
