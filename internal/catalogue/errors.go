package catalogue

import (
	"fmt"
	"strings"
)

// ModuleError lists every defect found in one module definition. Module is
// the file stem when the file could not be decoded far enough to read a name.
type ModuleError struct {
	Module  string
	File    string
	Defects []string
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module '%s' (%s) is invalid:\n  - %s", e.Module, e.File, strings.Join(e.Defects, "\n  - "))
}

// LoadError collects the failures of one load pass. Every module it names
// was left out of the catalogue; the rest loaded normally.
type LoadError struct {
	Dir     string
	Modules []*ModuleError
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Modules))
	for i, m := range e.Modules {
		msgs[i] = m.Error()
	}
	return fmt.Sprintf("catalogue %s: %d module(s) failed to load:\n- %s", e.Dir, len(e.Modules), strings.Join(msgs, "\n- "))
}

// Unwrap exposes each module failure to errors.As.
func (e *LoadError) Unwrap() []error {
	errs := make([]error, len(e.Modules))
	for i, m := range e.Modules {
		errs[i] = m
	}
	return errs
}

// NotFoundError reports a request for a module the catalogue does not hold.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("module '%s' not found: the catalogue is empty", e.Name)
	}
	return fmt.Sprintf("module '%s' not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}
