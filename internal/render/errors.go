package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// ErrUndefined is wrapped by every error caused by a reference to a name or
// attribute the context does not hold.
var ErrUndefined = errors.New("undefined variable")

// Error reports a template that failed to translate or evaluate.
type Error struct {
	// Path locates the template inside the rendered value, e.g.
	// "ansible.builtin.apt.name". It is empty for a bare string.
	Path     string
	Template string
	Err      error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("template %q: %v", e.Template, e.Err)
	}
	return fmt.Sprintf("template %q at %s: %v", e.Template, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// SyntaxError reports malformed template text. Offset is a byte offset into
// the template.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

func syntaxErrorf(offset int, format string, args ...any) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// diagError flattens HCL diagnostics into one error. Source ranges refer to
// the translated template, so only summaries and details are kept.
func diagError(diags hcl.Diagnostics) error {
	var msgs []string
	undefined := false
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		switch d.Summary {
		case "Unknown variable", "Unsupported attribute", "Variables not allowed":
			undefined = true
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		msgs = append(msgs, msg)
	}
	text := strings.Join(msgs, "; ")
	if undefined {
		return fmt.Errorf("%w: %s", ErrUndefined, text)
	}
	return errors.New(text)
}
