package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/playbookgen/internal/params"
)

// ErrSealed is returned by every mutation after Build has succeeded.
var ErrSealed = errors.New("playbook is already built")

// ValidationError reports supplied parameters that failed a module's prompt
// constraints. Violations holds every offending field.
type ValidationError struct {
	Module     string
	Violations []params.Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("module '%s': invalid parameters:\n- %s", e.Module, strings.Join(msgs, "\n- "))
}

// Fields lists the offending field names in order.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Field
	}
	return out
}

// IncompleteDocumentError lists everything Build needs but does not have.
type IncompleteDocumentError struct {
	Missing []string
}

func (e *IncompleteDocumentError) Error() string {
	return fmt.Sprintf("playbook is incomplete:\n- %s", strings.Join(e.Missing, "\n- "))
}
