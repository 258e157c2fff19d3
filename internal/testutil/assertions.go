package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/playbookgen/internal/builder"
	"github.com/vk/playbookgen/internal/value"
)

// AssertModuleLoaded checks that the catalogue holds the named module.
func AssertModuleLoaded(t *testing.T, result *HarnessResult, name string) {
	t.Helper()
	require.NotNil(t, result.App, "app failed to start: %v", result.Err)
	_, err := result.App.Catalogue().Get(name)
	require.NoError(t, err, "expected module '%s' to be loaded", name)
}

// AssertDefectLogged checks that a module defect containing fragment was
// logged at warn level.
func AssertDefectLogged(t *testing.T, result *HarnessResult, fragment string) {
	t.Helper()
	for _, line := range strings.Split(result.LogOutput(), "\n") {
		if strings.Contains(line, "level=WARN") && strings.Contains(line, fragment) {
			return
		}
	}
	require.Fail(t, "defect not logged", "no warning containing %q in:\n%s", fragment, result.LogOutput())
}

// TaskNames returns the rendered name of every task, in order.
func TaskNames(doc *builder.Document) []string {
	return names(doc.Tasks)
}

// HandlerNames returns the rendered name of every handler, in order.
func HandlerNames(doc *builder.Document) []string {
	return names(doc.Handlers)
}

func names(maps []*value.Map) []string {
	out := make([]string, len(maps))
	for i, m := range maps {
		v, _ := m.Get("name")
		out[i] = v.String()
	}
	return out
}

// TaskParams returns the module parameters of the task with the given
// rendered name.
func TaskParams(t *testing.T, doc *builder.Document, taskName, module string) *value.Map {
	t.Helper()
	for _, task := range doc.Tasks {
		if n, _ := task.Get("name"); n.String() != taskName {
			continue
		}
		params, ok := task.Get(module)
		require.True(t, ok, "task %q has no %s parameters; keys are %v", taskName, module, task.Keys())
		require.Equal(t, value.KindMap, params.Kind(), fmt.Sprintf("task %q parameters", taskName))
		return params.Map()
	}
	require.Fail(t, "task not found", "no task named %q in %v", taskName, TaskNames(doc))
	return nil
}
