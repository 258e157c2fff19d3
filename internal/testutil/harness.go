// Package testutil holds the shared harness for integration tests: it lays
// out module definition files in a scratch directory, starts an App over
// them and captures the log output.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/playbookgen/internal/app"
	"github.com/vk/playbookgen/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Logs       *SafeBuffer
	Err        error
	App        *app.App
	ModulesDir string
	OutputDir  string
}

// LogOutput returns everything logged so far.
func (r *HarnessResult) LogOutput() string { return r.Logs.String() }

// RunIntegrationTest writes files into a scratch modules directory and
// starts an App over it with a background context.
func RunIntegrationTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-supplied
// context. Keys of files are paths relative to the modules directory and may
// contain subdirectories.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	modulesDir := filepath.Join(root, "modules")
	outputDir := filepath.Join(root, "generated_playbooks")
	require.NoError(t, os.Mkdir(modulesDir, 0o755))
	WriteFiles(t, modulesDir, files)

	cfg := config.Default()
	cfg.ModulesPath = modulesDir
	cfg.OutputDir = outputDir
	cfg.LogLevel = "debug"

	logs := &SafeBuffer{}
	testApp, err := app.New(ctx, logs, cfg)

	t.Cleanup(func() {
		if os.Getenv("PLAYBOOKGEN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	if err == nil {
		err = testApp.LoadError()
	}
	return &HarnessResult{
		Logs:       logs,
		Err:        err,
		App:        testApp,
		ModulesDir: modulesDir,
		OutputDir:  outputDir,
	}
}

// WriteFiles writes each file under dir, creating parent directories.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
