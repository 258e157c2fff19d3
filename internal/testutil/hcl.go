package testutil

import (
	"testing"
)

// RunHCLModuleTest starts the harness over a single HCL definition file.
func RunHCLModuleTest(t *testing.T, moduleHCL string) *HarnessResult {
	t.Helper()
	return RunIntegrationTest(t, map[string]string{"module.hcl": moduleHCL})
}
