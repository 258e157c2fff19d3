package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/playbookgen/internal/builder"
	"github.com/vk/playbookgen/internal/testutil"
	"github.com/vk/playbookgen/internal/value"
)

const ntpHCL = `
module "ntp" {
  description = "Keep time with chrony"

  prompt "servers" {
    type        = list
    description = "Upstream servers"
    default     = ["a.pool.ntp.org", "b.pool.ntp.org"]
  }

  prompt "iburst" {
    type        = boolean
    description = "Use iburst"
    default     = true
    required    = false
  }

  vars = {
    chrony_conf = "/etc/chrony.conf"
  }

  task {
    name   = "Install chrony"
    module = "ansible.builtin.package"
    params = {
      name  = "chrony"
      state = "present"
    }
  }

  task {
    name   = "Write {{ chrony_conf }}"
    module = "ansible.builtin.copy"
    params = {
      dest    = "{{ chrony_conf }}"
      content = "{% for s in servers %}server {{ s }}{% if iburst %} iburst{% endif %}\n{% endfor %}"
    }
    notify = ["restart chronyd"]
  }

  handler {
    name   = "restart chronyd"
    module = "ansible.builtin.service"
    params = {
      name  = "chronyd"
      state = "restarted"
    }
  }
}
`

const ntpYAML = `
name: ntp
description: Keep time with chrony
prompts:
  - name: servers
    type: list
    description: Upstream servers
    default: [a.pool.ntp.org, b.pool.ntp.org]
  - name: iburst
    type: boolean
    description: Use iburst
    default: true
    required: false
vars:
  chrony_conf: /etc/chrony.conf
tasks:
  - name: Install chrony
    module: ansible.builtin.package
    params:
      name: chrony
      state: present
  - name: "Write {{ chrony_conf }}"
    module: ansible.builtin.copy
    params:
      dest: "{{ chrony_conf }}"
      content: "{% for s in servers %}server {{ s }}{% if iburst %} iburst{% endif %}\n{% endfor %}"
    notify: restart chronyd
handlers:
  - name: restart chronyd
    module: ansible.builtin.service
    params:
      name: chronyd
      state: restarted
`

func buildNTP(t *testing.T, files map[string]string, params *value.Map) *builder.Document {
	t.Helper()
	result := testutil.RunIntegrationTest(t, files)
	require.NoError(t, result.Err)
	testutil.AssertModuleLoaded(t, result, "ntp")

	b := result.App.NewBuilder()
	require.NoError(t, b.SetName("Time"))
	require.NoError(t, b.SetHosts("all"))
	require.NoError(t, b.AddModule(context.Background(), "ntp", params))
	doc, err := b.Build()
	require.NoError(t, err)
	return doc
}

// TestHclFeatures_MatchesYAML renders the same module written in HCL and in
// YAML and expects identical playbooks.
func TestHclFeatures_MatchesYAML(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		params *value.Map
	}{
		{"defaults", nil},
		{"overrides", value.MapOf("servers", "time.example.com", "iburst", "no")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fromHCL := buildNTP(t, map[string]string{"ntp.hcl": ntpHCL}, tc.params)
			fromYAML := buildNTP(t, map[string]string{"ntp.yaml": ntpYAML}, tc.params)
			assert.True(t, fromHCL.Equal(fromYAML))

			hclYAML, err := fromHCL.YAML()
			require.NoError(t, err)
			yamlYAML, err := fromYAML.YAML()
			require.NoError(t, err)
			assert.Equal(t, string(yamlYAML), string(hclYAML))
		})
	}
}

// TestHclFeatures_LoopAndCondition checks the for loop and the inline if
// inside the rendered file content.
func TestHclFeatures_LoopAndCondition(t *testing.T) {
	t.Parallel()
	result := testutil.RunHCLModuleTest(t, ntpHCL)
	require.NoError(t, result.Err)

	b := result.App.NewBuilder()
	require.NoError(t, b.SetName("Time"))
	require.NoError(t, b.SetHosts("ntp_clients"))
	require.NoError(t, b.AddModule(context.Background(), "ntp", value.MapOf("iburst", false)))
	doc, err := b.Build()
	require.NoError(t, err)

	params := testutil.TaskParams(t, doc, "Write /etc/chrony.conf", "ansible.builtin.copy")
	content, _ := params.Get("content")
	assert.Equal(t, "server a.pool.ntp.org\nserver b.pool.ntp.org\n", content.String())
	notify, _ := doc.Tasks[1].Get("notify")
	assert.Equal(t, `["restart chronyd"]`, notify.String())
}

// TestHclFeatures_DefinitionsInSubdirectories mixes formats across nested
// directories.
func TestHclFeatures_DefinitionsInSubdirectories(t *testing.T) {
	t.Parallel()
	result := testutil.RunIntegrationTest(t, map[string]string{
		"time/ntp.hcl": ntpHCL,
		"base/ping.yml": `
name: ping
description: Ping hosts
tasks:
  - {name: ping, module: ansible.builtin.ping}
`,
		".hidden/ignored.yaml": "this: is: not: valid",
	})
	require.NoError(t, result.Err)
	assert.Equal(t, []string{"ntp", "ping"}, result.App.Catalogue().List())
}
