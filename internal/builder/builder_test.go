package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/playbookgen/internal/catalogue"
	"github.com/vk/playbookgen/internal/fsutil"
	"github.com/vk/playbookgen/internal/render"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

func ptr(v value.Value) *value.Value { return &v }

func task(name, module string, params *value.Map) *schema.TaskSpec {
	return &schema.TaskSpec{Name: name, Module: module, Params: params}
}

func testCatalogue(t *testing.T) *catalogue.Catalogue {
	t.Helper()
	webserver := &schema.Module{
		Name:        "webserver",
		Description: "Install and configure a web server",
		Prompts: []*schema.Prompt{
			{
				Name: "server_type", Description: "Server", Type: schema.TypeString, Required: true,
				Default: ptr(value.String("nginx")),
				Choices: []value.Value{value.String("nginx"), value.String("apache2")},
			},
			{Name: "http_port", Description: "Port", Type: schema.TypeInteger, Required: true, Default: ptr(value.Int(80))},
			{Name: "enable_ssl", Description: "SSL", Type: schema.TypeBoolean, Required: true, Default: ptr(value.Bool(false))},
		},
		Vars: value.MapOf("document_root", "/var/www/{{ server_type }}"),
		Tasks: []*schema.TaskSpec{
			task("Install {{ server_type }}", "ansible.builtin.package", value.MapOf("name", "{{ server_type }}", "state", "present")),
			{
				Name:   "Configure {{ server_type }} on port {{ http_port }}",
				Module: "ansible.builtin.template",
				Params: value.MapOf("src", "{{ server_type }}.conf.j2", "dest", "/etc/{{ server_type }}/site.conf"),
				Notify: []string{"restart {{ server_type }}"},
			},
			{
				Name:   "Enable TLS",
				Module: "ansible.builtin.command",
				Params: value.MapOf("cmd", "a2enmod ssl"),
				When:   ptr(value.String("{{ enable_ssl }}")),
			},
		},
		Handlers: []*schema.TaskSpec{
			task("restart {{ server_type }}", "ansible.builtin.service", value.MapOf("name", "{{ server_type }}", "state", "restarted")),
		},
	}
	database := &schema.Module{
		Name:        "database",
		Description: "Install a database",
		Prompts: []*schema.Prompt{
			{Name: "db_name", Description: "Name", Type: schema.TypeString, Required: true},
			{Name: "db_user", Description: "User", Type: schema.TypeString, Required: true},
		},
		Tasks: []*schema.TaskSpec{
			task("Create {{ db_name }}", "community.postgresql.postgresql_db", value.MapOf("name", "{{ db_name }}", "owner", "{{ db_user }}")),
		},
	}
	alpha := &schema.Module{
		Name:        "alpha",
		Description: "Two tasks",
		Vars:        value.MapOf("shared", "alpha", "alpha_only", 1),
		Tasks: []*schema.TaskSpec{
			task("a1", "ansible.builtin.debug", value.MapOf("msg", "a1")),
			task("a2", "ansible.builtin.debug", value.MapOf("msg", "a2")),
		},
		Handlers: []*schema.TaskSpec{task("reload", "ansible.builtin.debug", value.MapOf("msg", "alpha"))},
	}
	beta := &schema.Module{
		Name:        "beta",
		Description: "One task",
		Vars:        value.MapOf("shared", "beta"),
		Tasks:       []*schema.TaskSpec{task("b1", "ansible.builtin.debug", value.MapOf("msg", "b1"))},
		Handlers:    []*schema.TaskSpec{task("reload", "ansible.builtin.debug", value.MapOf("msg", "beta"))},
	}
	broken := &schema.Module{
		Name:        "broken",
		Description: "Renders fine at load, fails at render",
		Prompts: []*schema.Prompt{
			{Name: "count", Description: "Count", Type: schema.TypeInteger, Required: true, Default: ptr(value.Int(1))},
		},
		Tasks: []*schema.TaskSpec{
			task("ok", "ansible.builtin.debug", value.MapOf("msg", "fine")),
			task("bad", "ansible.builtin.debug", value.MapOf("msg", "{{ count.missing }}")),
		},
	}

	cat, err := catalogue.New(webserver, database, alpha, beta, broken)
	require.NoError(t, err)
	return cat
}

func configured(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	b := New(testCatalogue(t), opts...)
	require.NoError(t, b.SetName("Demo"))
	require.NoError(t, b.SetHosts("all"))
	return b
}

func taskNames(maps []*value.Map) []string {
	var out []string
	for _, m := range maps {
		v, _ := m.Get("name")
		out = append(out, v.String())
	}
	return out
}

func TestBuilder_StateProgression(t *testing.T) {
	b := New(testCatalogue(t), WithOutputDir(t.TempDir()))
	assert.Equal(t, StateEmpty, b.State())

	require.NoError(t, b.SetName("Demo"))
	assert.Equal(t, StateEmpty, b.State())
	require.NoError(t, b.SetHosts("web"))
	assert.Equal(t, StateConfigured, b.State())

	require.NoError(t, b.AddModule(context.Background(), "alpha", nil))
	assert.Equal(t, StateAccumulating, b.State())

	// Setting a header field again does not move the state back.
	require.NoError(t, b.SetName("Renamed"))
	assert.Equal(t, StateAccumulating, b.State())

	_, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, StateBuilt, b.State())

	_, err = b.Write(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, StateWritten, b.State())
	assert.Equal(t, "written", b.State().String())
}

func TestBuilder_IncompleteDocument(t *testing.T) {
	b := New(testCatalogue(t))

	_, err := b.Build()
	var inc *IncompleteDocumentError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"name is not set", "hosts are not set", "no tasks were added"}, inc.Missing)
	assert.Equal(t, StateEmpty, b.State(), "a failed build does not seal")

	require.NoError(t, b.SetName("Demo"))
	require.NoError(t, b.SetHosts("all"))
	_, err = b.ToYAML()
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"no tasks were added"}, inc.Missing)

	_, err = b.Write(context.Background(), filepath.Join(t.TempDir(), "x.yml"), false)
	require.ErrorAs(t, err, &inc)
}

func TestBuilder_SealedAfterBuild(t *testing.T) {
	b := configured(t)
	require.NoError(t, b.AddModule(context.Background(), "alpha", nil))

	first, err := b.Build()
	require.NoError(t, err)
	yaml1, err := b.ToYAML()
	require.NoError(t, err)

	mutations := map[string]func() error{
		"SetName":        func() error { return b.SetName("x") },
		"SetHosts":       func() error { return b.SetHosts("x") },
		"SetGatherFacts": func() error { return b.SetGatherFacts(false) },
		"AddVars":        func() error { return b.AddVars(value.MapOf("a", 1)) },
		"AddTask":        func() error { return b.AddTask(value.MapOf("name", "t")) },
		"AddHandler":     func() error { return b.AddHandler(value.MapOf("name", "h")) },
		"AddModule":      func() error { return b.AddModule(context.Background(), "beta", nil) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, mutate(), ErrSealed)
		})
	}

	second, err := b.Build()
	require.NoError(t, err)
	assert.Same(t, first, second)

	yaml2, err := b.ToYAML()
	require.NoError(t, err)
	assert.Equal(t, yaml1, yaml2)
}

func TestBuilder_AddModuleValidationCompleteness(t *testing.T) {
	b := configured(t)

	err := b.AddModule(context.Background(), "database", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "database", verr.Module)
	assert.Equal(t, []string{"db_name", "db_user"}, verr.Fields())
	assert.Contains(t, err.Error(), "db_name")
	assert.Contains(t, err.Error(), "db_user")
	assert.Equal(t, StateConfigured, b.State())
}

func TestBuilder_AddModuleNotFound(t *testing.T) {
	b := configured(t)
	err := b.AddModule(context.Background(), "mail", nil)
	var nf *catalogue.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "mail", nf.Name)
}

func TestBuilder_AddModuleIsAtomic(t *testing.T) {
	reference := configured(t)
	require.NoError(t, reference.AddModule(context.Background(), "alpha", nil))
	before, err := reference.Build()
	require.NoError(t, err)

	b := configured(t)
	require.NoError(t, b.AddModule(context.Background(), "alpha", nil))

	err = b.AddModule(context.Background(), "broken", nil)
	var rerr *render.Error
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, err.Error(), "module 'broken', task 'bad'")

	err = b.AddModule(context.Background(), "webserver", value.MapOf("http_port", "eighty"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	after, err := b.Build()
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
	assert.Equal(t, []string{"alpha"}, b.Modules())
}

func TestBuilder_AggregationOrder(t *testing.T) {
	b := configured(t)
	ctx := context.Background()
	require.NoError(t, b.AddModule(ctx, "alpha", nil))
	require.NoError(t, b.AddModule(ctx, "beta", nil))
	require.NoError(t, b.AddTask(value.MapOf("name", "custom", "ansible.builtin.debug", value.MapOf("msg", "c"))))

	doc, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1", "custom"}, taskNames(doc.Tasks))

	// Same-named handlers from different modules stay independent.
	require.Len(t, doc.Handlers, 2)
	first, _ := doc.Handlers[0].Get("ansible.builtin.debug")
	second, _ := doc.Handlers[1].Get("ansible.builtin.debug")
	assert.Equal(t, `{msg: "alpha"}`, first.String())
	assert.Equal(t, `{msg: "beta"}`, second.String())

	// Vars merge with the later module winning and first positions kept.
	assert.Equal(t, []string{"shared", "alpha_only"}, doc.Vars.Keys())
	shared, _ := doc.Vars.Get("shared")
	assert.Equal(t, value.String("beta"), shared)
}

func TestBuilder_AddVarsLastWriterWins(t *testing.T) {
	b := configured(t)
	require.NoError(t, b.AddVars(value.MapOf("env", "staging", "region", "eu")))
	require.NoError(t, b.AddVars(value.MapOf("env", "production")))
	require.NoError(t, b.AddTask(value.MapOf("name", "t", "ansible.builtin.ping", value.MapOf())))

	doc, err := b.Build()
	require.NoError(t, err)
	env, _ := doc.Vars.Get("env")
	assert.Equal(t, value.String("production"), env)
	assert.Equal(t, []string{"env", "region"}, doc.Vars.Keys())
}

func TestBuilder_WebserverScenario(t *testing.T) {
	b := configured(t)
	require.NoError(t, b.AddModule(context.Background(), "webserver", value.MapOf("http_port", "8080")))

	doc, err := b.Build()
	require.NoError(t, err)

	// The TLS task is dropped because enable_ssl is false.
	assert.Equal(t, []string{"Install nginx", "Configure nginx on port 8080"}, taskNames(doc.Tasks))

	install := doc.Tasks[0]
	assert.Equal(t, []string{"name", "ansible.builtin.package"}, install.Keys())
	pkg, _ := install.Get("ansible.builtin.package")
	assert.Equal(t, `{name: "nginx", state: "present"}`, pkg.String())

	configure := doc.Tasks[1]
	assert.Equal(t, []string{"name", "ansible.builtin.template", "notify"}, configure.Keys())
	notify, _ := configure.Get("notify")
	assert.Equal(t, value.MustFromAny([]any{"restart nginx"}), notify)

	assert.Equal(t, []string{"restart nginx"}, taskNames(doc.Handlers))
	root, _ := doc.Vars.Get("document_root")
	assert.Equal(t, value.String("/var/www/nginx"), root)

	out, err := b.ToYAML()
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "---\n- name: Demo\n"), text)
	order := []string{"hosts: all", "gather_facts: true", "vars:", "tasks:", "handlers:"}
	last := 0
	for _, key := range order {
		idx := strings.Index(text, key)
		require.GreaterOrEqual(t, idx, 0, "missing %q", key)
		assert.Greater(t, idx, last, "%q out of order", key)
		last = idx
	}
}

func TestBuilder_RoundTrip(t *testing.T) {
	b := configured(t)
	ctx := context.Background()
	require.NoError(t, b.SetGatherFacts(false))
	require.NoError(t, b.AddVars(value.MapOf("port_text", "80", "legacy", "yes", "ratio", 1.5)))
	require.NoError(t, b.AddModule(ctx, "webserver", value.MapOf("enable_ssl", true)))
	require.NoError(t, b.AddTask(value.MapOf(
		"name", "Multi-line",
		"ansible.builtin.copy", value.MapOf("content", "line one\nline two\n", "dest", "/tmp/x"),
	)))

	built, err := b.Build()
	require.NoError(t, err)
	data, err := b.ToYAML()
	require.NoError(t, err)

	parsed, err := ParseDocument(data)
	require.NoError(t, err)
	assert.True(t, built.Equal(parsed))

	again, err := parsed.YAML()
	require.NoError(t, err)
	if diff := cmp.Diff(string(data), string(again)); diff != "" {
		t.Errorf("re-serialized playbook differs (-first +second):\n%s", diff)
	}
	assert.Contains(t, string(data), "content: |")
	assert.Contains(t, string(data), `port_text: "80"`)
}

func TestBuilder_EmptyVarsAndHandlersOmitted(t *testing.T) {
	b := configured(t)
	require.NoError(t, b.AddTask(value.MapOf("name", "ping", "ansible.builtin.ping", value.MapOf())))

	out, err := b.ToYAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "vars:")
	assert.NotContains(t, string(out), "handlers:")
}

func TestBuilder_AddTaskRejectsEmpty(t *testing.T) {
	b := configured(t)
	assert.Error(t, b.AddTask(value.NewMap()))
	assert.Error(t, b.AddHandler(nil))
	assert.Equal(t, StateConfigured, b.State())
}

func TestBuilder_Write(t *testing.T) {
	dir := t.TempDir()
	b := New(testCatalogue(t), WithOutputDir(dir))
	require.NoError(t, b.SetName("My Playbook!"))
	require.NoError(t, b.SetHosts("all"))
	require.NoError(t, b.AddModule(context.Background(), "alpha", nil))

	path, err := b.Write(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my_playbook.yml"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	expected, err := b.ToYAML()
	require.NoError(t, err)
	assert.Equal(t, expected, written)

	stamped, err := b.Write(context.Background(), "", true)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`my_playbook_\d{14}\.yml$`), stamped)

	explicit := filepath.Join(dir, "nested", "site.yml")
	path, err = b.Write(context.Background(), explicit, false)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
}

func TestBuilder_WriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	b := configured(t)
	require.NoError(t, b.AddModule(context.Background(), "alpha", nil))

	_, err := b.Write(context.Background(), filepath.Join(blocker, "play.yml"), false)
	var werr *fsutil.WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, StateBuilt, b.State())
}

func TestParseDocument_Errors(t *testing.T) {
	_, err := ParseDocument([]byte("name: not a list\n"))
	assert.Error(t, err)

	_, err = ParseDocument([]byte("- name: x\n  tasks: nope\n"))
	assert.Error(t, err)

	_, err = ParseDocument([]byte("- [unclosed\n"))
	assert.True(t, err != nil && !errors.Is(err, ErrSealed))
}
