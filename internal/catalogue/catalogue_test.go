package catalogue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/playbookgen/internal/schema"
	"github.com/vk/playbookgen/internal/value"
)

const webserverYAML = `
name: webserver
description: Install and configure a web server
prompts:
  - name: server_type
    description: Web server package
    type: string
    default: nginx
    choices: [nginx, apache2]
  - name: http_port
    description: HTTP port
    type: integer
    default: 80
vars:
  document_root: /var/www/{{ server_type }}
tasks:
  - name: Install {{ server_type }}
    module: ansible.builtin.package
    params:
      name: "{{ server_type }}"
      state: present
    notify: restart web server
handlers:
  - name: restart web server
    module: ansible.builtin.service
    params:
      name: "{{ server_type }}"
      state: restarted
`

const ntpHCL = `
module "ntp" {
  description = "Time synchronisation"

  prompt "server" {
    description = "Upstream server"
    default     = "pool.ntp.org"
  }

  task {
    name   = "Point chrony at {{ server }}"
    module = "ansible.builtin.lineinfile"
    params = {
      path = "/etc/chrony.conf"
      line = "server {{ server }} iburst"
    }
  }
}
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestLoad_YAMLAndHCL(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"webserver.yaml": webserverYAML,
		"sub/ntp.hcl":    ntpHCL,
		"README.md":      "ignored",
	})

	cat, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ntp", "webserver"}, cat.List())
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, dir, cat.Dir())

	web, err := cat.Get("webserver")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "webserver.yaml"), web.Source)
	require.Len(t, web.Prompts, 2)
	assert.Equal(t, schema.TypeInteger, web.Prompts[1].Type)
	assert.True(t, web.Prompts[1].Required, "required defaults to true")
	assert.Equal(t, []string{"restart web server"}, web.Tasks[0].Notify)
	assert.Equal(t, []string{"name", "state"}, web.Tasks[0].Params.Keys())

	ntp, err := cat.Get("ntp")
	require.NoError(t, err)
	assert.Equal(t, schema.TypeString, ntp.Prompts[0].Type)

	mods := cat.Modules()
	require.Len(t, mods, 2)
	assert.Equal(t, "ntp", mods[0].Name)
}

func TestLoad_CollectsEveryDefect(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.yaml": webserverYAML,
		"broken.yaml": `
name: broken
prompts:
  - name: port
    description: Port
    type: number
  - description: nameless
tasks: []
`,
	})

	cat, err := Load(context.Background(), dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Len(t, loadErr.Modules, 1)

	me := loadErr.Modules[0]
	assert.Equal(t, "broken", me.Module)
	assert.Equal(t, filepath.Join(dir, "broken.yaml"), me.File)
	assert.ElementsMatch(t, []string{
		"module description is required",
		"module must define at least one task",
		"prompt 'port': unknown type 'number' (expected one of string, integer, boolean, list, dict)",
		"prompt #2: name is required",
	}, me.Defects)

	var modErr *ModuleError
	require.ErrorAs(t, err, &modErr)
	assert.Equal(t, "broken", modErr.Module)

	assert.Equal(t, []string{"webserver"}, cat.List(), "valid modules still load")
	assert.Contains(t, err.Error(), "1 module(s) failed to load")
	assert.Contains(t, err.Error(), "module description is required")
}

func TestLoad_TypeErrorsReportedWithStructuralDefects(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"mixed.yaml": `
prompts:
  - name: a
    description: x
    type: colour
tasks: oops
`,
	})

	_, err := Load(context.Background(), dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Len(t, loadErr.Modules, 1)

	me := loadErr.Modules[0]
	assert.Equal(t, "mixed", me.Module)
	require.Len(t, me.Defects, 5, me.Defects)
	assert.Contains(t, me.Defects[0], "cannot unmarshal")
	assert.Equal(t, []string{
		"module name is required",
		"module description is required",
		"module must define at least one task",
		"prompt 'a': unknown type 'colour' (expected one of string, integer, boolean, list, dict)",
	}, me.Defects[1:])
}

func TestLoad_HCLBlockErrorNamesTheModule(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"bundle.hcl": `
module "chrony" {
  description = "Time sync"
  task {
    name   = "Install chrony"
    module = "ansible.builtin.package"
    params = { name = "chrony" }
  }
}

module "motd" {
  description = "Login banner"
  task {
    name   = "Write motd"
    module = "ansible.builtin.copy"
    params = "oops"
  }
}
`,
	})

	cat, err := Load(context.Background(), dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Len(t, loadErr.Modules, 1)
	assert.Equal(t, "motd", loadErr.Modules[0].Module)
	assert.Equal(t, filepath.Join(dir, "bundle.hcl"), loadErr.Modules[0].File)
	assert.Contains(t, loadErr.Modules[0].Error(), `"params" attribute must be an object`)
	assert.Equal(t, []string{"chrony"}, cat.List())
}

func TestLoad_UndecodableFiles(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		content  string
		contains string
	}{
		{"yaml syntax", "bad.yaml", "name: [unclosed", "invalid YAML"},
		{"yaml type", "typed.yaml", "name: typed\ndescription: y\ntasks: notalist\n", "cannot unmarshal"},
		{"empty", "empty.yml", "  \n\n", "definition file is empty"},
		{"hcl syntax", "bad.hcl", `module "x" {`, "Unclosed configuration block"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{tc.file: tc.content})

			cat, err := Load(context.Background(), dir)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			require.Len(t, loadErr.Modules, 1)
			stem := tc.file[:len(tc.file)-len(filepath.Ext(tc.file))]
			assert.Equal(t, stem, loadErr.Modules[0].Module)
			assert.Contains(t, loadErr.Modules[0].Error(), tc.contains)
			assert.Empty(t, cat.List())
		})
	}
}

func TestLoad_TemplateDefects(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"tmpl.yaml": `
name: tmpl
description: template checks
prompts:
  - name: port
    description: Port
    type: integer
vars:
  base: /srv/{{ port }}
  derived: "{{ base }}/x"
tasks:
  - name: Use {{ undeclared }}
    module: ansible.builtin.debug
    params:
      msg: "{{ port | shout }}"
  - name: Runtime loop
    module: ansible.builtin.debug
    params:
      msg: "{% raw %}{{ item }}{% endraw %}"
    loop: "{{ [1, 2] }}"
`})

	_, err := Load(context.Background(), dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Len(t, loadErr.Modules, 1)

	defects := loadErr.Modules[0].Defects
	require.Len(t, defects, 3, defects)
	assert.Equal(t, "var 'derived': references undeclared name(s) base", defects[0])
	assert.Equal(t, "task 'Use {{ undeclared }}' name: references undeclared name(s) undeclared", defects[1])
	assert.Contains(t, defects[2], "task 'Use {{ undeclared }}' params: ")
	assert.Contains(t, defects[2], `unknown filter "shout"`)
}

func TestLoad_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yaml": webserverYAML,
		"b.yaml": webserverYAML,
	})

	cat, err := Load(context.Background(), dir)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Len(t, loadErr.Modules, 1)
	assert.Equal(t, filepath.Join(dir, "b.yaml"), loadErr.Modules[0].File)
	assert.Contains(t, loadErr.Modules[0].Defects[0], "already defined in "+filepath.Join(dir, "a.yaml"))

	web, err := cat.Get("webserver")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), web.Source)
}

func TestLoad_MissingDirectory(t *testing.T) {
	cat, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, cat.List())
}

func TestGet_NotFound(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"webserver.yaml": webserverYAML})
	cat, err := Load(context.Background(), dir)
	require.NoError(t, err)

	_, err = cat.Get("mail")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "mail", nf.Name)
	assert.Equal(t, []string{"webserver"}, nf.Available)
	assert.Equal(t, "module 'mail' not found (available: webserver)", err.Error())
}

func TestReload_SwapsTheWholeSet(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"webserver.yaml": webserverYAML})
	cat, err := Load(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "webserver.yaml")))
	writeFiles(t, dir, map[string]string{"ntp.hcl": ntpHCL})

	require.NoError(t, cat.Reload(context.Background()))
	assert.Equal(t, []string{"ntp"}, cat.List())
}

func TestReload_KeepsSetWhenDirectoryIsGone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "modules")
	writeFiles(t, dir, map[string]string{"webserver.yaml": webserverYAML})
	cat, err := Load(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	err = cat.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, []string{"webserver"}, cat.List())
}

func TestCatalogue_ConcurrentReadersDuringReload(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"webserver.yaml": webserverYAML, "ntp.hcl": ntpHCL})
	cat, err := Load(context.Background(), dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				names := cat.List()
				assert.Len(t, names, 2)
				for _, n := range names {
					_, err := cat.Get(n)
					assert.NoError(t, err)
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, cat.Reload(context.Background()))
	}
	wg.Wait()
}

func TestNew_ValidatesInMemoryModules(t *testing.T) {
	good := &schema.Module{
		Name:        "echo",
		Description: "Echo a message",
		Prompts: []*schema.Prompt{
			{Name: "msg", Description: "Message", Type: schema.TypeString, Required: true},
		},
		Tasks: []*schema.TaskSpec{{
			Name:   "say",
			Module: "ansible.builtin.debug",
			Params: value.MapOf("msg", "{{ msg }}"),
		}},
	}
	bad := &schema.Module{Name: "bad"}

	cat, err := New(good, bad)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "bad", loadErr.Modules[0].Module)
	assert.Equal(t, "<memory>", loadErr.Modules[0].File)
	assert.Equal(t, []string{"echo"}, cat.List())
}
