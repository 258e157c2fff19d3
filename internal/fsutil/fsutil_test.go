package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "nested/c.hcl", "notes.txt", ".git/x.yaml"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	files, err := FindFilesByExtension(root, ".yaml", ".yml", ".hcl")
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "a.yml"),
		filepath.Join(root, "b.yaml"),
		filepath.Join(root, "nested", "c.hcl"),
	}
	assert.Equal(t, want, files)
}

func TestFindFilesByExtension_MissingRoot(t *testing.T) {
	_, err := FindFilesByExtension(filepath.Join(t.TempDir(), "absent"), ".yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"My Playbook!", "my_playbook"},
		{"Web/Server Deploy", "web_server_deploy"},
		{"  spaced   out  ", "spaced_out"},
		{"keep-dashes_and_underscores", "keep-dashes_and_underscores"},
		{"!!!", ""},
		{"Dépôt 2", "dépôt_2"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestGenerateFilename(t *testing.T) {
	fixed := time.Date(2026, 10, 17, 9, 5, 3, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	assert.Equal(t, "backup.yml", GenerateFilename("backup", false))
	assert.Equal(t, "backup_20261017090503.yml", GenerateFilename("backup", true))
	assert.Equal(t, "site.yaml", GenerateFilename("site.yaml", false))
	assert.Equal(t, "playbook.yml", GenerateFilename("", false))
}

func TestGenerateFilename_TimestampPattern(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^backup_\d{14}\.yml$`), GenerateFilename("backup", true))
}

func TestOutputPath(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	assert.Equal(t, filepath.Join("out", "my_site.yml"), OutputPath("", "out", "My Site", false))
	assert.Equal(t, filepath.Join("out", "my_site_20260102030405.yml"), OutputPath("", "out", "My Site", true))
	assert.Equal(t, "custom/play.yml", OutputPath("custom/play.yml", "out", "ignored", false))
	assert.Equal(t, filepath.Join("custom", "play_20260102030405.yml"), OutputPath("custom/play.yml", "out", "x", true))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "play.yml")

	abs, err := WriteFileAtomic(path, []byte("---\n"), 0o644)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "---\n", string(data))

	abs, err = WriteFileAtomic(path, []byte("replaced\n"), 0o644)
	require.NoError(t, err)
	data, err = os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "replaced\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(abs))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteFileAtomic_DirectoryIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := WriteFileAtomic(filepath.Join(blocker, "play.yml"), []byte("x"), 0o644)
	require.Error(t, err)

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "create directory", werr.Op)
}
