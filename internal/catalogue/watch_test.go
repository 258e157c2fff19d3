package catalogue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"webserver.yaml": webserverYAML})
	cat, err := Load(context.Background(), dir)
	require.NoError(t, err)

	reloaded := make(chan error, 8)
	w, err := cat.Watch(context.Background(), WatchOptions{
		Debounce: 20 * time.Millisecond,
		OnReload: func(err error) { reloaded <- err },
	})
	require.NoError(t, err)
	defer w.Stop()

	writeFiles(t, dir, map[string]string{"ntp.hcl": ntpHCL})

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("catalogue was not reloaded")
	}
	assert.Eventually(t, func() bool {
		return len(cat.List()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	w.Stop()
}

func TestWatch_NewSubdirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	cat, err := Load(context.Background(), dir)
	require.NoError(t, err)

	w, err := cat.Watch(context.Background(), WatchOptions{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	writeFiles(t, dir, map[string]string{filepath.Join("web", "webserver.yaml"): webserverYAML})

	assert.Eventually(t, func() bool {
		_, err := cat.Get("webserver")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatch_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	cat, err := Load(context.Background(), t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := cat.Watch(ctx, WatchOptions{})
	require.NoError(t, err)

	cancel()
	w.Stop()
}

func TestWatch_MissingDirectory(t *testing.T) {
	cat, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	_, err = cat.Watch(context.Background(), WatchOptions{})
	assert.Error(t, err)
}
