package catalogue

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/playbookgen/internal/ctxlog"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 250 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce is the quiet period after the last change before a reload.
	// Zero means DefaultDebounce.
	Debounce time.Duration
	// OnReload, when set, receives the result of every reload. It runs on
	// the watcher goroutine.
	OnReload func(err error)
}

// Watcher reloads a catalogue when its definition files change.
type Watcher struct {
	cat      *Catalogue
	fsw      *fsnotify.Watcher
	opts     WatchOptions
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Watch starts watching the catalogue directory and its subdirectories. The
// watcher runs until Stop is called or ctx is cancelled.
func (c *Catalogue) Watch(ctx context.Context, opts WatchOptions) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		cat:    c,
		fsw:    fsw,
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if err := w.addTree(c.dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Watching module definitions.", "dir", c.dir, "debounce", opts.Debounce)
	go w.run(ctx)
	return w, nil
}

// Stop ends the watcher and waits for its goroutine to exit. It is safe to
// call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.fsw.Close()
	logger := ctxlog.FromContext(ctx)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Catalogue watcher stopped by context.")
			return
		case <-w.stopCh:
			logger.Debug("Catalogue watcher stopped.")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("Module definition changed.", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("Catalogue watcher error.", "error", err)
		case <-timerC:
			timerC = nil
			err := w.cat.Reload(ctx)
			if w.opts.OnReload != nil {
				w.opts.OnReload(err)
			}
		}
	}
}

// relevant reports whether event can change the module set. New
// directories are added to the watch list as they appear.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
			return true
		}
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, ext := range Extensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	// A removed or renamed directory takes its definitions with it.
	return event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
