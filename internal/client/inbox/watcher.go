// Package inbox attaches files dropped into a directory to the claim.
//
// New files are picked up after they have been quiet for the debounce
// interval, handed to the session and then moved to imported/ or, when the
// session rejects them, to rejected/.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/filex"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const (
	ImportedDir = "imported"
	RejectedDir = "rejected"

	DefaultDebounce = 500 * time.Millisecond
)

// FileAdder is the part of the claim session the watcher needs.
type FileAdder interface {
	AddFile(ctx context.Context, f models.RawFile) (models.FileDescriptor, error)
}

type Watcher struct {
	dir      string
	adder    FileAdder
	log      logging.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New prepares a watcher on dir, creating it if needed.
func New(dir string, adder FileAdder, log logging.Logger, opts ...Option) (*Watcher, error) {
	if log == nil {
		log = logging.Discard()
	}
	if _, err := filex.EnsureDir(dir); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		adder:    adder,
		log:      log.With("module", "inbox"),
		debounce: DefaultDebounce,
		watcher:  fw,
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run imports files already in the directory and then every new one until
// ctx is done. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.schedule(ctx, filepath.Join(w.dir, e.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "inbox watcher error", "error", err)
		}
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}

func ignored(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".part")
}

// schedule (re)starts the quiet-period timer of path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if ignored(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if ctx.Err() == nil {
			w.ingest(ctx, path)
		}
	})
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn(ctx, "failed to read inbox file", "path", path, "error", err)
		return
	}

	name := filepath.Base(path)
	_, err = w.adder.AddFile(ctx, models.RawFile{Name: name, Data: data})
	switch {
	case err == nil:
		w.log.Info(ctx, "attached inbox file", "name", name)
		w.move(ctx, path, ImportedDir)
	case errors.Is(err, common.ErrFileRejected):
		w.log.Info(ctx, "inbox file rejected", "name", name, "error", err)
		w.move(ctx, path, RejectedDir)
	default:
		w.log.Warn(ctx, "failed to attach inbox file", "name", name, "error", err)
	}
}

func (w *Watcher) move(ctx context.Context, path, sub string) {
	dir, err := filex.EnsureDir(filepath.Join(w.dir, sub))
	if err != nil {
		w.log.Warn(ctx, "failed to create inbox subdirectory", "error", err)
		return
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	if err := os.Rename(path, target); err != nil {
		w.log.Warn(ctx, "failed to move inbox file", "path", path, "error", err)
	}
}
