package i18n

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 250 * time.Millisecond

// Watcher reloads locale files from disk when they change and publishes the
// result to a Source. Invalid edits are logged and the previous Store stays.
type Watcher struct {
	dir      string
	fallback Lang
	src      *Source
	logger   *zap.Logger
	debounce time.Duration
	reloaded chan struct{}
}

// NewWatcher prepares a watcher for dir. Run starts it.
func NewWatcher(dir string, fallback Lang, src *Source, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		fallback: fallback,
		src:      src,
		logger:   logger,
		debounce: defaultReloadDebounce,
		reloaded: make(chan struct{}, 1),
	}
}

// Reloaded receives a value after each successful reload.
func (w *Watcher) Reloaded() <-chan struct{} { return w.reloaded }

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create locale watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch locales dir %s: %w", w.dir, err)
	}
	w.logger.Info("watching locales", zap.String("dir", w.dir))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, localeExt) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("locale watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(os.DirFS(w.dir), ".", w.fallback)
	if err != nil {
		w.logger.Warn("locale reload rejected", zap.Error(err))
		return
	}
	if err := w.src.Replace(next); err != nil {
		w.logger.Warn("locale reload rejected", zap.Error(err))
		return
	}
	w.logger.Info("locales reloaded", zap.Strings("languages", langStrings(next.Languages())))
	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}

func langStrings(langs []Lang) []string {
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return out
}
