// Package watch reports batches of changed source files under a directory.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/phobologic/jssuggest/internal/discover"
	"github.com/phobologic/jssuggest/internal/lang"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// Options controls which changes are reported and how they are batched.
type Options struct {
	// Debounce is how long the tree must be quiet before a batch is delivered.
	Debounce time.Duration
	// Languages restricts reported files to the listed languages when non-empty.
	Languages []string
}

// Func receives the sorted, slash-separated root-relative paths that changed
// since the previous call. A non-nil error stops Run.
type Func func(ctx context.Context, changed []string) error

// Watcher watches a directory tree, skipping the directories discovery skips.
type Watcher struct {
	root    string
	opts    Options
	langSet map[string]struct{}
	fsw     *fsnotify.Watcher
}

// New starts watching root. Watches are registered before New returns.
func New(root string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		root:    root,
		opts:    opts,
		langSet: make(map[string]struct{}, len(opts.Languages)),
		fsw:     fsw,
	}
	for _, l := range opts.Languages {
		w.langSet[l] = struct{}{}
	}
	if w.opts.Debounce <= 0 {
		w.opts.Debounce = DefaultDebounce
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers debounced batches of changes to fn until ctx is done, which is
// not an error. The watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	defer func() { _ = w.fsw.Close() }()

	pending := make(map[string]struct{})
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && w.isDir(ev.Name) {
				if !discover.SkipDir(filepath.Base(ev.Name)) {
					if err := w.addTree(ev.Name); err != nil {
						log.Warn().Err(err).Str("dir", ev.Name).Msg("watch: failed to add directory")
					}
				}
				continue
			}
			rel, ok := w.relevant(ev)
			if !ok {
				continue
			}
			log.Debug().Str("file", rel).Str("op", ev.Op.String()).Msg("watch: change")
			pending[rel] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.opts.Debounce)

		case <-timerChan(timer):
			timer = nil
			changed := make([]string, 0, len(pending))
			for rel := range pending {
				changed = append(changed, rel)
			}
			sort.Strings(changed)
			clear(pending)
			if err := fn(ctx, changed); err != nil {
				return err
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch: watcher error")
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) isDir(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.IsDir()
}

// relevant maps an event to a root-relative path when it concerns a
// source file discovery would pick up.
func (w *Watcher) relevant(ev fsnotify.Event) (string, bool) {
	if ev.Op == fsnotify.Chmod {
		return "", false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || strings.Contains(name, ".min.") {
		return "", false
	}
	langName := lang.ForExtension(filepath.Ext(name))
	if langName == "" {
		return "", false
	}
	if len(w.langSet) > 0 {
		if _, ok := w.langSet[langName]; !ok {
			return "", false
		}
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// timerChan returns t's channel, or nil (blocks forever) when t is nil.
func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
