// Package watcher turns raw filesystem events on the script source
// directory into a deduplicated stream of "fragment possibly changed"
// notifications.
//
// Editors save files as bursts of create/write/rename/chmod events; one
// save must become one notification. False positives are fine (the
// dispatcher re-parses idempotently) but a real change must never be
// missed, so overflow and watcher breakage degrade to a full rescan rather
// than silence.
package watcher

import (
	"context"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cued/internal/schedule"
	"cued/pkg/logx"
)

const (
	DefaultDebounce = 250 * time.Millisecond

	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Sink receives change notifications. The dispatch actor implements it;
// both methods must be non-blocking (the actor queues internally).
type Sink interface {
	// NotifyChange reports that the fragment at path may have changed,
	// appeared, or disappeared.
	NotifyChange(path string)

	// NotifyRescan requests a full re-scan of the source directory, used
	// when events may have been lost.
	NotifyRescan()
}

type Config struct {
	Dir      string
	Debounce time.Duration
}

// Watcher observes the source directory tree. A broken fsnotify watcher is
// recreated with jittered exponential backoff; the dispatcher keeps running
// on its last-known-good schedule in the meantime.
type Watcher struct {
	cfg  Config
	sink Sink
	log  logx.Logger

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

func New(cfg Config, sink Sink, log logx.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		cfg:    cfg,
		sink:   sink,
		log:    log,
		timers: map[string]*time.Timer{},
	}
}

// Run watches until ctx is done. It only returns early if the watch
// directory cannot be observed at all after retries are exhausted by ctx.
func (w *Watcher) Run(ctx context.Context) error {
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	wait := func() bool {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			w.stopTimers()
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.log.Warn("watch init failed", logx.Err(err), logx.String("dir", w.cfg.Dir))
			if !wait() {
				return nil
			}
			continue
		}

		if err := w.addTree(fw, w.cfg.Dir); err != nil {
			_ = fw.Close()
			w.log.Warn("watch add failed", logx.Err(err), logx.String("dir", w.cfg.Dir))
			if !wait() {
				return nil
			}
			continue
		}

		// Watcher (re)created: anything may have changed while we were
		// blind, so force one rescan and reset the backoff.
		backoff = restartBackoffBase
		w.sink.NotifyRescan()
		w.log.Debug("watcher started", logx.String("dir", w.cfg.Dir))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				w.stopTimers()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				w.handleEvent(fw, ev)
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means missed events; rescan and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("watch overflow; forcing rescan", logx.Err(err))
					w.sink.NotifyRescan()
					continue
				}
				w.log.Warn("watch error", logx.Err(err), logx.String("dir", w.cfg.Dir))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			w.stopTimers()
			return nil
		}
		w.log.Warn("watcher stopped; restarting", logx.String("dir", w.cfg.Dir))
		if !wait() {
			w.stopTimers()
			return nil
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	// New subdirectories must be watched too; fsnotify is not recursive.
	// A directory moved in can carry script files we never saw events
	// for, so it forces a rescan.
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addTree(fw, ev.Name)
			w.sink.NotifyRescan()
			return
		}
	}

	if !schedule.IsScriptFile(ev.Name) {
		// A directory moved or deleted emits one event for its whole
		// subtree; the fragments inside vanish without events of their
		// own. The path is already gone so stat cannot tell us what it
		// was; an extensionless name is the remaining directory signal.
		if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && filepath.Ext(ev.Name) == "" {
			w.sink.NotifyRescan()
		}
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) == 0 {
		return
	}
	w.debounce(ev.Name)
}

// debounce coalesces the event burst of a single save into one
// notification per path.
func (w *Watcher) debounce(path string) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.log.Trace("change detected; debouncing", logx.String("path", path))
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.timerMu.Lock()
		delete(w.timers, path)
		w.timerMu.Unlock()
		w.sink.NotifyChange(path)
	})
}

func (w *Watcher) stopTimers() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// addTree registers root and every subdirectory with the watcher.
// Subdirectories that vanish mid-walk are skipped; the next event or
// rescan covers them.
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			w.log.Warn("watch subdir failed", logx.String("path", path), logx.Err(err))
		}
		return nil
	})
}
