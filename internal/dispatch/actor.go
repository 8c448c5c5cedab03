// Package dispatch runs the scheduling actor: a single goroutine that owns
// the schedule, arms a timer for the earliest pending entry, and publishes
// entries to the bus as they come due.
//
// Everything that mutates the schedule (timer expiry, fragment reloads, full
// rescans) is serialized through the actor's event loop, so the schedule
// itself needs no locking. Change notifications arrive through a coalescing
// queue and interrupt the armed timer; the loop then re-arms against the new
// earliest due time.
package dispatch

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"cued/internal/bus"
	"cued/internal/metrics"
	"cued/internal/schedule"
	"cued/internal/storage"
	"cued/pkg/logx"
)

// State describes what the actor's event loop is doing.
type State int32

const (
	// StateStarting is the zero value: Run has not reached its event loop
	// yet, the initial directory compile included.
	StateStarting State = iota

	// StateIdle means the schedule is empty and the loop sleeps until a
	// change notification arrives.
	StateIdle

	// StateWaiting means a timer is armed for the earliest pending entry.
	StateWaiting

	// StateDispatching means due entries are being published right now.
	StateDispatching

	// StateStopped means Run has returned.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateDispatching:
		return "dispatching"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Config struct {
	// Dir is the script source directory.
	Dir string

	// SubjectPrefix, when set, is prepended to every entry topic with a
	// "." separator before publishing.
	SubjectPrefix string

	// PublishTimeout bounds a single publish call. Zero means the actor's
	// run context is the only bound.
	PublishTimeout time.Duration
}

// Actor is the scheduling core. Create with New, feed it change
// notifications via NotifyChange/NotifyRescan, and drive it with Run.
type Actor struct {
	cfg     Config
	sched   *schedule.Schedule
	comp    *schedule.Compiler
	pub     bus.Publisher
	journal storage.Store // may be nil
	met     *metrics.Metrics
	log     logx.Logger

	q     *changeQueue
	state atomic.Int32
	now   func() time.Time // test hook; defaults to time.Now

	// mark is the time of the latest dispatch sweep. Every entry due at or
	// before it has already fired; re-parsed fragments are filtered against
	// it so a reload never delivers an entry twice.
	mark time.Time
}

func New(cfg Config, comp *schedule.Compiler, pub bus.Publisher, journal storage.Store, met *metrics.Metrics, log logx.Logger) *Actor {
	return &Actor{
		cfg:     cfg,
		sched:   schedule.New(),
		comp:    comp,
		pub:     pub,
		journal: journal,
		met:     met,
		log:     log,
		q:       newChangeQueue(),
		now:     time.Now,
	}
}

// State returns the loop's current state. Safe from any goroutine.
func (a *Actor) State() State { return State(a.state.Load()) }

func (a *Actor) setState(s State) { a.state.Store(int32(s)) }

// NotifyChange queues a reload of the fragment at path. Non-blocking.
func (a *Actor) NotifyChange(path string) { a.q.addPath(path) }

// NotifyRescan queues a full re-scan of the source directory. Non-blocking.
func (a *Actor) NotifyRescan() { a.q.requestRescan() }

// Run compiles the source directory and then loops until ctx is cancelled.
// It always returns nil; a broken bus or unreadable fragment degrades the
// schedule but never stops the actor.
func (a *Actor) Run(ctx context.Context) error {
	defer a.setState(StateStopped)

	if errs := a.comp.CompileDir(a.cfg.Dir, a.sched); len(errs) > 0 {
		a.met.AddParseErrors(len(errs))
	}
	a.met.SetPendingEntries(a.sched.Len())
	a.log.Info("schedule compiled",
		logx.String("dir", a.cfg.Dir),
		logx.Int("pending", a.sched.Len()),
	)

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	for {
		// Anything already due fires before the timer is armed. This is
		// what makes overdue entries from a reload go out immediately.
		a.dispatchDue(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if next, ok := a.sched.NextDue(); ok {
			wait := next.Sub(a.now())
			if wait < 0 {
				wait = 0
			}
			timer.Reset(wait)
			a.setState(StateWaiting)
		} else {
			a.setState(StateIdle)
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			a.log.Info("dispatcher stopping")
			return nil
		case <-timer.C:
			// Loop top dispatches.
		case <-a.q.wake:
			stopTimer(timer)
			a.applyChanges()
		}
	}
}

// stopTimer stops t and drains a pending tick so Reset starts clean.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (a *Actor) dispatchDue(ctx context.Context) {
	now := a.now()
	due := a.sched.PopDue(now)
	if len(due) == 0 {
		return
	}
	if now.After(a.mark) {
		a.mark = now
	}
	a.setState(StateDispatching)
	for _, e := range due {
		if ctx.Err() != nil {
			return
		}
		a.publish(ctx, e)
	}
	a.met.SetPendingEntries(a.sched.Len())
}

func (a *Actor) publish(ctx context.Context, e schedule.Entry) {
	subject := e.Topic
	if a.cfg.SubjectPrefix != "" {
		subject = a.cfg.SubjectPrefix + "." + subject
	}

	pctx := ctx
	if a.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, a.cfg.PublishTimeout)
		defer cancel()
	}

	err := a.pub.Publish(pctx, subject, e.Payload)
	if err != nil {
		a.met.IncPublishFailures()
		a.log.Error("publish failed",
			logx.String("subject", subject),
			logx.String("origin", string(e.Origin)),
			logx.Err(err),
		)
	} else {
		a.met.IncDispatches()
		a.log.Info("dispatched",
			logx.String("subject", subject),
			logx.String("origin", string(e.Origin)),
			logx.Int("bytes", len(e.Payload)),
		)
	}

	if a.journal != nil {
		rec := storage.DispatchRecord{
			At:      a.now(),
			Subject: subject,
			Origin:  string(e.Origin),
			Seq:     e.Seq,
			Due:     e.Due,
			Bytes:   len(e.Payload),
			OK:      err == nil,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if jerr := a.journal.AppendDispatch(ctx, rec); jerr != nil {
			a.log.Warn("journal append failed", logx.Err(jerr))
		}
	}
}

func (a *Actor) applyChanges() {
	paths, rescan := a.q.drain()
	if rescan {
		a.rescan()
	} else {
		for _, p := range paths {
			a.reloadFragment(p)
		}
	}
	a.met.IncReloads()
	a.met.SetPendingEntries(a.sched.Len())
}

// reloadFragment re-parses one fragment and replaces its contribution. A
// missing file is an empty reload: the fragment's pending entries are
// dropped. A malformed file drops them too, since a partial parse is never
// applied.
func (a *Actor) reloadFragment(path string) {
	id := schedule.FragmentID(path)

	if _, err := os.Stat(path); err != nil {
		if n := a.sched.Remove(id); n > 0 {
			a.log.Info("fragment removed",
				logx.String("path", path),
				logx.Int("dropped", n),
			)
		}
		return
	}

	entries, loadTime, err := a.comp.CompileFile(path)
	if err != nil {
		a.met.AddParseErrors(1)
		a.sched.Remove(id)
		a.log.Warn("fragment rejected", logx.String("path", path), logx.Err(err))
		return
	}

	// Re-parsing a known fragment sees every line again, fired ones
	// included. Entries due at or before the last dispatch sweep already
	// went out and must not fire twice. A fragment seen for the first time
	// keeps its overdue entries so they dispatch immediately.
	if a.sched.Has(id) {
		kept := entries[:0]
		for _, e := range entries {
			if e.Due.After(a.mark) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	a.sched.Apply(id, entries, loadTime)
	a.log.Info("fragment reloaded",
		logx.String("path", path),
		logx.Int("entries", len(entries)),
	)
}

// rescan walks the source directory, reloads every fragment found, and
// drops fragments whose files are gone. Used when watch events may have
// been lost and after watcher restarts.
func (a *Actor) rescan() {
	paths, err := a.comp.ScanDir(a.cfg.Dir)
	if err != nil {
		a.log.Error("rescan failed", logx.String("dir", a.cfg.Dir), logx.Err(err))
		return
	}

	found := make(map[schedule.FragmentID]struct{}, len(paths))
	for _, p := range paths {
		found[schedule.FragmentID(p)] = struct{}{}
		a.reloadFragment(p)
	}
	for _, id := range a.sched.Fragments() {
		if _, ok := found[id]; !ok {
			if n := a.sched.Remove(id); n > 0 {
				a.log.Info("fragment removed",
					logx.String("path", string(id)),
					logx.Int("dropped", n),
				)
			}
		}
	}
	a.log.Debug("rescan complete",
		logx.Int("fragments", len(paths)),
		logx.Int("pending", a.sched.Len()),
	)
}
