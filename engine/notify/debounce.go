// Package notify deduplicates and rate-limits user-facing notifications
// triggered by a stream of asynchronous domain events. A burst of
// near-duplicate events for one logical key collapses into a single delayed
// notification; a just-shown notification suppresses further events for its
// key until a recent window elapses.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/partshub/fitment/pkg/metrics"
)

// Per-key phases. Absence from the key map is the idle state.
type phase int

const (
	phasePending phase = iota // emission scheduled, window still sliding
	phaseRecent               // just emitted, further events suppressed
)

// Options configures the debounce windows.
type Options struct {
	// Delay is how long after the last event in a burst the notification
	// fires.
	Delay time.Duration
	// RecentWindow is how long after an emission events for the same key are
	// dropped.
	RecentWindow time.Duration
}

// DefaultOptions returns the development defaults (production deployments
// run wider windows, typically 3s/8s).
func DefaultOptions() Options {
	return Options{Delay: 2 * time.Second, RecentWindow: 5 * time.Second}
}

type keyState struct {
	phase phase
	// gen identifies the current timer cycle. A wall-clock timer can be
	// in flight when Cancel runs (Timer.Stop returns false); its closure
	// carries a stale gen and is ignored when it finally acquires the lock.
	gen    uint64
	handle Handle
}

// Debouncer is the per-key notification state machine. Safe for concurrent
// use; scheduling and cancellation for a key are atomic relative to each
// other.
type Debouncer struct {
	mu    sync.Mutex
	opts  Options
	sched Scheduler
	log   *slog.Logger
	keys  map[string]*keyState

	emitted    *metrics.Counter
	suppressed *metrics.Counter
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithCounters wires emission/suppression counters.
func WithCounters(emitted, suppressed *metrics.Counter) Option {
	return func(d *Debouncer) {
		d.emitted = emitted
		d.suppressed = suppressed
	}
}

// WithLogger sets the logger used when a callback panics.
func WithLogger(log *slog.Logger) Option {
	return func(d *Debouncer) { d.log = log }
}

// New creates a Debouncer. A nil scheduler falls back to wall-clock timers;
// zero-valued windows fall back to defaults.
func New(opts Options, sched Scheduler, o ...Option) *Debouncer {
	def := DefaultOptions()
	if opts.Delay <= 0 {
		opts.Delay = def.Delay
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = def.RecentWindow
	}
	if sched == nil {
		sched = NewTimerScheduler()
	}
	d := &Debouncer{
		opts:  opts,
		sched: sched,
		log:   slog.Default(),
		keys:  make(map[string]*keyState),
	}
	for _, f := range o {
		f(d)
	}
	return d
}

// Notify feeds one event into the state machine. callback runs at most once
// per key per debounce cycle, Delay after the last event of a burst. Events
// arriving inside the recent window are dropped entirely.
func (d *Debouncer) Notify(eventType, entityID string, payload any, callback func()) {
	key := Key(eventType, entityID, payload)

	d.mu.Lock()
	defer d.mu.Unlock()

	ks, ok := d.keys[key]
	switch {
	case !ok:
		// IDLE -> PENDING
		ks = &keyState{phase: phasePending}
		d.keys[key] = ks
		gen := ks.gen
		ks.handle = d.sched.Schedule(d.opts.Delay, func() { d.fire(key, gen, callback) })
	case ks.phase == phasePending:
		// The window slides: fire Delay after the latest event, with the
		// latest callback.
		d.sched.Cancel(ks.handle)
		ks.gen++
		gen := ks.gen
		ks.handle = d.sched.Schedule(d.opts.Delay, func() { d.fire(key, gen, callback) })
	default:
		// RECENT: drop, no new pending cycle.
		if d.suppressed != nil {
			d.suppressed.Inc()
		}
	}
}

// fire runs when a debounce delay elapses without a reset.
func (d *Debouncer) fire(key string, gen uint64, callback func()) {
	d.mu.Lock()
	ks, ok := d.keys[key]
	if !ok || ks.phase != phasePending || ks.gen != gen {
		// Cleared, cancelled, or superseded while the timer was firing.
		d.mu.Unlock()
		return
	}
	ks.phase = phaseRecent
	ks.gen++
	expireGen := ks.gen
	ks.handle = d.sched.Schedule(d.opts.RecentWindow, func() { d.expire(key, expireGen) })
	if d.emitted != nil {
		d.emitted.Inc()
	}
	d.mu.Unlock()

	// The callback is the caller's concern; a panic there must not corrupt
	// timer state for other keys.
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notification callback panicked", "key", key, "panic", r)
		}
	}()
	callback()
}

// expire returns a key from RECENT to IDLE.
func (d *Debouncer) expire(key string, gen uint64) {
	d.mu.Lock()
	if ks, ok := d.keys[key]; ok && ks.phase == phaseRecent && ks.gen == gen {
		delete(d.keys, key)
	}
	d.mu.Unlock()
}

// Clear cancels every pending timer and recent marker, returning all keys to
// idle. Used on teardown of the owning connection.
func (d *Debouncer) Clear() {
	d.mu.Lock()
	for _, ks := range d.keys {
		d.sched.Cancel(ks.handle)
	}
	d.keys = make(map[string]*keyState)
	d.mu.Unlock()
}

// Active returns how many keys are pending or recent.
func (d *Debouncer) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}
