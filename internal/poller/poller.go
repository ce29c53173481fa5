// Package poller drives repeated fetches of an analysis run while it is
// non-terminal. It is an explicit state machine over a scheduler abstraction:
// a target change bumps a generation counter, and any response carrying a
// stale generation is discarded, so a poll scheduled for run A can never
// update a view showing run B.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/client"
	"github.com/stockpod/stockpodgo/internal/models"
	"github.com/stockpod/stockpodgo/internal/selection"
)

// State is the poller's view of the observed run. It mirrors AnalysisStatus
// plus the two client-only states idle and unavailable.
type State string

const (
	StateIdle        State = "idle"
	StatePending     State = "pending"
	StateProcessing  State = "processing"
	StateNeedsReview State = "needs_review"
	StateDone        State = "done"
	StateError       State = "error"
	StateUnavailable State = "unavailable"
)

// StateForStatus maps a server status onto a poller state
func StateForStatus(s models.AnalysisStatus) State {
	switch s {
	case models.StatusPending:
		return StatePending
	case models.StatusProcessing:
		return StateProcessing
	case models.StatusNeedsReview:
		return StateNeedsReview
	case models.StatusDone:
		return StateDone
	case models.StatusError:
		return StateError
	}
	return StateIdle
}

// Fetcher retrieves runs; *client.Client satisfies it
type Fetcher interface {
	FetchLatest(ctx context.Context, containerID string) (*models.InventoryAnalysisRun, error)
	FetchBySession(ctx context.Context, sessionID string) (*models.InventoryAnalysisRun, error)
}

// Update is one observation delivered to the poller's subscriber
type Update struct {
	Target selection.Target
	State  State
	Run    *models.InventoryAnalysisRun
	Err    error
}

// Config holds poller configuration
type Config struct {
	Interval   time.Duration // fetch interval for non-terminal runs (default 15s)
	MaxBackoff time.Duration // cap for transient-failure backoff (default 2m)
	Scheduler  Scheduler
	Fetcher    Fetcher
	Logger     *logrus.Logger
	OnUpdate   func(Update)
}

var errNoFetcher = errors.New("poller: fetcher is required")

// Poller polls the analysis service for one observed target at a time
type Poller struct {
	interval   time.Duration
	maxBackoff time.Duration
	sched      Scheduler
	fetch      Fetcher
	log        *logrus.Entry
	onUpdate   func(Update)

	mu       sync.Mutex
	target   selection.Target
	gen      uint64
	state    State
	inFlight bool
	failures int
	cancel   CancelFunc
}

// New creates a poller
func New(cfg Config) (*Poller, error) {
	if cfg.Fetcher == nil {
		return nil, errNoFetcher
	}
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 2 * time.Minute
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Poller{
		interval:   cfg.Interval,
		maxBackoff: cfg.MaxBackoff,
		sched:      cfg.Scheduler,
		fetch:      cfg.Fetcher,
		log:        cfg.Logger.WithField("component", "poller"),
		onUpdate:   cfg.OnUpdate,
		state:      StateIdle,
	}, nil
}

// Watch switches the observed target. The previous schedule is cancelled
// before this returns; a fetch already in flight for the old target will be
// discarded when it resolves.
func (p *Poller) Watch(t selection.Target) {
	p.mu.Lock()
	p.gen++
	p.cancelLocked()
	p.target = t
	p.state = StateIdle
	p.failures = 0
	if t.Zero() {
		p.mu.Unlock()
		return
	}
	p.scheduleLocked(0, p.gen)
	p.mu.Unlock()
}

// Stop halts polling without clearing the last observed state
func (p *Poller) Stop() {
	p.mu.Lock()
	p.gen++
	p.cancelLocked()
	p.mu.Unlock()
}

// Refresh is the explicit manual trigger. It restarts polling for the current
// target, including from the unavailable state, which never retries on its own.
func (p *Poller) Refresh() {
	p.mu.Lock()
	if p.target.Zero() {
		p.mu.Unlock()
		return
	}
	p.gen++
	p.cancelLocked()
	p.failures = 0
	p.scheduleLocked(0, p.gen)
	p.mu.Unlock()
}

// State returns the current poller state
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) scheduleLocked(d time.Duration, gen uint64) {
	p.cancel = p.sched.Schedule(d, func() { p.tick(gen) })
}

func (p *Poller) cancelLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) tick(gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	if p.inFlight {
		// Previous fetch has not resolved: skip this tick rather than queue
		// a second in-flight request, keep the schedule alive.
		p.scheduleLocked(p.interval, gen)
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	target := p.target
	p.mu.Unlock()

	run, err := p.doFetch(target)
	p.apply(gen, target, run, err)
}

func (p *Poller) doFetch(t selection.Target) (*models.InventoryAnalysisRun, error) {
	// The client enforces the per-fetch timeout.
	ctx := context.Background()
	if t.Kind == selection.KindSession {
		return p.fetch.FetchBySession(ctx, t.ID)
	}
	return p.fetch.FetchLatest(ctx, t.ID)
}

func (p *Poller) apply(gen uint64, target selection.Target, run *models.InventoryAnalysisRun, err error) {
	p.mu.Lock()
	p.inFlight = false
	if gen != p.gen {
		// Response for an abandoned target: discard, never touch state.
		p.mu.Unlock()
		return
	}

	var upd Update
	switch {
	case err != nil && (client.IsNotFound(err) || client.IsUnavailable(err)):
		// 404-class or outage: halt entirely, manual Refresh required.
		p.state = StateUnavailable
		upd = Update{Target: target, State: StateUnavailable, Err: err}
		p.log.WithFields(logrus.Fields{
			"target_kind": target.Kind,
			"target_id":   target.ID,
		}).WithError(err).Warn("polling halted")

	case err != nil:
		// Transient failure: keep the last known state, back off and retry.
		p.failures++
		upd = Update{Target: target, State: p.state, Err: err}
		delay := p.backoffLocked()
		p.scheduleLocked(delay, gen)
		p.log.WithFields(logrus.Fields{
			"target_id": target.ID,
			"failures":  p.failures,
			"retry_in":  delay.String(),
		}).WithError(err).Warn("fetch failed, will retry")

	default:
		p.failures = 0
		st := StateForStatus(run.Status)
		p.state = st
		upd = Update{Target: target, State: st, Run: run}
		// needs_review keeps polling only while unreviewed: another
		// operator's review changes the status out from under us.
		if !run.Status.Terminal() && !(st == StateNeedsReview && run.Reviewed()) {
			p.scheduleLocked(p.interval, gen)
		}
	}

	onUpdate := p.onUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(upd)
	}
}

// backoffLocked doubles the interval per consecutive failure up to the cap
func (p *Poller) backoffLocked() time.Duration {
	d := p.interval
	for i := 1; i < p.failures; i++ {
		d *= 2
		if d >= p.maxBackoff {
			return p.maxBackoff
		}
	}
	if d > p.maxBackoff {
		d = p.maxBackoff
	}
	return d
}
