// Package engine ties the fetcher, delta normalizer, lifecycle poller, review
// submitter and audit projector together into a single observable view state
// for the operator UI.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/audit"
	"github.com/stockpod/stockpodgo/internal/client"
	"github.com/stockpod/stockpodgo/internal/delta"
	"github.com/stockpod/stockpodgo/internal/models"
	"github.com/stockpod/stockpodgo/internal/poller"
	"github.com/stockpod/stockpodgo/internal/review"
	"github.com/stockpod/stockpodgo/internal/selection"
)

// ViewState is what the UI should currently show
type ViewState string

const (
	ViewIdle        ViewState = "idle"         // nothing selected
	ViewLoading     ViewState = "loading"      // first fetch in flight
	ViewEmpty       ViewState = "empty"        // no analysis exists; valid state, no retry
	ViewAnalyzing   ViewState = "analyzing"    // pending or processing
	ViewNeedsReview ViewState = "needs_review" // awaiting operator review
	ViewReady       ViewState = "ready"        // done
	ViewFailed      ViewState = "failed"       // analysis ended in error
	ViewUnavailable ViewState = "unavailable"  // polling halted; manual refresh only
)

// View is the derived state the UI renders
type View struct {
	State        ViewState
	Target       selection.Target
	Run          *models.InventoryAnalysisRun
	Delta        []models.DeltaEntry
	Trail        *audit.Trail
	ErrorMessage string

	// CanRetry marks states where a manual refresh affordance is useful.
	// Deliberately false for ViewEmpty: retrying "not found" helps nobody.
	CanRetry bool
}

// Config holds engine configuration
type Config struct {
	Fetcher      poller.Fetcher
	Submitter    *review.Submitter
	Store        *selection.Store
	Scheduler    poller.Scheduler
	PollInterval time.Duration
	Logger       *logrus.Logger
	OnChange     func(View)
}

// Engine derives view state from the observed run and handles the one write
// this subsystem performs: the operator review.
type Engine struct {
	poll      *poller.Poller
	submitter *review.Submitter
	store     *selection.Store
	log       *logrus.Entry
	onChange  func(View)
	unsub     func()

	mu   sync.Mutex
	view View
}

// New creates an engine and subscribes it to the selection store
func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Store == nil {
		cfg.Store = selection.NewStore()
	}

	e := &Engine{
		submitter: cfg.Submitter,
		store:     cfg.Store,
		log:       cfg.Logger.WithField("component", "engine"),
		onChange:  cfg.OnChange,
		view:      View{State: ViewIdle},
	}

	p, err := poller.New(poller.Config{
		Interval:  cfg.PollInterval,
		Scheduler: cfg.Scheduler,
		Fetcher:   cfg.Fetcher,
		Logger:    cfg.Logger,
		OnUpdate:  e.handleUpdate,
	})
	if err != nil {
		return nil, err
	}
	e.poll = p
	e.unsub = cfg.Store.Subscribe(e.handleSelection)
	return e, nil
}

// SetContainer switches the view to a container's latest analysis
func (e *Engine) SetContainer(id string) {
	e.store.Set(selection.Target{Kind: selection.KindContainer, ID: id})
}

// SetSession switches the view to a session's analysis
func (e *Engine) SetSession(id string) {
	e.store.Set(selection.Target{Kind: selection.KindSession, ID: id})
}

// Refresh is the manual retry affordance, the only way out of unavailable
func (e *Engine) Refresh() {
	e.mu.Lock()
	if e.view.Target.Zero() {
		e.mu.Unlock()
		return
	}
	e.view.State = ViewLoading
	e.view.ErrorMessage = ""
	e.view.CanRetry = false
	v := e.view
	e.mu.Unlock()

	e.publish(v)
	e.poll.Refresh()
}

// View returns the current derived view
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Close unsubscribes from the store and halts polling
func (e *Engine) Close() {
	if e.unsub != nil {
		e.unsub()
	}
	e.poll.Stop()
}

// SubmitReview validates and submits a review against the currently-viewed
// run, applies it optimistically on success, and on conflict refetches so the
// now-current state is re-presented instead of silently overwritten.
func (e *Engine) SubmitReview(ctx context.Context, req models.ReviewRequest) review.Outcome {
	e.mu.Lock()
	run := e.view.Run
	e.mu.Unlock()

	if run == nil {
		return review.Outcome{Kind: review.OutcomeFailed, Message: "no run is currently shown"}
	}
	if run.Reviewed() {
		return review.Outcome{Kind: review.OutcomeConflicted, Message: "run is already reviewed"}
	}

	outcome := e.submitter.Submit(ctx, run.RunID, req)
	switch outcome.Kind {
	case review.OutcomeApplied:
		updated := review.ApplyResult(run, outcome.Result)
		e.mu.Lock()
		if e.view.Run != nil && e.view.Run.RunID == run.RunID {
			e.view.Run = updated
			e.view.State = viewForStatus(updated.Status)
			e.view.Trail = audit.Project(updated.Review)
		}
		v := e.view
		e.mu.Unlock()
		e.publish(v)
		e.poll.Stop()

	case review.OutcomeConflicted:
		// Another operator reviewed first. Local edits are dropped in favor
		// of the server's truth; refetch and re-present.
		e.poll.Refresh()
	}
	return outcome
}

// handleSelection resets the view synchronously when the observed id changes
func (e *Engine) handleSelection(t selection.Target) {
	e.log.WithFields(logrus.Fields{
		"target_kind": t.Kind,
		"target_id":   t.ID,
	}).Debug("selection changed")

	e.mu.Lock()
	if t.Zero() {
		e.view = View{State: ViewIdle}
	} else {
		e.view = View{State: ViewLoading, Target: t}
	}
	v := e.view
	e.mu.Unlock()

	e.publish(v)
	e.poll.Watch(t)
}

// handleUpdate folds one poller observation into the view
func (e *Engine) handleUpdate(u poller.Update) {
	e.mu.Lock()
	if u.Target != e.view.Target {
		// Stale observation for a target no longer shown.
		e.mu.Unlock()
		return
	}

	switch {
	case u.Err != nil && client.IsNotFound(u.Err):
		e.view = View{State: ViewEmpty, Target: u.Target}

	case u.State == poller.StateUnavailable:
		e.view = View{
			State:        ViewUnavailable,
			Target:       u.Target,
			Run:          e.view.Run,
			Delta:        e.view.Delta,
			Trail:        e.view.Trail,
			ErrorMessage: u.Err.Error(),
			CanRetry:     true,
		}

	case u.Err != nil:
		// Transient failure: keep showing what we have, annotate it.
		e.view.ErrorMessage = u.Err.Error()

	default:
		run := u.Run
		e.view = View{
			State:  viewForStatus(run.Status),
			Target: u.Target,
			Run:    run,
			Delta:  delta.Normalize(run.Delta),
			Trail:  audit.Project(run.Review),
		}
		if run.Status == models.StatusError {
			e.view.ErrorMessage = run.Metadata.ErrorMessage
		}
	}
	v := e.view
	e.mu.Unlock()

	e.publish(v)
}

func (e *Engine) publish(v View) {
	if e.onChange != nil {
		e.onChange(v)
	}
}

func viewForStatus(s models.AnalysisStatus) ViewState {
	switch s {
	case models.StatusPending, models.StatusProcessing:
		return ViewAnalyzing
	case models.StatusNeedsReview:
		return ViewNeedsReview
	case models.StatusDone:
		return ViewReady
	case models.StatusError:
		return ViewFailed
	}
	return ViewIdle
}
