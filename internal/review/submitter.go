// Package review handles the human-review write path: client-side validation
// of corrections, submission, and the optimistic-concurrency outcomes.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/client"
	"github.com/stockpod/stockpodgo/internal/models"
)

// OutcomeKind classifies a submission attempt. Conflicts get their own kind
// so callers refetch and re-present instead of silently overwriting.
type OutcomeKind string

const (
	OutcomeApplied    OutcomeKind = "applied"
	OutcomeConflicted OutcomeKind = "conflicted"
	OutcomeFailed     OutcomeKind = "failed"
)

// Outcome is the result of one submission attempt
type Outcome struct {
	Kind       OutcomeKind
	Result     *models.ReviewResult // set when applied
	Retryable  bool                 // failed only: resubmitting the same payload is safe
	RetryAfter time.Duration        // server-provided delay, when given
	Message    string
	Err        error
}

// Client submits reviews; *client.Client satisfies it
type Client interface {
	SubmitReview(ctx context.Context, runID string, req models.ReviewRequest) (*models.ReviewResult, error)
}

// Submitter validates and submits operator reviews
type Submitter struct {
	client   Client
	validate *validator.Validate
	log      *logrus.Entry
}

// NewSubmitter creates a review submitter
func NewSubmitter(c Client, logger *logrus.Logger) *Submitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	v := validator.New()
	v.RegisterStructValidation(correctionStructLevel, models.ReviewCorrection{})
	return &Submitter{
		client:   c,
		validate: v,
		log:      logger.WithField("component", "review-submitter"),
	}
}

// correctionStructLevel rejects corrections flagged both added and removed
func correctionStructLevel(sl validator.StructLevel) {
	c := sl.Current().Interface().(models.ReviewCorrection)
	if c.Added && c.Removed {
		sl.ReportError(c.Removed, "Removed", "removed", "excluded_with_added", "")
	}
}

// ValidateRequest is the client-side gate. A request that fails here never
// reaches the network.
func (s *Submitter) ValidateRequest(req models.ReviewRequest) error {
	if !req.Action.Valid() {
		return fmt.Errorf("unknown action %q", req.Action)
	}
	if req.Action == models.ActionApprove && len(req.Corrections) > 0 {
		return fmt.Errorf("approve must not carry corrections")
	}
	if req.Action == models.ActionOverride && len(req.Corrections) == 0 {
		return fmt.Errorf("override requires at least one correction")
	}
	if err := s.validate.Struct(req); err != nil {
		return describeValidationError(err)
	}
	return nil
}

// describeValidationError turns validator output into operator-readable text
func describeValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("correction name must not be empty")
		case "min":
			return fmt.Errorf("correction counts must not be negative")
		case "max":
			return fmt.Errorf("note exceeds %d characters", models.MaxReviewNoteLength)
		case "excluded_with_added":
			return fmt.Errorf("a correction cannot be both added and removed")
		}
	}
	return err
}

// Submit validates and submits a review for a run. It never panics or throws
// past this boundary: every failure mode is an Outcome.
func (s *Submitter) Submit(ctx context.Context, runID string, req models.ReviewRequest) Outcome {
	if err := s.ValidateRequest(req); err != nil {
		return Outcome{
			Kind:    OutcomeFailed,
			Message: err.Error(),
			Err:     err,
		}
	}

	result, err := s.client.SubmitReview(ctx, runID, req)
	switch {
	case err == nil:
		s.log.WithFields(logrus.Fields{
			"run_id": runID,
			"action": req.Action,
		}).Info("review applied")
		return Outcome{Kind: OutcomeApplied, Result: result}

	case client.IsConflict(err):
		// Another operator got there first: the caller must refetch and
		// re-present, never overwrite.
		s.log.WithField("run_id", runID).Warn("review conflict")
		return Outcome{
			Kind:    OutcomeConflicted,
			Message: "run was already reviewed by another operator",
			Err:     err,
		}

	case client.IsInvalid(err):
		return Outcome{
			Kind:    OutcomeFailed,
			Message: err.Error(),
			Err:     err,
		}

	case client.IsUnavailable(err):
		// No review was recorded server-side, so resubmitting the identical
		// payload is idempotent.
		return Outcome{
			Kind:       OutcomeFailed,
			Retryable:  true,
			RetryAfter: client.RetryAfter(err),
			Message:    "service unavailable, corrections preserved",
			Err:        err,
		}

	default:
		return Outcome{
			Kind:      OutcomeFailed,
			Retryable: true,
			Message:   err.Error(),
			Err:       err,
		}
	}
}

// ApplyResult returns a copy of run with the confirmed review applied.
// The original run is never mutated: the caller swaps the copy in only after
// the server has confirmed.
func ApplyResult(run *models.InventoryAnalysisRun, result *models.ReviewResult) *models.InventoryAnalysisRun {
	if run == nil || result == nil {
		return run
	}
	updated := *run
	updated.Review = result.Review
	if result.Status.Valid() {
		updated.Status = result.Status
	}
	return &updated
}
