package models

import (
	"fmt"
	"time"
)

// ReviewAction is what the operator decided about a run's delta
type ReviewAction string

const (
	ActionApprove  ReviewAction = "approve"
	ActionOverride ReviewAction = "override"
)

// Valid reports whether the action is a known review action
func (a ReviewAction) Valid() bool {
	return a == ActionApprove || a == ActionOverride
}

// MaxReviewNoteLength caps the free-text note on a review
const MaxReviewNoteLength = 500

// Review records an operator's approval or correction of a run. The server
// creates it exactly once per run; a second submission is rejected as a
// conflict.
type Review struct {
	Reviewer    string             `json:"reviewer"`
	Action      ReviewAction       `json:"action"`
	Corrections []ReviewCorrection `json:"corrections"`
	Notes       string             `json:"notes,omitempty"`
	ReviewedAt  time.Time          `json:"reviewed_at"`
}

// ReviewCorrection is a single operator-supplied adjustment within a review.
// Added and Removed are mutually exclusive; both false means a count change.
type ReviewCorrection struct {
	Name           string `json:"name" validate:"required"`
	SKU            string `json:"sku,omitempty"`
	OriginalCount  int    `json:"original_count" validate:"min=0"`
	CorrectedCount int    `json:"corrected_count" validate:"min=0"`
	Added          bool   `json:"added"`
	Removed        bool   `json:"removed"`
}

// Validate checks a decoded review against the contract
func (r *Review) Validate() error {
	if r.Reviewer == "" {
		return fmt.Errorf("missing reviewer")
	}
	if !r.Action.Valid() {
		return fmt.Errorf("unknown action %q", r.Action)
	}
	if r.Action == ActionApprove && len(r.Corrections) > 0 {
		return fmt.Errorf("approve carries %d corrections", len(r.Corrections))
	}
	if len(r.Notes) > MaxReviewNoteLength {
		return fmt.Errorf("note exceeds %d characters", MaxReviewNoteLength)
	}
	for i := range r.Corrections {
		if err := r.Corrections[i].Validate(); err != nil {
			return fmt.Errorf("correction[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks a single correction
func (c *ReviewCorrection) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("missing name")
	}
	if c.OriginalCount < 0 || c.CorrectedCount < 0 {
		return fmt.Errorf("%s: negative count", c.Name)
	}
	if c.Added && c.Removed {
		return fmt.Errorf("%s: added and removed are mutually exclusive", c.Name)
	}
	return nil
}

// ReviewRequest is the submit-review request body
type ReviewRequest struct {
	Action      ReviewAction       `json:"action" validate:"required"`
	Corrections []ReviewCorrection `json:"corrections" validate:"dive"`
	Notes       string             `json:"notes,omitempty" validate:"max=500"`
	Reviewer    string             `json:"reviewer,omitempty"`
}

// ReviewResult is the submit-review success payload
type ReviewResult struct {
	RunID  string         `json:"run_id"`
	Status AnalysisStatus `json:"status"`
	Review *Review        `json:"review"`
}
