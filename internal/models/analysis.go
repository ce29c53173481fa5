package models

import (
	"fmt"
	"time"
)

// AnalysisStatus is the lifecycle status of an inventory analysis run
type AnalysisStatus string

const (
	StatusPending     AnalysisStatus = "pending"
	StatusProcessing  AnalysisStatus = "processing"
	StatusDone        AnalysisStatus = "done"
	StatusNeedsReview AnalysisStatus = "needs_review"
	StatusError       AnalysisStatus = "error"
)

// Valid reports whether the status is one the server may legally emit
func (s AnalysisStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusNeedsReview, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the run can still change without a new analysis.
// needs_review is not terminal: a concurrent reviewer can move it to done.
func (s AnalysisStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// InventoryAnalysisRun is one AI before/after analysis of a container's contents
type InventoryAnalysisRun struct {
	RunID       string         `json:"run_id"`
	SessionID   string         `json:"session_id,omitempty"`
	ContainerID string         `json:"container_id"`
	Status      AnalysisStatus `json:"status"`

	// Present only once the analysis has produced results
	ItemsBefore []InventoryItem `json:"items_before,omitempty"`
	ItemsAfter  []InventoryItem `json:"items_after,omitempty"`

	// Delta is non-nil only when status is done or needs_review
	Delta *RawDelta `json:"delta,omitempty"`

	Evidence *Evidence `json:"evidence,omitempty"`

	// Review is set once an operator has reviewed the run
	Review *Review `json:"review,omitempty"`

	Metadata RunMetadata `json:"metadata"`
}

// InventoryItem is one detected item in a before or after snapshot
type InventoryItem struct {
	Name        string       `json:"name"`
	SKU         string       `json:"sku,omitempty"`
	Quantity    int          `json:"quantity"`
	Confidence  float64      `json:"confidence"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Condition   string       `json:"condition,omitempty"`
}

// BoundingBox is a detection rectangle in image pixel coordinates
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Evidence holds the before/after image links and overlay annotations.
// URLs are opaque, time-limited links; they are passed through for display only.
type Evidence struct {
	BeforeImageURL string              `json:"before_image_url,omitempty"`
	AfterImageURL  string              `json:"after_image_url,omitempty"`
	Annotations    []OverlayAnnotation `json:"annotations,omitempty"`
}

// OverlayAnnotation is one labelled overlay box on an evidence image
type OverlayAnnotation struct {
	Label string      `json:"label"`
	Image string      `json:"image,omitempty"` // "before" or "after"
	Box   BoundingBox `json:"box"`
}

// RunMetadata carries provider, timing and error details for a run
type RunMetadata struct {
	Provider     string     `json:"provider,omitempty"`
	ModelVersion string     `json:"model_version,omitempty"`
	DurationMS   int64      `json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Validate enforces the contract on a decoded run. Malformed payloads are
// rejected at the boundary instead of being coerced downstream.
func (r *InventoryAnalysisRun) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("run: missing run_id")
	}
	if r.ContainerID == "" && r.SessionID == "" {
		return fmt.Errorf("run %s: missing container_id and session_id", r.RunID)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("run %s: unknown status %q", r.RunID, r.Status)
	}
	if r.Delta != nil && r.Status != StatusDone && r.Status != StatusNeedsReview {
		return fmt.Errorf("run %s: delta present with status %q", r.RunID, r.Status)
	}
	for i, item := range r.ItemsBefore {
		if err := item.validate(); err != nil {
			return fmt.Errorf("run %s: items_before[%d]: %w", r.RunID, i, err)
		}
	}
	for i, item := range r.ItemsAfter {
		if err := item.validate(); err != nil {
			return fmt.Errorf("run %s: items_after[%d]: %w", r.RunID, i, err)
		}
	}
	if r.Review != nil {
		if err := r.Review.Validate(); err != nil {
			return fmt.Errorf("run %s: review: %w", r.RunID, err)
		}
	}
	return nil
}

// Reviewed reports whether an operator has already reviewed this run
func (r *InventoryAnalysisRun) Reviewed() bool {
	return r.Review != nil
}

func (it *InventoryItem) validate() error {
	if it.Name == "" {
		return fmt.Errorf("missing name")
	}
	if it.Quantity < 0 {
		return fmt.Errorf("%s: negative quantity %d", it.Name, it.Quantity)
	}
	if it.Confidence < 0 || it.Confidence > 1 {
		return fmt.Errorf("%s: confidence %v out of range", it.Name, it.Confidence)
	}
	return nil
}

// RunSummary is a run without delta detail, as returned by the run list endpoint
type RunSummary struct {
	RunID       string         `json:"run_id"`
	SessionID   string         `json:"session_id,omitempty"`
	ContainerID string         `json:"container_id"`
	Status      AnalysisStatus `json:"status"`
	Reviewed    bool           `json:"reviewed"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Pagination describes one page of a run listing
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// RunPage is one page of run summaries
type RunPage struct {
	Runs       []RunSummary `json:"runs"`
	Pagination Pagination   `json:"pagination"`
}
