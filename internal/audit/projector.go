// Package audit derives the human-readable audit trail from a run's review
// and renders it for display or PDF export.
package audit

import (
	"fmt"
	"time"

	"github.com/stockpod/stockpodgo/internal/models"
)

// EntryKind classifies one audit row
type EntryKind string

const (
	EntryAdded    EntryKind = "added"
	EntryRemoved  EntryKind = "removed"
	EntryAdjusted EntryKind = "adjusted"
)

// TrailEntry is one correction rendered for audit
type TrailEntry struct {
	Kind      EntryKind
	Name      string
	SKU       string
	Original  int
	Corrected int
}

// String renders the entry as a single audit line
func (e TrailEntry) String() string {
	switch e.Kind {
	case EntryAdded:
		return fmt.Sprintf("added %s (count %d)", e.Name, e.Corrected)
	case EntryRemoved:
		return fmt.Sprintf("removed %s (was %d)", e.Name, e.Original)
	default:
		return fmt.Sprintf("%s: %d corrected to %d", e.Name, e.Original, e.Corrected)
	}
}

// Trail is the derived audit trail for one reviewed run
type Trail struct {
	Reviewer   string
	Action     models.ReviewAction
	ReviewedAt time.Time
	Note       string

	// NoCorrections is set for approve-as-is reviews so an empty list is
	// never mistaken for missing audit data.
	NoCorrections bool
	Entries       []TrailEntry
}

// Project derives the audit trail from a review. A nil review yields a nil
// trail, which callers must render as "audit data missing", not as approved.
func Project(r *models.Review) *Trail {
	if r == nil {
		return nil
	}
	t := &Trail{
		Reviewer:   r.Reviewer,
		Action:     r.Action,
		ReviewedAt: r.ReviewedAt,
		Note:       r.Notes,
	}
	if r.Action == models.ActionApprove || len(r.Corrections) == 0 {
		t.NoCorrections = true
		return t
	}
	t.Entries = make([]TrailEntry, 0, len(r.Corrections))
	for _, c := range r.Corrections {
		entry := TrailEntry{
			Kind:      EntryAdjusted,
			Name:      c.Name,
			SKU:       c.SKU,
			Original:  c.OriginalCount,
			Corrected: c.CorrectedCount,
		}
		if c.Added {
			entry.Kind = EntryAdded
		} else if c.Removed {
			entry.Kind = EntryRemoved
		}
		t.Entries = append(t.Entries, entry)
	}
	return t
}

// Lines renders the full trail as display rows
func (t *Trail) Lines() []string {
	if t == nil {
		return nil
	}
	lines := []string{
		fmt.Sprintf("reviewed by %s at %s", t.Reviewer, t.ReviewedAt.Format(time.RFC3339)),
		fmt.Sprintf("action: %s", t.Action),
	}
	if t.NoCorrections {
		lines = append(lines, "no corrections")
	}
	for _, e := range t.Entries {
		lines = append(lines, e.String())
	}
	if t.Note != "" {
		lines = append(lines, fmt.Sprintf("note: %s", t.Note))
	}
	return lines
}
