// Package delta reconciles the two wire shapes of an analysis delta into one
// canonical sequence of change entries. Everything downstream of this package
// consumes only the canonical shape.
package delta

import (
	"github.com/stockpod/stockpodgo/internal/models"
)

// Normalize turns a raw delta into the canonical ordered entry sequence.
//
// A flat variant maps through unchanged. A categorized variant flattens in
// the order removed, changed_qty, added, unknown, synthesizing the counts the
// buckets leave implicit: removed items end at zero, added items start at
// zero, unknown observations become advisory zero-count rows carrying the
// note as rationale. A nil delta yields an empty sequence; callers tell
// "no delta" from "no changes" by run status, not by emptiness.
//
// Normalize is pure: it never mutates its input and always returns a fresh
// slice.
func Normalize(raw *models.RawDelta) []models.DeltaEntry {
	if raw == nil {
		return []models.DeltaEntry{}
	}

	if raw.Categories == nil {
		out := make([]models.DeltaEntry, len(raw.Entries))
		copy(out, raw.Entries)
		return out
	}

	cats := raw.Categories
	out := make([]models.DeltaEntry, 0, len(cats.Removed)+len(cats.ChangedQty)+len(cats.Added)+len(cats.Unknown))

	for _, item := range cats.Removed {
		out = append(out, models.DeltaEntry{
			Name:        item.Name,
			SKU:         item.SKU,
			BeforeCount: item.Qty,
			AfterCount:  0,
			Change:      -item.Qty,
			Confidence:  item.Confidence,
		})
	}
	for _, ch := range cats.ChangedQty {
		out = append(out, models.DeltaEntry{
			Name:        ch.Name,
			SKU:         ch.SKU,
			BeforeCount: ch.From,
			AfterCount:  ch.To,
			Change:      ch.To - ch.From,
			Confidence:  ch.Confidence,
		})
	}
	for _, item := range cats.Added {
		out = append(out, models.DeltaEntry{
			Name:        item.Name,
			SKU:         item.SKU,
			BeforeCount: 0,
			AfterCount:  item.Qty,
			Change:      item.Qty,
			Confidence:  item.Confidence,
		})
	}
	for _, unk := range cats.Unknown {
		// Advisory row: the backend saw something it could not categorize.
		// Zero counts and zero confidence keep it out of any arithmetic.
		out = append(out, models.DeltaEntry{
			Name:      "(unknown)",
			Rationale: unk.Note,
		})
	}

	return out
}

// NetChange sums the signed change across a canonical sequence
func NetChange(entries []models.DeltaEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Change
	}
	return total
}
