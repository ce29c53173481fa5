package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DeltaEntry is the canonical item-level change. Both wire variants of the
// delta field normalize into a sequence of these; nothing downstream of the
// normalizer sees the raw union.
type DeltaEntry struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku,omitempty"`
	BeforeCount int     `json:"before_count"`
	AfterCount  int     `json:"after_count"`
	Change      int     `json:"change"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale,omitempty"`
}

// RawDelta is the union-typed delta field: either a flat sequence of change
// entries or a categorized object with added/removed/changed_qty/unknown
// buckets. Exactly one of Entries/Categories is set after decoding.
type RawDelta struct {
	Entries    []DeltaEntry
	Categories *DeltaCategories
}

// DeltaCategories is the categorized wire variant
type DeltaCategories struct {
	Added      []CategorizedItem `json:"added"`
	Removed    []CategorizedItem `json:"removed"`
	ChangedQty []QuantityChange  `json:"changed_qty,omitempty"`
	Unknown    []UnknownChange   `json:"unknown,omitempty"`
}

// CategorizedItem is one added or removed item in the categorized variant
type CategorizedItem struct {
	Name       string  `json:"name"`
	SKU        string  `json:"sku,omitempty"`
	Qty        int     `json:"qty"`
	Confidence float64 `json:"confidence"`
}

// QuantityChange is one quantity adjustment in the categorized variant
type QuantityChange struct {
	Name       string  `json:"name"`
	SKU        string  `json:"sku,omitempty"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Confidence float64 `json:"confidence"`
}

// UnknownChange is an uncategorizable observation carrying only a note
type UnknownChange struct {
	Note string `json:"note"`
}

// UnmarshalJSON detects the union variant: an array decodes as the flat
// sequence, an object must carry the "added" key to count as categorized.
// Anything else is a schema mismatch and fails loudly.
func (d *RawDelta) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var entries []DeltaEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("delta: flat variant: %w", err)
		}
		d.Entries = entries
		d.Categories = nil
		return nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return fmt.Errorf("delta: categorized variant: %w", err)
		}
		if _, ok := probe["added"]; !ok {
			return fmt.Errorf("delta: object variant missing \"added\" key")
		}
		var cats DeltaCategories
		if err := json.Unmarshal(data, &cats); err != nil {
			return fmt.Errorf("delta: categorized variant: %w", err)
		}
		d.Entries = nil
		d.Categories = &cats
		return nil
	default:
		return fmt.Errorf("delta: neither array nor object")
	}
}

// MarshalJSON re-emits whichever variant the delta holds
func (d RawDelta) MarshalJSON() ([]byte, error) {
	if d.Categories != nil {
		return json.Marshal(d.Categories)
	}
	if d.Entries == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.Entries)
}
