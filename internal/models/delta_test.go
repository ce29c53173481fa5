package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawDelta_UnmarshalFlat(t *testing.T) {
	payload := `[{"name":"Coca-Cola","before_count":5,"after_count":3,"change":-2,"confidence":0.92}]`

	var d RawDelta
	require.NoError(t, json.Unmarshal([]byte(payload), &d))
	require.Nil(t, d.Categories)
	require.Len(t, d.Entries, 1)
	assert.Equal(t, "Coca-Cola", d.Entries[0].Name)
	assert.Equal(t, -2, d.Entries[0].Change)
}

func TestRawDelta_UnmarshalCategorized(t *testing.T) {
	payload := `{"added":[{"name":"Fanta","qty":2,"confidence":0.5}],"removed":[{"name":"Coca-Cola","qty":2,"confidence":0.92}]}`

	var d RawDelta
	require.NoError(t, json.Unmarshal([]byte(payload), &d))
	require.Nil(t, d.Entries)
	require.NotNil(t, d.Categories)
	require.Len(t, d.Categories.Removed, 1)
	assert.Equal(t, 2, d.Categories.Removed[0].Qty)
}

func TestRawDelta_UnmarshalObjectWithoutAddedKey(t *testing.T) {
	// An object that is not the categorized variant must fail loudly, not be
	// coerced into an empty delta.
	var d RawDelta
	err := json.Unmarshal([]byte(`{"removed":[]}`), &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "added")
}

func TestRawDelta_UnmarshalScalarRejected(t *testing.T) {
	var d RawDelta
	assert.Error(t, json.Unmarshal([]byte(`42`), &d))
}

func TestRawDelta_MarshalRoundTrip(t *testing.T) {
	flat := RawDelta{Entries: []DeltaEntry{{Name: "Coca-Cola", BeforeCount: 5, AfterCount: 3, Change: -2, Confidence: 0.92}}}
	out, err := json.Marshal(flat)
	require.NoError(t, err)

	var back RawDelta
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, flat.Entries, back.Entries)

	categorized := RawDelta{Categories: &DeltaCategories{
		Added:   []CategorizedItem{{Name: "Fanta", Qty: 2, Confidence: 0.5}},
		Removed: []CategorizedItem{{Name: "Sprite", Qty: 1, Confidence: 0.6}},
	}}
	out, err = json.Marshal(categorized)
	require.NoError(t, err)

	back = RawDelta{}
	require.NoError(t, json.Unmarshal(out, &back))
	require.NotNil(t, back.Categories)
	assert.Equal(t, categorized.Categories.Added, back.Categories.Added)
}
