package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRun() *InventoryAnalysisRun {
	return &InventoryAnalysisRun{
		RunID:       "run-001",
		ContainerID: "550e8400-e29b-41d4-a716-446655440001",
		Status:      StatusDone,
		Delta: &RawDelta{Entries: []DeltaEntry{
			{Name: "Coca-Cola", BeforeCount: 5, AfterCount: 3, Change: -2, Confidence: 0.92},
		}},
		Metadata: RunMetadata{CreatedAt: time.Now()},
	}
}

func TestRunValidate_OK(t *testing.T) {
	assert.NoError(t, validRun().Validate())
}

func TestRunValidate_MissingRunID(t *testing.T) {
	run := validRun()
	run.RunID = ""
	assert.Error(t, run.Validate())
}

func TestRunValidate_UnknownStatus(t *testing.T) {
	run := validRun()
	run.Status = "finished"
	assert.Error(t, run.Validate())
}

func TestRunValidate_DeltaBeforeResults(t *testing.T) {
	// delta may only be present once the run is done or needs_review
	run := validRun()
	run.Status = StatusProcessing
	err := run.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delta present")

	run.Delta = nil
	assert.NoError(t, run.Validate())
}

func TestRunValidate_ItemBounds(t *testing.T) {
	run := validRun()
	run.ItemsAfter = []InventoryItem{{Name: "Coca-Cola", Quantity: -1, Confidence: 0.5}}
	assert.Error(t, run.Validate())

	run.ItemsAfter = []InventoryItem{{Name: "Coca-Cola", Quantity: 1, Confidence: 1.2}}
	assert.Error(t, run.Validate())

	run.ItemsAfter = []InventoryItem{{Name: "Coca-Cola", Quantity: 1, Confidence: 0.8}}
	assert.NoError(t, run.Validate())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	// needs_review can still change under a concurrent reviewer
	assert.False(t, StatusNeedsReview.Terminal())
}

func TestReviewValidate(t *testing.T) {
	rev := &Review{
		Reviewer:   "operator-1",
		Action:     ActionOverride,
		ReviewedAt: time.Now(),
		Corrections: []ReviewCorrection{
			{Name: "Coca-Cola", OriginalCount: 3, CorrectedCount: 4},
		},
	}
	require.NoError(t, rev.Validate())

	rev.Corrections[0].Added = true
	rev.Corrections[0].Removed = true
	assert.Error(t, rev.Validate())

	rev.Corrections[0].Removed = false
	require.NoError(t, rev.Validate())

	rev.Action = ActionApprove
	assert.Error(t, rev.Validate(), "approve must not carry corrections")
}
