package review

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpod/stockpodgo/internal/client"
	"github.com/stockpod/stockpodgo/internal/models"
)

// fakeClient records submissions and serves a scripted result
type fakeClient struct {
	calls  int
	result *models.ReviewResult
	err    error
}

func (f *fakeClient) SubmitReview(ctx context.Context, runID string, req models.ReviewRequest) (*models.ReviewResult, error) {
	f.calls++
	return f.result, f.err
}

func overrideRequest() models.ReviewRequest {
	return models.ReviewRequest{
		Action: models.ActionOverride,
		Corrections: []models.ReviewCorrection{
			{Name: "Coca-Cola", OriginalCount: 3, CorrectedCount: 4},
		},
	}
}

func TestSubmit_ValidationGateBlocksNetwork(t *testing.T) {
	cases := []struct {
		name string
		req  models.ReviewRequest
	}{
		{
			name: "empty correction name",
			req: models.ReviewRequest{
				Action:      models.ActionOverride,
				Corrections: []models.ReviewCorrection{{Name: "", CorrectedCount: 1}},
			},
		},
		{
			name: "negative corrected count",
			req: models.ReviewRequest{
				Action:      models.ActionOverride,
				Corrections: []models.ReviewCorrection{{Name: "Coca-Cola", CorrectedCount: -1}},
			},
		},
		{
			name: "added and removed both set",
			req: models.ReviewRequest{
				Action:      models.ActionOverride,
				Corrections: []models.ReviewCorrection{{Name: "Coca-Cola", Added: true, Removed: true}},
			},
		},
		{
			name: "approve with corrections",
			req: models.ReviewRequest{
				Action:      models.ActionApprove,
				Corrections: []models.ReviewCorrection{{Name: "Coca-Cola", CorrectedCount: 1}},
			},
		},
		{
			name: "override without corrections",
			req:  models.ReviewRequest{Action: models.ActionOverride},
		},
		{
			name: "unknown action",
			req:  models.ReviewRequest{Action: "reject"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeClient{}
			s := NewSubmitter(fc, nil)

			outcome := s.Submit(context.Background(), "run-001", tc.req)
			assert.Equal(t, OutcomeFailed, outcome.Kind)
			assert.False(t, outcome.Retryable)
			assert.Zero(t, fc.calls, "invalid request must never reach the network")
		})
	}
}

func TestSubmit_Applied(t *testing.T) {
	result := &models.ReviewResult{
		RunID:  "run-001",
		Status: models.StatusDone,
		Review: &models.Review{
			Reviewer:    "operator-1",
			Action:      models.ActionOverride,
			Corrections: overrideRequest().Corrections,
			ReviewedAt:  time.Now(),
		},
	}
	fc := &fakeClient{result: result}
	s := NewSubmitter(fc, nil)

	outcome := s.Submit(context.Background(), "run-001", overrideRequest())
	require.Equal(t, OutcomeApplied, outcome.Kind)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, models.StatusDone, outcome.Result.Status)
	assert.Equal(t, 1, fc.calls)
}

func TestSubmit_Conflict(t *testing.T) {
	fc := &fakeClient{err: &client.APIError{
		Code:       models.CodeReviewConflict,
		StatusCode: http.StatusConflict,
		Message:    "run already reviewed",
	}}
	s := NewSubmitter(fc, nil)

	outcome := s.Submit(context.Background(), "run-001", overrideRequest())
	assert.Equal(t, OutcomeConflicted, outcome.Kind)
	assert.Nil(t, outcome.Result, "a conflicted attempt must not carry a result to apply")
}

func TestSubmit_UnavailableIsRetryable(t *testing.T) {
	fc := &fakeClient{err: &client.APIError{
		Code:       models.CodeServiceUnavailable,
		StatusCode: http.StatusServiceUnavailable,
		RetryAfter: 25 * time.Second,
	}}
	s := NewSubmitter(fc, nil)

	outcome := s.Submit(context.Background(), "run-001", overrideRequest())
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.True(t, outcome.Retryable)
	assert.Equal(t, 25*time.Second, outcome.RetryAfter)
}

func TestSubmit_ServerInvalidNotRetryable(t *testing.T) {
	fc := &fakeClient{err: &client.APIError{
		Code:       models.CodeReviewInvalid,
		StatusCode: http.StatusBadRequest,
		Message:    "corrected count exceeds allowed range",
	}}
	s := NewSubmitter(fc, nil)

	outcome := s.Submit(context.Background(), "run-001", overrideRequest())
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.False(t, outcome.Retryable)
}

func TestApplyResult_CopiesRun(t *testing.T) {
	run := &models.InventoryAnalysisRun{
		RunID:       "run-001",
		ContainerID: "container-a",
		Status:      models.StatusNeedsReview,
	}
	result := &models.ReviewResult{
		RunID:  "run-001",
		Status: models.StatusDone,
		Review: &models.Review{Reviewer: "operator-1", Action: models.ActionApprove, ReviewedAt: time.Now()},
	}

	updated := ApplyResult(run, result)
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.NotNil(t, updated.Review)

	// Original untouched until the caller swaps the copy in
	assert.Equal(t, models.StatusNeedsReview, run.Status)
	assert.Nil(t, run.Review)
}
