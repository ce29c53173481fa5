package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpod/stockpodgo/internal/models"
)

func envelopeHandler(t *testing.T, status int, env models.Envelope) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(env))
	}
}

func successEnvelope(t *testing.T, data interface{}) models.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return models.Envelope{Success: true, Data: raw, Timestamp: time.Now()}
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestFetchLatest_OK(t *testing.T) {
	run := models.InventoryAnalysisRun{
		RunID:       "run-001",
		ContainerID: "container-a",
		Status:      models.StatusDone,
		Delta: &models.RawDelta{Entries: []models.DeltaEntry{
			{Name: "Coca-Cola", BeforeCount: 5, AfterCount: 3, Change: -2, Confidence: 0.92},
		}},
		Metadata: models.RunMetadata{CreatedAt: time.Now()},
	}
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		envelopeHandler(t, http.StatusOK, successEnvelope(t, run))(w, r)
	}))
	defer server.Close()

	got, err := newTestClient(t, server).FetchLatest(context.Background(), "container-a")
	require.NoError(t, err)
	assert.Equal(t, "/v1/containers/container-a/inventory/latest", gotPath)
	assert.Equal(t, "run-001", got.RunID)
	require.NotNil(t, got.Delta)
	assert.Len(t, got.Delta.Entries, 1)
}

func TestFetchLatest_NotFoundIsNotAnError(t *testing.T) {
	server := httptest.NewServer(envelopeHandler(t, http.StatusNotFound, models.Envelope{
		Success: false,
		Error:   &models.ErrorBody{Code: models.CodeInventoryNotFound, Message: "no analysis"},
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchLatest(context.Background(), "container-a")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnavailable(err))
}

func TestFetchLatest_ServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(envelopeHandler(t, http.StatusServiceUnavailable, models.Envelope{
		Success: false,
		Error:   &models.ErrorBody{Code: models.CodeServiceUnavailable, Message: "maintenance", RetryAfterSeconds: 42},
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchLatest(context.Background(), "container-a")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 42*time.Second, RetryAfter(err))
}

func TestFetchLatest_RejectsContractViolations(t *testing.T) {
	// delta while still processing violates the run contract
	bad := models.InventoryAnalysisRun{
		RunID:       "run-001",
		ContainerID: "container-a",
		Status:      models.StatusProcessing,
		Delta:       &models.RawDelta{Entries: []models.DeltaEntry{}},
	}
	server := httptest.NewServer(envelopeHandler(t, http.StatusOK, successEnvelope(t, bad)))
	defer server.Close()

	_, err := newTestClient(t, server).FetchLatest(context.Background(), "container-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestFetchLatest_MalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchLatest(context.Background(), "container-a")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestFetchBySession_Path(t *testing.T) {
	run := models.InventoryAnalysisRun{RunID: "run-002", SessionID: "sess-9", Status: models.StatusPending,
		Metadata: models.RunMetadata{CreatedAt: time.Now()}}
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		envelopeHandler(t, http.StatusOK, successEnvelope(t, run))(w, r)
	}))
	defer server.Close()

	got, err := newTestClient(t, server).FetchBySession(context.Background(), "sess-9")
	require.NoError(t, err)
	assert.Equal(t, "/v1/sessions/sess-9/inventory-delta", gotPath)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestFetchRuns_Pagination(t *testing.T) {
	page := models.RunPage{
		Runs: []models.RunSummary{
			{RunID: "run-003", ContainerID: "container-a", Status: models.StatusDone, CreatedAt: time.Now()},
		},
		Pagination: models.Pagination{Total: 7, Limit: 1, Offset: 2, HasMore: true},
	}
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		envelopeHandler(t, http.StatusOK, successEnvelope(t, page))(w, r)
	}))
	defer server.Close()

	got, err := newTestClient(t, server).FetchRuns(context.Background(), "container-a",
		ListOptions{Limit: 1, Offset: 2, Status: models.StatusDone})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "limit=1")
	assert.Contains(t, gotQuery, "offset=2")
	assert.Contains(t, gotQuery, "status=done")
	assert.True(t, got.Pagination.HasMore)
	assert.Equal(t, 7, got.Pagination.Total)
}

func TestSubmitReview_Conflict(t *testing.T) {
	server := httptest.NewServer(envelopeHandler(t, http.StatusConflict, models.Envelope{
		Success: false,
		Error:   &models.ErrorBody{Code: models.CodeReviewConflict, Message: "already reviewed"},
	}))
	defer server.Close()

	_, err := newTestClient(t, server).SubmitReview(context.Background(), "run-001", models.ReviewRequest{
		Action: models.ActionApprove,
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.False(t, IsInvalid(err))
}

func TestSubmitReview_OK(t *testing.T) {
	result := models.ReviewResult{
		RunID:  "run-001",
		Status: models.StatusDone,
		Review: &models.Review{Reviewer: "operator-1", Action: models.ActionApprove, ReviewedAt: time.Now()},
	}
	var gotBody models.ReviewRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		envelopeHandler(t, http.StatusOK, successEnvelope(t, result))(w, r)
	}))
	defer server.Close()

	got, err := newTestClient(t, server).SubmitReview(context.Background(), "run-001", models.ReviewRequest{
		Action: models.ActionApprove,
		Notes:  "looks right",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActionApprove, gotBody.Action)
	assert.Equal(t, models.StatusDone, got.Status)
}
