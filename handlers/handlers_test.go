package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopCalculator struct{}

func (noopCalculator) CalculateTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error) {
	return nil, nil
}

type fakeCalcService struct {
	entries []*models.TableEntry
	err     error
}

func (f *fakeCalcService) CalculateTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error) {
	return f.entries, f.err
}

func (f *fakeCalcService) GetTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error) {
	return f.entries, f.err
}

type lifecycleCall struct {
	trigger string
	matchID int
}

type fakeLifecycle struct {
	calls []lifecycleCall
}

func (f *fakeLifecycle) OnMatchCreated(ctx context.Context, match *models.Match) {
	f.calls = append(f.calls, lifecycleCall{trigger: "create", matchID: match.ID})
}

func (f *fakeLifecycle) OnMatchUpdated(ctx context.Context, oldMatch, newMatch *models.Match) {
	f.calls = append(f.calls, lifecycleCall{trigger: "update", matchID: newMatch.ID})
}

func (f *fakeLifecycle) OnMatchDeleted(ctx context.Context, match *models.Match) {
	f.calls = append(f.calls, lifecycleCall{trigger: "delete", matchID: match.ID})
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSubmit_EnqueuesJob(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	manager.Pause()
	h := NewCalculationHandler(manager)

	rec := postJSON(t, h.Submit, `{"league_id": 5, "season_id": 100, "priority": "high"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["job_id"])
	assert.Equal(t, "high", body["priority"])
}

func TestSubmit_UnknownPriorityDefaultsToNormal(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	manager.Pause()
	h := NewCalculationHandler(manager)

	rec := postJSON(t, h.Submit, `{"league_id": 5, "season_id": 100, "priority": "urgent"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "normal", decodeBody(t, rec)["priority"])
}

func TestSubmit_RejectsInvalidScope(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	h := NewCalculationHandler(manager)

	rec := postJSON(t, h.Submit, `{"league_id": 0, "season_id": 100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_RejectsMalformedBody(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	h := NewCalculationHandler(manager)

	rec := postJSON(t, h.Submit, `{"league_id": 5,`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueStatus(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	manager.Pause()
	manager.Enqueue(5, 100, models.PriorityNormal)
	h := NewCalculationHandler(manager)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.QueueStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["paused"])
	status, ok := body["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), status["pending"])
}

func TestJobResult_NotFound(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	h := NewCalculationHandler(manager)

	router := chi.NewRouter()
	router.Get("/jobs/{jobID}", h.JobResult)

	req := httptest.NewRequest(http.MethodGet, "/jobs/calc-9-9-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobResult_ReturnsJob(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	manager.Pause()
	jobID := manager.Enqueue(5, 100, models.PriorityNormal)
	h := NewCalculationHandler(manager)

	router := chi.NewRouter()
	router.Get("/jobs/{jobID}", h.JobResult)

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, jobID, body["job_id"])
	assert.Equal(t, "pending", body["status"])
}

func TestPauseResumeEndpoints(t *testing.T) {
	manager := queue.NewManager(noopCalculator{}, queue.Config{}, testLogger())
	h := NewCalculationHandler(manager)

	rec := httptest.NewRecorder()
	h.Pause(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, manager.Paused())

	rec = httptest.NewRecorder()
	h.Resume(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, manager.Paused())
}

func TestGetTable(t *testing.T) {
	svc := &fakeCalcService{entries: []*models.TableEntry{
		{TeamName: "FC Eins", Rank: 1, Points: 6},
		{TeamName: "FC Zwei", Rank: 2, Points: 1},
	}}
	h := NewTableHandler(svc)

	router := chi.NewRouter()
	router.Get("/leagues/{leagueID}/seasons/{seasonID}/table", h.GetTable)

	req := httptest.NewRequest(http.MethodGet, "/leagues/5/seasons/100/table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(5), body["league_id"])
	table, ok := body["table"].([]any)
	require.True(t, ok)
	assert.Len(t, table, 2)
}

func TestGetTable_EmptyScopeIsOK(t *testing.T) {
	h := NewTableHandler(&fakeCalcService{})

	router := chi.NewRouter()
	router.Get("/leagues/{leagueID}/seasons/{seasonID}/table", h.GetTable)

	req := httptest.NewRequest(http.MethodGet, "/leagues/5/seasons/100/table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTable_BadParams(t *testing.T) {
	h := NewTableHandler(&fakeCalcService{})

	router := chi.NewRouter()
	router.Get("/leagues/{leagueID}/seasons/{seasonID}/table", h.GetTable)

	req := httptest.NewRequest(http.MethodGet, "/leagues/abc/seasons/100/table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTable_ServiceFailure(t *testing.T) {
	h := NewTableHandler(&fakeCalcService{err: errors.New("connection refused")})

	router := chi.NewRouter()
	router.Get("/leagues/{leagueID}/seasons/{seasonID}/table", h.GetTable)

	req := httptest.NewRequest(http.MethodGet, "/leagues/5/seasons/100/table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMatchCreatedHook(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	h := NewHookHandler(lifecycle)

	rec := postJSON(t, h.MatchCreated, `{"id": 7, "league_id": 5, "season_id": 100, "status": "finished"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, lifecycle.calls, 1)
	assert.Equal(t, lifecycleCall{trigger: "create", matchID: 7}, lifecycle.calls[0])
}

func TestMatchUpdatedHook(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	h := NewHookHandler(lifecycle)

	rec := postJSON(t, h.MatchUpdated, `{"before": {"id": 7}, "after": {"id": 7, "status": "finished"}}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, lifecycle.calls, 1)
	assert.Equal(t, "update", lifecycle.calls[0].trigger)
}

func TestMatchUpdatedHook_RequiresBothStates(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	h := NewHookHandler(lifecycle)

	rec := postJSON(t, h.MatchUpdated, `{"after": {"id": 7}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, lifecycle.calls)
}

func TestMatchDeletedHook(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	h := NewHookHandler(lifecycle)

	rec := postJSON(t, h.MatchDeleted, `{"id": 7, "league_id": 5, "season_id": 100}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, lifecycle.calls, 1)
	assert.Equal(t, "delete", lifecycle.calls[0].trigger)
}
