package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tendersum/internal/config"
	"tendersum/internal/models"
	"tendersum/internal/storage"
	"tendersum/internal/workflows"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

type fakeRun struct {
	id    string
	runID string
}

func (f fakeRun) GetID() string    { return f.id }
func (f fakeRun) GetRunID() string { return f.runID }
func (f fakeRun) Get(context.Context, interface{}) error {
	return nil
}
func (f fakeRun) GetWithOptions(context.Context, interface{}, tclient.WorkflowRunGetOptions) error {
	return nil
}

type fakeEncodedValue struct {
	value any
}

func (f fakeEncodedValue) HasValue() bool { return f.value != nil }
func (f fakeEncodedValue) Get(valuePtr interface{}) error {
	b, err := json.Marshal(f.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, valuePtr)
}

type fakeTemporal struct {
	started   []tclient.StartWorkflowOptions
	startErr  error
	jobStatus *workflows.JobStatus
}

func (f *fakeTemporal) ExecuteWorkflow(_ context.Context, options tclient.StartWorkflowOptions, _ interface{}, _ ...interface{}) (tclient.WorkflowRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, options)
	return fakeRun{id: options.ID, runID: "run-1"}, nil
}

func (f *fakeTemporal) QueryWorkflow(_ context.Context, workflowID, _, _ string, _ ...interface{}) (converter.EncodedValue, error) {
	if f.jobStatus == nil {
		return nil, fmt.Errorf("workflow not found: %s", workflowID)
	}
	return fakeEncodedValue{value: f.jobStatus}, nil
}

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore, *fakeTemporal) {
	t.Helper()
	store := storage.NewMemoryStore()
	tc := &fakeTemporal{}
	cfg := config.Config{
		UploadRoot:        t.TempDir(),
		MaxUploadBytes:    1 << 20,
		TemporalTaskQueue: "tendersum",
		SummaryProviders:  "none",
	}
	srv, err := NewServer(cfg, store, tc)
	require.NoError(t, err)
	return srv, store, tc
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(fileContent))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func seedCompleted(t *testing.T, store *storage.MemoryStore, address, category string, confidence int) models.TenderSummaryRecord {
	t.Helper()
	rec := models.TenderSummaryRecord{
		SummaryID:     uuid.NewString(),
		TenderAddress: address,
		FileName:      "tender.pdf",
		Status:        models.StatusCompleted,
		IsPublic:      true,
		ProcessedAt:   time.Now(),
		TextLength:    1000,
		Summary:       models.Summary{Overview: "Tender overview", WorkType: category, Location: "Pune", Confidence: confidence},
	}
	rec.DeriveSearchFields()
	require.NoError(t, store.Insert(context.Background(), rec))
	return rec
}

func TestSubmitAsyncStartsWorkflow(t *testing.T) {
	srv, _, tc := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{
		"tender_address": "tender://road-pune-2026",
		"tender_id":      "TND-42",
	}, "notice.txt", "Tender for road construction in Pune.")

	req := httptest.NewRequest(http.MethodPost, "/tenders", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, tc.started, 1)
	require.Equal(t, "tender-ingest-tender---road-pune-2026", tc.started[0].ID)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, tc.started[0].ID, resp["workflow_id"])
	require.Equal(t, "run-1", resp["run_id"])
}

func TestSubmitAsyncStartFailureMapping(t *testing.T) {
	srv, _, tc := newTestServer(t)

	tc.startErr = fmt.Errorf("last connection error: connection refused")
	body, contentType := multipartBody(t, map[string]string{
		"tender_address": "tender://road-pune-2026",
	}, "notice.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/tenders", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), "TS-API-5003")

	tc.startErr = serviceerror.NewWorkflowExecutionAlreadyStarted("workflow execution already started", "", "run-0")
	body, contentType = multipartBody(t, map[string]string{
		"tender_address": "tender://road-pune-2026",
	}, "notice.txt", "text")
	req = httptest.NewRequest(http.MethodPost, "/tenders", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "TS-API-4009")
}

func TestSubmitSyncProcessesInline(t *testing.T) {
	srv, store, tc := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{
		"tender_address": "tender://road-pune-2026",
		"mode":           "sync",
	}, "notice.txt", "The contractor must complete road construction within 90 days for ₹50,00,000 in Pune.")

	req := httptest.NewRequest(http.MethodPost, "/tenders", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Empty(t, tc.started)

	var rec models.TenderSummaryRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.Equal(t, models.StatusCompleted, rec.Status)
	require.Equal(t, "Construction", rec.Summary.WorkType)
	require.Equal(t, "₹50,00,000", rec.Summary.EstimatedValue)

	stored, err := store.FindByTender(context.Background(), "tender://road-pune-2026")
	require.NoError(t, err)
	require.Equal(t, rec.SummaryID, stored.SummaryID)
}

func TestSubmitDuplicateRejected(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedCompleted(t, store, "tender://road-pune-2026", "Construction", 60)

	body, contentType := multipartBody(t, map[string]string{
		"tender_address": "tender://road-pune-2026",
	}, "notice.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/tenders", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "TS-API-4009")
}

func TestSubmitUnsupportedFileType(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body, contentType := multipartBody(t, map[string]string{
		"tender_address": "tender://x",
	}, "image.png", "not a document")
	req := httptest.NewRequest(http.MethodPost, "/tenders", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "TS-API-4001")
	require.Contains(t, w.Body.String(), "Only PDF, Word, and plain text")
}

func TestSubmitMissingAddress(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body, contentType := multipartBody(t, nil, "notice.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/tenders", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "tender address is required")
}

func TestLookupByTenderAddress(t *testing.T) {
	srv, store, _ := newTestServer(t)
	rec := seedCompleted(t, store, "tender://road-pune-2026", "Construction", 60)

	req := httptest.NewRequest(http.MethodGet, "/tenders?address=tender%3A%2F%2Froad-pune-2026", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.TenderSummaryRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, rec.SummaryID, got.SummaryID)

	req = httptest.NewRequest(http.MethodGet, "/tenders?address=tender%3A%2F%2Fmissing", nil)
	w = httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobStatusQuery(t *testing.T) {
	srv, _, tc := newTestServer(t)
	tc.jobStatus = &workflows.JobStatus{
		TenderAddress: "tender://road-pune-2026",
		State:         models.StatusProcessing,
		Progress:      80,
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs/tender-ingest-tender---road-pune-2026", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var status workflows.JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, 80, status.Progress)

	tc.jobStatus = nil
	w = httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPublicSummaries(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedCompleted(t, store, "a", "Roads", 60)
	seedCompleted(t, store, "b", "Roads", 40)
	seedCompleted(t, store, "c", "Water", 70)

	req := httptest.NewRequest(http.MethodGet, "/summaries?category=roads&min_confidence=50", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Summaries []models.PublicView `json:"summaries"`
		Total     int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	require.Len(t, resp.Summaries, 1)
	require.Equal(t, "roads", resp.Summaries[0].Category)
}

func TestSearchSummaries(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedCompleted(t, store, "a", "Roads", 60)
	seedCompleted(t, store, "b", "Water", 60)

	req := httptest.NewRequest(http.MethodGet, "/summaries/search?q=water", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Summaries []models.PublicView `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Summaries, 1)

	req = httptest.NewRequest(http.MethodGet, "/summaries/search", nil)
	w = httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	seedCompleted(t, store, "a", "Roads", 40)
	seedCompleted(t, store, "b", "Roads", 60)

	req := httptest.NewRequest(http.MethodGet, "/summaries/stats", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total      int                  `json:"total"`
		Categories []models.CategoryStat `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Categories, 1)
	require.InDelta(t, 50.0, resp.Categories[0].AvgConfidence, 0.001)
}

func TestReviewEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	rec := seedCompleted(t, store, "a", "Roads", 60)

	payload := strings.NewReader(`{"reviewed_by":"reviewer@example.com","validation_score":85}`)
	req := httptest.NewRequest(http.MethodPost, "/summaries/"+rec.SummaryID+"/review", payload)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.GetByID(context.Background(), rec.SummaryID)
	require.NoError(t, err)
	require.Equal(t, 85, got.ValidationScore)
	require.Equal(t, "reviewer@example.com", got.ReviewedBy)

	payload = strings.NewReader(`{"reviewed_by":"reviewer@example.com","validation_score":200}`)
	req = httptest.NewRequest(http.MethodPost, "/summaries/"+rec.SummaryID+"/review", payload)
	w = httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchiveEndpointFreesSlot(t *testing.T) {
	srv, store, _ := newTestServer(t)
	rec := seedCompleted(t, store, "tender://road-pune-2026", "Roads", 60)

	req := httptest.NewRequest(http.MethodPost, "/summaries/"+rec.SummaryID+"/archive", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.GetByID(context.Background(), rec.SummaryID)
	require.NoError(t, err)
	require.Equal(t, models.StatusArchived, got.Status)

	// Slot is free: a new submission for the same address is accepted.
	body, contentType := multipartBody(t, map[string]string{
		"tender_address": "tender://road-pune-2026",
	}, "notice.txt", "text")
	subReq := httptest.NewRequest(http.MethodPost, "/tenders", body)
	subReq.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, subReq)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestHealthAndCORS(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/summaries", nil)
	w = httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}
