package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tendersum/internal/config"
	"tendersum/internal/extract"
	"tendersum/internal/ingest"
	"tendersum/internal/models"
	"tendersum/internal/storage"
	"tendersum/internal/summarize"
	"tendersum/internal/util"
	"tendersum/internal/workflows"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

// TemporalClient is the slice of the Temporal client the server uses. Tests
// substitute a fake; production passes the real client.
type TemporalClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type Server struct {
	cfg       config.Config
	store     storage.SummaryStore
	temporal  TemporalClient
	processor *ingest.Processor
}

func NewServer(cfg config.Config, store storage.SummaryStore, tc TemporalClient) (*Server, error) {
	pm, err := summarize.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	summarizer := summarize.New(pm.First(), summarize.Options{
		MaxInputLen: cfg.SummaryMaxInputLen,
		MinTokens:   cfg.SummaryMinTokens,
		MaxTokens:   cfg.SummaryMaxTokens,
		Timeout:     time.Duration(cfg.SummaryTimeoutSecs) * time.Second,
	})
	return &Server{
		cfg:       cfg,
		store:     store,
		temporal:  tc,
		processor: ingest.NewProcessor(summarizer),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/tenders", s.handleTenders)
	mux.HandleFunc("/jobs/", s.handleJobStatus)
	mux.HandleFunc("/summaries", s.handleSummaries)
	mux.HandleFunc("/summaries/", s.handleSummariesScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleTenders accepts a tender document (POST) or resolves the active
// summary for a tender address (GET ?address=).
func (s *Server) handleTenders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		address := strings.TrimSpace(r.URL.Query().Get("address"))
		if address == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("address is required"))
			return
		}
		rec, err := s.store.FindByTender(r.Context(), address)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				writeErr(w, http.StatusNotFound, err)
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	tenderAddress := strings.TrimSpace(r.FormValue("tender_address"))
	if tenderAddress == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: tender_address is required", util.ErrValidation))
		return
	}
	mode := strings.TrimSpace(r.FormValue("mode"))
	if mode == "" {
		mode = "async"
	}
	if mode != "sync" && mode != "async" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: mode must be sync or async", util.ErrValidation))
		return
	}

	fh, ok := firstSingleFile(r.MultipartForm.File)
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no file provided"))
		return
	}
	mimeType := detectMime(fh)
	if !extract.IsSupportedMime(mimeType) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", fh.Filename))
		return
	}

	// Cheap duplicate gate before any disk or workflow work. The store and
	// workflow enforce the invariant again.
	if _, err := s.store.FindByTender(r.Context(), tenderAddress); err == nil {
		writeErr(w, http.StatusConflict, fmt.Errorf("tender already processed: %w", util.ErrDuplicateTender))
		return
	} else if !errors.Is(err, util.ErrNotFound) {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if err := util.EnsureDir(s.cfg.UploadRoot); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	savedPath, err := saveUploadedFile(s.cfg.UploadRoot, fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	req := models.IngestionRequest{
		TenderAddress: tenderAddress,
		TenderID:      strings.TrimSpace(r.FormValue("tender_id")),
		FileName:      filepath.Base(fh.Filename),
		FilePath:      savedPath,
		FileSize:      fh.Size,
		MimeType:      mimeType,
		UploadedBy:    strings.TrimSpace(r.FormValue("uploaded_by")),
	}

	if mode == "sync" {
		s.processSync(w, r, req)
		return
	}

	workflowID := "tender-ingest-" + sanitizeID(tenderAddress)
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.TenderIngestWorkflow, workflows.TenderIngestInput{
		Request:      req,
		RetryInitial: s.cfg.RetryInitialSecs,
		RetryMax:     s.cfg.RetryMaxAttempts,
	})
	if err != nil {
		_ = util.RemoveIfExists(savedPath)
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			writeErr(w, http.StatusConflict, fmt.Errorf("tender already queued: %w", util.ErrDuplicateTender))
			return
		}
		writeErr(w, http.StatusBadGateway, fmt.Errorf("start ingestion workflow: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"workflow_id": we.GetID(),
		"run_id":      we.GetRunID(),
	})
}

// processSync runs the pipeline inline with a single attempt. The source file
// is removed on every outcome.
func (s *Server) processSync(w http.ResponseWriter, r *http.Request, req models.IngestionRequest) {
	defer func() {
		_ = util.RemoveIfExists(req.FilePath)
	}()
	rec, err := s.processor.Process(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUnsupportedFormat):
			writeErr(w, http.StatusBadRequest, err)
		case errors.Is(err, util.ErrExtractionFailure):
			writeErr(w, http.StatusUnprocessableEntity, err)
		default:
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	if err := s.store.Insert(r.Context(), rec); err != nil {
		if errors.Is(err, util.ErrDuplicateTender) {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	workflowID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/")
	if workflowID == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	resp, err := s.temporal.QueryWorkflow(r.Context(), workflowID, "", workflows.QueryGetJobStatus)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("job not found: %w", err))
		return
	}
	var status workflows.JobStatus
	if err := resp.Get(&status); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	q := r.URL.Query()
	filter := storage.ListFilter{
		Category:      strings.ToLower(strings.TrimSpace(q.Get("category"))),
		MinConfidence: parseIntDefault(q.Get("min_confidence"), 0),
		Limit:         parseIntDefault(q.Get("limit"), 0),
		Offset:        parseIntDefault(q.Get("offset"), 0),
	}
	views, total, err := s.store.ListPublic(r.Context(), filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": views, "total": total})
}

func (s *Server) handleSummariesScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/summaries/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	if len(parts) == 1 && parts[0] == "search" {
		s.handleSearch(w, r)
		return
	}
	if len(parts) == 1 && parts[0] == "stats" {
		s.handleStats(w, r)
		return
	}

	summaryID := parts[0]
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		rec, err := s.store.GetByID(r.Context(), summaryID)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				writeErr(w, http.StatusNotFound, err)
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if len(parts) == 2 && parts[1] == "review" {
		s.handleReview(w, r, summaryID)
		return
	}
	if len(parts) == 2 && parts[1] == "archive" {
		s.handleArchive(w, r, summaryID)
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("q is required"))
		return
	}
	views, err := s.store.SearchPublic(r.Context(), storage.SearchFilter{
		Query:    query,
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
		Location: strings.TrimSpace(q.Get("location")),
		Limit:    parseIntDefault(q.Get("limit"), 0),
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": views})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	total := 0
	for _, st := range stats {
		total += st.Count
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "categories": stats})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, summaryID string) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		ReviewedBy      string `json:"reviewed_by"`
		ValidationScore int    `json:"validation_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.ReviewedBy = strings.TrimSpace(req.ReviewedBy)
	if req.ReviewedBy == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("reviewed_by is required"))
		return
	}
	if req.ValidationScore < 0 || req.ValidationScore > 100 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("validation_score must be between 0 and 100"))
		return
	}
	if err := s.store.SetReview(r.Context(), summaryID, req.ReviewedBy, req.ValidationScore); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary_id": summaryID, "validation_score": req.ValidationScore})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request, summaryID string) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := s.store.Archive(r.Context(), summaryID); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary_id": summaryID, "status": models.StatusArchived})
}

var extensionMimes = map[string]string{
	".pdf":  extract.MimePDF,
	".doc":  extract.MimeDoc,
	".docx": extract.MimeDocx,
	".txt":  extract.MimePlain,
}

// detectMime trusts the declared content type when it is one we support,
// otherwise falls back to the file extension.
func detectMime(fh *multipart.FileHeader) string {
	declared := strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0])
	if extract.IsSupportedMime(declared) {
		return declared
	}
	return extensionMimes[strings.ToLower(filepath.Ext(fh.Filename))]
}

// saveUploadedFile streams the upload to a temp file, hashing as it goes, then
// atomically renames it into place under a hash-prefixed name.
func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	digest := fmt.Sprintf("%x", h.Sum(nil))[:12]
	finalPath := filepath.Join(dstDir, digest+"-"+filepath.Base(fh.Filename))
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("atomic move upload: %w", err)
	}
	return finalPath, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	if files := m["file"]; len(files) > 0 {
		return files[0], true
	}
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "TS-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "start ingestion workflow"):
			return apiError{
				Code:    "TS-API-5003",
				Message: "Job queue is unavailable. Please retry shortly.",
			}
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "TS-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "TS-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "TS-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "TS-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "TS-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "TS-API-4009"
		msg = "A summary already exists for this tender. Archive it before re-submitting."
	case status == http.StatusMethodNotAllowed:
		code = "TS-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusUnprocessableEntity:
		code = "TS-API-4022"
		msg = "The document could not be read. Check that the file is not corrupted."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "tender_address is required"):
			msg = "A tender address is required."
		case strings.Contains(raw, "address is required"):
			msg = "A tender address is required."
		case strings.Contains(raw, "no file provided"):
			msg = "No document file was provided."
		case strings.Contains(raw, "unsupported file type"):
			msg = "Only PDF, Word, and plain text documents are accepted."
		case strings.Contains(raw, "reviewed_by is required"):
			msg = "A reviewer identity is required."
		case strings.Contains(raw, "validation_score"):
			msg = "Validation score must be between 0 and 100."
		case strings.Contains(raw, "q is required"):
			msg = "A search query is required."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "mode must be"):
			msg = "Processing mode must be sync or async."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
