// Package handlers implements the review API: the read-only surface a
// human uses to inspect what the last reconciliation pass staged and
// flagged, plus the endpoint that triggers a new pass. Writing accepted
// entries into the journal happens outside this service.
package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-import/internal/api/middleware"
	"github.com/dvloznov/ledger-import/internal/importer"
	"github.com/dvloznov/ledger-import/internal/jobs"
	"github.com/dvloznov/ledger-import/internal/ledger"
)

// ResultStore holds the snapshot of the most recent completed run. It is
// written by the job worker and read by the handlers.
type ResultStore struct {
	mu    sync.RWMutex
	res   *importer.Result
	jobID string
	at    time.Time
}

// NewResultStore creates an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Set replaces the snapshot.
func (s *ResultStore) Set(jobID string, res *importer.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = res
	s.jobID = jobID
	s.at = time.Now()
}

// Get returns the snapshot, or ok=false when no run has completed yet.
func (s *ResultStore) Get() (res *importer.Result, jobID string, at time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.res, s.jobID, s.at, s.res != nil
}

// PendingEntryView is the JSON shape of one staged entry.
type PendingEntryView struct {
	Date       string `json:"date"`
	Text       string `json:"text"`
	SourceFile string `json:"source_file,omitempty"`
	SourceLine int    `json:"source_line,omitempty"`
}

// PostingRefView locates one journal posting in an invalid reference.
type PostingRefView struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Account string `json:"account"`
	ID      string `json:"source_ref"`
}

// InvalidReferenceView is the JSON shape of one flagged identifier.
type InvalidReferenceView struct {
	ID    string           `json:"id"`
	Count int              `json:"count"`
	Stale bool             `json:"stale"`
	Refs  []PostingRefView `json:"refs"`
}

// ReviewHandler serves the latest run's results.
type ReviewHandler struct {
	store *ResultStore
	log   zerolog.Logger
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(store *ResultStore, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{store: store, log: log}
}

// ListPending handles GET /api/pending
func (h *ReviewHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	res, _, _, ok := h.store.Get()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No completed run yet")
		return
	}

	entries := make([]PendingEntryView, 0, len(res.Pending))
	for _, p := range res.Pending {
		entries = append(entries, PendingEntryView{
			Date:       p.Date.String(),
			Text:       ledger.RenderDirective(p.Entry),
			SourceFile: p.Source.File,
			SourceLine: p.Source.Line,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"pending": entries,
		"count":   len(entries),
	})
}

// ListInvalid handles GET /api/invalid
func (h *ReviewHandler) ListInvalid(w http.ResponseWriter, r *http.Request) {
	res, _, _, ok := h.store.Get()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No completed run yet")
		return
	}

	invalid := make([]InvalidReferenceView, 0, len(res.Invalid))
	for _, inv := range res.Invalid {
		refs := make([]PostingRefView, 0, len(inv.Refs))
		for _, ref := range inv.Refs {
			refs = append(refs, PostingRefView{
				File:    ref.Txn.SourceFile,
				Line:    ref.Posting.Line,
				Account: ref.Posting.Account,
				ID:      inv.ID,
			})
		}
		invalid = append(invalid, InvalidReferenceView{
			ID:    inv.ID,
			Count: inv.Count,
			Stale: inv.Stale,
			Refs:  refs,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"invalid": invalid,
		"count":   len(invalid),
	})
}

// Summary handles GET /api/summary
func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	res, jobID, at, ok := h.store.Get()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No completed run yet")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":           jobID,
		"ran_at":           at.Format(time.RFC3339),
		"pending":          len(res.Pending),
		"invalid":          len(res.Invalid),
		"skipped_unmapped": res.SkippedUnmapped,
		"valid_ids":        len(res.ValidIDs),
	})
}

// ImportsHandler triggers import runs.
type ImportsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(publisher jobs.Publisher, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{publisher: publisher, log: log}
}

// TriggerImport handles POST /api/imports
func (h *ImportsHandler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	job := &jobs.ImportJob{
		Source: r.URL.Query().Get("source"),
	}

	if err := h.publisher.PublishImport(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source", job.Source).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Source: query.Get("source"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
