/*
handlers.go - HTTP API handlers for the incapacity engine

PURPOSE:
  Exposes the incapacity lifecycle via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Incapacities:
    GET    /api/incapacities                     List (filterable)
    POST   /api/incapacities                     Register standalone
    GET    /api/incapacities/{id}                Detail with chain + history
    POST   /api/incapacities/{id}/transcription  Record insurer filing
    POST   /api/incapacities/{id}/collection     Record reimbursement
    POST   /api/incapacities/{id}/finalize       Close out
    POST   /api/incapacities/{id}/cancel         Void (reason required)
    POST   /api/incapacities/{id}/prorroga       Register an extension
    POST   /api/incapacities/{id}/observations   Append a note
    POST   /api/incapacities/{id}/documents      Attach document reference
    POST   /api/incapacities/{id}/archive        Soft delete
    GET    /api/incapacities/{id}/history        Audit trail only

  Conversions:
    POST   /api/absence-requests/{id}/convert    Convert a permit

  Reports:
    GET    /api/reports/statistics               Dashboard snapshot
    GET    /api/reports/collection?year=&month=  Monthly collection report

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Invalid state transition, stale version, double conversion
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andara-hcm/incapacity-engine/incapacity"
	"github.com/andara-hcm/incapacity-engine/report"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *incapacity.Service
	Reports *report.Aggregator
}

// NewHandler creates a handler around the lifecycle service and the
// report aggregator.
func NewHandler(svc *incapacity.Service, reports *report.Aggregator) *Handler {
	return &Handler{Service: svc, Reports: reports}
}

// =============================================================================
// CREATION ENDPOINTS
// =============================================================================

// CreateIncapacity registers a standalone incapacity.
// POST /api/incapacities
func (h *Handler) CreateIncapacity(w http.ResponseWriter, r *http.Request) {
	var req CreateIncapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	draft, err := draftFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incapacity data", err)
		return
	}

	inc, err := h.Service.CreateStandalone(r.Context(), draft)
	if err != nil {
		writeDomainError(w, "Failed to register incapacity", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncapacityDTO(inc))
}

// ConvertAbsenceRequest converts an approved absence permit into an
// incapacity. The conversion and the permit back-link commit atomically.
// POST /api/absence-requests/{id}/convert
func (h *Handler) ConvertAbsenceRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CreateIncapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	draft, err := draftFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incapacity data", err)
		return
	}

	inc, err := h.Service.CreateFromAbsenceRequest(r.Context(), requestID, draft, req.CreatedBy)
	if err != nil {
		writeDomainError(w, "Failed to convert absence request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncapacityDTO(inc))
}

// CreateProrroga registers an extension of an existing incapacity.
// POST /api/incapacities/{id}/prorroga
func (h *Handler) CreateProrroga(w http.ResponseWriter, r *http.Request) {
	predecessorID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CreateIncapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	draft, err := draftFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid incapacity data", err)
		return
	}

	inc, err := h.Service.CreateProrroga(r.Context(), predecessorID, draft, req.CreatedBy)
	if err != nil {
		writeDomainError(w, "Failed to register prorroga", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncapacityDTO(inc))
}

// =============================================================================
// LIFECYCLE ENDPOINTS
// =============================================================================

// RegisterTranscription records the insurer filing.
// POST /api/incapacities/{id}/transcription
func (h *Handler) RegisterTranscription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req TranscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	filingDate, err := optionalDateZero(req.FilingDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filing_date format (use YYYY-MM-DD)", err)
		return
	}

	inc, err := h.Service.RegisterTranscription(r.Context(), id, req.FilingNumber, filingDate, req.DocumentRef, req.ActorID)
	if err != nil {
		writeDomainError(w, "Failed to register transcription", err)
		return
	}
	writeJSON(w, http.StatusOK, toIncapacityDTO(inc))
}

// RegisterCollection records the reimbursement received from the insurer.
// POST /api/incapacities/{id}/collection
func (h *Handler) RegisterCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	collectionDate, err := optionalDateZero(req.CollectionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid collection_date format (use YYYY-MM-DD)", err)
		return
	}

	inc, err := h.Service.RegisterCollection(r.Context(), id, amount, collectionDate, req.ActorID)
	if err != nil {
		writeDomainError(w, "Failed to register collection", err)
		return
	}
	writeJSON(w, http.StatusOK, toIncapacityDTO(inc))
}

// Finalize closes out an incapacity.
// POST /api/incapacities/{id}/finalize
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inc, err := h.Service.Finalize(r.Context(), id, req.ActorID, req.Notes)
	if err != nil {
		writeDomainError(w, "Failed to finalize incapacity", err)
		return
	}
	writeJSON(w, http.StatusOK, toIncapacityDTO(inc))
}

// Cancel voids an incapacity. The record is retained for audit.
// POST /api/incapacities/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inc, err := h.Service.Cancel(r.Context(), id, req.ActorID, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to cancel incapacity", err)
		return
	}
	writeJSON(w, http.StatusOK, toIncapacityDTO(inc))
}

// AddObservation appends a free-text note to the audit trail.
// POST /api/incapacities/{id}/observations
func (h *Handler) AddObservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ObservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.AddObservation(r.Context(), id, req.Text, req.ActorID); err != nil {
		writeDomainError(w, "Failed to add observation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AttachDocument records a document reference on the audit trail.
// POST /api/incapacities/{id}/documents
func (h *Handler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.AttachDocument(r.Context(), id, req.DocumentRef, req.ActorID); err != nil {
		writeDomainError(w, "Failed to attach document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Archive soft-deletes an incapacity. It disappears from listings and
// reports but stays in the database.
// POST /api/incapacities/{id}/archive
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.Archive(r.Context(), id, req.ActorID); err != nil {
		writeDomainError(w, "Failed to archive incapacity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

// ListIncapacities returns records matching the query filters.
// GET /api/incapacities?employee_id=&status=&leave_type=&from=&to=&pending=transcription|collection
func (h *Handler) ListIncapacities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := incapacity.Filter{
		EmployeeID: q.Get("employee_id"),
		Status:     incapacity.Status(q.Get("status")),
		LeaveType:  incapacity.LeaveType(q.Get("leave_type")),
	}

	var err error
	if f.From, err = optionalDateZero(q.Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	if f.To, err = optionalDateZero(q.Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	switch q.Get("pending") {
	case "":
	case "transcription":
		f.PendingTranscription = true
	case "collection":
		f.PendingCollection = true
	default:
		writeError(w, http.StatusBadRequest, "Invalid pending filter (use transcription or collection)", nil)
		return
	}

	if q.Get("include_archived") == "true" {
		f.IncludeArchived = true
	}

	list, err := h.Service.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list incapacities", err)
		return
	}

	dtos := make([]IncapacityDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, toIncapacityDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetIncapacity returns the detail view: record, chain neighbors,
// accumulated days, and the full audit history.
// GET /api/incapacities/{id}
func (h *Handler) GetIncapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.GetDetail(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get incapacity", err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailDTO(detail))
}

// GetHistory returns only the audit trail, newest first.
// GET /api/incapacities/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	// 404 for unknown ids rather than an empty trail.
	if _, err := h.Service.Get(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get incapacity", err)
		return
	}

	history, err := h.Service.Audit.History(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	dtos := make([]HistoryEntryDTO, 0, len(history))
	for _, e := range history {
		dtos = append(dtos, toHistoryEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetStatistics returns the dashboard snapshot.
// GET /api/reports/statistics
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reports.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsDTO(stats))
}

// GetCollectionReport returns the monthly per-insurer collection report.
// GET /api/reports/collection?year=2024&month=3
func (h *Handler) GetCollectionReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid or missing year", err)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid or missing month (1-12)", err)
		return
	}

	rep, err := h.Reports.CollectionReport(r.Context(), year, time.Month(month))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build collection report", err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionReportDTO(rep))
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

func draftFromRequest(req CreateIncapacityRequest) (incapacity.Draft, error) {
	var draft incapacity.Draft
	var err error

	if draft.StartDate, err = time.Parse(dtoDateFormat, req.StartDate); err != nil {
		return draft, err
	}
	if draft.EndDate, err = time.Parse(dtoDateFormat, req.EndDate); err != nil {
		return draft, err
	}
	if req.IssuedAt != "" {
		if draft.IssuedAt, err = time.Parse(time.RFC3339, req.IssuedAt); err != nil {
			return draft, err
		}
	}
	if req.PaymentPercent != "" {
		if draft.PaymentPercent, err = decimal.NewFromString(req.PaymentPercent); err != nil {
			return draft, err
		}
	}
	if req.DailyValue != "" {
		if draft.DailyValue, err = decimal.NewFromString(req.DailyValue); err != nil {
			return draft, err
		}
	}

	draft.EmployeeID = req.EmployeeID
	draft.DiagnosisCode = req.DiagnosisCode
	draft.Diagnosis = req.Diagnosis
	draft.LeaveType = incapacity.LeaveType(req.LeaveType)
	draft.IssuingEntity = req.IssuingEntity
	draft.PayingEntity = req.PayingEntity
	draft.Notes = req.Notes
	draft.CreatedBy = req.CreatedBy
	return draft, nil
}

// optionalDateZero leaves the zero value when the field is absent; the
// service substitutes its own clock for zero dates.
func optionalDateZero(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dtoDateFormat, s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case incapacity.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, incapacity.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, incapacity.ErrInvalidState),
		errors.Is(err, incapacity.ErrConcurrentModification),
		errors.Is(err, incapacity.ErrAlreadyConverted):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
