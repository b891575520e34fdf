/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (dates parse, required fields present) happens in
  handlers; business validation lives in the incapacity service. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - incapacity/service.go: Domain operations behind them
*/
package api

import (
	"time"

	"github.com/andara-hcm/incapacity-engine/incapacity"
	"github.com/andara-hcm/incapacity-engine/report"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateIncapacityRequest is the body for registering an incapacity,
// standalone or as a conversion/prórroga depending on the route.
type CreateIncapacityRequest struct {
	EmployeeID     string `json:"employee_id"`
	StartDate      string `json:"start_date"` // YYYY-MM-DD
	EndDate        string `json:"end_date"`   // YYYY-MM-DD
	IssuedAt       string `json:"issued_at,omitempty"`
	DiagnosisCode  string `json:"diagnosis_code,omitempty"`
	Diagnosis      string `json:"diagnosis,omitempty"`
	LeaveType      string `json:"leave_type"`
	IssuingEntity  string `json:"issuing_entity,omitempty"`
	PayingEntity   string `json:"paying_entity,omitempty"`
	PaymentPercent string `json:"payment_percent,omitempty"` // "0.6667"
	DailyValue     string `json:"daily_value"`
	Notes          string `json:"notes,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
}

// TranscriptionRequest records the insurer filing.
type TranscriptionRequest struct {
	FilingNumber string `json:"filing_number"`
	FilingDate   string `json:"filing_date,omitempty"` // YYYY-MM-DD, default today
	DocumentRef  string `json:"document_ref,omitempty"`
	ActorID      string `json:"actor_id,omitempty"`
}

// CollectionRequest records the reimbursement received.
type CollectionRequest struct {
	Amount         string `json:"amount"`
	CollectionDate string `json:"collection_date,omitempty"` // YYYY-MM-DD, default today
	ActorID        string `json:"actor_id,omitempty"`
}

// FinalizeRequest closes out a record.
type FinalizeRequest struct {
	Notes   string `json:"notes,omitempty"`
	ActorID string `json:"actor_id,omitempty"`
}

// CancelRequest voids a record. Reason is mandatory.
type CancelRequest struct {
	Reason  string `json:"reason"`
	ActorID string `json:"actor_id,omitempty"`
}

// ObservationRequest appends a free-text note to the trail.
type ObservationRequest struct {
	Text    string `json:"text"`
	ActorID string `json:"actor_id,omitempty"`
}

// DocumentRequest attaches a document reference.
type DocumentRequest struct {
	DocumentRef string `json:"document_ref"`
	ActorID     string `json:"actor_id,omitempty"`
}

// ArchiveRequest soft-deletes a record.
type ArchiveRequest struct {
	ActorID string `json:"actor_id,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// IncapacityDTO is the full record representation.
type IncapacityDTO struct {
	ID               int64   `json:"id"`
	Number           string  `json:"number"`
	EmployeeID       string  `json:"employee_id"`
	AbsenceRequestID *int64  `json:"absence_request_id,omitempty"`
	PredecessorID    *int64  `json:"predecessor_id,omitempty"`
	IsProrroga       bool    `json:"is_prorroga"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	IssuedAt         string  `json:"issued_at"`
	TotalDays        int     `json:"total_days"`
	DiagnosisCode    string  `json:"diagnosis_code,omitempty"`
	Diagnosis        string  `json:"diagnosis,omitempty"`
	LeaveType        string  `json:"leave_type"`
	IssuingEntity    string  `json:"issuing_entity,omitempty"`
	PayingEntity     string  `json:"paying_entity,omitempty"`
	EmployerDays     int     `json:"employer_days"`
	InsurerDays      int     `json:"insurer_days"`
	PaymentPercent   string  `json:"payment_percent"`
	DailyValue       string  `json:"daily_value"`
	PayableAmount    string  `json:"payable_amount"`
	Transcribed      bool    `json:"transcribed"`
	TranscribedAt    *string `json:"transcribed_at,omitempty"`
	FilingNumber     string  `json:"filing_number,omitempty"`
	Collected        bool    `json:"collected"`
	CollectedAt      *string `json:"collected_at,omitempty"`
	CollectedAmount  string  `json:"collected_amount"`
	Status           string  `json:"status"`
	CreatedBy        string  `json:"created_by,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	Version          int64   `json:"version"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// ProrrogaSummaryDTO is a compact chain-neighbor reference.
type ProrrogaSummaryDTO struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TotalDays int    `json:"total_days"`
	Status    string `json:"status"`
}

// IncapacityDetailDTO is the record plus its chain and history.
type IncapacityDetailDTO struct {
	IncapacityDTO
	EmployeeName    string               `json:"employee_name,omitempty"`
	Predecessor     *ProrrogaSummaryDTO  `json:"predecessor,omitempty"`
	Extensions      []ProrrogaSummaryDTO `json:"extensions"`
	AccumulatedDays int                  `json:"accumulated_days"`
	History         []HistoryEntryDTO    `json:"history"`
}

// HistoryEntryDTO is one audit trail line.
type HistoryEntryDTO struct {
	ID          string            `json:"id"`
	Action      string            `json:"action"`
	Description string            `json:"description,omitempty"`
	ActorID     string            `json:"actor_id,omitempty"`
	ActorName   string            `json:"actor_name,omitempty"`
	Payload     map[string]string `json:"payload,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

// StatisticsDTO is the dashboard snapshot.
type StatisticsDTO struct {
	AsOf                    string            `json:"as_of"`
	ActiveCount             int               `json:"active_count"`
	PendingTranscription    int               `json:"pending_transcription"`
	PendingCollection       int               `json:"pending_collection"`
	PendingCollectionAmount string            `json:"pending_collection_amount"`
	FinalizedThisMonth      int               `json:"finalized_this_month"`
	CollectedThisMonth      string            `json:"collected_this_month"`
	DaysStartedThisMonth    int               `json:"days_started_this_month"`
	ExpiringSoon            []ExpiringSoonDTO `json:"expiring_soon"`
}

// ExpiringSoonDTO is one near-expiry alert line.
type ExpiringSoonDTO struct {
	ID         int64  `json:"id"`
	Number     string `json:"number"`
	EmployeeID string `json:"employee_id"`
	EndDate    string `json:"end_date"`
	DaysLeft   int    `json:"days_left"`
}

// CollectionReportDTO groups payable amounts by paying entity.
type CollectionReportDTO struct {
	Year           int                  `json:"year"`
	Month          int                  `json:"month"`
	Groups         []CollectionGroupDTO `json:"groups"`
	TotalPayable   string               `json:"total_payable"`
	TotalCollected string               `json:"total_collected"`
}

// CollectionGroupDTO is one paying-entity line of the report.
type CollectionGroupDTO struct {
	PayingEntity    string `json:"paying_entity"`
	Records         int    `json:"records"`
	InsurerDays     int    `json:"insurer_days"`
	PayableAmount   string `json:"payable_amount"`
	CollectedAmount string `json:"collected_amount"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

const dtoDateFormat = "2006-01-02"

func toIncapacityDTO(inc *incapacity.Incapacity) IncapacityDTO {
	return IncapacityDTO{
		ID:               inc.ID,
		Number:           inc.Number,
		EmployeeID:       inc.EmployeeID,
		AbsenceRequestID: inc.AbsenceRequestID,
		PredecessorID:    inc.PredecessorID,
		IsProrroga:       inc.IsProrroga,
		StartDate:        inc.StartDate.Format(dtoDateFormat),
		EndDate:          inc.EndDate.Format(dtoDateFormat),
		IssuedAt:         inc.IssuedAt.Format(time.RFC3339),
		TotalDays:        inc.TotalDays,
		DiagnosisCode:    inc.DiagnosisCode,
		Diagnosis:        inc.Diagnosis,
		LeaveType:        string(inc.LeaveType),
		IssuingEntity:    inc.IssuingEntity,
		PayingEntity:     inc.PayingEntity,
		EmployerDays:     inc.EmployerDays,
		InsurerDays:      inc.InsurerDays,
		PaymentPercent:   inc.PaymentPercent.String(),
		DailyValue:       inc.DailyValue.StringFixed(2),
		PayableAmount:    inc.PayableAmount.StringFixed(2),
		Transcribed:      inc.Transcribed,
		TranscribedAt:    timePtrString(inc.TranscribedAt),
		FilingNumber:     inc.FilingNumber,
		Collected:        inc.Collected,
		CollectedAt:      timePtrString(inc.CollectedAt),
		CollectedAmount:  inc.CollectedAmount.StringFixed(2),
		Status:           string(inc.Status),
		CreatedBy:        inc.CreatedBy,
		Notes:            inc.Notes,
		Version:          inc.Version,
		CreatedAt:        inc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        inc.UpdatedAt.Format(time.RFC3339),
	}
}

func toProrrogaSummaryDTO(s incapacity.ProrrogaSummary) ProrrogaSummaryDTO {
	return ProrrogaSummaryDTO{
		ID:        s.ID,
		Number:    s.Number,
		StartDate: s.StartDate.Format(dtoDateFormat),
		EndDate:   s.EndDate.Format(dtoDateFormat),
		TotalDays: s.TotalDays,
		Status:    string(s.Status),
	}
}

func toDetailDTO(d *incapacity.Detail) IncapacityDetailDTO {
	dto := IncapacityDetailDTO{
		IncapacityDTO:   toIncapacityDTO(&d.Incapacity),
		EmployeeName:    d.EmployeeName,
		Extensions:      []ProrrogaSummaryDTO{},
		AccumulatedDays: d.AccumulatedDays,
		History:         make([]HistoryEntryDTO, 0, len(d.History)),
	}
	if d.Predecessor != nil {
		p := toProrrogaSummaryDTO(*d.Predecessor)
		dto.Predecessor = &p
	}
	for _, e := range d.Extensions {
		dto.Extensions = append(dto.Extensions, toProrrogaSummaryDTO(e))
	}
	for _, h := range d.History {
		dto.History = append(dto.History, toHistoryEntryDTO(h))
	}
	return dto
}

func toHistoryEntryDTO(h incapacity.HistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:          h.ID,
		Action:      string(h.Action),
		Description: h.Description,
		ActorID:     h.ActorID,
		ActorName:   h.ActorName,
		Payload:     h.Payload,
		CreatedAt:   h.CreatedAt.Format(time.RFC3339),
	}
}

func toStatisticsDTO(s *report.Statistics) StatisticsDTO {
	dto := StatisticsDTO{
		AsOf:                    s.AsOf.Format(time.RFC3339),
		ActiveCount:             s.ActiveCount,
		PendingTranscription:    s.PendingTranscription,
		PendingCollection:       s.PendingCollection,
		PendingCollectionAmount: s.PendingCollectionAmount.StringFixed(2),
		FinalizedThisMonth:      s.FinalizedThisMonth,
		CollectedThisMonth:      s.CollectedThisMonth.StringFixed(2),
		DaysStartedThisMonth:    s.DaysStartedThisMonth,
		ExpiringSoon:            []ExpiringSoonDTO{},
	}
	for _, e := range s.ExpiringSoon {
		dto.ExpiringSoon = append(dto.ExpiringSoon, ExpiringSoonDTO{
			ID:         e.ID,
			Number:     e.Number,
			EmployeeID: e.EmployeeID,
			EndDate:    e.EndDate.Format(dtoDateFormat),
			DaysLeft:   e.DaysLeft,
		})
	}
	return dto
}

func toCollectionReportDTO(r *report.CollectionReport) CollectionReportDTO {
	dto := CollectionReportDTO{
		Year:           r.Year,
		Month:          int(r.Month),
		Groups:         []CollectionGroupDTO{},
		TotalPayable:   r.TotalPayable.StringFixed(2),
		TotalCollected: r.TotalCollected.StringFixed(2),
	}
	for _, g := range r.Groups {
		dto.Groups = append(dto.Groups, CollectionGroupDTO{
			PayingEntity:    g.PayingEntity,
			Records:         g.Records,
			InsurerDays:     g.InsurerDays,
			PayableAmount:   g.PayableAmount.StringFixed(2),
			CollectedAmount: g.CollectedAmount.StringFixed(2),
		})
	}
	return dto
}

func timePtrString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
