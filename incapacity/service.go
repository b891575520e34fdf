/*
service.go - Incapacity lifecycle orchestration

PURPOSE:
  The Service is the only entry point other subsystems call. It owns
  entity persistence, invokes the distribution calculator during
  creation, the chain resolver when accumulation matters, and the audit
  recorder after every mutation.

STATE MACHINE:

  Active ──▶ Transcribed ──▶ Collected ──▶ Finalized
    │             │              │
    └─────────────┴──────────────┴──▶ Cancelled

  Finalized and Cancelled are terminal. Finalize is reachable from
  Active, Transcribed, or Collected; Cancel from any non-terminal state.
  Collection requires a prior transcription so that a collected record
  always carries its insurer filing.

ATOMICITY:
  Converting an absence request runs in a single transaction: the
  incapacity insert, the request back-link, and the conversion audit
  entries land together or not at all. Every other mutation touches one
  incapacity row first and appends its audit entry best-effort: a
  failure after the primary mutation committed is surfaced as a
  warning, never a rollback.

CONCURRENCY:
  Each row carries a version; updates are conditional on the version the
  service read, so interleaved transitions on the same record fail with
  ErrConcurrentModification instead of silently losing a write.
*/
package incapacity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CancellationMarker prefixes the reason appended to the notes of a
// cancelled record.
const CancellationMarker = "[ANULADA]"

// Service orchestrates the incapacity lifecycle.
type Service struct {
	Store    Store
	Tx       Transactor
	Absences AbsenceRequests
	Chain    *ChainResolver
	Audit    *Recorder

	// Employees resolves employee display names for the detail view.
	// Optional: the detail falls back to the raw employee id.
	Employees UserDirectory

	Clock Clock
	Log   logrus.FieldLogger
}

// NewService wires a service with default clock, resolver, and recorder.
func NewService(store Store, tx Transactor, absences AbsenceRequests, users UserDirectory) *Service {
	clock := SystemClock{}
	return &Service{
		Store:    store,
		Tx:       tx,
		Absences: absences,
		Chain:    NewChainResolver(store),
		Audit:    NewRecorder(store, users, clock),
		Clock:    clock,
		Log:      logrus.StandardLogger(),
	}
}

// =============================================================================
// CREATION
// =============================================================================

// CreateStandalone validates the draft, computes the day distribution,
// claims the next number for the year, and persists the record as Active.
func (s *Service) CreateStandalone(ctx context.Context, draft Draft) (*Incapacity, error) {
	inc, err := s.build(draft, nil, 0)
	if err != nil {
		return nil, err
	}

	if err := s.Store.InsertIncapacity(ctx, inc); err != nil {
		return nil, fmt.Errorf("insert incapacity: %w", err)
	}

	s.auditBestEffort(ctx, inc.ID, ActionRegistration,
		fmt.Sprintf("incapacity %s registered (%d days)", inc.Number, inc.TotalDays),
		inc.CreatedBy, nil)

	return inc, nil
}

// CreateFromAbsenceRequest converts an existing absence/permit record
// into an incapacity. The insert and the request back-link run in one
// transaction: both land or neither does.
//
// Empty draft fields (employee, dates) are taken from the request.
func (s *Service) CreateFromAbsenceRequest(ctx context.Context, requestID int64, draft Draft, actorID string) (*Incapacity, error) {
	if draft.CreatedBy == "" {
		draft.CreatedBy = actorID
	}

	var inc *Incapacity
	err := s.Tx.WithTx(ctx, func(tx Tx) error {
		req, err := tx.GetAbsenceRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("load absence request: %w", err)
		}
		if req == nil {
			return &NotFoundError{Kind: "absence request", ID: requestID}
		}
		if req.Converted {
			return fmt.Errorf("absence request %d: %w", requestID, ErrAlreadyConverted)
		}

		if draft.EmployeeID == "" {
			draft.EmployeeID = req.EmployeeID
		}
		if draft.StartDate.IsZero() {
			draft.StartDate = req.StartDate
		}
		if draft.EndDate.IsZero() {
			draft.EndDate = req.EndDate
		}

		inc, err = s.build(draft, nil, 0)
		if err != nil {
			return err
		}
		inc.AbsenceRequestID = &requestID

		if err := tx.InsertIncapacity(ctx, inc); err != nil {
			return fmt.Errorf("insert incapacity: %w", err)
		}
		if err := tx.MarkConvertedToIncapacity(ctx, requestID, inc.ID); err != nil {
			return err
		}

		// The conversion trail commits with the conversion itself.
		if err := s.Audit.RecordActionTx(ctx, tx, inc.ID, ActionRegistration,
			fmt.Sprintf("incapacity %s registered (%d days)", inc.Number, inc.TotalDays),
			actorID, nil); err != nil {
			return err
		}
		return s.Audit.RecordActionTx(ctx, tx, inc.ID, ActionConvertedFromPermit,
			fmt.Sprintf("converted from absence request %d", requestID),
			actorID, map[string]string{"absence_request_id": fmt.Sprint(requestID)})
	})
	if err != nil {
		return nil, err
	}

	return inc, nil
}

// CreateProrroga extends an existing incapacity. Leave type and paying
// entity are copied from the predecessor; the cost split honours the
// whole episode's accumulated days.
func (s *Service) CreateProrroga(ctx context.Context, predecessorID int64, draft Draft, actorID string) (*Incapacity, error) {
	pred, err := s.load(ctx, predecessorID, "predecessor")
	if err != nil {
		return nil, err
	}

	// The chain is a simple forward path: one extension per record.
	if next, err := s.Store.Successor(ctx, predecessorID); err != nil {
		return nil, err
	} else if next != nil {
		return nil, &ValidationError{Field: "predecessor_id",
			Reason: fmt.Sprintf("incapacity %d is already extended by %d", predecessorID, next.ID)}
	}

	origin, err := s.Chain.Origin(ctx, predecessorID)
	if err != nil {
		return nil, err
	}
	accumulated, err := s.Chain.TotalAccumulatedDays(ctx, origin.ID)
	if err != nil {
		return nil, err
	}

	if draft.CreatedBy == "" {
		draft.CreatedBy = actorID
	}
	if draft.EmployeeID == "" {
		draft.EmployeeID = pred.EmployeeID
	}
	draft.LeaveType = pred.LeaveType
	draft.PayingEntity = pred.PayingEntity
	if draft.DailyValue.IsZero() {
		draft.DailyValue = pred.DailyValue
	}
	if draft.PaymentPercent.IsZero() {
		draft.PaymentPercent = pred.PaymentPercent
	}

	inc, err := s.build(draft, &predecessorID, accumulated)
	if err != nil {
		return nil, err
	}

	if err := s.Store.InsertIncapacity(ctx, inc); err != nil {
		return nil, fmt.Errorf("insert prorroga: %w", err)
	}

	s.auditBestEffort(ctx, inc.ID, ActionRegistration,
		fmt.Sprintf("prorroga %s registered (%d days, %d accumulated before)",
			inc.Number, inc.TotalDays, accumulated),
		actorID, map[string]string{"predecessor_id": fmt.Sprint(predecessorID)})
	s.auditBestEffort(ctx, pred.ID, ActionProrroga,
		fmt.Sprintf("extended by prorroga %s", inc.Number),
		actorID, map[string]string{"prorroga_id": fmt.Sprint(inc.ID)})

	return inc, nil
}

// build validates a draft and materialises the record. predecessorID and
// accumulated are only set for prórrogas.
func (s *Service) build(draft Draft, predecessorID *int64, accumulated int) (*Incapacity, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	start := DateOf(draft.StartDate)
	end := DateOf(draft.EndDate)
	issued := draft.IssuedAt
	if issued.IsZero() {
		issued = now
	}

	percent := draft.PaymentPercent
	if percent.IsZero() {
		percent = DefaultPaymentPercent
	}
	paying := draft.PayingEntity
	if paying == "" {
		paying = draft.IssuingEntity
	}

	totalDays := DaysInclusive(start, end)
	dist := Distribute(totalDays, predecessorID != nil, accumulated, draft.DailyValue, percent)

	return &Incapacity{
		EmployeeID:     draft.EmployeeID,
		PredecessorID:   predecessorID,
		IsProrroga:      predecessorID != nil,
		StartDate:       start,
		EndDate:         end,
		IssuedAt:        issued,
		TotalDays:       totalDays,
		DiagnosisCode:   draft.DiagnosisCode,
		Diagnosis:       draft.Diagnosis,
		LeaveType:       draft.LeaveType,
		IssuingEntity:   draft.IssuingEntity,
		PayingEntity:    paying,
		EmployerDays:    dist.EmployerDays,
		InsurerDays:     dist.InsurerDays,
		PaymentPercent:  percent,
		DailyValue:      draft.DailyValue,
		PayableAmount:   dist.PayableAmount,
		CollectedAmount: decimal.Zero,
		Status:          StatusActive,
		CreatedBy:       draft.CreatedBy,
		Notes:           draft.Notes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func validateDraft(d *Draft) error {
	if d.EmployeeID == "" {
		return &ValidationError{Field: "employee_id", Reason: "required"}
	}
	if d.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "required"}
	}
	if d.EndDate.IsZero() {
		return &ValidationError{Field: "end_date", Reason: "required"}
	}
	if DateOf(d.EndDate).Before(DateOf(d.StartDate)) {
		return &ValidationError{Field: "end_date", Reason: "before start date"}
	}
	if !d.LeaveType.Valid() {
		return &ValidationError{Field: "leave_type", Reason: fmt.Sprintf("unknown value %q", d.LeaveType)}
	}
	if d.PaymentPercent.IsNegative() || d.PaymentPercent.GreaterThan(decimal.NewFromInt(1)) {
		return &ValidationError{Field: "payment_percent", Reason: "must be within [0, 1]"}
	}
	if d.DailyValue.IsNegative() {
		return &ValidationError{Field: "daily_value", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// RegisterTranscription records that the incapacity was formally filed
// with the paying insurer.
func (s *Service) RegisterTranscription(ctx context.Context, id int64, filingNumber string, filingDate time.Time, documentRef, actorID string) (*Incapacity, error) {
	if filingNumber == "" {
		return nil, &ValidationError{Field: "filing_number", Reason: "required"}
	}
	if filingDate.IsZero() {
		filingDate = s.Clock.Now()
	}

	payload := map[string]string{"filing_number": filingNumber}
	if documentRef != "" {
		payload["document"] = documentRef
	}

	return s.transition(ctx, id, "register transcription",
		[]Status{StatusActive}, StatusTranscribed,
		func(inc *Incapacity) {
			inc.Transcribed = true
			inc.TranscribedAt = &filingDate
			inc.FilingNumber = filingNumber
		},
		ActionTranscription,
		fmt.Sprintf("transcribed to insurer under filing %s", filingNumber),
		actorID, payload)
}

// RegisterCollection records the insurer's reimbursement.
func (s *Service) RegisterCollection(ctx context.Context, id int64, amount decimal.Decimal, collectionDate time.Time, actorID string) (*Incapacity, error) {
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "collected_amount", Reason: "must not be negative"}
	}
	if collectionDate.IsZero() {
		collectionDate = s.Clock.Now()
	}

	return s.transition(ctx, id, "register collection",
		[]Status{StatusTranscribed}, StatusCollected,
		func(inc *Incapacity) {
			inc.Collected = true
			inc.CollectedAt = &collectionDate
			inc.CollectedAmount = amount
		},
		ActionCollection,
		fmt.Sprintf("reimbursement of %s collected", amount.StringFixed(2)),
		actorID, map[string]string{"amount": amount.String()})
}

// Finalize closes the record. Optional notes are appended.
func (s *Service) Finalize(ctx context.Context, id int64, actorID, notes string) (*Incapacity, error) {
	return s.transition(ctx, id, "finalize",
		[]Status{StatusActive, StatusTranscribed, StatusCollected}, StatusFinalized,
		func(inc *Incapacity) {
			if notes != "" {
				inc.Notes = appendNote(inc.Notes, notes)
			}
		},
		ActionFinalization, "incapacity finalized", actorID, nil)
}

// Cancel voids the record from any non-terminal state. The reason is
// appended to the notes behind a visible marker.
func (s *Service) Cancel(ctx context.Context, id int64, actorID, reason string) (*Incapacity, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Reason: "required"}
	}

	return s.transition(ctx, id, "cancel",
		[]Status{StatusActive, StatusTranscribed, StatusCollected}, StatusCancelled,
		func(inc *Incapacity) {
			inc.Notes = appendNote(inc.Notes, CancellationMarker+" "+reason)
		},
		ActionObservation,
		fmt.Sprintf("incapacity cancelled: %s", reason),
		actorID, map[string]string{"reason": reason})
}

// transition implements the shared load / check / mutate / persist /
// audit sequence of every state change.
func (s *Service) transition(ctx context.Context, id int64, op string, allowed []Status, next Status, mutate func(*Incapacity), action ActionType, description, actorID string, payload map[string]string) (*Incapacity, error) {
	inc, err := s.load(ctx, id, "incapacity")
	if err != nil {
		return nil, err
	}

	permitted := false
	for _, st := range allowed {
		if inc.Status == st {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, &InvalidStateError{ID: id, Current: inc.Status, Requested: op}
	}

	mutate(inc)
	inc.Status = next
	inc.UpdatedAt = s.Clock.Now()

	if err := s.Store.UpdateIncapacity(ctx, inc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.auditBestEffort(ctx, id, action, description, actorID, payload)
	return inc, nil
}

// =============================================================================
// NON-TRANSITION MUTATIONS
// =============================================================================

// AddObservation appends a free-text observation to the history. The
// record itself is untouched, so observations work on terminal states.
func (s *Service) AddObservation(ctx context.Context, id int64, text, actorID string) error {
	if text == "" {
		return &ValidationError{Field: "text", Reason: "required"}
	}
	if _, err := s.load(ctx, id, "incapacity"); err != nil {
		return err
	}
	return s.Audit.RecordAction(ctx, id, ActionObservation, text, actorID, nil)
}

// AttachDocument records a supporting document reference in the history.
func (s *Service) AttachDocument(ctx context.Context, id int64, documentRef, actorID string) error {
	if documentRef == "" {
		return &ValidationError{Field: "document", Reason: "required"}
	}
	if _, err := s.load(ctx, id, "incapacity"); err != nil {
		return err
	}
	return s.Audit.RecordAction(ctx, id, ActionDocumentAdded,
		fmt.Sprintf("document attached: %s", documentRef),
		actorID, map[string]string{"document": documentRef})
}

// Archive soft-deletes the record. History is preserved; the record
// simply drops out of listings and statistics.
func (s *Service) Archive(ctx context.Context, id int64, actorID string) error {
	inc, err := s.load(ctx, id, "incapacity")
	if err != nil {
		return err
	}
	if inc.Archived {
		return nil
	}
	inc.Archived = true
	inc.UpdatedAt = s.Clock.Now()
	if err := s.Store.UpdateIncapacity(ctx, inc); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	s.auditBestEffort(ctx, id, ActionObservation, "incapacity archived", actorID, nil)
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a single incapacity.
func (s *Service) Get(ctx context.Context, id int64) (*Incapacity, error) {
	return s.load(ctx, id, "incapacity")
}

// List returns incapacities matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Incapacity, error) {
	return s.Store.ListIncapacities(ctx, f)
}

// ProrrogaSummary is the compact chain-member view inside a Detail.
type ProrrogaSummary struct {
	ID        int64
	Number    string
	StartDate time.Time
	EndDate   time.Time
	TotalDays int
	Status    Status
}

// Detail is the read-only composite view for display purposes.
type Detail struct {
	Incapacity
	EmployeeName    string
	Predecessor     *ProrrogaSummary
	Extensions      []ProrrogaSummary
	AccumulatedDays int
	History         []HistoryEntry
}

// GetDetail joins the record with its predecessor, its forward chain,
// the episode's accumulated days, and the decorated audit history.
func (s *Service) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	inc, err := s.load(ctx, id, "incapacity")
	if err != nil {
		return nil, err
	}

	detail := &Detail{Incapacity: *inc, EmployeeName: inc.EmployeeID}
	if s.Employees != nil {
		if name, err := s.Employees.DisplayName(ctx, inc.EmployeeID); err == nil && name != "" {
			detail.EmployeeName = name
		}
	}

	if inc.PredecessorID != nil {
		pred, err := s.load(ctx, *inc.PredecessorID, "predecessor")
		if err != nil {
			return nil, err
		}
		detail.Predecessor = summarize(pred)
	}

	origin, err := s.Chain.Origin(ctx, id)
	if err != nil {
		return nil, err
	}
	chain, err := s.Chain.Descendants(ctx, origin.ID)
	if err != nil {
		return nil, err
	}
	accumulated := origin.TotalDays
	for i := range chain {
		accumulated += chain[i].TotalDays
		if chain[i].ID != id {
			detail.Extensions = append(detail.Extensions, *summarize(&chain[i]))
		}
	}
	detail.AccumulatedDays = accumulated

	history, err := s.Audit.History(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.History = history

	return detail, nil
}

func summarize(inc *Incapacity) *ProrrogaSummary {
	return &ProrrogaSummary{
		ID:        inc.ID,
		Number:    inc.Number,
		StartDate: inc.StartDate,
		EndDate:   inc.EndDate,
		TotalDays: inc.TotalDays,
		Status:    inc.Status,
	}
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *Service) load(ctx context.Context, id int64, kind string) (*Incapacity, error) {
	inc, err := s.Store.GetIncapacity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	if inc == nil {
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	return inc, nil
}

// auditBestEffort appends an audit entry after a committed mutation.
// A failure here must not undo the mutation; it is logged as a warning.
func (s *Service) auditBestEffort(ctx context.Context, id int64, action ActionType, description, actorID string, payload map[string]string) {
	if err := s.Audit.RecordAction(ctx, id, action, description, actorID, payload); err != nil {
		s.Log.WithFields(logrus.Fields{
			"incapacity_id": id,
			"action":        action,
		}).WithError(err).Warn("audit entry could not be recorded")
	}
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
