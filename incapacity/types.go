/*
Package incapacity manages the lifecycle of medical-leave (incapacity)
records: creation, day-cost distribution between employer and insurer,
prórroga (extension) chaining, the transcription/collection financial
workflow, and the append-only audit trail behind all of it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Incapacity: The central entity, one record per certified leave span
  - AuditEntry: An immutable action record against an incapacity
  - Status: The workflow state machine states
  - Draft: Validated input for creating a record
  - Collaborator interfaces: Store, AbsenceRequests, Clock, UserDirectory

DESIGN PRINCIPLES:
  1. Derived, never trusted: TotalDays and the cost split are always
     recomputed from the dates, never accepted as independent input
  2. Precision: decimal.Decimal for every monetary value
  3. Append-only history: audit entries are written, never edited
  4. Collaborators behind narrow interfaces so the engine is testable
     in-process with an in-memory SQLite store

SEE ALSO:
  - service.go: Lifecycle orchestration and the state machine
  - distribution.go: Day-cost splitting rules
  - chain.go: Prórroga chain resolution
  - audit.go: Audit trail recorder
*/
package incapacity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Workflow state machine
// =============================================================================

type Status string

const (
	StatusActive      Status = "active"
	StatusTranscribed Status = "transcribed"
	StatusCollected   Status = "collected"
	StatusFinalized   Status = "finalized"
	StatusCancelled   Status = "cancelled"
)

// IsTerminal reports whether no further transition can leave this status.
func (s Status) IsTerminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

// =============================================================================
// LEAVE TYPE
// =============================================================================

type LeaveType string

const (
	LeaveGeneralIllness      LeaveType = "general_illness"
	LeaveWorkAccident        LeaveType = "work_accident"
	LeaveOccupationalDisease LeaveType = "occupational_disease"
	LeaveMaternity           LeaveType = "maternity"
	LeavePaternity           LeaveType = "paternity"
)

func (lt LeaveType) Valid() bool {
	switch lt {
	case LeaveGeneralIllness, LeaveWorkAccident, LeaveOccupationalDisease,
		LeaveMaternity, LeavePaternity:
		return true
	}
	return false
}

// =============================================================================
// INCAPACITY - The central entity
// =============================================================================

// Incapacity is a medical-leave record certifying an employee is unfit to
// work for an inclusive date range.
//
// INVARIANTS:
//   - EmployerDays + InsurerDays == TotalDays
//   - TotalDays == inclusive day count between StartDate and EndDate
//   - IsProrroga implies PredecessorID != nil
//   - Collected implies Transcribed; Transcribed implies Status is at
//     least StatusTranscribed
type Incapacity struct {
	ID     int64
	Number string // INC-YYYY-NNNN, gapless within a year

	EmployeeID       string
	AbsenceRequestID *int64 // set when converted from an absence request
	PredecessorID    *int64 // immediate predecessor when this is a prórroga
	IsProrroga       bool

	StartDate time.Time // inclusive, day granularity
	EndDate   time.Time // inclusive, day granularity
	IssuedAt  time.Time
	TotalDays int

	DiagnosisCode string
	Diagnosis     string
	LeaveType     LeaveType
	IssuingEntity string
	PayingEntity  string

	// Cost split, derived by the distribution calculator.
	EmployerDays   int
	InsurerDays    int
	PaymentPercent decimal.Decimal
	DailyValue     decimal.Decimal
	PayableAmount  decimal.Decimal

	// Transcription workflow (filing with the insurer).
	Transcribed   bool
	TranscribedAt *time.Time
	FilingNumber  string

	// Collection workflow (reimbursement received).
	Collected       bool
	CollectedAt     *time.Time
	CollectedAmount decimal.Decimal

	Status    Status
	CreatedBy string
	Notes     string
	Archived  bool // soft delete: hides the record, never removes history

	// Version increments on every update; stale writes are rejected.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// AUDIT ENTRY - Append-only action record (seguimiento)
// =============================================================================

type ActionType string

const (
	ActionRegistration        ActionType = "registration"
	ActionTranscription       ActionType = "transcription"
	ActionInsurerFiling       ActionType = "insurer_filing"
	ActionCollection          ActionType = "collection"
	ActionProrroga            ActionType = "prorroga"
	ActionFinalization        ActionType = "finalization"
	ActionObservation         ActionType = "observation"
	ActionDocumentAdded       ActionType = "document_added"
	ActionConvertedFromPermit ActionType = "converted_from_permit"
)

// AuditEntry is one immutable entry in an incapacity's history.
// Entries are appended by every state-changing operation and never
// updated or deleted afterwards.
type AuditEntry struct {
	ID           string // uuid
	IncapacityID int64
	Action       ActionType
	Description  string
	ActorID      string
	Payload      map[string]string // optional structured context
	CreatedAt    time.Time
}

// HistoryEntry is an audit entry decorated with the acting user's
// display name for presentation.
type HistoryEntry struct {
	AuditEntry
	ActorName string
}

// =============================================================================
// DRAFT - Input for creating a record
// =============================================================================

// Draft carries the caller-supplied fields for a new incapacity.
// TotalDays and the cost split are computed, never taken from the draft.
type Draft struct {
	EmployeeID     string
	StartDate      time.Time
	EndDate        time.Time
	IssuedAt       time.Time // zero value means "now"
	DiagnosisCode  string
	Diagnosis      string
	LeaveType      LeaveType
	IssuingEntity  string
	PayingEntity   string          // defaults to the issuing entity when empty
	PaymentPercent decimal.Decimal // zero means the statutory default
	DailyValue     decimal.Decimal
	Notes          string
	CreatedBy      string
}

// =============================================================================
// ABSENCE REQUEST - External collaborator record
// =============================================================================

// AbsenceRequest is the narrow view of a permit/absence record this
// engine needs when converting one into an incapacity.
type AbsenceRequest struct {
	ID           int64
	EmployeeID   string
	StartDate    time.Time
	EndDate      time.Time
	Reason       string
	Converted    bool
	IncapacityID *int64
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Store persists incapacities and their audit trail.
// Implementations return (nil, nil) for lookups that find nothing;
// the service layer maps that to ErrNotFound.
type Store interface {
	// InsertIncapacity persists a new record, assigning ID and Number.
	// The year sequence behind Number is claimed atomically with the
	// insert so concurrent creates stay gapless.
	InsertIncapacity(ctx context.Context, inc *Incapacity) error

	// UpdateIncapacity writes a mutated record. The write is conditional
	// on inc.Version matching the stored row; on success the version is
	// incremented, on mismatch ErrConcurrentModification is returned.
	UpdateIncapacity(ctx context.Context, inc *Incapacity) error

	GetIncapacity(ctx context.Context, id int64) (*Incapacity, error)
	ListIncapacities(ctx context.Context, f Filter) ([]Incapacity, error)

	// Successor returns the record whose predecessor is id, or nil.
	Successor(ctx context.Context, id int64) (*Incapacity, error)

	AppendAudit(ctx context.Context, e AuditEntry) error
	// AuditHistory returns entries newest-first.
	AuditHistory(ctx context.Context, incapacityID int64) ([]AuditEntry, error)
}

// AbsenceRequests is the external absence/permit store.
type AbsenceRequests interface {
	GetAbsenceRequest(ctx context.Context, id int64) (*AbsenceRequest, error)
	MarkConvertedToIncapacity(ctx context.Context, requestID, incapacityID int64) error
}

// Tx is the transactional view handed to WithTx callbacks: the same
// store and absence-request operations, scoped to one atomic unit.
type Tx interface {
	Store
	AbsenceRequests
}

// Transactor provides atomic multi-write units. Either every write in
// fn lands or none does.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserDirectory resolves user ids to display names. Only used to
// decorate audit-history output.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Filter narrows ListIncapacities.
type Filter struct {
	EmployeeID string
	Status     Status
	LeaveType  LeaveType

	// From/To select records whose [StartDate, EndDate] overlaps the range.
	From time.Time
	To   time.Time

	PendingTranscription bool // active, not yet transcribed
	PendingCollection    bool // transcribed, not yet collected
	IncludeArchived      bool
}

// =============================================================================
// CLOCK - Injectable "now"
// =============================================================================

type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. For tests.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// DATE HELPERS
// =============================================================================

// DateOf truncates t to day granularity in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysInclusive counts the calendar days in [start, end], both inclusive.
func DaysInclusive(start, end time.Time) int {
	return int(DateOf(end).Sub(DateOf(start)).Hours()/24) + 1
}
