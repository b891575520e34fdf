/*
Package sqlite provides the SQLite-backed implementation of the
persistence interfaces.

INTERFACES IMPLEMENTED:
  incapacity.Store:           incapacity + audit persistence
  incapacity.AbsenceRequests: the absence/permit table
  incapacity.Transactor:      atomic multi-write units (WithTx)
  report.Source:              typed projection rows for reporting

NUMBERING:
  The INC-YYYY-NNNN sequence is claimed with MAX(seq)+1 on the year
  partition inside the same SQL transaction as the insert, under a
  UNIQUE(year, seq) constraint. Writers are additionally serialized by
  a mutex, so sequences stay gapless and collision-free.

AUDIT TABLE:
  Append-only: no UPDATE or DELETE statement exists for audit_entries.

CONCURRENCY:
  Uses sync.RWMutex for in-process safety plus WAL mode. Row-level
  staleness is caught by the version column: updates are conditional
  on the version the caller read.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/incapacity.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := incapacity.NewService(store, store, store, directory)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/andara-hcm/incapacity-engine/incapacity"
	"github.com/andara-hcm/incapacity-engine/report"
)

const dateFormat = "2006-01-02"

// auditTimeFormat keeps the fractional seconds fixed-width so the
// lexical ORDER BY created_at in auditHistory matches chronological
// order. time.RFC3339Nano trims trailing zeros and would not.
const auditTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store with the given database path. Use ":memory:" for
// an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS incapacities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		number TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		employee_id TEXT NOT NULL,
		absence_request_id INTEGER,
		predecessor_id INTEGER REFERENCES incapacities(id),
		is_prorroga BOOLEAN NOT NULL DEFAULT FALSE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		total_days INTEGER NOT NULL,
		diagnosis_code TEXT,
		diagnosis TEXT,
		leave_type TEXT NOT NULL,
		issuing_entity TEXT,
		paying_entity TEXT,
		employer_days INTEGER NOT NULL,
		insurer_days INTEGER NOT NULL,
		payment_percent TEXT NOT NULL,
		daily_value TEXT NOT NULL,
		payable_amount TEXT NOT NULL,
		transcribed BOOLEAN NOT NULL DEFAULT FALSE,
		transcribed_at TEXT,
		filing_number TEXT,
		collected BOOLEAN NOT NULL DEFAULT FALSE,
		collected_at TEXT,
		collected_amount TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		created_by TEXT,
		notes TEXT,
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(year, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_incapacities_employee
		ON incapacities(employee_id, start_date);

	CREATE INDEX IF NOT EXISTS idx_incapacities_status
		ON incapacities(status);

	-- Forward chain walks: successor lookup by predecessor id
	CREATE INDEX IF NOT EXISTS idx_incapacities_predecessor
		ON incapacities(predecessor_id) WHERE predecessor_id IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_incapacities_dates
		ON incapacities(start_date, end_date);

	-- Append-only audit trail
	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		incapacity_id INTEGER NOT NULL REFERENCES incapacities(id),
		action TEXT NOT NULL,
		description TEXT,
		actor_id TEXT,
		payload_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_incapacity
		ON audit_entries(incapacity_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS absence_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT,
		converted BOOLEAN NOT NULL DEFAULT FALSE,
		incapacity_id INTEGER REFERENCES incapacities(id),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_absence_requests_employee
		ON absence_requests(employee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// INCAPACITY RECORDS (incapacity.Store interface)
// =============================================================================

// InsertIncapacity persists a new record, claiming the next gapless
// sequence for its issuance year in the same transaction.
func (s *Store) InsertIncapacity(ctx context.Context, inc *incapacity.Incapacity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertIncapacity(ctx, tx, inc); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) insertIncapacity(ctx context.Context, q querier, inc *incapacity.Incapacity) error {
	year := inc.IssuedAt.Year()

	var seq int
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM incapacities WHERE year = ?", year,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to claim sequence: %w", err)
	}
	inc.Number = incapacity.FormatNumber(year, seq)

	res, err := q.ExecContext(ctx, `
		INSERT INTO incapacities
		(number, year, seq, employee_id, absence_request_id, predecessor_id, is_prorroga,
		 start_date, end_date, issued_at, total_days,
		 diagnosis_code, diagnosis, leave_type, issuing_entity, paying_entity,
		 employer_days, insurer_days, payment_percent, daily_value, payable_amount,
		 transcribed, transcribed_at, filing_number,
		 collected, collected_at, collected_amount,
		 status, created_by, notes, archived, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inc.Number, year, seq, inc.EmployeeID, inc.AbsenceRequestID, inc.PredecessorID, inc.IsProrroga,
		inc.StartDate.Format(dateFormat), inc.EndDate.Format(dateFormat),
		inc.IssuedAt.UTC().Format(time.RFC3339), inc.TotalDays,
		inc.DiagnosisCode, inc.Diagnosis, string(inc.LeaveType), inc.IssuingEntity, inc.PayingEntity,
		inc.EmployerDays, inc.InsurerDays,
		inc.PaymentPercent.String(), inc.DailyValue.String(), inc.PayableAmount.String(),
		inc.Transcribed, nullTime(inc.TranscribedAt), inc.FilingNumber,
		inc.Collected, nullTime(inc.CollectedAt), inc.CollectedAmount.String(),
		string(inc.Status), inc.CreatedBy, inc.Notes, inc.Archived, inc.Version,
		inc.CreatedAt.UTC().Format(time.RFC3339), inc.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert incapacity: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	inc.ID = id
	return nil
}

// UpdateIncapacity writes a mutated record, conditional on the version
// the caller read.
func (s *Store) UpdateIncapacity(ctx context.Context, inc *incapacity.Incapacity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateIncapacity(ctx, s.db, inc)
}

func (s *Store) updateIncapacity(ctx context.Context, q querier, inc *incapacity.Incapacity) error {
	res, err := q.ExecContext(ctx, `
		UPDATE incapacities SET
			employee_id = ?, diagnosis_code = ?, diagnosis = ?,
			issuing_entity = ?, paying_entity = ?,
			transcribed = ?, transcribed_at = ?, filing_number = ?,
			collected = ?, collected_at = ?, collected_amount = ?,
			status = ?, notes = ?, archived = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		inc.EmployeeID, inc.DiagnosisCode, inc.Diagnosis,
		inc.IssuingEntity, inc.PayingEntity,
		inc.Transcribed, nullTime(inc.TranscribedAt), inc.FilingNumber,
		inc.Collected, nullTime(inc.CollectedAt), inc.CollectedAmount.String(),
		string(inc.Status), inc.Notes, inc.Archived,
		inc.UpdatedAt.UTC().Format(time.RFC3339),
		inc.ID, inc.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update incapacity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing row from a stale version.
		var exists int
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM incapacities WHERE id = ?", inc.ID,
		).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &incapacity.NotFoundError{Kind: "incapacity", ID: inc.ID}
		}
		return incapacity.ErrConcurrentModification
	}

	inc.Version++
	return nil
}

const incapacityColumns = `
	id, number, employee_id, absence_request_id, predecessor_id, is_prorroga,
	start_date, end_date, issued_at, total_days,
	diagnosis_code, diagnosis, leave_type, issuing_entity, paying_entity,
	employer_days, insurer_days, payment_percent, daily_value, payable_amount,
	transcribed, transcribed_at, filing_number,
	collected, collected_at, collected_amount,
	status, created_by, notes, archived, version, created_at, updated_at`

// GetIncapacity returns the record or (nil, nil) when absent.
func (s *Store) GetIncapacity(ctx context.Context, id int64) (*incapacity.Incapacity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getIncapacity(ctx, s.db, id)
}

func (s *Store) getIncapacity(ctx context.Context, q querier, id int64) (*incapacity.Incapacity, error) {
	row := q.QueryRowContext(ctx,
		"SELECT"+incapacityColumns+" FROM incapacities WHERE id = ?", id)

	inc, err := scanIncapacity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// Successor returns the record extending id, or (nil, nil).
func (s *Store) Successor(ctx context.Context, id int64) (*incapacity.Incapacity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.successor(ctx, s.db, id)
}

func (s *Store) successor(ctx context.Context, q querier, id int64) (*incapacity.Incapacity, error) {
	row := q.QueryRowContext(ctx,
		"SELECT"+incapacityColumns+" FROM incapacities WHERE predecessor_id = ?", id)

	inc, err := scanIncapacity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// ListIncapacities returns records matching the filter, newest first.
func (s *Store) ListIncapacities(ctx context.Context, f incapacity.Filter) ([]incapacity.Incapacity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listIncapacities(ctx, s.db, f)
}

func (s *Store) listIncapacities(ctx context.Context, q querier, f incapacity.Filter) ([]incapacity.Incapacity, error) {
	var conds []string
	var args []any

	if !f.IncludeArchived {
		conds = append(conds, "archived = FALSE")
	}
	if f.EmployeeID != "" {
		conds = append(conds, "employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.LeaveType != "" {
		conds = append(conds, "leave_type = ?")
		args = append(args, string(f.LeaveType))
	}
	if !f.From.IsZero() {
		conds = append(conds, "end_date >= ?")
		args = append(args, f.From.Format(dateFormat))
	}
	if !f.To.IsZero() {
		conds = append(conds, "start_date <= ?")
		args = append(args, f.To.Format(dateFormat))
	}
	if f.PendingTranscription {
		conds = append(conds, "transcribed = FALSE AND status = ?")
		args = append(args, string(incapacity.StatusActive))
	}
	if f.PendingCollection {
		conds = append(conds, "transcribed = TRUE AND collected = FALSE AND status != ?")
		args = append(args, string(incapacity.StatusCancelled))
	}

	query := "SELECT" + incapacityColumns + " FROM incapacities"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_date DESC, id DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incapacities: %w", err)
	}
	defer rows.Close()

	var out []incapacity.Incapacity
	for rows.Next() {
		inc, err := scanIncapacity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inc)
	}
	return out, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanIncapacity(row scanner) (*incapacity.Incapacity, error) {
	var (
		inc             incapacity.Incapacity
		absenceID       sql.NullInt64
		predecessorID   sql.NullInt64
		startDate       string
		endDate         string
		issuedAt        string
		diagnosisCode   sql.NullString
		diagnosis       sql.NullString
		leaveType       string
		issuingEntity   sql.NullString
		payingEntity    sql.NullString
		percent         string
		dailyValue      string
		payable         string
		transcribedAt   sql.NullString
		filingNumber    sql.NullString
		collectedAt     sql.NullString
		collectedAmount string
		status          string
		createdBy       sql.NullString
		notes           sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := row.Scan(
		&inc.ID, &inc.Number, &inc.EmployeeID, &absenceID, &predecessorID, &inc.IsProrroga,
		&startDate, &endDate, &issuedAt, &inc.TotalDays,
		&diagnosisCode, &diagnosis, &leaveType, &issuingEntity, &payingEntity,
		&inc.EmployerDays, &inc.InsurerDays, &percent, &dailyValue, &payable,
		&inc.Transcribed, &transcribedAt, &filingNumber,
		&inc.Collected, &collectedAt, &collectedAmount,
		&status, &createdBy, &notes, &inc.Archived, &inc.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if absenceID.Valid {
		inc.AbsenceRequestID = &absenceID.Int64
	}
	if predecessorID.Valid {
		inc.PredecessorID = &predecessorID.Int64
	}
	inc.StartDate, _ = time.Parse(dateFormat, startDate)
	inc.EndDate, _ = time.Parse(dateFormat, endDate)
	inc.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt)
	inc.DiagnosisCode = diagnosisCode.String
	inc.Diagnosis = diagnosis.String
	inc.LeaveType = incapacity.LeaveType(leaveType)
	inc.IssuingEntity = issuingEntity.String
	inc.PayingEntity = payingEntity.String
	inc.PaymentPercent = parseDecimal(percent)
	inc.DailyValue = parseDecimal(dailyValue)
	inc.PayableAmount = parseDecimal(payable)
	inc.TranscribedAt = parseTimePtr(transcribedAt)
	inc.FilingNumber = filingNumber.String
	inc.CollectedAt = parseTimePtr(collectedAt)
	inc.CollectedAmount = parseDecimal(collectedAmount)
	inc.Status = incapacity.Status(status)
	inc.CreatedBy = createdBy.String
	inc.Notes = notes.String
	inc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &inc, nil
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// AppendAudit adds one immutable entry. There is no update or delete.
func (s *Store) AppendAudit(ctx context.Context, e incapacity.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendAudit(ctx, s.db, e)
}

func (s *Store) appendAudit(ctx context.Context, q querier, e incapacity.AuditEntry) error {
	var payloadJSON sql.NullString
	if len(e.Payload) > 0 {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
		payloadJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_entries (id, incapacity_id, action, description, actor_id, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.IncapacityID, string(e.Action), e.Description, e.ActorID,
		payloadJSON, e.CreatedAt.UTC().Format(auditTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// AuditHistory returns entries newest-first.
func (s *Store) AuditHistory(ctx context.Context, incapacityID int64) ([]incapacity.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.auditHistory(ctx, s.db, incapacityID)
}

func (s *Store) auditHistory(ctx context.Context, q querier, incapacityID int64) ([]incapacity.AuditEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, incapacity_id, action, description, actor_id, payload_json, created_at
		FROM audit_entries
		WHERE incapacity_id = ?
		ORDER BY created_at DESC, id DESC
	`, incapacityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit history: %w", err)
	}
	defer rows.Close()

	var entries []incapacity.AuditEntry
	for rows.Next() {
		var (
			e           incapacity.AuditEntry
			action      string
			description sql.NullString
			actorID     sql.NullString
			payloadJSON sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&e.ID, &e.IncapacityID, &action, &description, &actorID, &payloadJSON, &createdAt); err != nil {
			return nil, err
		}
		e.Action = incapacity.ActionType(action)
		e.Description = description.String
		e.ActorID = actorID.String
		if payloadJSON.Valid && payloadJSON.String != "" {
			json.Unmarshal([]byte(payloadJSON.String), &e.Payload)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// ABSENCE REQUESTS (incapacity.AbsenceRequests interface)
// =============================================================================

// InsertAbsenceRequest seeds an absence/permit record. In production the
// table is fed by the permits subsystem; the engine only reads and
// back-links it.
func (s *Store) InsertAbsenceRequest(ctx context.Context, req *incapacity.AbsenceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO absence_requests (employee_id, start_date, end_date, reason, converted, incapacity_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		req.EmployeeID,
		req.StartDate.Format(dateFormat), req.EndDate.Format(dateFormat),
		req.Reason, req.Converted, req.IncapacityID,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert absence request: %w", err)
	}
	req.ID, err = res.LastInsertId()
	return err
}

// GetAbsenceRequest returns the request or (nil, nil).
func (s *Store) GetAbsenceRequest(ctx context.Context, id int64) (*incapacity.AbsenceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getAbsenceRequest(ctx, s.db, id)
}

func (s *Store) getAbsenceRequest(ctx context.Context, q querier, id int64) (*incapacity.AbsenceRequest, error) {
	var (
		req          incapacity.AbsenceRequest
		startDate    string
		endDate      string
		reason       sql.NullString
		incapacityID sql.NullInt64
	)

	err := q.QueryRowContext(ctx, `
		SELECT id, employee_id, start_date, end_date, reason, converted, incapacity_id
		FROM absence_requests WHERE id = ?
	`, id).Scan(&req.ID, &req.EmployeeID, &startDate, &endDate, &reason, &req.Converted, &incapacityID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	req.StartDate, _ = time.Parse(dateFormat, startDate)
	req.EndDate, _ = time.Parse(dateFormat, endDate)
	req.Reason = reason.String
	if incapacityID.Valid {
		req.IncapacityID = &incapacityID.Int64
	}
	return &req, nil
}

// MarkConvertedToIncapacity back-links the request to its incapacity.
// The conditional WHERE makes double conversion lose even across
// processes.
func (s *Store) MarkConvertedToIncapacity(ctx context.Context, requestID, incapacityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.markConverted(ctx, s.db, requestID, incapacityID)
}

func (s *Store) markConverted(ctx context.Context, q querier, requestID, incapacityID int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE absence_requests SET converted = TRUE, incapacity_id = ?
		WHERE id = ? AND converted = FALSE
	`, incapacityID, requestID)
	if err != nil {
		return fmt.Errorf("failed to mark absence request converted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return incapacity.ErrAlreadyConverted
	}
	return nil
}

// =============================================================================
// TRANSACTOR (incapacity.Transactor interface)
// =============================================================================

// WithTx executes fn within one database transaction. All operations
// through the passed view share it; any error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx incapacity.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txView{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txView routes the incapacity.Tx surface through one *sql.Tx.
type txView struct {
	tx     *sql.Tx
	parent *Store
}

func (v *txView) InsertIncapacity(ctx context.Context, inc *incapacity.Incapacity) error {
	return v.parent.insertIncapacity(ctx, v.tx, inc)
}

func (v *txView) UpdateIncapacity(ctx context.Context, inc *incapacity.Incapacity) error {
	return v.parent.updateIncapacity(ctx, v.tx, inc)
}

func (v *txView) GetIncapacity(ctx context.Context, id int64) (*incapacity.Incapacity, error) {
	return v.parent.getIncapacity(ctx, v.tx, id)
}

func (v *txView) ListIncapacities(ctx context.Context, f incapacity.Filter) ([]incapacity.Incapacity, error) {
	return v.parent.listIncapacities(ctx, v.tx, f)
}

func (v *txView) Successor(ctx context.Context, id int64) (*incapacity.Incapacity, error) {
	return v.parent.successor(ctx, v.tx, id)
}

func (v *txView) AppendAudit(ctx context.Context, e incapacity.AuditEntry) error {
	return v.parent.appendAudit(ctx, v.tx, e)
}

func (v *txView) AuditHistory(ctx context.Context, incapacityID int64) ([]incapacity.AuditEntry, error) {
	return v.parent.auditHistory(ctx, v.tx, incapacityID)
}

func (v *txView) GetAbsenceRequest(ctx context.Context, id int64) (*incapacity.AbsenceRequest, error) {
	return v.parent.getAbsenceRequest(ctx, v.tx, id)
}

func (v *txView) MarkConvertedToIncapacity(ctx context.Context, requestID, incapacityID int64) error {
	return v.parent.markConverted(ctx, v.tx, requestID, incapacityID)
}

// =============================================================================
// REPORT SOURCE (report.Source interface)
// =============================================================================

const reportColumns = `
	id, number, employee_id, status, leave_type, start_date, end_date,
	total_days, insurer_days, paying_entity,
	transcribed, collected, collected_at,
	payable_amount, collected_amount, updated_at`

// ReportRows returns one projection row per non-archived record.
func (s *Store) ReportRows(ctx context.Context) ([]report.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReportRows(ctx,
		"SELECT"+reportColumns+" FROM incapacities WHERE archived = FALSE")
}

// MonthRows returns non-archived, non-cancelled records with
// insurer-charged days whose episode starts in the given month.
func (s *Store) MonthRows(ctx context.Context, year int, month time.Month) ([]report.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	return s.queryReportRows(ctx,
		"SELECT"+reportColumns+` FROM incapacities
		WHERE archived = FALSE
		  AND status != ?
		  AND insurer_days > 0
		  AND start_date >= ? AND start_date < ?`,
		string(incapacity.StatusCancelled),
		first.Format(dateFormat), next.Format(dateFormat))
}

func (s *Store) queryReportRows(ctx context.Context, query string, args ...any) ([]report.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query report rows: %w", err)
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var (
			r               report.Row
			status          string
			leaveType       string
			startDate       string
			endDate         string
			payingEntity    sql.NullString
			collectedAt     sql.NullString
			payable         string
			collectedAmount string
			updatedAt       string
		)
		if err := rows.Scan(
			&r.ID, &r.Number, &r.EmployeeID, &status, &leaveType, &startDate, &endDate,
			&r.TotalDays, &r.InsurerDays, &payingEntity,
			&r.Transcribed, &r.Collected, &collectedAt,
			&payable, &collectedAmount, &updatedAt,
		); err != nil {
			return nil, err
		}
		r.Status = incapacity.Status(status)
		r.LeaveType = incapacity.LeaveType(leaveType)
		r.StartDate, _ = time.Parse(dateFormat, startDate)
		r.EndDate, _ = time.Parse(dateFormat, endDate)
		r.PayingEntity = payingEntity.String
		r.CollectedAt = parseTimePtr(collectedAt)
		r.PayableAmount = parseDecimal(payable)
		r.CollectedAmount = parseDecimal(collectedAmount)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
