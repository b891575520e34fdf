package incapacity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andara-hcm/incapacity-engine/incapacity"
	"github.com/andara-hcm/incapacity-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*incapacity.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := incapacity.NewService(store, store, store, nil)
	return svc, store
}

func testDraft(employeeID string, start, end time.Time) incapacity.Draft {
	return incapacity.Draft{
		EmployeeID:    employeeID,
		StartDate:     start,
		EndDate:       end,
		IssuedAt:      end.Add(12 * time.Hour),
		DiagnosisCode: "J06.9",
		Diagnosis:     "Acute upper respiratory infection",
		LeaveType:     incapacity.LeaveGeneralIllness,
		IssuingEntity: "EPS Sura",
		DailyValue:    decimal.NewFromInt(80000),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// FULL LIFECYCLE
// =============================================================================

func TestLifecycle_RegisterTranscribeCollectFinalize(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-77", date(2024, 3, 1), date(2024, 3, 10)))
	require.NoError(t, err)

	// Registration outcome
	assert.Equal(t, "INC-2024-0001", inc.Number)
	assert.Equal(t, incapacity.StatusActive, inc.Status)
	assert.Equal(t, 10, inc.TotalDays)
	assert.Equal(t, 2, inc.EmployerDays)
	assert.Equal(t, 8, inc.InsurerDays)
	assert.Equal(t, "EPS Sura", inc.PayingEntity, "paying entity defaults to issuer")

	expectedPayable := decimal.NewFromInt(8).
		Mul(decimal.NewFromInt(80000)).
		Mul(incapacity.DefaultPaymentPercent)
	assert.True(t, expectedPayable.Equal(inc.PayableAmount),
		"payable: want %s got %s", expectedPayable, inc.PayableAmount)

	// Transcription
	inc, err = svc.RegisterTranscription(ctx, inc.ID, "EPS-0042", date(2024, 3, 12), "scan-001.pdf", "user-ana")
	require.NoError(t, err)
	assert.Equal(t, incapacity.StatusTranscribed, inc.Status)
	assert.True(t, inc.Transcribed)
	assert.Equal(t, "EPS-0042", inc.FilingNumber)
	require.NotNil(t, inc.TranscribedAt)

	// Collection
	collected := decimal.NewFromInt(480000)
	inc, err = svc.RegisterCollection(ctx, inc.ID, collected, date(2024, 4, 2), "user-ana")
	require.NoError(t, err)
	assert.Equal(t, incapacity.StatusCollected, inc.Status)
	assert.True(t, inc.Collected)
	assert.True(t, collected.Equal(inc.CollectedAmount))

	// Finalization
	inc, err = svc.Finalize(ctx, inc.ID, "user-ana", "reconciled against payroll")
	require.NoError(t, err)
	assert.Equal(t, incapacity.StatusFinalized, inc.Status)
	assert.Contains(t, inc.Notes, "reconciled against payroll")

	// One audit entry per mutation
	history, err := svc.Audit.History(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	actions := make(map[incapacity.ActionType]int)
	for _, h := range history {
		actions[h.Action]++
	}
	assert.Equal(t, 1, actions[incapacity.ActionRegistration])
	assert.Equal(t, 1, actions[incapacity.ActionTranscription])
	assert.Equal(t, 1, actions[incapacity.ActionCollection])
	assert.Equal(t, 1, actions[incapacity.ActionFinalization])
}

// =============================================================================
// STATE MACHINE GUARDS
// =============================================================================

func TestTransitions_RejectedFromWrongState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-1", date(2024, 5, 1), date(2024, 5, 6)))
	require.NoError(t, err)

	// Collection requires a prior transcription.
	_, err = svc.RegisterCollection(ctx, inc.ID, decimal.NewFromInt(1000), date(2024, 5, 10), "u")
	assert.ErrorIs(t, err, incapacity.ErrInvalidState)

	_, err = svc.Finalize(ctx, inc.ID, "u", "")
	require.NoError(t, err)

	// Terminal state rejects everything.
	_, err = svc.Finalize(ctx, inc.ID, "u", "")
	assert.ErrorIs(t, err, incapacity.ErrInvalidState)
	_, err = svc.RegisterTranscription(ctx, inc.ID, "F-1", date(2024, 5, 10), "", "u")
	assert.ErrorIs(t, err, incapacity.ErrInvalidState)
	_, err = svc.Cancel(ctx, inc.ID, "u", "late cancellation")
	assert.ErrorIs(t, err, incapacity.ErrInvalidState)
}

func TestTransitions_DoubleTranscriptionRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-1", date(2024, 5, 1), date(2024, 5, 6)))
	require.NoError(t, err)

	_, err = svc.RegisterTranscription(ctx, inc.ID, "F-1", date(2024, 5, 7), "", "u")
	require.NoError(t, err)

	_, err = svc.RegisterTranscription(ctx, inc.ID, "F-2", date(2024, 5, 8), "", "u")
	assert.ErrorIs(t, err, incapacity.ErrInvalidState)

	// The first filing survives.
	current, err := svc.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, "F-1", current.FilingNumber)
}

func TestCancel_RequiresReasonAndMarksNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-9", date(2024, 7, 1), date(2024, 7, 3)))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, inc.ID, "user-luz", "")
	assert.ErrorIs(t, err, incapacity.ErrValidation)

	inc, err = svc.Cancel(ctx, inc.ID, "user-luz", "error de digitación")
	require.NoError(t, err)
	assert.Equal(t, incapacity.StatusCancelled, inc.Status)
	assert.Contains(t, inc.Notes, incapacity.CancellationMarker)
	assert.Contains(t, inc.Notes, "error de digitación")
}

func TestCancel_AllowedFromTranscribed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-9", date(2024, 7, 1), date(2024, 7, 9)))
	require.NoError(t, err)
	_, err = svc.RegisterTranscription(ctx, inc.ID, "F-77", date(2024, 7, 10), "", "u")
	require.NoError(t, err)

	inc, err = svc.Cancel(ctx, inc.ID, "u", "duplicate of INC-2024-0001")
	require.NoError(t, err)
	assert.Equal(t, incapacity.StatusCancelled, inc.Status)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCreate_ValidationErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := testDraft("emp-1", date(2024, 1, 10), date(2024, 1, 15))

	tests := []struct {
		name   string
		mutate func(*incapacity.Draft)
	}{
		{"missing employee", func(d *incapacity.Draft) { d.EmployeeID = "" }},
		{"end before start", func(d *incapacity.Draft) { d.EndDate = date(2024, 1, 5) }},
		{"unknown leave type", func(d *incapacity.Draft) { d.LeaveType = "vacation" }},
		{"negative daily value", func(d *incapacity.Draft) { d.DailyValue = decimal.NewFromInt(-1) }},
		{"percent above one", func(d *incapacity.Draft) { d.PaymentPercent = decimal.NewFromInt(2) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := base
			tt.mutate(&draft)
			_, err := svc.CreateStandalone(ctx, draft)
			assert.ErrorIs(t, err, incapacity.ErrValidation)
		})
	}
}

func TestCreate_SingleDayEpisode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-2", date(2024, 2, 14), date(2024, 2, 14)))
	require.NoError(t, err)
	assert.Equal(t, 1, inc.TotalDays)
	assert.Equal(t, 1, inc.EmployerDays)
	assert.Equal(t, 0, inc.InsurerDays)
	assert.True(t, inc.PayableAmount.IsZero())
}

// =============================================================================
// NUMBERING
// =============================================================================

func TestNumbering_GaplessWithinYearAndResetAcrossYears(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, want := range []string{"INC-2024-0001", "INC-2024-0002", "INC-2024-0003"} {
		draft := testDraft("emp-n", date(2024, 6, 1+10*i), date(2024, 6, 3+10*i))
		draft.IssuedAt = date(2024, 6, 4+10*i)
		inc, err := svc.CreateStandalone(ctx, draft)
		require.NoError(t, err)
		assert.Equal(t, want, inc.Number)
	}

	// A cancellation burns no number: the sequence keeps counting.
	list, err := svc.List(ctx, incapacity.Filter{EmployeeID: "emp-n"})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, list[0].ID, "u", "registered twice")
	require.NoError(t, err)

	draft := testDraft("emp-n", date(2024, 7, 1), date(2024, 7, 2))
	draft.IssuedAt = date(2024, 7, 3)
	inc, err := svc.CreateStandalone(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "INC-2024-0004", inc.Number)

	// Year boundary resets the sequence.
	draft = testDraft("emp-n", date(2025, 1, 2), date(2025, 1, 4))
	draft.IssuedAt = date(2025, 1, 5)
	inc, err = svc.CreateStandalone(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "INC-2025-0001", inc.Number)
}

// =============================================================================
// PRÓRROGA CHAINS
// =============================================================================

func TestProrroga_InheritsAndChargesInsurer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	origin, err := svc.CreateStandalone(ctx, testDraft("emp-5", date(2024, 3, 1), date(2024, 3, 10)))
	require.NoError(t, err)

	ext := incapacity.Draft{
		StartDate:  date(2024, 3, 11),
		EndDate:    date(2024, 3, 15),
		IssuedAt:   date(2024, 3, 15),
		LeaveType:  incapacity.LeaveMaternity, // ignored: copied from predecessor
	}
	prorroga, err := svc.CreateProrroga(ctx, origin.ID, ext, "user-ana")
	require.NoError(t, err)

	assert.True(t, prorroga.IsProrroga)
	require.NotNil(t, prorroga.PredecessorID)
	assert.Equal(t, origin.ID, *prorroga.PredecessorID)
	assert.Equal(t, "emp-5", prorroga.EmployeeID)
	assert.Equal(t, origin.LeaveType, prorroga.LeaveType)
	assert.Equal(t, origin.PayingEntity, prorroga.PayingEntity)
	assert.True(t, origin.DailyValue.Equal(prorroga.DailyValue))

	// Ten accumulated days exhausted the grace period long ago.
	assert.Equal(t, 0, prorroga.EmployerDays)
	assert.Equal(t, 5, prorroga.InsurerDays)

	// Both records got audit entries.
	originHistory, err := svc.Audit.History(ctx, origin.ID)
	require.NoError(t, err)
	var sawProrroga bool
	for _, h := range originHistory {
		if h.Action == incapacity.ActionProrroga {
			sawProrroga = true
		}
	}
	assert.True(t, sawProrroga, "predecessor history should record the extension")
}

func TestProrroga_PredecessorAlreadyExtended(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	origin, err := svc.CreateStandalone(ctx, testDraft("emp-5", date(2024, 3, 1), date(2024, 3, 5)))
	require.NoError(t, err)

	first := incapacity.Draft{StartDate: date(2024, 3, 6), EndDate: date(2024, 3, 8), IssuedAt: date(2024, 3, 8)}
	_, err = svc.CreateProrroga(ctx, origin.ID, first, "u")
	require.NoError(t, err)

	second := incapacity.Draft{StartDate: date(2024, 3, 9), EndDate: date(2024, 3, 11), IssuedAt: date(2024, 3, 11)}
	_, err = svc.CreateProrroga(ctx, origin.ID, second, "u")
	assert.ErrorIs(t, err, incapacity.ErrValidation)
}

func TestProrroga_ChainOfThreeAccumulates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	origin, err := svc.CreateStandalone(ctx, testDraft("emp-5", date(2024, 3, 1), date(2024, 3, 10)))
	require.NoError(t, err)

	ext1 := incapacity.Draft{StartDate: date(2024, 3, 11), EndDate: date(2024, 3, 15), IssuedAt: date(2024, 3, 15)}
	p1, err := svc.CreateProrroga(ctx, origin.ID, ext1, "u")
	require.NoError(t, err)

	ext2 := incapacity.Draft{StartDate: date(2024, 3, 16), EndDate: date(2024, 3, 22), IssuedAt: date(2024, 3, 22)}
	p2, err := svc.CreateProrroga(ctx, p1.ID, ext2, "u")
	require.NoError(t, err)

	// Origin resolution walks back through both links.
	detail, err := svc.GetDetail(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 10+5+7, detail.AccumulatedDays)
	require.NotNil(t, detail.Predecessor)
	assert.Equal(t, p1.ID, detail.Predecessor.ID)

	// Detail of the origin lists both extensions, oldest first.
	originDetail, err := svc.GetDetail(ctx, origin.ID)
	require.NoError(t, err)
	require.Len(t, originDetail.Extensions, 2)
	assert.Equal(t, p1.ID, originDetail.Extensions[0].ID)
	assert.Equal(t, p2.ID, originDetail.Extensions[1].ID)
	assert.Equal(t, 22, originDetail.AccumulatedDays)
}

func TestProrroga_UnknownPredecessor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	draft := incapacity.Draft{StartDate: date(2024, 3, 1), EndDate: date(2024, 3, 5), IssuedAt: date(2024, 3, 5)}
	_, err := svc.CreateProrroga(ctx, 9999, draft, "u")
	assert.ErrorIs(t, err, incapacity.ErrNotFound)
}

// =============================================================================
// ABSENCE REQUEST CONVERSION
// =============================================================================

func TestConversion_AtomicAndOneShot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	req := &incapacity.AbsenceRequest{
		EmployeeID: "emp-3",
		StartDate:  date(2024, 4, 1),
		EndDate:    date(2024, 4, 4),
		Reason:     "medical appointment turned leave",
	}
	require.NoError(t, store.InsertAbsenceRequest(ctx, req))

	draft := incapacity.Draft{
		LeaveType:  incapacity.LeaveGeneralIllness,
		DailyValue: decimal.NewFromInt(60000),
		IssuedAt:   date(2024, 4, 5),
	}
	inc, err := svc.CreateFromAbsenceRequest(ctx, req.ID, draft, "user-ana")
	require.NoError(t, err)

	// Employee and dates came from the request.
	assert.Equal(t, "emp-3", inc.EmployeeID)
	assert.Equal(t, 4, inc.TotalDays)
	require.NotNil(t, inc.AbsenceRequestID)
	assert.Equal(t, req.ID, *inc.AbsenceRequestID)

	// The request is back-linked.
	stored, err := store.GetAbsenceRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.Converted)
	require.NotNil(t, stored.IncapacityID)
	assert.Equal(t, inc.ID, *stored.IncapacityID)

	// The conversion trail committed with the conversion.
	history, err := svc.Audit.History(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	actions := map[incapacity.ActionType]bool{}
	for _, h := range history {
		actions[h.Action] = true
	}
	assert.True(t, actions[incapacity.ActionRegistration])
	assert.True(t, actions[incapacity.ActionConvertedFromPermit])

	// Second conversion is rejected.
	_, err = svc.CreateFromAbsenceRequest(ctx, req.ID, draft, "user-ana")
	assert.ErrorIs(t, err, incapacity.ErrAlreadyConverted)
}

func TestConversion_RollsBackOnInvalidDraft(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	req := &incapacity.AbsenceRequest{
		EmployeeID: "emp-3",
		StartDate:  date(2024, 4, 1),
		EndDate:    date(2024, 4, 4),
	}
	require.NoError(t, store.InsertAbsenceRequest(ctx, req))

	bad := incapacity.Draft{LeaveType: "not-a-type", DailyValue: decimal.NewFromInt(60000)}
	_, err := svc.CreateFromAbsenceRequest(ctx, req.ID, bad, "u")
	require.Error(t, err)

	// Nothing committed: request untouched, no incapacity rows.
	stored, err := store.GetAbsenceRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, stored.Converted)

	list, err := svc.List(ctx, incapacity.Filter{EmployeeID: "emp-3"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversion_UnknownRequest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	draft := incapacity.Draft{LeaveType: incapacity.LeaveGeneralIllness, DailyValue: decimal.NewFromInt(1)}
	_, err := svc.CreateFromAbsenceRequest(ctx, 404, draft, "u")
	assert.ErrorIs(t, err, incapacity.ErrNotFound)
}

// =============================================================================
// OBSERVATIONS, DOCUMENTS, ARCHIVE
// =============================================================================

func TestObservations_WorkOnTerminalRecords(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-8", date(2024, 8, 1), date(2024, 8, 2)))
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, inc.ID, "u", "")
	require.NoError(t, err)

	require.NoError(t, svc.AddObservation(ctx, inc.ID, "insurer confirmed closure by phone", "user-luz"))
	require.NoError(t, svc.AttachDocument(ctx, inc.ID, "closure-letter.pdf", "user-luz"))

	history, err := svc.Audit.History(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, history, 4) // registration, finalization, observation, document

	err = svc.AddObservation(ctx, inc.ID, "", "user-luz")
	assert.ErrorIs(t, err, incapacity.ErrValidation)
}

func TestArchive_HidesFromListingsButKeepsRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-8", date(2024, 8, 1), date(2024, 8, 2)))
	require.NoError(t, err)
	require.NoError(t, svc.Archive(ctx, inc.ID, "u"))

	list, err := svc.List(ctx, incapacity.Filter{EmployeeID: "emp-8"})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.List(ctx, incapacity.Filter{EmployeeID: "emp-8", IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Direct access and history still work.
	got, err := svc.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)

	// Archiving twice is a no-op.
	require.NoError(t, svc.Archive(ctx, inc.ID, "u"))
}

// =============================================================================
// AUDIT FAULT TOLERANCE
// =============================================================================

// failingAuditStore rejects every audit append while delegating all
// other storage calls to the real store.
type failingAuditStore struct {
	incapacity.Store
}

func (failingAuditStore) AppendAudit(context.Context, incapacity.AuditEntry) error {
	return errors.New("audit storage offline")
}

func TestAudit_WriteFailureDoesNotUndoTransition(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	inc, err := svc.CreateStandalone(ctx, testDraft("emp-9", date(2024, 9, 2), date(2024, 9, 6)))
	require.NoError(t, err)

	log, hook := logtest.NewNullLogger()
	svc.Log = log
	svc.Audit = incapacity.NewRecorder(failingAuditStore{Store: store}, nil, nil)

	inc, err = svc.RegisterTranscription(ctx, inc.ID, "EPS-0099", date(2024, 9, 8), "", "user-ana")
	require.NoError(t, err, "a failed audit write must not fail the operation")
	assert.Equal(t, incapacity.StatusTranscribed, inc.Status)

	// The mutation is committed despite the audit failure.
	stored, err := store.GetIncapacity(ctx, inc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, incapacity.StatusTranscribed, stored.Status)
	assert.Equal(t, "EPS-0099", stored.FilingNumber)

	// Only the registration entry made it to the trail.
	history, err := store.AuditHistory(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, incapacity.ActionRegistration, history[0].Action)

	require.NotEmpty(t, hook.Entries)
	warn := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, warn.Level)
	assert.Equal(t, inc.ID, warn.Data["incapacity_id"])
}

// =============================================================================
// LISTING FILTERS
// =============================================================================

func TestList_PendingFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateStandalone(ctx, testDraft("emp-a", date(2024, 9, 1), date(2024, 9, 5)))
	require.NoError(t, err)
	b, err := svc.CreateStandalone(ctx, testDraft("emp-b", date(2024, 9, 3), date(2024, 9, 9)))
	require.NoError(t, err)

	_, err = svc.RegisterTranscription(ctx, b.ID, "F-9", date(2024, 9, 10), "", "u")
	require.NoError(t, err)

	pendingT, err := svc.List(ctx, incapacity.Filter{PendingTranscription: true})
	require.NoError(t, err)
	require.Len(t, pendingT, 1)
	assert.Equal(t, a.ID, pendingT[0].ID)

	pendingC, err := svc.List(ctx, incapacity.Filter{PendingCollection: true})
	require.NoError(t, err)
	require.Len(t, pendingC, 1)
	assert.Equal(t, b.ID, pendingC[0].ID)

	byStatus, err := svc.List(ctx, incapacity.Filter{Status: incapacity.StatusTranscribed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, b.ID, byStatus[0].ID)
}

func TestList_DateRangeOverlap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateStandalone(ctx, testDraft("emp-a", date(2024, 1, 1), date(2024, 1, 10)))
	require.NoError(t, err)
	_, err = svc.CreateStandalone(ctx, testDraft("emp-a", date(2024, 2, 1), date(2024, 2, 5)))
	require.NoError(t, err)

	// A window overlapping only the January span.
	list, err := svc.List(ctx, incapacity.Filter{From: date(2024, 1, 5), To: date(2024, 1, 20)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, date(2024, 1, 1), list[0].StartDate)
}
