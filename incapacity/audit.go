/*
audit.go - Append-only audit trail (seguimiento) recorder

Every state-changing operation writes exactly one entry here. Entries
are immutable: corrections are additional Observation entries, never
edits. The trail survives soft deletion of the incapacity.
*/
package incapacity

import (
	"context"

	"github.com/google/uuid"
)

// Recorder appends and reads audit entries.
type Recorder struct {
	Store Store
	Users UserDirectory // optional; history falls back to raw actor ids
	Clock Clock
}

func NewRecorder(store Store, users UserDirectory, clock Clock) *Recorder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Recorder{Store: store, Users: users, Clock: clock}
}

// RecordAction appends one immutable entry, timestamped from the
// recorder's clock.
func (r *Recorder) RecordAction(ctx context.Context, incapacityID int64, action ActionType, description, actorID string, payload map[string]string) error {
	return r.record(ctx, r.Store, incapacityID, action, description, actorID, payload)
}

// RecordActionTx is RecordAction against a transactional store view,
// for entries that must commit with the primary mutation.
func (r *Recorder) RecordActionTx(ctx context.Context, tx Store, incapacityID int64, action ActionType, description, actorID string, payload map[string]string) error {
	return r.record(ctx, tx, incapacityID, action, description, actorID, payload)
}

func (r *Recorder) record(ctx context.Context, store Store, incapacityID int64, action ActionType, description, actorID string, payload map[string]string) error {
	entry := AuditEntry{
		ID:           uuid.NewString(),
		IncapacityID: incapacityID,
		Action:       action,
		Description:  description,
		ActorID:      actorID,
		Payload:      payload,
		CreatedAt:    r.Clock.Now(),
	}
	return store.AppendAudit(ctx, entry)
}

// History returns the trail newest-first, each entry decorated with the
// acting user's display name when the directory knows it.
func (r *Recorder) History(ctx context.Context, incapacityID int64) ([]HistoryEntry, error) {
	entries, err := r.Store.AuditHistory(ctx, incapacityID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	history := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		name, ok := names[e.ActorID]
		if !ok {
			name = r.resolveName(ctx, e.ActorID)
			names[e.ActorID] = name
		}
		history = append(history, HistoryEntry{AuditEntry: e, ActorName: name})
	}
	return history, nil
}

func (r *Recorder) resolveName(ctx context.Context, actorID string) string {
	if r.Users == nil || actorID == "" {
		return actorID
	}
	name, err := r.Users.DisplayName(ctx, actorID)
	if err != nil || name == "" {
		return actorID
	}
	return name
}
