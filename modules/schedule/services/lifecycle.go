package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/ports"
	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/httperr"
)

// CancelStampPolicy decides when a cancellation refreshes its timestamp. The
// source system was inconsistent here, so the choice is explicit.
type CancelStampPolicy int

const (
	// CancelStampFirst stamps on the first cancellation of an occurrence;
	// editing the reason while already cancelled keeps the original stamp.
	// Re-cancelling after a clear stamps fresh.
	CancelStampFirst CancelStampPolicy = iota
	// CancelStampAlways refreshes the timestamp on every cancel write.
	CancelStampAlways
)

// StateLedger owns the lifecycle records, one per (employee, date, base
// marker). No record means active. All typed siblings of a client read and
// write the single base-keyed record. Like the assignment ledger, writes are
// optimistic: memory first, backend second, exact restore on failure.
type StateLedger struct {
	mu      sync.Mutex
	gateway ports.ScheduleGateway
	states  map[types.StateKey]types.LifecycleState
	policy  CancelStampPolicy
	now     func() time.Time
}

func NewStateLedger(gateway ports.ScheduleGateway) *StateLedger {
	return &StateLedger{
		gateway: gateway,
		states:  make(map[types.StateKey]types.LifecycleState),
		now:     time.Now,
	}
}

func (l *StateLedger) SetCancelStampPolicy(p CancelStampPolicy) { l.policy = p }

// Get returns the record for a key, if any.
func (l *StateLedger) Get(key types.StateKey) (types.LifecycleState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[key]
	return st, ok
}

// Hydrate loads records from the bulk read endpoint.
func (l *StateLedger) Hydrate(ctx context.Context, reader ports.ScheduleReader, employeeID string, fromDate string, toDate string) error {
	states, err := reader.ListLifecycleStates(ctx, employeeID, fromDate, toDate)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, st := range states {
		l.states[key] = st
	}
	return nil
}

// Complete marks the occurrence done.
func (l *StateLedger) Complete(ctx context.Context, key types.StateKey) error {
	return l.upsert(ctx, key, types.Completed())
}

// Cancel requires a non-empty reason and is rejected before any network call
// without one. The cancellation detail is a separate backend endpoint; the
// state upsert and the detail submit form one compound action, rolled back
// locally if either leg fails.
func (l *StateLedger) Cancel(ctx context.Context, key types.StateKey, reason string, note string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return httperr.NewValidation("cancellation reason is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stamp := l.now().UTC()
	if prev, ok := l.states[key]; ok && prev.Name == types.StateCancelled && l.policy == CancelStampFirst {
		stamp = prev.CancelledAt
	}

	st := types.Cancelled(reason, note, stamp)
	snap := capture(l.states, key)
	l.states[key] = st

	if err := l.gateway.UpsertLifecycleState(ctx, key, st); err != nil {
		snap.revert()
		return err
	}
	if err := l.gateway.SubmitCancellation(ctx, key, reason, note); err != nil {
		snap.revert()
		return err
	}
	return nil
}

// PostponeTBA annotates the occurrence in place; the marker stays on its
// origin date.
func (l *StateLedger) PostponeTBA(ctx context.Context, key types.StateKey) error {
	return l.upsert(ctx, key, types.PostponedTBA())
}

// MarkPostponedFrom records the destination-side state of a concrete
// postponement. The bucket move itself belongs to the coordinator.
func (l *StateLedger) MarkPostponedFrom(ctx context.Context, key types.StateKey, originDate string) error {
	if strings.TrimSpace(originDate) == "" {
		return httperr.NewValidation("origin date is required")
	}
	return l.upsert(ctx, key, types.PostponedFrom(originDate))
}

// Clear returns the occurrence to active: drops the record and issues the
// backend delete. The delete is issued even when no local record exists, so
// a clear after partial hydration still converges.
func (l *StateLedger) Clear(ctx context.Context, key types.StateKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clearLocked(ctx, key)
}

// dropIfPresent is the cascade hook for the assignment ledger: invoked when
// the last sibling of a base leaves its bucket. No-op without a record.
func (l *StateLedger) dropIfPresent(ctx context.Context, key types.StateKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.states[key]; !ok {
		return nil
	}
	return l.clearLocked(ctx, key)
}

func (l *StateLedger) clearLocked(ctx context.Context, key types.StateKey) error {
	snap := capture(l.states, key)
	delete(l.states, key)
	if err := l.gateway.DeleteLifecycleState(ctx, key); err != nil {
		snap.revert()
		return err
	}
	return nil
}

func (l *StateLedger) upsert(ctx context.Context, key types.StateKey, st types.LifecycleState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := capture(l.states, key)
	l.states[key] = st
	if err := l.gateway.UpsertLifecycleState(ctx, key, st); err != nil {
		snap.revert()
		return err
	}
	return nil
}
