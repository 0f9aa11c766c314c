package services

import (
	"context"
	"sync"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/ports"
	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/httperr"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

// AssignmentLedger owns the per (employee, date) marker buckets. Mutations
// apply to memory first, then persist through the gateway as a full-bucket
// replace per touched date; a rejected persist restores every touched bucket
// to its exact pre-call contents before the error is returned.
//
// Mutations serialize on the ledger's own lock. A compound operation spanning
// several calls (postponement) is still not atomic; see PostponeCoordinator.
type AssignmentLedger struct {
	mu      sync.Mutex
	gateway ports.ScheduleGateway
	buckets map[types.BucketKey][]markerid.MarkerID
	states  *StateLedger
}

func NewAssignmentLedger(gateway ports.ScheduleGateway) *AssignmentLedger {
	return &AssignmentLedger{
		gateway: gateway,
		buckets: make(map[types.BucketKey][]markerid.MarkerID),
	}
}

// AttachStates wires the lifecycle ledger so removals can drop the base
// record once the last sibling of a base leaves a bucket.
func (l *AssignmentLedger) AttachStates(s *StateLedger) { l.states = s }

// Bucket returns a copy of the bucket contents in display order.
func (l *AssignmentLedger) Bucket(employeeID string, date string) []markerid.MarkerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]markerid.MarkerID(nil), l.buckets[types.BucketKey{EmployeeID: employeeID, Date: date}]...)
}

// Siblings returns every bucket entry sharing the given marker's base, in
// bucket order.
func (l *AssignmentLedger) Siblings(employeeID string, date string, m markerid.MarkerID) []markerid.MarkerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []markerid.MarkerID
	for _, e := range l.buckets[types.BucketKey{EmployeeID: employeeID, Date: date}] {
		if markerid.SameBase(e, m) {
			out = append(out, e)
		}
	}
	return out
}

// Hydrate loads bucket contents from the backend without persisting anything.
func (l *AssignmentLedger) Hydrate(ctx context.Context, reader ports.ScheduleReader, employeeID string, fromDate string, toDate string) error {
	days, err := reader.ListDayBuckets(ctx, employeeID, fromDate, toDate)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for date, markers := range days {
		l.buckets[types.BucketKey{EmployeeID: employeeID, Date: date}] = append([]markerid.MarkerID(nil), markers...)
	}
	return nil
}

// Toggle flips one marker in a bucket.
//
//   - A with-employee marker replaces any existing pairing of the same base
//     status (or the unpaired status itself) at the position it occupied;
//     toggling the identical pairing removes it.
//   - A typed client replaces its bare client when adding; removing the last
//     typed sibling substitutes the bare client back in place.
//   - A bare client removes every representation of that client, or adds the
//     bare form.
//   - A plain status is a presence flip.
//
// After any Toggle a client is represented bare XOR typed, never both.
func (l *AssignmentLedger) Toggle(ctx context.Context, employeeID string, date string, m markerid.MarkerID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := types.BucketKey{EmployeeID: employeeID, Date: date}
	bucket := l.buckets[key]

	var next []markerid.MarkerID
	switch m.Kind {
	case markerid.KindWithEmployee:
		next = toggleWithEmployee(bucket, m)
	case markerid.KindTypedClient:
		next = toggleTypedClient(bucket, m)
	case markerid.KindClient:
		next = toggleBareClient(bucket, m)
	default:
		next = togglePresence(bucket, m)
	}

	return l.persistBuckets(ctx, []bucketWrite{{key: key, next: next}})
}

// Remove deletes markers from a bucket. A client target (bare or typed)
// removes the bare entry and every typed variant of that client in one call.
func (l *AssignmentLedger) Remove(ctx context.Context, employeeID string, date string, markers []markerid.MarkerID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := types.BucketKey{EmployeeID: employeeID, Date: date}
	next := append([]markerid.MarkerID(nil), l.buckets[key]...)
	for _, m := range markers {
		if m.Kind == markerid.KindClient || m.Kind == markerid.KindTypedClient {
			next = withoutClient(next, m.ClientID)
			continue
		}
		next = without(next, m)
	}

	return l.persistBuckets(ctx, []bucketWrite{{key: key, next: next}})
}

// MoveRange removes the given markers from the source date and appends them,
// skipping duplicates, to the destination date. Both buckets are restored on
// a failed persist; a source replace already accepted by the backend is not
// compensated (no cross-date transaction exists).
func (l *AssignmentLedger) MoveRange(ctx context.Context, employeeID string, fromDate string, toDate string, markers []markerid.MarkerID) error {
	if fromDate == toDate {
		return httperr.NewValidation("source and destination date are the same")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromKey := types.BucketKey{EmployeeID: employeeID, Date: fromDate}
	toKey := types.BucketKey{EmployeeID: employeeID, Date: toDate}

	nextFrom := append([]markerid.MarkerID(nil), l.buckets[fromKey]...)
	nextTo := append([]markerid.MarkerID(nil), l.buckets[toKey]...)
	for _, m := range markers {
		nextFrom = without(nextFrom, m)
		if !contains(nextTo, m) {
			nextTo = append(nextTo, m)
		}
	}

	return l.persistBuckets(ctx, []bucketWrite{{key: fromKey, next: nextFrom}, {key: toKey, next: nextTo}})
}

type bucketWrite struct {
	key  types.BucketKey
	next []markerid.MarkerID
}

// persistBuckets applies the new bucket values locally, then replaces each
// touched day at the backend in the order given. Caller holds the lock.
func (l *AssignmentLedger) persistBuckets(ctx context.Context, writes []bucketWrite) error {
	keys := make([]types.BucketKey, 0, len(writes))
	for _, w := range writes {
		keys = append(keys, w.key)
	}
	snap := capture(l.buckets, keys...)

	var removedBases []types.StateKey
	for _, w := range writes {
		for _, base := range basesGone(l.buckets[w.key], w.next) {
			removedBases = append(removedBases, types.StateKey{EmployeeID: w.key.EmployeeID, Date: w.key.Date, BaseID: base})
		}
		l.buckets[w.key] = w.next
	}

	for _, w := range writes {
		if err := l.gateway.ReplaceDayBucket(ctx, w.key.EmployeeID, w.key.Date, w.next); err != nil {
			snap.revert()
			return err
		}
	}

	if l.states != nil {
		for _, key := range removedBases {
			if err := l.states.dropIfPresent(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// basesGone lists base ids present in old and absent from new.
func basesGone(old []markerid.MarkerID, next []markerid.MarkerID) []string {
	present := make(map[string]struct{}, len(next))
	for _, m := range next {
		present[markerid.Encode(m.Base())] = struct{}{}
	}
	var gone []string
	seen := make(map[string]struct{})
	for _, m := range old {
		base := markerid.Encode(m.Base())
		if _, ok := present[base]; ok {
			continue
		}
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		gone = append(gone, base)
	}
	return gone
}

func toggleWithEmployee(bucket []markerid.MarkerID, m markerid.MarkerID) []markerid.MarkerID {
	for i, e := range bucket {
		if e == m {
			return append(append([]markerid.MarkerID(nil), bucket[:i]...), bucket[i+1:]...)
		}
		samePairing := e.Kind == markerid.KindWithEmployee && e.StatusID == m.StatusID
		unpairedBase := e.Kind == markerid.KindStatus && e.StatusID == m.StatusID
		if samePairing || unpairedBase {
			next := append([]markerid.MarkerID(nil), bucket...)
			next[i] = m
			return next
		}
	}
	return append(append([]markerid.MarkerID(nil), bucket...), m)
}

func toggleTypedClient(bucket []markerid.MarkerID, m markerid.MarkerID) []markerid.MarkerID {
	if contains(bucket, m) {
		next := make([]markerid.MarkerID, 0, len(bucket))
		siblingLeft := false
		removedAt := -1
		for _, e := range bucket {
			if e == m {
				removedAt = len(next)
				continue
			}
			if e.Kind == markerid.KindTypedClient && e.ClientID == m.ClientID {
				siblingLeft = true
			}
			next = append(next, e)
		}
		if !siblingLeft {
			bare := markerid.Client(m.ClientID)
			next = append(next, markerid.MarkerID{})
			copy(next[removedAt+1:], next[removedAt:])
			next[removedAt] = bare
		}
		return next
	}

	// Adding: the bare client gives way, in place when it exists.
	for i, e := range bucket {
		if e.Kind == markerid.KindClient && e.ClientID == m.ClientID {
			next := append([]markerid.MarkerID(nil), bucket...)
			next[i] = m
			return next
		}
	}
	return append(append([]markerid.MarkerID(nil), bucket...), m)
}

func toggleBareClient(bucket []markerid.MarkerID, m markerid.MarkerID) []markerid.MarkerID {
	had := false
	for _, e := range bucket {
		if (e.Kind == markerid.KindClient || e.Kind == markerid.KindTypedClient) && e.ClientID == m.ClientID {
			had = true
			break
		}
	}
	if had {
		return withoutClient(bucket, m.ClientID)
	}
	return append(append([]markerid.MarkerID(nil), bucket...), m)
}

func togglePresence(bucket []markerid.MarkerID, m markerid.MarkerID) []markerid.MarkerID {
	if contains(bucket, m) {
		return without(bucket, m)
	}
	return append(append([]markerid.MarkerID(nil), bucket...), m)
}

func contains(bucket []markerid.MarkerID, m markerid.MarkerID) bool {
	for _, e := range bucket {
		if e == m {
			return true
		}
	}
	return false
}

func without(bucket []markerid.MarkerID, m markerid.MarkerID) []markerid.MarkerID {
	next := make([]markerid.MarkerID, 0, len(bucket))
	for _, e := range bucket {
		if e == m {
			continue
		}
		next = append(next, e)
	}
	return next
}

func withoutClient(bucket []markerid.MarkerID, clientID string) []markerid.MarkerID {
	next := make([]markerid.MarkerID, 0, len(bucket))
	for _, e := range bucket {
		if (e.Kind == markerid.KindClient || e.Kind == markerid.KindTypedClient) && e.ClientID == clientID {
			continue
		}
		next = append(next, e)
	}
	return next
}
