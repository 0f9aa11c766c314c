package services

import (
	"context"
	"errors"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

var errPersistDown = errors.New("backend rejected the write")

type cancelCall struct {
	key    types.StateKey
	reason string
	note   string
}

// fakeGateway records persists and can be told to fail specific legs.
type fakeGateway struct {
	buckets map[types.BucketKey][]markerid.MarkerID
	states  map[types.StateKey]types.LifecycleState
	cancels []cancelCall

	replaceCalls int
	upsertCalls  int
	deleteCalls  int
	cancelCalls  int

	failReplaceAfter int // fail the n-th replace (1-based), 0 = never
	failUpsert       bool
	failDelete       bool
	failCancel       bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		buckets: make(map[types.BucketKey][]markerid.MarkerID),
		states:  make(map[types.StateKey]types.LifecycleState),
	}
}

func (g *fakeGateway) ReplaceDayBucket(_ context.Context, employeeID string, date string, markers []markerid.MarkerID) error {
	g.replaceCalls++
	if g.failReplaceAfter > 0 && g.replaceCalls >= g.failReplaceAfter {
		return errPersistDown
	}
	g.buckets[types.BucketKey{EmployeeID: employeeID, Date: date}] = append([]markerid.MarkerID(nil), markers...)
	return nil
}

func (g *fakeGateway) UpsertLifecycleState(_ context.Context, key types.StateKey, st types.LifecycleState) error {
	g.upsertCalls++
	if g.failUpsert {
		return errPersistDown
	}
	g.states[key] = st
	return nil
}

func (g *fakeGateway) DeleteLifecycleState(_ context.Context, key types.StateKey) error {
	g.deleteCalls++
	if g.failDelete {
		return errPersistDown
	}
	delete(g.states, key)
	return nil
}

func (g *fakeGateway) SubmitCancellation(_ context.Context, key types.StateKey, reason string, note string) error {
	g.cancelCalls++
	if g.failCancel {
		return errPersistDown
	}
	g.cancels = append(g.cancels, cancelCall{key: key, reason: reason, note: note})
	return nil
}

func encodeAll(markers []markerid.MarkerID) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		out = append(out, markerid.Encode(m))
	}
	return out
}

func sameIDs(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
