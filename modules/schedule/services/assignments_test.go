package services

import (
	"context"
	"testing"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

const (
	emp  = "emp-1"
	day  = "2025-01-10"
	day2 = "2025-01-15"
)

func TestToggleSelfInverse(t *testing.T) {
	cases := []struct {
		name string
		seed []markerid.MarkerID
		m    markerid.MarkerID
	}{
		{name: "status", m: markerid.Status("status-12")},
		{name: "bare client", m: markerid.Client("5")},
		// A typed toggle round-trips only over its bare client: removing the
		// last typed sibling substitutes the bare form, not an empty bucket.
		{name: "typed client over bare", seed: []markerid.MarkerID{markerid.Client("5")}, m: markerid.TypedClient("5", "2")},
		{name: "with employee same pairing", m: markerid.WithEmployee("77", "status-9")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			ledger := NewAssignmentLedger(gw)
			ctx := context.Background()

			for _, s := range tc.seed {
				if err := ledger.Toggle(ctx, emp, day, s); err != nil {
					t.Fatal(err)
				}
			}
			before := encodeAll(ledger.Bucket(emp, day))

			if err := ledger.Toggle(ctx, emp, day, tc.m); err != nil {
				t.Fatal(err)
			}
			if err := ledger.Toggle(ctx, emp, day, tc.m); err != nil {
				t.Fatal(err)
			}
			if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, before) {
				t.Fatalf("bucket after double toggle = %v, want %v", got, before)
			}
		})
	}
}

func TestToggleTypedClientFromEmptyLeavesBare(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	m := markerid.TypedClient("5", "2")
	if err := ledger.Toggle(ctx, emp, day, m); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Toggle(ctx, emp, day, m); err != nil {
		t.Fatal(err)
	}
	// The second toggle removed the last typed sibling, so the bare client
	// takes its place rather than leaving the day empty.
	if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, []string{"client-5"}) {
		t.Fatalf("bucket after double toggle = %v, want [client-5]", got)
	}
}

func TestToggleWithEmployeeReplacesPairing(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	first := markerid.WithEmployee("77", "status-9")
	second := markerid.WithEmployee("88", "status-9")

	if err := ledger.Toggle(ctx, emp, day, markerid.Status("status-1")); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Toggle(ctx, emp, day, first); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Toggle(ctx, emp, day, second); err != nil {
		t.Fatal(err)
	}

	got := encodeAll(ledger.Bucket(emp, day))
	want := []string{"status-1", "with_88_status-9"}
	if !sameIDs(got, want) {
		t.Fatalf("bucket = %v, want %v (replace in place, not append)", got, want)
	}
}

func TestToggleWithEmployeeReplacesUnpairedStatus(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	if err := ledger.Toggle(ctx, emp, day, markerid.Status("status-9")); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Toggle(ctx, emp, day, markerid.WithEmployee("77", "status-9")); err != nil {
		t.Fatal(err)
	}

	got := encodeAll(ledger.Bucket(emp, day))
	if !sameIDs(got, []string{"with_77_status-9"}) {
		t.Fatalf("bucket = %v", got)
	}
}

func TestToggleClientShapes(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	// Bare, then typed: typed replaces the bare form.
	if err := ledger.Toggle(ctx, emp, day, markerid.Client("5")); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Toggle(ctx, emp, day, markerid.TypedClient("5", "2")); err != nil {
		t.Fatal(err)
	}
	if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, []string{"client-5_type-2"}) {
		t.Fatalf("bucket = %v", got)
	}

	// Second type joins the first.
	if err := ledger.Toggle(ctx, emp, day, markerid.TypedClient("5", "3")); err != nil {
		t.Fatal(err)
	}
	if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, []string{"client-5_type-2", "client-5_type-3"}) {
		t.Fatalf("bucket = %v", got)
	}

	// Removing one typed keeps the other; removing the last substitutes bare.
	if err := ledger.Toggle(ctx, emp, day, markerid.TypedClient("5", "2")); err != nil {
		t.Fatal(err)
	}
	if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, []string{"client-5_type-3"}) {
		t.Fatalf("bucket = %v", got)
	}
	if err := ledger.Toggle(ctx, emp, day, markerid.TypedClient("5", "3")); err != nil {
		t.Fatal(err)
	}
	if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, []string{"client-5"}) {
		t.Fatalf("bucket = %v, want bare substitute", got)
	}

	// Bare toggle wipes every representation.
	if err := ledger.Toggle(ctx, emp, day, markerid.TypedClient("5", "2")); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Toggle(ctx, emp, day, markerid.Client("5")); err != nil {
		t.Fatal(err)
	}
	if got := ledger.Bucket(emp, day); len(got) != 0 {
		t.Fatalf("bucket = %v, want empty", encodeAll(got))
	}
}

func TestBareAndTypedNeverCoexist(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	seq := []markerid.MarkerID{
		markerid.Client("5"),
		markerid.TypedClient("5", "2"),
		markerid.TypedClient("5", "3"),
		markerid.Client("5"),
		markerid.Client("5"),
		markerid.TypedClient("5", "2"),
		markerid.TypedClient("5", "2"),
	}
	for _, m := range seq {
		if err := ledger.Toggle(ctx, emp, day, m); err != nil {
			t.Fatal(err)
		}
		bare, typed := false, false
		for _, e := range ledger.Bucket(emp, day) {
			if e.Kind == markerid.KindClient && e.ClientID == "5" {
				bare = true
			}
			if e.Kind == markerid.KindTypedClient && e.ClientID == "5" {
				typed = true
			}
		}
		if bare && typed {
			t.Fatalf("after toggling %s: bucket holds bare and typed together: %v",
				markerid.Encode(m), encodeAll(ledger.Bucket(emp, day)))
		}
	}
}

func TestRemoveClientRemovesAllVariants(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	for _, m := range []markerid.MarkerID{
		markerid.TypedClient("5", "2"),
		markerid.TypedClient("5", "3"),
		markerid.Status("status-1"),
	} {
		if err := ledger.Toggle(ctx, emp, day, m); err != nil {
			t.Fatal(err)
		}
	}

	if err := ledger.Remove(ctx, emp, day, []markerid.MarkerID{markerid.Client("5")}); err != nil {
		t.Fatal(err)
	}
	got := encodeAll(ledger.Bucket(emp, day))
	if !sameIDs(got, []string{"status-1"}) {
		t.Fatalf("bucket = %v, want only status-1", got)
	}
}

func TestRemoveCascadesLifecycleDrop(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	states := NewStateLedger(gw)
	ledger.AttachStates(states)
	ctx := context.Background()

	if err := ledger.Toggle(ctx, emp, day, markerid.TypedClient("5", "2")); err != nil {
		t.Fatal(err)
	}
	key := types.StateKeyFor(emp, day, markerid.TypedClient("5", "2"))
	if err := states.Complete(ctx, key); err != nil {
		t.Fatal(err)
	}

	if err := ledger.Remove(ctx, emp, day, []markerid.MarkerID{markerid.Client("5")}); err != nil {
		t.Fatal(err)
	}
	if _, ok := states.Get(key); ok {
		t.Fatal("lifecycle record survived removal of its last marker")
	}
	if _, ok := gw.states[key]; ok {
		t.Fatal("backend record survived cascade")
	}
}

func TestMoveRange(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	for _, m := range []markerid.MarkerID{markerid.Client("5"), markerid.Status("status-1")} {
		if err := ledger.Toggle(ctx, emp, day, m); err != nil {
			t.Fatal(err)
		}
	}
	if err := ledger.Toggle(ctx, emp, day2, markerid.Status("status-1")); err != nil {
		t.Fatal(err)
	}

	err := ledger.MoveRange(ctx, emp, day, day2, []markerid.MarkerID{markerid.Client("5"), markerid.Status("status-1")})
	if err != nil {
		t.Fatal(err)
	}

	if got := encodeAll(ledger.Bucket(emp, day)); len(got) != 0 {
		t.Fatalf("source bucket = %v, want empty", got)
	}
	// status-1 was already present at the destination: no duplicate.
	if got := encodeAll(ledger.Bucket(emp, day2)); !sameIDs(got, []string{"status-1", "client-5"}) {
		t.Fatalf("destination bucket = %v", got)
	}
}

func TestToggleRollbackOnPersistFailure(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	if err := ledger.Toggle(ctx, emp, day, markerid.Client("5")); err != nil {
		t.Fatal(err)
	}
	before := encodeAll(ledger.Bucket(emp, day))

	gw.failReplaceAfter = gw.replaceCalls + 1
	if err := ledger.Toggle(ctx, emp, day, markerid.Status("status-1")); err == nil {
		t.Fatal("expected persist failure")
	}
	if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, before) {
		t.Fatalf("bucket after rollback = %v, want %v", got, before)
	}
}

func TestMoveRangeRollbackRestoresBothBuckets(t *testing.T) {
	gw := newFakeGateway()
	ledger := NewAssignmentLedger(gw)
	ctx := context.Background()

	if err := ledger.Toggle(ctx, emp, day, markerid.Client("5")); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Toggle(ctx, emp, day2, markerid.Status("status-1")); err != nil {
		t.Fatal(err)
	}
	beforeFrom := encodeAll(ledger.Bucket(emp, day))
	beforeTo := encodeAll(ledger.Bucket(emp, day2))

	// First replace of the move succeeds, second fails.
	gw.failReplaceAfter = gw.replaceCalls + 2
	err := ledger.MoveRange(ctx, emp, day, day2, []markerid.MarkerID{markerid.Client("5")})
	if err == nil {
		t.Fatal("expected persist failure")
	}
	if got := encodeAll(ledger.Bucket(emp, day)); !sameIDs(got, beforeFrom) {
		t.Fatalf("source bucket after rollback = %v, want %v", got, beforeFrom)
	}
	if got := encodeAll(ledger.Bucket(emp, day2)); !sameIDs(got, beforeTo) {
		t.Fatalf("destination bucket after rollback = %v, want %v", got, beforeTo)
	}
}

func TestMoveRangeSameDateRejected(t *testing.T) {
	ledger := NewAssignmentLedger(newFakeGateway())
	err := ledger.MoveRange(context.Background(), emp, day, day, []markerid.MarkerID{markerid.Client("5")})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
