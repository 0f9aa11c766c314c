package services

import (
	"context"
	"time"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/httperr"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

// PostponeCoordinator sequences the bucket moves and state writes of a
// postponement. Each sub-call is rolled back by its owning ledger on failure;
// the coordinator does not undo sub-calls that already succeeded, it reports
// them through httperr.PartialOperationError instead.
type PostponeCoordinator struct {
	assignments *AssignmentLedger
	states      *StateLedger
}

func NewPostponeCoordinator(assignments *AssignmentLedger, states *StateLedger) *PostponeCoordinator {
	return &PostponeCoordinator{assignments: assignments, states: states}
}

// PostponeTBA annotates the marker on its origin date with no destination.
// Bucket membership does not change.
func (c *PostponeCoordinator) PostponeTBA(ctx context.Context, employeeID string, date string, m markerid.MarkerID) error {
	return c.states.PostponeTBA(ctx, types.StateKeyFor(employeeID, date, m))
}

// Postpone relocates the marker, and every typed sibling sharing its base,
// from the origin date to the destination date. Moves are issued one marker
// at a time to bound the blast radius of a mid-sequence failure. The
// destination record stores the origin date ("postponed from ..."), then the
// origin record is cleared. A destination equal to the origin is accepted:
// the bucket stays put and only the state record is written.
func (c *PostponeCoordinator) Postpone(ctx context.Context, employeeID string, originDate string, destDate string, m markerid.MarkerID) error {
	origin, err := time.Parse("2006-01-02", originDate)
	if err != nil {
		return httperr.NewValidation("invalid origin date")
	}
	dest, err := time.Parse("2006-01-02", destDate)
	if err != nil {
		return httperr.NewValidation("invalid destination date")
	}
	if dest.Before(origin) {
		return httperr.NewValidation("destination date is before origin date")
	}

	siblings := c.assignments.Siblings(employeeID, originDate, m)
	if len(siblings) == 0 {
		return httperr.NewValidation("marker is not assigned on the origin date")
	}

	if destDate == originDate {
		// Degenerate relocation: nothing moves, and clearing the origin
		// would erase the record just written.
		return c.states.MarkPostponedFrom(ctx, types.StateKeyFor(employeeID, destDate, m), originDate)
	}

	var applied []string
	for _, id := range siblings {
		if err := c.assignments.MoveRange(ctx, employeeID, originDate, destDate, []markerid.MarkerID{id}); err != nil {
			if len(applied) > 0 {
				return httperr.NewPartialOperation(applied, err)
			}
			return err
		}
		applied = append(applied, markerid.Encode(id))
	}

	destKey := types.StateKeyFor(employeeID, destDate, m)
	if err := c.states.MarkPostponedFrom(ctx, destKey, originDate); err != nil {
		return httperr.NewPartialOperation(applied, err)
	}

	originKey := types.StateKeyFor(employeeID, originDate, m)
	if err := c.states.Clear(ctx, originKey); err != nil {
		return httperr.NewPartialOperation(append(applied, "state@"+destDate), err)
	}
	return nil
}
