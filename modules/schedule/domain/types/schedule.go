package types

import (
	"time"

	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

// BucketKey addresses one employee's markers on one date (YYYY-MM-DD).
type BucketKey struct {
	EmployeeID string
	Date       string
}

// StateKey addresses the lifecycle record of one marker occurrence. BaseID is
// the encoded base identifier: typed client variants collapse onto the bare
// client, so all siblings share one record.
type StateKey struct {
	EmployeeID string
	Date       string
	BaseID     string
}

func StateKeyFor(employeeID string, date string, m markerid.MarkerID) StateKey {
	return StateKey{EmployeeID: employeeID, Date: date, BaseID: markerid.Encode(m.Base())}
}

type StateName string

const (
	StateCompleted StateName = "completed"
	StateCancelled StateName = "cancelled"
	StatePostponed StateName = "postponed"
)

// LifecycleState is the stored record for a non-active marker occurrence.
// Absence of a record means the marker is active. The shape is normalized
// here once; nothing past the store boundary sees a partially-filled state.
type LifecycleState struct {
	Name StateName

	// Cancelled only.
	Reason      string
	Note        string
	CancelledAt time.Time

	// Postponed only. TBA keeps the marker on its origin date with no
	// destination; otherwise PostponedDate records where the marker came
	// from (the "postponed from ..." annotation on the destination date).
	TBA           bool
	PostponedDate string
}

func Completed() LifecycleState { return LifecycleState{Name: StateCompleted} }

func Cancelled(reason string, note string, at time.Time) LifecycleState {
	return LifecycleState{Name: StateCancelled, Reason: reason, Note: note, CancelledAt: at}
}

func PostponedTBA() LifecycleState {
	return LifecycleState{Name: StatePostponed, TBA: true}
}

func PostponedFrom(originDate string) LifecycleState {
	return LifecycleState{Name: StatePostponed, PostponedDate: originDate}
}

// Employee is one roster entry.
type Employee struct {
	UUID        string `json:"employee_uuid"`
	DisplayName string `json:"display_name"`
}

// Status is one fixed catalog status.
type Status struct {
	ID        string `json:"status_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsWith    bool   `json:"is_with"`
	IsEnabled bool   `json:"is_enabled"`
}

// Client is one visitable client.
type Client struct {
	ID        string `json:"client_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsEnabled bool   `json:"is_enabled"`
}

// ScheduleType qualifies a client visit.
type ScheduleType struct {
	ID   string `json:"type_id"`
	Name string `json:"name"`
}

// MarkerOption is one assignable entry of the merged catalog projection.
type MarkerOption struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Color string        `json:"color"`
	Kind  markerid.Kind `json:"kind"`
}
