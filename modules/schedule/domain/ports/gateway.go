package ports

import (
	"context"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

// SessionProvider hands out the bearer credential for backend calls. A false
// ok means unauthenticated; the in-flight operation fails without retry.
type SessionProvider interface {
	AccessToken(ctx context.Context) (token string, ok bool)
}

// ScheduleGateway persists ledger mutations. The day-bucket endpoint is a
// full replace, never a diff, so callers always send the complete
// post-mutation bucket. Implementations do no batching, queuing, or
// deduplication; every call is one request.
type ScheduleGateway interface {
	ReplaceDayBucket(ctx context.Context, employeeID string, date string, markers []markerid.MarkerID) error
	UpsertLifecycleState(ctx context.Context, key types.StateKey, state types.LifecycleState) error
	DeleteLifecycleState(ctx context.Context, key types.StateKey) error
	SubmitCancellation(ctx context.Context, key types.StateKey, reason string, note string) error
}

// ScheduleReader hydrates the ledgers at startup.
type ScheduleReader interface {
	ListDayBuckets(ctx context.Context, employeeID string, fromDate string, toDate string) (map[string][]markerid.MarkerID, error)
	ListLifecycleStates(ctx context.Context, employeeID string, fromDate string, toDate string) (map[types.StateKey]types.LifecycleState, error)
}

// CatalogReader supplies the read-only catalogs behind the projection.
type CatalogReader interface {
	ListEmployees(ctx context.Context) ([]types.Employee, error)
	ListStatuses(ctx context.Context) ([]types.Status, error)
	ListClients(ctx context.Context) ([]types.Client, error)
	ListScheduleTypes(ctx context.Context) ([]types.ScheduleType, error)
}
