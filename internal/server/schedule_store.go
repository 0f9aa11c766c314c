package server

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/httperr"
)

// DayBucket is a full day's marker list for one employee. Replacement is
// whole-bucket: the server never diffs item lists.
type DayBucket struct {
	EmployeeID string             `json:"employee_uuid"`
	Date       string             `json:"date"`
	Items      []types.MarkerItem `json:"items"`
}

type CancellationDetail struct {
	EmployeeID  string    `json:"employee_uuid"`
	Date        string    `json:"date"`
	StatusID    string    `json:"status_id"`
	Reason      string    `json:"reason"`
	Note        string    `json:"note,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ScheduleStore interface {
	GetDayBucket(ctx context.Context, employeeID string, date string) (DayBucket, error)
	ReplaceDayBucket(ctx context.Context, b DayBucket) error
	ListDayBuckets(ctx context.Context, employeeID string, fromDate string, toDate string) ([]DayBucket, error)

	UpsertLifecycleState(ctx context.Context, rec types.LifecycleStateRecord) error
	DeleteLifecycleState(ctx context.Context, employeeID string, date string, statusID string) error
	ListLifecycleStates(ctx context.Context, employeeID string, fromDate string, toDate string) ([]types.LifecycleStateRecord, error)

	SubmitCancellationDetail(ctx context.Context, d CancellationDetail) error
}

type bucketRowKey struct {
	EmployeeID string
	Date       string
}

type stateRowKey struct {
	EmployeeID string
	Date       string
	StatusID   string
}

type memoryScheduleStore struct {
	mu      sync.Mutex
	buckets map[bucketRowKey][]types.MarkerItem
	states  map[stateRowKey]types.LifecycleStateRecord
	cancels []CancellationDetail
}

func newMemoryScheduleStore() *memoryScheduleStore {
	return &memoryScheduleStore{
		buckets: map[bucketRowKey][]types.MarkerItem{},
		states:  map[stateRowKey]types.LifecycleStateRecord{},
	}
}

func (s *memoryScheduleStore) GetDayBucket(_ context.Context, employeeID string, date string) (DayBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.buckets[bucketRowKey{EmployeeID: employeeID, Date: date}]
	out := DayBucket{EmployeeID: employeeID, Date: date, Items: make([]types.MarkerItem, len(items))}
	copy(out.Items, items)
	return out, nil
}

func (s *memoryScheduleStore) ReplaceDayBucket(_ context.Context, b DayBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bucketRowKey{EmployeeID: b.EmployeeID, Date: b.Date}
	if len(b.Items) == 0 {
		delete(s.buckets, key)
		return nil
	}
	items := make([]types.MarkerItem, len(b.Items))
	copy(items, b.Items)
	s.buckets[key] = items
	return nil
}

func (s *memoryScheduleStore) ListDayBuckets(_ context.Context, employeeID string, fromDate string, toDate string) ([]DayBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []DayBucket
	for key, items := range s.buckets {
		if key.EmployeeID != employeeID {
			continue
		}
		if key.Date < fromDate || key.Date > toDate {
			continue
		}
		b := DayBucket{EmployeeID: key.EmployeeID, Date: key.Date, Items: make([]types.MarkerItem, len(items))}
		copy(b.Items, items)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *memoryScheduleStore) UpsertLifecycleState(_ context.Context, rec types.LifecycleStateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[stateRowKey{EmployeeID: rec.EmployeeID, Date: rec.Date, StatusID: rec.StatusID}] = rec
	return nil
}

func (s *memoryScheduleStore) DeleteLifecycleState(_ context.Context, employeeID string, date string, statusID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, stateRowKey{EmployeeID: employeeID, Date: date, StatusID: statusID})
	return nil
}

func (s *memoryScheduleStore) ListLifecycleStates(_ context.Context, employeeID string, fromDate string, toDate string) ([]types.LifecycleStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.LifecycleStateRecord
	for key, rec := range s.states {
		if key.EmployeeID != employeeID {
			continue
		}
		if key.Date < fromDate || key.Date > toDate {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StatusID < out[j].StatusID
	})
	return out, nil
}

func (s *memoryScheduleStore) SubmitCancellationDetail(_ context.Context, d CancellationDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(d.Reason) == "" {
		return httperr.NewBadRequest("reason is required")
	}
	s.cancels = append(s.cancels, d)
	return nil
}
