package server

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

type pgScheduleStore struct {
	pool  *pgxpool.Pool
	orgID string
}

func newScheduleStore(pool *pgxpool.Pool, orgID string) ScheduleStore {
	if pool == nil {
		return newMemoryScheduleStore()
	}
	return &pgScheduleStore{pool: pool, orgID: orgID}
}

func (s *pgScheduleStore) GetDayBucket(ctx context.Context, employeeID string, date string) (DayBucket, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return DayBucket{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, s.orgID); err != nil {
		return DayBucket{}, err
	}

	rows, err := tx.Query(ctx, `
SELECT marker
FROM roster.day_bucket_items
WHERE org_id = $1::uuid
  AND employee_uuid = $2::uuid
  AND bucket_date = $3::date
ORDER BY position
`, s.orgID, employeeID, date)
	if err != nil {
		return DayBucket{}, err
	}
	defer rows.Close()

	out := DayBucket{EmployeeID: employeeID, Date: date, Items: []types.MarkerItem{}}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return DayBucket{}, err
		}
		out.Items = append(out.Items, types.MarkerItemFrom(markerid.Decode(raw)))
	}
	if err := rows.Err(); err != nil {
		return DayBucket{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DayBucket{}, err
	}
	return out, nil
}

func (s *pgScheduleStore) ReplaceDayBucket(ctx context.Context, b DayBucket) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, s.orgID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM roster.day_bucket_items
WHERE org_id = $1::uuid AND employee_uuid = $2::uuid AND bucket_date = $3::date;
`, s.orgID, b.EmployeeID, b.Date); err != nil {
		return err
	}

	for i, it := range b.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO roster.day_bucket_items (org_id, employee_uuid, bucket_date, position, marker)
VALUES ($1::uuid, $2::uuid, $3::date, $4, $5);
`, s.orgID, b.EmployeeID, b.Date, i, markerid.Encode(it.Marker())); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *pgScheduleStore) ListDayBuckets(ctx context.Context, employeeID string, fromDate string, toDate string) ([]DayBucket, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, s.orgID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT bucket_date::text, marker
FROM roster.day_bucket_items
WHERE org_id = $1::uuid
  AND employee_uuid = $2::uuid
  AND bucket_date >= $3::date
  AND bucket_date <= $4::date
ORDER BY bucket_date, position
`, s.orgID, employeeID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayBucket
	for rows.Next() {
		var date, raw string
		if err := rows.Scan(&date, &raw); err != nil {
			return nil, err
		}
		item := types.MarkerItemFrom(markerid.Decode(raw))
		if n := len(out); n > 0 && out[n-1].Date == date {
			out[n-1].Items = append(out[n-1].Items, item)
			continue
		}
		out = append(out, DayBucket{EmployeeID: employeeID, Date: date, Items: []types.MarkerItem{item}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *pgScheduleStore) UpsertLifecycleState(ctx context.Context, rec types.LifecycleStateRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, s.orgID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO roster.lifecycle_states
  (org_id, employee_uuid, state_date, status_id, state, reason, note, cancelled_at, postponed_date, is_tba)
VALUES ($1::uuid, $2::uuid, $3::date, $4, $5, $6, $7, NULLIF($8, '')::timestamptz, NULLIF($9, '')::date, $10)
ON CONFLICT (org_id, employee_uuid, state_date, status_id) DO UPDATE SET
  state = EXCLUDED.state,
  reason = EXCLUDED.reason,
  note = EXCLUDED.note,
  cancelled_at = EXCLUDED.cancelled_at,
  postponed_date = EXCLUDED.postponed_date,
  is_tba = EXCLUDED.is_tba,
  updated_at = now();
`, s.orgID, rec.EmployeeID, rec.Date, rec.StatusID, rec.State, rec.Reason, rec.Note, rec.CancelledAt, rec.PostponedDate, rec.IsTBA); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *pgScheduleStore) DeleteLifecycleState(ctx context.Context, employeeID string, date string, statusID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, s.orgID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM roster.lifecycle_states
WHERE org_id = $1::uuid AND employee_uuid = $2::uuid AND state_date = $3::date AND status_id = $4;
`, s.orgID, employeeID, date, statusID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *pgScheduleStore) ListLifecycleStates(ctx context.Context, employeeID string, fromDate string, toDate string) ([]types.LifecycleStateRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, s.orgID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT
  employee_uuid::text,
  state_date::text,
  status_id,
  state,
  reason,
  note,
  COALESCE(to_char(cancelled_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), ''),
  COALESCE(postponed_date::text, ''),
  is_tba
FROM roster.lifecycle_states
WHERE org_id = $1::uuid
  AND employee_uuid = $2::uuid
  AND state_date >= $3::date
  AND state_date <= $4::date
ORDER BY state_date, status_id
`, s.orgID, employeeID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.LifecycleStateRecord
	for rows.Next() {
		var rec types.LifecycleStateRecord
		if err := rows.Scan(&rec.EmployeeID, &rec.Date, &rec.StatusID, &rec.State, &rec.Reason, &rec.Note, &rec.CancelledAt, &rec.PostponedDate, &rec.IsTBA); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *pgScheduleStore) SubmitCancellationDetail(ctx context.Context, d CancellationDetail) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_org', $1, true);`, s.orgID); err != nil {
		return err
	}

	submittedAt := d.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO roster.cancellation_details (org_id, employee_uuid, state_date, status_id, reason, note, submitted_at)
VALUES ($1::uuid, $2::uuid, $3::date, $4, $5, $6, $7);
`, s.orgID, d.EmployeeID, d.Date, d.StatusID, d.Reason, d.Note, submittedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
