package server

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
)

// CatalogStore serves the read-only roster catalogs the schedule board
// hydrates from.
type CatalogStore interface {
	ListEmployees(ctx context.Context) ([]types.Employee, error)
	ListStatuses(ctx context.Context) ([]types.Status, error)
	ListClients(ctx context.Context) ([]types.Client, error)
	ListScheduleTypes(ctx context.Context) ([]types.ScheduleType, error)
}

type memoryCatalogStore struct {
	mu        sync.Mutex
	employees []types.Employee
	statuses  []types.Status
	clients   []types.Client
	schedTyps []types.ScheduleType
}

func newMemoryCatalogStore() *memoryCatalogStore {
	return &memoryCatalogStore{}
}

func (s *memoryCatalogStore) seed(employees []types.Employee, statuses []types.Status, clients []types.Client, schedTypes []types.ScheduleType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.employees = append([]types.Employee(nil), employees...)
	s.statuses = append([]types.Status(nil), statuses...)
	s.clients = append([]types.Client(nil), clients...)
	s.schedTyps = append([]types.ScheduleType(nil), schedTypes...)
}

func (s *memoryCatalogStore) ListEmployees(_ context.Context) ([]types.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Employee(nil), s.employees...), nil
}

func (s *memoryCatalogStore) ListStatuses(_ context.Context) ([]types.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Status(nil), s.statuses...), nil
}

func (s *memoryCatalogStore) ListClients(_ context.Context) ([]types.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Client(nil), s.clients...), nil
}

func (s *memoryCatalogStore) ListScheduleTypes(_ context.Context) ([]types.ScheduleType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ScheduleType(nil), s.schedTyps...), nil
}

type pgCatalogStore struct {
	pool  *pgxpool.Pool
	orgID string
}

func newCatalogStore(pool *pgxpool.Pool, orgID string) CatalogStore {
	if pool == nil {
		return newMemoryCatalogStore()
	}
	return &pgCatalogStore{pool: pool, orgID: orgID}
}

func (s *pgCatalogStore) ListEmployees(ctx context.Context) ([]types.Employee, error) {
	rows, err := s.pool.Query(ctx, `
SELECT employee_uuid::text, display_name
FROM roster.employees
WHERE org_id = $1::uuid
ORDER BY display_name, employee_uuid
`, s.orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Employee
	for rows.Next() {
		var e types.Employee
		if err := rows.Scan(&e.UUID, &e.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *pgCatalogStore) ListStatuses(ctx context.Context) ([]types.Status, error) {
	rows, err := s.pool.Query(ctx, `
SELECT status_id, name, color, is_with, is_enabled
FROM roster.statuses
WHERE org_id = $1::uuid
ORDER BY sort_order, status_id
`, s.orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Status
	for rows.Next() {
		var st types.Status
		if err := rows.Scan(&st.ID, &st.Name, &st.Color, &st.IsWith, &st.IsEnabled); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *pgCatalogStore) ListClients(ctx context.Context) ([]types.Client, error) {
	rows, err := s.pool.Query(ctx, `
SELECT client_id, name, color, is_enabled
FROM roster.clients
WHERE org_id = $1::uuid
ORDER BY name, client_id
`, s.orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Client
	for rows.Next() {
		var c types.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.IsEnabled); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgCatalogStore) ListScheduleTypes(ctx context.Context) ([]types.ScheduleType, error) {
	rows, err := s.pool.Query(ctx, `
SELECT type_id, name
FROM roster.schedule_types
WHERE org_id = $1::uuid
ORDER BY sort_order, type_id
`, s.orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ScheduleType
	for rows.Next() {
		var t types.ScheduleType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
