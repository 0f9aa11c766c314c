package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
)

type fakeAuthorizer struct {
	enforce bool
	allowed map[string]bool
}

func (a *fakeAuthorizer) Authorize(subject string, object string, action string) (bool, bool, error) {
	if !a.enforce {
		return true, false, nil
	}
	return a.allowed[subject+"|"+object+"|"+action], true, nil
}

func allowAll() *fakeAuthorizer { return &fakeAuthorizer{} }

type fakeIdentityProvider struct {
	users map[string]authenticatedIdentity
}

func (p *fakeIdentityProvider) AuthenticatePassword(_ context.Context, email string, password string) (authenticatedIdentity, error) {
	ident, ok := p.users[email+":"+password]
	if !ok {
		return authenticatedIdentity{}, errInvalidCredentials
	}
	return ident, nil
}

func tContext(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}

func farFuture() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func writeTestAllowlist(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "allowlist.yaml")
	content := `
version: 1
entrypoints:
  server:
    routes:
      - path: /healthz
        methods: [GET]
        route_class: ops
      - path: /metrics
        methods: [GET]
        route_class: ops
      - path: /iam/api/sessions
        methods: [POST, DELETE]
        route_class: authn
      - path: /schedule/api/day
        methods: [GET, PUT]
        route_class: api
      - path: /schedule/api/days
        methods: [GET]
        route_class: api
      - path: /schedule/api/states
        methods: [GET, POST, DELETE]
        route_class: api
      - path: /schedule/api/states/cancellations
        methods: [POST]
        route_class: api
      - path: /schedule/api/employees
        methods: [GET]
        route_class: api
      - path: /schedule/api/statuses
        methods: [GET]
        route_class: api
      - path: /schedule/api/clients
        methods: [GET]
        route_class: api
      - path: /schedule/api/schedule-types
        methods: [GET]
        route_class: api
      - path: /schedule/api/rules:evaluate
        methods: [POST]
        route_class: api
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ALLOWLIST_PATH", path)
}

func newTestHandler(t *testing.T, opts HandlerOptions) http.Handler {
	t.Helper()
	writeTestAllowlist(t)
	if opts.ScheduleStore == nil {
		opts.ScheduleStore = newMemoryScheduleStore()
	}
	if opts.CatalogStore == nil {
		opts.CatalogStore = newMemoryCatalogStore()
	}
	if opts.SessionStore == nil {
		opts.SessionStore = newMemorySessionStore()
	}
	if opts.Authorizer == nil {
		opts.Authorizer = allowAll()
	}
	h, err := NewHandlerWithOptions(opts)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func doJSON(t *testing.T, h http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, HandlerOptions{})
	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLoginIssuesBearerToken(t *testing.T) {
	sessions := newMemorySessionStore()
	h := newTestHandler(t, HandlerOptions{
		SessionStore: sessions,
		IdentityProvider: &fakeIdentityProvider{users: map[string]authenticatedIdentity{
			"alice@example.com:secret": {Email: "alice@example.com", RoleSlug: "board-admin"},
		}},
	})

	rec := doJSON(t, h, http.MethodPost, "/iam/api/sessions", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken == "" || resp.TokenType != "Bearer" {
		t.Fatalf("resp = %+v", resp)
	}

	sess, ok, err := sessions.Lookup(tContext(t), resp.AccessToken)
	if err != nil || !ok {
		t.Fatalf("lookup = %v %v", ok, err)
	}
	if sess.RoleSlug != "board-admin" {
		t.Fatalf("role = %q", sess.RoleSlug)
	}
}

func TestLoginRejectsBadCredentialsAndRoles(t *testing.T) {
	h := newTestHandler(t, HandlerOptions{
		IdentityProvider: &fakeIdentityProvider{users: map[string]authenticatedIdentity{
			"alice@example.com:secret": {Email: "alice@example.com", RoleSlug: "board-admin"},
			"bob@example.com:hunter2":  {Email: "bob@example.com", RoleSlug: "superuser"},
		}},
	})

	rec := doJSON(t, h, http.MethodPost, "/iam/api/sessions", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/iam/api/sessions", "", map[string]string{
		"email":    "bob@example.com",
		"password": "hunter2",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestDayBucketRoundTrip(t *testing.T) {
	h := newTestHandler(t, HandlerOptions{})

	bucket := DayBucket{
		EmployeeID: "00000000-0000-0000-0000-0000000000aa",
		Date:       "2025-01-10",
		Items: []types.MarkerItem{
			{Kind: "status", StatusID: "training"},
			{Kind: "typed_client", ClientID: "c-1", TypeID: "intake"},
		},
	}
	rec := doJSON(t, h, http.MethodPut, "/schedule/api/day", "", bucket)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/schedule/api/day?employee_uuid="+bucket.EmployeeID+"&date=2025-01-10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got DayBucket
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 2 || got.Items[1].TypeID != "intake" {
		t.Fatalf("items = %+v", got.Items)
	}
}

func TestDayBucketValidation(t *testing.T) {
	h := newTestHandler(t, HandlerOptions{})

	rec := doJSON(t, h, http.MethodPut, "/schedule/api/day", "", DayBucket{Date: "2025-01-10"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/schedule/api/day?employee_uuid=e&date=not-a-date", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLifecycleStatesEndpoint(t *testing.T) {
	h := newTestHandler(t, HandlerOptions{})
	const emp = "00000000-0000-0000-0000-0000000000aa"

	rec := doJSON(t, h, http.MethodPost, "/schedule/api/states", "", types.LifecycleStateRecord{
		EmployeeID: emp,
		Date:       "2025-01-10",
		StatusID:   "training",
		State:      "cancelled",
		Reason:     "sick",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("post status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/schedule/api/states", "", types.LifecycleStateRecord{
		EmployeeID: emp,
		Date:       "2025-01-10",
		StatusID:   "training",
		State:      "vanished",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad state status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/schedule/api/states?employee_uuid="+emp+"&from_date=2025-01-01&to_date=2025-01-31", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var listed struct {
		States []types.LifecycleStateRecord `json:"states"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.States) != 1 || listed.States[0].Reason != "sick" {
		t.Fatalf("states = %+v", listed.States)
	}

	rec = doJSON(t, h, http.MethodDelete, "/schedule/api/states?employee_uuid="+emp+"&date=2025-01-10&status_id=training", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/schedule/api/states?employee_uuid="+emp+"&from_date=2025-01-01&to_date=2025-01-31", "", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.States) != 0 {
		t.Fatalf("states after delete = %+v", listed.States)
	}
}

func TestCancellationRequiresReason(t *testing.T) {
	h := newTestHandler(t, HandlerOptions{})

	rec := doJSON(t, h, http.MethodPost, "/schedule/api/states/cancellations", "", CancellationDetail{
		EmployeeID: "00000000-0000-0000-0000-0000000000aa",
		Date:       "2025-01-10",
		StatusID:   "training",
		Reason:     "   ",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Code != "reason_required" {
		t.Fatalf("code = %q", env.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	catalogs := newMemoryCatalogStore()
	catalogs.seed(
		[]types.Employee{{UUID: "e-1", DisplayName: "Dana"}},
		[]types.Status{{ID: "off", Name: "Off", IsEnabled: true}},
		[]types.Client{{ID: "c-1", Name: "Acme", IsEnabled: true}},
		[]types.ScheduleType{{ID: "intake", Name: "Intake"}},
	)
	h := newTestHandler(t, HandlerOptions{CatalogStore: catalogs})

	rec := doJSON(t, h, http.MethodGet, "/schedule/api/employees", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var emps struct {
		Employees []types.Employee `json:"employees"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &emps); err != nil {
		t.Fatal(err)
	}
	if len(emps.Employees) != 1 || emps.Employees[0].DisplayName != "Dana" {
		t.Fatalf("employees = %+v", emps.Employees)
	}

	for _, path := range []string{"/schedule/api/statuses", "/schedule/api/clients", "/schedule/api/schedule-types"} {
		rec := doJSON(t, h, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestAuthzForbidsViewerWrites(t *testing.T) {
	sessions := newMemorySessionStore()
	auth := &fakeAuthorizer{
		enforce: true,
		allowed: map[string]bool{
			"role:board-viewer|schedule.day|read": true,
		},
	}
	h := newTestHandler(t, HandlerOptions{SessionStore: sessions, Authorizer: auth})

	token, err := sessions.Create(tContext(t), "viewer@example.com", "board-viewer", farFuture(), "", "")
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodGet, "/schedule/api/day?employee_uuid=e-1&date=2025-01-10", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPut, "/schedule/api/day", token, DayBucket{EmployeeID: "e-1", Date: "2025-01-10"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("write status = %d", rec.Code)
	}
	var env struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Code != "forbidden" {
		t.Fatalf("code = %q", env.Code)
	}
}

func TestUnknownRouteGetsEnvelope(t *testing.T) {
	h := newTestHandler(t, HandlerOptions{})
	rec := doJSON(t, h, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
