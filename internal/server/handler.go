package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PCISGroup/rosterboard/internal/routing"
	"github.com/PCISGroup/rosterboard/pkg/authz"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

type HandlerOptions struct {
	ScheduleStore    ScheduleStore
	CatalogStore     CatalogStore
	SessionStore     sessionStore
	IdentityProvider identityProvider
	Authorizer       authorizer
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := defaultAllowlistPath()
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}

	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	scheduleStore := opts.ScheduleStore
	catalogStore := opts.CatalogStore
	sessions := opts.SessionStore
	identity := opts.IdentityProvider

	var pgPool *pgxpool.Pool
	if scheduleStore == nil {
		dsn := dbDSNFromEnv()
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return nil, err
		}
		pgPool = pool
		scheduleStore = newScheduleStore(pgPool, orgIDFromEnv())
	}
	if catalogStore == nil {
		catalogStore = newCatalogStore(pgPool, orgIDFromEnv())
	}
	if sessions == nil {
		sessions = newSessionStore(pgPool)
	}

	authorizerImpl := opts.Authorizer
	if authorizerImpl == nil {
		az, err := loadAuthorizer()
		if err != nil {
			return nil, err
		}
		authorizerImpl = az
	}

	router := routing.NewRouter(classifier)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/metrics", promhttp.Handler())

	router.Handle(routing.RouteClassAuthn, http.MethodPost, "/iam/api/sessions", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnprocessableEntity, "invalid_json", "invalid json")
			return
		}
		email := strings.TrimSpace(req.Email)
		password := req.Password
		if email == "" || strings.TrimSpace(password) == "" {
			routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnprocessableEntity, "invalid_form", "email and password required")
			return
		}

		provider := identity
		if provider == nil {
			p, err := newEnvIdentityProviderFromEnv()
			if err != nil {
				routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusInternalServerError, "identity_provider_error", "identity provider error")
				return
			}
			provider = p
		}

		ident, err := provider.AuthenticatePassword(r.Context(), email, password)
		if err != nil {
			if errors.Is(err, errInvalidCredentials) {
				routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnprocessableEntity, "invalid_credentials", "invalid credentials")
				return
			}
			routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusInternalServerError, "identity_error", "identity error")
			return
		}

		roleSlug := strings.TrimSpace(strings.ToLower(ident.RoleSlug))
		if roleSlug != authz.RoleBoardAdmin && roleSlug != authz.RoleBoardViewer {
			routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusUnprocessableEntity, "invalid_identity_role", "invalid identity role")
			return
		}

		expiresAt := time.Now().Add(tokenTTLFromEnv())
		token, err := sessions.Create(r.Context(), ident.Email, roleSlug, expiresAt, r.RemoteAddr, r.UserAgent())
		if err != nil {
			routing.WriteError(w, r, routing.RouteClassAuthn, http.StatusInternalServerError, "session_error", "session error")
			return
		}
		writeJSON(w, map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_at":   expiresAt.UTC().Format(time.RFC3339),
		})
	}))

	router.Handle(routing.RouteClassAuthn, http.MethodDelete, "/iam/api/sessions", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := readBearerToken(r); ok {
			_ = sessions.Revoke(r.Context(), token)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	router.Handle(routing.RouteClassAPI, http.MethodGet, "/schedule/api/day", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDayBucketAPI(w, r, scheduleStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodPut, "/schedule/api/day", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDayBucketAPI(w, r, scheduleStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodGet, "/schedule/api/days", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDayBucketsAPI(w, r, scheduleStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodGet, "/schedule/api/states", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleLifecycleStatesAPI(w, r, scheduleStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodPost, "/schedule/api/states", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleLifecycleStatesAPI(w, r, scheduleStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodDelete, "/schedule/api/states", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleLifecycleStatesAPI(w, r, scheduleStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodPost, "/schedule/api/states/cancellations", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCancellationsAPI(w, r, scheduleStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodGet, "/schedule/api/employees", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleEmployeesAPI(w, r, catalogStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodGet, "/schedule/api/statuses", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleStatusesAPI(w, r, catalogStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodGet, "/schedule/api/clients", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleClientsAPI(w, r, catalogStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodGet, "/schedule/api/schedule-types", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleScheduleTypesAPI(w, r, catalogStore)
	}))
	router.Handle(routing.RouteClassAPI, http.MethodPost, "/schedule/api/rules:evaluate", http.HandlerFunc(handleRulesEvaluateAPI))

	handler := withAuthz(classifier, authorizerImpl, router)
	handler = withSession(sessions, handler)
	handler = withMetrics(func(path string) string { return string(classifier.Classify(path)) }, handler)
	return handler, nil
}

func defaultAllowlistPath() (string, error) {
	path := filepath.Join("config", "routing", "allowlist.yaml")
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: allowlist not found (set ALLOWLIST_PATH)")
}
