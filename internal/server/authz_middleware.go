package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/PCISGroup/rosterboard/internal/routing"
	"github.com/PCISGroup/rosterboard/pkg/authz"
)

func loadAuthorizer() (*authz.Authorizer, error) {
	modelPath := os.Getenv("AUTHZ_MODEL_PATH")
	if modelPath == "" {
		p, err := defaultAuthzConfigPath("config/access/model.conf")
		if err != nil {
			return nil, err
		}
		modelPath = p
	}

	policyPath := os.Getenv("AUTHZ_POLICY_PATH")
	if policyPath == "" {
		p, err := defaultAuthzConfigPath("config/access/policy.csv")
		if err != nil {
			return nil, err
		}
		policyPath = p
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}

	return authz.NewAuthorizer(modelPath, policyPath, mode)
}

func defaultAuthzConfigPath(rel string) (string, error) {
	path := rel
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: authz config not found: " + rel)
}

type authorizer interface {
	Authorize(subject string, object string, action string) (allowed bool, enforced bool, err error)
}

func withAuthz(classifier *routing.Classifier, a authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		rc := classifier.Classify(path)

		if rc == routing.RouteClassOps {
			next.ServeHTTP(w, r)
			return
		}

		object, action, shouldCheck := authzRequirementForRoute(r.Method, path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		roleSlug := authz.RoleAnonymous
		if p, ok := currentPrincipal(r.Context()); ok {
			roleSlug = p.RoleSlug
		}
		subject := authz.SubjectFromRoleSlug(roleSlug)

		allowed, enforced, err := a.Authorize(subject, object, action)
		if err != nil {
			routing.WriteError(w, r, rc, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if enforced && !allowed {
			routing.WriteError(w, r, rc, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func authzRequirementForRoute(method string, path string) (object string, action string, ok bool) {
	switch path {
	case "/iam/api/sessions":
		if method == http.MethodPost {
			return authz.ObjectIAMSession, authz.ActionWrite, true
		}
		return "", "", false
	case "/schedule/api/day":
		if method == http.MethodGet {
			return authz.ObjectScheduleDay, authz.ActionRead, true
		}
		if method == http.MethodPut {
			return authz.ObjectScheduleDay, authz.ActionWrite, true
		}
		return "", "", false
	case "/schedule/api/days":
		if method == http.MethodGet {
			return authz.ObjectScheduleDay, authz.ActionRead, true
		}
		return "", "", false
	case "/schedule/api/states":
		if method == http.MethodGet {
			return authz.ObjectScheduleStates, authz.ActionRead, true
		}
		if method == http.MethodPost || method == http.MethodDelete {
			return authz.ObjectScheduleStates, authz.ActionWrite, true
		}
		return "", "", false
	case "/schedule/api/states/cancellations":
		if method == http.MethodPost {
			return authz.ObjectScheduleStates, authz.ActionWrite, true
		}
		return "", "", false
	case "/schedule/api/employees", "/schedule/api/statuses", "/schedule/api/clients", "/schedule/api/schedule-types":
		if method == http.MethodGet {
			return authz.ObjectScheduleCatalogs, authz.ActionRead, true
		}
		return "", "", false
	case "/schedule/api/rules:evaluate":
		if method == http.MethodPost {
			return authz.ObjectScheduleRules, authz.ActionRead, true
		}
		return "", "", false
	default:
		return "", "", false
	}
}
