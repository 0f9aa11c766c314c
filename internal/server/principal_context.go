package server

import (
	"context"
	"net/http"
)

type Principal struct {
	Email    string
	RoleSlug string
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// withSession resolves the bearer token into a request principal. Requests
// without a valid token pass through anonymous; authorization decides later.
func withSession(sessions sessionStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := readBearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		sess, ok, err := sessions.Lookup(r.Context(), token)
		if err != nil || !ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), Principal{
			Email:    sess.Email,
			RoleSlug: sess.RoleSlug,
		})))
	})
}
