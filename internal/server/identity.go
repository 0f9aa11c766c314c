package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"os"
	"strings"
)

var errInvalidCredentials = errors.New("server: invalid credentials")

type authenticatedIdentity struct {
	Email    string
	RoleSlug string
}

type identityProvider interface {
	AuthenticatePassword(ctx context.Context, email string, password string) (authenticatedIdentity, error)
}

// envIdentityProvider reads the user list from IDENTITY_USERS, one
// email:password:role entry per comma. Meant for single-org deployments
// where the roster is small and provisioned by ops.
type envIdentityProvider struct {
	users map[string]envIdentityUser
}

type envIdentityUser struct {
	Password string
	RoleSlug string
}

func newEnvIdentityProviderFromEnv() (identityProvider, error) {
	raw := strings.TrimSpace(os.Getenv("IDENTITY_USERS"))
	if raw == "" {
		return nil, errors.New("server: IDENTITY_USERS is not set")
	}

	users := map[string]envIdentityUser{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, errors.New("server: IDENTITY_USERS entry must be email:password:role")
		}
		email := strings.ToLower(strings.TrimSpace(parts[0]))
		password := parts[1]
		roleSlug := strings.ToLower(strings.TrimSpace(parts[2]))
		if email == "" || password == "" || roleSlug == "" {
			return nil, errors.New("server: IDENTITY_USERS entry must be email:password:role")
		}
		users[email] = envIdentityUser{Password: password, RoleSlug: roleSlug}
	}
	if len(users) == 0 {
		return nil, errors.New("server: IDENTITY_USERS has no entries")
	}
	return &envIdentityProvider{users: users}, nil
}

func (p *envIdentityProvider) AuthenticatePassword(_ context.Context, email string, password string) (authenticatedIdentity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, ok := p.users[email]
	if !ok {
		return authenticatedIdentity{}, errInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return authenticatedIdentity{}, errInvalidCredentials
	}
	return authenticatedIdentity{Email: email, RoleSlug: u.RoleSlug}, nil
}
