package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tokenRandReader io.Reader = rand.Reader

type Session struct {
	Email     string
	RoleSlug  string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type sessionStore interface {
	Create(ctx context.Context, email string, roleSlug string, expiresAt time.Time, ip string, userAgent string) (token string, err error)
	Lookup(ctx context.Context, token string) (Session, bool, error)
	Revoke(ctx context.Context, token string) error
}

func tokenTTLFromEnv() time.Duration {
	const defaultHours = 24 * 14

	v := os.Getenv("TOKEN_TTL_HOURS")
	if v == "" {
		return time.Hour * defaultHours
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return time.Hour * defaultHours
	}
	return time.Hour * time.Duration(n)
}

func newToken() (token string, tokenSha256 []byte, err error) {
	var b [32]byte
	if _, err := tokenRandReader.Read(b[:]); err != nil {
		return "", nil, err
	}
	token = base64.RawURLEncoding.EncodeToString(b[:])
	sum := sha256.Sum256([]byte(token))
	return token, sum[:], nil
}

func readBearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

type memorySessionStore struct {
	mu      sync.Mutex
	byToken map[string]Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{
		byToken: map[string]Session{},
	}
}

func (s *memorySessionStore) Create(_ context.Context, email string, roleSlug string, expiresAt time.Time, _ string, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, _, err := newToken()
	if err != nil {
		return "", err
	}
	s.byToken[token] = Session{
		Email:     email,
		RoleSlug:  roleSlug,
		ExpiresAt: expiresAt,
	}
	return token, nil
}

func (s *memorySessionStore) Lookup(_ context.Context, token string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.byToken[token]
	if !ok {
		return Session{}, false, nil
	}
	if v.RevokedAt != nil {
		return Session{}, false, nil
	}
	if time.Now().After(v.ExpiresAt) {
		return Session{}, false, nil
	}
	return v, true, nil
}

func (s *memorySessionStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byToken, token)
	return nil
}

type queryExecer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgSessionStore struct {
	q queryExecer
}

func newSessionStore(pool *pgxpool.Pool) sessionStore {
	if pool == nil {
		return newMemorySessionStore()
	}
	return &pgSessionStore{q: pool}
}

func (s *pgSessionStore) Create(ctx context.Context, email string, roleSlug string, expiresAt time.Time, ip string, userAgent string) (string, error) {
	token, tokenSha256, err := newToken()
	if err != nil {
		return "", err
	}
	_, err = s.q.Exec(ctx, `
INSERT INTO iam.sessions (token_sha256, email, role_slug, expires_at, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6);
`, tokenSha256, email, roleSlug, expiresAt, ip, userAgent)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *pgSessionStore) Lookup(ctx context.Context, token string) (Session, bool, error) {
	sum := sha256.Sum256([]byte(token))
	var out Session
	var revokedAt *time.Time
	err := s.q.QueryRow(ctx, `
SELECT email, role_slug, expires_at, revoked_at
FROM iam.sessions
WHERE token_sha256 = $1;
	`, sum[:]).Scan(&out.Email, &out.RoleSlug, &out.ExpiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	out.RevokedAt = revokedAt
	if out.RevokedAt != nil {
		return Session{}, false, nil
	}
	if time.Now().After(out.ExpiresAt) {
		return Session{}, false, nil
	}
	return out, true, nil
}

func (s *pgSessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(token))
	_, err := s.q.Exec(ctx, `DELETE FROM iam.sessions WHERE token_sha256 = $1;`, sum[:])
	return err
}
