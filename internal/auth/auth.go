package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Makepad-fr/tarefas/internal/kv"
)

// EnvVar overrides whatever token is stored locally.
const EnvVar = "TADA_TOKEN"

// ErrNoToken means neither the env var nor the local store carries a token.
var ErrNoToken = errors.New("no token found")

type TokenInfo struct {
	Token     string
	Source    string     // "env" | "store"
	ExpiresAt *time.Time // only known for JWTs carrying exp
}

// Source resolves the bearer credential. The state store only ever reads
// through it; login/logout write through Set and Delete.
type Source struct {
	Store kv.Store
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// NewSource reads from store with the real environment.
func NewSource(store kv.Store) *Source {
	return &Source{Store: store, Getenv: os.Getenv}
}

func (s *Source) getenv(k string) string {
	if s.Getenv == nil {
		return os.Getenv(k)
	}
	return s.Getenv(k)
}

// Token returns the current token or ErrNoToken.
func (s *Source) Token(ctx context.Context) (*TokenInfo, error) {
	// 1) env override
	if env := stripBearer(s.getenv(EnvVar)); env != "" {
		return newInfo(env, "env"), nil
	}

	// 2) local store
	if s.Store == nil {
		return nil, ErrNoToken
	}
	b, err := s.Store.Get(ctx, kv.TokenKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("read token: %w", err)
	}
	tok := stripBearer(string(b))
	if tok == "" {
		return nil, ErrNoToken
	}
	return newInfo(tok, "store"), nil
}

// Bearer is Token reduced to the raw credential, "" when none is available.
func (s *Source) Bearer(ctx context.Context) (string, error) {
	ti, err := s.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return "", nil
		}
		return "", err
	}
	return ti.Token, nil
}

func (s *Source) Set(ctx context.Context, token string) error {
	token = stripBearer(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := s.Store.Set(ctx, kv.TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *Source) Delete(ctx context.Context) error {
	if err := s.Store.Delete(ctx, kv.TokenKey); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func newInfo(token, source string) *TokenInfo {
	ti := &TokenInfo{Token: token, Source: source}
	if payload, err := JWTPayload(token); err == nil {
		var claims struct {
			Exp int64 `json:"exp"`
		}
		if json.Unmarshal([]byte(payload), &claims) == nil && claims.Exp > 0 {
			exp := time.Unix(claims.Exp, 0)
			ti.ExpiresAt = &exp
		}
	}
	return ti
}

// JWTPayload decodes the (unverified) payload segment of a JWT.
func JWTPayload(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("not a JWT")
	}
	payload := parts[1]
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if !json.Valid(dec) {
		return "", fmt.Errorf("payload is not JSON")
	}
	return string(dec), nil
}

// stripBearer drops a case-insensitive "Bearer" scheme, including a bare
// "Bearer" with nothing after it.
func stripBearer(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 6 || !strings.EqualFold(s[:6], "bearer") {
		return s
	}
	rest := s[6:]
	if rest == "" {
		return ""
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return s
	}
	return strings.TrimSpace(rest)
}
